package pgindex

import (
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

// Readers and a reconnecting writer share the handle concurrently. The
// swapped-in values are never queried, the test only checks the accessors
// stay consistent under the race detector.
func TestStore_HandleSwapIsSynchronized(t *testing.T) {
	s := &Store{
		table:  "documents",
		dim:    4,
		logger: logger_i.NewLogger("PgVectorIndex"),
	}
	s.setHandle(&sqlx.DB{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if s.handle() == nil {
					t.Error("handle returned nil while a connection was set")
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 1000; j++ {
			s.setHandle(&sqlx.DB{})
		}
	}()
	wg.Wait()
}
