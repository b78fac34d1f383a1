package store

import (
	"context"
	"sync"
	"time"

	"github.com/itdjship/chat-bot-app/internal/adapter/utils"
	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
)

type sessionEntry struct {
	session    chatmodel.Session
	transcript []chatmodel.Turn
	inFlight   bool
}

type InMemorySessionStore struct {
	mu       *sync.RWMutex
	sessions map[string]*sessionEntry
}

func InitInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		mu:       new(sync.RWMutex),
		sessions: make(map[string]*sessionEntry),
	}
}

func (store *InMemorySessionStore) CreateSession(ctx context.Context) (chatmodel.Session, error) {
	session := chatmodel.Session{
		Id:        utils.GetNewUUID(),
		State:     chatmodel.StateNoIndex,
		CreatedAt: time.Now(),
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.sessions[session.Id] = &sessionEntry{session: session}
	return session, nil
}

func (store *InMemorySessionStore) GetSession(ctx context.Context, id string) (chatmodel.Session, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	entry, found := store.sessions[id]
	if !found {
		return chatmodel.Session{}, false
	}
	return entry.session, true
}

func (store *InMemorySessionStore) MarkReady(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	entry, found := store.sessions[id]
	if !found {
		return faults.Errorf(faults.Unknown, "session %s not found", id)
	}
	entry.session.State = chatmodel.StateReady
	return nil
}

func (store *InMemorySessionStore) AppendUpload(ctx context.Context, id string, record chatmodel.UploadRecord) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	entry, found := store.sessions[id]
	if !found {
		return faults.Errorf(faults.Unknown, "session %s not found", id)
	}
	entry.session.Uploads = append(entry.session.Uploads, record)
	return nil
}

func (store *InMemorySessionStore) AppendTurns(ctx context.Context, id string, turns ...chatmodel.Turn) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	entry, found := store.sessions[id]
	if !found {
		return faults.Errorf(faults.Unknown, "session %s not found", id)
	}
	entry.transcript = append(entry.transcript, turns...)
	return nil
}

func (store *InMemorySessionStore) Transcript(ctx context.Context, id string) ([]chatmodel.Turn, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	entry, found := store.sessions[id]
	if !found {
		return nil, nil
	}
	out := make([]chatmodel.Turn, len(entry.transcript))
	copy(out, entry.transcript)
	return out, nil
}

func (store *InMemorySessionStore) RecentTurns(ctx context.Context, id string, n int) ([]chatmodel.Turn, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	entry, found := store.sessions[id]
	if !found {
		return nil, nil
	}
	transcript := entry.transcript
	if len(transcript) > n {
		transcript = transcript[len(transcript)-n:]
	}
	out := make([]chatmodel.Turn, len(transcript))
	copy(out, transcript)
	return out, nil
}

func (store *InMemorySessionStore) TryAcquire(ctx context.Context, id string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	entry, found := store.sessions[id]
	if !found {
		return false, faults.Errorf(faults.Unknown, "session %s not found", id)
	}
	if entry.inFlight {
		return false, nil
	}
	entry.inFlight = true
	return true, nil
}

func (store *InMemorySessionStore) Release(ctx context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if entry, found := store.sessions[id]; found {
		entry.inFlight = false
	}
	return nil
}
