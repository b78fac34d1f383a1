package memoryindex

import (
	"context"
	"testing"

	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
)

func entry(id string, vector []float32) vectorindex.Entry {
	return vectorindex.Entry{
		Id:      id,
		Vector:  vector,
		Content: "content-" + id,
		Meta:    vectorindex.Metadata{DocName: "doc-" + id + ".pdf"},
	}
}

func TestStorage_SearchRanksByCosine(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	err := s.Add(ctx, []vectorindex.Entry{
		entry("far", []float32{0, 1}),
		entry("near", []float32{1, 0.01}),
		entry("exact", []float32{2, 0}), // same direction as the query, longer vector
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	hits, err := s.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].Id != "exact" || hits[1].Id != "near" || hits[2].Id != "far" {
		t.Errorf("wrong ranking: %s, %s, %s", hits[0].Id, hits[1].Id, hits[2].Id)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %f > %f", i, hits[i].Score, hits[i-1].Score)
		}
	}
}

func TestStorage_SearchReturnsAtMostK(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := s.Add(ctx, []vectorindex.Entry{entry(string(rune('a'+i)), []float32{1, float32(i)})}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	hits, err := s.Search(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 5 {
		t.Errorf("expected 5 hits, got %d", len(hits))
	}

	hits, _ = s.Search(ctx, []float32{1, 0}, 100)
	if len(hits) != 10 {
		t.Errorf("k larger than index should return everything, got %d", len(hits))
	}
}

func TestStorage_TiesBrokenByInsertionOrder(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	// identical vectors, so identical scores - first in wins
	if err := s.Add(ctx, []vectorindex.Entry{
		entry("first", []float32{1, 1}),
		entry("second", []float32{1, 1}),
		entry("third", []float32{1, 1}),
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	hits, err := s.Search(ctx, []float32{1, 1}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, hit := range hits {
		if hit.Id != want[i] {
			t.Errorf("position %d: got %s, want %s", i, hit.Id, want[i])
		}
	}
}

func TestStorage_AppendOnlyReingest(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	same := entry("copy", []float32{1, 0})
	if err := s.Add(ctx, []vectorindex.Entry{same}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, []vectorindex.Entry{same}); err != nil {
		t.Fatal(err)
	}

	if s.Len() != 2 {
		t.Fatalf("re-ingest must append, not dedupe: got %d entries", s.Len())
	}
	hits, _ := s.Search(ctx, []float32{1, 0}, 5)
	if len(hits) != 2 {
		t.Errorf("expected both copies in results, got %d", len(hits))
	}
}

func TestStorage_RejectsEmptyVector(t *testing.T) {
	s := NewStorage()
	if err := s.Add(context.Background(), []vectorindex.Entry{entry("bad", nil)}); err == nil {
		t.Error("expected error for empty vector")
	}
}

func TestStorage_EmptyIndexSearch(t *testing.T) {
	s := NewStorage()
	hits, err := s.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search on empty index errored: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestProvider_SessionIsolation(t *testing.T) {
	p := NewProvider()
	ctx := context.Background()

	a := p.IndexFor("session-a")
	b := p.IndexFor("session-b")
	if a == b {
		t.Fatal("sessions must not share an index")
	}
	if again := p.IndexFor("session-a"); again != a {
		t.Fatal("same session must get the same index back")
	}

	if err := a.Add(ctx, []vectorindex.Entry{entry("a1", []float32{1, 0})}); err != nil {
		t.Fatal(err)
	}
	hits, err := b.Search(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("session-b sees session-a's entries: %d hits", len(hits))
	}
}
