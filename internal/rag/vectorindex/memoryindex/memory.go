// Package memoryindex is the ephemeral in-process vector index. Every
// session gets its own instance; nothing survives a restart.
package memoryindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
)

type Storage struct {
	mu      sync.RWMutex
	entries []vectorindex.Entry
	norms   []float32
}

func NewStorage() *Storage {
	return &Storage{}
}

func (s *Storage) Add(ctx context.Context, entries []vectorindex.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return faults.Errorf(faults.Embedding, "entry %s has an empty vector", e.Id)
		}
		s.entries = append(s.entries, e)
		s.norms = append(s.norms, norm(e.Vector))
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.entries) == 0 {
		return nil, nil
	}

	queryNorm := norm(vector)
	scores := make([]float32, len(s.entries))
	for i, e := range s.entries {
		scores[i] = cosine(e.Vector, vector, s.norms[i], queryNorm)
	}

	//stable sort keeps insertion order for equal scores: earlier entry wins
	idxs := make([]int, len(s.entries))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return scores[idxs[a]] > scores[idxs[b]]
	})

	if k > len(idxs) {
		k = len(idxs)
	}
	hits := make([]vectorindex.Hit, 0, k)
	for _, j := range idxs[:k] {
		hits = append(hits, vectorindex.Hit{Entry: s.entries[j], Score: scores[j]})
	}
	return hits, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// Len reports how many entries the index holds.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func cosine(a, b []float32, normA, normB float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	denom := float64(normA) * float64(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// Provider hands each session its own Storage instance.
type Provider struct {
	mu       sync.Mutex
	sessions map[string]*Storage
}

func NewProvider() *Provider {
	return &Provider{sessions: make(map[string]*Storage)}
}

func (p *Provider) IndexFor(sessionId string) vectorindex.Index {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.sessions[sessionId]
	if !ok {
		st = NewStorage()
		p.sessions[sessionId] = st
	}
	return st
}

func (p *Provider) Ping(ctx context.Context) error {
	return nil
}

func (p *Provider) Backend() string {
	return config.IndexMemory
}
