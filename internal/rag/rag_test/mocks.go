package rag_test

import (
	"context"
	"sync"

	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
)

// MockIndex implements vectorindex.Index
type MockIndex struct {
	OnAdd    func(ctx context.Context, entries []vectorindex.Entry) error
	OnSearch func(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error)

	SearchCalls int
}

func (m *MockIndex) Add(ctx context.Context, entries []vectorindex.Entry) error {
	if m.OnAdd != nil {
		return m.OnAdd(ctx, entries)
	}
	return nil
}

func (m *MockIndex) Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	m.SearchCalls++
	if m.OnSearch != nil {
		return m.OnSearch(ctx, vector, k)
	}
	return []vectorindex.Hit{
		{Entry: vectorindex.Entry{Content: "default context", Meta: vectorindex.Metadata{DocName: "default.pdf"}}, Score: 0.9},
	}, nil
}

func (m *MockIndex) Ping(ctx context.Context) error { return nil }

// MockCachingIndex adds the vectorindex.AnswerCache capability
type MockCachingIndex struct {
	MockIndex
	OnCachedAnswer func(ctx context.Context, queryVector []float32) (string, bool, error)
	OnSaveAnswer   func(ctx context.Context, id string, vector []float32, answer string) error
}

func (m *MockCachingIndex) CachedAnswer(ctx context.Context, v []float32) (string, bool, error) {
	if m.OnCachedAnswer != nil {
		return m.OnCachedAnswer(ctx, v)
	}
	return "", false, nil
}

func (m *MockCachingIndex) SaveAnswer(ctx context.Context, id string, v []float32, a string) error {
	if m.OnSaveAnswer != nil {
		return m.OnSaveAnswer(ctx, id, v, a)
	}
	return nil
}

// MockProvider implements vectorindex.Provider, handing every session the
// same mock index.
type MockProvider struct {
	Index vectorindex.Index
}

func (m *MockProvider) IndexFor(sessionId string) vectorindex.Index { return m.Index }
func (m *MockProvider) Ping(ctx context.Context) error              { return nil }
func (m *MockProvider) Backend() string                             { return "mock" }

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	OnEmbed      func(ctx context.Context, text string) ([]float32, error)
	OnEmbedBatch func(ctx context.Context, texts []string) ([][]float32, error)
	IsThrottled  bool

	EmbedCalls int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.EmbedCalls++
	if m.OnEmbed != nil {
		return m.OnEmbed(ctx, text)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnEmbedBatch != nil {
		return m.OnEmbedBatch(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1}
	}
	return vectors, nil
}

func (m *MockEmbedder) Throttled() bool { return m.IsThrottled }

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, query string, matches []string, history []string) (string, error)

	GenerateCalls int
}

func (m *MockLLM) Generate(ctx context.Context, q string, matches []string, hist []string) (string, error) {
	m.GenerateCalls++
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, q, matches, hist)
	}
	return "mocked llm response", nil
}

// MockSessionStore implements jobmodel.SessionStore with plain maps
type MockSessionStore struct {
	OnAppendUpload func(ctx context.Context, id string, record chatmodel.UploadRecord) error

	mu          sync.Mutex
	Sessions    map[string]*chatmodel.Session
	Transcripts map[string][]chatmodel.Turn
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		Sessions:    make(map[string]*chatmodel.Session),
		Transcripts: make(map[string][]chatmodel.Turn),
	}
}

func (m *MockSessionStore) Seed(id string, state chatmodel.SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[id] = &chatmodel.Session{Id: id, State: state}
}

func (m *MockSessionStore) CreateSession(ctx context.Context) (chatmodel.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := chatmodel.Session{Id: "mock-session", State: chatmodel.StateNoIndex}
	m.Sessions[s.Id] = &s
	return s, nil
}

func (m *MockSessionStore) GetSession(ctx context.Context, id string) (chatmodel.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return chatmodel.Session{}, false
	}
	return *s, true
}

func (m *MockSessionStore) MarkReady(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[id]; ok {
		s.State = chatmodel.StateReady
	}
	return nil
}

func (m *MockSessionStore) AppendUpload(ctx context.Context, id string, record chatmodel.UploadRecord) error {
	if m.OnAppendUpload != nil {
		return m.OnAppendUpload(ctx, id, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[id]; ok {
		s.Uploads = append(s.Uploads, record)
	}
	return nil
}

func (m *MockSessionStore) AppendTurns(ctx context.Context, id string, turns ...chatmodel.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transcripts[id] = append(m.Transcripts[id], turns...)
	return nil
}

func (m *MockSessionStore) Transcript(ctx context.Context, id string) ([]chatmodel.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chatmodel.Turn(nil), m.Transcripts[id]...), nil
}

func (m *MockSessionStore) RecentTurns(ctx context.Context, id string, n int) ([]chatmodel.Turn, error) {
	turns, _ := m.Transcript(ctx, id)
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

func (m *MockSessionStore) TryAcquire(ctx context.Context, id string) (bool, error) { return true, nil }
func (m *MockSessionStore) Release(ctx context.Context, id string) error            { return nil }
