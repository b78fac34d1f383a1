package vectorindex

import "context"

// Metadata travels with every stored entry. It is used for citation display
// and session tagging only, never for ranking.
type Metadata struct {
	DocName   string `json:"doc_name"`
	ChunkSeq  int    `json:"chunk_seq"`
	PageNum   int    `json:"page_num"`
	SessionId string `json:"session_id"`
	Ingested  int64  `json:"ingested_at"`
}

type Entry struct {
	Id      string
	Vector  []float32
	Content string
	Meta    Metadata
}

type Hit struct {
	Entry
	Score float32
}

// Index is the nearest-neighbour capability. Add is append-only: it never
// rewrites or deduplicates, and entries are visible to Search once it
// returns. Search orders by descending cosine similarity, ties broken by
// insertion order, and returns at most k hits.
type Index interface {
	Add(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Ping(ctx context.Context) error
}

// Provider hands out the Index for a session. The in-memory backend gives
// every session its own instance; networked backends share one and ignore
// the session id.
type Provider interface {
	IndexFor(sessionId string) Index
	Ping(ctx context.Context) error
	Backend() string
}

// Reconnectable is implemented by networked providers that support the
// manual retry-connection action.
type Reconnectable interface {
	Reconnect(ctx context.Context) error
}

// AnswerCache is an optional capability: a backend may keep a semantic cache
// of (query vector, answer) pairs consulted before retrieval.
type AnswerCache interface {
	CachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error)
	SaveAnswer(ctx context.Context, id string, vector []float32, answer string) error
}
