package chatmodel

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry. The transcript grows monotonically for the
// lifetime of a session and is never truncated.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

type SessionState string

const (
	// StateNoIndex means no document has been ingested for this session yet.
	StateNoIndex SessionState = "NO_INDEX"
	// StateReady means at least one ingestion succeeded.
	StateReady SessionState = "READY"
)

// UploadRecord summarises one successful ingestion for display. It is kept
// independently of the vector index itself.
type UploadRecord struct {
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	Timestamp  time.Time `json:"timestamp"`
}

type Session struct {
	Id        string         `json:"id"`
	State     SessionState   `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	Uploads   []UploadRecord `json:"uploads,omitempty"`
}
