package jobmodel

import (
	"context"
	"time"

	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
)

type JobStatus string
type InternalStatus string
type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "ERROR"

	QueryInit        InternalStatus = "Init"
	CacheCall        InternalStatus = "CacheCall"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	VectorSearchCall InternalStatus = "VectorSearch"
	LLMCall          InternalStatus = "LLM"
	SessionCall      InternalStatus = "SessionStore"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"

	Complete InternalStatus = "Complete"

	JobTypeQuery  JobType = "Query"
	JobTypeIngest JobType = "Ingest"
)

type Job struct {
	Id          string         `json:"id"`
	SessionId   string         `json:"session_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Sources  []string `json:"sources,omitempty"`

	IngestFileName  string `json:"ingest_file_name,omitempty"`
	IngestPath      string `json:"ingest_path,omitempty"`
	IngestSizeBytes int64  `json:"ingest_size_bytes,omitempty"`
	ChunkCount      int    `json:"chunk_count,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobId string)
}

// SessionStore owns everything session-scoped: lifecycle, state machine,
// transcript and upload history. Acquire/Release serialise in-flight work per
// session; a second query while one is pending is rejected at the handler.
type SessionStore interface {
	CreateSession(ctx context.Context) (chatmodel.Session, error)
	GetSession(ctx context.Context, id string) (chatmodel.Session, bool)

	MarkReady(ctx context.Context, id string) error
	AppendUpload(ctx context.Context, id string, record chatmodel.UploadRecord) error

	AppendTurns(ctx context.Context, id string, turns ...chatmodel.Turn) error
	Transcript(ctx context.Context, id string) ([]chatmodel.Turn, error)
	RecentTurns(ctx context.Context, id string, n int) ([]chatmodel.Turn, error)

	TryAcquire(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}
