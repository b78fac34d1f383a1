package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	SessionId string            `json:"session_id" example:"sess_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources,omitempty"`
}

type IngestResponse struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

type Result struct {
	Status              string          `json:"status"`
	RAGExternalResponse *RAGResponse    `json:"rag_response,omitempty"`
	IngestResult        *IngestResponse `json:"ingest_result,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type SessionResponse struct {
	Id        string    `json:"id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

type TranscriptTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type TranscriptResponse struct {
	SessionId string           `json:"session_id"`
	Turns     []TranscriptTurn `json:"turns"`
}

type UploadSummary struct {
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	Timestamp  time.Time `json:"timestamp"`
}

type UploadsResponse struct {
	SessionId string          `json:"session_id"`
	Uploads   []UploadSummary `json:"uploads"`
}

type IndexStatusResponse struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}
