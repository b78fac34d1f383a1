package rag

import (
	"context"
	"time"

	"github.com/itdjship/chat-bot-app/internal/adapter/utils"
	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/domain/docmodel"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/internal/metrics"
	"github.com/itdjship/chat-bot-app/internal/rag/embedding"
	"github.com/itdjship/chat-bot-app/internal/rag/ingest"
	"github.com/itdjship/chat-bot-app/internal/rag/llm"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

// Service is the only surface the worker sees. Everything behind it - the
// index provider, the LLM client, the embedder, the session store - stays
// private so workers can be tested against a mock of this one interface.
type Service interface {
	ProcessQuery(ctx context.Context, job jobmodel.Job, messageHistory []string) jobmodel.Job
	IngestDocument(ctx context.Context, job jobmodel.Job) jobmodel.Job
}

type service struct {
	indexes     vectorindex.Provider
	llmProvider llm.Provider
	embedder    embedding.Embedder
	pipeline    *ingest.Pipeline
	sessions    jobmodel.SessionStore
	persona     llm.Persona
	topK        int
	logger      *logger_i.Logger
}

func NewService(indexes vectorindex.Provider, llmProvider llm.Provider, em embedding.Embedder, pipeline *ingest.Pipeline, sessions jobmodel.SessionStore, persona llm.Persona, topK int) Service {
	return &service{
		indexes:     indexes,
		llmProvider: llmProvider,
		embedder:    em,
		pipeline:    pipeline,
		sessions:    sessions,
		persona:     persona,
		topK:        topK,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

// ProcessQuery runs one chat turn end to end: session gate, embedding, cache
// lookup, retrieval, generation, transcript append. A session that has not
// ingested anything gets the guidance reply without touching the embedder or
// the LLM. Any failure turns into an apologetic assistant turn; the session
// itself stays usable.
func (s *service) ProcessQuery(ctx context.Context, jobt jobmodel.Job, messageHistory []string) jobmodel.Job {
	inMethodLogger := s.logger.With("traceId", jobt.TraceId, "jobId", jobt.Id)

	session, found := s.sessions.GetSession(ctx, jobt.SessionId)
	if !found {
		return s.jobError(jobt, faults.Errorf(faults.Unknown, "session %s not found", jobt.SessionId), "SESSION_NOT_FOUND", false)
	}

	if session.State == chatmodel.StateNoIndex {
		inMethodLogger.Debug("Query on empty session, returning guidance")
		s.appendExchange(ctx, inMethodLogger, jobt.SessionId, jobt.JobPayload.Question, s.persona.Guidance)
		return returnOutput(jobt, s.persona.Guidance)
	}

	index := s.indexes.IndexFor(jobt.SessionId)

	// Embedding
	queryVector, err := s.executeEmbeddingStep(ctx, inMethodLogger, &jobt)
	if err != nil {
		return s.queryFailure(ctx, inMethodLogger, jobt, err, "EMBEDDING_FAILURE")
	}

	// Cache Check
	if cachedAnswer, found := s.executeCacheCheckStep(ctx, inMethodLogger, &jobt, index, queryVector); found {
		s.appendExchange(ctx, inMethodLogger, jobt.SessionId, jobt.JobPayload.Question, cachedAnswer)
		return returnOutput(jobt, cachedAnswer)
	}

	// Vector Search
	matches, err := s.executeVectorSearchStep(ctx, inMethodLogger, &jobt, index, queryVector)
	if err != nil {
		return s.queryFailure(ctx, inMethodLogger, jobt, err, "VECTOR_SEARCH_FAILURE")
	}

	// LLM Generation
	answer, err := s.executeLLMStep(ctx, inMethodLogger, &jobt, matches, messageHistory)
	if err != nil {
		return s.queryFailure(ctx, inMethodLogger, jobt, err, "LLM_GENERATION_FAILURE")
	}

	s.appendExchange(ctx, inMethodLogger, jobt.SessionId, jobt.JobPayload.Question, answer)

	// Background cache save
	if cache, ok := index.(vectorindex.AnswerCache); ok {
		go func() {
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := cache.SaveAnswer(saveCtx, utils.GetNewUUID(), queryVector, answer); err != nil {
				s.logger.Error("Failed to save answer to cache", "error", err)
			}
		}()
	}

	return returnOutput(jobt, answer)
}

// IngestDocument runs the ingestion pipeline for the file referenced by the
// job. Success appends the upload record and moves the session to Ready.
// Failure is reported on the job only; the transcript and any previously
// ingested data are untouched.
func (s *service) IngestDocument(ctx context.Context, jobt jobmodel.Job) jobmodel.Job {
	inMethodLogger := s.logger.With("traceId", jobt.TraceId, "jobId", jobt.Id)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	jobt.CurrentStep = jobmodel.IngestProcessing

	doc := docmodel.Document{
		Id:         utils.GetNewUUID(),
		Name:       jobt.JobPayload.IngestFileName,
		SizeBytes:  jobt.JobPayload.IngestSizeBytes,
		IngestedAt: time.Now(),
	}

	index := s.indexes.IndexFor(jobt.SessionId)
	record, err := s.pipeline.Ingest(ctx, jobt.SessionId, doc, jobt.JobPayload.IngestPath, index)
	if err != nil {
		return s.jobError(jobt, err, "INGESTION_FAILURE", true)
	}

	if err := s.sessions.AppendUpload(ctx, jobt.SessionId, record); err != nil {
		inMethodLogger.Error("Failed to record upload history", "error", err)
		return s.jobError(jobt, err, "SESSION_UPDATE_FAILURE", true)
	}
	if err := s.sessions.MarkReady(ctx, jobt.SessionId); err != nil {
		return s.jobError(jobt, err, "SESSION_UPDATE_FAILURE", true)
	}

	inMethodLogger.Info("Document ingested", "document", doc.Name, "chunks", record.ChunkCount)
	jobt.JobPayload.ChunkCount = record.ChunkCount
	jobt.CurrentStep = jobmodel.Complete
	return jobt
}

// RecentTurnsForPrompt renders the tail of a transcript the way the LLM
// prompt expects it.
func RecentTurnsForPrompt(turns []chatmodel.Turn) []string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, string(t.Role)+": "+t.Text)
	}
	return lines
}
