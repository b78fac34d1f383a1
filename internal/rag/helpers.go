package rag

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/internal/metrics"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

func returnOutput(job jobmodel.Job, ans string) jobmodel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobmodel.Complete
	return job
}

func logOutput(job jobmodel.Job, status jobmodel.InternalStatus, log *logger_i.Logger) jobmodel.Job {
	job.CurrentStep = status
	log.Debug("ProcessQuery", "currentStep", job.CurrentStep)
	return job
}

func statusCodeFor(err error) int {
	switch faults.KindOf(err) {
	case faults.RateLimit:
		return http.StatusTooManyRequests
	case faults.Timeout:
		return http.StatusGatewayTimeout
	case faults.IndexUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *service) jobError(job jobmodel.Job, err error, message string, canRetry bool) jobmodel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	job.Error = jobmodel.JobError{
		Code:    statusCodeFor(err),
		Message: faults.UserMessage(err),
		Retry:   canRetry,
	}
	job.Status = jobmodel.JobStatusError
	return job
}

// queryFailure reports the error on the job and leaves an apologetic
// assistant turn so the transcript reflects what the user saw. Session state
// is untouched; the next query runs normally.
func (s *service) queryFailure(ctx context.Context, log *logger_i.Logger, job jobmodel.Job, err error, message string) jobmodel.Job {
	job = s.jobError(job, err, message, true)
	s.appendExchange(ctx, log, job.SessionId, job.JobPayload.Question, faults.UserMessage(err))
	return job
}

func (s *service) appendExchange(ctx context.Context, log *logger_i.Logger, sessionId string, question string, answer string) {
	turns := []chatmodel.Turn{
		{Role: chatmodel.RoleUser, Text: question},
		{Role: chatmodel.RoleAssistant, Text: answer},
	}
	if err := s.sessions.AppendTurns(ctx, sessionId, turns...); err != nil {
		log.Error("Failed to append transcript turns", "error", err)
	}
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobmodel.Job) ([]float32, error) {
	*job = logOutput(*job, jobmodel.EmbeddingAPICall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.Embed(ctx, job.JobPayload.Question)
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobmodel.Job, index vectorindex.Index, queryVector []float32) (string, bool) {
	cache, ok := index.(vectorindex.AnswerCache)
	if !ok {
		return "", false
	}
	*job = logOutput(*job, jobmodel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, err := cache.CachedAnswer(ctx, queryVector)
	if err != nil {
		log.Warn("Cache lookup failed, falling through to search", "error", err)
		return "", false
	}
	return ans, found
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, job *jobmodel.Job, index vectorindex.Index, queryVector []float32) ([]string, error) {
	*job = logOutput(*job, jobmodel.VectorSearchCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	hits, err := index.Search(ctx, queryVector, s.topK)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0, len(hits))
	seen := make(map[string]bool)
	sources := make([]string, 0, len(hits))
	for _, hit := range hits {
		matches = append(matches, fmt.Sprintf("Content: %s, DocumentName: %s", hit.Content, hit.Meta.DocName))
		if !seen[hit.Meta.DocName] {
			seen[hit.Meta.DocName] = true
			sources = append(sources, hit.Meta.DocName)
		}
	}
	job.JobPayload.Sources = sources
	return matches, nil
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobmodel.Job, matches []string, history []string) (string, error) {
	*job = logOutput(*job, jobmodel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, job.JobPayload.Question, matches, history)
}
