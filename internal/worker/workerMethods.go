package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
	"github.com/itdjship/chat-bot-app/internal/metrics"
	"github.com/itdjship/chat-bot-app/internal/rag"
)

// historyTurns is how many transcript turns are replayed into the prompt.
const historyTurns = 10

func executeJob(currentJob jobmodel.Job) {
	start := time.Now()

	timeout := config.QueryTimeout
	if currentJob.JobType == jobmodel.JobTypeIngest {
		timeout = config.IngestTimeout
	}
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, currentJob.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, timeout)
	defer cancel()

	// the in-flight guard was taken by the handler; release it no matter
	// how this job ends. The job context may already be past its deadline
	// here, so the release gets its own.
	defer func() {
		releaseCtx, releaseCancel := context.WithTimeout(ctxTrace, 5*time.Second)
		defer releaseCancel()
		if err := _jobService.SessionStore.Release(releaseCtx, currentJob.SessionId); err != nil {
			logger.Error("Failed to release session", "sessionId", currentJob.SessionId, "error", err)
		}
	}()

	logger.Debug("Processing job", "jobId", currentJob.Id, "traceId", currentJob.TraceId)
	saveJobState(ctx, currentJob, jobmodel.JobStatusRunning)

	if currentJob.JobType == jobmodel.JobTypeIngest {
		currentJob = _ragService.IngestDocument(ctx, currentJob)
	} else {
		currentJob = processQuery(ctx, currentJob)
	}

	currentJob.EndTime = time.Now()
	finalStatus := jobmodel.JobStatusComplete
	if currentJob.Status == jobmodel.JobStatusError {
		finalStatus = jobmodel.JobStatusError
	}
	saveCtx, saveCancel := context.WithTimeout(ctxTrace, 5*time.Second)
	defer saveCancel()
	saveJobState(saveCtx, currentJob, finalStatus)
	metrics.CaptureJobMetrics(string(finalStatus), time.Since(start))
}

func processQuery(ctx context.Context, currentJob jobmodel.Job) jobmodel.Job {
	turns, err := _jobService.SessionStore.RecentTurns(ctx, currentJob.SessionId, historyTurns)
	if err != nil {
		logger.Error("Failed to get message history", "sessionId", currentJob.SessionId, "error", err)
	}
	return _ragService.ProcessQuery(ctx, currentJob, rag.RecentTurnsForPrompt(turns))
}

func saveJobState(ctx context.Context, currentJob jobmodel.Job, jobStatus jobmodel.JobStatus) {
	currentJob.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, currentJob); err != nil {
		logger.Error("Failed to save job state", "jobId", currentJob.Id, "error", err)
	}
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
	metrics.DecrementActiveWorkerCount()
}
