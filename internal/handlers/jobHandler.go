package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
	"github.com/itdjship/chat-bot-app/internal/job"
	"github.com/itdjship/chat-bot-app/internal/metrics"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
	indexes vectorindex.Provider
}

func InitJobHandler(jobService *job.Service, indexes vectorindex.Provider) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, indexes: indexes}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	logJH.Info("Creating new job", "traceId", newJob.traceId, "jobId", newJob.id)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(ctx context.Context, id string) (result jobmodel.Job, isFound bool) {
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctx, id)
	}
	return result, false
}

func (h *JobHandler) pushToJobChannel(newJob newJobData) {
	_job := jobmodel.Job{}
	_job.Id = newJob.id
	_job.SessionId = newJob.sessionId
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobmodel.JobStatusQueued

	if newJob.isDocumentIngest {
		_job.CurrentStep = jobmodel.IngestInit
		_job.JobType = jobmodel.JobTypeIngest
		_job.JobPayload.IngestFileName = newJob.documentName
		_job.JobPayload.IngestPath = newJob.documentPath
		_job.JobPayload.IngestSizeBytes = newJob.documentSize
	} else {
		_job.JobType = jobmodel.JobTypeQuery
		_job.JobPayload.Question = newJob.message
		_job.CurrentStep = jobmodel.QueryInit
	}

	metrics.IncrementJobsInQueue()

	//persist the queued state first so /status works as soon as the 202 is out
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.service.JobStore.SaveJob(saveCtx, _job); err != nil {
		logJH.Error("Failed to save queued job", "jobId", _job.Id, "error", err)
	}

	h.service.JobChannel <- _job //blocking send, the buffer is the backpressure
	logJH.Info("Queued new job", "jobId", _job.Id, "type", _job.JobType)

	//a new worker is signalled every RequestsPerNewWorkerCount submissions,
	//and always for ingestion since that can hold a worker for minutes
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobmodel.JobTypeIngest {
		h.service.DispatcherChannel <- true
	}
}
