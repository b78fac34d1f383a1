package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
	"github.com/itdjship/chat-bot-app/internal/job"
)

// MockRagService tracks executed jobs
type MockRagService struct {
	ProcessedCount int32
}

func (m *MockRagService) ProcessQuery(ctx context.Context, j jobmodel.Job, hist []string) jobmodel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	j.CurrentStep = jobmodel.Complete
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobmodel.Job) jobmodel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	j.CurrentStep = jobmodel.Complete
	return j
}

type MockJobStore struct {
	mu    sync.Mutex
	saved []jobmodel.Job
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobmodel.Job, bool) {
	return jobmodel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobmodel.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, j)
	return nil
}

func (m *MockJobStore) lastStatus(jobId string) (jobmodel.JobStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i].Status, true
		}
	}
	return "", false
}

type MockSessionStore struct {
	releases int32
}

func (m *MockSessionStore) CreateSession(ctx context.Context) (chatmodel.Session, error) {
	return chatmodel.Session{}, nil
}

func (m *MockSessionStore) GetSession(ctx context.Context, id string) (chatmodel.Session, bool) {
	return chatmodel.Session{Id: id, State: chatmodel.StateReady}, true
}

func (m *MockSessionStore) MarkReady(ctx context.Context, id string) error { return nil }

func (m *MockSessionStore) AppendUpload(ctx context.Context, id string, r chatmodel.UploadRecord) error {
	return nil
}

func (m *MockSessionStore) AppendTurns(ctx context.Context, id string, turns ...chatmodel.Turn) error {
	return nil
}

func (m *MockSessionStore) Transcript(ctx context.Context, id string) ([]chatmodel.Turn, error) {
	return nil, nil
}

func (m *MockSessionStore) RecentTurns(ctx context.Context, id string, n int) ([]chatmodel.Turn, error) {
	return nil, nil
}

func (m *MockSessionStore) TryAcquire(ctx context.Context, id string) (bool, error) {
	return true, nil
}

func (m *MockSessionStore) Release(ctx context.Context, id string) error {
	atomic.AddInt32(&m.releases, 1)
	return nil
}

func TestWorkerPool_Flow(t *testing.T) {
	jobStore := &MockJobStore{}
	sessionStore := &MockSessionStore{}
	jobSvc := &job.Service{
		JobChannel:        make(chan jobmodel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobStore,
		SessionStore:      sessionStore,
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true

		time.Sleep(50 * time.Millisecond)

		count := atomic.LoadInt64(&currentWorkerCount)
		if count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker processes a job and releases the session", func(t *testing.T) {
		testJob := jobmodel.Job{Id: "test-1", SessionId: "sess-1", JobType: jobmodel.JobTypeQuery}
		jobSvc.JobChannel <- testJob

		time.Sleep(100 * time.Millisecond)

		processed := atomic.LoadInt32(&mockRag.ProcessedCount)
		if processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
		if releases := atomic.LoadInt32(&sessionStore.releases); releases != 1 {
			t.Errorf("Expected in-flight guard released once, got %d", releases)
		}
		if status, found := jobStore.lastStatus("test-1"); !found || status != jobmodel.JobStatusComplete {
			t.Errorf("Expected final COMPLETE state saved, got %v (found=%v)", status, found)
		}
	})

	t.Run("Ingest jobs run through the same pool", func(t *testing.T) {
		jobSvc.JobChannel <- jobmodel.Job{Id: "test-2", SessionId: "sess-2", JobType: jobmodel.JobTypeIngest}

		time.Sleep(100 * time.Millisecond)

		if processed := atomic.LoadInt32(&mockRag.ProcessedCount); processed != 2 {
			t.Errorf("Expected 2 jobs processed, got %d", processed)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}
