package rag_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/internal/rag"
	"github.com/itdjship/chat-bot-app/internal/rag/ingest"
	"github.com/itdjship/chat-bot-app/internal/rag/llm"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
)

const testSession = "sess-test"

type fixture struct {
	embedder *MockEmbedder
	index    *MockIndex
	llm      *MockLLM
	sessions *MockSessionStore
	persona  llm.Persona
	service  rag.Service
}

func newFixture(t *testing.T, state chatmodel.SessionState) *fixture {
	t.Helper()
	persona, err := llm.PersonaByName(llm.PersonaNeutral)
	if err != nil {
		t.Fatalf("loading persona: %v", err)
	}

	f := &fixture{
		embedder: &MockEmbedder{},
		index:    &MockIndex{},
		llm:      &MockLLM{},
		sessions: NewMockSessionStore(),
		persona:  persona,
	}
	f.sessions.Seed(testSession, state)

	chunker, err := ingest.NewChunker(100, 20)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	pipeline := ingest.NewPipeline(chunker, f.embedder)
	f.service = rag.NewService(&MockProvider{Index: f.index}, f.llm, f.embedder, pipeline, f.sessions, persona, 5)
	return f
}

func queryJob(question string) jobmodel.Job {
	return jobmodel.Job{
		Id:        "job-1",
		SessionId: testSession,
		TraceId:   "trace-1",
		JobType:   jobmodel.JobTypeQuery,
		JobPayload: jobmodel.JobPayload{
			Question: question,
		},
	}
}

func TestProcessQuery_NoIndexReturnsGuidance(t *testing.T) {
	f := newFixture(t, chatmodel.StateNoIndex)

	result := f.service.ProcessQuery(context.Background(), queryJob("What is phishing?"), nil)

	if result.JobPayload.Answer != f.persona.Guidance {
		t.Errorf("expected verbatim guidance message, got %q", result.JobPayload.Answer)
	}
	if result.Status == jobmodel.JobStatusError {
		t.Error("guidance reply must not be an error")
	}
	if f.embedder.EmbedCalls != 0 {
		t.Errorf("embedder must not be called on an empty session, got %d calls", f.embedder.EmbedCalls)
	}
	if f.llm.GenerateCalls != 0 {
		t.Errorf("LLM must not be called on an empty session, got %d calls", f.llm.GenerateCalls)
	}
	if f.index.SearchCalls != 0 {
		t.Errorf("index must not be searched on an empty session, got %d calls", f.index.SearchCalls)
	}

	turns := f.sessions.Transcripts[testSession]
	if len(turns) != 2 {
		t.Fatalf("expected 2 transcript turns, got %d", len(turns))
	}
	if turns[1].Role != chatmodel.RoleAssistant || turns[1].Text != f.persona.Guidance {
		t.Errorf("assistant turn should carry the guidance message, got %q", turns[1].Text)
	}
}

func TestProcessQuery_SuccessDeduplicatesSources(t *testing.T) {
	f := newFixture(t, chatmodel.StateReady)

	f.index.OnSearch = func(ctx context.Context, v []float32, k int) ([]vectorindex.Hit, error) {
		if k != 5 {
			t.Errorf("expected top-k of 5, got %d", k)
		}
		return []vectorindex.Hit{
			{Entry: vectorindex.Entry{Content: "phishing is social engineering", Meta: vectorindex.Metadata{DocName: "security.pdf"}}, Score: 0.95},
			{Entry: vectorindex.Entry{Content: "phishing uses fake emails", Meta: vectorindex.Metadata{DocName: "security.pdf"}}, Score: 0.9},
			{Entry: vectorindex.Entry{Content: "passwords should be unique", Meta: vectorindex.Metadata{DocName: "handbook.pdf"}}, Score: 0.5},
		}, nil
	}
	f.llm.OnGenerate = func(ctx context.Context, q string, matches []string, hist []string) (string, error) {
		if len(matches) != 3 {
			t.Errorf("expected 3 passages, got %d", len(matches))
		}
		return "phishing is a scam technique", nil
	}

	result := f.service.ProcessQuery(context.Background(), queryJob("What is phishing?"), nil)

	if result.Status == jobmodel.JobStatusError {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if result.JobPayload.Answer != "phishing is a scam technique" {
		t.Errorf("wrong answer: %q", result.JobPayload.Answer)
	}
	wantSources := []string{"security.pdf", "handbook.pdf"}
	if len(result.JobPayload.Sources) != len(wantSources) {
		t.Fatalf("sources not deduplicated: %v", result.JobPayload.Sources)
	}
	for i, src := range wantSources {
		if result.JobPayload.Sources[i] != src {
			t.Errorf("source %d: got %s, want %s", i, result.JobPayload.Sources[i], src)
		}
	}

	turns := f.sessions.Transcripts[testSession]
	if len(turns) != 2 || turns[0].Role != chatmodel.RoleUser || turns[1].Role != chatmodel.RoleAssistant {
		t.Errorf("expected (user, assistant) turns, got %+v", turns)
	}
}

func TestProcessQuery_HistoryIsPassedThrough(t *testing.T) {
	f := newFixture(t, chatmodel.StateReady)

	var gotHistory []string
	f.llm.OnGenerate = func(ctx context.Context, q string, matches []string, hist []string) (string, error) {
		gotHistory = hist
		return "answer", nil
	}

	history := []string{"user: earlier question", "assistant: earlier answer"}
	f.service.ProcessQuery(context.Background(), queryJob("follow-up"), history)

	if len(gotHistory) != 2 || gotHistory[0] != history[0] {
		t.Errorf("history not threaded into the LLM call: %v", gotHistory)
	}
}

func TestProcessQuery_CacheHitSkipsLLM(t *testing.T) {
	persona, _ := llm.PersonaByName(llm.PersonaNeutral)
	embedder := &MockEmbedder{}
	cachingIndex := &MockCachingIndex{}
	cachingIndex.OnCachedAnswer = func(ctx context.Context, v []float32) (string, bool, error) {
		return "cached answer", true, nil
	}
	mockLLM := &MockLLM{}
	sessions := NewMockSessionStore()
	sessions.Seed(testSession, chatmodel.StateReady)

	chunker, _ := ingest.NewChunker(100, 20)
	service := rag.NewService(&MockProvider{Index: cachingIndex}, mockLLM, embedder, ingest.NewPipeline(chunker, embedder), sessions, persona, 5)

	result := service.ProcessQuery(context.Background(), queryJob("repeat question"), nil)

	if result.JobPayload.Answer != "cached answer" {
		t.Errorf("expected cached answer, got %q", result.JobPayload.Answer)
	}
	if mockLLM.GenerateCalls != 0 {
		t.Errorf("LLM must not run on a cache hit, got %d calls", mockLLM.GenerateCalls)
	}
	if cachingIndex.SearchCalls != 0 {
		t.Errorf("search must not run on a cache hit, got %d calls", cachingIndex.SearchCalls)
	}
}

func TestProcessQuery_FailuresLeaveApologeticTurn(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		kind  faults.Kind
	}{
		{
			name: "embedding_failure",
			setup: func(f *fixture) {
				f.embedder.OnEmbed = func(ctx context.Context, text string) ([]float32, error) {
					return nil, faults.New(faults.Embedding, errors.New("api down"))
				}
			},
			kind: faults.Embedding,
		},
		{
			name: "search_failure",
			setup: func(f *fixture) {
				f.index.OnSearch = func(ctx context.Context, v []float32, k int) ([]vectorindex.Hit, error) {
					return nil, faults.New(faults.IndexUnavailable, errors.New("db unreachable"))
				}
			},
			kind: faults.IndexUnavailable,
		},
		{
			name: "llm_failure",
			setup: func(f *fixture) {
				f.llm.OnGenerate = func(ctx context.Context, q string, m []string, h []string) (string, error) {
					return "", faults.New(faults.Timeout, context.DeadlineExceeded)
				}
			},
			kind: faults.Timeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, chatmodel.StateReady)
			tt.setup(f)

			result := f.service.ProcessQuery(context.Background(), queryJob("any question"), nil)

			if result.Status != jobmodel.JobStatusError {
				t.Fatalf("expected error status, got %v", result.Status)
			}
			if result.Error.Message == "" {
				t.Error("job error must carry a user-facing message")
			}

			turns := f.sessions.Transcripts[testSession]
			if len(turns) != 2 {
				t.Fatalf("expected apologetic (user, assistant) turns, got %d", len(turns))
			}
			wantMessage := faults.UserMessage(faults.New(tt.kind, nil))
			if turns[1].Text != wantMessage {
				t.Errorf("assistant turn %q, want %q", turns[1].Text, wantMessage)
			}

			// the session survives the failure
			f.llm.OnGenerate = nil
			f.index.OnSearch = nil
			f.embedder.OnEmbed = nil
			retry := f.service.ProcessQuery(context.Background(), queryJob("retry"), nil)
			if retry.Status == jobmodel.JobStatusError {
				t.Error("session should stay usable after a failed query")
			}
		})
	}
}

func writeUpload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func ingestJob(path string) jobmodel.Job {
	return jobmodel.Job{
		Id:        "job-ingest",
		SessionId: testSession,
		TraceId:   "trace-1",
		JobType:   jobmodel.JobTypeIngest,
		JobPayload: jobmodel.JobPayload{
			IngestFileName:  "notes.txt",
			IngestPath:      path,
			IngestSizeBytes: 300,
		},
	}
}

func TestIngestDocument_TransitionsToReady(t *testing.T) {
	f := newFixture(t, chatmodel.StateNoIndex)
	path := writeUpload(t, strings.Repeat("security awareness matters. ", 12))

	result := f.service.IngestDocument(context.Background(), ingestJob(path))

	if result.Status == jobmodel.JobStatusError {
		t.Fatalf("ingestion failed: %+v", result.Error)
	}
	if result.JobPayload.ChunkCount == 0 {
		t.Error("chunk count missing from completed ingest job")
	}

	session, _ := f.sessions.GetSession(context.Background(), testSession)
	if session.State != chatmodel.StateReady {
		t.Errorf("expected READY after ingestion, got %s", session.State)
	}
	if len(session.Uploads) != 1 {
		t.Fatalf("expected 1 upload record, got %d", len(session.Uploads))
	}
	record := session.Uploads[0]
	if record.Filename != "notes.txt" || record.ChunkCount != result.JobPayload.ChunkCount {
		t.Errorf("upload record mismatch: %+v", record)
	}
}

func TestIngestDocument_FailureLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t, chatmodel.StateNoIndex)
	f.embedder.OnEmbedBatch = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, faults.New(faults.Embedding, errors.New("provider down"))
	}
	path := writeUpload(t, strings.Repeat("some document text. ", 12))

	result := f.service.IngestDocument(context.Background(), ingestJob(path))

	if result.Status != jobmodel.JobStatusError {
		t.Fatal("expected error status")
	}
	session, _ := f.sessions.GetSession(context.Background(), testSession)
	if session.State != chatmodel.StateNoIndex {
		t.Errorf("failed ingestion must not change state, got %s", session.State)
	}
	if len(session.Uploads) != 0 {
		t.Error("failed ingestion must not record an upload")
	}
	if len(f.sessions.Transcripts[testSession]) != 0 {
		t.Error("ingestion failures must not touch the transcript")
	}
}

func TestIngestDocument_UploadRecordFailureReportedOnJob(t *testing.T) {
	f := newFixture(t, chatmodel.StateNoIndex)
	f.sessions.OnAppendUpload = func(ctx context.Context, id string, record chatmodel.UploadRecord) error {
		return errors.New("session store unreachable")
	}
	path := writeUpload(t, strings.Repeat("audit trail content. ", 12))

	result := f.service.IngestDocument(context.Background(), ingestJob(path))

	if result.Status != jobmodel.JobStatusError {
		t.Fatal("expected error status when the upload record is lost")
	}
	if result.Error.Message != faults.UserMessage(faults.New(faults.Unknown, nil)) {
		t.Errorf("unexpected user message: %q", result.Error.Message)
	}
	if !result.Error.Retry {
		t.Error("lost upload record should be retryable")
	}
	session, _ := f.sessions.GetSession(context.Background(), testSession)
	if session.State != chatmodel.StateNoIndex {
		t.Errorf("session must not be marked ready, got %s", session.State)
	}
}
