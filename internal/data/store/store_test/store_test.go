package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/itdjship/chat-bot-app/internal/data/redisstore"
	"github.com/itdjship/chat-bot-app/internal/data/store"
	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
)

func newTestStores(t *testing.T) (*store.RedisJobStore, *store.RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	internal := redisstore.NewTestStore(client)
	return store.TestJobStore(internal), store.TestSessionStore(internal), mr
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	jobStore, _, mr := newTestStores(t)
	ctx := context.Background()
	jobID := "job_abc_123"

	testJob := jobmodel.Job{
		Id:     jobID,
		Status: jobmodel.JobStatusRunning,
		JobPayload: jobmodel.JobPayload{
			Question: "How do I mock Redis?",
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if retrievedJob.JobPayload.Question != testJob.JobPayload.Question {
			t.Errorf("Data mismatch! Got %s, want %s",
				retrievedJob.JobPayload.Question, testJob.JobPayload.Question)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if mr.Exists(jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisSessionStore_Lifecycle(t *testing.T) {
	_, sessionStore, _ := newTestStores(t)
	ctx := context.Background()

	session, err := sessionStore.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.State != chatmodel.StateNoIndex {
		t.Errorf("new session should be NO_INDEX, got %s", session.State)
	}

	t.Run("Get round trip", func(t *testing.T) {
		got, found := sessionStore.GetSession(ctx, session.Id)
		if !found {
			t.Fatal("session not found after create")
		}
		if got.Id != session.Id || got.State != chatmodel.StateNoIndex {
			t.Errorf("session mismatch: %+v", got)
		}
	})

	t.Run("MarkReady and AppendUpload", func(t *testing.T) {
		record := chatmodel.UploadRecord{Filename: "doc.pdf", SizeBytes: 1234, ChunkCount: 7}
		if err := sessionStore.AppendUpload(ctx, session.Id, record); err != nil {
			t.Fatalf("AppendUpload failed: %v", err)
		}
		if err := sessionStore.MarkReady(ctx, session.Id); err != nil {
			t.Fatalf("MarkReady failed: %v", err)
		}

		got, _ := sessionStore.GetSession(ctx, session.Id)
		if got.State != chatmodel.StateReady {
			t.Errorf("expected READY, got %s", got.State)
		}
		if len(got.Uploads) != 1 || got.Uploads[0].ChunkCount != 7 {
			t.Errorf("upload record not persisted: %+v", got.Uploads)
		}
	})

	t.Run("Unknown session", func(t *testing.T) {
		if _, found := sessionStore.GetSession(ctx, "ghost"); found {
			t.Error("expected found=false for unknown session")
		}
		if err := sessionStore.MarkReady(ctx, "ghost"); err == nil {
			t.Error("MarkReady on unknown session should error")
		}
	})
}

func TestRedisSessionStore_Transcript(t *testing.T) {
	_, sessionStore, _ := newTestStores(t)
	ctx := context.Background()

	session, _ := sessionStore.CreateSession(ctx)

	turns := []chatmodel.Turn{
		{Role: chatmodel.RoleUser, Text: "first question"},
		{Role: chatmodel.RoleAssistant, Text: "first answer"},
		{Role: chatmodel.RoleUser, Text: "second question"},
		{Role: chatmodel.RoleAssistant, Text: "second answer"},
	}
	if err := sessionStore.AppendTurns(ctx, session.Id, turns...); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}

	t.Run("Full transcript in order", func(t *testing.T) {
		got, err := sessionStore.Transcript(ctx, session.Id)
		if err != nil {
			t.Fatalf("Transcript failed: %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("expected 4 turns, got %d", len(got))
		}
		for i := range turns {
			if got[i] != turns[i] {
				t.Errorf("turn %d mismatch: got %+v want %+v", i, got[i], turns[i])
			}
		}
	})

	t.Run("RecentTurns takes the tail", func(t *testing.T) {
		got, err := sessionStore.RecentTurns(ctx, session.Id, 2)
		if err != nil {
			t.Fatalf("RecentTurns failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(got))
		}
		if got[0].Text != "second question" || got[1].Text != "second answer" {
			t.Errorf("wrong tail: %+v", got)
		}
	})
}

func TestRedisSessionStore_InFlightGuard(t *testing.T) {
	_, sessionStore, _ := newTestStores(t)
	ctx := context.Background()

	session, _ := sessionStore.CreateSession(ctx)

	acquired, err := sessionStore.TryAcquire(ctx, session.Id)
	if err != nil || !acquired {
		t.Fatalf("first acquire should succeed: acquired=%v err=%v", acquired, err)
	}

	acquired, err = sessionStore.TryAcquire(ctx, session.Id)
	if err != nil {
		t.Fatalf("second acquire errored: %v", err)
	}
	if acquired {
		t.Error("second acquire must be rejected while the first is held")
	}

	if err := sessionStore.Release(ctx, session.Id); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	acquired, _ = sessionStore.TryAcquire(ctx, session.Id)
	if !acquired {
		t.Error("acquire after release should succeed")
	}
}
