package store

import (
	"context"
	"encoding/json"

	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/data/redisstore"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

type RedisJobStore struct {
	store  *redisstore.Store
	logger *logger_i.Logger
}

// GetRedisJobStore returns nil when redis is unreachable; the caller falls
// back to the in-memory store.
func GetRedisJobStore(ctx context.Context) *RedisJobStore {
	rs := redisstore.GetRedisStore(ctx, config.RedisJobStore)
	if rs == nil {
		return nil
	}
	return &RedisJobStore{
		store:  rs,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobmodel.Job) error {
	log := s.logger.With("traceId", job.TraceId, "jobId", job.Id)
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, job.Id, data, config.RedisJobStoreTTL)
	if err == nil {
		log.Debug("Saved job to Redis")
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobmodel.Job, bool) {
	var job jobmodel.Job
	val, err := s.store.Get(ctx, jobId)
	if err != nil {
		if !s.store.IsNil(err) {
			s.logger.Error("Error reading job from Redis", "jobId", jobId, "error", err)
		}
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		s.logger.Error("Error unmarshalling job", "jobId", jobId, "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, jobID); err != nil {
		s.logger.Error("Error deleting job from Redis", "jobId", jobID, "error", err)
		return
	}
	s.logger.Debug("Job deleted from Redis", "jobId", jobID)
}

func TestJobStore(store *redisstore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
