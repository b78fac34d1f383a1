package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itdjship/chat-bot-app/internal/adapter/utils"
	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/data/redisstore"
	"github.com/itdjship/chat-bot-app/internal/domain/chatmodel"
	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

const (
	sessionKeyPrefix    = "session:"
	transcriptKeyPrefix = "transcript:"
	inflightKeyPrefix   = "inflight:"
)

// RedisSessionStore keeps the session record as a JSON value and the
// transcript as a redis list, so appends never rewrite history. The
// in-flight guard is a SETNX key with a TTL; a crashed worker releases the
// session when the TTL lapses.
type RedisSessionStore struct {
	store  *redisstore.Store
	logger *logger_i.Logger
}

func GetRedisSessionStore(ctx context.Context) *RedisSessionStore {
	rs := redisstore.GetRedisStore(ctx, config.RedisSessionStore)
	if rs == nil {
		return nil
	}
	return &RedisSessionStore{
		store:  rs,
		logger: logger_i.NewLogger("SessionStore"),
	}
}

func (s *RedisSessionStore) CreateSession(ctx context.Context) (chatmodel.Session, error) {
	session := chatmodel.Session{
		Id:        utils.GetNewUUID(),
		State:     chatmodel.StateNoIndex,
		CreatedAt: time.Now(),
	}
	if err := s.saveSession(ctx, session); err != nil {
		return chatmodel.Session{}, err
	}
	s.logger.Debug("Created session", "sessionId", session.Id)
	return session, nil
}

func (s *RedisSessionStore) GetSession(ctx context.Context, id string) (chatmodel.Session, bool) {
	var session chatmodel.Session
	val, err := s.store.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		if !s.store.IsNil(err) {
			s.logger.Error("Error reading session from Redis", "sessionId", id, "error", err)
		}
		return session, false
	}
	if err = json.Unmarshal([]byte(val), &session); err != nil {
		s.logger.Error("Error unmarshalling session", "sessionId", id, "error", err)
		return session, false
	}
	return session, true
}

func (s *RedisSessionStore) MarkReady(ctx context.Context, id string) error {
	session, found := s.GetSession(ctx, id)
	if !found {
		return faults.Errorf(faults.Unknown, "session %s not found", id)
	}
	if session.State == chatmodel.StateReady {
		return nil
	}
	session.State = chatmodel.StateReady
	return s.saveSession(ctx, session)
}

func (s *RedisSessionStore) AppendUpload(ctx context.Context, id string, record chatmodel.UploadRecord) error {
	session, found := s.GetSession(ctx, id)
	if !found {
		return faults.Errorf(faults.Unknown, "session %s not found", id)
	}
	session.Uploads = append(session.Uploads, record)
	return s.saveSession(ctx, session)
}

func (s *RedisSessionStore) AppendTurns(ctx context.Context, id string, turns ...chatmodel.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	key := transcriptKeyPrefix + id
	if err := s.store.ListPush(ctx, key, values...); err != nil {
		return err
	}
	return s.store.Expire(ctx, key, config.RedisSessionStoreTTL)
}

func (s *RedisSessionStore) Transcript(ctx context.Context, id string) ([]chatmodel.Turn, error) {
	raw, err := s.store.ListGetAll(ctx, transcriptKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	return decodeTurns(raw, s.logger)
}

func (s *RedisSessionStore) RecentTurns(ctx context.Context, id string, n int) ([]chatmodel.Turn, error) {
	raw, err := s.store.ListGetTail(ctx, transcriptKeyPrefix+id, n)
	if err != nil {
		return nil, err
	}
	return decodeTurns(raw, s.logger)
}

func (s *RedisSessionStore) TryAcquire(ctx context.Context, id string) (bool, error) {
	return s.store.SetNX(ctx, inflightKeyPrefix+id, 1, config.SessionBusyTTL)
}

func (s *RedisSessionStore) Release(ctx context.Context, id string) error {
	return s.store.Del(ctx, inflightKeyPrefix+id)
}

func (s *RedisSessionStore) saveSession(ctx context.Context, session chatmodel.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, sessionKeyPrefix+session.Id, data, config.RedisSessionStoreTTL)
}

func decodeTurns(raw []string, logger *logger_i.Logger) ([]chatmodel.Turn, error) {
	turns := make([]chatmodel.Turn, 0, len(raw))
	for _, item := range raw {
		var turn chatmodel.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			logger.Error("Skipping malformed transcript entry", "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func TestSessionStore(store *redisstore.Store) *RedisSessionStore {
	return &RedisSessionStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
