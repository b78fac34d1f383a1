// Package pgindex is the networked SQL vector index, backed by Postgres
// with the pgvector extension. One table is shared by every session;
// entries carry the ingesting session id in their row, isolation is by
// tagging rather than separate storage.
package pgindex

import (
	"context"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

// mu guards db: Reconnect swaps the handle while worker goroutines are
// running queries, so every access goes through handle/setHandle.
type Store struct {
	mu     sync.RWMutex
	db     *sqlx.DB
	dsn    string
	table  string
	dim    int
	logger *logger_i.Logger
}

// table name and dimension come from validated config, never from requests
func NewStore(ctx context.Context, dsn, table string, dim int) (*Store, error) {
	s := &Store{
		dsn:    dsn,
		table:  table,
		dim:    dim,
		logger: logger_i.NewLogger("PgVectorIndex"),
	}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) connect(ctx context.Context) error {
	db, err := sqlx.Open("pgx", s.dsn)
	if err != nil {
		return faults.New(faults.IndexUnavailable, err)
	}
	db.SetMaxOpenConns(config.PostgresMaxOpenConns)
	db.SetMaxIdleConns(config.PostgresMaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return faults.New(faults.IndexUnavailable, err)
	}
	if err := bootstrap(ctx, db, s.table, s.dim); err != nil {
		_ = db.Close()
		return err
	}
	s.setHandle(db)
	s.logger.Info("Connected to postgres vector store", "table", s.table)
	return nil
}

func (s *Store) handle() *sqlx.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

func (s *Store) setHandle(db *sqlx.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = db
}

func bootstrap(ctx context.Context, db *sqlx.DB, table string, dim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			doc_name TEXT NOT NULL,
			chunk_seq INT NOT NULL,
			page_num INT NOT NULL,
			session_id TEXT NOT NULL,
			ingested_at TIMESTAMPTZ NOT NULL,
			insert_seq BIGSERIAL
		)`, table, dim),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return faults.New(faults.IndexUnavailable, fmt.Errorf("bootstrap: %w", err))
		}
	}
	return nil
}

// Add appends all entries in one transaction, so a failed batch leaves no
// partial rows behind. Committed rows are immediately visible to Search.
func (s *Store) Add(ctx context.Context, entries []vectorindex.Entry) error {
	tx, err := s.handle().BeginTxx(ctx, nil)
	if err != nil {
		return faults.New(faults.IndexUnavailable, err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding, doc_name, chunk_seq, page_num, session_id, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.table)

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, query,
			e.Id,
			e.Content,
			pgvector.NewVector(e.Vector),
			e.Meta.DocName,
			e.Meta.ChunkSeq,
			e.Meta.PageNum,
			e.Meta.SessionId,
			time.Unix(e.Meta.Ingested, 0).UTC(),
		)
		if err != nil {
			return faults.New(faults.IndexUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return faults.New(faults.IndexUnavailable, err)
	}
	return nil
}

// Search orders by cosine similarity via the pgvector <=> operator;
// insert_seq breaks ties in favour of the earlier insertion.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	query := fmt.Sprintf(`
		SELECT id, content, doc_name, chunk_seq, page_num, session_id,
		       EXTRACT(EPOCH FROM ingested_at)::BIGINT AS ingested_at,
		       1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1, insert_seq ASC
		LIMIT $2
	`, s.table)

	rows, err := s.handle().QueryContext(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, faults.New(faults.IndexUnavailable, err)
	}
	defer rows.Close()

	var hits []vectorindex.Hit
	for rows.Next() {
		var h vectorindex.Hit
		if err := rows.Scan(
			&h.Id,
			&h.Content,
			&h.Meta.DocName,
			&h.Meta.ChunkSeq,
			&h.Meta.PageNum,
			&h.Meta.SessionId,
			&h.Meta.Ingested,
			&h.Score,
		); err != nil {
			return nil, faults.New(faults.IndexUnavailable, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.New(faults.IndexUnavailable, err)
	}
	return hits, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.handle().PingContext(ctx); err != nil {
		return faults.New(faults.IndexUnavailable, err)
	}
	return nil
}

// Reconnect backs the manual "retry connection" action. Queries already
// running against the old handle fail with a closed-database error; new
// calls pick up the fresh handle.
func (s *Store) Reconnect(ctx context.Context) error {
	if db := s.handle(); db != nil {
		if err := db.PingContext(ctx); err == nil {
			return nil
		}
		_ = db.Close()
	}
	return s.connect(ctx)
}

func (s *Store) Close() error {
	return s.handle().Close()
}

// the postgres index is shared: every session sees the same store
func (s *Store) IndexFor(sessionId string) vectorindex.Index {
	return s
}

func (s *Store) Backend() string {
	return config.IndexPostgres
}
