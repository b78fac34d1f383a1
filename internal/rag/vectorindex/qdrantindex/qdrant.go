// Package qdrantindex keeps the qdrant vector backend. It is the only
// backend with the semantic answer cache capability.
package qdrantindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

type Store struct {
	client     *qdrant.Client
	collection string
	dim        uint64
	logger     *logger_i.Logger
}

func NewStore(ctx context.Context, host string, port int, useTLS bool, collection string, dim int) (*Store, error) {
	logger := logger_i.NewLogger("QdrantIndex")

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, faults.New(faults.IndexUnavailable, err)
	}

	s := &Store{
		client:     client,
		collection: collection,
		dim:        uint64(dim),
		logger:     logger,
	}
	setupCtx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer cancel()
	if err := s.createCollection(setupCtx, collection); err != nil {
		return nil, err
	}
	if err := s.createCollection(setupCtx, cacheCollection(collection)); err != nil {
		logger.Error("Semantic cache collection creation failed", "error", err)
	}
	go s.closeOnDone(ctx)
	return s, nil
}

func (s *Store) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	s.logger.Info("Shutting down qdrant client")
	if err := s.client.Close(); err != nil {
		s.logger.Error("could not close qdrant client", "error", err)
	}
}

func (s *Store) createCollection(ctx context.Context, name string) error {
	if name == "" {
		return faults.Errorf(faults.Configuration, "empty collection name")
	}
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return faults.New(faults.IndexUnavailable, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return faults.New(faults.IndexUnavailable, err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, entries []vectorindex.Entry) error {
	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(e.Id),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":     e.Content,
				"doc_name":    e.Meta.DocName,
				"chunk_seq":   int64(e.Meta.ChunkSeq),
				"page_num":    int64(e.Meta.PageNum),
				"session_id":  e.Meta.SessionId,
				"ingested_at": e.Meta.Ingested,
			}),
		}
	}

	//Wait=true so entries are searchable once Add returns
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return faults.New(faults.IndexUnavailable, fmt.Errorf("qdrant upsert failed: %w", err))
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, faults.New(faults.IndexUnavailable, err)
	}

	hits := make([]vectorindex.Hit, 0, len(result))
	for _, point := range result {
		hits = append(hits, vectorindex.Hit{
			Entry: vectorindex.Entry{
				Content: point.Payload["content"].GetStringValue(),
				Meta: vectorindex.Metadata{
					DocName:   point.Payload["doc_name"].GetStringValue(),
					ChunkSeq:  int(point.Payload["chunk_seq"].GetIntegerValue()),
					PageNum:   int(point.Payload["page_num"].GetIntegerValue()),
					SessionId: point.Payload["session_id"].GetStringValue(),
					Ingested:  point.Payload["ingested_at"].GetIntegerValue(),
				},
			},
			Score: point.Score,
		})
	}
	return hits, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return faults.New(faults.IndexUnavailable, err)
	}
	return nil
}

func (s *Store) Reconnect(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}
	//the grpc channel reconnects on its own; recreate collections in case
	//the instance came back empty
	if err := s.createCollection(ctx, s.collection); err != nil {
		return err
	}
	return s.createCollection(ctx, cacheCollection(s.collection))
}

func (s *Store) IndexFor(sessionId string) vectorindex.Index {
	return s
}

func (s *Store) Backend() string {
	return config.IndexQdrant
}
