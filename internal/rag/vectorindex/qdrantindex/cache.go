package qdrantindex

import (
	"context"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/itdjship/chat-bot-app/internal/config"
)

func cacheCollection(base string) string {
	return base + "-semantic-cache"
}

// CachedAnswer looks for a previously answered question whose embedding is
// close enough to the query to reuse the answer verbatim.
func (s *Store) CachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error) {
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: cacheCollection(s.collection),
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil || len(result) == 0 {
		return "", false, err
	}

	if result[0].Score < config.CacheSimilarityCutoff {
		return "", false, nil
	}

	s.logger.Debug("Semantic cache hit", "score", result[0].Score)
	return result[0].Payload["answer"].GetStringValue(), true, nil
}

func (s *Store) SaveAnswer(ctx context.Context, id string, vector []float32, answer string) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: cacheCollection(s.collection),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"answer":    answer,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		s.logger.Error("Saving answer to semantic cache failed", "error", err)
	}
	return err
}
