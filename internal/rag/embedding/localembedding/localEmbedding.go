// Package localembedding talks to a locally hosted, OpenAI-compatible
// embedding endpoint (ollama, LM Studio, llamafile and friends). There is
// no provider-side request quota, so ingestion may batch freely.
package localembedding

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

type Client struct {
	api    openai.Client
	model  string
	logger *logger_i.Logger
}

func NewClient(baseURL, apiKey, model string) *Client {
	//local inference can be slow on first load; pool connections and give it room
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 25,
			IdleConnTimeout:     60 * time.Second,
		},
	}

	api := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	)
	logger := logger_i.NewLogger("local_embedding")
	logger.Info("Local embedding client created", "baseURL", baseURL, "model", model)
	return &Client{api: api, model: model, logger: logger}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, faults.Errorf(faults.Embedding, "cannot embed empty text")
		}
	}

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, faults.New(faults.Timeout, err)
		}
		return nil, faults.New(faults.Embedding, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, faults.Errorf(faults.Embedding,
			"endpoint returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	//the response carries indices; order by them so output matches input
	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (c *Client) Throttled() bool {
	return false
}
