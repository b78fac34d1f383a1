// Package googleembedding is the remote embedding provider backed by the
// Gemini embedding API. It is rate limited by the provider, so ingestion
// runs in the serialized, throttled mode when this provider is selected.
package googleembedding

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

type Client struct {
	genAi  *genai.Client
	model  string
	dim    int32
	logger *logger_i.Logger
}

func NewClient(ctx context.Context, modelName, apiKey string, dimension int) (*Client, error) {
	logger := logger_i.NewLogger("google_embedding")

	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		logger.Error("Error creating Google embedding client", "error", err)
		return nil, faults.New(faults.Configuration, err)
	}
	logger.Info("Google embedding client created", "model", modelName)
	return &Client{
		genAi:  c,
		model:  modelName,
		dim:    int32(dimension),
		logger: logger,
	}, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, faults.Errorf(faults.Embedding, "cannot embed empty text")
	}

	result, err := c.doCall(ctx, genai.Text(text))
	if err != nil {
		return nil, classify(err)
	}
	if len(result.Embeddings) == 0 {
		return nil, faults.Errorf(faults.Embedding, "provider returned no embedding")
	}
	return result.Embeddings[0].Values, nil
}

// EmbedBatch submits all texts in one request; the response preserves input
// order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, faults.Errorf(faults.Embedding, "cannot embed empty text")
		}
	}

	result, err := c.doCall(ctx, getContent(texts))
	if err != nil {
		return nil, classify(err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, faults.Errorf(faults.Embedding,
			"provider returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, r := range result.Embeddings {
		vectors[i] = r.Values
	}
	return vectors, nil
}

func (c *Client) Throttled() bool {
	return true
}

func (c *Client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dim,
		TaskType:             "RETRIEVAL_DOCUMENT",
	})
}

func getContent(texts []string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: t}},
		})
	}
	return contents
}

func classify(err error) error {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted:
			return faults.New(faults.RateLimit, err)
		case codes.DeadlineExceeded:
			return faults.New(faults.Timeout, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.New(faults.Timeout, err)
	}
	return faults.New(faults.Embedding, err)
}
