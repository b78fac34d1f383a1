package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/itdjship/chat-bot-app/internal/faults"
	"github.com/itdjship/chat-bot-app/internal/rag/llm"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

type llmClient struct {
	client      *genai.Client
	modelName   string
	persona     llm.Persona
	temperature float32
	logger      *logger_i.Logger
}

func NewClient(ctx context.Context, modelName string, apikey string, persona llm.Persona, temperature float32) (llm.Provider, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		return nil, faults.New(faults.Configuration, fmt.Errorf("creating Gemini client: %w", err))
	}

	logger := logger_i.NewLogger("llm_gemini")
	logger.Info("Gemini client created", "model", modelName, "persona", persona.Name)
	return &llmClient{
		client:      c,
		modelName:   modelName,
		persona:     persona,
		temperature: temperature,
		logger:      logger,
	}, nil
}

func (c *llmClient) Generate(ctx context.Context, userQuery string, matches []string, messageHistory []string) (string, error) {
	systemInstruction := &genai.Content{
		Parts: []*genai.Part{
			{Text: c.persona.System},
		},
	}

	var prompt strings.Builder
	if len(messageHistory) > 0 {
		prompt.WriteString("Conversation so far, oldest first:\n")
		prompt.WriteString(strings.Join(messageHistory, "\n"))
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("Context:\n")
	prompt.WriteString(strings.Join(matches, "\n"))
	prompt.WriteString(fmt.Sprintf("\n\nUser Question: %s", userQuery))

	temp := c.temperature
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       &temp,
	}

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.modelName,
		genai.Text(prompt.String()),
		contentConfig,
	)
	if err != nil {
		return "", c.classify(err)
	}

	answer := result.Text()
	if answer == "" {
		return c.persona.Fallback, nil
	}
	return answer, nil
}

func (c *llmClient) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return faults.New(faults.Timeout, err)
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return faults.New(faults.RateLimit, err)
	}
	c.logger.Error("Gemini generation failed", "error", err)
	return faults.Errorf(faults.Unknown, "llm generation: %w", err)
}
