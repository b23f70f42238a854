package assistant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mrhapile/metadeploy/pkg/types"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient generates entity batches with Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiClient creates a Gemini-backed assistant.
func NewGeminiClient(ctx context.Context, apiKey, model string, opts Options) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

// Generate implements Assistant.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (*types.Batch, error) {
	g.logger.Info("querying gemini", zap.String("model", g.model))
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ask assistant: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrNoGenerated
	}
	batch, err := decodeGenerated(text)
	if err != nil {
		return nil, err
	}
	g.logger.Info("assistant replied", zap.Int("entities", len(batch.Metadata)))
	return batch, nil
}
