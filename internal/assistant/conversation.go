package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/internal/auth"
	"github.com/mrhapile/metadeploy/internal/config"
	"github.com/mrhapile/metadeploy/pkg/redact"
	"github.com/mrhapile/metadeploy/pkg/types"
)

// ConversationClient talks to an assistant exposed through a conversation
// API: every Generate call opens a new conversation and asks one question.
type ConversationClient struct {
	endpoint    string
	assistantID string
	creds       auth.Credentials
	httpClient  *http.Client
	logger      *zap.Logger
	redactor    redact.Redactor
}

// NewConversationClient creates a client from assistant settings.
func NewConversationClient(s config.Assistant, opts Options) *ConversationClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationClient{
		endpoint:    strings.TrimRight(s.Endpoint, "/"),
		assistantID: s.AssistantID,
		creds: auth.Credentials{
			TokenURL:     s.TokenURL,
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
		},
		httpClient: httpClient,
		logger:     logger,
		redactor:   redact.New(),
	}
}

type conversationRequest struct {
	InitialAssistantID string `json:"initialAssistantId"`
}

type conversationResponse struct {
	ID string `json:"id"`
}

type askRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
}

type askResponse struct {
	Generated *string `json:"generated"`
}

// Generate implements Assistant.
func (c *ConversationClient) Generate(ctx context.Context, prompt string) (*types.Batch, error) {
	if c.endpoint == "" || c.assistantID == "" {
		return nil, errors.New("assistant endpoint and id are required")
	}

	c.logger.Info("fetching assistant access token")
	tok, err := auth.Exchange(ctx, c.httpClient, c.creds)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	c.logger.Info("creating conversation")
	var conv conversationResponse
	if err := c.post(ctx, tok.AccessToken, "/v1/conversations", conversationRequest{InitialAssistantID: c.assistantID}, &conv, "create conversation"); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		return nil, errors.New("failed to create conversation: empty conversation id")
	}

	c.logger.Info("querying assistant", zap.String("conversation", conv.ID))
	var reply askResponse
	path := "/v1/assistants/" + c.assistantID + "/model"
	if err := c.post(ctx, tok.AccessToken, path, askRequest{Text: prompt, ConversationID: conv.ID}, &reply, "ask assistant"); err != nil {
		return nil, err
	}
	if reply.Generated == nil {
		return nil, ErrNoGenerated
	}

	batch, err := decodeGenerated(*reply.Generated)
	if err != nil {
		return nil, err
	}
	c.logger.Info("assistant replied", zap.Int("entities", len(batch.Metadata)))
	return batch, nil
}

// post sends body as JSON and decodes a 200 reply into out.
func (c *ConversationClient) post(ctx context.Context, token, path string, body, out interface{}, action string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", action, err)
	}
	c.logger.Debug("assistant response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("body", c.redactor.RedactString(string(respBody))))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to %s: %d %s", action, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return nil
}
