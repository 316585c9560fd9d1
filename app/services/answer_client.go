package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chatspire/susanoo/config"
)

// AnswerContext carries conversational session state to the answering service
type AnswerContext struct {
	ChatID                      uint   `json:"chat_id"`
	MessagesInSession           int    `json:"messages_in_session"`
	ConversationDurationMinutes int    `json:"conversation_duration_minutes"`
	UserResponseTimeAvgSeconds  int    `json:"user_response_time_avg_seconds"`
	UserInitiatedConversation   bool   `json:"user_initiated_conversation"`
	TimeOfDay                   string `json:"time_of_day"`
}

// AnswerRequest is the payload sent to the answering service
type AnswerRequest struct {
	Message  string        `json:"message"`
	Provider string        `json:"provider"`
	Channel  string        `json:"channel"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Context  AnswerContext `json:"context"`
}

// AnswerResult is a generated reply. Model and confidence are optional
// attribution fields echoed into the persisted message.
type AnswerResult struct {
	Answer     string   `json:"answer"`
	Model      *string  `json:"model,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// AnswerClient calls the remote answering service. The service is an opaque
// collaborator; the implementation only sees its HTTP contract.
type AnswerClient interface {
	Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error)
}

// AnswerClientImpl implements AnswerClient over HTTP
type AnswerClientImpl struct {
	config *config.AnsweringConfig
	client *http.Client
}

// NewAnswerClient creates an answering client, or nil when no base URL is
// configured so callers can treat auto replies as disabled.
func NewAnswerClient(cfg *config.AnsweringConfig) AnswerClient {
	if cfg == nil || cfg.BaseURL == "" {
		return nil
	}
	return &AnswerClientImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Answer requests a reply for one inbound message
func (c *AnswerClientImpl) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/answer", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.config.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call answering service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("answering service returned status %d", resp.StatusCode)
	}

	var result AnswerResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode answer response: %w", err)
	}
	return &result, nil
}
