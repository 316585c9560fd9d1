package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatspire/susanoo/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnswerClientDisabledWithoutBaseURL(t *testing.T) {
	assert.Nil(t, NewAnswerClient(nil))
	assert.Nil(t, NewAnswerClient(&config.AnsweringConfig{}))
}

func TestAnswerClientRequestsReply(t *testing.T) {
	var received AnswerRequest
	var gotAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/answer", r.URL.Path)
		gotAPIKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		model := "assistant-v2"
		_ = json.NewEncoder(w).Encode(AnswerResult{Answer: "Sure, we are open until 6pm.", Model: &model})
	}))
	defer server.Close()

	client := NewAnswerClient(&config.AnsweringConfig{
		BaseURL: server.URL,
		APIKey:  "secret",
		Timeout: 5 * time.Second,
	})
	require.NotNil(t, client)

	result, err := client.Answer(context.Background(), AnswerRequest{
		Message:  "What are your hours?",
		Provider: "twilio",
		Channel:  "whatsapp",
		From:     "+15551234567",
		To:       "+15559876543",
		Context:  AnswerContext{ChatID: 3, MessagesInSession: 2, TimeOfDay: "business_hours"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sure, we are open until 6pm.", result.Answer)
	require.NotNil(t, result.Model)
	assert.Equal(t, "assistant-v2", *result.Model)

	assert.Equal(t, "secret", gotAPIKey)
	assert.Equal(t, "What are your hours?", received.Message)
	assert.Equal(t, uint(3), received.Context.ChatID)
}

func TestAnswerClientSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewAnswerClient(&config.AnsweringConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	result, err := client.Answer(context.Background(), AnswerRequest{Message: "hi"})
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
