// Package services provides external service integrations and technical concerns like message delivery and answering
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chatspire/susanoo/config"
	"github.com/chatspire/susanoo/utils"
)

// OutboundMessage is a single message to deliver to a lead
type OutboundMessage struct {
	From string
	To   string
	Body string
}

// SendReceipt reports a successful delivery handoff
type SendReceipt struct {
	MessageSid string
}

// OutboundSender delivers outbound WhatsApp messages
type OutboundSender interface {
	Send(ctx context.Context, msg OutboundMessage) (*SendReceipt, error)
}

// TwilioSender implements OutboundSender against the Twilio REST API
type TwilioSender struct {
	config *config.TwilioConfig
	client *http.Client
}

// twilioMessageResponse is the subset of the Twilio create-message response we read
type twilioMessageResponse struct {
	Sid          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewTwilioSender creates a new Twilio sender instance
func NewTwilioSender(cfg *config.TwilioConfig) OutboundSender {
	return &TwilioSender{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send delivers one message through the Twilio Messages endpoint
func (s *TwilioSender) Send(ctx context.Context, msg OutboundMessage) (*SendReceipt, error) {
	form := url.Values{}
	form.Set("From", whatsappAddress(msg.From))
	form.Set("To", whatsappAddress(msg.To))
	form.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("message delivery rejected (%d): %s", resp.StatusCode, string(body))
	}

	var result twilioMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode message response: %w", err)
	}
	if result.ErrorCode != nil {
		return nil, fmt.Errorf("message delivery failed (%d): %s", *result.ErrorCode, result.ErrorMessage)
	}

	return &SendReceipt{MessageSid: result.Sid}, nil
}

// whatsappAddress ensures the provider address prefix is present exactly once
func whatsappAddress(addr string) string {
	if strings.HasPrefix(strings.ToLower(addr), "whatsapp:") {
		return addr
	}
	return "whatsapp:" + addr
}

// MockOutboundMessage records one delivery through the mock sender
type MockOutboundMessage struct {
	From   string
	To     string
	Body   string
	SentAt time.Time
}

// MockOutboundSender implements OutboundSender for testing and the "mock"
// provider mode. Deliveries to recipients listed in FailFor return the
// configured error instead.
type MockOutboundSender struct {
	mu           sync.Mutex
	sentMessages []MockOutboundMessage
	FailFor      map[string]error
	counter      int
}

// NewMockOutboundSender creates a new mock sender
func NewMockOutboundSender() *MockOutboundSender {
	return &MockOutboundSender{
		sentMessages: make([]MockOutboundMessage, 0),
		FailFor:      make(map[string]error),
	}
}

// Send records the message and returns a synthetic receipt
func (m *MockOutboundSender) Send(ctx context.Context, msg OutboundMessage) (*SendReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailFor[msg.To]; ok {
		return nil, err
	}

	m.counter++
	m.sentMessages = append(m.sentMessages, MockOutboundMessage{
		From:   msg.From,
		To:     msg.To,
		Body:   msg.Body,
		SentAt: utils.UTCNow(),
	})
	return &SendReceipt{MessageSid: fmt.Sprintf("MM%010d", m.counter)}, nil
}

// GetSentMessages returns all recorded deliveries
func (m *MockOutboundSender) GetSentMessages() []MockOutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockOutboundMessage, len(m.sentMessages))
	copy(out, m.sentMessages)
	return out
}

// ClearSentMessages clears the recorded deliveries
func (m *MockOutboundSender) ClearSentMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentMessages = m.sentMessages[:0]
}
