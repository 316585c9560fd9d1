package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	businessflow "github.com/chatspire/susanoo/business_flow"
	"github.com/chatspire/susanoo/models"
	fakes "github.com/chatspire/susanoo/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookTestEnv struct {
	app      *fiber.App
	messages *fakes.FakeMessageRepository
}

func newWebhookTestEnv(t *testing.T, strictMode bool, withMapping bool) *webhookTestEnv {
	t.Helper()

	leads := fakes.NewFakeLeadRepository()
	mappings := fakes.NewFakeBusinessSocialMediaRepository()
	chats := fakes.NewFakeChatRepository()
	messages := fakes.NewFakeMessageRepository()

	if withMapping {
		require.NoError(t, mappings.Save(context.Background(), &models.BusinessSocialMedia{
			BusinessID: 7,
			Platform:   models.SocialPlatformWhatsApp,
			PageID:     "+15559876543",
			IsActive:   true,
		}))
	}

	flow := businessflow.NewWebhookFlow(leads, mappings, chats, messages, fakes.SequentialTxRunner{}, nil, nil, strictMode, nil)
	handler := NewWebhookHandler(flow)

	app := fiber.New()
	app.Post("/webhooks/whatsapp", handler.ReceiveWhatsApp)

	return &webhookTestEnv{app: app, messages: messages}
}

func postWebhook(t *testing.T, app *fiber.App, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func whatsappForm(sid string) url.Values {
	form := url.Values{}
	form.Set("MessageSid", sid)
	form.Set("From", "whatsapp:+15551234567")
	form.Set("To", "whatsapp:+15559876543")
	form.Set("Body", "hello")
	form.Set("ProfileName", "Alice")
	return form
}

func TestReceiveWhatsAppAcksIngestedMessage(t *testing.T) {
	env := newWebhookTestEnv(t, false, true)

	resp := postWebhook(t, env.app, whatsappForm("SM1"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var ack map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.Equal(t, "ok", ack["status"])

	stored, err := env.messages.ByProviderMessageID(context.Background(), "SM1")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestReceiveWhatsAppAcksDuplicateDelivery(t *testing.T) {
	env := newWebhookTestEnv(t, false, true)

	first := postWebhook(t, env.app, whatsappForm("SM7"))
	first.Body.Close()
	second := postWebhook(t, env.app, whatsappForm("SM7"))
	defer second.Body.Close()

	assert.Equal(t, http.StatusOK, second.StatusCode)
	count, err := env.messages.CountByChat(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReceiveWhatsAppAcksUnattributableInLenientMode(t *testing.T) {
	env := newWebhookTestEnv(t, false, false)

	resp := postWebhook(t, env.app, whatsappForm("SM1"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReceiveWhatsAppRejectsMalformedInStrictMode(t *testing.T) {
	env := newWebhookTestEnv(t, true, true)

	form := url.Values{}
	form.Set("Body", "no identifiers")

	resp := postWebhook(t, env.app, form)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, businessflow.CodeValidationError, body.Error.Code)
}

func TestReceiveWhatsAppRejectsUnattributableInStrictMode(t *testing.T) {
	env := newWebhookTestEnv(t, true, false)

	resp := postWebhook(t, env.app, whatsappForm("SM1"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, businessflow.CodeNotFoundError, body.Error.Code)
}

func TestReceiveWhatsAppAcksMalformedInLenientMode(t *testing.T) {
	env := newWebhookTestEnv(t, false, true)

	form := url.Values{}
	form.Set("Body", "no identifiers")

	resp := postWebhook(t, env.app, form)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
