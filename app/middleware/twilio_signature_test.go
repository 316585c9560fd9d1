package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/chatspire/susanoo/config"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTwilioSignatureKnownVector(t *testing.T) {
	form := map[string]string{
		"Digits":  "1234",
		"To":      "+18005551212",
		"From":    "+14158675310",
		"Caller":  "+14158675310",
		"CallSid": "CA1234567890ABCDE",
	}

	got := ComputeTwilioSignature("12345", "https://mycompany.com/myapp.php?foo=1&bar=2", form)
	assert.Equal(t, "GvWf1cFY/Q7PnoempGyD5oXAezc=", got)
}

func TestValidateTwilioSignature(t *testing.T) {
	form := map[string]string{"MessageSid": "SM1", "From": "whatsapp:+15551234567"}
	callableURL := "https://hooks.example.com/webhooks/whatsapp"

	signature := ComputeTwilioSignature("token", callableURL, form)
	assert.True(t, ValidateTwilioSignature("token", callableURL, form, signature))
	assert.False(t, ValidateTwilioSignature("token", callableURL, form, signature+"x"))
	assert.False(t, ValidateTwilioSignature("other-token", callableURL, form, signature))

	form["Body"] = "tampered"
	assert.False(t, ValidateTwilioSignature("token", callableURL, form, signature))
}

func signedWebhookApp(cfg *config.WebhookConfig) *fiber.App {
	app := fiber.New()
	app.Post("/webhooks/whatsapp", TwilioSignature(cfg, nil), func(c fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func webhookRequest(signature string) *http.Request {
	form := url.Values{}
	form.Set("MessageSid", "SM1")
	form.Set("From", "whatsapp:+15551234567")
	form.Set("To", "whatsapp:+15559876543")
	form.Set("Body", "hello")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Host = "example.com"
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	return req
}

func TestTwilioSignatureMiddlewareAllowsValidSignature(t *testing.T) {
	cfg := &config.WebhookConfig{EnforceSignature: true, TwilioAuthToken: "token"}
	app := signedWebhookApp(cfg)

	form := map[string]string{
		"MessageSid": "SM1",
		"From":       "whatsapp:+15551234567",
		"To":         "whatsapp:+15559876543",
		"Body":       "hello",
	}
	signature := ComputeTwilioSignature("token", "http://example.com/webhooks/whatsapp", form)

	resp, err := app.Test(webhookRequest(signature))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestTwilioSignatureMiddlewareDeniesMissingSignature(t *testing.T) {
	cfg := &config.WebhookConfig{EnforceSignature: true, TwilioAuthToken: "token"}
	app := signedWebhookApp(cfg)

	resp, err := app.Test(webhookRequest(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTwilioSignatureMiddlewareDeniesBadSignature(t *testing.T) {
	cfg := &config.WebhookConfig{EnforceSignature: true, TwilioAuthToken: "token"}
	app := signedWebhookApp(cfg)

	resp, err := app.Test(webhookRequest("bm90IGEgcmVhbCBzaWduYXR1cmU="))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTwilioSignatureMiddlewareDeniesWithoutToken(t *testing.T) {
	cfg := &config.WebhookConfig{EnforceSignature: true}
	app := signedWebhookApp(cfg)

	resp, err := app.Test(webhookRequest(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTwilioSignatureMiddlewareLenientWhenDisabled(t *testing.T) {
	cfg := &config.WebhookConfig{EnforceSignature: false}
	app := signedWebhookApp(cfg)

	resp, err := app.Test(webhookRequest(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
