package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWhatsAppPayload(t *testing.T) {
	form := map[string]string{
		"MessageSid":  "SM123",
		"AccountSid":  "AC456",
		"From":        "whatsapp:+15551234567",
		"To":          "whatsapp:+15559876543",
		"Body":        "hello there",
		"ProfileName": "Alice",
		"WaId":        "15551234567",
		"NumMedia":    "0",
	}

	normalized := NormalizeWhatsAppPayload(form)
	require.NotNil(t, normalized)

	assert.Equal(t, ProviderTwilio, normalized.Provider)
	assert.Equal(t, ChannelWhatsApp, normalized.Channel)
	assert.Equal(t, "SM123", normalized.MessageSid)
	assert.Equal(t, "AC456", normalized.AccountSid)
	assert.Equal(t, "+15551234567", normalized.From.Phone)
	assert.Equal(t, "Alice", normalized.From.Name)
	assert.Equal(t, "15551234567", normalized.From.WaID)
	assert.Equal(t, "+15559876543", normalized.To)
	assert.Equal(t, "hello there", normalized.Body)
	assert.False(t, normalized.HasMedia())
	assert.False(t, normalized.ReceivedAt.IsZero())
	assert.Equal(t, form, normalized.Raw)
}

func TestNormalizeWhatsAppPayloadMissingIdentity(t *testing.T) {
	assert.Nil(t, NormalizeWhatsAppPayload(map[string]string{
		"From": "whatsapp:+15551234567",
		"Body": "no sid",
	}))
	assert.Nil(t, NormalizeWhatsAppPayload(map[string]string{
		"MessageSid": "SM123",
		"Body":       "no sender",
	}))
	assert.Nil(t, NormalizeWhatsAppPayload(map[string]string{}))
}

func TestNormalizeWhatsAppPayloadMedia(t *testing.T) {
	form := map[string]string{
		"MessageSid":        "SM999",
		"From":              "whatsapp:+15551234567",
		"NumMedia":          "3",
		"MediaUrl0":         "https://api.twilio.com/media/0",
		"MediaContentType0": "image/jpeg",
		// MediaUrl1 intentionally absent
		"MediaUrl2":         "https://api.twilio.com/media/2",
		"MediaContentType2": "application/pdf",
	}

	normalized := NormalizeWhatsAppPayload(form)
	require.NotNil(t, normalized)
	assert.Equal(t, 3, normalized.NumMedia)
	require.Len(t, normalized.Media, 2)
	assert.Equal(t, "image/jpeg", normalized.Media[0].ContentType)
	assert.Equal(t, "https://api.twilio.com/media/2", normalized.Media[1].URL)
}

func TestNormalizeWhatsAppPayloadGarbageNumMedia(t *testing.T) {
	form := map[string]string{
		"MessageSid": "SM1",
		"From":       "whatsapp:+15551234567",
		"NumMedia":   "banana",
	}

	normalized := NormalizeWhatsAppPayload(form)
	require.NotNil(t, normalized)
	assert.Equal(t, 0, normalized.NumMedia)
	assert.False(t, normalized.HasMedia())
}

func TestStripWhatsAppPrefix(t *testing.T) {
	assert.Equal(t, "+15551234567", StripWhatsAppPrefix("whatsapp:+15551234567"))
	assert.Equal(t, "+15551234567", StripWhatsAppPrefix("WhatsApp:+15551234567"))
	assert.Equal(t, "+15551234567", StripWhatsAppPrefix("+15551234567"))
	assert.Equal(t, "", StripWhatsAppPrefix(""))
	assert.Equal(t, "", StripWhatsAppPrefix("whatsapp:"))
}

func TestNormalizeWhatsAppPayloadProviderFallback(t *testing.T) {
	normalized := NormalizeWhatsAppPayload(map[string]string{
		"MessageSid": "SM1",
		"From":       "+15551234567",
	})
	require.NotNil(t, normalized)
	assert.Equal(t, "unknown", normalized.Provider)
}

func TestResolveProviderTag(t *testing.T) {
	assert.Equal(t, ProviderTwilio, ResolveProviderTag(map[string]string{"ChannelMetadata": `{"type":"whatsapp"}`}))
	assert.Equal(t, ProviderTwilio, ResolveProviderTag(map[string]string{"From": "whatsapp:+1555"}))
	assert.Equal(t, ProviderTwilio, ResolveProviderTag(map[string]string{"WaId": "1555"}))
	assert.Equal(t, "unknown", ResolveProviderTag(map[string]string{"From": "+1555"}))
}
