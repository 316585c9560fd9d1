package businessflow

import (
	"strconv"
	"strings"
	"time"

	"github.com/chatspire/susanoo/utils"
)

// ProviderTwilio is the tag recorded on conversations ingested from Twilio
const ProviderTwilio = "twilio"

// ChannelWhatsApp is the messaging channel this webhook serves
const ChannelWhatsApp = "whatsapp"

// NormalizedSender identifies the person who sent an inbound message
type NormalizedSender struct {
	Phone string `json:"phone"`
	WaID  string `json:"wa_id,omitempty"`
	Name  string `json:"name,omitempty"`
}

// MediaItem is a single attachment on an inbound message
type MediaItem struct {
	ContentType string `json:"content_type,omitempty"`
	URL         string `json:"url"`
}

// NormalizedInboundMessage is the provider-independent form of an inbound
// webhook payload. The raw form is kept verbatim for auditing.
type NormalizedInboundMessage struct {
	Provider   string            `json:"provider"`
	Channel    string            `json:"channel"`
	MessageSid string            `json:"message_sid"`
	AccountSid string            `json:"account_sid,omitempty"`
	From       NormalizedSender  `json:"from"`
	To         string            `json:"to"`
	Body       string            `json:"body,omitempty"`
	NumMedia   int               `json:"num_media"`
	Media      []MediaItem       `json:"media,omitempty"`
	ReceivedAt time.Time         `json:"received_at"`
	Raw        map[string]string `json:"raw,omitempty"`
}

// HasMedia checks whether the message carries any attachment
func (m *NormalizedInboundMessage) HasMedia() bool {
	return len(m.Media) > 0
}

// StripWhatsAppPrefix removes the provider "whatsapp:" address prefix,
// case-insensitively. Addresses without the prefix pass through unchanged.
func StripWhatsAppPrefix(addr string) string {
	const prefix = "whatsapp:"
	if len(addr) >= len(prefix) && strings.EqualFold(addr[:len(prefix)], prefix) {
		return addr[len(prefix):]
	}
	return addr
}

// NormalizeWhatsAppPayload converts a Twilio form payload into the
// provider-independent shape. Payloads missing the message sid or the
// sender cannot be attributed to a conversation and normalize to nil.
func NormalizeWhatsAppPayload(form map[string]string) *NormalizedInboundMessage {
	messageSid := form["MessageSid"]
	from := form["From"]
	if messageSid == "" || from == "" {
		return nil
	}

	// Providers occasionally send garbage here; treat anything non-numeric as zero.
	numMedia := 0
	if raw := form["NumMedia"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			numMedia = n
		}
	}

	var media []MediaItem
	for i := 0; i < numMedia; i++ {
		url := form["MediaUrl"+strconv.Itoa(i)]
		if url == "" {
			continue
		}
		media = append(media, MediaItem{
			ContentType: form["MediaContentType"+strconv.Itoa(i)],
			URL:         url,
		})
	}

	return &NormalizedInboundMessage{
		Provider:   ResolveProviderTag(form),
		Channel:    ChannelWhatsApp,
		MessageSid: messageSid,
		AccountSid: form["AccountSid"],
		From: NormalizedSender{
			Phone: StripWhatsAppPrefix(from),
			WaID:  form["WaId"],
			Name:  form["ProfileName"],
		},
		To:         StripWhatsAppPrefix(form["To"]),
		Body:       form["Body"],
		NumMedia:   numMedia,
		Media:      media,
		ReceivedAt: utils.UTCNow(),
		Raw:        form,
	}
}

// ResolveProviderTag infers which provider produced a raw payload. It checks
// the explicit channel metadata first, then falls back to address shape.
func ResolveProviderTag(form map[string]string) string {
	if meta := form["ChannelMetadata"]; meta != "" && strings.Contains(meta, ChannelWhatsApp) {
		return ProviderTwilio
	}
	if from := form["From"]; from != "" && strings.HasPrefix(strings.ToLower(from), "whatsapp:") {
		return ProviderTwilio
	}
	if form["WaId"] != "" {
		return ProviderTwilio
	}
	return "unknown"
}
