package dto

// WebhookAckResponse is the body returned to the provider after a webhook is
// accepted. Providers retry on anything but 2xx, so handled drops still ack.
type WebhookAckResponse struct {
	Status string `json:"status"`
}
