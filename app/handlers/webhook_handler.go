// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/chatspire/susanoo/app/dto"
	"github.com/chatspire/susanoo/app/middleware"
	businessflow "github.com/chatspire/susanoo/business_flow"
	"github.com/gofiber/fiber/v3"
)

// WebhookHandlerInterface defines the contract for webhook handlers
type WebhookHandlerInterface interface {
	ReceiveWhatsApp(c fiber.Ctx) error
}

// WebhookHandler handles inbound provider webhook deliveries
type WebhookHandler struct {
	webhookFlow businessflow.WebhookFlow
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookFlow businessflow.WebhookFlow) *WebhookHandler {
	return &WebhookHandler{webhookFlow: webhookFlow}
}

// ReceiveWhatsApp ingests a Twilio WhatsApp delivery. Providers retry on
// non-2xx responses, so anything short of a malformed payload in strict mode
// is acknowledged with 200 regardless of what happened downstream.
func (h *WebhookHandler) ReceiveWhatsApp(c fiber.Ctx) error {
	form := middleware.FormParams(c)

	ctx := context.WithValue(c.Context(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
	result, err := h.webhookFlow.ProcessIncoming(ctx, form)
	if err != nil {
		var bizErr *businessflow.BusinessError
		if errors.As(err, &bizErr) {
			switch bizErr.Code {
			case businessflow.CodeValidationError:
				middleware.RecordWebhookOutcome("rejected")
				return c.Status(fiber.StatusBadRequest).JSON(dto.APIResponse{
					Success: false,
					Message: bizErr.Message,
					Error:   dto.ErrorDetail{Code: bizErr.Code},
				})
			case businessflow.CodeNotFoundError:
				middleware.RecordWebhookOutcome("rejected")
				return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
					Success: false,
					Message: bizErr.Message,
					Error:   dto.ErrorDetail{Code: bizErr.Code},
				})
			}
		}

		log.Println("Webhook ingestion failed", err)
		middleware.RecordWebhookOutcome("rejected")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Webhook ingestion failed",
			Error:   dto.ErrorDetail{Code: businessflow.CodeInfrastructureError},
		})
	}

	switch {
	case result == nil:
		middleware.RecordWebhookOutcome("dropped")
	case result.Duplicate:
		middleware.RecordWebhookOutcome("duplicate")
	default:
		middleware.RecordWebhookOutcome("ingested")
	}

	return c.Status(fiber.StatusOK).JSON(dto.WebhookAckResponse{Status: "ok"})
}
