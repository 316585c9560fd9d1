// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/chatspire/susanoo/app/dto"
	businessflow "github.com/chatspire/susanoo/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// BusinessIDHeader identifies the tenant on campaign API requests.
const BusinessIDHeader = "X-Business-ID"

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ExecuteCampaign(c fiber.Ctx) error
	CancelCampaign(c fiber.Ctx) error
	ListCampaignLogs(c fiber.Ctx) error
	ExportCampaignLogs(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

// CreateCampaign handles the campaign creation process. The audience is fixed
// and every message rendered at this point; execution only drains what was
// prepared here.
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	businessID, err := h.businessID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Business ID is missing or invalid", businessflow.CodeAuthenticationError, nil)
	}

	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", businessflow.CodeValidationError, err.Error())
	}
	req.BusinessID = businessID

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, validationErrorMessages(err))
	}

	result, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c), &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Campaign creation failed")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// ListCampaigns returns a page of the tenant's campaigns
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	businessID, err := h.businessID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Business ID is missing or invalid", businessflow.CodeAuthenticationError, nil)
	}

	req := dto.ListCampaignsRequest{
		BusinessID: businessID,
		Page:       fiber.Query(c, "page", 0),
		PageSize:   fiber.Query(c, "page_size", 0),
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, validationErrorMessages(err))
	}

	result, err := h.campaignFlow.ListCampaigns(h.createRequestContext(c), &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Campaign listing failed")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// GetCampaign returns a single campaign by UUID
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	businessID, err := h.businessID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Business ID is missing or invalid", businessflow.CodeAuthenticationError, nil)
	}

	req := dto.GetCampaignRequest{
		BusinessID: businessID,
		UUID:       c.Params("uuid"),
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, validationErrorMessages(err))
	}

	result, err := h.campaignFlow.GetCampaign(h.createRequestContext(c), &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Campaign retrieval failed")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ExecuteCampaign triggers a manual drain of a campaign's pending recipients
func (h *CampaignHandler) ExecuteCampaign(c fiber.Ctx) error {
	businessID, err := h.businessID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Business ID is missing or invalid", businessflow.CodeAuthenticationError, nil)
	}

	req := dto.ExecuteCampaignRequest{
		BusinessID: businessID,
		UUID:       c.Params("uuid"),
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, validationErrorMessages(err))
	}

	result, err := h.campaignFlow.ExecuteCampaign(h.createRequestContext(c), &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Campaign execution failed")
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Campaign execution started", result)
}

// CancelCampaign stops a campaign and its recurring timer
func (h *CampaignHandler) CancelCampaign(c fiber.Ctx) error {
	businessID, err := h.businessID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Business ID is missing or invalid", businessflow.CodeAuthenticationError, nil)
	}

	req := dto.CancelCampaignRequest{
		BusinessID: businessID,
		UUID:       c.Params("uuid"),
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, validationErrorMessages(err))
	}

	result, err := h.campaignFlow.CancelCampaign(h.createRequestContext(c), &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Campaign cancellation failed")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign cancelled successfully", result)
}

// ListCampaignLogs returns a page of per-recipient delivery records
func (h *CampaignHandler) ListCampaignLogs(c fiber.Ctx) error {
	businessID, err := h.businessID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Business ID is missing or invalid", businessflow.CodeAuthenticationError, nil)
	}

	req := dto.ListCampaignLogsRequest{
		BusinessID: businessID,
		UUID:       c.Params("uuid"),
		Page:       fiber.Query(c, "page", 0),
		PageSize:   fiber.Query(c, "page_size", 0),
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, validationErrorMessages(err))
	}

	result, err := h.campaignFlow.ListCampaignLogs(h.createRequestContext(c), &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Campaign log listing failed")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign logs retrieved successfully", result)
}

// ExportCampaignLogs streams the campaign's delivery records as an xlsx file
func (h *CampaignHandler) ExportCampaignLogs(c fiber.Ctx) error {
	businessID, err := h.businessID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Business ID is missing or invalid", businessflow.CodeAuthenticationError, nil)
	}

	req := dto.ListCampaignLogsRequest{
		BusinessID: businessID,
		UUID:       c.Params("uuid"),
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", businessflow.CodeValidationError, validationErrorMessages(err))
	}

	content, filename, err := h.campaignFlow.ExportCampaignLogs(h.createRequestContext(c), &req)
	if err != nil {
		return h.businessErrorResponse(c, err, "Campaign log export failed")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(content)
}

// businessID reads and parses the tenant header
func (h *CampaignHandler) businessID(c fiber.Ctx) (uint, error) {
	raw := c.Get(BusinessIDHeader)
	if raw == "" {
		return 0, businessflow.ErrBusinessContextRequired
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || parsed == 0 {
		return 0, businessflow.ErrBusinessContextRequired
	}
	return uint(parsed), nil
}

// businessErrorResponse maps business flow failures to HTTP status codes
func (h *CampaignHandler) businessErrorResponse(c fiber.Ctx, err error, fallback string) error {
	var bizErr *businessflow.BusinessError
	if errors.As(err, &bizErr) {
		switch bizErr.Code {
		case businessflow.CodeValidationError:
			return h.ErrorResponse(c, fiber.StatusBadRequest, bizErr.Message, bizErr.Code, nil)
		case businessflow.CodeNotFoundError:
			return h.ErrorResponse(c, fiber.StatusNotFound, bizErr.Message, bizErr.Code, nil)
		case businessflow.CodeAuthenticationError:
			return h.ErrorResponse(c, fiber.StatusUnauthorized, bizErr.Message, bizErr.Code, nil)
		}
	}

	log.Println(fallback, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallback, businessflow.CodeInfrastructureError, nil)
}

// createRequestContext creates a context with request-scoped values for observability
func (h *CampaignHandler) createRequestContext(c fiber.Ctx) context.Context {
	ctx := context.WithValue(c.Context(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
	return ctx
}
