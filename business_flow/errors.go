// Package businessflow contains the core business logic and use cases for conversation and campaign workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Webhook ingestion errors
	ErrEmptyPayload       = errors.New("payload is missing required identifiers")
	ErrUnattributableChat = errors.New("no active channel mapping for destination address")

	// Webhook authenticity errors
	ErrAuthTokenMissing   = errors.New("webhook auth token is not configured")
	ErrSignatureMissing   = errors.New("webhook signature header is missing")
	ErrSignatureInvalid   = errors.New("webhook signature does not match")
	ErrSignatureURLBroken = errors.New("webhook callable url cannot be reconstructed")

	// Lookup errors
	ErrMappingNotFound  = errors.New("channel mapping not found")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrChatNotFound     = errors.New("chat not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrTemplateNotFound = errors.New("message template not found")

	// Campaign lifecycle errors
	ErrCampaignNotCancellable  = errors.New("completed campaigns cannot be cancelled")
	ErrCampaignNameRequired    = errors.New("campaign name is required")
	ErrTemplateUUIDRequired    = errors.New("template UUID is required")
	ErrTargetScoresRequired    = errors.New("at least one target score is required")
	ErrScheduleTimeNotPresent  = errors.New("schedule time is not present")
	ErrCronExpressionRequired  = errors.New("cron expression is required for recurring campaigns")
	ErrInvalidScheduleType     = errors.New("invalid schedule type")
	ErrCampaignAlreadyDrained  = errors.New("campaign has no pending recipients")
	ErrCampaignUUIDRequired    = errors.New("campaign UUID is required")
	ErrCampaignAccessDenied    = errors.New("campaign access denied")
	ErrBusinessContextRequired = errors.New("business context is required")

	// Delivery errors
	ErrTransientDelivery = errors.New("message delivery failed")
	ErrFatalJob          = errors.New("campaign job cannot proceed")

	// Infrastructure errors
	ErrInfrastructure    = errors.New("infrastructure failure")
	ErrCacheNotAvailable = errors.New("cache not available")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// Error codes surfaced to API clients
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeAuthenticationError = "AUTHENTICATION_FAILED"
	CodeNotFoundError       = "NOT_FOUND"
	CodeTransientDelivery   = "TRANSIENT_DELIVERY_ERROR"
	CodeFatalJobError       = "FATAL_JOB_ERROR"
	CodeInfrastructureError = "INFRASTRUCTURE_ERROR"
)

// NewValidationError wraps a sentinel as a client-visible validation failure
func NewValidationError(message string, err error) *BusinessError {
	return NewBusinessError(CodeValidationError, message, err)
}

// NewAuthenticationError wraps a sentinel as a client-visible authentication failure
func NewAuthenticationError(message string, err error) *BusinessError {
	return NewBusinessError(CodeAuthenticationError, message, err)
}

// NewNotFoundError wraps a sentinel as a client-visible missing-resource failure
func NewNotFoundError(message string, err error) *BusinessError {
	return NewBusinessError(CodeNotFoundError, message, err)
}

// NewTransientDeliveryError marks a single recipient delivery failure that is
// recorded but never aborts a drain
func NewTransientDeliveryError(message string, err error) *BusinessError {
	return NewBusinessError(CodeTransientDelivery, message, errors.Join(ErrTransientDelivery, err))
}

// NewFatalJobError marks a campaign-level precondition failure that fails the
// whole job
func NewFatalJobError(message string, err error) *BusinessError {
	return NewBusinessError(CodeFatalJobError, message, errors.Join(ErrFatalJob, err))
}

// NewInfrastructureError marks a store or transaction failure
func NewInfrastructureError(message string, err error) *BusinessError {
	return NewBusinessError(CodeInfrastructureError, message, errors.Join(ErrInfrastructure, err))
}

func IsEmptyPayload(err error) bool {
	return errors.Is(err, ErrEmptyPayload)
}

func IsUnattributableChat(err error) bool {
	return errors.Is(err, ErrUnattributableChat)
}

func IsSignatureMissing(err error) bool {
	return errors.Is(err, ErrSignatureMissing)
}

func IsSignatureInvalid(err error) bool {
	return errors.Is(err, ErrSignatureInvalid)
}

func IsAuthTokenMissing(err error) bool {
	return errors.Is(err, ErrAuthTokenMissing)
}

func IsMappingNotFound(err error) bool {
	return errors.Is(err, ErrMappingNotFound)
}

func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

func IsChatNotFound(err error) bool {
	return errors.Is(err, ErrChatNotFound)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsCampaignNotCancellable(err error) bool {
	return errors.Is(err, ErrCampaignNotCancellable)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsTransientDelivery(err error) bool {
	return errors.Is(err, ErrTransientDelivery)
}

func IsFatalJob(err error) bool {
	return errors.Is(err, ErrFatalJob)
}

func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}
