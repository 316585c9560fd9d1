package dto

import (
	"time"
)

// CreateCampaignRequest represents the request to create a new campaign. The
// business id comes from the request context, not the body.
type CreateCampaignRequest struct {
	BusinessID     uint              `json:"-"`
	Name           string            `json:"name" validate:"required,min=1,max=255"`
	TemplateUUID   string            `json:"template_uuid" validate:"required,uuid4"`
	ScheduleType   string            `json:"schedule_type" validate:"required,oneof=immediate scheduled recurring"`
	ScheduledAt    *time.Time        `json:"scheduled_at,omitempty"`
	CronExpression *string           `json:"cron_expression,omitempty"`
	TargetScores   []string          `json:"target_scores" validate:"required,min=1,dive,oneof=hot warm cold"`
	Variables      map[string]string `json:"variables,omitempty"`
}

// SkippedLeadDTO explains why a lead was excluded from a campaign
type SkippedLeadDTO struct {
	LeadUUID string `json:"lead_uuid"`
	Reason   string `json:"reason"`
}

// CreateCampaignResponse reports the prepared audience of a new campaign
type CreateCampaignResponse struct {
	Message         string           `json:"message"`
	ID              uint             `json:"id"`
	UUID            string           `json:"uuid"`
	Status          string           `json:"status"`
	CreatedAt       string           `json:"created_at"`
	ValidRecipients int              `json:"valid_recipients"`
	SkippedLeads    int              `json:"skipped_leads"`
	SkippedDetails  []SkippedLeadDTO `json:"skipped_details,omitempty"`
}

// CampaignDTO is the API projection of a campaign
type CampaignDTO struct {
	ID              uint       `json:"id"`
	UUID            string     `json:"uuid"`
	Name            string     `json:"name"`
	ScheduleType    string     `json:"schedule_type"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	CronExpression  *string    `json:"cron_expression,omitempty"`
	TargetScores    []string   `json:"target_scores,omitempty"`
	Status          string     `json:"status"`
	TotalRecipients int        `json:"total_recipients"`
	SentCount       int        `json:"sent_count"`
	FailedCount     int        `json:"failed_count"`
	CreatedAt       string     `json:"created_at"`
}

// ListCampaignsRequest represents a paginated campaign listing
type ListCampaignsRequest struct {
	BusinessID uint `json:"-"`
	Page       int  `json:"page" validate:"omitempty,min=1"`
	PageSize   int  `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// PaginationDTO carries paging metadata
type PaginationDTO struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// ListCampaignsResponse represents a page of campaigns
type ListCampaignsResponse struct {
	Message    string        `json:"message"`
	Items      []CampaignDTO `json:"items"`
	Pagination PaginationDTO `json:"pagination"`
}

// GetCampaignRequest fetches a single campaign
type GetCampaignRequest struct {
	BusinessID uint   `json:"-"`
	UUID       string `json:"-" validate:"required,uuid4"`
}

// GetCampaignResponse wraps a single campaign
type GetCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// ExecuteCampaignRequest triggers a manual drain of a campaign
type ExecuteCampaignRequest struct {
	BusinessID uint   `json:"-"`
	UUID       string `json:"-" validate:"required,uuid4"`
}

// ExecuteCampaignResponse acknowledges a manual execution
type ExecuteCampaignResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Status  string `json:"status"`
}

// CancelCampaignRequest cancels a campaign
type CancelCampaignRequest struct {
	BusinessID uint   `json:"-"`
	UUID       string `json:"-" validate:"required,uuid4"`
}

// CancelCampaignResponse acknowledges a cancellation
type CancelCampaignResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Status  string `json:"status"`
}

// CampaignLogDTO is the API projection of a recipient delivery record
type CampaignLogDTO struct {
	ID             uint       `json:"id"`
	Recipient      string     `json:"recipient"`
	MessageContent string     `json:"message_content"`
	MessageID      *string    `json:"message_id,omitempty"`
	Status         string     `json:"status"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      string     `json:"created_at"`
}

// ListCampaignLogsRequest represents a paginated log listing for one campaign
type ListCampaignLogsRequest struct {
	BusinessID uint   `json:"-"`
	UUID       string `json:"-" validate:"required,uuid4"`
	Page       int    `json:"page" validate:"omitempty,min=1"`
	PageSize   int    `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListCampaignLogsResponse represents a page of campaign logs
type ListCampaignLogsResponse struct {
	Message    string           `json:"message"`
	Items      []CampaignLogDTO `json:"items"`
	Pagination PaginationDTO    `json:"pagination"`
}
