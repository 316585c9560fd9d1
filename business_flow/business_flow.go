// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/chatspire/susanoo/app/dto"
	"github.com/chatspire/susanoo/models"
)

const RequestIDKey = "X-Request-ID"

// SkipReasonNoActiveChat is recorded for audience leads without an open chat.
// Campaign messages ride existing conversations; there is nowhere to deliver
// to a lead that never wrote in.
const SkipReasonNoActiveChat = "No active chat"

// ToCampaignDTO converts a campaign model to its API projection
func ToCampaignDTO(campaign models.Campaign) dto.CampaignDTO {
	return dto.CampaignDTO{
		ID:              campaign.ID,
		UUID:            campaign.UUID.String(),
		Name:            campaign.Name,
		ScheduleType:    string(campaign.ScheduleType),
		ScheduledAt:     campaign.ScheduledAt,
		CronExpression:  campaign.CronExpression,
		TargetScores:    campaign.TargetScores,
		Status:          string(campaign.Status),
		TotalRecipients: campaign.TotalRecipients,
		SentCount:       campaign.SentCount,
		FailedCount:     campaign.FailedCount,
		CreatedAt:       campaign.CreatedAt.Format(time.RFC3339),
	}
}

// ToCampaignLogDTO converts a campaign log model to its API projection
func ToCampaignLogDTO(logRow models.CampaignLog) dto.CampaignLogDTO {
	return dto.CampaignLogDTO{
		ID:             logRow.ID,
		Recipient:      logRow.Recipient,
		MessageContent: logRow.MessageContent,
		MessageID:      logRow.MessageID,
		Status:         string(logRow.Status),
		ErrorMessage:   logRow.ErrorMessage,
		SentAt:         logRow.SentAt,
		CreatedAt:      logRow.CreatedAt.Format(time.RFC3339),
	}
}
