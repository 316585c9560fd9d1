// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/chatspire/susanoo/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// LeadRepository defines operations for leads
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByProviderUser(ctx context.Context, businessID uint, provider, providerUserID string) (*models.Lead, error)
	ListByBusinessAndScores(ctx context.Context, businessID uint, scores []models.LeadScore) ([]*models.Lead, error)
	Update(ctx context.Context, lead models.Lead) error
}

// BusinessSocialMediaRepository defines operations for channel mappings
type BusinessSocialMediaRepository interface {
	Repository[models.BusinessSocialMedia, models.BusinessSocialMediaFilter]
	ActiveByPlatformAndPageIDs(ctx context.Context, platform models.SocialPlatform, pageIDs []string) (*models.BusinessSocialMedia, error)
	ActiveByBusinessAndPlatform(ctx context.Context, businessID uint, platform models.SocialPlatform) (*models.BusinessSocialMedia, error)
}

// ChatRepository defines operations for chats
type ChatRepository interface {
	Repository[models.Chat, models.ChatFilter]
	OpenByLeadAndMapping(ctx context.Context, leadID, businessSocialMediaID uint) (*models.Chat, error)
	RecordInbound(ctx context.Context, chatID uint, at time.Time) error
	RecordOutbound(ctx context.Context, chatID uint, at time.Time) error
}

// MessageRepository defines operations for messages
type MessageRepository interface {
	Repository[models.Message, models.MessageFilter]
	ByProviderMessageID(ctx context.Context, providerMessageID string) (*models.Message, error)
	ListByChatSince(ctx context.Context, chatID uint, since time.Time) ([]*models.Message, error)
	CountByChat(ctx context.Context, chatID uint) (int64, error)
}

// MessageTemplateRepository defines operations for message templates
type MessageTemplateRepository interface {
	Repository[models.MessageTemplate, models.MessageTemplateFilter]
	ByUUID(ctx context.Context, uuid string) (*models.MessageTemplate, error)
	IncrementUsage(ctx context.Context, id uint) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ListByBusiness(ctx context.Context, businessID uint, limit, offset int) ([]*models.Campaign, error)
	DueScheduled(ctx context.Context, from, to time.Time) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign models.Campaign) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
	SetTotalRecipients(ctx context.Context, id uint, total int) error
	IncrementCounters(ctx context.Context, id uint, sentDelta, failedDelta int) error
}

// CampaignLogRepository defines operations for per-recipient campaign logs
type CampaignLogRepository interface {
	Repository[models.CampaignLog, models.CampaignLogFilter]
	ListPendingByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignLog, error)
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignLog, error)
	MarkSent(ctx context.Context, id uint, messageID string, at time.Time) error
	MarkFailed(ctx context.Context, id uint, errorMessage string) error
}
