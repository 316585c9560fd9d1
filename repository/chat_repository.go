package repository

import (
	"context"
	"errors"
	"time"

	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/utils"
	"gorm.io/gorm"
)

// ChatRepositoryImpl implements the ChatRepository interface
type ChatRepositoryImpl struct {
	*BaseRepository[models.Chat, models.ChatFilter]
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &ChatRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Chat, models.ChatFilter](db),
	}
}

// OpenByLeadAndMapping retrieves the open chat between a lead and a channel
// mapping, if one exists
func (r *ChatRepositoryImpl) OpenByLeadAndMapping(ctx context.Context, leadID, businessSocialMediaID uint) (*models.Chat, error) {
	db := r.getDB(ctx)

	var chat models.Chat
	err := db.Where("lead_id = ? AND business_social_media_id = ? AND status = ?",
		leadID, businessSocialMediaID, models.ChatStatusOpen).
		Last(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &chat, nil
}

// RecordInbound bumps the message counter and the inbound watermark of a chat
func (r *ChatRepositoryImpl) RecordInbound(ctx context.Context, chatID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]any{
			"message_count":   gorm.Expr("message_count + 1"),
			"last_inbound_at": at,
			"updated_at":      utils.UTCNow(),
		}).Error
}

// RecordOutbound bumps the message counter and the outbound watermark of a chat
func (r *ChatRepositoryImpl) RecordOutbound(ctx context.Context, chatID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]any{
			"message_count":    gorm.Expr("message_count + 1"),
			"last_outbound_at": at,
			"updated_at":       utils.UTCNow(),
		}).Error
}

func (r *ChatRepositoryImpl) applyFilter(db *gorm.DB, f models.ChatFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.LeadID != nil {
		db = db.Where("lead_id = ?", *f.LeadID)
	}
	if f.BusinessSocialMediaID != nil {
		db = db.Where("business_social_media_id = ?", *f.BusinessSocialMediaID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *ChatRepositoryImpl) ByFilter(ctx context.Context, filter models.ChatFilter, orderBy string, limit, offset int) ([]*models.Chat, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Chat{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Chat
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ChatRepositoryImpl) Count(ctx context.Context, filter models.ChatFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Chat{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChatRepositoryImpl) Exists(ctx context.Context, filter models.ChatFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
