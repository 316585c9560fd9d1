package repository

import (
	"context"
	"errors"
	"time"

	"github.com/chatspire/susanoo/models"
	"gorm.io/gorm"
)

// MessageRepositoryImpl implements the MessageRepository interface
type MessageRepositoryImpl struct {
	*BaseRepository[models.Message, models.MessageFilter]
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &MessageRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Message, models.MessageFilter](db),
	}
}

// ByProviderMessageID retrieves the message carrying the given provider message id
func (r *MessageRepositoryImpl) ByProviderMessageID(ctx context.Context, providerMessageID string) (*models.Message, error) {
	db := r.getDB(ctx)

	var msg models.Message
	err := db.Where("provider_message_id = ?", providerMessageID).
		Last(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &msg, nil
}

// ListByChatSince retrieves the messages of a chat created at or after the
// given time, oldest first
func (r *MessageRepositoryImpl) ListByChatSince(ctx context.Context, chatID uint, since time.Time) ([]*models.Message, error) {
	filter := models.MessageFilter{ChatID: &chatID, CreatedAfter: &since}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

// CountByChat counts the messages in a chat
func (r *MessageRepositoryImpl) CountByChat(ctx context.Context, chatID uint) (int64, error) {
	filter := models.MessageFilter{ChatID: &chatID}
	return r.Count(ctx, filter)
}

func (r *MessageRepositoryImpl) applyFilter(db *gorm.DB, f models.MessageFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.ChatID != nil {
		db = db.Where("chat_id = ?", *f.ChatID)
	}
	if f.Direction != nil {
		db = db.Where("direction = ?", *f.Direction)
	}
	if f.MsgType != nil {
		db = db.Where("msg_type = ?", *f.MsgType)
	}
	if f.ProviderMessageID != nil {
		db = db.Where("provider_message_id = ?", *f.ProviderMessageID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.AIReply != nil {
		db = db.Where("ai_reply = ?", *f.AIReply)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *MessageRepositoryImpl) ByFilter(ctx context.Context, filter models.MessageFilter, orderBy string, limit, offset int) ([]*models.Message, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Message{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MessageRepositoryImpl) Count(ctx context.Context, filter models.MessageFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Message{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *MessageRepositoryImpl) Exists(ctx context.Context, filter models.MessageFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
