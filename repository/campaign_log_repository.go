package repository

import (
	"context"
	"time"

	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/utils"
	"gorm.io/gorm"
)

// CampaignLogRepositoryImpl implements the CampaignLogRepository interface
type CampaignLogRepositoryImpl struct {
	*BaseRepository[models.CampaignLog, models.CampaignLogFilter]
}

// NewCampaignLogRepository creates a new campaign log repository
func NewCampaignLogRepository(db *gorm.DB) CampaignLogRepository {
	return &CampaignLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignLog, models.CampaignLogFilter](db),
	}
}

// ListPendingByCampaign retrieves the undrained logs of a campaign, oldest first
func (r *CampaignLogRepositoryImpl) ListPendingByCampaign(ctx context.Context, campaignID uint) ([]*models.CampaignLog, error) {
	status := models.CampaignLogStatusPending
	filter := models.CampaignLogFilter{CampaignID: &campaignID, Status: &status}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListByCampaign retrieves the logs of a campaign with pagination
func (r *CampaignLogRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.CampaignLog, error) {
	filter := models.CampaignLogFilter{CampaignID: &campaignID}
	return r.ByFilter(ctx, filter, "id ASC", limit, offset)
}

// MarkSent flips a log to sent, recording the provider message id
func (r *CampaignLogRepositoryImpl) MarkSent(ctx context.Context, id uint, messageID string, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.CampaignLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.CampaignLogStatusSent,
			"message_id": messageID,
			"sent_at":    at,
			"updated_at": utils.UTCNow(),
		}).Error
}

// MarkFailed flips a log to failed, recording the failure reason
func (r *CampaignLogRepositoryImpl) MarkFailed(ctx context.Context, id uint, errorMessage string) error {
	db := r.getDB(ctx)
	return db.Model(&models.CampaignLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        models.CampaignLogStatusFailed,
			"error_message": errorMessage,
			"updated_at":    utils.UTCNow(),
		}).Error
}

func (r *CampaignLogRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.LeadID != nil {
		db = db.Where("lead_id = ?", *f.LeadID)
	}
	if f.ChatID != nil {
		db = db.Where("chat_id = ?", *f.ChatID)
	}
	if f.Recipient != nil {
		db = db.Where("recipient = ?", *f.Recipient)
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

func (r *CampaignLogRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignLogFilter, orderBy string, limit, offset int) ([]*models.CampaignLog, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignLog{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.CampaignLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CampaignLogRepositoryImpl) Count(ctx context.Context, filter models.CampaignLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CampaignLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CampaignLogRepositoryImpl) Exists(ctx context.Context, filter models.CampaignLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
