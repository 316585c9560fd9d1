package repository

import (
	"context"
	"time"

	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/utils"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Campaign, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CampaignFilter{UUID: &parsedUUID}
	campaigns, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	return campaigns[0], nil
}

// ListByBusiness retrieves campaigns of a business with pagination
func (r *CampaignRepositoryImpl) ListByBusiness(ctx context.Context, businessID uint, limit, offset int) ([]*models.Campaign, error) {
	filter := models.CampaignFilter{BusinessID: &businessID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// DueScheduled retrieves campaigns of schedule type "scheduled" still in
// scheduled status whose fire time falls inside (from, to]
func (r *CampaignRepositoryImpl) DueScheduled(ctx context.Context, from, to time.Time) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var rows []*models.Campaign
	err := db.Where("schedule_type = ? AND status = ? AND scheduled_at > ? AND scheduled_at <= ?",
		models.ScheduleTypeScheduled, models.CampaignStatusScheduled, from, to).
		Order("scheduled_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Update updates a campaign
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign models.Campaign) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	campaign.UpdatedAt = &now

	err = db.Save(&campaign).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateStatus updates only the status of a campaign
func (r *CampaignRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	db := r.getDB(ctx)
	return db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
}

// SetTotalRecipients fixes the recipient count of a campaign. This is written
// exactly once, at the end of campaign preparation.
func (r *CampaignRepositoryImpl) SetTotalRecipients(ctx context.Context, id uint, total int) error {
	db := r.getDB(ctx)
	return db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_recipients": total,
			"updated_at":       utils.UTCNow(),
		}).Error
}

// IncrementCounters atomically adds the given deltas to the sent and failed counters
func (r *CampaignRepositoryImpl) IncrementCounters(ctx context.Context, id uint, sentDelta, failedDelta int) error {
	db := r.getDB(ctx)
	return db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sent_count":   gorm.Expr("sent_count + ?", sentDelta),
			"failed_count": gorm.Expr("failed_count + ?", failedDelta),
			"updated_at":   utils.UTCNow(),
		}).Error
}

func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.BusinessID != nil {
		db = db.Where("business_id = ?", *f.BusinessID)
	}
	if f.TemplateID != nil {
		db = db.Where("template_id = ?", *f.TemplateID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.ScheduleType != nil {
		db = db.Where("schedule_type = ?", *f.ScheduleType)
	}
	if f.ScheduledAfter != nil {
		db = db.Where("scheduled_at >= ?", *f.ScheduledAfter)
	}
	if f.ScheduledBefore != nil {
		db = db.Where("scheduled_at <= ?", *f.ScheduledBefore)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Campaign
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CampaignRepositoryImpl) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
