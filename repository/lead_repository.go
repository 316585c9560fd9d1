package repository

import (
	"context"
	"errors"

	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/utils"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements the LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByProviderUser retrieves the lead identified by (provider, provider_user_id)
// inside a business
func (r *LeadRepositoryImpl) ByProviderUser(ctx context.Context, businessID uint, provider, providerUserID string) (*models.Lead, error) {
	db := r.getDB(ctx)

	var lead models.Lead
	err := db.Where("business_id = ? AND provider = ? AND provider_user_id = ?",
		businessID, provider, providerUserID).
		Last(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &lead, nil
}

// ListByBusinessAndScores retrieves the leads of a business whose score is in
// the given set. An empty score set matches nothing.
func (r *LeadRepositoryImpl) ListByBusinessAndScores(ctx context.Context, businessID uint, scores []models.LeadScore) ([]*models.Lead, error) {
	if len(scores) == 0 {
		return nil, nil
	}
	filter := models.LeadFilter{BusinessID: &businessID, Scores: scores}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// Update updates a lead
func (r *LeadRepositoryImpl) Update(ctx context.Context, lead models.Lead) error {
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
	lead.UpdatedAt = &now

	err = db.Save(&lead).Error
	if err != nil {
		return err
	}

	return nil
}

func (r *LeadRepositoryImpl) applyFilter(db *gorm.DB, f models.LeadFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.BusinessID != nil {
		db = db.Where("business_id = ?", *f.BusinessID)
	}
	if f.Provider != nil {
		db = db.Where("provider = ?", *f.Provider)
	}
	if f.ProviderUserID != nil {
		db = db.Where("provider_user_id = ?", *f.ProviderUserID)
	}
	if len(f.Scores) > 0 {
		db = db.Where("score IN ?", f.Scores)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Lead
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Lead{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
