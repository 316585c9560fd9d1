package repository

import (
	"context"

	"github.com/chatspire/susanoo/models"
	"github.com/chatspire/susanoo/utils"
	"gorm.io/gorm"
)

// BusinessSocialMediaRepositoryImpl implements the BusinessSocialMediaRepository interface
type BusinessSocialMediaRepositoryImpl struct {
	*BaseRepository[models.BusinessSocialMedia, models.BusinessSocialMediaFilter]
}

// NewBusinessSocialMediaRepository creates a new channel mapping repository
func NewBusinessSocialMediaRepository(db *gorm.DB) BusinessSocialMediaRepository {
	return &BusinessSocialMediaRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BusinessSocialMedia, models.BusinessSocialMediaFilter](db),
	}
}

// ActiveByPlatformAndPageIDs retrieves the active mapping whose page id matches
// any of the given candidates. Callers pass address variants (with and without
// provider prefixes) so one lookup covers all spellings.
func (r *BusinessSocialMediaRepositoryImpl) ActiveByPlatformAndPageIDs(ctx context.Context, platform models.SocialPlatform, pageIDs []string) (*models.BusinessSocialMedia, error) {
	if len(pageIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)
	var rows []*models.BusinessSocialMedia
	err := db.Where("platform = ? AND page_id IN ? AND is_active = ?", platform, pageIDs, true).
		Order("id ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ActiveByBusinessAndPlatform retrieves the active mapping of a business on a platform
func (r *BusinessSocialMediaRepositoryImpl) ActiveByBusinessAndPlatform(ctx context.Context, businessID uint, platform models.SocialPlatform) (*models.BusinessSocialMedia, error) {
	filter := models.BusinessSocialMediaFilter{
		BusinessID: &businessID,
		Platform:   &platform,
		IsActive:   utils.ToPtr(true),
	}
	rows, err := r.ByFilter(ctx, filter, "id ASC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *BusinessSocialMediaRepositoryImpl) applyFilter(db *gorm.DB, f models.BusinessSocialMediaFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.BusinessID != nil {
		db = db.Where("business_id = ?", *f.BusinessID)
	}
	if f.Platform != nil {
		db = db.Where("platform = ?", *f.Platform)
	}
	if f.PageID != nil {
		db = db.Where("page_id = ?", *f.PageID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	return db
}

func (r *BusinessSocialMediaRepositoryImpl) ByFilter(ctx context.Context, filter models.BusinessSocialMediaFilter, orderBy string, limit, offset int) ([]*models.BusinessSocialMedia, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.BusinessSocialMedia{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.BusinessSocialMedia
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BusinessSocialMediaRepositoryImpl) Count(ctx context.Context, filter models.BusinessSocialMediaFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.BusinessSocialMedia{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BusinessSocialMediaRepositoryImpl) Exists(ctx context.Context, filter models.BusinessSocialMediaFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
