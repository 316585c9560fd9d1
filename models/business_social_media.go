package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/chatspire/susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SocialPlatform represents a messaging platform a business is connected to
type SocialPlatform string

const (
	SocialPlatformWhatsApp  SocialPlatform = "WHATSAPP"
	SocialPlatformInstagram SocialPlatform = "INSTAGRAM"
	SocialPlatformTelegram  SocialPlatform = "TELEGRAM"
)

// String returns the string representation of the platform
func (p SocialPlatform) String() string {
	return string(p)
}

// Valid checks if the platform is valid
func (p SocialPlatform) Valid() bool {
	switch p {
	case SocialPlatformWhatsApp, SocialPlatformInstagram, SocialPlatformTelegram:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for SocialPlatform
func (p *SocialPlatform) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*p = SocialPlatform(v)
	case []byte:
		*p = SocialPlatform(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SocialPlatform", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SocialPlatform
func (p SocialPlatform) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid SocialPlatform: %s", p)
	}
	return string(p), nil
}

// BusinessSocialMedia maps an inbound channel address to the business that
// owns it. For WhatsApp the page id is the business phone number on the
// provider side.
type BusinessSocialMedia struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_business_social_media_uuid" json:"uuid"`
	BusinessID uint           `gorm:"not null;index:idx_business_social_media_business_id" json:"business_id"`
	Platform   SocialPlatform `gorm:"type:social_platform;not null;index:idx_business_social_media_platform" json:"platform"`
	PageID     string         `gorm:"size:64;not null;index:idx_business_social_media_page_id" json:"page_id"`
	PageName   *string        `gorm:"size:255" json:"page_name,omitempty"`
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (BusinessSocialMedia) TableName() string {
	return "business_social_media"
}

// BeforeCreate is called before creating a new record
func (b *BusinessSocialMedia) BeforeCreate(tx *gorm.DB) error {
	if b.UUID == uuid.Nil {
		b.UUID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (b *BusinessSocialMedia) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	b.UpdatedAt = &now
	return nil
}

// BusinessSocialMediaFilter represents filter criteria for channel mappings
type BusinessSocialMediaFilter struct {
	ID         *uint           `json:"id,omitempty"`
	UUID       *uuid.UUID      `json:"uuid,omitempty"`
	BusinessID *uint           `json:"business_id,omitempty"`
	Platform   *SocialPlatform `json:"platform,omitempty"`
	PageID     *string         `json:"page_id,omitempty"`
	IsActive   *bool           `json:"is_active,omitempty"`
}
