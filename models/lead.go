package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/chatspire/susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadScore represents the engagement score assigned to a lead
type LeadScore string

const (
	LeadScoreHot  LeadScore = "hot"
	LeadScoreWarm LeadScore = "warm"
	LeadScoreCold LeadScore = "cold"
)

// String returns the string representation of the score
func (s LeadScore) String() string {
	return string(s)
}

// Valid checks if the score is valid
func (s LeadScore) Valid() bool {
	switch s {
	case LeadScoreHot, LeadScoreWarm, LeadScoreCold:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for LeadScore
func (s *LeadScore) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = LeadScore(v)
	case []byte:
		*s = LeadScore(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LeadScore", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for LeadScore
func (s LeadScore) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid LeadScore: %s", s)
	}
	return string(s), nil
}

// Lead represents a contact that messaged one of the business channels.
// A lead is identified by (provider, provider_user_id) within a business;
// for WhatsApp the provider user id is the E.164 phone number.
type Lead struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_leads_uuid" json:"uuid"`
	BusinessID     uint       `gorm:"not null;index:idx_leads_business_id;uniqueIndex:uk_leads_identity" json:"business_id"`
	Provider       string     `gorm:"size:32;not null;uniqueIndex:uk_leads_identity" json:"provider"`
	ProviderUserID string     `gorm:"size:64;not null;uniqueIndex:uk_leads_identity;index:idx_leads_provider_user_id" json:"provider_user_id"`
	Phone          *string    `gorm:"size:20" json:"phone,omitempty"`
	DisplayName    *string    `gorm:"size:255" json:"display_name,omitempty"`
	Score          *LeadScore `gorm:"type:lead_score" json:"score,omitempty"`
	CreatedAt      time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_leads_created_at" json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Lead) TableName() string {
	return "leads"
}

// BeforeCreate is called before creating a new record
func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (l *Lead) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	l.UpdatedAt = &now
	return nil
}

// LeadFilter represents filter criteria for leads
type LeadFilter struct {
	ID             *uint       `json:"id,omitempty"`
	UUID           *uuid.UUID  `json:"uuid,omitempty"`
	BusinessID     *uint       `json:"business_id,omitempty"`
	Provider       *string     `json:"provider,omitempty"`
	ProviderUserID *string     `json:"provider_user_id,omitempty"`
	Scores         []LeadScore `json:"scores,omitempty"`
	CreatedAfter   *time.Time  `json:"created_after,omitempty"`
	CreatedBefore  *time.Time  `json:"created_before,omitempty"`
}
