package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/chatspire/susanoo/utils"
	"gorm.io/gorm"
)

// CampaignLogStatus enumerates delivery status of a single campaign recipient
type CampaignLogStatus string

const (
	CampaignLogStatusPending CampaignLogStatus = "pending"
	CampaignLogStatusSent    CampaignLogStatus = "sent"
	CampaignLogStatusFailed  CampaignLogStatus = "failed"
)

// String returns the string representation of the status
func (s CampaignLogStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignLogStatus) Valid() bool {
	switch s {
	case CampaignLogStatusPending, CampaignLogStatusSent, CampaignLogStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignLogStatus
func (s *CampaignLogStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignLogStatus(v)
	case []byte:
		*s = CampaignLogStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignLogStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignLogStatus
func (s CampaignLogStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignLogStatus: %s", s)
	}
	return string(s), nil
}

// CampaignLog records a single recipient delivery under a campaign. The
// message content is rendered once at campaign creation and stored here,
// so the drain phase sends exactly what preparation produced.
type CampaignLog struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	CampaignID     uint              `gorm:"not null;index:idx_campaign_logs_campaign_id" json:"campaign_id"`
	LeadID         uint              `gorm:"not null;index:idx_campaign_logs_lead_id" json:"lead_id"`
	ChatID         uint              `gorm:"not null" json:"chat_id"`
	Recipient      string            `gorm:"size:20;not null;index:idx_campaign_logs_recipient" json:"recipient"`
	MessageContent string            `gorm:"type:text;not null" json:"message_content"`
	MessageID      *string           `gorm:"size:64" json:"message_id,omitempty"`
	Status         CampaignLogStatus `gorm:"type:campaign_log_status;not null;default:'pending';index:idx_campaign_logs_status" json:"status"`
	ErrorMessage   *string           `gorm:"type:text" json:"error_message,omitempty"`
	SentAt         *time.Time        `json:"sent_at,omitempty"`
	CreatedAt      time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaign_logs_created_at" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (CampaignLog) TableName() string {
	return "campaign_logs"
}

// BeforeCreate is called before creating a new record
func (l *CampaignLog) BeforeCreate(tx *gorm.DB) error {
	if l.Status == "" {
		l.Status = CampaignLogStatusPending
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (l *CampaignLog) BeforeUpdate(tx *gorm.DB) error {
	l.UpdatedAt = utils.UTCNow()
	return nil
}

// CampaignLogFilter provides filter fields for repository queries
type CampaignLogFilter struct {
	ID            *uint
	CampaignID    *uint
	LeadID        *uint
	ChatID        *uint
	Recipient     *string
	Status        *CampaignLogStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
