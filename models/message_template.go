package models

import (
	"time"

	"github.com/chatspire/susanoo/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// MessageTemplate represents a reusable outbound message body with
// {{variable}} placeholders, owned by a single business.
type MessageTemplate struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_message_templates_uuid" json:"uuid"`
	BusinessID uint           `gorm:"not null;index:idx_message_templates_business_id" json:"business_id"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Variables  pq.StringArray `gorm:"type:text[]" json:"variables,omitempty"`
	UsageCount int            `gorm:"not null;default:0" json:"usage_count"`
	LastUsedAt *time.Time     `json:"last_used_at,omitempty"`
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (MessageTemplate) TableName() string {
	return "message_templates"
}

// BeforeCreate is called before creating a new record
func (t *MessageTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *MessageTemplate) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	t.UpdatedAt = &now
	return nil
}

// MessageTemplateFilter represents filter criteria for templates
type MessageTemplateFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	BusinessID *uint      `json:"business_id,omitempty"`
	Name       *string    `json:"name,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
}
