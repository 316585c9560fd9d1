package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/chatspire/susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatStatus represents the lifecycle status of a chat
type ChatStatus string

const (
	ChatStatusOpen     ChatStatus = "open"
	ChatStatusClosed   ChatStatus = "closed"
	ChatStatusArchived ChatStatus = "archived"
)

// String returns the string representation of the status
func (s ChatStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ChatStatus) Valid() bool {
	switch s {
	case ChatStatusOpen, ChatStatusClosed, ChatStatusArchived:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ChatStatus
func (s *ChatStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ChatStatus(v)
	case []byte:
		*s = ChatStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ChatStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ChatStatus
func (s ChatStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ChatStatus: %s", s)
	}
	return string(s), nil
}

// Chat represents an ongoing conversation between a lead and a business
// channel. At most one open chat exists per (lead, channel mapping) pair.
type Chat struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	UUID                  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_chats_uuid" json:"uuid"`
	LeadID                uint       `gorm:"not null;index:idx_chats_lead_id" json:"lead_id"`
	BusinessSocialMediaID uint       `gorm:"not null;index:idx_chats_business_social_media_id" json:"business_social_media_id"`
	Status                ChatStatus `gorm:"type:chat_status;not null;default:'open';index:idx_chats_status" json:"status"`
	MessageCount          int        `gorm:"not null;default:0" json:"message_count"`
	LastInboundAt         *time.Time `json:"last_inbound_at,omitempty"`
	LastOutboundAt        *time.Time `json:"last_outbound_at,omitempty"`
	RunningSummary        *string    `gorm:"type:text" json:"running_summary,omitempty"`
	CreatedAt             time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_chats_created_at" json:"created_at"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty"`

	// Relations
	Lead                *Lead                `gorm:"foreignKey:LeadID;references:ID" json:"lead,omitempty"`
	BusinessSocialMedia *BusinessSocialMedia `gorm:"foreignKey:BusinessSocialMediaID;references:ID" json:"business_social_media,omitempty"`
}

// TableName returns the table name for the model
func (Chat) TableName() string {
	return "chats"
}

// BeforeCreate is called before creating a new record
func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ChatStatusOpen
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Chat) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsOpen checks whether the chat still accepts conversation traffic
func (c *Chat) IsOpen() bool {
	return c.Status == ChatStatusOpen
}

// ChatFilter represents filter criteria for chats
type ChatFilter struct {
	ID                    *uint       `json:"id,omitempty"`
	UUID                  *uuid.UUID  `json:"uuid,omitempty"`
	LeadID                *uint       `json:"lead_id,omitempty"`
	BusinessSocialMediaID *uint       `json:"business_social_media_id,omitempty"`
	Status                *ChatStatus `json:"status,omitempty"`
	CreatedAfter          *time.Time  `json:"created_after,omitempty"`
	CreatedBefore         *time.Time  `json:"created_before,omitempty"`
}
