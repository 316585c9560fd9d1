package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/chatspire/susanoo/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CampaignStatus represents the status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusRunning,
		CampaignStatusCompleted, CampaignStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// IsTerminal checks whether the status is an end state
func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusFailed
}

// CampaignScheduleType represents how a campaign is triggered
type CampaignScheduleType string

const (
	ScheduleTypeImmediate CampaignScheduleType = "immediate"
	ScheduleTypeScheduled CampaignScheduleType = "scheduled"
	ScheduleTypeRecurring CampaignScheduleType = "recurring"
)

// String returns the string representation of the schedule type
func (t CampaignScheduleType) String() string {
	return string(t)
}

// Valid checks if the schedule type is valid
func (t CampaignScheduleType) Valid() bool {
	switch t {
	case ScheduleTypeImmediate, ScheduleTypeScheduled, ScheduleTypeRecurring:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignScheduleType
func (t *CampaignScheduleType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = CampaignScheduleType(v)
	case []byte:
		*t = CampaignScheduleType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignScheduleType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignScheduleType
func (t CampaignScheduleType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid CampaignScheduleType: %s", t)
	}
	return string(t), nil
}

// Campaign represents an outbound bulk-messaging campaign. The recipient
// set is fixed at creation time: TotalRecipients never changes afterwards,
// and SentCount+FailedCount converges to it as the campaign drains.
type Campaign struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	BusinessID      uint                 `gorm:"not null;index:idx_campaigns_business_id" json:"business_id"`
	TemplateID      uint                 `gorm:"not null;index:idx_campaigns_template_id" json:"template_id"`
	Name            string               `gorm:"size:255;not null" json:"name"`
	ScheduleType    CampaignScheduleType `gorm:"type:campaign_schedule_type;not null;default:'immediate'" json:"schedule_type"`
	ScheduledAt     *time.Time           `gorm:"index:idx_campaigns_scheduled_at" json:"scheduled_at,omitempty"`
	CronExpression  *string              `gorm:"size:64" json:"cron_expression,omitempty"`
	TargetScores    pq.StringArray       `gorm:"type:text[]" json:"target_scores,omitempty"`
	Status          CampaignStatus       `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`
	TotalRecipients int                  `gorm:"not null;default:0" json:"total_recipients"`
	SentCount       int                  `gorm:"not null;default:0" json:"sent_count"`
	FailedCount     int                  `gorm:"not null;default:0" json:"failed_count"`
	CreatedAt       time.Time            `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt       *time.Time           `json:"updated_at,omitempty"`

	// Relations
	Template *MessageTemplate `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusFailed
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusRunning ||
			newStatus == CampaignStatusFailed
	case CampaignStatusRunning:
		return newStatus == CampaignStatusCompleted ||
			newStatus == CampaignStatusFailed
	default:
		return false
	}
}

// IsCancellable checks if the campaign can still be cancelled
func (c *Campaign) IsCancellable() bool {
	return c.Status != CampaignStatusCompleted
}

// TargetScoreList converts the stored score strings into typed scores,
// dropping anything unrecognized.
func (c *Campaign) TargetScoreList() []LeadScore {
	scores := make([]LeadScore, 0, len(c.TargetScores))
	for _, s := range c.TargetScores {
		score := LeadScore(s)
		if score.Valid() {
			scores = append(scores, score)
		}
	}
	return scores
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID              *uint                 `json:"id,omitempty"`
	UUID            *uuid.UUID            `json:"uuid,omitempty"`
	BusinessID      *uint                 `json:"business_id,omitempty"`
	TemplateID      *uint                 `json:"template_id,omitempty"`
	Status          *CampaignStatus       `json:"status,omitempty"`
	ScheduleType    *CampaignScheduleType `json:"schedule_type,omitempty"`
	ScheduledAfter  *time.Time            `json:"scheduled_after,omitempty"`
	ScheduledBefore *time.Time            `json:"scheduled_before,omitempty"`
	CreatedAfter    *time.Time            `json:"created_after,omitempty"`
	CreatedBefore   *time.Time            `json:"created_before,omitempty"`
}
