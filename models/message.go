package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chatspire/susanoo/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageDirection represents whether a message came from the lead or the business
type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

// String returns the string representation of the direction
func (d MessageDirection) String() string {
	return string(d)
}

// Valid checks if the direction is valid
func (d MessageDirection) Valid() bool {
	return d == MessageDirectionInbound || d == MessageDirectionOutbound
}

// Scan implements the sql.Scanner interface for MessageDirection
func (d *MessageDirection) Scan(value any) error {
	if value == nil {
		*d = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*d = MessageDirection(v)
	case []byte:
		*d = MessageDirection(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MessageDirection", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MessageDirection
func (d MessageDirection) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid MessageDirection: %s", d)
	}
	return string(d), nil
}

// MessageType classifies the content of a message
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeDocument MessageType = "document"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeVideo    MessageType = "video"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeLocation MessageType = "location"
	MessageTypeContacts MessageType = "contacts"
	MessageTypeButton   MessageType = "button"
)

// String returns the string representation of the type
func (t MessageType) String() string {
	return string(t)
}

// Valid checks if the type is valid
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeDocument, MessageTypeAudio,
		MessageTypeVideo, MessageTypeSticker, MessageTypeLocation,
		MessageTypeContacts, MessageTypeButton:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for MessageType
func (t *MessageType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = MessageType(v)
	case []byte:
		*t = MessageType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MessageType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MessageType
func (t MessageType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid MessageType: %s", t)
	}
	return string(t), nil
}

// MessageTypeFromContentType maps a media MIME type onto a message type.
// Anything unrecognized is stored as a document.
func MessageTypeFromContentType(contentType string) MessageType {
	switch {
	case contentType == "":
		return MessageTypeText
	case strings.HasPrefix(contentType, "image/"):
		return MessageTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return MessageTypeVideo
	case strings.HasPrefix(contentType, "audio/"):
		return MessageTypeAudio
	default:
		return MessageTypeDocument
	}
}

// MessagePayload holds the raw provider payload for auditing
type MessagePayload map[string]any

// Value implements the driver.Valuer interface for MessagePayload
func (p MessagePayload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for MessagePayload
func (p *MessagePayload) Scan(value any) error {
	if value == nil {
		*p = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into MessagePayload", value)
	}

	return json.Unmarshal(bytes, p)
}

// Message represents a single message inside a chat. Outbound messages
// produced by the answering service carry the AI attribution fields;
// outbound messages produced by a campaign carry the campaign id.
type Message struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_messages_uuid" json:"uuid"`
	ChatID            uint             `gorm:"not null;index:idx_messages_chat_id" json:"chat_id"`
	Direction         MessageDirection `gorm:"type:message_direction;not null;index:idx_messages_direction" json:"direction"`
	MsgType           MessageType      `gorm:"type:message_type;not null;default:'text'" json:"msg_type"`
	Text              *string          `gorm:"type:text" json:"text,omitempty"`
	Payload           MessagePayload   `gorm:"type:jsonb" json:"payload,omitempty"`
	ProviderMessageID *string          `gorm:"size:64;index:idx_messages_provider_message_id" json:"provider_message_id,omitempty"`
	AIReply           bool             `gorm:"not null;default:false" json:"ai_reply"`
	AIModel           *string          `gorm:"size:64" json:"ai_model,omitempty"`
	AIConfidence      *float64         `json:"ai_confidence,omitempty"`
	CampaignID        *uint            `gorm:"index:idx_messages_campaign_id" json:"campaign_id,omitempty"`
	CreatedAt         time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_messages_created_at" json:"created_at"`

	// Relations
	Chat *Chat `gorm:"foreignKey:ChatID;references:ID" json:"chat,omitempty"`
}

// TableName returns the table name for the model
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate is called before creating a new record
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.MsgType == "" {
		m.MsgType = MessageTypeText
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// MessageFilter represents filter criteria for messages
type MessageFilter struct {
	ID                *uint             `json:"id,omitempty"`
	UUID              *uuid.UUID        `json:"uuid,omitempty"`
	ChatID            *uint             `json:"chat_id,omitempty"`
	Direction         *MessageDirection `json:"direction,omitempty"`
	MsgType           *MessageType      `json:"msg_type,omitempty"`
	ProviderMessageID *string           `json:"provider_message_id,omitempty"`
	CampaignID        *uint             `json:"campaign_id,omitempty"`
	AIReply           *bool             `json:"ai_reply,omitempty"`
	CreatedAfter      *time.Time        `json:"created_after,omitempty"`
	CreatedBefore     *time.Time        `json:"created_before,omitempty"`
}
