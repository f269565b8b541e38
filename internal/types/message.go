// Package types defines data structures and types used throughout the system
package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRole distinguishes the speaker of a ConversationMessage.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// MessageKind distinguishes a normal turn from one carrying a fallback or
// error response.
type MessageKind string

const (
	MessageKindNormal   MessageKind = "normal"
	MessageKindFallback MessageKind = "fallback"
	MessageKindError    MessageKind = "error"
)

// MessageMetadata is the structured side-channel on an assistant message:
// the chunks it cites, its chain-of-thought trace (if CoT was enabled), and
// its token accounting.
type MessageMetadata struct {
	Sources        References      `json:"sources,omitempty"`
	CoT            *CoTOutput      `json:"cot,omitempty"`
	TokenAnalysis  *TokenAnalysis  `json:"token_analysis,omitempty"`
}

// Value implements the driver.Valuer interface, used to convert MessageMetadata to database value
func (m MessageMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface, used to convert database value to MessageMetadata
func (m *MessageMetadata) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(b, m)
}

// ConversationMessage is one turn of a ConversationSession.
type ConversationMessage struct {
	ID        string `json:"id" gorm:"type:varchar(36);primaryKey"`
	SessionID string `json:"session_id" gorm:"index"`
	RequestID string `json:"request_id"`

	Role    MessageRole `json:"role"`
	Kind    MessageKind `json:"kind"`
	Content string      `json:"content"`

	TokenCount      int   `json:"token_count"`
	ExecutionTimeMS int64 `json:"execution_time_ms"`

	Metadata MessageMetadata `json:"metadata" gorm:"type:json"`

	IsCompleted bool `json:"is_completed"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// BeforeCreate is a GORM hook that generates a UUID for new messages.
func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Metadata.Sources == nil {
		m.Metadata.Sources = make(References, 0)
	}
	return nil
}
