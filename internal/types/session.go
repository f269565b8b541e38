package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationSession is a multi-turn search conversation bound to one
// Collection and PipelineConfig. It owns the windowed message
// history the conversation orchestrator reads to build ConversationContext.
type ConversationSession struct {
	ID          string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title       string `json:"title"`
	UserID      string `json:"user_id" gorm:"index"`

	CollectionID string `json:"collection_id"`
	PipelineID   string `json:"pipeline_id"`

	// MaxHistoryRounds bounds how many prior turns are windowed into a
	// rewrite/generation prompt; 0 means the pipeline default applies.
	MaxHistoryRounds int `json:"max_history_rounds"`

	// TotalTokensUsed accumulates TokenAnalysis.TotalThisTurn across every
	// message in the session, feeding TokenTrackingService's usage checks.
	TotalTokensUsed int `json:"total_tokens_used"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	Messages []ConversationMessage `json:"-" gorm:"foreignKey:SessionID"`
}

func (s *ConversationSession) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

type StringArray []string

// Value implements the driver.Valuer interface, used to convert StringArray to database value
func (c StringArray) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface, used to convert database value to StringArray
func (c *StringArray) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(b, c)
}
