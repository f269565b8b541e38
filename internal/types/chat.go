package types

import (
	"database/sql/driver"
	"encoding/json"
)

// ChatResponse is a single LLM completion result, used by the chat-capability
// adapters in internal/models/chat regardless of provider.
type ChatResponse struct {
	Content string `json:"content"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ResponseType distinguishes the two kinds of frame a streamed answer emits.
type ResponseType string

const (
	ResponseTypeAnswer     ResponseType = "answer"
	ResponseTypeReferences ResponseType = "references"
)

// StreamResponse is one frame of a streamed generation (the generation stage,
// internal/stream).
type StreamResponse struct {
	ID           string       `json:"id"`
	ResponseType ResponseType `json:"response_type"`
	Content      string       `json:"content"`
	Done         bool         `json:"done"`
	References   References   `json:"references"`
}

// References is the set of retrieved chunks a generated answer cites.
type References []ScoredChunk

// Value implements the driver.Valuer interface, used to convert References to database values
func (c References) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface, used to convert database values to References
func (c *References) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(b, c)
}
