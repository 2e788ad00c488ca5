package chat

import (
	"encoding/json"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_id"`
	Title     string    `gorm:"type:varchar(128)" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "bridge_sessions" }

// ToolCall pairs a tool invocation with its eventual result. The id is
// client-generated; the backend only echoes the tool name on completion,
// so completion events are matched by name (see stream.Aggregator).
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Success   *bool           `json:"success,omitempty"`
}

type ToolCalls []ToolCall

// Message is one unit of conversation. MessageID stays stable across
// partial checkpoints and the final write, so the store replaces rather
// than duplicates. CreatedAt is set when the message is first
// materialized and never re-set on later upserts.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"message_id"`
	SessionID string    `gorm:"type:varchar(64);index;not null" json:"session_id"`
	Role      string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Thinking  string    `gorm:"type:text" json:"thinking,omitempty"`
	ToolCalls ToolCalls `gorm:"serializer:json;type:text" json:"tool_calls,omitempty"`
	IsPartial bool      `gorm:"not null;default:false" json:"is_partial"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Message) TableName() string { return "bridge_messages" }
