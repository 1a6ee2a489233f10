package timeline

import (
	"context"
	"time"
)

// EventType enumerates the timeline entry kinds the gateway stores.
type EventType string

const (
	// EventTurn is one utterance of the conversation, caller or agent side.
	EventTurn EventType = "turn"
	// EventToolCall and EventToolResult bracket a tool invocation.
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
)

// Event is one row in a call's append-only timeline. Seq is assigned by the
// store and is strictly increasing within a call.
type Event struct {
	CallID    string                 `bson:"call_id" json:"call_id"`
	Seq       int64                  `bson:"seq" json:"seq"`
	Type      EventType              `bson:"type" json:"type"`
	Role      string                 `bson:"role,omitempty" json:"role,omitempty"`
	Text      string                 `bson:"text,omitempty" json:"text,omitempty"`
	Tool      string                 `bson:"tool,omitempty" json:"tool,omitempty"`
	Payload   map[string]interface{} `bson:"payload,omitempty" json:"payload,omitempty"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
	StoredAt  time.Time              `bson:"stored_at" json:"stored_at"`
}

// Repository persists timeline events. Append assigns the sequence number
// and must never reuse or skip one within a call.
type Repository interface {
	Append(ctx context.Context, event *Event) error
	ListByCall(ctx context.Context, callID string) ([]Event, error)
}
