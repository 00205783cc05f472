package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the conversational author of a Message.
type Role string

const (
	// RoleHuman marks plain text typed by the user.
	RoleHuman Role = "user"
	// RoleModel marks output produced by the model-decision service.
	RoleModel Role = "assistant"
	// RoleTool marks the result of executing one ToolCall.
	RoleTool Role = "tool"
)

// Message is a closed sum type over HumanMessage, ModelMessage and
// ToolResultMessage. Consumers switch on the concrete type; the unexported
// marker keeps the set of variants fixed to this package.
type Message interface {
	Role() Role
	isMessage()
}

// ToolCall is a structured request, emitted by the model, to invoke one of
// the declared tools.
type ToolCall struct {
	ID        string `json:"id"`                  // Unique per call; correlates the ToolResultMessage
	Name      string `json:"name"`                // Tool name as declared to the model
	Arguments string `json:"arguments,omitempty"` // JSON encoded argument object
}

// Tool resolves the call name to a known ToolID (ToolUnknown otherwise).
func (c ToolCall) Tool() ToolID { return ParseToolID(c.Name) }

// HumanMessage is plain text from the user.
type HumanMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Role implements Message.
func (HumanMessage) Role() Role { return RoleHuman }

func (HumanMessage) isMessage() {}

// ModelMessage is a model turn: optional text plus zero or more tool calls.
type ModelMessage struct {
	ID        string     `json:"id"`
	Text      string     `json:"text,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Role implements Message.
func (ModelMessage) Role() Role { return RoleModel }

func (ModelMessage) isMessage() {}

// HasToolCalls reports whether the model requested at least one tool.
func (m ModelMessage) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// ToolResultMessage carries the outcome of one ToolCall in two parallel
// representations. Text is the bounded summary that re-enters the model
// context. Raw is the unrestricted payload (datasets, error descriptors,
// execution results) consumed by later nodes and the end user; it never
// reaches the model.
type ToolResultMessage struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id"`
	ToolName  string    `json:"tool_name"`
	Text      string    `json:"text"`
	Raw       any       `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Role implements Message.
func (ToolResultMessage) Role() Role { return RoleTool }

func (ToolResultMessage) isMessage() {}

// IsError reports whether the raw payload is an error descriptor.
func (m ToolResultMessage) IsError() bool {
	_, ok := ErrorReason(m.Raw)
	return ok
}

// NewHumanMessage creates a user text message.
func NewHumanMessage(text string) HumanMessage {
	return HumanMessage{ID: NewID(), Text: text, Timestamp: time.Now().UTC()}
}

// NewModelMessage creates a model turn with optional tool calls.
func NewModelMessage(text string, calls ...ToolCall) ModelMessage {
	return ModelMessage{ID: NewID(), Text: text, ToolCalls: calls, Timestamp: time.Now().UTC()}
}

// NewToolResult creates a tool result for the given call. Both
// representations are always present: a nil raw payload falls back to the
// model-facing text.
func NewToolResult(call ToolCall, text string, raw any) ToolResultMessage {
	if raw == nil {
		raw = text
	}
	return ToolResultMessage{
		ID:        NewID(),
		CallID:    call.ID,
		ToolName:  call.Name,
		Text:      text,
		Raw:       raw,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolError creates a tool result whose raw payload is {"error": reason}.
func NewToolError(call ToolCall, text, reason string) ToolResultMessage {
	return NewToolResult(call, text, ErrorPayload(reason))
}

// ErrorPayload builds the canonical raw error descriptor.
func ErrorPayload(reason string) map[string]any {
	return map[string]any{"error": reason}
}

// ErrorReason extracts the reason from an error descriptor built by
// ErrorPayload.
func ErrorReason(raw any) (string, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return "", false
	}
	reason, ok := m["error"].(string)
	return reason, ok
}

// ModelView projects messages onto what the model may see: tool results
// keep only their text and correlation fields.
func ModelView(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if tr, ok := m.(ToolResultMessage); ok {
			tr.Raw = nil
			m = tr
		}
		out = append(out, m)
	}
	return out
}

// NewID generates a new unique identifier for messages, conversations and
// artifacts.
func NewID() string { return uuid.NewString() }
