package testutil

import (
	"github.com/hupe1980/analystloop/core"
)

// ConversationBuilder helps construct conversations with fluent chaining for tests.
// Example:
//
//	conv := NewConversationBuilder().Human("hi").Calls(call).Result(call, "ok", nil).Build()
type ConversationBuilder struct {
	msgs []core.Message
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder { return &ConversationBuilder{} }

// Human appends a user message (chainable).
func (b *ConversationBuilder) Human(text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewHumanMessage(text))
	return b
}

// Model appends a model answer without tool calls (chainable).
func (b *ConversationBuilder) Model(text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewModelMessage(text))
	return b
}

// Calls appends a model turn requesting the given tool calls (chainable).
func (b *ConversationBuilder) Calls(calls ...core.ToolCall) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewModelMessage("", calls...))
	return b
}

// Result appends a tool result for call (chainable).
func (b *ConversationBuilder) Result(call core.ToolCall, text string, raw any) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewToolResult(call, text, raw))
	return b
}

// Messages returns the built message slice.
func (b *ConversationBuilder) Messages() []core.Message {
	return append([]core.Message(nil), b.msgs...)
}

// Build returns a *core.Conversation holding the messages in order.
func (b *ConversationBuilder) Build() *core.Conversation {
	c := core.NewConversation()
	c.Append(b.msgs...)
	return c
}
