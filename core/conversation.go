package core

import (
	"sync"
	"time"
)

// Conversation is the ordered, append-only message history threaded through
// every orchestration node. Messages are never mutated or reordered; the last
// element determines routing. It is safe for concurrent readers.
type Conversation struct {
	id       string
	messages []Message
	created  time.Time
	mu       sync.RWMutex
}

// NewConversation creates an empty conversation with a fresh id.
func NewConversation() *Conversation {
	return &Conversation{id: NewID(), created: time.Now().UTC()}
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string { return c.id }

// Created returns the creation timestamp.
func (c *Conversation) Created() time.Time { return c.created }

// Append adds messages to the end of the history.
func (c *Conversation) Append(msgs ...Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Messages returns a defensive copy of the history.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return nil, false
	}
	return c.messages[len(c.messages)-1], true
}

// LatestModelMessage returns the most recent model turn, scanning backwards
// over any tool results appended after it.
func (c *Conversation) LatestModelMessage() (ModelMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		switch m := c.messages[i].(type) {
		case ModelMessage:
			return m, true
		case ToolResultMessage:
			continue
		default:
			return ModelMessage{}, false
		}
	}
	return ModelMessage{}, false
}
