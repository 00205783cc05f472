package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_AppendOnly(t *testing.T) {
	c := NewConversation()
	assert.NotEmpty(t, c.ID())
	assert.False(t, c.Created().IsZero())

	_, ok := c.Last()
	assert.False(t, ok)

	h := NewHumanMessage("hi")
	c.Append(h)

	snapshot := c.Messages()
	snapshot[0] = NewHumanMessage("mutated")

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, h, last)
	assert.Equal(t, 1, c.Len())
}

func TestConversation_LatestModelMessage(t *testing.T) {
	c := NewConversation()
	q := ToolCall{ID: "q", Name: QueryToolName}
	k := ToolCall{ID: "k", Name: CodeToolName}

	c.Append(NewHumanMessage("hi"))
	_, ok := c.LatestModelMessage()
	assert.False(t, ok)

	turn := NewModelMessage("", q, k)
	c.Append(turn, NewToolResult(q, "ok", nil), NewToolResult(k, "ok", nil))

	got, ok := c.LatestModelMessage()
	require.True(t, ok)
	assert.Equal(t, turn, got)

	c.Append(NewHumanMessage("again"))
	_, ok = c.LatestModelMessage()
	assert.False(t, ok, "a newer human message hides earlier turns")
}

func TestConversation_ConcurrentReaders(t *testing.T) {
	c := NewConversation()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); c.Append(NewHumanMessage("x")) }()
		go func() { defer wg.Done(); _ = c.Messages() }()
	}
	wg.Wait()
	assert.Equal(t, 10, c.Len())
}
