package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/analystloop/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the model input for one decision. Messages must already be
// projected with core.ModelView; providers read only model-facing text.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the single, complete model turn for a Request.
type Response struct {
	ID           string            `json:"id"`
	Message      core.ModelMessage `json:"message"`
	FinishReason string            `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage       `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the model-decision collaborator. Generate delivers exactly one
// Response or one error and then closes both channels.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoResponse is returned when a model closes its channels without a response.
var ErrNoResponse = errors.New("model returned no response")

// Decide runs one Generate call to completion.
func Decide(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		resp Response
		got  bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			resp, got = r, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if !got {
		return Response{}, ErrNoResponse
	}
	return resp, nil
}

// ScriptedModel is a deterministic in‑memory Model useful for tests and
// demos. Each Generate call pops the next scripted turn and records the
// request it was given.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	turns    []scriptedTurn
	requests []Request
}

type scriptedTurn struct {
	msg core.ModelMessage
	err error
}

// NewScriptedModel constructs an empty ScriptedModel.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{info: Info{Name: "scripted", Provider: "scripted", SupportsTools: true}}
}

// Reply queues a plain text answer.
func (m *ScriptedModel) Reply(text string) *ScriptedModel {
	return m.Turn(core.NewModelMessage(text))
}

// Call queues a turn requesting the given tool calls.
func (m *ScriptedModel) Call(calls ...core.ToolCall) *ScriptedModel {
	return m.Turn(core.NewModelMessage("", calls...))
}

// Turn queues an arbitrary model message.
func (m *ScriptedModel) Turn(msg core.ModelMessage) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, scriptedTurn{msg: msg})
	return m
}

// Fail queues a failing turn.
func (m *ScriptedModel) Fail(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, scriptedTurn{err: err})
	return m
}

// Requests returns the requests received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Generate implements Model.
func (m *ScriptedModel) Generate(_ context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)
	defer close(respCh)
	defer close(errCh)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if len(m.turns) == 0 {
		errCh <- fmt.Errorf("scripted model exhausted after %d calls", len(m.requests)-1)
		return respCh, errCh
	}
	turn := m.turns[0]
	m.turns = m.turns[1:]

	if turn.err != nil {
		errCh <- turn.err
		return respCh, errCh
	}

	reason := "stop"
	if turn.msg.HasToolCalls() {
		reason = "tool_calls"
	}
	respCh <- Response{ID: core.NewID(), Message: turn.msg, FinishReason: reason}
	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
