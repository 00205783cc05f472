package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/analystloop/classify"
	"github.com/hupe1980/analystloop/core"
	"github.com/hupe1980/analystloop/internal/util"
	"github.com/hupe1980/analystloop/model"
	"github.com/hupe1980/analystloop/tabular"
	"github.com/hupe1980/analystloop/tool"
)

// Result is the outcome of one Session.Ask.
type Result struct {
	// Answer is the text of the final model turn.
	Answer string
	// ConversationID identifies the session's conversation.
	ConversationID string
	// Messages is a snapshot of the whole conversation.
	Messages []core.Message
	// Artifacts lists the binary artifacts rendered while answering.
	Artifacts []classify.Rendered
	// Turns is the number of model decisions taken.
	Turns int
}

// Session is one conversation with its dataset index. Successive Ask calls
// continue the same conversation; concurrent calls are serialized.
type Session struct {
	mu        sync.Mutex
	orch      *Orchestrator
	conv      *core.Conversation
	datasets  *datasetIndex
	artifacts []classify.Rendered
	turns     int
}

// ID returns the conversation id.
func (s *Session) ID() string { return s.conv.ID() }

// Messages returns a snapshot of the conversation.
func (s *Session) Messages() []core.Message { return s.conv.Messages() }

// Datasets returns the datasets produced so far, in first-seen order.
func (s *Session) Datasets() []*tabular.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasets.list()
}

// Dataset returns the latest dataset stored under name.
func (s *Session) Dataset(name string) (*tabular.Dataset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasets.get(name)
}

// Ask appends the question and runs the loop until the model answers
// without tool calls. The returned Result reflects the conversation even
// when an error is returned.
func (s *Session) Ask(ctx context.Context, question string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.artifacts = nil
	s.turns = 0
	log := s.orch.opts.Logger
	limiter := NewTurnLimiter(s.orch.opts.MaxTurns)
	start := time.Now()

	s.append(core.NewHumanMessage(question))

	node := NodeModelDecision
	for node != NodeTerminal {
		if err := ctx.Err(); err != nil {
			return s.result(), err
		}

		log.Debug("graph.node.enter", "conversation_id", s.conv.ID(), "node", node.String())

		switch node {
		case NodeModelDecision:
			if err := limiter.Increment(); err != nil {
				log.Warn("graph.turns.exceeded", "conversation_id", s.conv.ID(), "max_turns", s.orch.opts.MaxTurns)
				return s.result(), err
			}
			if err := s.decide(ctx); err != nil {
				return s.result(), err
			}
		case NodeQueryExecution:
			s.runQueries(ctx)
		case NodeCodeExecution:
			s.runCode(ctx)
		case NodeTerminal:
		}

		last, _ := s.conv.Last()
		node = Transition(node, last)
	}

	res := s.result()
	log.Info("graph.ask.completed",
		"conversation_id", s.conv.ID(),
		"turns", res.Turns,
		"artifacts", len(res.Artifacts),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

func (s *Session) result() Result {
	res := Result{
		ConversationID: s.conv.ID(),
		Messages:       s.conv.Messages(),
		Artifacts:      append([]classify.Rendered(nil), s.artifacts...),
		Turns:          s.turns,
	}
	if msg, ok := s.conv.LatestModelMessage(); ok && !msg.HasToolCalls() {
		res.Answer = msg.Text
	}
	return res
}

func (s *Session) append(msgs ...core.Message) {
	s.conv.Append(msgs...)
	if fn := s.orch.opts.OnMessage; fn != nil {
		for _, m := range msgs {
			fn(s.conv.ID(), m)
		}
	}
}

// decide runs the ModelDecision node: one model call over the model view of
// the conversation, appending exactly one model message.
func (s *Session) decide(ctx context.Context) error {
	o := s.orch

	instructions, err := util.RenderTemplate(o.opts.Instruction, map[string]any{
		"Datasets": s.datasets.names(),
	})
	if err != nil {
		return fmt.Errorf("render instruction: %w", err)
	}

	req := model.Request{
		Instructions: instructions,
		Messages:     core.ModelView(s.conv.Messages()),
		Tools:        tool.Definitions(),
	}

	start := time.Now()
	resp, err := model.Decide(ctx, o.model, req)
	if err != nil {
		o.opts.Logger.Error("model.call.failed",
			"conversation_id", s.conv.ID(),
			"model", o.model.Info().Name,
			"error", err.Error(),
		)
		return fmt.Errorf("model decision: %w", err)
	}

	msg := resp.Message
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.HasToolCalls() {
		calls := make([]core.ToolCall, len(msg.ToolCalls))
		for i, c := range msg.ToolCalls {
			if c.ID == "" {
				c.ID = core.NewID()
			}
			calls[i] = c
		}
		msg.ToolCalls = calls
	}

	o.opts.Logger.Info("model.call.completed",
		"conversation_id", s.conv.ID(),
		"model", o.model.Info().Name,
		"tool_calls", len(msg.ToolCalls),
		"finish_reason", resp.FinishReason,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.turns++
	s.append(msg)
	return nil
}

// runQueries runs the QueryExecution node. Calls for other tools are left
// for the code node.
func (s *Session) runQueries(ctx context.Context) {
	latest, ok := s.conv.LatestModelMessage()
	if !ok {
		return
	}

	for _, call := range latest.ToolCalls {
		if call.Tool() != core.ToolQuery {
			continue
		}
		s.append(s.execute(call, func() core.ToolResultMessage { return s.executeQuery(ctx, call) }))
	}
}

func (s *Session) executeQuery(ctx context.Context, call core.ToolCall) core.ToolResultMessage {
	args, err := tool.DecodeQueryArgs(call.Arguments)
	if err != nil {
		return tool.ErrorResult(call, err)
	}

	rows, err := s.orch.queries.Run(ctx, args.Query)
	if err != nil {
		return tool.ErrorResult(call, err)
	}

	ds, err := tabular.Build(rows, args.ColumnNames, args.DatasetName)
	if err != nil {
		return tool.ErrorResult(call, err)
	}

	s.datasets.put(ds)

	return core.NewToolResult(call, ds.Summary(), ds)
}

// runCode runs the CodeExecution node. Datasets are staged once for the
// batch; a staging failure fails every code call of the turn. Calls naming
// neither tool are answered here so every call gets exactly one result.
func (s *Session) runCode(ctx context.Context) {
	latest, ok := s.conv.LatestModelMessage()
	if !ok {
		return
	}

	var (
		preamble string
		stageErr error
		staged   bool
	)

	for _, call := range latest.ToolCalls {
		switch call.Tool() {
		case core.ToolQuery:
			continue
		case core.ToolCode:
			if !staged {
				preamble, stageErr = s.orch.stager.Stage(ctx, s.datasets.list())
				staged = true
			}
			if stageErr != nil {
				s.append(tool.ErrorResult(call, stageErr))
				continue
			}
			s.append(s.execute(call, func() core.ToolResultMessage { return s.executeCode(ctx, call, preamble) }))
		case core.ToolUnknown:
			s.orch.opts.Logger.Warn("graph.tool.unknown", "conversation_id", s.conv.ID(), "tool", call.Name, "call_id", call.ID)
			s.append(tool.UnknownToolResult(call))
		}
	}
}

func (s *Session) executeCode(ctx context.Context, call core.ToolCall, preamble string) core.ToolResultMessage {
	args, err := tool.DecodeCodeArgs(call.Arguments)
	if err != nil {
		return tool.ErrorResult(call, err)
	}

	payload, err := s.orch.sandbox.Execute(ctx, preamble+args.Code)
	if err != nil {
		return tool.ErrorResult(call, err)
	}

	cls, err := s.orch.classifier.Classify(ctx, s.conv.ID(), payload)
	if err != nil {
		return tool.ErrorResult(call, err)
	}

	s.artifacts = append(s.artifacts, cls.Artifacts...)

	return core.NewToolResult(call, cls.Text, payload)
}

// execute runs one tool call with panic safety and logs its outcome.
func (s *Session) execute(call core.ToolCall, fn func() core.ToolResultMessage) (res core.ToolResultMessage) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.orch.opts.Logger.Error("graph.tool.panic", "tool", call.Name, "call_id", call.ID, "recover", r)
			res = tool.ErrorResult(call, panicError(r))
		}

		s.orch.opts.Logger.Info("graph.tool.executed",
			"conversation_id", s.conv.ID(),
			"tool", call.Name,
			"call_id", call.ID,
			"error", res.IsError(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	return fn()
}
