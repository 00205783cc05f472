package graph

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/hupe1980/analystloop/classify"
	"github.com/hupe1980/analystloop/core"
	"github.com/hupe1980/analystloop/logging"
	"github.com/hupe1980/analystloop/model"
	"github.com/hupe1980/analystloop/query"
	"github.com/hupe1980/analystloop/render"
	"github.com/hupe1980/analystloop/sandbox"
	"github.com/hupe1980/analystloop/staging"
)

// DefaultMaxTurns caps model decisions per question.
const DefaultMaxTurns = 10

// DefaultInstruction is the system instruction used when none is configured.
// It is a text/template rendered with .Datasets before every decision.
const DefaultInstruction = `You are a data analyst. Answer the user's question using the tools.
Use query_database to fetch data into a named dataset and execute_python to analyse or plot it.
Datasets are loaded as pandas DataFrames named after the dataset.
{{- if .Datasets}}
Datasets already available: {{join ", " .Datasets}}.
{{- end}}
When you have the answer, reply without calling any tool.`

// Options configure an Orchestrator.
type Options struct {
	// MaxTurns caps model decisions per question; 0 means unlimited.
	MaxTurns int
	// Instruction is the system instruction template.
	Instruction string
	// DataDir is the sandbox directory datasets are staged into.
	DataDir string
	// Renderer displays binary artifacts; defaults to render.Discard.
	Renderer render.Renderer
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
	// OnMessage, if set, observes every message appended to a conversation.
	OnMessage func(conversationID string, msg core.Message)
}

// Orchestrator wires the collaborators of the loop. It holds no
// conversation state; each Session owns its own.
type Orchestrator struct {
	model      model.Model
	queries    query.Executor
	sandbox    sandbox.Sandbox
	stager     *staging.Stager
	classifier *classify.Classifier
	opts       Options
}

// New creates an Orchestrator.
func New(m model.Model, queries query.Executor, sb sandbox.Sandbox, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxTurns:    DefaultMaxTurns,
		Instruction: DefaultInstruction,
		DataDir:     staging.DefaultDataDir,
		Renderer:    render.Discard,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		model:   m,
		queries: queries,
		sandbox: sb,
		stager: staging.New(sb, func(o *staging.Options) {
			o.DataDir = opts.DataDir
			o.Logger = opts.Logger
		}),
		classifier: classify.New(func(o *classify.Options) {
			o.Renderer = opts.Renderer
			o.Logger = opts.Logger
		}),
		opts: opts,
	}
}

// NewSession starts an empty conversation.
func (o *Orchestrator) NewSession() *Session {
	return &Session{
		orch:     o,
		conv:     core.NewConversation(),
		datasets: newDatasetIndex(),
	}
}

// Ask answers a single question in a fresh session.
func (o *Orchestrator) Ask(ctx context.Context, question string) (Result, error) {
	return o.NewSession().Ask(ctx, question)
}

// panicError converts a recovered collaborator panic into an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
