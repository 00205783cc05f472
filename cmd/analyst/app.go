package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/analystloop/artifact"
	"github.com/hupe1980/analystloop/config"
	"github.com/hupe1980/analystloop/core"
	"github.com/hupe1980/analystloop/graph"
	"github.com/hupe1980/analystloop/logging"
	"github.com/hupe1980/analystloop/model"
	"github.com/hupe1980/analystloop/model/anthropic"
	"github.com/hupe1980/analystloop/model/openai"
	"github.com/hupe1980/analystloop/query/postgres"
	"github.com/hupe1980/analystloop/render"
	"github.com/hupe1980/analystloop/sandbox"
)

// defaultInstruction describes the imported chat schema to the model.
const defaultInstruction = `You are a data analyst answering questions about a chat history stored in PostgreSQL.

Tables:
- sessions(id SERIAL, session_id TEXT UNIQUE, source TEXT, memory_type TEXT, email TEXT)
- messages(id SERIAL, session_id TEXT REFERENCES sessions(session_id), content TEXT, role TEXT,
  time TIMESTAMP, used_tools JSONB, file_annotations JSONB)

Use query_database to fetch exactly the data you need into a named dataset. Declare one column
name per selected expression. Use execute_python for calculations and charts; every dataset is
loaded as a pandas DataFrame with the dataset's name. Charts you create are shown to the user.
{{- if .Datasets}}
Datasets already available: {{join ", " .Datasets}}.
{{- end}}
When you can answer, reply in plain text without calling a tool.`

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if rootFlags.logLevel != "" {
		cfg.Log.Level = rootFlags.logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config, out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    out,
		Component: "analyst",
	}), nil
}

func newModel(cfg config.Config) (model.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func newRenderer(cfg config.Config, store core.ArtifactStore) render.Renderer {
	renderers := []render.Renderer{render.NewStoreRenderer(store)}
	if cfg.ArtifactDir != "" {
		renderers = append(renderers, render.NewDirRenderer(cfg.ArtifactDir))
	}
	return render.Multi(renderers...)
}

// app bundles the wired orchestrator with the resources it owns.
type app struct {
	orch      *graph.Orchestrator
	pool      *pgxpool.Pool
	artifacts *artifact.InMemoryStore
	logger    logging.Logger
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func newApp(ctx context.Context, cfg config.Config, narrate io.Writer) (*app, error) {
	if err := cfg.Validate(true); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	llm, err := newModel(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	queries := postgres.New(pool, func(o *postgres.Options) {
		o.MaxRows = cfg.MaxRows
		o.Logger = logger
	})

	sb := sandbox.NewClient(cfg.Sandbox.URL, func(o *sandbox.Options) {
		o.Token = cfg.Sandbox.Token
		o.Logger = logger
	})

	store := artifact.NewInMemoryStore()

	instruction := cfg.Instruction
	if instruction == "" {
		instruction = defaultInstruction
	}

	orch := graph.New(llm, queries, sb, func(o *graph.Options) {
		o.MaxTurns = cfg.MaxTurns
		o.Instruction = instruction
		o.DataDir = cfg.Sandbox.DataDir
		o.Renderer = newRenderer(cfg, store)
		o.Logger = logger
		if narrate != nil {
			o.OnMessage = func(_ string, m core.Message) { narrateMessage(narrate, m) }
		}
	})

	return &app{orch: orch, pool: pool, artifacts: store, logger: logger}, nil
}

// narrateMessage prints one line per tool call and tool result.
func narrateMessage(w io.Writer, m core.Message) {
	switch m := m.(type) {
	case core.ModelMessage:
		for _, c := range m.ToolCalls {
			fmt.Fprintf(w, "→ %s %s\n", c.Name, truncate(c.Arguments, 160))
		}
	case core.ToolResultMessage:
		status := "ok"
		if m.IsError() {
			status = "error"
		}
		fmt.Fprintf(w, "← %s [%s] %s\n", m.ToolName, status, truncate(oneLine(m.Text), 160))
	case core.HumanMessage:
	}
}

func printResult(w io.Writer, res graph.Result) {
	fmt.Fprintln(w, res.Answer)
	for _, a := range res.Artifacts {
		if a.Error != "" {
			fmt.Fprintf(w, "  artifact %s: %s\n", a.Key, a.Error)
			continue
		}
		fmt.Fprintf(w, "  artifact %s: %s\n", a.Key, a.Location)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
