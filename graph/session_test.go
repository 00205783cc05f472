package graph

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/analystloop/core"
	"github.com/hupe1980/analystloop/internal/testutil"
	"github.com/hupe1980/analystloop/model"
	"github.com/hupe1980/analystloop/query"
	"github.com/hupe1980/analystloop/render"
	"github.com/hupe1980/analystloop/sandbox"
	"github.com/hupe1980/analystloop/tabular"
	"github.com/hupe1980/analystloop/tool"
)

const countQuery = "SELECT count(*) FROM sessions"

type harness struct {
	model    *model.ScriptedModel
	queries  *testutil.FakeQuery
	sandbox  *testutil.FakeSandbox
	rendered []render.Artifact
	observed []core.Message
	orch     *Orchestrator
}

func newHarness(optFns ...func(o *Options)) *harness {
	h := &harness{
		model:   model.NewScriptedModel(),
		queries: testutil.NewFakeQuery(),
		sandbox: testutil.NewFakeSandbox(),
	}
	fns := append([]func(o *Options){func(o *Options) {
		o.Renderer = render.RendererFunc(func(_ context.Context, a render.Artifact) (string, error) {
			h.rendered = append(h.rendered, a)
			return "mem://" + a.Filename(), nil
		})
		o.OnMessage = func(_ string, m core.Message) { h.observed = append(h.observed, m) }
	}}, optFns...)
	h.orch = New(h.model, h.queries, h.sandbox, fns...)
	return h
}

func toolResults(msgs []core.Message) []core.ToolResultMessage {
	var out []core.ToolResultMessage
	for _, m := range msgs {
		if tr, ok := m.(core.ToolResultMessage); ok {
			out = append(out, tr)
		}
	}
	return out
}

func TestAsk_QuerySucceeds(t *testing.T) {
	h := newHarness()
	h.queries.On(countQuery, []any{877})
	h.model.
		Call(testutil.QueryCall("c1", countQuery, []string{"session_count"}, "s")).
		Reply("There are 877 sessions.")

	res, err := h.orch.Ask(context.Background(), "How many sessions are there?")
	require.NoError(t, err)

	assert.Equal(t, "There are 877 sessions.", res.Answer)
	assert.Equal(t, 2, res.Turns)
	require.Len(t, res.Messages, 4)

	results := toolResults(res.Messages)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].CallID)
	assert.Contains(t, results[0].Text, "1 row(s)")
	assert.Contains(t, results[0].Text, "1 column(s)")
	assert.NotContains(t, results[0].Text, "877")

	ds, ok := results[0].Raw.(*tabular.Dataset)
	require.True(t, ok)
	assert.Equal(t, [][]any{{877}}, ds.Rows())
	assert.Equal(t, []string{"session_count"}, ds.Columns())

	assert.Empty(t, h.sandbox.Uploads(), "no code call, nothing staged")
	assert.Empty(t, h.sandbox.Executed())
}

func TestAsk_EmptyResultContinues(t *testing.T) {
	h := newHarness()
	h.model.
		Call(testutil.QueryCall("c1", "SELECT * FROM sessions WHERE false", []string{"id"}, "s")).
		Reply("No sessions match.")

	sess := h.orch.NewSession()
	res, err := sess.Ask(context.Background(), "Find sessions")
	require.NoError(t, err)
	assert.Equal(t, "No sessions match.", res.Answer)

	results := toolResults(res.Messages)
	require.Len(t, results, 1)
	assert.Equal(t, map[string]any{"error": "no rows"}, results[0].Raw)
	assert.Contains(t, results[0].Text, tool.CodeEmptyResult)

	reqs := h.model.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	tr, ok := last.(core.ToolResultMessage)
	require.True(t, ok, "model decision follows the empty result")
	assert.Nil(t, tr.Raw)
	assert.Equal(t, results[0].Text, tr.Text)

	_, found := sess.Dataset("s")
	assert.False(t, found)
}

func TestAsk_CodeResultHidesBinaryArtifacts(t *testing.T) {
	png := []byte("\x89PNG fake image bytes")
	encoded := base64.StdEncoding.EncodeToString(png)

	h := newHarness()
	h.queries.On(countQuery, []any{877})
	h.sandbox.Returns(sandbox.Result{
		"plot": map[string]any{"type": "image", "base64_data": encoded},
		"n":    5,
	})
	h.model.
		Call(
			testutil.QueryCall("c1", countQuery, []string{"session_count"}, "s"),
			testutil.CodeCall("c2", "n = len(s)"),
		).
		Reply("Plotted.")

	res, err := h.orch.Ask(context.Background(), "Plot it")
	require.NoError(t, err)

	results := toolResults(res.Messages)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"c1", "c2"}, []string{results[0].CallID, results[1].CallID})
	assert.Equal(t, "{\n  \"n\": 5\n}", results[1].Text)
	assert.NotContains(t, results[1].Text, encoded)

	raw, ok := results[1].Raw.(sandbox.Result)
	require.True(t, ok)
	assert.Contains(t, raw, "plot")

	require.Len(t, h.rendered, 1)
	assert.Equal(t, png, h.rendered[0].Data)
	assert.Equal(t, res.ConversationID, h.rendered[0].ConversationID)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "plot", res.Artifacts[0].Key)
	assert.Equal(t, "mem://plot.png", res.Artifacts[0].Location)

	uploads := h.sandbox.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "/home/user/data/s.csv", uploads[0].Path)
	assert.Equal(t, "session_count\n877\n", uploads[0].Data)

	executed := h.sandbox.Executed()
	require.Len(t, executed, 1)
	assert.Equal(t, "import pandas as pd\ns = pd.read_csv(\"/home/user/data/s.csv\")\nn = len(s)", executed[0])
}

func TestAsk_TerminatesOnAnswerAfterToolTurn(t *testing.T) {
	h := newHarness()
	h.sandbox.Returns(sandbox.Result{"x": 1})
	h.model.Call(testutil.CodeCall("c1", "x = 1")).Reply("x is 1")

	res, err := h.orch.Ask(context.Background(), "what is x")
	require.NoError(t, err)
	assert.Equal(t, "x is 1", res.Answer)
	assert.Len(t, h.model.Requests(), 2)

	last := res.Messages[len(res.Messages)-1]
	m, ok := last.(core.ModelMessage)
	require.True(t, ok)
	assert.False(t, m.HasToolCalls())
}

func TestAsk_RawPayloadNeverReachesModel(t *testing.T) {
	h := newHarness()
	h.queries.On(countQuery, []any{877})
	h.sandbox.Returns(sandbox.Result{"plot": map[string]any{"type": "image", "base64_data": "aGVsbG8="}})
	h.model.
		Call(testutil.QueryCall("c1", countQuery, []string{"n"}, "s")).
		Call(testutil.CodeCall("c2", "plot()")).
		Reply("ok")

	_, err := h.orch.Ask(context.Background(), "go")
	require.NoError(t, err)

	for i, req := range h.model.Requests() {
		for _, tr := range toolResults(req.Messages) {
			assert.Nil(t, tr.Raw, "request %d carries a raw payload", i)
			assert.NotContains(t, tr.Text, "aGVsbG8=")
		}
		assert.Len(t, req.Tools, 2)
	}
}

func TestSession_DatasetsAccumulateAcrossTurnsAndQuestions(t *testing.T) {
	h := newHarness()
	h.queries.
		On("SELECT 1", []any{1}).
		On("SELECT 2", []any{2})
	h.sandbox.
		Returns(sandbox.Result{"ok": true}).
		Returns(sandbox.Result{"ok": true})
	h.model.
		Call(testutil.QueryCall("c1", "SELECT 1", []string{"v"}, "first")).
		Call(testutil.QueryCall("c2", "SELECT 2", []string{"v"}, "second"), testutil.CodeCall("c3", "a")).
		Reply("done").
		Call(testutil.CodeCall("c4", "b")).
		Reply("again")

	sess := h.orch.NewSession()
	_, err := sess.Ask(context.Background(), "one")
	require.NoError(t, err)

	res, err := sess.Ask(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, "again", res.Answer)
	assert.Equal(t, 2, res.Turns)

	executed := h.sandbox.Executed()
	require.Len(t, executed, 2)
	for _, code := range executed {
		assert.Contains(t, code, `first = pd.read_csv("/home/user/data/first.csv")`)
		assert.Contains(t, code, `second = pd.read_csv("/home/user/data/second.csv")`)
	}
	assert.Len(t, h.sandbox.Uploads(), 4)

	names := make([]string, 0)
	for _, ds := range sess.Datasets() {
		names = append(names, ds.Name())
	}
	assert.Equal(t, []string{"first", "second"}, names)

	var fromHistory []string
	for _, tr := range toolResults(sess.Messages()) {
		if ds, ok := tr.Raw.(*tabular.Dataset); ok {
			fromHistory = append(fromHistory, ds.Name())
		}
	}
	assert.Equal(t, names, fromHistory)

	reqs := h.model.Requests()
	assert.NotContains(t, reqs[0].Instructions, "Datasets already available")
	assert.Contains(t, reqs[1].Instructions, "Datasets already available: first.")
	assert.Contains(t, reqs[2].Instructions, "Datasets already available: first, second.")
}

func TestAsk_StagingFailureFailsEveryCodeCall(t *testing.T) {
	h := newHarness()
	h.queries.On(countQuery, []any{877})
	h.sandbox.FailUploads(fmt.Errorf("%w: disk full", sandbox.ErrTransport))
	h.model.
		Call(
			testutil.QueryCall("c1", countQuery, []string{"n"}, "s"),
			testutil.CodeCall("c2", "a"),
			testutil.CodeCall("c3", "b"),
		).
		Reply("could not stage")

	res, err := h.orch.Ask(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "could not stage", res.Answer)

	results := toolResults(res.Messages)
	require.Len(t, results, 3)
	assert.False(t, results[0].IsError())
	for _, r := range results[1:] {
		assert.True(t, r.IsError())
		assert.Contains(t, r.Text, tool.CodeStage)
	}
	assert.Empty(t, h.sandbox.Executed())
}

func TestAsk_RecoverableFailures(t *testing.T) {
	h := newHarness()
	h.queries.Fail("SELECT broken", fmt.Errorf("%w: syntax error", errors.New("query failed")))
	h.queries.On("SELECT wide", []any{1, 2})
	h.sandbox.Fails(fmt.Errorf("%w: NameError: name 'x' is not defined", sandbox.ErrExecution))
	h.model.
		Call(
			testutil.QueryCall("c1", "SELECT broken", []string{"a"}, "b"),
			testutil.QueryCall("c2", "SELECT wide", []string{"a"}, "w"),
			testutil.QueryCall("c3", "SELECT 1", []string{"a"}, "bad-name"),
			testutil.CodeCall("c4", "print(x)"),
			core.ToolCall{ID: "c5", Name: "delete_everything", Arguments: "{}"},
		).
		Reply("sorry")

	res, err := h.orch.Ask(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "sorry", res.Answer)

	results := toolResults(res.Messages)
	require.Len(t, results, 5)

	codes := make(map[string]string)
	for _, r := range results {
		require.True(t, r.IsError(), r.CallID)
		for _, c := range []string{tool.CodeExecution, tool.CodeColumnMismatch, tool.CodeValidation, tool.CodeUnknownTool} {
			if strings.Contains(r.Text, "["+c+"]") {
				codes[r.CallID] = c
			}
		}
	}
	assert.Equal(t, map[string]string{
		"c1": tool.CodeExecution,
		"c2": tool.CodeColumnMismatch,
		"c3": tool.CodeValidation,
		"c4": tool.CodeExecution,
		"c5": tool.CodeUnknownTool,
	}, codes)

	assert.Equal(t, []string{"SELECT broken", "SELECT wide"}, h.queries.Queries())
}

func TestAsk_RowLimitIsReportedNotStored(t *testing.T) {
	h := newHarness()
	h.queries.Fail("SELECT * FROM messages", &query.RowLimitError{Limit: 10000})
	h.model.
		Call(testutil.QueryCall("c1", "SELECT * FROM messages", []string{"id"}, "m")).
		Reply("too many rows")

	s := h.orch.NewSession()
	res, err := s.Ask(context.Background(), "how many messages?")
	require.NoError(t, err)

	results := toolResults(res.Messages)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError())
	assert.Contains(t, results[0].Text, "more than 10000 rows")
	assert.Empty(t, s.Datasets())
}

func TestAsk_ModelFailureEscapes(t *testing.T) {
	boom := errors.New("rate limited")
	h := newHarness()
	h.model.Fail(boom)

	res, err := h.orch.Ask(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.Answer)
	require.Len(t, res.Messages, 1)
}

func TestAsk_MaxTurns(t *testing.T) {
	h := newHarness(func(o *Options) { o.MaxTurns = 2 })
	h.sandbox.Returns(sandbox.Result{}).Returns(sandbox.Result{})
	h.model.
		Call(testutil.CodeCall("c1", "1")).
		Call(testutil.CodeCall("c2", "2")).
		Call(testutil.CodeCall("c3", "3"))

	res, err := h.orch.Ask(context.Background(), "loop")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxTurns)
	assert.Equal(t, 2, res.Turns)
	assert.Len(t, h.model.Requests(), 2)
	assert.Len(t, h.sandbox.Executed(), 2)
}

func TestAsk_CanceledContext(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orch.Ask(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.model.Requests())
}

func TestAsk_CollaboratorPanicIsRecovered(t *testing.T) {
	m := model.NewScriptedModel().
		Call(testutil.QueryCall("c1", "SELECT 1", []string{"a"}, "s")).
		Reply("recovered")
	orch := New(m, panickingQuery{}, testutil.NewFakeSandbox())

	res, err := orch.Ask(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Answer)

	results := toolResults(res.Messages)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Text, "panic recovered")
}

type panickingQuery struct{}

func (panickingQuery) Run(context.Context, string) ([][]any, error) { panic("driver bug") }

func TestAsk_ObservesEveryMessage(t *testing.T) {
	h := newHarness()
	h.queries.On(countQuery, []any{1})
	h.model.Call(testutil.QueryCall("c1", countQuery, []string{"n"}, "s")).Reply("1")

	res, err := h.orch.Ask(context.Background(), "count")
	require.NoError(t, err)
	assert.Equal(t, res.Messages, h.observed)
}

func TestAsk_AssignsMissingCallIDs(t *testing.T) {
	h := newHarness()
	h.sandbox.Returns(sandbox.Result{})
	h.model.Call(core.ToolCall{Name: core.CodeToolName, Arguments: `{"code":"1"}`}).Reply("ok")

	res, err := h.orch.Ask(context.Background(), "go")
	require.NoError(t, err)

	results := toolResults(res.Messages)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].CallID)

	m, ok := res.Messages[1].(core.ModelMessage)
	require.True(t, ok)
	assert.Equal(t, m.ToolCalls[0].ID, results[0].CallID)
}
