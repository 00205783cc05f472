package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/analystloop/core"
	"github.com/hupe1980/analystloop/internal/testutil"
	"github.com/hupe1980/analystloop/model"
)

func TestBuildMessages(t *testing.T) {
	call := testutil.QueryCall("c1", "SELECT 1", []string{"n"}, "s")
	req := model.Request{
		Instructions: "be helpful",
		Messages: testutil.NewConversationBuilder().
			Human("count sessions").
			Calls(call).
			Result(call, "Query succeeded.", map[string]any{"secret": true}).
			Model("there are 5").
			Messages(),
	}

	msgs, err := buildMessages(req)
	require.NoError(t, err)
	require.Len(t, msgs, 5)

	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "c1", msgs[2].OfAssistant.ToolCalls[0].ID)
	assert.Equal(t, core.QueryToolName, msgs[2].OfAssistant.ToolCalls[0].Function.Name)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "c1", msgs[3].OfTool.ToolCallID)
	assert.NotNil(t, msgs[4].OfAssistant)
}

func TestBuildMessages_NoInstructions(t *testing.T) {
	msgs, err := buildMessages(model.Request{Messages: []core.Message{core.NewHumanMessage("hi")}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.NotNil(t, msgs[0].OfUser)
}

func TestBuildParams_Tools(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "gpt-test" })
	params := m.buildParams(model.Request{Tools: []model.ToolDefinition{{
		Type:     "function",
		Function: model.FunctionDefinition{Name: "execute_python", Parameters: map[string]any{"type": "object"}},
	}}}, nil)

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "execute_python", params.Tools[0].Function.Name)
	assert.Equal(t, "gpt-test", m.Info().Name)
	assert.Equal(t, "openai", m.Info().Provider)
}
