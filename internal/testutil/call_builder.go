package testutil

import (
	"encoding/json"

	"github.com/hupe1980/analystloop/core"
)

// QueryCall builds a query tool call with JSON-encoded arguments.
// Example:
//
//	call := QueryCall("c1", "SELECT count(*) FROM sessions", []string{"n"}, "s")
func QueryCall(id, query string, columns []string, dataset string) core.ToolCall {
	return Call(id, core.QueryToolName, map[string]any{
		"query":        query,
		"column_names": columns,
		"dataset_name": dataset,
	})
}

// CodeCall builds a code tool call with JSON-encoded arguments.
func CodeCall(id, code string) core.ToolCall {
	return Call(id, core.CodeToolName, map[string]any{"code": code})
}

// Call builds a tool call for any tool name, JSON-encoding args.
func Call(id, name string, args any) core.ToolCall {
	b, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return core.ToolCall{ID: id, Name: name, Arguments: string(b)}
}
