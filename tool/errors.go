package tool

import (
	"errors"
	"fmt"

	"github.com/hupe1980/analystloop/core"
	"github.com/hupe1980/analystloop/query"
	"github.com/hupe1980/analystloop/sandbox"
	"github.com/hupe1980/analystloop/staging"
	"github.com/hupe1980/analystloop/tabular"
)

// Error codes carried by ToolError.
const (
	CodeEmptyResult    = "EMPTY_RESULT"
	CodeColumnMismatch = "COLUMN_MISMATCH"
	CodeStage          = "STAGE_ERROR"
	CodeExecution      = "EXECUTION_ERROR"
	CodeTransport      = "TRANSPORT_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeUnknownTool    = "UNKNOWN_TOOL"
)

// ErrUnknownTool is returned for tool calls naming neither tool.
var ErrUnknownTool = errors.New("unknown tool")

// ToolError represents a recoverable failure of one tool call.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Code    string `json:"code"`    // Error code for categorization
	Message string `json:"message"` // Error message
	Err     error  `json:"-"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// Reason is the short cause recorded in the raw error payload.
func (e *ToolError) Reason() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// CodeOf classifies any error into a ToolError code.
func CodeOf(err error) string {
	var te *ToolError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}

	switch {
	case errors.Is(err, tabular.ErrEmptyResult):
		return CodeEmptyResult
	case errors.Is(err, tabular.ErrColumnMismatch):
		return CodeColumnMismatch
	case errors.Is(err, staging.ErrStage):
		return CodeStage
	case errors.Is(err, sandbox.ErrTransport), errors.Is(err, query.ErrTransport):
		return CodeTransport
	case errors.Is(err, ErrUnknownTool):
		return CodeUnknownTool
	default:
		return CodeExecution
	}
}

// Wrap converts err into a ToolError for the named tool. Existing
// ToolErrors are returned unchanged.
func Wrap(toolName string, err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}

	code := CodeOf(err)
	msg := err.Error()

	switch code {
	case CodeEmptyResult:
		msg = "the query returned no rows; revise the query and try again"
	case CodeColumnMismatch:
		msg = err.Error() + "; make column_names match the selected expressions"
	case CodeTransport:
		msg = err.Error() + "; the service may be temporarily unavailable"
	case CodeExecution:
		if errors.Is(err, query.ErrRowLimit) {
			msg = err.Error() + "; aggregate, filter or add a LIMIT in SQL so the result fits"
		}
	}

	return &ToolError{Tool: toolName, Code: code, Message: msg, Err: err}
}

// ErrorResult converts err into the tool result for call. The model-facing
// text names the code and message; the raw payload is {"error": reason}.
func ErrorResult(call core.ToolCall, err error) core.ToolResultMessage {
	te := Wrap(call.Name, err)
	return core.NewToolError(call, te.Error(), te.Reason())
}

// UnknownToolResult is the result for a call naming neither tool.
func UnknownToolResult(call core.ToolCall) core.ToolResultMessage {
	return ErrorResult(call, &ToolError{
		Tool:    call.Name,
		Code:    CodeUnknownTool,
		Message: fmt.Sprintf("no tool named %q; use %s or %s", call.Name, Query.Name, Code.Name),
		Err:     ErrUnknownTool,
	})
}
