// Package tool declares the two tools offered to the model (the query tool
// and the code tool), decodes and validates their arguments, and maps every
// recoverable failure onto a ToolError code that becomes a tool result.
package tool

import (
	"github.com/hupe1980/analystloop/core"
	"github.com/hupe1980/analystloop/internal/util"
	"github.com/hupe1980/analystloop/model"
)

// Spec describes one tool exposed to the model.
type Spec struct {
	ID          core.ToolID
	Name        string
	Description string
	Parameters  map[string]any
}

// Definition converts s into the provider-agnostic tool definition.
func (s Spec) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		},
	}
}

var (
	// Query runs a read-only SQL query and stores the rows as a named dataset.
	Query = Spec{
		ID:   core.ToolQuery,
		Name: core.QueryToolName,
		Description: "Run a read-only SQL query against the database. The rows are stored as a " +
			"named dataset that later execute_python calls can load as a pandas DataFrame " +
			"variable of the same name. Only a summary of the result is returned.",
		Parameters: util.CreateSchema(QueryArgs{}),
	}

	// Code runs Python in the remote sandbox with every dataset preloaded.
	Code = Spec{
		ID:   core.ToolCode,
		Name: core.CodeToolName,
		Description: "Execute Python code in a sandbox. Every dataset produced by query_database " +
			"is preloaded as a pandas DataFrame named after the dataset. Values of the final " +
			"result are returned; images (for example matplotlib figures) are shown to the user " +
			"but not returned to you.",
		Parameters: util.CreateSchema(CodeArgs{}),
	}
)

// Specs returns both tool specs in declaration order.
func Specs() []Spec { return []Spec{Query, Code} }

// Definitions returns the tool definitions sent with every model decision.
func Definitions() []model.ToolDefinition {
	specs := Specs()
	defs := make([]model.ToolDefinition, 0, len(specs))
	for _, s := range specs {
		defs = append(defs, s.Definition())
	}
	return defs
}
