package graph

import "github.com/hupe1980/analystloop/core"

// Node identifies a state of the orchestration loop.
type Node int

const (
	// NodeModelDecision asks the model for the next turn. It is the initial
	// and re-entry state.
	NodeModelDecision Node = iota
	// NodeQueryExecution runs every query tool call of the latest model turn.
	NodeQueryExecution
	// NodeCodeExecution stages datasets and runs every code tool call of the
	// latest model turn.
	NodeCodeExecution
	// NodeTerminal ends the loop with the latest model text as the answer.
	NodeTerminal
)

func (n Node) String() string {
	switch n {
	case NodeModelDecision:
		return "model_decision"
	case NodeQueryExecution:
		return "query_execution"
	case NodeCodeExecution:
		return "code_execution"
	case NodeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Route decides whether the loop continues after a model decision. It looks
// only at the latest message: a model turn with at least one tool call
// continues to NodeQueryExecution whatever the tools are, a model turn
// without tool calls terminates. Any other message still needs a decision.
func Route(last core.Message) Node {
	switch m := last.(type) {
	case core.ModelMessage:
		if m.HasToolCalls() {
			return NodeQueryExecution
		}
		return NodeTerminal
	case core.HumanMessage, core.ToolResultMessage:
		return NodeModelDecision
	default:
		return NodeModelDecision
	}
}

// Transition returns the node following from once it has run.
func Transition(from Node, last core.Message) Node {
	switch from {
	case NodeModelDecision:
		return Route(last)
	case NodeQueryExecution:
		return NodeCodeExecution
	case NodeCodeExecution:
		return NodeModelDecision
	case NodeTerminal:
		return NodeTerminal
	default:
		return NodeTerminal
	}
}
