// Package graph drives the analysis loop: a four-node state machine
// (ModelDecision, QueryExecution, CodeExecution, Terminal) that threads an
// append-only conversation through the model-decision, query-execution and
// code-execution collaborators until the model answers without tool calls.
//
// Nodes run strictly sequentially and tool calls are processed in list
// order. Every collaborator failure except the model's own becomes a tool
// result the model can react to on its next decision; only a failed model
// decision, an exceeded turn cap or a canceled context end Session.Ask with
// an error.
//
// Datasets produced by the query tool are kept in a session-owned index
// keyed by dataset name. Only the query node writes it; the code node stages
// its full contents before each batch of code calls.
package graph
