// Package core provides the foundational domain types shared by every node
// of the analysis loop:
//
//   - Message, a closed sum of HumanMessage, ModelMessage and ToolResultMessage
//   - ToolCall and the ToolID enumeration of the two declared tools
//   - Conversation, the append-only history that drives routing
//   - ArtifactStore, the pluggable store for rendered binary artifacts
//
// A ToolResultMessage carries two representations of one outcome: Text, the
// bounded summary the model may see, and Raw, the unrestricted payload used by
// later nodes and the end user. ModelView strips Raw before any model call.
package core
