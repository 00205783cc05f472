// Package model defines the provider‑agnostic abstractions for the
// model-decision collaborator.
//
// Core goals:
//   - One decision per Request: history in, a single core.ModelMessage out
//   - Normalize tool / function call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic tests (ScriptedModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface so the
// orchestrator stays decoupled from vendor SDKs. Providers only ever read the
// model-facing text of tool results.
package model
