// Package sandbox defines the remote code-execution collaborator and ships an
// HTTP client for sandbox services that expose an execute endpoint and a
// file-upload endpoint.
package sandbox

import (
	"context"
	"errors"
)

var (
	// ErrExecution is returned when the sandbox ran the code and it failed
	// (syntax error, raised exception, non-zero exit).
	ErrExecution = errors.New("code execution failed")

	// ErrTransport is returned when the sandbox could not be reached or
	// answered with a server-side failure.
	ErrTransport = errors.New("sandbox transport failure")
)

// Result is the heterogeneous execution payload: artifact key to either a
// plain value or a tagged binary-artifact descriptor such as
// {"type": "image", "base64_data": "..."}.
type Result map[string]any

// Executor runs code in the remote environment.
type Executor interface {
	Execute(ctx context.Context, code string) (Result, error)
}

// Uploader is the file-staging interface of the execution environment.
type Uploader interface {
	Upload(ctx context.Context, data []byte, remotePath string) error
}

// Sandbox is a remote environment that can both stage files and run code.
type Sandbox interface {
	Executor
	Uploader
}
