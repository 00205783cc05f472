// Package artifact contains concrete implementations of core.ArtifactStore.
//
// The canonical ArtifactStore interface lives in the core package to avoid
// dependency cycles. Rendered execution artifacts (plots and other binary
// results) are saved here keyed by conversation id so a caller can retrieve
// them after a turn completes.
package artifact
