package artifact

import "errors"

// ErrNotFound is returned when an artifact for the given conversation / id
// pair does not exist in the underlying store.
var ErrNotFound = errors.New("artifact not found")
