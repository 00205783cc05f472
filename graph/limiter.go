package graph

import (
	"errors"
	"fmt"
)

// ErrMaxTurns is returned when a question needs more model decisions than
// the configured cap.
var ErrMaxTurns = errors.New("exceeded max model turns")

// TurnLimiter enforces a maximum number of model decisions per question.
type TurnLimiter struct {
	max   int
	count int
}

// NewTurnLimiter creates a new limiter with a max number of decisions.
// If max == 0, unlimited decisions are allowed.
func NewTurnLimiter(max int) *TurnLimiter {
	return &TurnLimiter{max: max}
}

// Increment increases the decision counter and returns an error wrapping
// ErrMaxTurns if the limit is exceeded.
func (l *TurnLimiter) Increment() error {
	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("%w: %d", ErrMaxTurns, l.max)
	}

	return nil
}

// Count returns the number of decisions taken so far.
func (l *TurnLimiter) Count() int { return l.count }

// Remaining returns how many decisions are left, or -1 when unlimited.
func (l *TurnLimiter) Remaining() int {
	if l.max == 0 {
		return -1
	}

	return l.max - l.count
}
