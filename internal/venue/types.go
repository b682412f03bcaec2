package venue

import (
	"context"
	"fmt"
	"time"
)

// Direction is the side of a submitted action.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "UP"
	case DirectionDown:
		return "DOWN"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection maps the config spelling onto a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "UP", "up", "Up":
		return DirectionUp, nil
	case "DOWN", "down", "Down":
		return DirectionDown, nil
	default:
		return 0, fmt.Errorf("invalid direction %q, expected UP or DOWN", s)
	}
}

// ActionID is the venue's opaque handle for a submitted action.
type ActionID string

// Outcome is the resolution state of a submitted action.
//
// The zero value is OutcomeUnknown: the action was submitted but its
// resolution was never observed (poll timeout).
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomePending
	OutcomeWin
	OutcomeLoss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "UNKNOWN"
	case OutcomePending:
		return "PENDING"
	case OutcomeWin:
		return "WIN"
	case OutcomeLoss:
		return "LOSS"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Resolved reports whether the outcome is terminal (win or loss).
func (o Outcome) Resolved() bool { return o == OutcomeWin || o == OutcomeLoss }

// SubmitRequest describes one action to place.
type SubmitRequest struct {
	Asset     string
	Direction Direction
	Stake     float64
	Duration  time.Duration
}

// Submitter places actions on the venue.
//
// Submit is called at most once per escalation level; callers never retry a
// failed submission.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (ActionID, error)
}

// OutcomePoller checks whether a submitted action has resolved.
//
// Poll is called repeatedly until it returns a resolved outcome or the
// caller's timeout window elapses. Transient errors are absorbed by the
// caller.
type OutcomePoller interface {
	Poll(ctx context.Context, id ActionID) (Outcome, error)
}

// SubmissionError is a venue rejection of an action. It is fatal for the
// sequence that submitted it.
type SubmissionError struct {
	Code   string
	Reason string
}

func (e *SubmissionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("venue rejected submission (%s): %s", e.Code, e.Reason)
	}
	return "venue rejected submission: " + e.Reason
}

// PollError is a transient failure while checking an action's outcome.
type PollError struct {
	ID  ActionID
	Err error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s: %v", e.ID, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }
