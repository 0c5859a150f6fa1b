// Package progress turns the terminal's progress events into a UI state and message.
//
// The reducer functions in this file are pure: they take a Snapshot and return the
// next one, so they can be driven from any goroutine model. Tracker wraps them with
// locking and fan-out for callers that share one snapshot.
package progress

import (
	"strings"

	"bridge-pos-payments/internal/terminal"
)

// Snapshot is the reducer state for one operation.
type Snapshot struct {
	Operation  OperationKind            `json:"operation,omitempty"`
	State      State                    `json:"state"`
	Message    string                   `json:"message"`
	Keystrokes int                      `json:"keystrokes"`
	LastEvent  terminal.EventCode       `json:"last_event,omitempty"`
	Err        *terminal.OperationError `json:"error,omitempty"`
}

func (s Snapshot) IsProcessing() bool { return s.State.IsProcessing() }

func (s Snapshot) IsSuccess() bool { return s.State.IsSuccess() }

func (s Snapshot) IsError() bool { return s.State.IsError() }

// Idle is the initial snapshot.
func Idle() Snapshot {
	return Snapshot{State: StateIdle}
}

// Start opens a new operation. Everything left over from a previous operation,
// including the keystroke counter, is discarded.
func Start(kind OperationKind, c *Catalog) Snapshot {
	return Snapshot{
		Operation: kind,
		State:     StateProcessing,
		Message:   c.Start,
	}
}

// Apply folds one progress event into s. Events arriving while idle are ignored.
func Apply(s Snapshot, ev terminal.ProgressEvent, c *Catalog) Snapshot {
	if s.State == StateIdle {
		return s
	}
	s.LastEvent = ev.Code

	switch ev.Code {
	case terminal.EventDigitPassword:
		s.Keystrokes++
		s.State = StateDigitPassword
		s.Message = c.PasswordPrefix + strings.Repeat(c.PasswordMask, s.Keystrokes)
		return s

	case terminal.EventNoPassword:
		s.Keystrokes = 0

	case terminal.EventError:
		msg := firstNonEmpty(ev.Message, c.EventFallback)
		s.State = StateError
		s.Message = msg
		s.Err = terminal.NewOperationError(terminal.CodeGatewayFailure, msg)
		return s

	case terminal.EventCustomMessage:
		if ev.Message != "" {
			s.Message = ev.Message
		}
		return s
	}

	t, ok := c.lookup(ev.Code)
	if !ok {
		s.State = StateDefault
		s.Message = firstNonEmpty(ev.Message, c.Unknown)
		return s
	}
	s.State = t.state
	s.Message = t.message
	return s
}

// Succeed records that the gateway settled with a transaction.
func Succeed(s Snapshot, c *Catalog) Snapshot {
	s.State = StateSuccess
	s.Message = c.Success
	s.Err = nil
	return s
}

// Fail records a rejected operation. The message is never empty.
func Fail(s Snapshot, err *terminal.OperationError, c *Catalog) Snapshot {
	s.State = StateError
	s.Err = err
	s.Message = c.Failure
	if err != nil && err.Message != "" {
		s.Message = err.Message
	}
	return s
}

// Reset returns to IDLE unless an operation is still processing, in which case s is
// returned unchanged with false.
func Reset(s Snapshot) (Snapshot, bool) {
	if s.IsProcessing() {
		return s, false
	}
	return Idle(), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
