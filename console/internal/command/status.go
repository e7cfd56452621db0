package command

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of one dispatched command.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusReceived  Status = "received"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
	StatusTimeout   Status = "timeout"
)

var ErrIllegalTransition = errors.New("illegal command status transition")

var transitions = map[Status][]Status{
	StatusIdle:     {StatusSending, StatusError},
	StatusSending:  {StatusSent, StatusReceived, StatusCompleted, StatusFailed, StatusError, StatusTimeout},
	StatusSent:     {StatusReceived, StatusCompleted, StatusFailed, StatusError, StatusTimeout},
	StatusReceived: {StatusCompleted, StatusFailed, StatusError, StatusTimeout},
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	switch st {
	case StatusIdle, StatusSending, StatusSent, StatusReceived,
		StatusCompleted, StatusFailed, StatusError, StatusTimeout:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is valid from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusError, StatusTimeout:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to.
func Transition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
