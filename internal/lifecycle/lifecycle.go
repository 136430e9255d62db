// Package lifecycle owns the appointment status state machine. Every status
// mutation in the engine goes through Transition, so invalid paths (for example
// pending straight to completed) cannot be reached.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/avelsher/slotbook/internal/model"
)

var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.StatusPending: {
		model.StatusConfirmed,
		model.StatusCancelled,
		model.StatusNoShow,
		model.StatusNeedsReschedule,
	},
	model.StatusConfirmed: {
		model.StatusCompleted,
		model.StatusCancelled,
		model.StatusNoShow,
		model.StatusNeedsReschedule,
	},
	// needs_reschedule resolves either by the client cancelling or by a new
	// booking replacing the appointment; it never transitions forward itself.
	model.StatusNeedsReschedule: {
		model.StatusCancelled,
	},
	model.StatusCancelled: nil,
	model.StatusCompleted: nil,
	model.StatusNoShow:    nil,
}

type InvalidTransitionError struct {
	From    model.AppointmentStatus
	To      model.AppointmentStatus
	Allowed []model.AppointmentStatus
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid status transition %s -> %s (%s is terminal)", e.From, e.To, e.From)
	}
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("invalid status transition %s -> %s (allowed: %s)", e.From, e.To, strings.Join(allowed, ", "))
}

// Allowed returns the valid target statuses from the given status.
func Allowed(from model.AppointmentStatus) []model.AppointmentStatus {
	return transitions[from]
}

func CanTransition(from, to model.AppointmentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a status change, returning *InvalidTransitionError when
// the table does not permit it.
func Transition(from, to model.AppointmentStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return &InvalidTransitionError{From: from, To: to, Allowed: transitions[from]}
}

// Terminal reports whether no further transitions exist from the status.
func Terminal(s model.AppointmentStatus) bool {
	return len(transitions[s]) == 0
}
