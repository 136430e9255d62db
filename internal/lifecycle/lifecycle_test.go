package lifecycle

import (
	"errors"
	"strings"
	"testing"

	"github.com/avelsher/slotbook/internal/model"
)

func TestTransitionTable(t *testing.T) {
	valid := []struct {
		from, to model.AppointmentStatus
	}{
		{model.StatusPending, model.StatusConfirmed},
		{model.StatusPending, model.StatusCancelled},
		{model.StatusPending, model.StatusNoShow},
		{model.StatusPending, model.StatusNeedsReschedule},
		{model.StatusConfirmed, model.StatusCompleted},
		{model.StatusConfirmed, model.StatusCancelled},
		{model.StatusConfirmed, model.StatusNoShow},
		{model.StatusConfirmed, model.StatusNeedsReschedule},
		{model.StatusNeedsReschedule, model.StatusCancelled},
	}
	for _, tc := range valid {
		if err := Transition(tc.from, tc.to); err != nil {
			t.Fatalf("%s -> %s should be valid: %v", tc.from, tc.to, err)
		}
	}

	invalid := []struct {
		from, to model.AppointmentStatus
	}{
		{model.StatusPending, model.StatusCompleted},
		{model.StatusCancelled, model.StatusPending},
		{model.StatusCancelled, model.StatusConfirmed},
		{model.StatusCompleted, model.StatusCancelled},
		{model.StatusNoShow, model.StatusConfirmed},
		{model.StatusNeedsReschedule, model.StatusCompleted},
		{model.StatusNeedsReschedule, model.StatusConfirmed},
	}
	for _, tc := range invalid {
		err := Transition(tc.from, tc.to)
		if err == nil {
			t.Fatalf("%s -> %s should be rejected", tc.from, tc.to)
		}
		var ite *InvalidTransitionError
		if !errors.As(err, &ite) {
			t.Fatalf("expected *InvalidTransitionError, got %T", err)
		}
		if ite.From != tc.from || ite.To != tc.to {
			t.Fatalf("error carries wrong statuses: %+v", ite)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []model.AppointmentStatus{model.StatusCancelled, model.StatusCompleted, model.StatusNoShow} {
		if !Terminal(s) {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []model.AppointmentStatus{model.StatusPending, model.StatusConfirmed, model.StatusNeedsReschedule} {
		if Terminal(s) {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestInvalidTransitionMessageListsAllowed(t *testing.T) {
	err := Transition(model.StatusPending, model.StatusCompleted)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"pending", "completed", "confirmed"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}
