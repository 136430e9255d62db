package scheduling

import (
	"context"
	"time"

	"github.com/avelsher/slotbook/internal/availability"
	"github.com/avelsher/slotbook/internal/model"
)

// AppointmentRepository persists appointments. Create and Reassign are the two
// serialized write paths: implementations must perform the overlap check and the
// write as one atomic unit scoped to the target employee's appointments and
// blocked times, returning ErrConflict when the window is taken.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id string) (model.Appointment, error)
	GetByCancelToken(ctx context.Context, token string) (model.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]model.Appointment, error)

	// BusyIntervals returns the occupied windows of non-cancelled appointments
	// for one employee within [from, to).
	BusyIntervals(ctx context.Context, employeeID int64, from, to time.Time) ([]availability.Interval, error)

	// UpdateStatus applies a status change guarded by the expected current
	// status; ErrConflict when the row moved under the caller, ErrNotFound when
	// the id is unknown.
	UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) error

	// Cancel marks the appointment cancelled and records the reason.
	Cancel(ctx context.Context, id, reason string) (time.Time, error)

	// Reassign re-checks the target employee's window and moves the assignment.
	Reassign(ctx context.Context, id string, employeeID int64) error
}

type AppointmentFilter struct {
	Status     *model.AppointmentStatus
	EmployeeID *int64
	From       *time.Time
	To         *time.Time
	Limit      int
}

// AvailabilityRepository is owned by administrative configuration; the
// scheduling algorithms only read it.
type AvailabilityRepository interface {
	ListForWeekday(ctx context.Context, weekday time.Weekday) ([]model.AvailabilityRule, error)
	ListAll(ctx context.Context) ([]model.AvailabilityRule, error)
	Create(ctx context.Context, rule *model.AvailabilityRule) error
	Update(ctx context.Context, rule model.AvailabilityRule) error
	Delete(ctx context.Context, id int64) error
}

type BlockedTimeRepository interface {
	// ListInRange returns every employee's blocks intersecting [from, to).
	ListInRange(ctx context.Context, from, to time.Time) ([]model.BlockedTime, error)
	ListForEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]model.BlockedTime, error)
	Create(ctx context.Context, block *model.BlockedTime) error
	Update(ctx context.Context, block model.BlockedTime) error
	Delete(ctx context.Context, id string) error
}

// EmployeeDirectory is a read-only lookup into the personnel subsystem.
type EmployeeDirectory interface {
	List(ctx context.Context) ([]model.Employee, error)
	Get(ctx context.Context, id int64) (model.Employee, error)
}

// Clock supplies "now" in the business timezone so date-boundary behavior is
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

func NewSystemClock(loc *time.Location) Clock {
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Notifier delivers client and staff notifications after state transitions.
// Dispatch is best-effort: the service logs failures and never rolls back a
// committed transition because of one.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt model.Appointment) error
	AppointmentConfirmed(ctx context.Context, appt model.Appointment) error
	AppointmentCancelled(ctx context.Context, appt model.Appointment) error
	RescheduleRequested(ctx context.Context, appt model.Appointment, message string) error
	EmployeeAssigned(ctx context.Context, emp model.Employee, appt model.Appointment) error
}
