// Package scheduling is the appointment engine: it decides when an appointment
// can be booked, assigns an employee, and guards every status change. The HTTP
// layer stays thin; all booking semantics live here.
package scheduling

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelsher/slotbook/internal/allocator"
	"github.com/avelsher/slotbook/internal/availability"
	"github.com/avelsher/slotbook/internal/lifecycle"
	"github.com/avelsher/slotbook/internal/model"
)

const maxBookingMinutes = 8 * 60

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Service struct {
	appts     AppointmentRepository
	rules     AvailabilityRepository
	blocks    BlockedTimeRepository
	employees EmployeeDirectory
	notifier  Notifier
	clock     Clock
	loc       *time.Location
	logger    *slog.Logger
}

func New(
	appts AppointmentRepository,
	rules AvailabilityRepository,
	blocks BlockedTimeRepository,
	employees EmployeeDirectory,
	notifier Notifier,
	clock Clock,
	loc *time.Location,
	logger *slog.Logger,
) *Service {
	return &Service{
		appts:     appts,
		rules:     rules,
		blocks:    blocks,
		employees: employees,
		notifier:  notifier,
		clock:     clock,
		loc:       loc,
		logger:    logger,
	}
}

// SlotInfo is a bookable slot enriched with the employee's display name.
type SlotInfo struct {
	Start        time.Time
	EmployeeID   int64
	EmployeeName string
}

// AvailableDates lists the calendar dates in the given month that accept
// bookings: at least one employee has an available rule for the weekday, the
// date is today or later, and not every such employee is blocked out for their
// whole working day.
func (s *Service) AvailableDates(ctx context.Context, year int, month time.Month) ([]time.Time, error) {
	if month < time.January || month > time.December {
		return nil, validationErr("month", "must be between 1 and 12")
	}

	all, err := s.rules.ListAll(ctx)
	if err != nil {
		return nil, storageErr("list availability", err)
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	blocks, err := s.blocks.ListInRange(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, storageErr("list blocked time", err)
	}
	blocksByEmployee := make(map[int64][]model.BlockedTime)
	for _, b := range blocks {
		blocksByEmployee[b.EmployeeID] = append(blocksByEmployee[b.EmployeeID], b)
	}

	today := s.dayStart(s.clock.Now())

	var dates []time.Time
	for d := monthStart; d.Before(monthEnd); d = d.AddDate(0, 0, 1) {
		if d.Before(today) {
			continue
		}
		var dayRules []model.AvailabilityRule
		for _, r := range all {
			if r.Weekday == d.Weekday() && r.Available {
				dayRules = append(dayRules, r)
			}
		}
		ids := allocator.Employees(dayRules)
		if len(ids) == 0 {
			continue
		}
		if s.dateFullyBlocked(d, ids, dayRules, blocksByEmployee) {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// dateFullyBlocked reports whether every available employee has all of their
// working windows on the date covered by blocked time.
func (s *Service) dateFullyBlocked(day time.Time, ids []int64, dayRules []model.AvailabilityRule, blocksByEmployee map[int64][]model.BlockedTime) bool {
	dayEnd := day.AddDate(0, 0, 1)
	for _, id := range ids {
		var blocked []availability.Interval
		for _, b := range blocksByEmployee[id] {
			if b.StartTime.Before(dayEnd) && b.EndTime.After(day) {
				blocked = append(blocked, availability.Interval{Start: b.StartTime, End: b.EndTime})
			}
		}
		covered := true
		for _, r := range dayRules {
			if r.EmployeeID != id {
				continue
			}
			window := availability.Interval{
				Start: day.Add(time.Duration(r.StartMinute) * time.Minute),
				End:   day.Add(time.Duration(r.EndMinute) * time.Minute),
			}
			if !availability.Covered(window, blocked) {
				covered = false
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// AvailableSlots lists the bookable (time, employee) pairs on a date. It is a
// pure read: results are advisory and may be stale by the time a booking call
// runs, which is why Book re-validates through the allocator.
func (s *Service) AvailableSlots(ctx context.Context, date time.Time, duration time.Duration) ([]SlotInfo, error) {
	if duration <= 0 {
		return nil, validationErr("duration_minutes", "must be positive")
	}
	if duration > maxBookingMinutes*time.Minute {
		return nil, validationErr("duration_minutes", "too long")
	}

	day := s.dayStart(date)
	dayRules, err := s.rules.ListForWeekday(ctx, day.Weekday())
	if err != nil {
		return nil, storageErr("list availability", err)
	}
	ids := allocator.Employees(dayRules)
	if len(ids) == 0 {
		return nil, nil
	}

	busy, err := s.busyFor(ctx, ids, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	names, err := s.employeeNames(ctx)
	if err != nil {
		return nil, err
	}

	var out []SlotInfo
	for _, slot := range availability.ForDate(day, duration, dayRules, busy) {
		if slot.Start.Before(now) {
			continue
		}
		out = append(out, SlotInfo{
			Start:        slot.Start,
			EmployeeID:   slot.EmployeeID,
			EmployeeName: names[slot.EmployeeID],
		})
	}
	return out, nil
}

type BookingRequest struct {
	ClientName      string
	ClientEmail     string
	ClientPhone     string
	ClientLanguage  string
	Type            model.AppointmentType
	Start           time.Time
	DurationMinutes int
	LocationAddress string
	Notes           string
}

// Book validates the request, allocates an employee, and persists the
// appointment in pending status. When every qualifying employee loses the
// window to a concurrent booking, the appointment is stored unassigned for
// manual assignment rather than failing the client.
func (s *Service) Book(ctx context.Context, req BookingRequest) (model.Appointment, error) {
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientEmail = strings.TrimSpace(req.ClientEmail)
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	req.ClientLanguage = strings.TrimSpace(req.ClientLanguage)

	if err := s.validateBooking(req); err != nil {
		return model.Appointment{}, err
	}

	lang := req.ClientLanguage
	if lang == "" {
		lang = "en"
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	if req.DurationMinutes == 0 {
		duration = req.Type.DefaultDuration()
	}

	start := req.Start.In(s.loc)
	day := s.dayStart(start)
	dayRules, err := s.rules.ListForWeekday(ctx, day.Weekday())
	if err != nil {
		return model.Appointment{}, storageErr("list availability", err)
	}
	ids := allocator.Employees(dayRules)
	if !offered(day, start, duration, dayRules) {
		return model.Appointment{}, validationErr("appointment_date", "time is not offered on that date")
	}
	busy, err := s.busyFor(ctx, ids, day, day.AddDate(0, 0, 1))
	if err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:              uuid.NewString(),
		ClientName:      req.ClientName,
		ClientEmail:     req.ClientEmail,
		ClientPhone:     req.ClientPhone,
		ClientLanguage:  lang,
		Type:            req.Type,
		StartTime:       start,
		DurationMinutes: int(duration / time.Minute),
		Status:          model.StatusPending,
		LocationAddress: strings.TrimSpace(req.LocationAddress),
		Notes:           strings.TrimSpace(req.Notes),
		CancelToken:     newCancelToken(),
	}

	// Allocation is advisory; the repository re-checks the window under the
	// employee's lock. Losing that race moves on to the next candidate instead
	// of failing the booking.
	exclude := make(map[int64]bool)
	for {
		empID, found := allocator.Find(day, start, duration, dayRules, busy, exclude)
		if found {
			appt.EmployeeID = &empID
		} else {
			appt.EmployeeID = nil
		}

		err := s.appts.Create(ctx, &appt)
		if err == nil {
			break
		}
		if found && errors.Is(err, ErrConflict) {
			exclude[empID] = true
			continue
		}
		return model.Appointment{}, storageErr("create appointment", err)
	}

	s.dispatch(ctx, "booked", func(ctx context.Context) error {
		return s.notifier.AppointmentBooked(ctx, appt)
	})
	return appt, nil
}

func (s *Service) validateBooking(req BookingRequest) error {
	if req.ClientName == "" {
		return validationErr("client_name", "required")
	}
	if req.ClientEmail == "" {
		return validationErr("client_email", "required")
	}
	if !emailRe.MatchString(req.ClientEmail) {
		return validationErr("client_email", "malformed email address")
	}
	if req.ClientPhone == "" {
		return validationErr("client_phone", "required")
	}
	if !req.Type.Valid() {
		return validationErr("appointment_type", "must be one of consultation, measurement, estimate, followup")
	}
	if req.ClientLanguage != "" && req.ClientLanguage != "en" && req.ClientLanguage != "es" {
		return validationErr("client_language", "must be en or es")
	}
	if req.Start.IsZero() {
		return validationErr("appointment_date", "required")
	}
	if !req.Start.After(s.clock.Now()) {
		return validationErr("appointment_date", "must be in the future")
	}
	if req.DurationMinutes < 0 || req.DurationMinutes > maxBookingMinutes {
		return validationErr("duration_minutes", "out of range")
	}
	return nil
}

// Cancel looks up the appointment by its cancellation token. A second cancel
// with the same token returns ErrAlreadyCancelled and dispatches nothing, so
// double-clicked cancellation links stay harmless.
func (s *Service) Cancel(ctx context.Context, token, reason string) (model.Appointment, error) {
	appt, err := s.appts.GetByCancelToken(ctx, token)
	if err != nil {
		return model.Appointment{}, storageErr("lookup by token", err)
	}
	if appt.Status == model.StatusCancelled {
		return appt, ErrAlreadyCancelled
	}
	if err := lifecycle.Transition(appt.Status, model.StatusCancelled); err != nil {
		return model.Appointment{}, err
	}

	cancelledAt, err := s.appts.Cancel(ctx, appt.ID, reason)
	if err != nil {
		return model.Appointment{}, storageErr("cancel appointment", err)
	}
	appt.Status = model.StatusCancelled
	appt.CancelReason = reason
	appt.CancelledAt = &cancelledAt

	s.dispatch(ctx, "cancelled", func(ctx context.Context) error {
		return s.notifier.AppointmentCancelled(ctx, appt)
	})
	return appt, nil
}

// UpdateStatus applies an administrative status change through the lifecycle
// table. note is forwarded on reschedule requests.
func (s *Service) UpdateStatus(ctx context.Context, id string, to model.AppointmentStatus, note string) (model.Appointment, error) {
	if !to.Valid() {
		return model.Appointment{}, validationErr("status", "unknown status")
	}
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, storageErr("lookup appointment", err)
	}
	if err := lifecycle.Transition(appt.Status, to); err != nil {
		return model.Appointment{}, err
	}

	if to == model.StatusCancelled {
		cancelledAt, err := s.appts.Cancel(ctx, id, note)
		if err != nil {
			return model.Appointment{}, storageErr("cancel appointment", err)
		}
		appt.CancelReason = note
		appt.CancelledAt = &cancelledAt
	} else {
		if err := s.appts.UpdateStatus(ctx, id, appt.Status, to); err != nil {
			return model.Appointment{}, storageErr("update status", err)
		}
	}
	appt.Status = to

	switch to {
	case model.StatusConfirmed:
		s.dispatch(ctx, "confirmed", func(ctx context.Context) error {
			return s.notifier.AppointmentConfirmed(ctx, appt)
		})
	case model.StatusNeedsReschedule:
		s.dispatch(ctx, "needs_reschedule", func(ctx context.Context) error {
			return s.notifier.RescheduleRequested(ctx, appt, note)
		})
	case model.StatusCancelled:
		s.dispatch(ctx, "cancelled", func(ctx context.Context) error {
			return s.notifier.AppointmentCancelled(ctx, appt)
		})
	}
	return appt, nil
}

// ReassignEmployee moves an appointment to another employee after re-checking
// that employee's window at the appointment's existing time.
func (s *Service) ReassignEmployee(ctx context.Context, id string, employeeID int64) (model.Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, storageErr("lookup appointment", err)
	}
	if lifecycle.Terminal(appt.Status) {
		return model.Appointment{}, validationErr("status", "cannot reassign a "+string(appt.Status)+" appointment")
	}
	emp, err := s.employees.Get(ctx, employeeID)
	if err != nil {
		return model.Appointment{}, storageErr("lookup employee", err)
	}

	if err := s.appts.Reassign(ctx, id, employeeID); err != nil {
		return model.Appointment{}, storageErr("reassign appointment", err)
	}
	appt.EmployeeID = &employeeID

	s.dispatch(ctx, "assigned", func(ctx context.Context) error {
		return s.notifier.EmployeeAssigned(ctx, emp, appt)
	})
	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, storageErr("lookup appointment", err)
	}
	return appt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]model.Appointment, error) {
	appts, err := s.appts.List(ctx, filter)
	if err != nil {
		return nil, storageErr("list appointments", err)
	}
	return appts, nil
}

func (s *Service) Employees(ctx context.Context) ([]model.Employee, error) {
	emps, err := s.employees.List(ctx)
	if err != nil {
		return nil, storageErr("list employees", err)
	}
	return emps, nil
}

// --- administrative configuration ---

func (s *Service) CreateAvailabilityRule(ctx context.Context, rule *model.AvailabilityRule) error {
	if err := validateRule(*rule); err != nil {
		return err
	}
	if _, err := s.employees.Get(ctx, rule.EmployeeID); err != nil {
		return storageErr("lookup employee", err)
	}
	return storageErr("create availability rule", s.rules.Create(ctx, rule))
}

func (s *Service) UpdateAvailabilityRule(ctx context.Context, rule model.AvailabilityRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	return storageErr("update availability rule", s.rules.Update(ctx, rule))
}

func (s *Service) DeleteAvailabilityRule(ctx context.Context, id int64) error {
	return storageErr("delete availability rule", s.rules.Delete(ctx, id))
}

func (s *Service) ListAvailabilityRules(ctx context.Context) ([]model.AvailabilityRule, error) {
	rules, err := s.rules.ListAll(ctx)
	if err != nil {
		return nil, storageErr("list availability rules", err)
	}
	return rules, nil
}

func validateRule(rule model.AvailabilityRule) error {
	if rule.Weekday < time.Sunday || rule.Weekday > time.Saturday {
		return validationErr("weekday", "must be 0 (Sunday) through 6 (Saturday)")
	}
	if rule.StartMinute < 0 || rule.EndMinute > 24*60 {
		return validationErr("window", "must fall within the day")
	}
	if rule.StartMinute >= rule.EndMinute {
		return validationErr("window", "start must be before end")
	}
	return nil
}

func (s *Service) CreateBlockedTime(ctx context.Context, block *model.BlockedTime) error {
	if !block.EndTime.After(block.StartTime) {
		return validationErr("window", "start must be before end")
	}
	if _, err := s.employees.Get(ctx, block.EmployeeID); err != nil {
		return storageErr("lookup employee", err)
	}
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	return storageErr("create blocked time", s.blocks.Create(ctx, block))
}

func (s *Service) UpdateBlockedTime(ctx context.Context, block model.BlockedTime) error {
	if !block.EndTime.After(block.StartTime) {
		return validationErr("window", "start must be before end")
	}
	return storageErr("update blocked time", s.blocks.Update(ctx, block))
}

func (s *Service) DeleteBlockedTime(ctx context.Context, id string) error {
	return storageErr("delete blocked time", s.blocks.Delete(ctx, id))
}

func (s *Service) ListBlockedTimes(ctx context.Context, from, to time.Time) ([]model.BlockedTime, error) {
	blocks, err := s.blocks.ListInRange(ctx, from, to)
	if err != nil {
		return nil, storageErr("list blocked times", err)
	}
	return blocks, nil
}

// --- internals ---

func (s *Service) dayStart(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// busyFor merges non-cancelled appointments and blocked time per employee.
func (s *Service) busyFor(ctx context.Context, ids []int64, from, to time.Time) (map[int64][]availability.Interval, error) {
	busy := make(map[int64][]availability.Interval, len(ids))
	for _, id := range ids {
		intervals, err := s.appts.BusyIntervals(ctx, id, from, to)
		if err != nil {
			return nil, storageErr("list busy intervals", err)
		}
		blocks, err := s.blocks.ListForEmployee(ctx, id, from, to)
		if err != nil {
			return nil, storageErr("list blocked time", err)
		}
		for _, b := range blocks {
			intervals = append(intervals, availability.Interval{Start: b.StartTime, End: b.EndTime})
		}
		busy[id] = intervals
	}
	return busy, nil
}

func (s *Service) employeeNames(ctx context.Context) (map[int64]string, error) {
	emps, err := s.employees.List(ctx)
	if err != nil {
		return nil, storageErr("list employees", err)
	}
	names := make(map[int64]string, len(emps))
	for _, e := range emps {
		names[e.ID] = e.Name
	}
	return names, nil
}

// dispatch runs a notification hook after the state change is durably stored.
// Failures are logged and absorbed; a Notifier outage must never surface as a
// booking failure.
func (s *Service) dispatch(ctx context.Context, event string, fn func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.Error("notification dispatch failed", "event", event, "err", err)
	}
}

// offered reports whether any employee's working window could hold the start
// time at all, ignoring existing bookings. A start that fails this is a bad
// request; a start that passes but finds everyone occupied is a lost race.
func offered(day, start time.Time, duration time.Duration, dayRules []model.AvailabilityRule) bool {
	for _, slot := range availability.ForDate(day, duration, dayRules, nil) {
		if slot.Start.Equal(start) {
			return true
		}
	}
	return false
}

func newCancelToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
