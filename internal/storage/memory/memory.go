// Package memory is an in-process implementation of the scheduling storage
// ports. It backs tests and local development without Postgres; the conflict
// rules mirror the SQL implementation, serialized with a single mutex instead
// of advisory locks.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avelsher/slotbook/internal/availability"
	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/scheduling"
)

type Store struct {
	mu           sync.Mutex
	appointments map[string]model.Appointment
	rules        map[int64]model.AvailabilityRule
	nextRuleID   int64
	blocks       map[string]model.BlockedTime
	employees    map[int64]model.Employee
	admins       map[string]model.AdminUser
}

func NewStore() *Store {
	return &Store{
		appointments: make(map[string]model.Appointment),
		rules:        make(map[int64]model.AvailabilityRule),
		nextRuleID:   1,
		blocks:       make(map[string]model.BlockedTime),
		employees:    make(map[int64]model.Employee),
		admins:       make(map[string]model.AdminUser),
	}
}

func (s *Store) Appointments() *AppointmentStore  { return &AppointmentStore{s} }
func (s *Store) Availability() *AvailabilityStore { return &AvailabilityStore{s} }
func (s *Store) BlockedTimes() *BlockedTimeStore  { return &BlockedTimeStore{s} }
func (s *Store) Employees() *EmployeeStore        { return &EmployeeStore{s} }
func (s *Store) AdminUsers() *AdminStore          { return &AdminStore{s} }

func (s *Store) SeedEmployee(e model.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

func (s *Store) SeedAdmin(u model.AdminUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[u.Email] = u
}

// overlapsLocked reports whether the employee has a non-cancelled appointment
// or a blocked window intersecting [from, to). Callers hold s.mu.
func (s *Store) overlapsLocked(employeeID int64, from, to time.Time, excludeAppt string) bool {
	for _, a := range s.appointments {
		if a.ID == excludeAppt || a.EmployeeID == nil || *a.EmployeeID != employeeID || !a.Blocking() {
			continue
		}
		if a.StartTime.Before(to) && a.EndTime().After(from) {
			return true
		}
	}
	for _, b := range s.blocks {
		if b.EmployeeID != employeeID {
			continue
		}
		if b.StartTime.Before(to) && b.EndTime.After(from) {
			return true
		}
	}
	return false
}

type AppointmentStore struct {
	s *Store
}

func (r *AppointmentStore) Create(ctx context.Context, appt *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if appt.EmployeeID != nil {
		if r.s.overlapsLocked(*appt.EmployeeID, appt.StartTime, appt.EndTime(), "") {
			return scheduling.ErrConflict
		}
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.s.appointments[appt.ID] = *appt
	return nil
}

func (r *AppointmentStore) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	return appt, nil
}

func (r *AppointmentStore) GetByCancelToken(ctx context.Context, token string) (model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.appointments {
		if a.CancelToken == token {
			return a, nil
		}
	}
	return model.Appointment{}, scheduling.ErrNotFound
}

func (r *AppointmentStore) List(ctx context.Context, filter scheduling.AppointmentFilter) ([]model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Appointment
	for _, a := range r.s.appointments {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.EmployeeID != nil && (a.EmployeeID == nil || *a.EmployeeID != *filter.EmployeeID) {
			continue
		}
		if filter.From != nil && a.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !a.StartTime.Before(*filter.To) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *AppointmentStore) BusyIntervals(ctx context.Context, employeeID int64, from, to time.Time) ([]availability.Interval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []availability.Interval
	for _, a := range r.s.appointments {
		if a.EmployeeID == nil || *a.EmployeeID != employeeID || !a.Blocking() {
			continue
		}
		if a.StartTime.Before(to) && a.EndTime().After(from) {
			out = append(out, availability.Interval{Start: a.StartTime, End: a.EndTime()})
		}
	}
	return out, nil
}

func (r *AppointmentStore) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return scheduling.ErrNotFound
	}
	if appt.Status != from {
		return scheduling.ErrConflict
	}
	appt.Status = to
	appt.UpdatedAt = time.Now().UTC()
	r.s.appointments[id] = appt
	return nil
}

func (r *AppointmentStore) Cancel(ctx context.Context, id, reason string) (time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return time.Time{}, scheduling.ErrNotFound
	}
	switch appt.Status {
	case model.StatusCancelled:
		return time.Time{}, scheduling.ErrAlreadyCancelled
	case model.StatusCompleted, model.StatusNoShow:
		return time.Time{}, scheduling.ErrConflict
	}
	now := time.Now().UTC()
	appt.Status = model.StatusCancelled
	appt.CancelReason = reason
	appt.CancelledAt = &now
	appt.UpdatedAt = now
	r.s.appointments[id] = appt
	return now, nil
}

func (r *AppointmentStore) Reassign(ctx context.Context, id string, employeeID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return scheduling.ErrNotFound
	}
	if r.s.overlapsLocked(employeeID, appt.StartTime, appt.EndTime(), appt.ID) {
		return scheduling.ErrConflict
	}
	appt.EmployeeID = &employeeID
	appt.UpdatedAt = time.Now().UTC()
	r.s.appointments[id] = appt
	return nil
}

type AvailabilityStore struct {
	s *Store
}

func (r *AvailabilityStore) ListForWeekday(ctx context.Context, weekday time.Weekday) ([]model.AvailabilityRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.AvailabilityRule
	for _, rule := range r.s.rules {
		if rule.Weekday == weekday {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *AvailabilityStore) ListAll(ctx context.Context) ([]model.AvailabilityRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.AvailabilityRule, 0, len(r.s.rules))
	for _, rule := range r.s.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *AvailabilityStore) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rule.ID = r.s.nextRuleID
	r.s.nextRuleID++
	r.s.rules[rule.ID] = *rule
	return nil
}

func (r *AvailabilityStore) Update(ctx context.Context, rule model.AvailabilityRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rules[rule.ID]; !ok {
		return scheduling.ErrNotFound
	}
	r.s.rules[rule.ID] = rule
	return nil
}

func (r *AvailabilityStore) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rules[id]; !ok {
		return scheduling.ErrNotFound
	}
	delete(r.s.rules, id)
	return nil
}

type BlockedTimeStore struct {
	s *Store
}

func (r *BlockedTimeStore) ListInRange(ctx context.Context, from, to time.Time) ([]model.BlockedTime, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.BlockedTime
	for _, b := range r.s.blocks {
		if b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *BlockedTimeStore) ListForEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]model.BlockedTime, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.BlockedTime
	for _, b := range r.s.blocks {
		if b.EmployeeID != employeeID {
			continue
		}
		if b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *BlockedTimeStore) Create(ctx context.Context, block *model.BlockedTime) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	block.CreatedAt = time.Now().UTC()
	r.s.blocks[block.ID] = *block
	return nil
}

func (r *BlockedTimeStore) Update(ctx context.Context, block model.BlockedTime) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.blocks[block.ID]; !ok {
		return scheduling.ErrNotFound
	}
	r.s.blocks[block.ID] = block
	return nil
}

func (r *BlockedTimeStore) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.blocks[id]; !ok {
		return scheduling.ErrNotFound
	}
	delete(r.s.blocks, id)
	return nil
}

type EmployeeStore struct {
	s *Store
}

func (r *EmployeeStore) List(ctx context.Context) ([]model.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Employee, 0, len(r.s.employees))
	for _, e := range r.s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *EmployeeStore) Get(ctx context.Context, id int64) (model.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.employees[id]
	if !ok {
		return model.Employee{}, scheduling.ErrNotFound
	}
	return e, nil
}

type AdminStore struct {
	s *Store
}

func (r *AdminStore) GetByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.admins[email]
	if !ok {
		return model.AdminUser{}, scheduling.ErrNotFound
	}
	return u, nil
}
