// Package allocator picks the employee an incoming booking is assigned to.
package allocator

import (
	"sort"
	"time"

	"github.com/avelsher/slotbook/internal/availability"
	"github.com/avelsher/slotbook/internal/model"
)

// Find returns the employee who can take a booking starting at start for the
// given duration, or false when no employee qualifies. rules must already be
// filtered to the weekday of start, and busy must include non-cancelled
// appointments plus blocked time per employee. Candidates are tried in
// ascending employee-id order so repeated calls over identical data always
// pick the same employee. exclude removes employees from consideration.
func Find(day time.Time, start time.Time, duration time.Duration, rules []model.AvailabilityRule, busy map[int64][]availability.Interval, exclude map[int64]bool) (int64, bool) {
	for _, id := range Employees(rules) {
		if exclude[id] {
			continue
		}
		var own []model.AvailabilityRule
		for _, r := range rules {
			if r.EmployeeID == id {
				own = append(own, r)
			}
		}
		for _, slot := range availability.ForDate(day, duration, own, busy) {
			if slot.Start.Equal(start) {
				return id, true
			}
		}
	}
	return 0, false
}

// Employees returns the distinct employee ids carrying an available rule,
// sorted ascending.
func Employees(rules []model.AvailabilityRule) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range rules {
		if !r.Available || seen[r.EmployeeID] {
			continue
		}
		seen[r.EmployeeID] = true
		ids = append(ids, r.EmployeeID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
