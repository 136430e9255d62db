package availability

import (
	"sort"
	"time"

	"github.com/avelsher/slotbook/internal/model"
)

// SlotStep is the spacing between candidate start times.
const SlotStep = 30 * time.Minute

type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a candidate bookable (time, employee) pair.
type Slot struct {
	Start      time.Time
	EmployeeID int64
}

// WindowSlots returns slot start times within [windowStart, windowEnd) where a
// booking of length duration would not overlap any of the busy intervals. A slot
// ending exactly at windowEnd is included; one running past it is not.
//
// All times are expected to be in the same location (timezone).
func WindowSlots(windowStart, windowEnd time.Time, duration time.Duration, busy []Interval) []time.Time {
	if duration <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}
	if windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(SlotStep) {
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

// ForDate expands one day's availability rules into bookable slots. day must be
// midnight of the date in the business timezone, and rules must already be
// filtered to the matching weekday. busy holds, per employee, the intervals that
// reject a candidate: non-cancelled appointments and blocked time.
//
// Employees contribute slots independently; the result is ordered by employee id
// then start time, and is never deduplicated across employees.
func ForDate(day time.Time, duration time.Duration, rules []model.AvailabilityRule, busy map[int64][]Interval) []Slot {
	ordered := make([]model.AvailabilityRule, 0, len(rules))
	for _, r := range rules {
		if r.Available && r.EndMinute > r.StartMinute {
			ordered = append(ordered, r)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].EmployeeID != ordered[j].EmployeeID {
			return ordered[i].EmployeeID < ordered[j].EmployeeID
		}
		return ordered[i].StartMinute < ordered[j].StartMinute
	})

	var slots []Slot
	for _, r := range ordered {
		winStart := day.Add(time.Duration(r.StartMinute) * time.Minute)
		winEnd := day.Add(time.Duration(r.EndMinute) * time.Minute)
		for _, t := range WindowSlots(winStart, winEnd, duration, busy[r.EmployeeID]) {
			slots = append(slots, Slot{Start: t, EmployeeID: r.EmployeeID})
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// Covered reports whether window is fully contained in the union of blocks.
// Used to decide that an employee's whole working day is blocked out.
func Covered(window Interval, blocks []Interval) bool {
	if !window.End.After(window.Start) {
		return true
	}
	sorted := make([]Interval, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	cursor := window.Start
	for _, b := range sorted {
		if b.Start.After(cursor) {
			return false
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(window.End) {
			return true
		}
	}
	return !cursor.Before(window.End)
}
