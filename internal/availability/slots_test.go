package availability

import (
	"testing"
	"time"

	"github.com/avelsher/slotbook/internal/model"
)

func TestWindowSlots_Basic(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) // a Tuesday
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)

	slots := WindowSlots(windowStart, windowEnd, 30*time.Minute, nil)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected second slot 09:30, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestWindowSlots_BusyRejectsOverlap(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	windowStart := day.Add(9 * time.Hour)
	windowEnd := day.Add(10 * time.Hour)
	busy := []Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)},
	}

	slots := WindowSlots(windowStart, windowEnd, 30*time.Minute, busy)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected slot 09:30, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestWindowSlots_BoundaryEnd(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// A slot ending exactly at the window end is included.
	slots := WindowSlots(day.Add(9*time.Hour), day.Add(9*time.Hour+30*time.Minute), 30*time.Minute, nil)
	if len(slots) != 1 {
		t.Fatalf("expected exact-fit slot, got %d slots", len(slots))
	}

	// One minute short of fitting: nothing.
	slots = WindowSlots(day.Add(9*time.Hour), day.Add(9*time.Hour+29*time.Minute), 30*time.Minute, nil)
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestWindowSlots_AdjacentBusyDoesNotReject(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	// Busy interval ends exactly where the candidate starts; half-open test must admit it.
	busy := []Interval{
		{Start: day.Add(8 * time.Hour), End: day.Add(9 * time.Hour)},
		{Start: day.Add(9*time.Hour + 30*time.Minute), End: day.Add(10 * time.Hour)},
	}
	slots := WindowSlots(day.Add(9*time.Hour), day.Add(10*time.Hour), 30*time.Minute, busy)
	if len(slots) != 1 || !slots[0].Equal(day.Add(9*time.Hour)) {
		t.Fatalf("expected only 09:00, got %v", slots)
	}
}

func TestForDate_RuleExpansion(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) // Tuesday
	rules := []model.AvailabilityRule{
		{EmployeeID: 1, Weekday: time.Tuesday, StartMinute: 540, EndMinute: 600, Available: true}, // 09:00-10:00
	}

	slots := ForDate(day, 30*time.Minute, rules, nil)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.EmployeeID != 1 {
			t.Fatalf("expected employee 1, got %d", s.EmployeeID)
		}
	}
	if !slots[0].Start.Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected 09:00 first, got %s", slots[0].Start)
	}
	if !slots[1].Start.Equal(day.Add(9*time.Hour + 30*time.Minute)) {
		t.Fatalf("expected 09:30 second, got %s", slots[1].Start)
	}
}

func TestForDate_BusyPerEmployee(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rules := []model.AvailabilityRule{
		{EmployeeID: 1, Weekday: time.Tuesday, StartMinute: 540, EndMinute: 600, Available: true},
		{EmployeeID: 2, Weekday: time.Tuesday, StartMinute: 540, EndMinute: 600, Available: true},
	}
	busy := map[int64][]Interval{
		1: {{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)}},
	}

	slots := ForDate(day, 30*time.Minute, rules, busy)
	// Employee 1 keeps only 09:30; employee 2 keeps both.
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d: %v", len(slots), slots)
	}
	if slots[0].EmployeeID != 1 || !slots[0].Start.Equal(day.Add(9*time.Hour+30*time.Minute)) {
		t.Fatalf("unexpected first slot: %+v", slots[0])
	}
	if slots[1].EmployeeID != 2 || slots[2].EmployeeID != 2 {
		t.Fatalf("expected employee 2 slots after employee 1: %v", slots)
	}
}

func TestForDate_UnavailableRuleContributesNothing(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rules := []model.AvailabilityRule{
		{EmployeeID: 1, Weekday: time.Tuesday, StartMinute: 540, EndMinute: 1020, Available: false},
	}
	if slots := ForDate(day, 30*time.Minute, rules, nil); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
	if slots := ForDate(day, 30*time.Minute, nil, nil); len(slots) != 0 {
		t.Fatalf("expected no slots for empty rules, got %d", len(slots))
	}
}

func TestForDate_WindowFullyConsumed(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rules := []model.AvailabilityRule{
		{EmployeeID: 1, Weekday: time.Tuesday, StartMinute: 540, EndMinute: 600, Available: true},
	}
	busy := map[int64][]Interval{
		1: {{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}},
	}
	if slots := ForDate(day, 30*time.Minute, rules, busy); len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestCovered(t *testing.T) {
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	window := Interval{Start: day.Add(9 * time.Hour), End: day.Add(17 * time.Hour)}

	if Covered(window, nil) {
		t.Fatal("empty blocks should not cover a window")
	}
	full := []Interval{{Start: day, End: day.Add(24 * time.Hour)}}
	if !Covered(window, full) {
		t.Fatal("whole-day block should cover the window")
	}
	split := []Interval{
		{Start: day.Add(8 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(12 * time.Hour), End: day.Add(18 * time.Hour)},
	}
	if !Covered(window, split) {
		t.Fatal("abutting blocks should cover the window")
	}
	gap := []Interval{
		{Start: day.Add(8 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(13 * time.Hour), End: day.Add(18 * time.Hour)},
	}
	if Covered(window, gap) {
		t.Fatal("blocks with a gap should not cover the window")
	}
}
