package allocator

import (
	"testing"
	"time"

	"github.com/avelsher/slotbook/internal/availability"
	"github.com/avelsher/slotbook/internal/model"
)

var day = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) // Tuesday

func rulesFor(ids ...int64) []model.AvailabilityRule {
	var rules []model.AvailabilityRule
	for _, id := range ids {
		rules = append(rules, model.AvailabilityRule{
			EmployeeID:  id,
			Weekday:     time.Tuesday,
			StartMinute: 540,  // 09:00
			EndMinute:   1020, // 17:00
			Available:   true,
		})
	}
	return rules
}

func TestFind_LowestIDWins(t *testing.T) {
	rules := rulesFor(3, 1, 2)
	start := day.Add(10 * time.Hour)

	id, ok := Find(day, start, 30*time.Minute, rules, nil, nil)
	if !ok {
		t.Fatal("expected an employee")
	}
	if id != 1 {
		t.Fatalf("expected employee 1, got %d", id)
	}

	// Determinism: same inputs, same answer.
	for i := 0; i < 5; i++ {
		again, ok := Find(day, start, 30*time.Minute, rules, nil, nil)
		if !ok || again != id {
			t.Fatalf("allocation not deterministic: got %d ok=%v", again, ok)
		}
	}
}

func TestFind_SkipsBusyEmployee(t *testing.T) {
	rules := rulesFor(1, 2)
	start := day.Add(10 * time.Hour)
	busy := map[int64][]availability.Interval{
		1: {{Start: start, End: start.Add(time.Hour)}},
	}

	id, ok := Find(day, start, 30*time.Minute, rules, busy, nil)
	if !ok || id != 2 {
		t.Fatalf("expected employee 2, got %d ok=%v", id, ok)
	}
}

func TestFind_NoneAvailable(t *testing.T) {
	rules := rulesFor(1)
	start := day.Add(18 * time.Hour) // outside the 09:00-17:00 window

	if _, ok := Find(day, start, 30*time.Minute, rules, nil, nil); ok {
		t.Fatal("expected no employee outside working hours")
	}

	busy := map[int64][]availability.Interval{
		1: {{Start: day.Add(9 * time.Hour), End: day.Add(17 * time.Hour)}},
	}
	if _, ok := Find(day, day.Add(10*time.Hour), 30*time.Minute, rules, busy, nil); ok {
		t.Fatal("expected no employee when fully booked")
	}
}

func TestFind_OffGridStartNotAllocated(t *testing.T) {
	rules := rulesFor(1)
	// 10:15 is not on the 30-minute slot grid.
	if _, ok := Find(day, day.Add(10*time.Hour+15*time.Minute), 30*time.Minute, rules, nil, nil); ok {
		t.Fatal("expected off-grid start to be rejected")
	}
}

func TestFind_Exclude(t *testing.T) {
	rules := rulesFor(1, 2)
	start := day.Add(10 * time.Hour)

	id, ok := Find(day, start, 30*time.Minute, rules, nil, map[int64]bool{1: true})
	if !ok || id != 2 {
		t.Fatalf("expected employee 2 with 1 excluded, got %d ok=%v", id, ok)
	}
	if _, ok := Find(day, start, 30*time.Minute, rules, nil, map[int64]bool{1: true, 2: true}); ok {
		t.Fatal("expected no employee with all excluded")
	}
}

func TestEmployees_SortedDistinct(t *testing.T) {
	rules := []model.AvailabilityRule{
		{EmployeeID: 5, Available: true},
		{EmployeeID: 2, Available: true},
		{EmployeeID: 5, Available: true},
		{EmployeeID: 9, Available: false},
	}
	ids := Employees(rules)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 5 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
