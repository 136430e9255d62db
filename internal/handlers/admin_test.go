package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/scheduling"
	"github.com/avelsher/slotbook/internal/storage/memory"
)

func newAdminFixture(t *testing.T) (*AdminHandler, *scheduling.Service, *memory.Store) {
	t.Helper()
	svc, store := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAdminHandler(svc, logger, time.UTC), svc, store
}

func bookOne(t *testing.T, svc *scheduling.Service) model.Appointment {
	t.Helper()
	appt, err := svc.Book(context.Background(), scheduling.BookingRequest{
		ClientName:  "Carla Reyes",
		ClientEmail: "carla@example.com",
		ClientPhone: "+1 555 0100",
		Type:        model.TypeConsultation,
		Start:       tuesday.Add(10 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	return appt
}

func TestAppointmentsListFilters(t *testing.T) {
	handler, svc, _ := newAdminFixture(t)
	appt := bookOne(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/?status=pending&employee_id=1", nil)
	rec := httptest.NewRecorder()
	handler.Appointments(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Appointments []appointmentResponse `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Appointments) != 1 || resp.Appointments[0].ID != appt.ID {
		t.Fatalf("appointments = %+v", resp.Appointments)
	}

	req = httptest.NewRequest(http.MethodGet, "/?status=completed", nil)
	rec = httptest.NewRecorder()
	handler.Appointments(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Appointments) != 0 {
		t.Fatalf("expected no completed appointments, got %+v", resp.Appointments)
	}
}

func TestAppointmentsListBadStatus(t *testing.T) {
	handler, _, _ := newAdminFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/?status=sleeping", nil)
	rec := httptest.NewRecorder()
	handler.Appointments(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	handler, svc, _ := newAdminFixture(t)
	appt := bookOne(t, svc)

	rec := postJSON(t, handler.UpdateStatus, map[string]any{
		"appointment_id": appt.ID,
		"status":         "confirmed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "confirmed" {
		t.Fatalf("status = %s", resp.Status)
	}

	// pending -> completed is not a legal step once confirmed -> pending is gone;
	// confirmed -> pending is never legal.
	rec = postJSON(t, handler.UpdateStatus, map[string]any{
		"appointment_id": appt.ID,
		"status":         "pending",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("illegal transition status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateStatusEndpointUnknownAppointment(t *testing.T) {
	handler, _, _ := newAdminFixture(t)
	rec := postJSON(t, handler.UpdateStatus, map[string]any{
		"appointment_id": "11111111-1111-1111-1111-111111111111",
		"status":         "confirmed",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAssignEndpointConflict(t *testing.T) {
	handler, svc, _ := newAdminFixture(t)
	appt := bookOne(t, svc)

	// Occupy Bo at the same time, then try to move the first appointment there.
	second, err := svc.Book(context.Background(), scheduling.BookingRequest{
		ClientName:  "Dan Ortiz",
		ClientEmail: "dan@example.com",
		ClientPhone: "+1 555 0101",
		Type:        model.TypeConsultation,
		Start:       tuesday.Add(10 * time.Hour),
	})
	if err != nil {
		t.Fatalf("second Book: %v", err)
	}
	if second.EmployeeID == nil || *second.EmployeeID != 2 {
		t.Fatalf("second employee = %v", second.EmployeeID)
	}

	rec := postJSON(t, handler.Assign, map[string]any{
		"appointment_id": appt.ID,
		"employee_id":    2,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAvailabilityCRUD(t *testing.T) {
	handler, _, _ := newAdminFixture(t)

	rec := postJSON(t, handler.Availability, map[string]any{
		"employee_id":  1,
		"weekday":      1,
		"start_minute": 540,
		"end_minute":   1020,
		"available":    true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created availabilityRuleBody
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("created rule has no id")
	}

	rec = postJSON(t, handler.UpdateAvailability, map[string]any{
		"id":           created.ID,
		"employee_id":  1,
		"weekday":      1,
		"start_minute": 600,
		"end_minute":   1020,
		"available":    true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	listRec := httptest.NewRecorder()
	handler.Availability(listRec, req)
	var listResp struct {
		Rules []availabilityRuleBody `json:"rules"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	found := false
	for _, rule := range listResp.Rules {
		if rule.ID == created.ID && rule.StartMinute == 600 {
			found = true
		}
	}
	if !found {
		t.Fatalf("updated rule not listed: %+v", listResp.Rules)
	}

	rec = postJSON(t, handler.DeleteAvailability, map[string]any{"id": created.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = postJSON(t, handler.DeleteAvailability, map[string]any{"id": created.ID})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestAvailabilityCreateRejectsBadWindow(t *testing.T) {
	handler, _, _ := newAdminFixture(t)
	rec := postJSON(t, handler.Availability, map[string]any{
		"employee_id":  1,
		"weekday":      1,
		"start_minute": 1020,
		"end_minute":   540,
		"available":    true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestBlockedCRUD(t *testing.T) {
	handler, _, _ := newAdminFixture(t)

	rec := postJSON(t, handler.Blocked, map[string]any{
		"employee_id": 1,
		"start_time":  tuesday.Add(12 * time.Hour).Format(time.RFC3339),
		"end_time":    tuesday.Add(14 * time.Hour).Format(time.RFC3339),
		"reason":      "training",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created blockedTimeBody
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created block has no id")
	}

	req := httptest.NewRequest(http.MethodGet, "/?from=2026-03-03&to=2026-03-03", nil)
	listRec := httptest.NewRecorder()
	handler.Blocked(listRec, req)
	var listResp struct {
		BlockedTimes []blockedTimeBody `json:"blocked_times"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listResp.BlockedTimes) != 1 || listResp.BlockedTimes[0].Reason != "training" {
		t.Fatalf("blocked_times = %+v", listResp.BlockedTimes)
	}

	rec = postJSON(t, handler.DeleteBlocked, map[string]any{"id": created.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestBlockedCreateRejectsInvertedWindow(t *testing.T) {
	handler, _, _ := newAdminFixture(t)
	rec := postJSON(t, handler.Blocked, map[string]any{
		"employee_id": 1,
		"start_time":  tuesday.Add(14 * time.Hour).Format(time.RFC3339),
		"end_time":    tuesday.Add(12 * time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestEmployeesEndpoint(t *testing.T) {
	handler, _, _ := newAdminFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.Employees(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Employees []employeeResponse `json:"employees"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Employees) != 2 || resp.Employees[0].Name != "Ana" {
		t.Fatalf("employees = %+v", resp.Employees)
	}
}
