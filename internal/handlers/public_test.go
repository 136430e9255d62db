package handlers

import (
	"bytes"
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

var (
	testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	tuesday = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

type noopNotifier struct{}

func (noopNotifier) AppointmentBooked(context.Context, model.Appointment) error    { return nil }
func (noopNotifier) AppointmentConfirmed(context.Context, model.Appointment) error { return nil }
func (noopNotifier) AppointmentCancelled(context.Context, model.Appointment) error { return nil }
func (noopNotifier) RescheduleRequested(context.Context, model.Appointment, string) error {
	return nil
}
func (noopNotifier) EmployeeAssigned(context.Context, model.Employee, model.Appointment) error {
	return nil
}

func newTestService(t *testing.T) (*scheduling.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.SeedEmployee(model.Employee{ID: 1, Name: "Ana", Email: "ana@example.com", Active: true})
	store.SeedEmployee(model.Employee{ID: 2, Name: "Bo", Email: "bo@example.com", Active: true})

	ctx := context.Background()
	rules := []model.AvailabilityRule{
		{EmployeeID: 1, Weekday: time.Tuesday, StartMinute: 9 * 60, EndMinute: 17 * 60, Available: true},
		{EmployeeID: 2, Weekday: time.Tuesday, StartMinute: 10 * 60, EndMinute: 16 * 60, Available: true},
	}
	for i := range rules {
		if err := store.Availability().Create(ctx, &rules[i]); err != nil {
			t.Fatalf("seed rule: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := scheduling.New(
		store.Appointments(), store.Availability(), store.BlockedTimes(), store.Employees(),
		noopNotifier{}, fixedClock{testNow}, time.UTC, logger,
	)
	return svc, store
}

func newPublicHandler(t *testing.T) (*PublicHandler, *memory.Store) {
	t.Helper()
	svc, store := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublicHandler(svc, logger, time.UTC), store
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func validBookBody() map[string]any {
	return map[string]any{
		"client_name":      "Carla Reyes",
		"client_email":     "carla@example.com",
		"client_phone":     "+1 555 0100",
		"client_language":  "en",
		"appointment_type": "consultation",
		"start_time":       tuesday.Add(10 * time.Hour).Format(time.RFC3339),
	}
}

func TestBookEndpoint(t *testing.T) {
	handler, _ := newPublicHandler(t)

	rec := postJSON(t, handler.Book, validBookBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Appointment struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			EmployeeID *int64 `json:"employee_id"`
		} `json:"appointment"`
		CancelToken string `json:"cancel_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Appointment.Status != "pending" {
		t.Fatalf("status = %s", resp.Appointment.Status)
	}
	if resp.Appointment.EmployeeID == nil || *resp.Appointment.EmployeeID != 1 {
		t.Fatalf("employee_id = %v", resp.Appointment.EmployeeID)
	}
	if resp.CancelToken == "" {
		t.Fatal("missing cancel_token")
	}
}

func TestBookEndpointValidation(t *testing.T) {
	handler, _ := newPublicHandler(t)

	body := validBookBody()
	body["client_email"] = "not-an-email"
	rec := postJSON(t, handler.Book, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Field string `json:"field"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Field != "client_email" {
		t.Fatalf("field = %q", resp.Field)
	}
}

func TestBookEndpointRejectsBadJSON(t *testing.T) {
	handler, _ := newPublicHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.Book(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBookEndpointMethodNotAllowed(t *testing.T) {
	handler, _ := newPublicHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.Book(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCancelEndpointDoubleCancel(t *testing.T) {
	handler, _ := newPublicHandler(t)

	rec := postJSON(t, handler.Book, validBookBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("book status = %d", rec.Code)
	}
	var booked struct {
		CancelToken string `json:"cancel_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &booked); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	cancelBody := map[string]any{"cancel_token": booked.CancelToken, "reason": "moved"}
	rec = postJSON(t, handler.Cancel, cancelBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("first cancel status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, handler.Cancel, cancelBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("second cancel status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AlreadyCancelled bool `json:"already_cancelled"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.AlreadyCancelled {
		t.Fatalf("second cancel body = %s", rec.Body.String())
	}
}

func TestCancelEndpointUnknownToken(t *testing.T) {
	handler, _ := newPublicHandler(t)
	rec := postJSON(t, handler.Cancel, map[string]any{"cancel_token": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestSlotsEndpoint(t *testing.T) {
	handler, _ := newPublicHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/?date=2026-03-03&appointment_type=consultation", nil)
	rec := httptest.NewRecorder()
	handler.Slots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Slots []slotResponse `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) == 0 {
		t.Fatal("no slots returned")
	}
	first := resp.Slots[0]
	if first.EmployeeName == "" {
		t.Fatalf("slot missing employee name: %+v", first)
	}
	if _, err := time.Parse(time.RFC3339, first.StartTime); err != nil {
		t.Fatalf("start_time %q not RFC3339", first.StartTime)
	}
}

func TestSlotsEndpointBadDate(t *testing.T) {
	handler, _ := newPublicHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?date=03-03-2026", nil)
	rec := httptest.NewRecorder()
	handler.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDatesEndpoint(t *testing.T) {
	handler, _ := newPublicHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/?year=2026&month=3", nil)
	rec := httptest.NewRecorder()
	handler.Dates(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Dates []string `json:"dates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Dates) != 5 {
		t.Fatalf("dates = %v, want the 5 open Tuesdays", resp.Dates)
	}
	if resp.Dates[0] != "2026-03-03" {
		t.Fatalf("first date = %s", resp.Dates[0])
	}
}

func TestDatesEndpointBadMonth(t *testing.T) {
	handler, _ := newPublicHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/?year=2026&month=13", nil)
	rec := httptest.NewRecorder()
	handler.Dates(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
