package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/scheduling"
)

// PublicHandler serves the unauthenticated booking flow.
type PublicHandler struct {
	svc    *scheduling.Service
	logger *slog.Logger
	loc    *time.Location
}

func NewPublicHandler(svc *scheduling.Service, logger *slog.Logger, loc *time.Location) *PublicHandler {
	return &PublicHandler{svc: svc, logger: logger, loc: loc}
}

// Dates lists bookable dates for a month: GET ?year=2026&month=3.
func (h *PublicHandler) Dates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2200 {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	dates, err := h.svc.AvailableDates(r.Context(), year, time.Month(month))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": out})
}

type slotResponse struct {
	StartTime    string `json:"start_time"`
	EmployeeID   int64  `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
}

// Slots lists open slots for a date: GET ?date=2026-03-03&appointment_type=consultation.
// duration_minutes overrides the type's default length.
func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), h.loc)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	apptType := model.AppointmentType(strings.TrimSpace(r.URL.Query().Get("appointment_type")))
	if apptType == "" {
		apptType = model.TypeConsultation
	}
	if !apptType.Valid() {
		http.Error(w, "invalid appointment_type", http.StatusBadRequest)
		return
	}
	duration := apptType.DefaultDuration()
	if raw := r.URL.Query().Get("duration_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		duration = time.Duration(minutes) * time.Minute
	}

	slots, err := h.svc.AvailableSlots(r.Context(), day, duration)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			StartTime:    s.Start.Format(time.RFC3339),
			EmployeeID:   s.EmployeeID,
			EmployeeName: s.EmployeeName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": out})
}

type bookRequest struct {
	ClientName      string `json:"client_name"`
	ClientEmail     string `json:"client_email"`
	ClientPhone     string `json:"client_phone"`
	ClientLanguage  string `json:"client_language"`
	AppointmentType string `json:"appointment_type"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	LocationAddress string `json:"location_address"`
	Notes           string `json:"notes"`
}

type bookResponse struct {
	Appointment appointmentResponse `json:"appointment"`
	CancelToken string              `json:"cancel_token"`
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	var start time.Time
	if strings.TrimSpace(req.StartTime) != "" {
		parsed, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			http.Error(w, "invalid start_time, want RFC3339", http.StatusBadRequest)
			return
		}
		start = parsed
	}

	appt, err := h.svc.Book(r.Context(), scheduling.BookingRequest{
		ClientName:      req.ClientName,
		ClientEmail:     req.ClientEmail,
		ClientPhone:     req.ClientPhone,
		ClientLanguage:  req.ClientLanguage,
		Type:            model.AppointmentType(strings.TrimSpace(req.AppointmentType)),
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		LocationAddress: req.LocationAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookResponse{
		Appointment: toAppointmentResponse(appt),
		CancelToken: appt.CancelToken,
	})
}

type cancelRequest struct {
	CancelToken string `json:"cancel_token"`
	Reason      string `json:"reason"`
}

// Cancel is keyed by the token from the booking confirmation. Repeats are
// reported as success so a re-clicked link never shows the client an error.
func (h *PublicHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.CancelToken = strings.TrimSpace(req.CancelToken)
	if req.CancelToken == "" {
		http.Error(w, "cancel_token required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Cancel(r.Context(), req.CancelToken, strings.TrimSpace(req.Reason))
	if errors.Is(err, scheduling.ErrAlreadyCancelled) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled", "already_cancelled": true})
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	cancelledAt := ""
	if appt.CancelledAt != nil {
		cancelledAt = appt.CancelledAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled", "cancelled_at": cancelledAt})
}
