// Package handlers is the HTTP surface over the scheduling engine: a public
// booking API and a JWT-guarded admin API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/avelsher/slotbook/internal/lifecycle"
	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses. Anything unrecognized is
// logged and returned as a bare 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *scheduling.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Message, "field": verr.Field})
		return
	}
	var ite *lifecycle.InvalidTransitionError
	if errors.As(err, &ite) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": ite.Error()})
		return
	}
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, scheduling.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "time slot is no longer available"})
	case errors.Is(err, scheduling.ErrAlreadyCancelled):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "appointment already cancelled"})
	default:
		logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

type appointmentResponse struct {
	ID              string `json:"id"`
	ClientName      string `json:"client_name"`
	ClientEmail     string `json:"client_email"`
	ClientPhone     string `json:"client_phone"`
	ClientLanguage  string `json:"client_language"`
	Type            string `json:"appointment_type"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	LocationAddress string `json:"location_address,omitempty"`
	Notes           string `json:"notes,omitempty"`
	EmployeeID      *int64 `json:"employee_id,omitempty"`
	CancelReason    string `json:"cancellation_reason,omitempty"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		ID:              appt.ID,
		ClientName:      appt.ClientName,
		ClientEmail:     appt.ClientEmail,
		ClientPhone:     appt.ClientPhone,
		ClientLanguage:  appt.ClientLanguage,
		Type:            string(appt.Type),
		StartTime:       appt.StartTime.Format(time.RFC3339),
		DurationMinutes: appt.DurationMinutes,
		Status:          string(appt.Status),
		LocationAddress: appt.LocationAddress,
		Notes:           appt.Notes,
		EmployeeID:      appt.EmployeeID,
		CancelReason:    appt.CancelReason,
		CreatedAt:       appt.CreatedAt.Format(time.RFC3339),
	}
	if appt.CancelledAt != nil {
		resp.CancelledAt = appt.CancelledAt.Format(time.RFC3339)
	}
	return resp
}
