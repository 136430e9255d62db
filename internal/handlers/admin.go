package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/scheduling"
)

// AdminHandler serves the staff-facing API: appointment management plus
// availability and blocked-time configuration.
type AdminHandler struct {
	svc    *scheduling.Service
	logger *slog.Logger
	loc    *time.Location
}

func NewAdminHandler(svc *scheduling.Service, logger *slog.Logger, loc *time.Location) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger, loc: loc}
}

// Appointments handles GET (list with filters) on /api/v1/admin/appointments.
func (h *AdminHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	var filter scheduling.AppointmentFilter

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := model.AppointmentStatus(raw)
		if !status.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(q.Get("employee_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid employee_id", http.StatusBadRequest)
			return
		}
		filter.EmployeeID = &id
	}
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			http.Error(w, "invalid from, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			http.Error(w, "invalid to, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	appts, err := h.svc.ListAppointments(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

type updateStatusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Note          string `json:"note"`
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.UpdateStatus(r.Context(), req.AppointmentID, model.AppointmentStatus(strings.TrimSpace(req.Status)), strings.TrimSpace(req.Note))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type assignRequest struct {
	AppointmentID string `json:"appointment_id"`
	EmployeeID    int64  `json:"employee_id"`
}

func (h *AdminHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" || req.EmployeeID <= 0 {
		http.Error(w, "appointment_id and employee_id required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.ReassignEmployee(r.Context(), req.AppointmentID, req.EmployeeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

type availabilityRuleBody struct {
	ID          int64 `json:"id"`
	EmployeeID  int64 `json:"employee_id"`
	Weekday     int   `json:"weekday"`
	StartMinute int   `json:"start_minute"`
	EndMinute   int   `json:"end_minute"`
	Available   bool  `json:"available"`
}

func ruleFromBody(body availabilityRuleBody) model.AvailabilityRule {
	return model.AvailabilityRule{
		ID:          body.ID,
		EmployeeID:  body.EmployeeID,
		Weekday:     time.Weekday(body.Weekday),
		StartMinute: body.StartMinute,
		EndMinute:   body.EndMinute,
		Available:   body.Available,
	}
}

func ruleToBody(rule model.AvailabilityRule) availabilityRuleBody {
	return availabilityRuleBody{
		ID:          rule.ID,
		EmployeeID:  rule.EmployeeID,
		Weekday:     int(rule.Weekday),
		StartMinute: rule.StartMinute,
		EndMinute:   rule.EndMinute,
		Available:   rule.Available,
	}
}

// Availability handles GET (list) and POST (create) on /api/v1/admin/availability.
func (h *AdminHandler) Availability(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rules, err := h.svc.ListAvailabilityRules(r.Context())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		out := make([]availabilityRuleBody, 0, len(rules))
		for _, rule := range rules {
			out = append(out, ruleToBody(rule))
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": out})
	case http.MethodPost:
		var body availabilityRuleBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		rule := ruleFromBody(body)
		if err := h.svc.CreateAvailabilityRule(r.Context(), &rule); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, ruleToBody(rule))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body availabilityRuleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if body.ID <= 0 {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateAvailabilityRule(r.Context(), ruleFromBody(body)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

type deleteRuleRequest struct {
	ID int64 `json:"id"`
}

func (h *AdminHandler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req deleteRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteAvailabilityRule(r.Context(), req.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

type blockedTimeBody struct {
	ID         string `json:"id"`
	EmployeeID int64  `json:"employee_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Reason     string `json:"reason"`
	Notes      string `json:"notes"`
	CreatedBy  string `json:"created_by,omitempty"`
}

func blockFromBody(body blockedTimeBody) (model.BlockedTime, error) {
	start, err := time.Parse(time.RFC3339, body.StartTime)
	if err != nil {
		return model.BlockedTime{}, err
	}
	end, err := time.Parse(time.RFC3339, body.EndTime)
	if err != nil {
		return model.BlockedTime{}, err
	}
	return model.BlockedTime{
		ID:         strings.TrimSpace(body.ID),
		EmployeeID: body.EmployeeID,
		StartTime:  start,
		EndTime:    end,
		Reason:     strings.TrimSpace(body.Reason),
		Notes:      strings.TrimSpace(body.Notes),
		CreatedBy:  strings.TrimSpace(body.CreatedBy),
	}, nil
}

func blockToBody(b model.BlockedTime) blockedTimeBody {
	return blockedTimeBody{
		ID:         b.ID,
		EmployeeID: b.EmployeeID,
		StartTime:  b.StartTime.Format(time.RFC3339),
		EndTime:    b.EndTime.Format(time.RFC3339),
		Reason:     b.Reason,
		Notes:      b.Notes,
		CreatedBy:  b.CreatedBy,
	}
}

// Blocked handles GET (list in range) and POST (create) on /api/v1/admin/blocked.
func (h *AdminHandler) Blocked(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		from, err := time.ParseInLocation("2006-01-02", q.Get("from"), h.loc)
		if err != nil {
			http.Error(w, "invalid from, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to, err := time.ParseInLocation("2006-01-02", q.Get("to"), h.loc)
		if err != nil {
			http.Error(w, "invalid to, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		blocks, err := h.svc.ListBlockedTimes(r.Context(), from, to.AddDate(0, 0, 1))
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		out := make([]blockedTimeBody, 0, len(blocks))
		for _, b := range blocks {
			out = append(out, blockToBody(b))
		}
		writeJSON(w, http.StatusOK, map[string]any{"blocked_times": out})
	case http.MethodPost:
		var body blockedTimeBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		block, err := blockFromBody(body)
		if err != nil {
			http.Error(w, "invalid start_time or end_time, want RFC3339", http.StatusBadRequest)
			return
		}
		if err := h.svc.CreateBlockedTime(r.Context(), &block); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, blockToBody(block))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) UpdateBlocked(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body blockedTimeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	block, err := blockFromBody(body)
	if err != nil {
		http.Error(w, "invalid start_time or end_time, want RFC3339", http.StatusBadRequest)
		return
	}
	if block.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateBlockedTime(r.Context(), block); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, blockToBody(block))
}

type deleteBlockedRequest struct {
	ID string `json:"id"`
}

func (h *AdminHandler) DeleteBlocked(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req deleteBlockedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteBlockedTime(r.Context(), req.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

type employeeResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Active bool   `json:"active"`
}

func (h *AdminHandler) Employees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	emps, err := h.svc.Employees(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]employeeResponse, 0, len(emps))
	for _, e := range emps {
		out = append(out, employeeResponse{ID: e.ID, Name: e.Name, Email: e.Email, Phone: e.Phone, Active: e.Active})
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": out})
}
