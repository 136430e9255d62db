// Package notifier turns appointment state changes into client and employee
// messages. Two implementations of scheduling.Notifier exist: OutboxNotifier
// stages events for the Kafka pipeline, DirectNotifier sends in-process when
// no brokers are configured.
package notifier

import (
	"time"

	"github.com/avelsher/slotbook/internal/model"
)

// AppointmentEvent is the JSON payload carried by every appointment event.
type AppointmentEvent struct {
	AppointmentID   string `json:"appointment_id"`
	Event           string `json:"event"`
	ClientName      string `json:"client_name"`
	ClientEmail     string `json:"client_email"`
	ClientPhone     string `json:"client_phone"`
	ClientLanguage  string `json:"client_language"`
	AppointmentType string `json:"appointment_type"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	LocationAddress string `json:"location_address,omitempty"`
	CancelToken     string `json:"cancel_token,omitempty"`
	EmployeeName    string `json:"employee_name,omitempty"`
	EmployeeEmail   string `json:"employee_email,omitempty"`
	Note            string `json:"note,omitempty"`
}

func eventFor(event string, appt model.Appointment) AppointmentEvent {
	return AppointmentEvent{
		AppointmentID:   appt.ID,
		Event:           event,
		ClientName:      appt.ClientName,
		ClientEmail:     appt.ClientEmail,
		ClientPhone:     appt.ClientPhone,
		ClientLanguage:  appt.ClientLanguage,
		AppointmentType: string(appt.Type),
		StartTime:       appt.StartTime.Format(time.RFC3339),
		DurationMinutes: appt.DurationMinutes,
		LocationAddress: appt.LocationAddress,
		CancelToken:     appt.CancelToken,
	}
}
