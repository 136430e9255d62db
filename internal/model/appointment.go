package model

import "time"

type AppointmentStatus string

const (
	StatusPending         AppointmentStatus = "pending"
	StatusConfirmed       AppointmentStatus = "confirmed"
	StatusCompleted       AppointmentStatus = "completed"
	StatusCancelled       AppointmentStatus = "cancelled"
	StatusNoShow          AppointmentStatus = "no_show"
	StatusNeedsReschedule AppointmentStatus = "needs_reschedule"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow, StatusNeedsReschedule:
		return true
	}
	return false
}

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeMeasurement  AppointmentType = "measurement"
	TypeEstimate     AppointmentType = "estimate"
	TypeFollowup     AppointmentType = "followup"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeConsultation, TypeMeasurement, TypeEstimate, TypeFollowup:
		return true
	}
	return false
}

// DefaultDuration is the booking length used when a request does not name one.
func (t AppointmentType) DefaultDuration() time.Duration {
	switch t {
	case TypeMeasurement:
		return 90 * time.Minute
	case TypeFollowup:
		return 30 * time.Minute
	default:
		return 60 * time.Minute
	}
}

type Appointment struct {
	ID              string
	ClientName      string
	ClientEmail     string
	ClientPhone     string
	ClientLanguage  string
	Type            AppointmentType
	StartTime       time.Time
	DurationMinutes int
	Status          AppointmentStatus
	LocationAddress string
	Notes           string
	EmployeeID      *int64
	CancelToken     string
	CancelReason    string
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Blocking reports whether the appointment still occupies its time window.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCancelled
}
