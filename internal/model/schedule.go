package model

import "time"

// AvailabilityRule is a recurring weekly working window for one employee.
// Times are minutes from midnight in the business timezone.
type AvailabilityRule struct {
	ID          int64
	EmployeeID  int64
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	Available   bool
}

// BlockedTime is a one-off absolute interval during which an employee is not
// schedulable, regardless of availability rules.
type BlockedTime struct {
	ID         string
	EmployeeID int64
	StartTime  time.Time
	EndTime    time.Time
	Reason     string
	Notes      string
	CreatedBy  string
	CreatedAt  time.Time
}

type Employee struct {
	ID     int64
	Name   string
	Email  string
	Phone  string
	Active bool
}

type AdminUser struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
