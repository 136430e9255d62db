// Package postgres implements the scheduling storage ports on pgx. Write
// paths that must not double-book take a per-employee advisory lock and
// re-check overlaps inside the same transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avelsher/slotbook/internal/availability"
	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/scheduling"
	"github.com/avelsher/slotbook/libs/db"
)

const appointmentColumns = `id, client_name, client_email, client_phone, client_language,
	appointment_type, start_time, duration_minutes, status, location_address, notes,
	employee_id, cancel_token, COALESCE(cancellation_reason, ''), cancelled_at, created_at, updated_at`

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Create inserts the appointment. When an employee is assigned, the insert
// runs under that employee's advisory lock and re-checks the window against
// both appointments and blocked time; a hit returns scheduling.ErrConflict.
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if appt.EmployeeID != nil {
		if err := lockEmployee(ctx, tx, *appt.EmployeeID); err != nil {
			return err
		}
		busy, err := windowTaken(ctx, tx, *appt.EmployeeID, appt.StartTime, appt.EndTime(), "")
		if err != nil {
			return err
		}
		if busy {
			return scheduling.ErrConflict
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, client_name, client_email, client_phone, client_language,
			appointment_type, start_time, duration_minutes, status, location_address,
			notes, employee_id, cancel_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, appt.ID, appt.ClientName, appt.ClientEmail, appt.ClientPhone, appt.ClientLanguage,
		appt.Type, appt.StartTime, appt.DurationMinutes, appt.Status, appt.LocationAddress,
		appt.Notes, appt.EmployeeID, appt.CancelToken).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *AppointmentRepository) GetByCancelToken(ctx context.Context, token string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE cancel_token = $1
	`, token)
	return scanAppointment(row)
}

func (r *AppointmentRepository) List(ctx context.Context, filter scheduling.AppointmentFilter) ([]model.Appointment, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.EmployeeID != nil {
		add("employee_id = $%d", *filter.EmployeeID)
	}
	if filter.From != nil {
		add("start_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("start_time < $%d", *filter.To)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_time ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) BusyIntervals(ctx context.Context, employeeID int64, from, to time.Time) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, start_time + make_interval(mins => duration_minutes)
		FROM appointments
		WHERE employee_id = $1
			AND status <> 'cancelled'
			AND start_time < $3
			AND start_time + make_interval(mins => duration_minutes) > $2
		ORDER BY start_time ASC
	`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return intervals, nil
}

// UpdateStatus applies the change only when the row is still in the expected
// status, so concurrent administrative edits cannot skip a lifecycle step.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, from, to model.AppointmentStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return scheduling.ErrNotFound
	}
	return scheduling.ErrConflict
}

// Cancel refuses to touch a terminal row, so a cancel racing an
// administrative completion cannot drag the appointment back out of its
// terminal state.
func (r *AppointmentRepository) Cancel(ctx context.Context, id, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $2,
			updated_at = now()
		WHERE id = $1 AND status NOT IN ('cancelled', 'completed', 'no_show')
		RETURNING cancelled_at
	`, id, reason).Scan(&cancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var status model.AppointmentStatus
		lookupErr := r.pool.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&status)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return time.Time{}, scheduling.ErrNotFound
		}
		if lookupErr != nil {
			return time.Time{}, lookupErr
		}
		if status == model.StatusCancelled {
			return time.Time{}, scheduling.ErrAlreadyCancelled
		}
		return time.Time{}, scheduling.ErrConflict
	}
	return cancelledAt, err
}

// Reassign moves the appointment onto another employee's calendar under that
// employee's advisory lock, re-checking the appointment's window there.
func (r *AppointmentRepository) Reassign(ctx context.Context, id string, employeeID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockEmployee(ctx, tx, employeeID); err != nil {
		return err
	}

	var start time.Time
	var minutes int
	err = tx.QueryRow(ctx, `
		SELECT start_time, duration_minutes
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&start, &minutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return scheduling.ErrNotFound
	}
	if err != nil {
		return err
	}

	busy, err := windowTaken(ctx, tx, employeeID, start, start.Add(time.Duration(minutes)*time.Minute), id)
	if err != nil {
		return err
	}
	if busy {
		return scheduling.ErrConflict
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments
		SET employee_id = $2, updated_at = now()
		WHERE id = $1
	`, id, employeeID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// lockEmployee serializes every conflicting write for one employee within the
// surrounding transaction.
func lockEmployee(ctx context.Context, tx pgx.Tx, employeeID int64) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('employee:' || $1::text))`, employeeID)
	return err
}

// windowTaken reports whether [from, to) intersects a non-cancelled
// appointment (other than excludeID) or any blocked time for the employee.
func windowTaken(ctx context.Context, tx pgx.Tx, employeeID int64, from, to time.Time, excludeID string) (bool, error) {
	var taken bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE employee_id = $1
				AND ($4 = '' OR id::text <> $4)
				AND status <> 'cancelled'
				AND start_time < $3
				AND start_time + make_interval(mins => duration_minutes) > $2
		) OR EXISTS (
			SELECT 1 FROM blocked_times
			WHERE employee_id = $1
				AND start_time < $3
				AND end_time > $2
		)
	`, employeeID, from, to, excludeID).Scan(&taken)
	return taken, err
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var employeeID *int64
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.ClientName,
		&appt.ClientEmail,
		&appt.ClientPhone,
		&appt.ClientLanguage,
		&appt.Type,
		&appt.StartTime,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.LocationAddress,
		&appt.Notes,
		&employeeID,
		&appt.CancelToken,
		&appt.CancelReason,
		&cancelledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, err
	}
	appt.EmployeeID = employeeID
	appt.CancelledAt = cancelledAt
	return appt, nil
}
