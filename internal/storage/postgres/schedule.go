package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/scheduling"
	"github.com/avelsher/slotbook/libs/db"
)

type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) ListForWeekday(ctx context.Context, weekday time.Weekday) ([]model.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, weekday, start_minute, end_minute, available
		FROM availability_rules
		WHERE weekday = $1
		ORDER BY employee_id ASC, start_minute ASC
	`, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *AvailabilityRepository) ListAll(ctx context.Context) ([]model.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, weekday, start_minute, end_minute, available
		FROM availability_rules
		ORDER BY employee_id ASC, weekday ASC, start_minute ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *AvailabilityRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO availability_rules (employee_id, weekday, start_minute, end_minute, available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rule.EmployeeID, int(rule.Weekday), rule.StartMinute, rule.EndMinute, rule.Available).Scan(&rule.ID)
}

func (r *AvailabilityRepository) Update(ctx context.Context, rule model.AvailabilityRule) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE availability_rules
		SET employee_id = $2, weekday = $3, start_minute = $4, end_minute = $5, available = $6
		WHERE id = $1
	`, rule.ID, rule.EmployeeID, int(rule.Weekday), rule.StartMinute, rule.EndMinute, rule.Available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (r *AvailabilityRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM availability_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func collectRules(rows pgx.Rows) ([]model.AvailabilityRule, error) {
	var rules []model.AvailabilityRule
	for rows.Next() {
		var rule model.AvailabilityRule
		var weekday int
		if err := rows.Scan(&rule.ID, &rule.EmployeeID, &weekday, &rule.StartMinute, &rule.EndMinute, &rule.Available); err != nil {
			return nil, err
		}
		rule.Weekday = time.Weekday(weekday)
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

type BlockedTimeRepository struct {
	pool *db.Pool
}

func NewBlockedTimeRepository(pool *db.Pool) *BlockedTimeRepository {
	return &BlockedTimeRepository{pool: pool}
}

func (r *BlockedTimeRepository) ListInRange(ctx context.Context, from, to time.Time) ([]model.BlockedTime, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, start_time, end_time, COALESCE(reason, ''), COALESCE(notes, ''), COALESCE(created_by, ''), created_at
		FROM blocked_times
		WHERE start_time < $2 AND end_time > $1
		ORDER BY start_time ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBlocks(rows)
}

func (r *BlockedTimeRepository) ListForEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]model.BlockedTime, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, start_time, end_time, COALESCE(reason, ''), COALESCE(notes, ''), COALESCE(created_by, ''), created_at
		FROM blocked_times
		WHERE employee_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC
	`, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBlocks(rows)
}

// Create takes the employee's advisory lock so a block cannot slide under an
// in-flight booking for the same window.
func (r *BlockedTimeRepository) Create(ctx context.Context, block *model.BlockedTime) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockEmployee(ctx, tx, block.EmployeeID); err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO blocked_times (id, employee_id, start_time, end_time, reason, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, block.ID, block.EmployeeID, block.StartTime, block.EndTime, block.Reason, block.Notes, block.CreatedBy).Scan(&block.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *BlockedTimeRepository) Update(ctx context.Context, block model.BlockedTime) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE blocked_times
		SET employee_id = $2, start_time = $3, end_time = $4, reason = $5, notes = $6
		WHERE id = $1
	`, block.ID, block.EmployeeID, block.StartTime, block.EndTime, block.Reason, block.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (r *BlockedTimeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_times WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func collectBlocks(rows pgx.Rows) ([]model.BlockedTime, error) {
	var blocks []model.BlockedTime
	for rows.Next() {
		var b model.BlockedTime
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.StartTime, &b.EndTime, &b.Reason, &b.Notes, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return blocks, nil
}
