package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/avelsher/slotbook/internal/model"
	"github.com/avelsher/slotbook/internal/scheduling"
	"github.com/avelsher/slotbook/libs/db"
)

type EmployeeRepository struct {
	pool *db.Pool
}

func NewEmployeeRepository(pool *db.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) List(ctx context.Context) ([]model.Employee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), active
		FROM employees
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emps []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Phone, &e.Active); err != nil {
			return nil, err
		}
		emps = append(emps, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return emps, nil
}

func (r *EmployeeRepository) Get(ctx context.Context, id int64) (model.Employee, error) {
	var e model.Employee
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), active
		FROM employees
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Name, &e.Email, &e.Phone, &e.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Employee{}, scheduling.ErrNotFound
	}
	if err != nil {
		return model.Employee{}, err
	}
	return e, nil
}

type AdminUserRepository struct {
	pool *db.Pool
}

func NewAdminUserRepository(pool *db.Pool) *AdminUserRepository {
	return &AdminUserRepository{pool: pool}
}

// Ensure creates the admin account on first boot; an existing email wins.
func (r *AdminUserRepository) Ensure(ctx context.Context, email, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admin_users (email, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`, email, passwordHash)
	return err
}

func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (model.AdminUser, error) {
	var u model.AdminUser
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM admin_users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AdminUser{}, scheduling.ErrNotFound
	}
	if err != nil {
		return model.AdminUser{}, err
	}
	return u, nil
}
