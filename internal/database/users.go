package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nextgendevs/ng-backend/internal/models"
)

const userColumns = `user_id, name, email, password, activated, deactivated, deactivation_date, created_at, updated_at`

// UserRepository stores accounts in Postgres
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var deactivationDate sql.NullTime
	err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.Password, &u.Activated,
		&u.Deactivated, &deactivationDate, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.DeactivationDate = timePtr(deactivationDate)
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Create inserts an activated account. ErrDuplicate means the id or email is taken.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (user_id, name, email, password, activated)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.UserID, u.Name, u.Email, u.Password, u.Activated)
	created, err := scanUser(row)
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return created, err
}

// Update writes only the non-nil fields. update.Password must already be hashed.
func (r *UserRepository) Update(ctx context.Context, userID string, update models.UserUpdate) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			password = COALESCE($4, password),
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+userColumns,
		userID, update.Name, update.Email, update.Password)
	updated, err := scanUser(row)
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return updated, err
}

func (r *UserRepository) Deactivate(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET deactivated = TRUE, deactivation_date = $2, updated_at = NOW()
		WHERE user_id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDeactivatedBefore hard-deletes accounts deactivated at or before cutoff.
// Their devices go with them.
func (r *UserRepository) DeleteDeactivatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM users WHERE deactivated AND deactivation_date <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
