// Package users stores Telegram users together with their approval state.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

const userColumns = `id, telegram_id, first_name, last_name, username, role,
approval_status, requested_at, resolved_at, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var status sql.NullString
	err := row.Scan(&u.ID, &u.TelegramID, &u.FirstName, &u.LastName, &u.Username, &u.Role,
		&status, &u.RequestedAt, &u.ResolvedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ApprovalStatus = models.ApprovalStatus(status.String)
	return u, nil
}

// Upsert inserts the user keyed by Telegram id or refreshes the profile
// fields and role of an existing one. Admins always end up approved;
// guests keep whatever approval state they had.
func (r *PostgresRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (telegram_id, first_name, last_name, username, role, approval_status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (telegram_id) DO UPDATE SET
		   first_name = EXCLUDED.first_name,
		   last_name = EXCLUDED.last_name,
		   username = EXCLUDED.username,
		   role = EXCLUDED.role,
		   approval_status = CASE WHEN EXCLUDED.role = 'admin' THEN 'approved' ELSE users.approval_status END,
		   updated_at = now()
		 RETURNING ` + userColumns

	var initial sql.NullString
	if user.Role == models.RoleAdmin {
		initial = sql.NullString{String: string(models.ApprovalApproved), Valid: true}
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.TelegramID, user.FirstName, user.LastName, user.Username, string(user.Role), initial))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// MarkPending moves the user from unset to pending. It reports false when
// the user already had a status (or does not exist); nothing changes then.
func (r *PostgresRepository) MarkPending(ctx context.Context, id string) (bool, error) {
	query :=
		`UPDATE users SET approval_status = 'pending', requested_at = now(), updated_at = now()
		 WHERE id = $1 AND approval_status IS NULL`

	return r.execChanged(ctx, query, id)
}

// Resolve moves a pending user to status. It reports false when the user is
// not pending (or does not exist).
func (r *PostgresRepository) Resolve(ctx context.Context, id string, status models.ApprovalStatus) (bool, error) {
	query :=
		`UPDATE users SET approval_status = $2, resolved_at = now(), updated_at = now()
		 WHERE id = $1 AND approval_status = 'pending'`

	return r.execChanged(ctx, query, id, string(status))
}

func (r *PostgresRepository) execChanged(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

// ListRequests returns guests that have entered the approval workflow,
// newest request first.
func (r *PostgresRepository) ListRequests(ctx context.Context) ([]*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE approval_status IS NOT NULL AND role = 'guest'
		 ORDER BY requested_at DESC NULLS LAST, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
