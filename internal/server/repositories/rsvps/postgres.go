// Package rsvps stores attendance answers, one per user.
package rsvps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

// UnknownGuest names an RSVP whose user row is gone.
const UnknownGuest = "Unknown"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, rsvp *models.RSVP) (*models.RSVP, error) {
	query :=
		`INSERT INTO rsvps (user_id, status, guest_count, dietary_notes)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
		   status = EXCLUDED.status,
		   guest_count = EXCLUDED.guest_count,
		   dietary_notes = EXCLUDED.dietary_notes,
		   updated_at = now()
		 RETURNING created_at, updated_at`

	out := *rsvp
	err := r.db.QueryRowContext(ctx, query,
		rsvp.UserID, string(rsvp.Status), rsvp.GuestCount, rsvp.DietaryNotes).
		Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.RSVP, error) {
	query :=
		`SELECT user_id, status, guest_count, dietary_notes, created_at, updated_at
		 FROM rsvps WHERE user_id = $1`

	rsvp := &models.RSVP{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rsvp.UserID, &rsvp.Status,
		&rsvp.GuestCount, &rsvp.DietaryNotes, &rsvp.CreatedAt, &rsvp.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rsvp, nil
}

// ListWithGuests returns every RSVP with the guest's display name, most
// recently updated first.
func (r *PostgresRepository) ListWithGuests(ctx context.Context) ([]*models.GuestRSVP, error) {
	query :=
		`SELECT r.user_id, r.status, r.guest_count, r.dietary_notes, r.created_at, r.updated_at,
		        u.first_name, u.last_name
		 FROM rsvps r
		 LEFT JOIN users u ON u.id = r.user_id
		 ORDER BY r.updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.GuestRSVP
	for rows.Next() {
		g := &models.GuestRSVP{}
		var first, last sql.NullString
		if err := rows.Scan(&g.UserID, &g.Status, &g.GuestCount, &g.DietaryNotes,
			&g.CreatedAt, &g.UpdatedAt, &first, &last); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		g.Guest = UnknownGuest
		if first.Valid {
			u := models.User{FirstName: first.String, LastName: last.String}
			g.Guest = u.DisplayName()
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Stats counts answers and sums the party size of attending guests.
func (r *PostgresRepository) Stats(ctx context.Context) (*models.RSVPStats, error) {
	query :=
		`SELECT
		   COUNT(*) FILTER (WHERE status = 'attending'),
		   COUNT(*) FILTER (WHERE status = 'not_attending'),
		   COUNT(*) FILTER (WHERE status = 'maybe'),
		   COALESCE(SUM(guest_count) FILTER (WHERE status = 'attending'), 0)
		 FROM rsvps`

	s := &models.RSVPStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(&s.Attending, &s.NotAttending, &s.Maybe, &s.TotalGuests)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
