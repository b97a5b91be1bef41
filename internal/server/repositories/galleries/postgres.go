// Package galleries stores per-user photo albums.
package galleries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

const galleryColumns = `id, user_id, guest_name, cover_photo_url, photo_count, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGallery(row scanner) (*models.Gallery, error) {
	g := &models.Gallery{}
	err := row.Scan(&g.ID, &g.UserID, &g.GuestName, &g.CoverPhotoURL, &g.PhotoCount, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Gallery, error) {
	g, err := scanGallery(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Gallery, error) {
	return r.getOne(ctx, `SELECT `+galleryColumns+` FROM galleries WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Gallery, error) {
	return r.getOne(ctx, `SELECT `+galleryColumns+` FROM galleries WHERE user_id = $1`, userID)
}

// CreateIfAbsent inserts the gallery unless the user already has one and
// returns whichever row is stored. Concurrent first uploads by one user
// therefore converge on a single gallery.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, gallery *models.Gallery) (*models.Gallery, error) {
	query :=
		`INSERT INTO galleries (user_id, guest_name, cover_photo_url, photo_count)
		 VALUES ($1, $2, $3, 0)
		 ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, gallery.UserID, gallery.GuestName, gallery.CoverPhotoURL); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return r.GetByUserID(ctx, gallery.UserID)
}

// List returns all galleries, most recently updated first.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Gallery, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+galleryColumns+` FROM galleries ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Gallery
	for rows.Next() {
		g, err := scanGallery(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// AdjustPhotoCount adds delta to the counter in a single statement and
// bumps updated_at. The counter never drops below zero.
func (r *PostgresRepository) AdjustPhotoCount(ctx context.Context, id string, delta int) error {
	query :=
		`UPDATE galleries SET photo_count = GREATEST(photo_count + $2, 0), updated_at = now()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ResetCover points the cover at the thumbnail of the oldest remaining
// photo, or clears it when the gallery is empty.
func (r *PostgresRepository) ResetCover(ctx context.Context, id string) error {
	query :=
		`UPDATE galleries g SET cover_photo_url = COALESCE((
		   SELECT m.thumbnail_url FROM media m
		   WHERE m.gallery_id = g.id AND m.type = 'photo'
		   ORDER BY m.uploaded_at ASC
		   LIMIT 1
		 ), '')
		 WHERE g.id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
