// Package media stores gallery items. Photos are the only type produced;
// the type column leaves room for video.
package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

const mediaColumns = `id, gallery_id, user_id, type, cloud_id, url, thumbnail_url, width, height, uploaded_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(row scanner) (*models.Media, error) {
	m := &models.Media{}
	err := row.Scan(&m.ID, &m.GalleryID, &m.UserID, &m.Type, &m.CloudID, &m.URL, &m.ThumbnailURL,
		&m.Width, &m.Height, &m.UploadedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresRepository) Create(ctx context.Context, item *models.Media) (*models.Media, error) {
	query :=
		`INSERT INTO media (gallery_id, user_id, type, cloud_id, url, thumbnail_url, width, height)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, uploaded_at`

	out := *item
	err := r.db.QueryRowContext(ctx, query,
		item.GalleryID, item.UserID, string(item.Type), item.CloudID, item.URL, item.ThumbnailURL,
		item.Width, item.Height).Scan(&out.ID, &out.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	m, err := scanMedia(r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// Delete removes the item. A second delete of the same id reports
// common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
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

func (r *PostgresRepository) CountByGallery(ctx context.Context, galleryID string, kind models.MediaType) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media WHERE gallery_id = $1 AND type = $2`,
		galleryID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// ListByGallery returns the gallery's items of the given type, newest first.
func (r *PostgresRepository) ListByGallery(ctx context.Context, galleryID string, kind models.MediaType) ([]*models.Media, error) {
	query :=
		`SELECT ` + mediaColumns + ` FROM media
		 WHERE gallery_id = $1 AND type = $2
		 ORDER BY uploaded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, galleryID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// ListPreviews returns, keyed by gallery id, the thumbnails of the newest
// perGallery items of the given type in every gallery, newest first.
func (r *PostgresRepository) ListPreviews(ctx context.Context, kind models.MediaType, perGallery int) (map[string][]string, error) {
	query :=
		`SELECT gallery_id, thumbnail_url FROM (
		   SELECT gallery_id, thumbnail_url, uploaded_at,
		          row_number() OVER (PARTITION BY gallery_id ORDER BY uploaded_at DESC) AS rn
		   FROM media WHERE type = $1
		 ) ranked
		 WHERE rn <= $2
		 ORDER BY gallery_id, uploaded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, string(kind), perGallery)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var galleryID, thumb string
		if err := rows.Scan(&galleryID, &thumb); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result[galleryID] = append(result[galleryID], thumb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
