package media

import (
	"context"

	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, item *models.Media) (*models.Media, error)
	GetByID(ctx context.Context, id string) (*models.Media, error)
	Delete(ctx context.Context, id string) error
	CountByGallery(ctx context.Context, galleryID string, kind models.MediaType) (int, error)
	ListByGallery(ctx context.Context, galleryID string, kind models.MediaType) ([]*models.Media, error)
	ListPreviews(ctx context.Context, kind models.MediaType, perGallery int) (map[string][]string, error)
}
