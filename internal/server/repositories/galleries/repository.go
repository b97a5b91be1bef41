package galleries

import (
	"context"

	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Gallery, error)
	GetByUserID(ctx context.Context, userID string) (*models.Gallery, error)
	CreateIfAbsent(ctx context.Context, gallery *models.Gallery) (*models.Gallery, error)
	List(ctx context.Context) ([]*models.Gallery, error)
	AdjustPhotoCount(ctx context.Context, id string, delta int) error
	ResetCover(ctx context.Context, id string) error
}
