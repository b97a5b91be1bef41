package users

import (
	"context"

	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	MarkPending(ctx context.Context, id string) (bool, error)
	Resolve(ctx context.Context, id string, status models.ApprovalStatus) (bool, error)
	ListRequests(ctx context.Context) ([]*models.User, error)
}
