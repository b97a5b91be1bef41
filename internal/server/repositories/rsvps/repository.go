package rsvps

import (
	"context"

	"github.com/dmitrijs2005/weddingtma/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, rsvp *models.RSVP) (*models.RSVP, error)
	GetByUserID(ctx context.Context, userID string) (*models.RSVP, error)
	ListWithGuests(ctx context.Context) ([]*models.GuestRSVP, error)
	Stats(ctx context.Context) (*models.RSVPStats, error)
}
