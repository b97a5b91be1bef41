package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/server/auth"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/repomanager"
)

// Party size bounds of an RSVP.
const (
	MinGuestCount = 1
	MaxGuestCount = 10
)

// RSVPInput is a guest's answer. A zero GuestCount means one guest.
type RSVPInput struct {
	Status       models.RSVPStatus
	GuestCount   int
	DietaryNotes string
}

type RSVPService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
}

func NewRSVPService(db dbx.DBTX, m repomanager.RepositoryManager) *RSVPService {
	return &RSVPService{db: db, repomanager: m}
}

// Submit creates or replaces the caller's RSVP.
func (s *RSVPService) Submit(ctx context.Context, userID string, in RSVPInput) (*models.RSVP, error) {
	if !in.Status.Valid() {
		return nil, common.Errorf(common.ErrValidation, "status must be one of attending, not_attending, maybe")
	}
	if in.GuestCount == 0 {
		in.GuestCount = MinGuestCount
	}
	if in.GuestCount < MinGuestCount || in.GuestCount > MaxGuestCount {
		return nil, common.Errorf(common.ErrValidation, "guestCount must be between %d and %d", MinGuestCount, MaxGuestCount)
	}

	out, err := s.repomanager.RSVPs(s.db).Upsert(ctx, &models.RSVP{
		UserID:       userID,
		Status:       in.Status,
		GuestCount:   in.GuestCount,
		DietaryNotes: in.DietaryNotes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: save rsvp: %v", common.ErrorInternal, err)
	}
	return out, nil
}

func (s *RSVPService) Mine(ctx context.Context, userID string) (*models.RSVP, error) {
	rsvp, err := s.repomanager.RSVPs(s.db).GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "No RSVP found yet")
		}
		return nil, fmt.Errorf("%w: load rsvp: %v", common.ErrorInternal, err)
	}
	return rsvp, nil
}

func (s *RSVPService) All(ctx context.Context, actor *auth.Claims) ([]*models.GuestRSVP, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.repomanager.RSVPs(s.db).ListWithGuests(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list rsvps: %v", common.ErrorInternal, err)
	}
	if list == nil {
		list = []*models.GuestRSVP{}
	}
	return list, nil
}

func (s *RSVPService) Stats(ctx context.Context, actor *auth.Claims) (*models.RSVPStats, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	stats, err := s.repomanager.RSVPs(s.db).Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: rsvp stats: %v", common.ErrorInternal, err)
	}
	return stats, nil
}
