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

// Gate messages.
const (
	MsgAdminsOnly      = "Admins only"
	MsgPendingApproval = "Your request to join is pending admin approval"
	MsgNotConfirmed    = "Only confirmed guests can see gallery"
)

// RequireAdmin passes only tokens issued to admins.
func RequireAdmin(claims *auth.Claims) error {
	if claims == nil || !claims.IsAdmin() {
		return common.Errorf(common.ErrForbidden, MsgAdminsOnly)
	}
	return nil
}

// AccessService implements the gates that depend on live database state.
// Approval is never taken from the token.
type AccessService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
}

func NewAccessService(db dbx.DBTX, m repomanager.RepositoryManager) *AccessService {
	return &AccessService{db: db, repomanager: m}
}

// RequireApproved returns the caller's current record when approved.
func (s *AccessService) RequireApproved(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	if claims == nil {
		return nil, common.ErrorUnauthorized
	}
	u, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorUnauthorized, "User no longer exists")
		}
		return nil, fmt.Errorf("%w: load user: %v", common.ErrorInternal, err)
	}
	if u.ApprovalStatus != models.ApprovalApproved {
		return nil, common.Errorf(common.ErrForbidden, MsgPendingApproval)
	}
	return u, nil
}

// RequireConfirmedGuest additionally demands an "attending" RSVP. Admins
// are not exempt.
func (s *AccessService) RequireConfirmedGuest(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	u, err := s.RequireApproved(ctx, claims)
	if err != nil {
		return nil, err
	}
	rsvp, err := s.repomanager.RSVPs(s.db).GetByUserID(ctx, u.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrForbidden, MsgNotConfirmed)
		}
		return nil, fmt.Errorf("%w: load rsvp: %v", common.ErrorInternal, err)
	}
	if rsvp.Status != models.RSVPAttending {
		return nil, common.Errorf(common.ErrForbidden, MsgNotConfirmed)
	}
	return u, nil
}
