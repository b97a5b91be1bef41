package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/logging"
	"github.com/dmitrijs2005/weddingtma/internal/server/auth"
	"github.com/dmitrijs2005/weddingtma/internal/server/events"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/repomanager"
)

// Resolution actions accepted by ApprovalService.Resolve.
const (
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// RequestResult reports the state after a join request.
type RequestResult struct {
	Status  models.ApprovalStatus
	Created bool
}

// ApprovalService drives the unset -> pending -> approved|denied workflow.
// Every transition is a single conditional update, so concurrent calls
// cannot both win.
type ApprovalService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	publisher   events.Publisher
	logger      logging.Logger
}

func NewApprovalService(db dbx.DBTX, m repomanager.RepositoryManager, p events.Publisher, logger logging.Logger) *ApprovalService {
	return &ApprovalService{db: db, repomanager: m, publisher: p, logger: logger.With("service", "approval")}
}

// Request asks to join. Repeated calls, and calls after a decision, return
// the current status without changing it.
func (s *ApprovalService) Request(ctx context.Context, actor *auth.Claims) (*RequestResult, error) {
	repo := s.repomanager.Users(s.db)

	changed, err := repo.MarkPending(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: request approval: %v", common.ErrorInternal, err)
	}
	if changed {
		s.publish(ctx, events.KeyGuestRequested, events.GuestRequested{UserID: actor.UserID, TelegramID: actor.TelegramID})
		return &RequestResult{Status: models.ApprovalPending, Created: true}, nil
	}

	current, err := repo.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorUnauthorized, "User no longer exists")
		}
		return nil, fmt.Errorf("%w: load user: %v", common.ErrorInternal, err)
	}
	return &RequestResult{Status: current.ApprovalStatus}, nil
}

// MyStatus returns the caller's approval status.
func (s *ApprovalService) MyStatus(ctx context.Context, userID string) (models.ApprovalStatus, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.Errorf(common.ErrorNotFound, "No request found")
		}
		return "", fmt.Errorf("%w: load user: %v", common.ErrorInternal, err)
	}
	if u.ApprovalStatus == models.ApprovalUnset {
		return "", common.Errorf(common.ErrorNotFound, "No request found")
	}
	return u.ApprovalStatus, nil
}

// List returns every guest in the workflow, newest request first.
func (s *ApprovalService) List(ctx context.Context, actor *auth.Claims) ([]*models.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Users(s.db).ListRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list requests: %v", common.ErrorInternal, err)
	}
	if list == nil {
		list = []*models.User{}
	}
	return list, nil
}

// Resolve approves or denies a pending request. requestID is the user id
// of the requester.
func (s *ApprovalService) Resolve(ctx context.Context, actor *auth.Claims, requestID, action string) (models.ApprovalStatus, error) {
	if err := RequireAdmin(actor); err != nil {
		return "", err
	}

	var target models.ApprovalStatus
	switch action {
	case ActionApprove:
		target = models.ApprovalApproved
	case ActionDeny:
		target = models.ApprovalDenied
	default:
		return "", common.Errorf(common.ErrValidation, "action must be %q or %q", ActionApprove, ActionDeny)
	}

	id, err := common.ParseID(requestID)
	if err != nil {
		return "", common.Errorf(common.ErrInvalidID, "Invalid request ID")
	}

	repo := s.repomanager.Users(s.db)
	changed, err := repo.Resolve(ctx, id, target)
	if err != nil {
		return "", fmt.Errorf("%w: resolve request: %v", common.ErrorInternal, err)
	}
	if !changed {
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return "", common.Errorf(common.ErrorNotFound, "Request not found")
			}
			return "", fmt.Errorf("%w: load user: %v", common.ErrorInternal, err)
		}
		if u.ApprovalStatus == models.ApprovalUnset {
			return "", common.Errorf(common.ErrorNotFound, "Request not found")
		}
		return "", common.Errorf(common.ErrConflictState, "Request already %s", u.ApprovalStatus)
	}

	s.logger.Info(ctx, "join request resolved", "user_id", id, "status", target, "admin_id", actor.UserID)
	s.publish(ctx, events.KeyGuestResolved, events.GuestResolved{UserID: id, Status: string(target), AdminID: actor.UserID})
	return target, nil
}

func (s *ApprovalService) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		s.logger.Warn(ctx, "event publish failed", "key", key, "error", err)
	}
}
