// Package services contains server-side business logic: Telegram login and
// sessions, the approval workflow and its gates, RSVPs and the photo
// gallery.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/dbx"
	"github.com/dmitrijs2005/weddingtma/internal/logging"
	"github.com/dmitrijs2005/weddingtma/internal/server/auth"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
	"github.com/dmitrijs2005/weddingtma/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/weddingtma/internal/telegram"
)

// InitDataVerifier checks a Telegram initData payload.
type InitDataVerifier interface {
	Verify(raw string) (*telegram.InitData, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthService turns a verified Telegram identity into a stored user and a
// session token.
type AuthService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	verifier    InitDataVerifier
	admins      map[int64]struct{}
	jwtSecret   []byte
	ttl         time.Duration
	logger      logging.Logger
}

// ParseAdminIDs converts the configured allow-list to Telegram ids.
func ParseAdminIDs(ids []string) (map[int64]struct{}, error) {
	admins := make(map[int64]struct{}, len(ids))
	for _, s := range ids {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: admin telegram id %q", common.ErrConfiguration, s)
		}
		admins[id] = struct{}{}
	}
	return admins, nil
}

func NewAuthService(db dbx.DBTX, m repomanager.RepositoryManager, v InitDataVerifier,
	admins map[int64]struct{}, secret string, ttl time.Duration, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		verifier:    v,
		admins:      admins,
		jwtSecret:   []byte(secret),
		ttl:         ttl,
		logger:      logger.With("service", "auth"),
	}
}

// Authenticate verifies initData, upserts the user and issues a token.
// Signature problems wrap common.ErrSignatureInvalid, an unusable user field
// wraps common.ErrMalformedIdentity.
func (s *AuthService) Authenticate(ctx context.Context, initData string) (*Session, error) {
	data, err := s.verifier.Verify(initData)
	if err != nil {
		s.logger.Warn(ctx, "telegram login rejected", "error", err)
		return nil, err
	}

	role := models.RoleGuest
	if _, ok := s.admins[data.User.ID]; ok {
		role = models.RoleAdmin
	}

	user, err := s.repomanager.Users(s.db).Upsert(ctx, &models.User{
		TelegramID: data.User.ID,
		FirstName:  data.User.FirstName,
		LastName:   data.User.LastName,
		Username:   data.User.Username,
		Role:       role,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upsert user: %v", common.ErrorInternal, err)
	}

	token, err := auth.GenerateToken(user, s.jwtSecret, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "telegram login", "user_id", user.ID, "role", user.Role)
	return &Session{Token: token, ExpiresAt: time.Now().Add(s.ttl), User: user}, nil
}

// CurrentUser re-reads the user behind a token. A token whose user is gone
// no longer authenticates.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorUnauthorized, "User no longer exists")
		}
		return nil, fmt.Errorf("%w: load user: %v", common.ErrorInternal, err)
	}
	return u, nil
}

// ParseToken validates a session token.
func (s *AuthService) ParseToken(token string) (*auth.Claims, error) {
	return auth.ParseToken(token, s.jwtSecret)
}
