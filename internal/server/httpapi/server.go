// Package httpapi exposes the wedding backend over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/weddingtma/internal/logging"
	"github.com/dmitrijs2005/weddingtma/internal/server/auth"
	"github.com/dmitrijs2005/weddingtma/internal/server/models"
	"github.com/dmitrijs2005/weddingtma/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type Authenticator interface {
	Authenticate(ctx context.Context, initData string) (*services.Session, error)
	ParseToken(token string) (*auth.Claims, error)
}

type Approvals interface {
	Request(ctx context.Context, actor *auth.Claims) (*services.RequestResult, error)
	MyStatus(ctx context.Context, userID string) (models.ApprovalStatus, error)
	List(ctx context.Context, actor *auth.Claims) ([]*models.User, error)
	Resolve(ctx context.Context, actor *auth.Claims, requestID, action string) (models.ApprovalStatus, error)
}

type Gates interface {
	RequireConfirmedGuest(ctx context.Context, claims *auth.Claims) (*models.User, error)
}

type RSVPs interface {
	Submit(ctx context.Context, userID string, in services.RSVPInput) (*models.RSVP, error)
	Mine(ctx context.Context, userID string) (*models.RSVP, error)
	All(ctx context.Context, actor *auth.Claims) ([]*models.GuestRSVP, error)
	Stats(ctx context.Context, actor *auth.Claims) (*models.RSVPStats, error)
}

type Galleries interface {
	UploadPhoto(ctx context.Context, user *models.User, data []byte, mimeType string) (*models.Media, error)
	ListGalleries(ctx context.Context) ([]*models.GalleryPreview, error)
	GetGallery(ctx context.Context, galleryID string) (*services.GalleryDetail, error)
	DeleteMedia(ctx context.Context, actor *auth.Claims, mediaID string) error
}

// HTTPObserver receives per-request metrics.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Options configure transport details.
type Options struct {
	CookieTransport bool
	SessionTTL      time.Duration
	CORSOrigins     []string
	MetricsHandler  http.Handler
	Metrics         HTTPObserver
}

// Server is the HTTP front end.
type Server struct {
	address   string
	auth      Authenticator
	approvals Approvals
	gates     Gates
	rsvps     RSVPs
	galleries Galleries
	metrics   HTTPObserver
	opts      Options
	logger    logging.Logger
	handler   http.Handler
}

func NewServer(address string, l logging.Logger, a Authenticator, ap Approvals, g Gates,
	r RSVPs, gl Galleries, opts Options) *Server {
	s := &Server{
		address:   address,
		auth:      a,
		approvals: ap,
		gates:     g,
		rsvps:     r,
		galleries: gl,
		metrics:   opts.Metrics,
		opts:      opts,
		logger:    l.With("module", "http_server"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.opts.MetricsHandler != nil {
		r.Handle("/metrics", s.opts.MetricsHandler).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/telegram", s.handleLogin).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(s.authenticate)

	private.HandleFunc("/guests/request", s.handleRequestApproval).Methods(http.MethodPost)
	private.HandleFunc("/guests/request/me", s.handleMyRequest).Methods(http.MethodGet)
	private.HandleFunc("/guests/requests", s.handleListRequests).Methods(http.MethodGet)
	private.HandleFunc("/guests/requests/{requestId}", s.handleResolveRequest).Methods(http.MethodPatch)

	private.HandleFunc("/rsvp", s.handleSubmitRSVP).Methods(http.MethodPost)
	private.HandleFunc("/rsvp/me", s.handleMyRSVP).Methods(http.MethodGet)
	private.HandleFunc("/rsvp/all", s.handleAllRSVPs).Methods(http.MethodGet)
	private.HandleFunc("/rsvp/stats", s.handleRSVPStats).Methods(http.MethodGet)

	private.HandleFunc("/gallery/upload", s.handleUpload).Methods(http.MethodPost)
	private.HandleFunc("/gallery", s.handleListGalleries).Methods(http.MethodGet)
	private.HandleFunc("/gallery/media/{mediaId}", s.handleDeleteMedia).Methods(http.MethodDelete)
	private.HandleFunc("/gallery/{galleryId}", s.handleGetGallery).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
