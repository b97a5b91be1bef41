package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/weddingtma/internal/common"
	"github.com/dmitrijs2005/weddingtma/internal/server/auth"
	"github.com/gorilla/mux"
)

// CookieName is the session cookie used by the cookie transport.
const CookieName = common.SessionCookieName

type ctxKey string

const claimsKey ctxKey = "claims"

// ClaimsFrom returns the session claims stored by the auth middleware.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// observe logs every request and feeds the HTTP metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, routeOf(r), rec.status, elapsed)
		}
		s.logger.Info(r.Context(), "http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", elapsed)
	})
}

// tokenFrom reads the session token from the jwt cookie in cookie mode and
// from the Authorization bearer header otherwise.
func tokenFrom(r *http.Request, cookieMode bool) string {
	if cookieMode {
		if c, err := r.Cookie(CookieName); err == nil {
			return c.Value
		}
		return ""
	}
	if h := r.Header.Get(common.AuthorizationHeader); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// authenticate rejects requests without a valid session token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFrom(r, s.opts.CookieTransport)
		if token == "" {
			s.writeError(w, r, common.Errorf(common.ErrorUnauthorized, "Missing token"))
			return
		}
		claims, err := s.auth.ParseToken(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}
