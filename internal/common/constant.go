package common

import "time"

const (
	// SessionCookieName is the cookie carrying the session token when the
	// cookie transport is configured.
	SessionCookieName = "jwt"

	// AuthorizationHeader carries "Bearer <token>" for the bearer transport.
	AuthorizationHeader = "Authorization"

	// DefaultSessionTTL is the lifetime of an issued session token.
	DefaultSessionTTL = 30 * 24 * time.Hour
)
