package transport

import (
	"net/http"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, token string) {
	req.Header.Set(a.Header, token)
}

// ForScheme returns the authenticator for a configured scheme name.
// An empty or "bearer" scheme yields BearerAuth, "none" yields NoAuth, and
// anything else is used as a header name.
func ForScheme(scheme string) Authenticator {
	switch scheme {
	case "", "bearer", "Bearer":
		return &BearerAuth{}
	case "none":
		return &NoAuth{}
	default:
		return &HeaderAuth{Header: scheme}
	}
}
