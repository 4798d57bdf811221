package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrUnauthenticated is the single outcome for every rejected request.
// Missing, tampered and empty sessions are indistinguishable to the caller.
var ErrUnauthenticated = errors.New("unauthenticated")

// PrincipalContextKey is the echo context key holding the *Principal.
const PrincipalContextKey = "sara.principal"

// Principal is a request's validated session.
type Principal struct {
	Identity   string
	CalendarID string
	// Token is the credential sent upstream on the user's behalf.
	Token   string
	Session SessionArtifact
}

// Guard validates the session cookie on inbound requests.
type Guard struct {
	codec *Codec
}

// NewGuard creates a guard that decodes sessions with codec.
func NewGuard(codec *Codec) *Guard {
	return &Guard{codec: codec}
}

// Authorize reads the session cookie from r. It never writes to the
// response and never re-issues the cookie.
func (g *Guard) Authorize(r *http.Request) (*Principal, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrUnauthenticated
	}

	session, err := g.codec.Decode(cookie.Value)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	token := SelectToken(session.Credential)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	return &Principal{
		Identity:   session.Identity,
		CalendarID: session.CalendarID,
		Token:      token,
		Session:    session,
	}, nil
}

// SelectToken prefers the access token and falls back to the id token.
func SelectToken(c Credential) string {
	if c.AccessToken != "" {
		return c.AccessToken
	}
	return c.IDToken
}

// RequireSession returns echo middleware that rejects requests without a
// valid session before the handler runs. onReject renders the rejection.
func (g *Guard) RequireSession(onReject func(echo.Context, error) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, err := g.Authorize(c.Request())
			if err != nil {
				return onReject(c, err)
			}
			c.Set(PrincipalContextKey, principal)
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by RequireSession.
func PrincipalFrom(c echo.Context) (*Principal, bool) {
	p, ok := c.Get(PrincipalContextKey).(*Principal)
	return p, ok && p != nil
}
