package v1

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/shikhar-s-7/sara-scheduler-ui/server/auth"
	apierrors "github.com/shikhar-s-7/sara-scheduler-ui/server/internal/errors"
)

const (
	// OAuthStateCookieName carries the login nonce between the redirect and the callback.
	OAuthStateCookieName = "oauth_state"
	oauthStateLifetime   = 10 * time.Minute
	oauthStatePath       = "/api/auth"
)

// AuthStatusResponse is the body of GET /api/auth/status.
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	CalendarID    string `json:"calendarId,omitempty"`
}

// GetAuthStatus reports whether the request carries a valid session.
// GET /api/auth/status
func (s *APIV1Service) GetAuthStatus(c echo.Context) error {
	principal, err := s.Guard.Authorize(c.Request())
	if err != nil {
		return c.JSON(http.StatusOK, AuthStatusResponse{Authenticated: false})
	}
	return c.JSON(http.StatusOK, AuthStatusResponse{
		Authenticated: true,
		Email:         principal.Identity,
		CalendarID:    principal.CalendarID,
	})
}

// BeginLogin redirects to the provider's consent page.
// GET /api/auth/google
func (s *APIV1Service) BeginLogin(c echo.Context) error {
	if s.IdentityProvider == nil {
		return apierrors.Internal("oauth is not configured", nil)
	}

	state := shortuuid.New()
	c.SetCookie(s.stateCookie(state, int(oauthStateLifetime/time.Second)))
	return c.Redirect(http.StatusFound, s.IdentityProvider.AuthCodeURL(state))
}

// CompleteLogin exchanges the authorization code and issues the session cookie.
// GET /api/auth/callback
func (s *APIV1Service) CompleteLogin(c echo.Context) error {
	if s.IdentityProvider == nil {
		return apierrors.Internal("oauth is not configured", nil)
	}
	// The nonce is single use whatever the outcome.
	c.SetCookie(s.stateCookie("", -1))

	if providerErr := c.QueryParam("error"); providerErr != "" {
		return apierrors.BadRequest("Authentication was not granted")
	}
	code := c.QueryParam("code")
	if code == "" {
		return apierrors.BadRequest("No code provided")
	}
	state := c.QueryParam("state")
	cookie, err := c.Cookie(OAuthStateCookieName)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		return apierrors.BadRequest("Invalid login state")
	}

	identity, err := s.IdentityProvider.Exchange(c.Request().Context(), code)
	if err != nil {
		return apierrors.Internal("authentication failed", err)
	}

	session := auth.NewSessionArtifact(identity.Email, auth.Credential{
		AccessToken:  identity.AccessToken,
		IDToken:      identity.IDToken,
		RefreshToken: identity.RefreshToken,
		TokenType:    identity.TokenType,
		Expiry:       unixOrZero(identity.Expiry),
	}, "")
	token, err := s.Codec.Encode(session)
	if err != nil {
		return apierrors.Internal("failed to encode session", err)
	}

	c.SetCookie(auth.NewSessionCookie(token, s.Profile.SecureCookies()))
	requestContext(c).Info("user signed in", slog.String("identity", session.Identity))
	return c.Redirect(http.StatusFound, "/")
}

// Logout clears the session cookie. It succeeds whether or not a session exists.
// POST /api/auth/logout
func (s *APIV1Service) Logout(c echo.Context) error {
	c.SetCookie(auth.ClearSessionCookie(s.Profile.SecureCookies()))
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *APIV1Service) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     OAuthStateCookieName,
		Value:    value,
		Path:     oauthStatePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Profile.SecureCookies(),
		SameSite: http.SameSiteLaxMode,
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
