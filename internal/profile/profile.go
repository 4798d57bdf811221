package profile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultTimezone is used when the browser does not report one.
	DefaultTimezone = "Asia/Kolkata"
	// DefaultChatTimeout is the hard budget for a single chat round-trip.
	DefaultChatTimeout = 600 * time.Second
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string
	// InstanceURL is the public url the browser uses to reach this server.
	InstanceURL string
	// Secret signs session cookies. Generated per process in dev when empty.
	Secret string

	// BackendURL is the base url of the reasoning backend (the "/chat" and
	// "/events/upcoming" endpoints hang off it).
	BackendURL string
	// DefaultTimezone is forwarded upstream when the client sends none.
	DefaultTimezone string
	// ChatTimeout bounds a single upstream chat call.
	ChatTimeout time.Duration

	// Google OAuth2 client.
	GoogleClientID     string // SARA_GOOGLE_CLIENT_ID (legacy: GOOGLE_CLIENT_ID)
	GoogleClientSecret string // SARA_GOOGLE_CLIENT_SECRET (legacy: GOOGLE_CLIENT_SECRET)
	GoogleRedirectURI  string // SARA_GOOGLE_REDIRECT_URI (legacy: GOOGLE_REDIRECT_URI)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// SecureCookies reports whether cookies must carry the Secure attribute.
func (p *Profile) SecureCookies() bool {
	return p.Mode == "prod" || strings.HasPrefix(p.InstanceURL, "https://")
}

// IsOAuthConfigured returns true if the Google client is fully configured.
func (p *Profile) IsOAuthConfigured() bool {
	return p.GoogleClientID != "" && p.GoogleClientSecret != "" && p.GoogleRedirectURI != ""
}

// FromEnv loads configuration from environment variables.
// Supports both SARA_* (new) and the bare GOOGLE_* / NLP_* keys used by the
// first deployment. Values already set on the profile win over the environment.
func (p *Profile) FromEnv() {
	getEnvWithFallback := func(newKey, legacyKey string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		return os.Getenv(legacyKey)
	}

	setIfEmpty := func(dst *string, newKey, legacyKey string) {
		if *dst == "" {
			*dst = getEnvWithFallback(newKey, legacyKey)
		}
	}

	setIfEmpty(&p.Secret, "SARA_SECRET", "SESSION_SECRET")
	setIfEmpty(&p.BackendURL, "SARA_BACKEND_URL", "NLP_SERVER_URL")
	setIfEmpty(&p.GoogleClientID, "SARA_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID")
	setIfEmpty(&p.GoogleClientSecret, "SARA_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")
	setIfEmpty(&p.GoogleRedirectURI, "SARA_GOOGLE_REDIRECT_URI", "GOOGLE_REDIRECT_URI")
	if p.DefaultTimezone == "" {
		p.DefaultTimezone = getEnvWithFallback("SARA_DEFAULT_TIMEZONE", "DEFAULT_TIMEZONE")
	}
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.DefaultTimezone == "" {
		p.DefaultTimezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(p.DefaultTimezone); err != nil {
		return errors.Wrapf(err, "invalid default timezone %q", p.DefaultTimezone)
	}
	if p.ChatTimeout <= 0 {
		p.ChatTimeout = DefaultChatTimeout
	}

	if p.BackendURL == "" {
		return errors.New("backend url is required")
	}
	u, err := url.Parse(p.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid backend url %q", p.BackendURL)
	}
	p.BackendURL = strings.TrimRight(p.BackendURL, "/")

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("secret is required in prod mode")
		}
		secret, err := randomSecret()
		if err != nil {
			return errors.Wrap(err, "failed to generate secret")
		}
		p.Secret = secret
		slog.Warn("no secret configured, sessions will not survive a restart", slog.String("mode", p.Mode))
	}

	if p.Mode == "prod" && !p.IsOAuthConfigured() {
		return errors.New("google oauth client is not configured")
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// String renders the profile without credentials.
func (p *Profile) String() string {
	return fmt.Sprintf("mode=%s addr=%s port=%d backend=%s timezone=%s", p.Mode, p.Addr, p.Port, p.BackendURL, p.DefaultTimezone)
}
