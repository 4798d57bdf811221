// Package auth holds the client-held session: how it is encoded into the
// session cookie and how every request is checked against it.
//
// There is no server-side session store. The cookie is the session, so a
// session can only end by the browser deleting it or by its expiry.
package auth

import (
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	// SessionCookieName is the name of the cookie carrying the session.
	SessionCookieName = "session"
	// SessionLifetime is the fixed lifetime of a session cookie.
	SessionLifetime = 7 * 24 * time.Hour
	// Issuer is the iss claim of session tokens.
	Issuer = "sara"

	keyInfo = "sara session cookie v1"
)

// ErrInvalidSession is returned for any token that does not decode into a
// session this server issued.
var ErrInvalidSession = errors.New("invalid session")

// Credential is the provider token bundle. Only AccessToken and IDToken are
// ever looked at; the rest is carried for the provider's benefit.
type Credential struct {
	AccessToken  string `json:"access_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	// Expiry is the provider token expiry in unix seconds, 0 if unknown.
	Expiry int64 `json:"expiry_date,omitempty"`
}

// SessionArtifact is the authenticated principal for one login.
// It is a value; a new login replaces it wholesale.
type SessionArtifact struct {
	Identity   string
	Credential Credential
	CalendarID string
}

// NewSessionArtifact builds an artifact, defaulting the calendar to the
// identity when the provider did not name one.
func NewSessionArtifact(identity string, credential Credential, calendarID string) SessionArtifact {
	if calendarID == "" {
		calendarID = identity
	}
	return SessionArtifact{Identity: identity, Credential: credential, CalendarID: calendarID}
}

// sessionClaims is the JWT body of a session token.
type sessionClaims struct {
	Email      string     `json:"email"`
	Tokens     Credential `json:"tokens"`
	CalendarID string     `json:"calendarId"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens.
type Codec struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewCodec derives the signing key from secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}
	return &Codec{key: key, lifetime: SessionLifetime, now: time.Now}, nil
}

// Encode serializes a session artifact into an opaque token.
func (c *Codec) Encode(s SessionArtifact) (string, error) {
	now := c.now()
	claims := sessionClaims{
		Email:      s.Identity,
		Tokens:     s.Credential,
		CalendarID: s.CalendarID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   s.Identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode verifies token and returns the artifact it carries. Every failure
// is reported as ErrInvalidSession.
func (c *Codec) Decode(token string) (s SessionArtifact, err error) {
	if token == "" {
		return SessionArtifact{}, ErrInvalidSession
	}
	// The parser is not expected to panic, but a panic here must never
	// surface as a server error.
	defer func() {
		if r := recover(); r != nil {
			s, err = SessionArtifact{}, ErrInvalidSession
		}
	}()

	claims := &sessionClaims{}
	parsed, perr := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if perr != nil || !parsed.Valid {
		return SessionArtifact{}, ErrInvalidSession
	}
	return SessionArtifact{
		Identity:   claims.Email,
		Credential: claims.Tokens,
		CalendarID: claims.CalendarID,
	}, nil
}
