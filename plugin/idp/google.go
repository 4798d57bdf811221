// Package idp wraps the Google OAuth2 authorization-code flow. It only
// exchanges codes and reads the user's email; it does not refresh tokens.
package idp

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Scopes requested at login.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// Identity is the result of a completed login.
type Identity struct {
	Email        string
	AccessToken  string
	IDToken      string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

// Config configures a Google provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Endpoint and APIEndpoint override Google's for tests. APIEndpoint is
	// the base the userinfo path is resolved against.
	Endpoint    *oauth2.Endpoint
	APIEndpoint string
}

// GoogleProvider implements the login flow against Google.
type GoogleProvider struct {
	config      *oauth2.Config
	apiEndpoint string
}

// NewGoogleProvider creates a provider.
func NewGoogleProvider(cfg Config) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURI == "" {
		return nil, errors.New("google oauth client is not configured")
	}
	endpoint := endpoints.Google
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
		apiEndpoint: cfg.APIEndpoint,
	}
	return p, nil
}

// AuthCodeURL returns the consent page URL for state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for tokens and resolves the email.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange authorization code")
	}

	email, err := p.fetchEmail(ctx, token)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		Email:        email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		identity.IDToken = idToken
	}
	return identity, nil
}

func (p *GoogleProvider) fetchEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	opts := []option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(token))}
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", errors.Wrap(err, "failed to create userinfo service")
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch userinfo")
	}
	if info.Email == "" {
		return "", errors.New("userinfo has no email")
	}
	return info.Email, nil
}
