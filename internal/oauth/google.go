package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/ghaggin/roadmap/internal/config"
	"github.com/ghaggin/roadmap/internal/model"
	"golang.org/x/oauth2"
)

const (
	googleName   = "google"
	googleIssuer = "https://accounts.google.com"
)

type Google struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewGoogle runs OIDC discovery against issuer.
func NewGoogle(ctx context.Context, c config.OAuthClient, redirectURL, issuer string) (*Google, error) {
	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery: %w", err)
	}

	return &Google{
		oauthConfig: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: oidcProvider.Verifier(&oidc.Config{ClientID: c.ClientID}),
	}, nil
}

func (g *Google) Name() string {
	return googleName
}

func (g *Google) AuthCodeURL(state string, codeChallenge string) string {
	return g.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (g *Google) ExchangeCode(ctx context.Context, code string, codeVerifier string) (model.Identity, error) {
	token, err := g.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return model.Identity{}, fmt.Errorf("google token exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return model.Identity{}, errors.New("google did not return id_token")
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return model.Identity{}, fmt.Errorf("google id_token: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return model.Identity{}, fmt.Errorf("google id_token claims: %w", err)
	}
	if claims.Subject == "" {
		return model.Identity{}, errors.New("google id_token missing sub")
	}

	return model.Identity{
		ID:       identityID(googleName, claims.Subject),
		Email:    model.NormalizeEmail(claims.Email),
		Name:     model.DisplayName(claims.Name, claims.Email),
		Provider: googleName,
	}, nil
}
