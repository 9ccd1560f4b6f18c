// Package oauth signs users in through external OAuth2/OIDC providers.
// Providers report identity facts only; session creation is left to the
// caller.
package oauth

import (
	"context"
	"fmt"

	"github.com/ghaggin/roadmap/internal/model"
)

// Provider is implemented by every external sign-in provider.
type Provider interface {
	// Name is the path segment used in /api/auth/signin/{provider}.
	Name() string

	// AuthCodeURL returns the authorization URL for state and an S256 PKCE
	// challenge.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode trades the authorization code for tokens and returns the
	// identity they describe.
	ExchangeCode(ctx context.Context, code string, codeVerifier string) (model.Identity, error)
}

func identityID(provider, subject string) string {
	return fmt.Sprintf("%s-%s", provider, subject)
}
