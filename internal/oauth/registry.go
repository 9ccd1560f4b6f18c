package oauth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ghaggin/roadmap/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

const discoveryTimeout = 10 * time.Second

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(list ...Provider) *Registry {
	m := make(map[string]Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type RegistryParams struct {
	fx.In

	Config *config.Config
	Log    *zap.Logger
}

// New registers every provider whose client credentials are configured. A
// provider that fails to initialize is logged and skipped.
func New(p RegistryParams) (*Registry, error) {
	var list []Provider

	if c := p.Config.OAuth.Google; c.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
		g, err := NewGoogle(ctx, c, callbackURL(p.Config.PublicURL, googleName), googleIssuer)
		cancel()
		if err != nil {
			p.Log.Warn("google sign-in disabled", zap.Error(err))
		} else {
			list = append(list, g)
		}
	}

	if c := p.Config.OAuth.GitHub; c.Enabled() {
		list = append(list, NewGitHub(c, callbackURL(p.Config.PublicURL, githubName)))
	}

	r := NewRegistry(list...)
	p.Log.Info("oauth providers", zap.Strings("enabled", r.Names()))
	return r, nil
}

func callbackURL(publicURL, provider string) string {
	return publicURL + "/api/auth/callback/" + provider
}
