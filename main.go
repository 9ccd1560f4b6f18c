package main

import (
	"flag"

	"github.com/ghaggin/roadmap/internal/account"
	"github.com/ghaggin/roadmap/internal/config"
	"github.com/ghaggin/roadmap/internal/frontend"
	"github.com/ghaggin/roadmap/internal/metrics"
	"github.com/ghaggin/roadmap/internal/middleware"
	"github.com/ghaggin/roadmap/internal/oauth"
	"github.com/ghaggin/roadmap/internal/repository"
	"github.com/ghaggin/roadmap/internal/saml"
	"github.com/ghaggin/roadmap/internal/token"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	var configPath = flag.String("config", "", "path to yaml config (defaults to $CONFIG_FILE)")
	flag.Parse()

	newPath := func() config.Path {
		return config.Path(*configPath)
	}

	app := fx.New(
		fx.Provide(
			newPath,
			config.New,
			newLogger,
			newMinter,
			metrics.New,
			middleware.NewSessionManager,
			repository.New,
			account.NewController,
			oauth.New,
			saml.New,
			frontend.New,
		),
		fx.Invoke(frontend.RegisterHooks),
	)

	app.Run()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newMinter(cfg *config.Config, log *zap.Logger) *token.Minter {
	m := token.NewMinter(cfg.Session.Secret)
	if !m.Enabled() {
		log.Warn("session.secret is empty, backend requests will carry no service token")
	}
	return m
}
