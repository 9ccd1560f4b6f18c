package frontend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ghaggin/roadmap/internal/account"
	"github.com/ghaggin/roadmap/internal/config"
	"github.com/ghaggin/roadmap/internal/gateway"
	"github.com/ghaggin/roadmap/internal/metrics"
	"github.com/ghaggin/roadmap/internal/middleware"
	"github.com/ghaggin/roadmap/internal/oauth"
	"github.com/ghaggin/roadmap/internal/saml"
	"github.com/ghaggin/roadmap/internal/template"
	"github.com/ghaggin/roadmap/internal/token"
	"github.com/ghaggin/roadmap/web"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	log    *zap.Logger
	cfg    *config.Config
	server *http.Server

	sessions *middleware.SessionManager
	accounts *account.Controller
	oauth    *oauth.Registry
	saml     *saml.ServiceProvider
	pages    *template.Renderer
	guard    *gateway.Guard
	proxy    *gateway.Proxy
	metrics  *metrics.Metrics
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   *config.Config
	Sessions *middleware.SessionManager
	Accounts *account.Controller
	OAuth    *oauth.Registry
	SAML     *saml.ServiceProvider `optional:"true"`
	Minter   *token.Minter
	Metrics  *metrics.Metrics
}

func New(p Params) (*Server, error) {
	pages, err := template.New(web.FS)
	if err != nil {
		return nil, err
	}

	s := &Server{
		log:      p.Log,
		cfg:      p.Config,
		sessions: p.Sessions,
		accounts: p.Accounts,
		oauth:    p.OAuth,
		saml:     p.SAML,
		pages:    pages,
		metrics:  p.Metrics,
		guard: gateway.NewGuard(
			gateway.AccessRules{SignInPath: p.Config.SignInPath, ProxyPrefix: p.Config.Proxy.Prefix},
			p.Sessions, p.Log, p.Metrics,
		),
		proxy: gateway.NewProxy(
			gateway.ProxyConfig{
				BackendURL:   p.Config.BackendURL,
				Prefix:       p.Config.Proxy.Prefix,
				RequireToken: p.Config.Proxy.RequireToken,
			},
			p.Sessions, p.Minter, nil, p.Log, p.Metrics,
		),
	}

	s.server = &http.Server{
		Addr:              p.Config.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// RegisterHooks should be invoked by fx
func RegisterHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.server.Shutdown,
	})
}

func (s *Server) Start(_ context.Context) error {
	s.log.Info("listening", zap.String("addr", s.server.Addr), zap.String("backend", s.cfg.BackendURL))
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
