package frontend

import (
	"net/http"

	"github.com/ghaggin/roadmap/internal/middleware"
	"github.com/ghaggin/roadmap/web"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() http.Handler {
	root := chi.NewRouter()
	root.Use(chimw.RequestID)
	root.Use(middleware.RequestLogger(s.log))
	root.Use(chimw.Recoverer)
	root.Use(s.sessions.Wrap)
	root.Use(s.guard.Middleware)

	// Pages
	root.Get("/", s.home)
	root.Get(s.cfg.SignInPath, s.signin)
	root.Get("/signup", s.signup)
	root.Get("/onboarding", s.onboarding)
	root.Get("/dashboard", s.dashboard)
	root.Handle("/static/*", http.FileServer(http.FS(web.FS)))

	// Backend data, every method goes to the proxy which rejects the ones
	// it does not forward.
	root.Handle(s.cfg.Proxy.Prefix+"/*", s.proxy)

	// Auth
	root.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Handle("/metrics", s.metrics.Handler())
		r.Post("/register", s.register)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/session", s.session)
			r.Get("/providers", s.providers)
			r.Post("/signout", s.signout)
			r.Get("/signout", s.signout)
			r.Post("/callback/credentials", s.credentialsLogin)
			r.Get("/signin/{provider}", s.oauthSignIn)
			r.Get("/callback/{provider}", s.oauthCallback)

			if s.saml != nil {
				r.HandleFunc("/saml/login", s.saml.HandleLogin)
				r.Get("/saml/metadata", s.saml.ServeMetadata)
				r.Post("/saml/acs", s.saml.ServeACS)
			}
		})
	})

	return root
}
