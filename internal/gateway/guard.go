package gateway

import (
	"context"
	"net/http"

	"github.com/ghaggin/roadmap/internal/metrics"
	"github.com/ghaggin/roadmap/internal/model"
	"go.uber.org/zap"
)

// SessionReader returns the caller's session, or an error when there is no
// valid one.
type SessionReader interface {
	Get(ctx context.Context) (*model.Session, error)
}

type Guard struct {
	rules    AccessRules
	sessions SessionReader
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewGuard(rules AccessRules, sessions SessionReader, log *zap.Logger, m *metrics.Metrics) *Guard {
	return &Guard{
		rules:    rules,
		sessions: sessions,
		log:      log,
		metrics:  m,
	}
}

// Middleware must run inside the session manager's LoadAndSave.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		authenticated := false
		if !g.rules.IsPublic(path) {
			_, err := g.sessions.Get(r.Context())
			authenticated = err == nil
		}

		d := ClassifyAccess(g.rules, path, authenticated)
		g.metrics.GuardDecisions.WithLabelValues(d.Action.String()).Inc()

		switch d.Action {
		case ActionForward:
			next.ServeHTTP(w, r)
		case ActionRedirect:
			g.log.Debug("redirecting unauthenticated request",
				zap.String("path", path),
				zap.String("location", d.RedirectURL()),
			)
			http.Redirect(w, r, d.RedirectURL(), http.StatusTemporaryRedirect)
		default:
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})
}
