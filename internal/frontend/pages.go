package frontend

import (
	"net/http"

	"github.com/ghaggin/roadmap/internal/gateway"
	"github.com/ghaggin/roadmap/internal/model"
	"github.com/ghaggin/roadmap/internal/template"
	"go.uber.org/zap"
)

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home.html", &template.Data{
		PageTitle: "Home",
		User:      s.currentUser(r),
	})
}

func (s *Server) signin(w http.ResponseWriter, r *http.Request) {
	callback := gateway.SafeCallback(r.URL.Query().Get("callbackUrl"))
	if s.currentUser(r) != nil {
		http.Redirect(w, r, callback, http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "signin.html", s.signinData(r, callback, ""))
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "signup.html", &template.Data{
		PageTitle: "Sign up",
		User:      s.currentUser(r),
	})
}

func (s *Server) onboarding(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "onboarding.html", &template.Data{
		PageTitle: "Onboarding",
		User:      s.currentUser(r),
	})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "dashboard.html", &template.Data{
		PageTitle: "Dashboard",
		User:      s.currentUser(r),
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) currentUser(r *http.Request) *model.Session {
	sess, err := s.sessions.Get(r.Context())
	if err != nil {
		return nil
	}
	return sess
}

func (s *Server) render(w http.ResponseWriter, status int, tmpl string, td *template.Data) {
	if err := s.pages.Render(w, status, tmpl, td); err != nil {
		s.log.Error("rendering page", zap.String("template", tmpl), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
