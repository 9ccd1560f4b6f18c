package frontend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ghaggin/roadmap/internal/account"
	"github.com/ghaggin/roadmap/internal/gateway"
	"github.com/ghaggin/roadmap/internal/oauth"
	"github.com/ghaggin/roadmap/internal/saml"
	"github.com/ghaggin/roadmap/internal/template"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	flashKey = "flash"

	msgInvalidCredentials = "Invalid email or password"
	msgSignInFailed       = "Sign-in failed, please try again"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackUrl"`
}

type sessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionResponse struct {
	User    *sessionUser `json:"user,omitempty"`
	Expires string       `json:"expires,omitempty"`
}

type providerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SignInURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	u, err := s.accounts.Register(r.Context(), req.Email, req.Password, req.Name)
	switch {
	case errors.Is(err, account.ErrDuplicateEmail):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "User already exists"})
		return
	case errors.Is(err, account.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.sessions.PutString(r.Context(), flashKey, "Account created. Please sign in.")
	writeJSON(w, http.StatusCreated, sessionUser{ID: u.ID, Email: u.Email, Name: u.Name})
}

// credentialsLogin accepts a form post from the sign-in page or a JSON body
// from scripted clients.
func (s *Server) credentialsLogin(w http.ResponseWriter, r *http.Request) {
	isJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var req credentialsRequest
	if isJSON {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
		req.CallbackURL = r.PostForm.Get("callbackUrl")
	}
	callback := gateway.SafeCallback(req.CallbackURL)

	identity, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if isJSON {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		s.render(w, http.StatusUnauthorized, "signin.html", s.signinData(r, callback, msgInvalidCredentials))
		return
	}

	if err := s.sessions.SetAuthenticated(r.Context(), identity); err != nil {
		s.log.Error("creating session", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if isJSON {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "url": callback})
		return
	}
	http.Redirect(w, r, callback, http.StatusSeeOther)
}

func (s *Server) oauthSignIn(w http.ResponseWriter, r *http.Request) {
	p, err := s.oauth.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown provider"})
		return
	}

	callback := gateway.SafeCallback(r.URL.Query().Get("callbackUrl"))
	http.Redirect(w, r, oauth.Begin(w, p, callback, s.cfg.Session.CookieSecure), http.StatusFound)
}

func (s *Server) oauthCallback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	p, err := s.oauth.Get(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown provider"})
		return
	}

	fail := func(err error) {
		s.log.Warn("oauth sign-in failed", zap.String("provider", name), zap.Error(err))
		s.metrics.Logins.WithLabelValues(name, "failure").Inc()
		s.render(w, http.StatusUnauthorized, "signin.html", s.signinData(r, "/", msgSignInFailed))
	}

	verifier, callback, err := oauth.Complete(w, r, s.cfg.Session.CookieSecure)
	if err != nil {
		fail(err)
		return
	}
	if e := r.URL.Query().Get("error"); e != "" {
		fail(errors.New(e))
		return
	}

	identity, err := p.ExchangeCode(r.Context(), r.URL.Query().Get("code"), verifier)
	if err != nil {
		fail(err)
		return
	}

	if err := s.sessions.SetAuthenticated(r.Context(), identity); err != nil {
		fail(err)
		return
	}

	s.metrics.Logins.WithLabelValues(name, "success").Inc()
	http.Redirect(w, r, gateway.SafeCallback(callback), http.StatusFound)
}

func (s *Server) providers(w http.ResponseWriter, _ *http.Request) {
	out := map[string]providerInfo{
		account.ProviderCredentials: {
			ID:          account.ProviderCredentials,
			Name:        "Credentials",
			Type:        "credentials",
			SignInURL:   s.cfg.PublicURL + s.cfg.SignInPath,
			CallbackURL: s.cfg.PublicURL + "/api/auth/callback/credentials",
		},
	}
	for _, name := range s.oauth.Names() {
		out[name] = providerInfo{
			ID:          name,
			Name:        strings.ToUpper(name[:1]) + name[1:],
			Type:        "oauth",
			SignInURL:   s.cfg.PublicURL + "/api/auth/signin/" + name,
			CallbackURL: s.cfg.PublicURL + "/api/auth/callback/" + name,
		}
	}
	if s.saml != nil {
		out[saml.ProviderName] = providerInfo{
			ID:          saml.ProviderName,
			Name:        "SSO",
			Type:        "saml",
			SignInURL:   s.cfg.PublicURL + "/api/auth/saml/login",
			CallbackURL: s.cfg.PublicURL + "/api/auth/saml/acs",
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User:    &sessionUser{ID: sess.UserID, Email: sess.Email, Name: sess.Name},
		Expires: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) signout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(r.Context()); err != nil {
		s.log.Error("destroying session", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) signinData(r *http.Request, callback, errMsg string) *template.Data {
	return &template.Data{
		PageTitle:   "Sign in",
		Error:       errMsg,
		Flash:       s.sessions.PopString(r.Context(), flashKey),
		CallbackURL: callback,
		Providers:   s.oauth.Names(),
		SAML:        s.saml != nil,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
