package oauth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	stateCookieName = "roadmap_oauth_state"
	pkceCookieName  = "roadmap_oauth_pkce"
	flowTTL         = 5 * time.Minute
)

var (
	ErrStateMismatch   = errors.New("oauth state mismatch")
	ErrMissingVerifier = errors.New("oauth pkce verifier missing")
)

// Begin stores a fresh state (carrying callback) and PKCE verifier in
// short-lived cookies and returns the provider's authorization URL.
func Begin(w http.ResponseWriter, p Provider, callback string, secure bool) string {
	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	payload := state + "." + base64.RawURLEncoding.EncodeToString([]byte(callback))
	setFlowCookie(w, stateCookieName, payload, int(flowTTL.Seconds()), secure)
	setFlowCookie(w, pkceCookieName, verifier, int(flowTTL.Seconds()), secure)

	return p.AuthCodeURL(state, oauth2.S256ChallengeFromVerifier(verifier))
}

// Complete validates the state query parameter against the state cookie and
// returns the PKCE verifier and the callback stored by Begin. The flow
// cookies are cleared either way.
func Complete(w http.ResponseWriter, r *http.Request, secure bool) (verifier string, callback string, err error) {
	defer func() {
		setFlowCookie(w, stateCookieName, "", -1, secure)
		setFlowCookie(w, pkceCookieName, "", -1, secure)
	}()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return "", "", ErrStateMismatch
	}
	state, encoded, _ := strings.Cut(stateCookie.Value, ".")
	query := r.URL.Query().Get("state")
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(query)) != 1 {
		return "", "", ErrStateMismatch
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", ErrStateMismatch
	}

	pkceCookie, err := r.Cookie(pkceCookieName)
	if err != nil || pkceCookie.Value == "" {
		return "", "", ErrMissingVerifier
	}

	return pkceCookie.Value, string(raw), nil
}

func setFlowCookie(w http.ResponseWriter, name, value string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/api/auth/callback",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
