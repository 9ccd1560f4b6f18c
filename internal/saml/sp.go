// Package saml is the optional SAML 2.0 service provider used for
// enterprise sign-in.
package saml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crewjam/saml"
	"github.com/crewjam/saml/samlsp"
	"github.com/ghaggin/roadmap/internal/config"
	"github.com/ghaggin/roadmap/internal/gateway"
	"github.com/ghaggin/roadmap/internal/metrics"
	"github.com/ghaggin/roadmap/internal/middleware"
	"github.com/ghaggin/roadmap/internal/model"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ProviderName = "saml"

	metadataPath = "/api/auth/saml/metadata"
	acsPath      = "/api/auth/saml/acs"
	sloPath      = "/api/auth/saml/slo"

	metadataTimeout = 10 * time.Second
)

var errNoSubject = errors.New("assertion has no uid attribute or name id")

// SessionWriter starts an authenticated session.
type SessionWriter interface {
	SetAuthenticated(ctx context.Context, identity model.Identity) error
}

type ServiceProvider struct {
	sp              *saml.ServiceProvider
	tracker         samlsp.RequestTracker
	responseBinding string

	sessions SessionWriter
	log      *zap.Logger
	metrics  *metrics.Metrics
}

type Params struct {
	fx.In

	Config   *config.Config
	Log      *zap.Logger
	Sessions *middleware.SessionManager
	Metrics  *metrics.Metrics
}

// New returns nil when SAML is not configured or cannot be initialized; the
// rest of the server runs without it.
func New(p Params) (*ServiceProvider, error) {
	if !p.Config.SAML.Enabled() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
	defer cancel()

	idpMetadata, err := loadIDPMetadata(ctx, p.Config.SAML, http.DefaultClient)
	if err != nil {
		p.Log.Warn("saml sign-in disabled", zap.Error(err))
		return nil, nil
	}

	s, err := newServiceProvider(p.Config, idpMetadata, p.Sessions, p.Log, p.Metrics)
	if err != nil {
		p.Log.Warn("saml sign-in disabled", zap.Error(err))
		return nil, nil
	}

	p.Log.Info("saml sign-in enabled", zap.String("entity_id", s.sp.EntityID))
	return s, nil
}

func newServiceProvider(
	cfg *config.Config,
	idpMetadata *saml.EntityDescriptor,
	sessions SessionWriter,
	log *zap.Logger,
	m *metrics.Metrics,
) (*ServiceProvider, error) {
	key, cert, err := cfg.SAML.KeyPair()
	if err != nil {
		return nil, err
	}

	rootURL, err := url.Parse(cfg.PublicURL)
	if err != nil {
		return nil, err
	}

	metadataURL := *rootURL.ResolveReference(&url.URL{Path: metadataPath})
	entityID := cfg.SAML.EntityID
	if entityID == "" {
		entityID = metadataURL.String()
	}

	opts := samlsp.Options{
		EntityID:           entityID,
		URL:                *rootURL,
		Key:                key,
		Certificate:        cert,
		IDPMetadata:        idpMetadata,
		AllowIDPInitiated:  true,
		DefaultRedirectURI: "/",
		CookieSameSite:     http.SameSiteLaxMode,
	}

	sp := &saml.ServiceProvider{
		EntityID:           opts.EntityID,
		Key:                opts.Key,
		Certificate:        opts.Certificate,
		MetadataURL:        metadataURL,
		AcsURL:             *rootURL.ResolveReference(&url.URL{Path: acsPath}),
		SloURL:             *rootURL.ResolveReference(&url.URL{Path: sloPath}),
		IDPMetadata:        opts.IDPMetadata,
		SignatureMethod:    dsig.RSASHA256SignatureMethod,
		AllowIDPInitiated:  opts.AllowIDPInitiated,
		DefaultRedirectURI: opts.DefaultRedirectURI,
		LogoutBindings:     []string{saml.HTTPPostBinding},
	}

	return &ServiceProvider{
		sp:              sp,
		tracker:         samlsp.DefaultRequestTracker(opts, sp),
		responseBinding: saml.HTTPPostBinding,
		sessions:        sessions,
		log:             log,
		metrics:         m,
	}, nil
}

func (s *ServiceProvider) ServeMetadata(w http.ResponseWriter, _ *http.Request) {
	buf, err := xml.MarshalIndent(s.sp.Metadata(), "", "  ")
	if err != nil {
		s.log.Error("saml metadata", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	_, _ = w.Write(buf)
}

// HandleLogin starts an SP-initiated flow. The callbackUrl query parameter is
// remembered by the request tracker and used after a successful ACS.
func (s *ServiceProvider) HandleLogin(w http.ResponseWriter, r *http.Request) {
	binding := saml.HTTPRedirectBinding
	bindingLocation := s.sp.GetSSOBindingLocation(binding)
	if bindingLocation == "" {
		binding = saml.HTTPPostBinding
		bindingLocation = s.sp.GetSSOBindingLocation(binding)
	}

	authReq, err := s.sp.MakeAuthenticationRequest(bindingLocation, binding, s.responseBinding)
	if err != nil {
		s.fail(w, "saml authn request", err, http.StatusInternalServerError)
		return
	}

	callback, err := url.Parse(gateway.SafeCallback(r.URL.Query().Get("callbackUrl")))
	if err != nil {
		callback = &url.URL{Path: "/"}
	}
	tracked := r.Clone(r.Context())
	tracked.URL = callback

	relayState, err := s.tracker.TrackRequest(w, tracked, authReq.ID)
	if err != nil {
		s.fail(w, "saml track request", err, http.StatusInternalServerError)
		return
	}

	if binding == saml.HTTPRedirectBinding {
		redirectURL, err := authReq.Redirect(relayState, s.sp)
		if err != nil {
			s.fail(w, "saml redirect", err, http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, redirectURL.String(), http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html><body>`)
	buf.Write(authReq.Post(relayState))
	buf.WriteString(`</body></html>`)
	_, _ = w.Write(buf.Bytes())
}

// ServeACS validates the IdP response and starts a session for its subject.
func (s *ServiceProvider) ServeACS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.reject(w, err)
		return
	}

	possibleRequestIDs := []string{}
	if s.sp.AllowIDPInitiated {
		possibleRequestIDs = append(possibleRequestIDs, "")
	}
	for _, tr := range s.tracker.GetTrackedRequests(r) {
		possibleRequestIDs = append(possibleRequestIDs, tr.SAMLRequestID)
	}

	assertion, err := s.sp.ParseResponse(r, possibleRequestIDs)
	if err != nil {
		s.reject(w, err)
		return
	}

	identity, err := identityFromAssertion(assertion)
	if err != nil {
		s.reject(w, err)
		return
	}

	if err := s.sessions.SetAuthenticated(r.Context(), identity); err != nil {
		s.fail(w, "saml session", err, http.StatusInternalServerError)
		return
	}
	s.metrics.Logins.WithLabelValues(ProviderName, "success").Inc()

	redirectURI := "/"
	if relayState := r.Form.Get("RelayState"); relayState != "" {
		if tr, err := s.tracker.GetTrackedRequest(r, relayState); err == nil {
			redirectURI = gateway.SafeCallback(tr.URI)
			_ = s.tracker.StopTrackingRequest(w, r, relayState)
		}
	}

	http.Redirect(w, r, redirectURI, http.StatusFound)
}

func (s *ServiceProvider) reject(w http.ResponseWriter, err error) {
	var invalid *saml.InvalidResponseError
	if errors.As(err, &invalid) {
		s.log.Warn("saml response rejected", zap.Error(invalid.PrivateErr))
	} else {
		s.log.Warn("saml response rejected", zap.Error(err))
	}
	s.metrics.Logins.WithLabelValues(ProviderName, "failure").Inc()
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func (s *ServiceProvider) fail(w http.ResponseWriter, msg string, err error, status int) {
	s.log.Error(msg, zap.Error(err))
	http.Error(w, http.StatusText(status), status)
}

func identityFromAssertion(assertion *saml.Assertion) (model.Identity, error) {
	attr := func(names ...string) string {
		for _, as := range assertion.AttributeStatements {
			for _, a := range as.Attributes {
				for _, n := range names {
					if (strings.EqualFold(a.FriendlyName, n) || strings.EqualFold(a.Name, n)) && len(a.Values) > 0 {
						return a.Values[0].Value
					}
				}
			}
		}
		return ""
	}

	uid := attr("uid")
	if uid == "" && assertion.Subject != nil && assertion.Subject.NameID != nil {
		uid = assertion.Subject.NameID.Value
	}
	if uid == "" {
		return model.Identity{}, errNoSubject
	}

	email := attr("mail", "email")
	return model.Identity{
		ID:       ProviderName + "-" + uid,
		Email:    model.NormalizeEmail(email),
		Name:     model.DisplayName(attr("displayName", "cn"), email),
		Provider: ProviderName,
	}, nil
}
