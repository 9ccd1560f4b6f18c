package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ghaggin/roadmap/internal/metrics"
	"github.com/ghaggin/roadmap/internal/model"
	"go.uber.org/zap"
)

// TokenMinter issues a service token for a user id.
type TokenMinter interface {
	Mint(userID string) (string, error)
}

type ProxyConfig struct {
	// BackendURL has no trailing slash.
	BackendURL string
	// Prefix is the inbound namespace stripped before forwarding.
	Prefix string
	// RequireToken rejects requests with a valid session whose token could
	// not be minted instead of forwarding them anonymously.
	RequireToken bool
}

var proxyMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func isProxyMethod(method string) bool {
	for _, m := range proxyMethods {
		if m == method {
			return true
		}
	}
	return false
}

// maxBodyBytes caps inbound bodies read into memory before forwarding.
const maxBodyBytes = 10 << 20

func carriesBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// PlanProxy decides how one backend-bound request proceeds. A token is
// minted only for a valid session; the mint error, if any, is returned
// alongside the decision for logging.
func PlanProxy(method string, session *model.Session, now time.Time, minter TokenMinter, requireToken bool) (Decision, error) {
	if !isProxyMethod(method) {
		return Fail(FailMethodNotAllowed), nil
	}

	if !session.Valid(now) {
		return ProxyWithToken(""), nil
	}

	tok, err := minter.Mint(session.UserID)
	if err != nil {
		if requireToken {
			return Fail(FailUnauthorized), err
		}
		return ProxyWithToken(""), err
	}

	return ProxyWithToken(tok), nil
}

type Proxy struct {
	cfg      ProxyConfig
	sessions SessionReader
	minter   TokenMinter
	client   *http.Client
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewProxy uses http.DefaultClient when client is nil.
func NewProxy(cfg ProxyConfig, sessions SessionReader, minter TokenMinter, client *http.Client, log *zap.Logger, m *metrics.Metrics) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &Proxy{
		cfg:      cfg,
		sessions: sessions,
		minter:   minter,
		client:   client,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// A read error means no usable session; the request still goes through.
	session, _ := p.sessions.Get(r.Context())

	d, err := PlanProxy(r.Method, session, p.now(), p.minter, p.cfg.RequireToken)
	switch {
	case err != nil:
		p.metrics.ServiceTokens.WithLabelValues("failed").Inc()
		p.log.Warn("service token not minted", zap.Error(err), zap.String("path", r.URL.Path))
	case d.Token != "":
		p.metrics.ServiceTokens.WithLabelValues("minted").Inc()
	case d.Action == ActionProxy:
		p.metrics.ServiceTokens.WithLabelValues("anonymous").Inc()
	}

	if d.Action == ActionFail {
		p.fail(w, r, d.Failure)
		return
	}

	p.forward(w, r, d.Token)
}

func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, token string) {
	target := p.targetURL(r)

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, p.body(w, r))
	if err != nil {
		p.log.Error("building backend request", zap.Error(err), zap.String("target", target))
		p.fail(w, r, FailBackendUnavailable)
		return
	}

	// Only these two headers cross the boundary; cookies stay behind.
	out.Header.Set("Content-Type", "application/json")
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := p.client.Do(out)
	p.metrics.ProxyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.log.Error("backend request failed", zap.Error(err), zap.String("target", target))
		p.fail(w, r, FailBackendUnavailable)
		return
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		p.log.Error("reading backend response", zap.Error(err), zap.String("target", target))
		p.fail(w, r, FailBackendUnavailable)
		return
	}

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(res.StatusCode)
	if _, err := w.Write(data); err != nil {
		p.log.Debug("writing proxied response", zap.Error(err))
	}

	p.metrics.ProxyRequests.WithLabelValues(r.Method, strconv.Itoa(res.StatusCode)).Inc()
}

// targetURL joins the backend base with the escaped sub-path and the raw
// query, both taken verbatim from the inbound request.
func (p *Proxy) targetURL(r *http.Request) string {
	sub := strings.TrimPrefix(r.URL.EscapedPath(), p.cfg.Prefix)
	sub = strings.TrimPrefix(sub, "/")

	target := p.cfg.BackendURL + "/" + sub
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

// body returns the inbound body for write methods. Unreadable, oversized
// or empty bodies are dropped rather than failing the request.
func (p *Proxy) body(w http.ResponseWriter, r *http.Request) io.Reader {
	if !carriesBody(r.Method) || r.Body == nil {
		return nil
	}

	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		p.log.Debug("dropping unreadable request body", zap.Error(err))
		return nil
	}
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}

func (p *Proxy) fail(w http.ResponseWriter, r *http.Request, f Failure) {
	if f == FailMethodNotAllowed {
		w.Header().Set("Allow", strings.Join(proxyMethods, ", "))
	}
	writeJSON(w, f.Status(), map[string]string{"error": f.Message()})
	p.metrics.ProxyRequests.WithLabelValues(r.Method, strconv.Itoa(f.Status())).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
