package frontend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ghaggin/roadmap/internal/account"
	"github.com/ghaggin/roadmap/internal/config"
	"github.com/ghaggin/roadmap/internal/metrics"
	"github.com/ghaggin/roadmap/internal/middleware"
	"github.com/ghaggin/roadmap/internal/model"
	"github.com/ghaggin/roadmap/internal/oauth"
	"github.com/ghaggin/roadmap/internal/repository"
	"github.com/ghaggin/roadmap/internal/token"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type backendCall struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []backendCall
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.calls = append(b.calls, backendCall{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`[{"id":1,"name":"SWE Track","icon":"🧑‍💻"}]`))
}

func (b *fakeBackend) last(t *testing.T) backendCall {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.calls)
	return b.calls[len(b.calls)-1]
}

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }

func (fakeProvider) AuthCodeURL(state string, codeChallenge string) string {
	return "https://idp.example/authorize?" + url.Values{
		"state":          {state},
		"code_challenge": {codeChallenge},
	}.Encode()
}

func (fakeProvider) ExchangeCode(_ context.Context, code string, codeVerifier string) (model.Identity, error) {
	if code != "good" || codeVerifier == "" {
		return model.Identity{}, oauth.ErrStateMismatch
	}
	return model.Identity{ID: "fake-1", Email: "octo@example.com", Name: "Octo", Provider: "fake"}, nil
}

type harness struct {
	t       *testing.T
	srv     *httptest.Server
	client  *http.Client
	backend *fakeBackend
	cfg     *config.Config
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	require := require.New(t)

	backend := &fakeBackend{}
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	cfg := config.Default()
	cfg.BackendURL = backendSrv.URL
	cfg.Session.Secret = testSecret
	cfg.Database.UsersFile = filepath.Join(t.TempDir(), "users.json")

	lc := fxtest.NewLifecycle(t)
	log := zap.NewNop()
	m := metrics.New()

	sessions, err := middleware.NewSessionManager(middleware.SessionParams{LC: lc, Config: cfg, Log: log})
	require.NoError(err)
	repo, err := repository.New(repository.Params{LC: lc, Config: cfg, Log: log})
	require.NoError(err)
	accounts, err := account.NewController(account.ControllerParams{Logger: log, Repo: repo, Metrics: m})
	require.NoError(err)

	s, err := New(Params{
		Log:      log,
		Config:   cfg,
		Sessions: sessions,
		Accounts: accounts,
		OAuth:    oauth.NewRegistry(fakeProvider{}),
		Minter:   token.NewMinter(cfg.Session.Secret),
		Metrics:  m,
	})
	require.NoError(err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(err)

	return &harness{
		t:   t,
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		backend: backend,
		cfg:     cfg,
		metrics: m,
	}
}

func (h *harness) do(method, path, contentType string, body io.Reader) *http.Response {
	h.t.Helper()

	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(h.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func (h *harness) get(path string) *http.Response {
	return h.do(http.MethodGet, path, "", nil)
}

func (h *harness) postJSON(path string, v any) *http.Response {
	b, err := json.Marshal(v)
	require.NoError(h.t, err)
	return h.do(http.MethodPost, path, "application/json", strings.NewReader(string(b)))
}

func (h *harness) postForm(path string, form url.Values) *http.Response {
	return h.do(http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (h *harness) register(email, password string) string {
	h.t.Helper()

	res := h.postJSON("/api/register", map[string]string{"email": email, "password": password})
	require.Equal(h.t, http.StatusCreated, res.StatusCode)

	var out map[string]string
	require.NoError(h.t, json.NewDecoder(res.Body).Decode(&out))
	return out["id"]
}

func (h *harness) login(email, password, callback string) *http.Response {
	return h.postForm("/api/auth/callback/credentials", url.Values{
		"email":       {email},
		"password":    {password},
		"callbackUrl": {callback},
	})
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func decode(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}
