package frontend

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/ghaggin/roadmap/internal/token"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_DuplicateRejected(t *testing.T) {
	h := newHarness(t)

	id := h.register("ada@example.com", "correct horse")
	assert.NotEmpty(t, id)

	res := h.postJSON("/api/register", map[string]string{"email": "ADA@example.com", "password": "another one"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "User already exists", decode(t, res)["error"])
}

func TestRegister_Invalid(t *testing.T) {
	h := newHarness(t)

	res := h.postJSON("/api/register", map[string]string{"email": "nope", "password": "correct horse"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, decode(t, res)["error"], "email")

	res = h.postJSON("/api/register", map[string]string{"email": "long@example.com", "password": strings.Repeat("a", 73)})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, decode(t, res)["error"], "password")

	res = h.do(http.MethodPost, "/api/register", "application/json", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGuard_RedirectsThenLoginReturnsToCallback(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	h := newHarness(t)

	h.register("ada@example.com", "correct horse")

	res := h.get("/dashboard")
	require.Equal(http.StatusTemporaryRedirect, res.StatusCode)
	assert.Equal("/signin?callbackUrl=%2Fdashboard", res.Header.Get("Location"))

	res = h.login("ada@example.com", "correct horse", "/dashboard")
	require.Equal(http.StatusSeeOther, res.StatusCode)
	assert.Equal("/dashboard", res.Header.Get("Location"))

	res = h.get("/dashboard")
	require.Equal(http.StatusOK, res.StatusCode)
	assert.Contains(readBody(t, res), "ada@example.com")

	session := decode(t, h.get("/api/auth/session"))
	user, ok := session["user"].(map[string]any)
	require.True(ok)
	assert.Equal("ada@example.com", user["email"])
	assert.Equal("ada", user["name"])
	assert.NotEmpty(session["expires"])
}

func TestLogin_OffsiteCallbackIgnored(t *testing.T) {
	h := newHarness(t)
	h.register("ada@example.com", "correct horse")

	res := h.login("ada@example.com", "correct horse", "https://evil.example/")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))
}

func TestLogin_FailureIsGeneric(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)
	h.register("ada@example.com", "correct horse")

	wrong := h.login("ada@example.com", "battery staple", "/")
	unknown := h.login("bob@example.com", "correct horse", "/")

	assert.Equal(http.StatusUnauthorized, wrong.StatusCode)
	assert.Equal(http.StatusUnauthorized, unknown.StatusCode)
	assert.Contains(readBody(t, wrong), "Invalid email or password")
	assert.Contains(readBody(t, unknown), "Invalid email or password")

	res := h.postJSON("/api/auth/callback/credentials", map[string]string{"email": "bob@example.com", "password": "x"})
	assert.Equal(http.StatusUnauthorized, res.StatusCode)
	assert.Equal("invalid credentials", decode(t, res)["error"])

	assert.Equal(map[string]any{}, decode(t, h.get("/api/auth/session")))
}

func TestLogin_JSON(t *testing.T) {
	h := newHarness(t)
	h.register("ada@example.com", "correct horse")

	res := h.postJSON("/api/auth/callback/credentials", map[string]string{
		"email":       "ada@example.com",
		"password":    "correct horse",
		"callbackUrl": "/onboarding",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, map[string]any{"ok": true, "url": "/onboarding"}, decode(t, res))
}

func TestProxy_CarriesServiceTokenForSession(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	h := newHarness(t)

	id := h.register("ada@example.com", "correct horse")
	h.login("ada@example.com", "correct horse", "/")

	res := h.get("/api/backend/tracks?level=beginner&x=a%20b")
	require.Equal(http.StatusOK, res.StatusCode)
	assert.Equal(`[{"id":1,"name":"SWE Track","icon":"🧑‍💻"}]`, readBody(t, res))

	call := h.backend.last(t)
	assert.Equal("/tracks", call.Path)
	assert.Equal("level=beginner&x=a%20b", call.Query)
	assert.Empty(call.Header.Get("Cookie"))

	bearer := call.Header.Get("Authorization")
	require.True(strings.HasPrefix(bearer, "Bearer "))
	claims, err := token.NewMinter(testSecret).Parse(strings.TrimPrefix(bearer, "Bearer "))
	require.NoError(err)
	assert.Equal(id, claims.UserID)
	assert.Equal(int64(3600), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
}

func TestProxy_AnonymousAndMethods(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)

	res := h.get("/api/backend/tracks")
	assert.Equal(http.StatusOK, res.StatusCode)
	assert.Empty(h.backend.last(t).Header.Get("Authorization"))

	res = h.do(http.MethodPost, "/api/backend/progress", "application/json", strings.NewReader(`{"done":true}`))
	assert.Equal(http.StatusOK, res.StatusCode)
	assert.Equal(`{"done":true}`, h.backend.last(t).Body)

	res = h.do(http.MethodOptions, "/api/backend/tracks", "", nil)
	assert.Equal(http.StatusMethodNotAllowed, res.StatusCode)
	assert.Equal("GET, POST, PUT, PATCH, DELETE", res.Header.Get("Allow"))
	assert.Contains(decode(t, res), "error")
}

func TestSignout(t *testing.T) {
	h := newHarness(t)
	h.register("ada@example.com", "correct horse")
	h.login("ada@example.com", "correct horse", "/")

	res := h.do(http.MethodPost, "/api/auth/signout", "", nil)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))

	assert.Equal(t, map[string]any{}, decode(t, h.get("/api/auth/session")))
	assert.Equal(t, http.StatusTemporaryRedirect, h.get("/onboarding").StatusCode)
}

func TestOAuthFlow(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	h := newHarness(t)

	res := h.get("/api/auth/signin/fake?callbackUrl=%2Fonboarding")
	require.Equal(http.StatusFound, res.StatusCode)
	loc, err := url.Parse(res.Header.Get("Location"))
	require.NoError(err)
	state := loc.Query().Get("state")
	require.NotEmpty(state)

	res = h.get("/api/auth/callback/fake?code=good&state=" + url.QueryEscape(state))
	require.Equal(http.StatusFound, res.StatusCode)
	assert.Equal("/onboarding", res.Header.Get("Location"))

	user := decode(t, h.get("/api/auth/session"))["user"].(map[string]any)
	assert.Equal("fake-1", user["id"])
	assert.Equal(1.0, testutil.ToFloat64(h.metrics.Logins.WithLabelValues("fake", "success")))
}

func TestOAuthFlow_Failures(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)

	assert.Equal(http.StatusNotFound, h.get("/api/auth/signin/myspace").StatusCode)

	res := h.get("/api/auth/callback/fake?code=good&state=forged")
	assert.Equal(http.StatusUnauthorized, res.StatusCode)
	assert.Contains(readBody(t, res), "Sign-in failed")
	assert.Equal(1.0, testutil.ToFloat64(h.metrics.Logins.WithLabelValues("fake", "failure")))
}

func TestProviders(t *testing.T) {
	h := newHarness(t)

	out := decode(t, h.get("/api/auth/providers"))
	assert.Contains(t, out, "credentials")
	assert.Contains(t, out, "fake")
	assert.NotContains(t, out, "saml")
}

func TestPagesAndAssets(t *testing.T) {
	assert := assert.New(t)
	h := newHarness(t)

	res := h.get("/")
	assert.Equal(http.StatusOK, res.StatusCode)
	assert.Contains(readBody(t, res), "/api/backend/tracks")

	assert.Equal(http.StatusOK, h.get("/signin").StatusCode)
	assert.Equal(http.StatusOK, h.get("/signup").StatusCode)
	assert.Equal(http.StatusOK, h.get("/static/app.js").StatusCode)

	res = h.get("/api/health")
	assert.Equal(map[string]any{"status": "ok"}, decode(t, res))

	res = h.get("/api/metrics")
	assert.Equal(http.StatusOK, res.StatusCode)
	assert.Contains(readBody(t, res), "roadmap_guard_decisions_total")
}

func TestRegister_FlashOnSignin(t *testing.T) {
	h := newHarness(t)
	h.register("ada@example.com", "correct horse")

	body := readBody(t, h.get("/signin"))
	assert.Contains(t, body, "Account created. Please sign in.")

	body = readBody(t, h.get("/signin"))
	assert.NotContains(t, body, "Account created")
}
