package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testRules = AccessRules{SignInPath: "/signin", ProxyPrefix: "/api/backend"}

func TestAccessRules_IsPublic(t *testing.T) {
	tests := []struct {
		path   string
		public bool
	}{
		{"/", true},
		{"/signin", true},
		{"/signin/error", true},
		{"/signup", true},
		{"/api/backend/tracks", true},
		{"/api/register", true},
		{"/api/auth/session", true},
		{"/static/app.css", true},
		{"/static/img/logo", true},
		{"/favicon.ico", true},
		{"/docs/readme.md", true},
		{"/dashboard", false},
		{"/onboarding", false},
		{"/settings/profile", false},
		{"/api", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.public, testRules.IsPublic(tt.path))
		})
	}
}

func TestAccessRules_ProxyPrefixOutsideAPI(t *testing.T) {
	rules := AccessRules{SignInPath: "/login", ProxyPrefix: "/data"}

	assert.True(t, rules.IsPublic("/data/tracks"))
	assert.True(t, rules.IsPublic("/login"))
	assert.False(t, rules.IsPublic("/dataset"))
}

func TestClassifyAccess(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Forward(), ClassifyAccess(testRules, "/signin", false))
	assert.Equal(Forward(), ClassifyAccess(testRules, "/dashboard", true))
	assert.Equal(Forward(), ClassifyAccess(testRules, "/api/backend/me", false))

	d := ClassifyAccess(testRules, "/dashboard", false)
	assert.Equal(ActionRedirect, d.Action)
	assert.Equal("/signin", d.Location)
	assert.Equal("/dashboard", d.Callback)
	assert.Equal("/signin?callbackUrl=%2Fdashboard", d.RedirectURL())
}

func TestSignInRedirect_RootHasNoCallback(t *testing.T) {
	d := signInRedirect(testRules, "/")
	assert.Equal(t, "/signin", d.RedirectURL())
}

func TestDecision_RedirectURLEncodesPath(t *testing.T) {
	d := RedirectTo("/signin", "/tracks/system design")
	assert.Equal(t, "/signin?callbackUrl=%2Ftracks%2Fsystem+design", d.RedirectURL())
}

func TestFailure_StatusAndMessage(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(502, FailBackendUnavailable.Status())
	assert.Equal("Backend unavailable", FailBackendUnavailable.Message())
	assert.Equal(405, FailMethodNotAllowed.Status())
	assert.Equal(401, FailUnauthorized.Status())
	assert.Equal(500, FailNone.Status())
}

func TestSafeCallback(t *testing.T) {
	tests := map[string]string{
		"":                       "/",
		"/":                      "/",
		"/dashboard":             "/dashboard",
		"/onboarding?step=2":     "/onboarding?step=2",
		"https://evil.example/x": "/",
		"//evil.example":         "/",
		"/\\evil.example":        "/",
		"dashboard":              "/",
		"/a\r\nSet-Cookie: x=1":  "/",
	}

	for in, want := range tests {
		assert.Equal(t, want, SafeCallback(in), in)
	}
}
