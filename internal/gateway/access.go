package gateway

import "strings"

// AccessRules says which paths skip the session check.
type AccessRules struct {
	SignInPath  string
	ProxyPrefix string
}

func (a AccessRules) publicPrefixes() []string {
	prefixes := []string{a.SignInPath, "/signup", "/api/", "/static/"}
	if a.ProxyPrefix != "" {
		prefixes = append(prefixes, a.ProxyPrefix+"/")
	}
	return prefixes
}

// IsPublic reports whether path is reachable without a session. Paths
// containing a dot are treated as file-like assets.
func (a AccessRules) IsPublic(path string) bool {
	if path == "/" || strings.Contains(path, ".") {
		return true
	}
	for _, prefix := range a.publicPrefixes() {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ClassifyAccess is the guard's policy. authenticated must already account
// for session validation errors, which count as unauthenticated.
func ClassifyAccess(rules AccessRules, path string, authenticated bool) Decision {
	if rules.IsPublic(path) || authenticated {
		return Forward()
	}
	return signInRedirect(rules, path)
}

func signInRedirect(rules AccessRules, path string) Decision {
	if path == "/" {
		return RedirectTo(rules.SignInPath, "")
	}
	return RedirectTo(rules.SignInPath, path)
}

// SafeCallback returns raw when it is a local absolute path and "/"
// otherwise, so post-login redirects never leave the site.
func SafeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	if strings.ContainsAny(raw, "\r\n") {
		return "/"
	}
	return raw
}
