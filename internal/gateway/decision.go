// Package gateway holds the trust-transition layer: the access guard that
// gates page requests on a valid session, and the proxy that turns session
// identity into a service token for the backend API.
//
// Both components first compute a Decision with a pure function and then
// render it onto the HTTP response, so the policy is testable without a
// network.
package gateway

import (
	"net/http"
	"net/url"
)

type Action int

const (
	ActionForward Action = iota
	ActionRedirect
	ActionProxy
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionRedirect:
		return "redirect"
	case ActionProxy:
		return "proxy"
	case ActionFail:
		return "fail"
	}
	return "unknown"
}

type Failure int

const (
	FailNone Failure = iota
	FailBackendUnavailable
	FailMethodNotAllowed
	FailUnauthorized
)

// Status is the HTTP status the gateway itself produces for f.
func (f Failure) Status() int {
	switch f {
	case FailBackendUnavailable:
		return http.StatusBadGateway
	case FailMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case FailUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (f Failure) Message() string {
	switch f {
	case FailBackendUnavailable:
		return "Backend unavailable"
	case FailMethodNotAllowed:
		return "Method not allowed"
	case FailUnauthorized:
		return "Unauthorized"
	}
	return "Internal error"
}

// Decision is a tagged variant; only the fields of its Action are meaningful.
type Decision struct {
	Action Action

	// ActionRedirect
	Location string
	Callback string

	// ActionProxy; empty means forward without Authorization.
	Token string

	// ActionFail
	Failure Failure
}

func Forward() Decision {
	return Decision{Action: ActionForward}
}

// RedirectTo redirects to path; a non-empty callback is attached as the
// callbackUrl query parameter.
func RedirectTo(path, callback string) Decision {
	return Decision{Action: ActionRedirect, Location: path, Callback: callback}
}

func ProxyWithToken(token string) Decision {
	return Decision{Action: ActionProxy, Token: token}
}

func Fail(f Failure) Decision {
	return Decision{Action: ActionFail, Failure: f}
}

// RedirectURL renders the Location header for a redirect decision.
func (d Decision) RedirectURL() string {
	if d.Callback == "" {
		return d.Location
	}
	q := url.Values{}
	q.Set("callbackUrl", d.Callback)
	return d.Location + "?" + q.Encode()
}
