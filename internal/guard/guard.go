// Package guard makes navigation decisions: which routes need an
// authenticated session, which are reserved for guests, and where to send
// the user otherwise. Decisions wait for session bootstrap instead of
// judging a half-initialized state.
package guard

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Session is the slice of the auth store the guard needs.
type Session interface {
	AwaitReady(ctx context.Context) error
	IsAuthenticated() bool
}

// access classifies a route's requirement.
type access int

const (
	accessPublic access = iota
	accessGuest         // only reachable while logged out
	accessAuth          // only reachable while logged in
)

type route struct {
	pattern string // path segments, ":" prefix marks a parameter
	access  access
}

// routes mirrors the application's navigation map. Order matters only for
// readability; matching is exact per segment.
var routes = []route{
	{"/", accessGuest},
	{"/login", accessGuest},
	{"/register", accessGuest},
	{"/dashboard", accessAuth},
	{"/profile", accessAuth},
	{"/find-buddy", accessAuth},
	{"/invite/:id", accessAuth},
	{"/run/:id", accessAuth},
	{"/matches", accessAuth},
	{"/matches/partner", accessAuth},
	{"/goals", accessAuth},
	{"/goals/:id", accessAuth},
	{"/milestones", accessAuth},
	{"/messages", accessAuth},
	{"/chat/:id", accessAuth},
}

// Decision is the outcome of a navigation check. When Allow is false,
// Redirect carries the target path and Query its parameters (the original
// destination rides along as "redirect" so login can resume it).
type Decision struct {
	Allow    bool
	Redirect string
	Query    url.Values
}

// Guard gates navigation on session state.
type Guard struct {
	session Session
	wait    time.Duration
}

// New constructs a Guard. wait bounds how long a navigation check blocks on
// session bootstrap before failing instead of hanging.
func New(session Session, wait time.Duration) *Guard {
	return &Guard{session: session, wait: wait}
}

// Check decides whether navigation to path may proceed. It blocks until the
// session store is ready (bounded by the configured wait) so the first
// navigation after startup is judged against loaded credentials rather than
// their absence.
func (g *Guard) Check(ctx context.Context, path string) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, g.wait)
	defer cancel()
	if err := g.session.AwaitReady(ctx); err != nil {
		return Decision{}, err
	}

	switch classify(path) {
	case accessAuth:
		if !g.session.IsAuthenticated() {
			return Decision{
				Redirect: "/login",
				Query:    url.Values{"redirect": {path}},
			}, nil
		}
	case accessGuest:
		if g.session.IsAuthenticated() {
			return Decision{Redirect: "/dashboard"}, nil
		}
	}
	return Decision{Allow: true}, nil
}

// Known reports whether path matches a registered route.
func Known(path string) bool {
	for _, r := range routes {
		if match(r.pattern, path) {
			return true
		}
	}
	return false
}

func classify(path string) access {
	for _, r := range routes {
		if match(r.pattern, path) {
			return r.access
		}
	}
	return accessPublic
}

// match compares a pattern against a concrete path segment by segment,
// treating ":"-prefixed segments as single-segment wildcards.
func match(pattern, path string) bool {
	if pattern == path {
		return true
	}
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], ":") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != xs[i] {
			return false
		}
	}
	return true
}
