package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	ready         chan struct{}
	authenticated bool
}

func newFakeSession(ready, authenticated bool) *fakeSession {
	s := &fakeSession{ready: make(chan struct{}), authenticated: authenticated}
	if ready {
		close(s.ready)
	}
	return s
}

func (s *fakeSession) AwaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeSession) IsAuthenticated() bool { return s.authenticated }

func TestCheck_AuthenticatedRoutes(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		authenticated bool
		wantAllow     bool
		wantRedirect  string
	}{
		{"dashboard allowed when logged in", "/dashboard", true, true, ""},
		{"dashboard redirects guest to login", "/dashboard", false, false, "/login"},
		{"parameterized run route guarded", "/run/abc123", false, false, "/login"},
		{"parameterized chat route allowed", "/chat/abc123", true, true, ""},
		{"nested matches route guarded", "/matches/partner", false, false, "/login"},
		{"landing redirects logged-in user", "/", true, false, "/dashboard"},
		{"landing allowed for guest", "/", false, true, ""},
		{"login redirects logged-in user", "/login", true, false, "/dashboard"},
		{"register allowed for guest", "/register", false, true, ""},
		{"unknown route passes through", "/about", false, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(newFakeSession(true, tt.authenticated), time.Second)
			d, err := g.Check(context.Background(), tt.path)
			require.NoError(t, err)
			require.Equal(t, tt.wantAllow, d.Allow)
			require.Equal(t, tt.wantRedirect, d.Redirect)
		})
	}
}

func TestCheck_LoginRedirectCarriesDestination(t *testing.T) {
	g := New(newFakeSession(true, false), time.Second)

	d, err := g.Check(context.Background(), "/invite/inv-42")
	require.NoError(t, err)
	require.False(t, d.Allow)
	require.Equal(t, "/login", d.Redirect)
	require.Equal(t, "/invite/inv-42", d.Query.Get("redirect"))
}

func TestCheck_WaitsForSessionBootstrap(t *testing.T) {
	s := newFakeSession(false, true)
	g := New(s, time.Second)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(s.ready)
	}()

	d, err := g.Check(context.Background(), "/dashboard")
	require.NoError(t, err)
	require.True(t, d.Allow, "decision must be made against the bootstrapped state")
}

func TestCheck_BootstrapTimeoutFailsInsteadOfHanging(t *testing.T) {
	g := New(newFakeSession(false, false), 20*time.Millisecond)

	_, err := g.Check(context.Background(), "/dashboard")
	require.Error(t, err)
}

func TestKnown(t *testing.T) {
	require.True(t, Known("/dashboard"))
	require.True(t, Known("/goals/g-1"))
	require.True(t, Known("/"))
	require.False(t, Known("/goals/g-1/steps"))
	require.False(t, Known("/nope"))
}
