// Package gateway implements the concept-action HTTP client. Every business
// call is a POST to {base}/{Concept}/{action} with a JSON body; responses may
// wrap the payload in a one-level {"msg": ...} envelope. The gateway owns the
// cross-cutting policies: bearer injection, the global 401 reaction, and the
// transient-failure taxonomy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/storage"
)

// publicEndpoints lists URL suffixes that must never carry a bearer token,
// even when a session is cached.
var publicEndpoints = []string{
	"/PasswordAuthentication/register",
	"/PasswordAuthentication/authenticate",
	"/EmailVerification/requestVerification",
	"/EmailVerification/verify",
}

// authRoutes are the client routes on which a 401 does not force navigation.
var authRoutes = map[string]struct{}{
	"/login":    {},
	"/register": {},
}

// Navigator is the navigation port the gateway depends on for the global
// 401 policy. The CLI app provides the real one; tests substitute a fake.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// Caller is the narrow surface domain stores depend on.
type Caller interface {
	CallConceptAction(ctx context.Context, concept, action string, payload any, out any) error
}

// SessionInvalidator drops an in-memory identity. The gateway notifies it
// on every 401 so a resident process does not keep acting on a session the
// server has already rejected; clearing durable storage alone is not enough.
type SessionInvalidator interface {
	InvalidateSession()
}

// Gateway is the concrete API client.
type Gateway struct {
	base   string
	http   *http.Client
	upload *http.Client
	store  storage.KV
	nav    Navigator
	log    logging.Logger

	mu  sync.Mutex
	inv SessionInvalidator
}

// New constructs a Gateway for the given API base URL. The bearer token is
// re-read from store on every request so a refresh elsewhere is picked up
// immediately. Outgoing requests are traced via otelhttp (a no-op unless a
// tracer provider has been installed).
func New(base string, timeout time.Duration, store storage.KV, nav Navigator, log logging.Logger) *Gateway {
	rt := &authTransport{
		inner: otelhttp.NewTransport(http.DefaultTransport),
		store: store,
	}
	return &Gateway{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: timeout, Transport: rt},
		upload: &http.Client{Timeout: timeout},
		store:  store,
		nav:    nav,
		log:    log,
	}
}

// SetSessionInvalidator wires the in-memory session holder into the global
// 401 policy. Called once during app assembly; the session store cannot be
// passed to New because it is constructed after the gateway.
func (g *Gateway) SetSessionInvalidator(inv SessionInvalidator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inv = inv
}

// authTransport injects the bearer credential into non-public requests and
// tags every request with a correlation id.
type authTransport struct {
	inner http.RoundTripper
	store storage.KV
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Request-Id", uuid.NewString())

	if !isPublic(req.URL.Path) {
		if session := t.store.GetString(req.Context(), storage.KeySession); session != "" {
			req.Header.Set("Authorization", "Bearer "+session)
		}
	}
	return t.inner.RoundTrip(req)
}

func isPublic(path string) bool {
	for _, suffix := range publicEndpoints {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// CallConceptAction POSTs one JSON object to /{concept}/{action} (or
// /{concept} when action is empty), unwraps the response envelope, turns a
// {"error": ...} body into a *BusinessError, and decodes the payload into
// out when out is non-nil.
func (g *Gateway) CallConceptAction(ctx context.Context, concept, action string, payload any, out any) error {
	endpoint := "/" + concept
	if action != "" {
		endpoint += "/" + action
	}

	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return g.do(req, out)
}

// Get issues a generic GET for non-concept endpoints. Business calls never
// use it; it exists for plain resource fetches only.
func (g *Gateway) Get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.base+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return g.do(req, out)
}

func (g *Gateway) do(req *http.Request, out any) error {
	ctx := req.Context()

	resp, err := g.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) && ue.Timeout() {
			// Upstream cold start or network stall: transient, session kept.
			g.log.Warn(ctx, "request timed out", "url", req.URL.Path)
			return fmt.Errorf("%s: %w", req.URL.Path, ErrUnavailable)
		}
		g.log.Warn(ctx, "request failed", "url", req.URL.Path, "error", err)
		return fmt.Errorf("%s: %w", req.URL.Path, ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		g.handleUnauthorized(ctx)
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		g.log.Error(ctx, "endpoint not found, check API base configuration", "url", req.URL.Path)
		return fmt.Errorf("%s: %w", req.URL.Path, ErrNotFound)
	case resp.StatusCode == http.StatusGatewayTimeout:
		g.log.Warn(ctx, "gateway timeout, upstream may be cold", "url", req.URL.Path)
		return fmt.Errorf("%s: %w", req.URL.Path, ErrUnavailable)
	case resp.StatusCode >= 500:
		g.log.Warn(ctx, "server error", "url", req.URL.Path, "status", resp.StatusCode)
		return fmt.Errorf("%s: %w", req.URL.Path, ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	payload, err := unwrapEnvelope(body)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleUnauthorized applies the global 401 policy: clear cached
// credentials in durable storage and in memory, then force navigation to
// login unless already on an auth page. Safe to call any number of times.
func (g *Gateway) handleUnauthorized(ctx context.Context) {
	g.store.ClearCredentials(ctx)

	g.mu.Lock()
	inv := g.inv
	g.mu.Unlock()
	if inv != nil {
		inv.InvalidateSession()
	}

	if g.nav == nil {
		return
	}
	if _, onAuthPage := authRoutes[g.nav.CurrentPath()]; !onAuthPage {
		g.nav.Navigate("/login")
	}
}

// unwrapEnvelope removes one {"msg": ...} wrapper level when present and
// converts a {"error": "..."} body into a *BusinessError.
func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	payload := json.RawMessage(body)

	var envelope struct {
		Msg json.RawMessage `json:"msg"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Msg) > 0 {
		payload = envelope.Msg
	}

	var failure struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &failure); err == nil && failure.Error != "" {
		return nil, &BusinessError{Message: failure.Error}
	}

	return payload, nil
}
