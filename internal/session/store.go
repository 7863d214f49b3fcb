// Package session owns the client's identity and session token: the
// uninitialized → ready(unauthenticated|authenticated) state machine, the
// credential actions, and the one-shot readiness signal the route guard
// waits on.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/runmateapp/runmate-client/internal/gateway"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
	"github.com/runmateapp/runmate-client/internal/storage"
)

// Navigator is the navigation port used after logout. Substitutable with a
// fake in tests.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// ProfileBootstrapper creates or fetches the profile that accompanies a
// fresh registration. The call is best-effort: its failure never fails
// registration.
type ProfileBootstrapper interface {
	Bootstrap(ctx context.Context, userID string) error
}

// Store is the auth store. All methods are safe for concurrent use.
type Store struct {
	api gateway.Caller
	kv  storage.KV
	nav Navigator
	log logging.Logger

	mu       sync.Mutex
	user     *models.User
	session  string
	profiles ProfileBootstrapper

	readyOnce sync.Once
	ready     chan struct{}
}

// New constructs an uninitialized Store. Init must run before the route
// guard is allowed to make decisions.
func New(api gateway.Caller, kv storage.KV, nav Navigator, log logging.Logger) *Store {
	return &Store{
		api:   api,
		kv:    kv,
		nav:   nav,
		log:   log,
		ready: make(chan struct{}),
	}
}

// SetProfileBootstrapper wires the profile side effect of registration.
// Called once during app assembly.
func (s *Store) SetProfileBootstrapper(pb ProfileBootstrapper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = pb
}

// Init loads cached credentials from durable storage and flips readiness.
// Readiness flips exactly once per process, whether or not credentials
// exist; repeated calls are no-ops.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	var user models.User
	if s.kv.Get(ctx, storage.KeyUser, &user) && user.ID != "" {
		s.user = &user
	}
	s.session = s.kv.GetString(ctx, storage.KeySession)
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready reports whether bootstrap has completed.
func (s *Store) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// AwaitReady blocks until Init has run or ctx expires. This is the one-shot
// wait the route guard performs instead of polling.
func (s *Store) AwaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("awaiting session readiness: %w", ctx.Err())
	}
}

// User returns a copy of the cached identity, or nil when unauthenticated.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Session returns the cached session token ("" when unauthenticated).
func (s *Store) Session() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// IsAuthenticated reports whether both an identity and a token are cached.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.session != ""
}

// InvalidateSession drops the in-memory identity and token. The gateway
// calls it on a 401 after it has already cleared durable storage, so no
// storage write and no navigation happen here. Safe to call repeatedly.
func (s *Store) InvalidateSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.session = ""
}

// credentialsResponse is the success shape of authenticate/register.
type credentialsResponse struct {
	User    string `json:"user"`
	Session string `json:"session"`
}

// Login authenticates the user. A business failure (wrong password) yields
// (false, nil) so UI callers need no error handling for the common case; a
// transport failure yields (false, err). State stays untouched on failure.
func (s *Store) Login(ctx context.Context, username, password string) (bool, error) {
	var resp credentialsResponse
	err := s.api.CallConceptAction(ctx, "PasswordAuthentication", "authenticate",
		map[string]string{"username": username, "password": password}, &resp)
	if err != nil {
		if _, ok := gateway.AsBusiness(err); ok {
			return false, nil
		}
		return false, err
	}

	s.storeCredentials(ctx, models.User{ID: resp.User, Username: username}, resp.Session)
	return true, nil
}

// Register creates an account. Unlike Login, a business failure is returned
// as a non-nil error; existing call sites rely on this asymmetry, so it is
// preserved rather than unified. On success the associated profile is
// created/fetched best-effort.
func (s *Store) Register(ctx context.Context, username, password, email string) error {
	payload := map[string]string{"username": username, "password": password}
	if email != "" {
		payload["email"] = email
	}

	var resp credentialsResponse
	if err := s.api.CallConceptAction(ctx, "PasswordAuthentication", "register", payload, &resp); err != nil {
		return err
	}

	s.storeCredentials(ctx, models.User{ID: resp.User, Username: username, Email: email}, resp.Session)

	s.mu.Lock()
	pb := s.profiles
	s.mu.Unlock()
	if pb != nil {
		if err := pb.Bootstrap(ctx, resp.User); err != nil {
			s.log.Warn(ctx, "profile bootstrap after registration failed", "user", resp.User, "error", err)
		}
	}
	return nil
}

func (s *Store) storeCredentials(ctx context.Context, user models.User, token string) {
	s.mu.Lock()
	s.user = &user
	s.session = token
	s.mu.Unlock()

	s.kv.Set(ctx, storage.KeyUser, user)
	s.kv.SetString(ctx, storage.KeySession, token)
}

// Logout notifies the server best-effort, then unconditionally clears local
// state and navigates to login. It works with no backend connectivity.
func (s *Store) Logout(ctx context.Context) {
	if err := s.api.CallConceptAction(ctx, "logout", "", nil, nil); err != nil {
		s.log.Warn(ctx, "server logout failed, clearing local session anyway", "error", err)
	}

	s.mu.Lock()
	s.user = nil
	s.session = ""
	s.mu.Unlock()

	s.kv.ClearCredentials(ctx)

	if s.nav != nil && s.nav.CurrentPath() != "/login" {
		s.nav.Navigate("/login")
	}
}

// ChangePassword updates the password. Business failures come back as
// displayable errors; an absent identity fails before any network call.
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	user := s.User()
	if user == nil {
		return gateway.ErrNotAuthenticated
	}

	err := s.api.CallConceptAction(ctx, "PasswordAuthentication", "changePassword",
		map[string]string{"user": user.ID, "oldPassword": oldPassword, "newPassword": newPassword}, nil)
	if err != nil {
		if be, ok := gateway.AsBusiness(err); ok {
			return be
		}
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// DeleteUser deletes the account. It requires a live session (the cached
// user id alone is not enough), closes the profile first so the server can
// cascade deletions, and finishes with a local logout.
func (s *Store) DeleteUser(ctx context.Context) error {
	user := s.User()
	token := s.Session()
	if user == nil || token == "" {
		return fmt.Errorf("cannot delete account without an active session: %w", gateway.ErrNotAuthenticated)
	}

	if err := s.api.CallConceptAction(ctx, "UserProfile", "closeProfile",
		map[string]string{"user": user.ID}, nil); err != nil {
		// The profile may already be closed; deletion proceeds regardless.
		s.log.Warn(ctx, "profile close before account deletion failed", "user", user.ID, "error", err)
	}

	err := s.api.CallConceptAction(ctx, "PasswordAuthentication", "deleteUser",
		map[string]string{"session": token}, nil)
	if err != nil {
		if be, ok := gateway.AsBusiness(err); ok {
			return be
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.Logout(ctx)
	return nil
}

// RequestEmailVerification asks the backend to send a verification code.
// The endpoint is public, so it also works before login.
func (s *Store) RequestEmailVerification(ctx context.Context, email string) error {
	return s.api.CallConceptAction(ctx, "EmailVerification", "requestVerification",
		map[string]string{"email": email}, nil)
}

// VerifyEmail redeems a verification code. On success the cached identity
// gains the verified address.
func (s *Store) VerifyEmail(ctx context.Context, email, code string) error {
	if err := s.api.CallConceptAction(ctx, "EmailVerification", "verify",
		map[string]string{"email": email, "code": code}, nil); err != nil {
		return err
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.Email = email
		u := *s.user
		s.mu.Unlock()
		s.kv.Set(ctx, storage.KeyUser, u)
		return nil
	}
	s.mu.Unlock()
	return nil
}
