package cli

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runmateapp/runmate-client/internal/guard"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
)

// stubInputs routes the interactive prompts to canned answers, one per
// prompt in order.
func stubInputs(t *testing.T, texts []string, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	i := 0
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if i >= len(texts) {
			return "", io.EOF
		}
		v := texts[i]
		i++
		return v, nil
	}
	getPassword = func(_ io.Writer, _ string) (string, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeAuth struct {
	user         *models.User
	loginOK      bool
	loginErr     error
	registerErr  error
	loggedOut    bool
	deleted      bool
	changedOld   string
	changedNew   string
	verifyEmail  string
	verifyCode   string
	requestEmail string
}

func (f *fakeAuth) IsAuthenticated() bool { return f.user != nil }
func (f *fakeAuth) User() *models.User    { return f.user }
func (f *fakeAuth) Login(_ context.Context, username, password string) (bool, error) {
	if f.loginErr != nil {
		return false, f.loginErr
	}
	if f.loginOK {
		f.user = &models.User{ID: "u1", Username: username}
	}
	return f.loginOK, nil
}
func (f *fakeAuth) Register(_ context.Context, username, password, email string) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.user = &models.User{ID: "u1", Username: username, Email: email}
	return nil
}
func (f *fakeAuth) Logout(context.Context) { f.user, f.loggedOut = nil, true }
func (f *fakeAuth) ChangePassword(_ context.Context, oldPw, newPw string) error {
	f.changedOld, f.changedNew = oldPw, newPw
	return nil
}
func (f *fakeAuth) DeleteUser(context.Context) error {
	f.deleted = true
	f.user = nil
	return nil
}
func (f *fakeAuth) RequestEmailVerification(_ context.Context, email string) error {
	f.requestEmail = email
	return nil
}
func (f *fakeAuth) VerifyEmail(_ context.Context, email, code string) error {
	f.verifyEmail, f.verifyCode = email, code
	return nil
}

func newTestApp(t *testing.T, auth *fakeAuth) *App {
	t.Helper()
	silencePrintln(t)
	nav := NewNav()
	return &App{
		nav:    nav,
		auth:   auth,
		guard:  guard.New(readySession{auth}, time.Second),
		log:    logging.Nop(),
		reader: bufio.NewReader(strings.NewReader("")),
	}
}

// readySession adapts fakeAuth to the guard's session contract with
// readiness already flipped.
type readySession struct{ auth *fakeAuth }

func (readySession) AwaitReady(context.Context) error { return nil }
func (r readySession) IsAuthenticated() bool          { return r.auth.IsAuthenticated() }

func TestLogin_SuccessNavigatesToDashboard(t *testing.T) {
	auth := &fakeAuth{loginOK: true}
	a := newTestApp(t, auth)
	stubInputs(t, []string{"alice"}, "pw")

	require.NoError(t, a.Login(context.Background()))
	require.True(t, auth.IsAuthenticated())
	require.Equal(t, "/dashboard", a.nav.CurrentPath())
}

func TestLogin_WrongPasswordIsNotAnError(t *testing.T) {
	auth := &fakeAuth{loginOK: false}
	a := newTestApp(t, auth)
	stubInputs(t, []string{"alice"}, "nope")

	require.NoError(t, a.Login(context.Background()))
	require.False(t, auth.IsAuthenticated())
	require.Equal(t, "/", a.nav.CurrentPath())
}

func TestRegister_Success(t *testing.T) {
	auth := &fakeAuth{}
	a := newTestApp(t, auth)
	stubInputs(t, []string{"alice", "alice@example.com"}, "pw")

	require.NoError(t, a.Register(context.Background()))
	require.True(t, auth.IsAuthenticated())
	require.Equal(t, "alice@example.com", auth.user.Email)
	require.Equal(t, "/dashboard", a.nav.CurrentPath())
}

func TestChangePassword_PassesBothValues(t *testing.T) {
	auth := &fakeAuth{user: &models.User{ID: "u1", Username: "alice"}}
	a := newTestApp(t, auth)

	origGP := getPassword
	answers := []string{"old-pw", "new-pw"}
	i := 0
	getPassword = func(_ io.Writer, _ string) (string, error) {
		v := answers[i]
		i++
		return v, nil
	}
	t.Cleanup(func() { getPassword = origGP })

	require.NoError(t, a.ChangePassword(context.Background()))
	require.Equal(t, "old-pw", auth.changedOld)
	require.Equal(t, "new-pw", auth.changedNew)
}

func TestDeleteAccount_RequiresConfirmation(t *testing.T) {
	auth := &fakeAuth{user: &models.User{ID: "u1", Username: "alice"}}
	a := newTestApp(t, auth)
	stubInputs(t, []string{"no"}, "")

	require.NoError(t, a.DeleteAccount(context.Background()))
	require.False(t, auth.deleted)

	stubInputs(t, []string{"yes"}, "")
	require.NoError(t, a.DeleteAccount(context.Background()))
	require.True(t, auth.deleted)
}

func TestVerifyEmail_EmptyCodeRequestsOne(t *testing.T) {
	auth := &fakeAuth{}
	a := newTestApp(t, auth)
	stubInputs(t, []string{"alice@example.com", ""}, "")

	require.NoError(t, a.VerifyEmail(context.Background()))
	require.Equal(t, "alice@example.com", auth.requestEmail)
	require.Empty(t, auth.verifyCode)

	stubInputs(t, []string{"alice@example.com", "123456"}, "")
	require.NoError(t, a.VerifyEmail(context.Background()))
	require.Equal(t, "123456", auth.verifyCode)
}

func TestOpen_GuardRedirectsGuest(t *testing.T) {
	auth := &fakeAuth{}
	a := newTestApp(t, auth)

	require.NoError(t, a.Open(context.Background(), "/dashboard"))
	require.Equal(t, "/login", a.nav.CurrentPath())

	require.NoError(t, a.Open(context.Background(), "/register"))
	require.Equal(t, "/register", a.nav.CurrentPath())
}

func TestOpen_RejectsUnknownRoute(t *testing.T) {
	auth := &fakeAuth{user: &models.User{ID: "u1", Username: "alice"}}
	a := newTestApp(t, auth)
	start := a.nav.CurrentPath()

	err := a.Open(context.Background(), "/no-such-screen")
	require.EqualError(t, err, `unknown route "/no-such-screen"`)
	require.Equal(t, start, a.nav.CurrentPath(), "failed navigation must not move")
}

func TestOpen_GuardRedirectsAuthenticatedFromGuestRoutes(t *testing.T) {
	auth := &fakeAuth{user: &models.User{ID: "u1", Username: "alice"}}
	a := newTestApp(t, auth)

	require.NoError(t, a.Open(context.Background(), "/login"))
	require.Equal(t, "/dashboard", a.nav.CurrentPath())

	require.NoError(t, a.Open(context.Background(), "/goals/g-1"))
	require.Equal(t, "/goals/g-1", a.nav.CurrentPath())
}
