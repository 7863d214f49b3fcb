package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/runmateapp/runmate-client/internal/config"
	"github.com/runmateapp/runmate-client/internal/guard"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
	"github.com/runmateapp/runmate-client/internal/services"
)

// authStore is the slice of the session store the CLI drives directly.
type authStore interface {
	IsAuthenticated() bool
	User() *models.User
	Login(ctx context.Context, username, password string) (bool, error)
	Register(ctx context.Context, username, password, email string) error
	Logout(ctx context.Context)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	DeleteUser(ctx context.Context) error
	RequestEmailVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) error
}

// App wires the REPL to the session store and domain services.
type App struct {
	config   *config.Config
	nav      *Nav
	auth     authStore
	guard    *guard.Guard
	profile  *services.ProfileService
	matching *services.MatchingService
	goals    *services.GoalsService
	chat     *services.MessagingService
	log      logging.Logger
	reader   *bufio.Reader
}

// NewApp constructs the CLI application from already-wired services.
func NewApp(
	cfg *config.Config,
	nav *Nav,
	auth authStore,
	g *guard.Guard,
	profile *services.ProfileService,
	matching *services.MatchingService,
	goals *services.GoalsService,
	chat *services.MessagingService,
	log logging.Logger,
) *App {
	return &App{
		config:   cfg,
		nav:      nav,
		auth:     auth,
		guard:    g,
		profile:  profile,
		matching: matching,
		goals:    goals,
		chat:     chat,
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
	}
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsAuthenticated()
}

func (a *App) getStatus() string {
	u := a.auth.User()
	if u == nil {
		return a.nav.CurrentPath()
	}
	return fmt.Sprintf("%s %s", u.Username, a.nav.CurrentPath())
}

// Open navigates to path through the route guard: unknown routes are
// rejected up front, and unauthorized navigations follow the guard's
// redirect instead.
func (a *App) Open(ctx context.Context, path string) error {
	if !guard.Known(path) {
		return fmt.Errorf("unknown route %q", path)
	}
	d, err := a.guard.Check(ctx, path)
	if err != nil {
		return err
	}
	if d.Allow {
		a.nav.Navigate(path)
		return nil
	}

	target := d.Redirect
	if len(d.Query) > 0 {
		target += "?" + d.Query.Encode()
	}
	printlnFn("redirected to", target)
	a.nav.Navigate(d.Redirect)
	return nil
}

// Run starts the REPL and blocks until the user exits or input closes.
func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}
