package cli

import (
	"bufio"
	"context"
	"os"
)

// Root prints the welcome banner and hands control to the REPL.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to RunMate (type 'help' for commands)")
	if a.isLoggedIn() {
		if u := a.auth.User(); u != nil {
			printlnFn("Logged in as", u.Username)
		}
		if err := a.Open(ctx, "/dashboard"); err != nil {
			a.log.Warn(ctx, "initial navigation failed", "error", err)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
