package cli

import (
	"context"
	"os"
	"strings"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline

// Register prompts for account details and creates the account. A rejected
// registration (taken username, weak password) surfaces as a displayable
// error; success leaves the user logged in on the dashboard.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Choose a username", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Email (optional)", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout, "Choose a password")
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, username, password, email); err != nil {
		return err
	}

	printlnFn("Account created, welcome!")
	a.nav.Navigate("/dashboard")
	return nil
}

// Login prompts for credentials and authenticates. A wrong password is not
// an error, just an unsuccessful attempt.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout, "Password")
	if err != nil {
		return err
	}

	ok, err := a.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		printlnFn("Login failed: check your username and password")
		return nil
	}

	printlnFn("Logged in")
	a.nav.Navigate("/dashboard")
	return nil
}

// Logout notifies the server best-effort and clears the local session.
func (a *App) Logout(ctx context.Context) error {
	a.auth.Logout(ctx)
	printlnFn("Logged out")
	return nil
}

// VerifyEmail drives the request/verify handshake. An empty code at the
// first prompt requests a fresh verification email instead.
func (a *App) VerifyEmail(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Email address", os.Stdout)
	if err != nil {
		return err
	}
	code, err := getSimpleText(a.reader, "Verification code (leave empty to request one)", os.Stdout)
	if err != nil {
		return err
	}

	if strings.TrimSpace(code) == "" {
		if err := a.auth.RequestEmailVerification(ctx, email); err != nil {
			return err
		}
		printlnFn("Verification email sent")
		return nil
	}

	if err := a.auth.VerifyEmail(ctx, email, code); err != nil {
		return err
	}
	printlnFn("Email verified")
	return nil
}

// ChangePassword prompts for the old and new password.
func (a *App) ChangePassword(ctx context.Context) error {
	oldPw, err := getPassword(os.Stdout, "Current password")
	if err != nil {
		return err
	}
	newPw, err := getPassword(os.Stdout, "New password")
	if err != nil {
		return err
	}

	if err := a.auth.ChangePassword(ctx, oldPw, newPw); err != nil {
		return err
	}
	printlnFn("Password changed")
	return nil
}

// DeleteAccount confirms, then deletes the account and logs out.
func (a *App) DeleteAccount(ctx context.Context) error {
	answer, err := getSimpleText(a.reader, "Delete your account permanently? Type 'yes' to confirm", os.Stdout)
	if err != nil {
		return err
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
		printlnFn("Aborted")
		return nil
	}

	if err := a.auth.DeleteUser(ctx); err != nil {
		return err
	}
	printlnFn("Account deleted")
	return nil
}
