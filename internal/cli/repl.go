package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate. The real
// App type satisfies this interface; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	VerifyEmail(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Open(ctx context.Context, path string) error
	ShowProfile(ctx context.Context) error
	EditProfile(ctx context.Context) error
	UploadImage(ctx context.Context, path string) error
	ListInvites(ctx context.Context) error
	NewInvite(ctx context.Context) error
	SendInvite(ctx context.Context, id string) error
	AcceptInvite(ctx context.Context, id string) error
	DeclineInvite(ctx context.Context, id string) error
	DeleteInvite(ctx context.Context, id string) error
	ListMatches(ctx context.Context) error
	CompleteRun(ctx context.Context, id string) error
	CancelRun(ctx context.Context, id string) error
	ListGoals(ctx context.Context) error
	NewGoal(ctx context.Context) error
	CloseGoal(ctx context.Context, id string) error
	ListSteps(ctx context.Context, goal string) error
	CompleteStep(ctx context.Context, goal, step string) error
	ListChats(ctx context.Context) error
	ShowMessages(ctx context.Context, thread string) error
	Say(ctx context.Context, thread, text string) error
}

// report prints a handler error without breaking the loop; business failures
// are ordinary, displayable outcomes here.
func report(err error) {
	if err != nil {
		printlnFn("error:", err.Error())
	}
}

// runREPL reads a line from the scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("runmate %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Navigation: open <route>")
				printlnFn("Profile:    profile, editprofile, uploadimage <path>")
				printlnFn("Invites:    invites, newinvite, send <id>, accept <id>, decline <id>, rminvite <id>")
				printlnFn("Runs:       matches, complete <id>, cancel <id>")
				printlnFn("Goals:      goals, newgoal, closegoal <id>, steps <goal>, done <goal> <step>")
				printlnFn("Chat:       chats, messages <thread>, say <thread> <text>")
				printlnFn("Account:    password, delete-account, logout, exit")
			} else {
				printlnFn("Available commands: register, login, verify, open <route>, exit")
			}

		case "register":
			report(a.Register(ctx))
		case "login":
			report(a.Login(ctx))
		case "logout":
			report(a.Logout(ctx))
		case "verify":
			report(a.VerifyEmail(ctx))
		case "password":
			report(a.ChangePassword(ctx))
		case "delete-account":
			report(a.DeleteAccount(ctx))

		case "open":
			if len(args) == 0 {
				printlnFn("Usage: open <route>")
				continue
			}
			report(a.Open(ctx, args[0]))

		case "profile":
			report(a.ShowProfile(ctx))
		case "editprofile":
			report(a.EditProfile(ctx))
		case "uploadimage":
			if len(args) == 0 {
				printlnFn("Usage: uploadimage <path>")
				continue
			}
			report(a.UploadImage(ctx, args[0]))

		case "invites":
			report(a.ListInvites(ctx))
		case "newinvite":
			report(a.NewInvite(ctx))
		case "send":
			if len(args) == 0 {
				printlnFn("Usage: send <invite>")
				continue
			}
			report(a.SendInvite(ctx, args[0]))
		case "accept":
			if len(args) == 0 {
				printlnFn("Usage: accept <invite>")
				continue
			}
			report(a.AcceptInvite(ctx, args[0]))
		case "decline":
			if len(args) == 0 {
				printlnFn("Usage: decline <invite>")
				continue
			}
			report(a.DeclineInvite(ctx, args[0]))
		case "rminvite":
			if len(args) == 0 {
				printlnFn("Usage: rminvite <invite>")
				continue
			}
			report(a.DeleteInvite(ctx, args[0]))

		case "matches":
			report(a.ListMatches(ctx))
		case "complete":
			if len(args) == 0 {
				printlnFn("Usage: complete <run>")
				continue
			}
			report(a.CompleteRun(ctx, args[0]))
		case "cancel":
			if len(args) == 0 {
				printlnFn("Usage: cancel <run>")
				continue
			}
			report(a.CancelRun(ctx, args[0]))

		case "goals":
			report(a.ListGoals(ctx))
		case "newgoal":
			report(a.NewGoal(ctx))
		case "closegoal":
			if len(args) == 0 {
				printlnFn("Usage: closegoal <goal>")
				continue
			}
			report(a.CloseGoal(ctx, args[0]))
		case "steps":
			if len(args) == 0 {
				printlnFn("Usage: steps <goal>")
				continue
			}
			report(a.ListSteps(ctx, args[0]))
		case "done":
			if len(args) < 2 {
				printlnFn("Usage: done <goal> <step>")
				continue
			}
			report(a.CompleteStep(ctx, args[0], args[1]))

		case "chats":
			report(a.ListChats(ctx))
		case "messages":
			if len(args) == 0 {
				printlnFn("Usage: messages <thread>")
				continue
			}
			report(a.ShowMessages(ctx, args[0]))
		case "say":
			if len(args) < 2 {
				printlnFn("Usage: say <thread> <text>")
				continue
			}
			report(a.Say(ctx, args[0], strings.Join(args[1:], " ")))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
