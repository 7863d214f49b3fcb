package cli

import (
	"context"
	"fmt"
)

// ListMatches refreshes and prints scheduled runs with their invites.
func (a *App) ListMatches(ctx context.Context) error {
	if err := a.matching.FetchMatches(ctx); err != nil {
		return err
	}

	runs := a.matching.Runs()
	if len(runs) == 0 {
		printlnFn("No scheduled runs")
		return nil
	}
	for _, run := range runs {
		state := "scheduled"
		if run.Completed {
			state = "completed"
		}
		line := fmt.Sprintf("%s  %s + %s  [%s]", run.ID, run.UserA, run.UserB, state)
		if inv, err := a.matching.FindInviteForRun(ctx, run); err == nil {
			line += fmt.Sprintf("  %s at %s", inv.Start.Format("Mon Jan 2 15:04"), inv.Location)
		}
		printlnFn(line)
	}
	return nil
}

// CompleteRun marks a run as done.
func (a *App) CompleteRun(ctx context.Context, id string) error {
	if err := a.matching.CompleteRun(ctx, id); err != nil {
		return err
	}
	printlnFn("Run completed, nice work!")
	return nil
}

// CancelRun cancels a scheduled run.
func (a *App) CancelRun(ctx context.Context, id string) error {
	if err := a.matching.CancelRun(ctx, id); err != nil {
		return err
	}
	printlnFn("Run cancelled")
	return nil
}
