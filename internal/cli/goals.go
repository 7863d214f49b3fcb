package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// ListGoals refreshes and prints shared goals.
func (a *App) ListGoals(ctx context.Context) error {
	if err := a.goals.FetchGoals(ctx); err != nil {
		return err
	}

	goals := a.goals.Goals()
	if len(goals) == 0 {
		printlnFn("No shared goals")
		return nil
	}
	for _, g := range goals {
		state := "active"
		if !g.IsActive {
			state = "closed"
		}
		printlnFn(fmt.Sprintf("%s  %s  with %s  [%s]",
			g.ID, g.Description, strings.Join(g.Users, ", "), state))
	}
	return nil
}

// NewGoal prompts for a description and partners and creates a shared goal.
func (a *App) NewGoal(ctx context.Context) error {
	description, err := getSimpleText(a.reader, "Goal description", os.Stdout)
	if err != nil {
		return err
	}
	partnersRaw, err := getSimpleText(a.reader, "Partner user ids (space separated)", os.Stdout)
	if err != nil {
		return err
	}

	users := strings.Fields(partnersRaw)
	if u := a.auth.User(); u != nil {
		users = append([]string{u.ID}, users...)
	}

	id, err := a.goals.CreateGoal(ctx, users, description)
	if err != nil {
		return err
	}
	printlnFn("Goal created:", id)
	return nil
}

// CloseGoal closes a goal manually.
func (a *App) CloseGoal(ctx context.Context, id string) error {
	if err := a.goals.CloseGoal(ctx, id); err != nil {
		return err
	}
	printlnFn("Goal closed")
	return nil
}

// ListSteps prints the steps of one goal.
func (a *App) ListSteps(ctx context.Context, goalID string) error {
	steps, err := a.goals.FetchSteps(ctx, goalID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		printlnFn("No steps for this goal")
		return nil
	}
	for _, st := range steps {
		mark := " "
		if st.Completed() {
			mark = "x"
		}
		printlnFn(fmt.Sprintf("[%s] %s  %s", mark, st.ID, st.Description))
	}
	return nil
}

// CompleteStep marks one step done; finishing the last open step closes the
// goal.
func (a *App) CompleteStep(ctx context.Context, goalID, stepID string) error {
	if err := a.goals.CompleteStep(ctx, goalID, stepID); err != nil {
		return err
	}
	printlnFn("Step completed")
	return nil
}
