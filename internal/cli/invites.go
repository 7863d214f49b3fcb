package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/runmateapp/runmate-client/internal/services"
)

// ListInvites refreshes and prints invites: the user's own plus open ones
// in their region.
func (a *App) ListInvites(ctx context.Context) error {
	if err := a.matching.FetchInvites(ctx); err != nil {
		return err
	}
	if err := a.matching.FetchActiveInvites(ctx); err != nil {
		return err
	}

	invites := a.matching.Invites()
	if len(invites) == 0 {
		printlnFn("No invites")
		return nil
	}
	for _, inv := range invites {
		printlnFn(fmt.Sprintf("%s  %s  %.1f km  %s  by %s  [%s]",
			inv.ID, inv.Start.Format("Mon Jan 2 15:04"), inv.Distance,
			inv.Location, inv.Inviter, inv.AcceptanceStatus))
	}
	return nil
}

// NewInvite prompts for invite details, creates it and offers to send it.
func (a *App) NewInvite(ctx context.Context) error {
	region, err := getSimpleText(a.reader, "Region", os.Stdout)
	if err != nil {
		return err
	}
	startRaw, err := getSimpleText(a.reader, "Start (2006-01-02 15:04)", os.Stdout)
	if err != nil {
		return err
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", startRaw, time.Local)
	if err != nil {
		return fmt.Errorf("unrecognized start time %q", startRaw)
	}
	distRaw, err := getSimpleText(a.reader, "Distance (km)", os.Stdout)
	if err != nil {
		return err
	}
	distance, err := strconv.ParseFloat(distRaw, 64)
	if err != nil {
		return fmt.Errorf("unrecognized distance %q", distRaw)
	}
	location, err := getSimpleText(a.reader, "Meeting point", os.Stdout)
	if err != nil {
		return err
	}

	id, err := a.matching.CreateInvite(ctx, services.CreateInviteParams{
		Region: region, Start: start, Distance: distance, Location: location,
	})
	if err != nil {
		return err
	}
	printlnFn("Invite created:", id)

	answer, err := getSimpleText(a.reader, "Send it now? (yes/no)", os.Stdout)
	if err != nil {
		return err
	}
	if answer == "yes" || answer == "y" {
		if err := a.matching.SendInvite(ctx, id); err != nil {
			return err
		}
		printlnFn("Invite sent")
	}
	return nil
}

// SendInvite makes an invite visible to potential partners.
func (a *App) SendInvite(ctx context.Context, id string) error {
	if err := a.matching.SendInvite(ctx, id); err != nil {
		return err
	}
	printlnFn("Invite sent")
	return nil
}

// AcceptInvite accepts an invite and navigates to the scheduled run.
func (a *App) AcceptInvite(ctx context.Context, id string) error {
	runID, err := a.matching.AcceptInvite(ctx, id)
	if err != nil {
		return err
	}
	printlnFn("Run scheduled:", runID)
	return a.Open(ctx, "/run/"+runID)
}

// DeclineInvite declines an invite.
func (a *App) DeclineInvite(ctx context.Context, id string) error {
	if err := a.matching.DeclineInvite(ctx, id); err != nil {
		return err
	}
	printlnFn("Invite declined")
	return nil
}

// DeleteInvite removes one of the user's own invites.
func (a *App) DeleteInvite(ctx context.Context, id string) error {
	if err := a.matching.DeleteInvite(ctx, id); err != nil {
		return err
	}
	printlnFn("Invite deleted")
	return nil
}
