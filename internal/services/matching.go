package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runmateapp/runmate-client/internal/gateway"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
)

// MatchingService owns the OneRunMatching slice of state: invites the user
// created or received, and the scheduled runs produced by accepted invites.
// Acceptance affects both collections transactionally on the server, so the
// client refetches both after accepting.
//
// Each collection carries a generation counter. A refetch captures the
// counter before its round-trip and discards its result if the counter moved
// while it was in flight, so a superseded response cannot overwrite newer
// state.
type MatchingService struct {
	api gateway.Caller
	id  Identity
	log logging.Logger

	mu         sync.Mutex
	invites    []models.Invite
	runs       []models.ScheduledRun
	invitesGen uint64
	runsGen    uint64
	load       bool
	err        string
}

// NewMatchingService constructs the service.
func NewMatchingService(api gateway.Caller, id Identity, log logging.Logger) *MatchingService {
	return &MatchingService{api: api, id: id, log: log}
}

// CreateInviteParams are the caller-supplied fields of a new invite.
type CreateInviteParams struct {
	Region   string
	Start    time.Time
	Distance float64
	Location string
}

// Invites returns a copy of the cached invites.
func (s *MatchingService) Invites() []models.Invite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Invite, len(s.invites))
	copy(out, s.invites)
	return out
}

// Runs returns a copy of the cached runs.
func (s *MatchingService) Runs() []models.ScheduledRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ScheduledRun, len(s.runs))
	copy(out, s.runs)
	return out
}

// PendingInvites returns invites that are unsent or still awaiting an
// answer.
func (s *MatchingService) PendingInvites() []models.Invite {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Invite
	for _, inv := range s.invites {
		if !inv.Sent || inv.AcceptanceStatus == models.InvitePending {
			out = append(out, inv)
		}
	}
	return out
}

// ActiveRuns returns runs not yet completed.
func (s *MatchingService) ActiveRuns() []models.ScheduledRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduledRun
	for _, r := range s.runs {
		if !r.Completed {
			out = append(out, r)
		}
	}
	return out
}

// Loading reports whether an action is in flight.
func (s *MatchingService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load
}

// LastError returns the message of the last failed action.
func (s *MatchingService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *MatchingService) begin() {
	s.mu.Lock()
	s.load = true
	s.err = ""
	s.mu.Unlock()
}

func (s *MatchingService) finish(err error) error {
	s.mu.Lock()
	s.load = false
	if err != nil {
		s.err = err.Error()
	}
	s.mu.Unlock()
	return err
}

// CreateInvite creates a new invite and refetches the invite list. The new
// invite's id is returned.
func (s *MatchingService) CreateInvite(ctx context.Context, p CreateInviteParams) (string, error) {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return "", s.finish(err)
	}

	var resp struct {
		Invite string `json:"invite"`
	}
	err = s.api.CallConceptAction(ctx, "OneRunMatching", "createInvite", map[string]any{
		"inviter":  userID,
		"region":   p.Region,
		"start":    p.Start.Format(time.RFC3339),
		"distance": p.Distance,
		"location": p.Location,
	}, &resp)
	if err != nil {
		return "", s.finish(err)
	}

	if err := s.fetchInvites(ctx, userID); err != nil {
		s.log.Warn(ctx, "invite list refresh after create failed", "error", err)
	}
	return resp.Invite, s.finish(nil)
}

// SendInvite marks an invite as sent, making it visible to invitees.
func (s *MatchingService) SendInvite(ctx context.Context, inviteID string) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "sendInvite",
		map[string]string{"invite": inviteID}, nil); err != nil {
		return s.finish(err)
	}
	if err := s.fetchInvites(ctx, userID); err != nil {
		s.log.Warn(ctx, "invite list refresh after send failed", "error", err)
	}
	return s.finish(nil)
}

// DeleteInvite removes an unsent invite; the cache is patched locally
// rather than refetched.
func (s *MatchingService) DeleteInvite(ctx context.Context, inviteID string) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "deleteInvite",
		map[string]string{"user": userID, "invite": inviteID}, nil); err != nil {
		return s.finish(err)
	}

	s.mu.Lock()
	s.invitesGen++
	kept := s.invites[:0]
	for _, inv := range s.invites {
		if inv.ID != inviteID {
			kept = append(kept, inv)
		}
	}
	s.invites = kept
	s.mu.Unlock()
	return s.finish(nil)
}

// acceptInviteResponse covers the shapes the backend has used for accept.
type acceptInviteResponse struct {
	Request      string               `json:"request"`
	RunDoc       *models.ScheduledRun `json:"runDoc"`
	ScheduledRun string               `json:"scheduledRun"`
}

// AcceptInvite accepts an invite on behalf of the current user and returns
// the id of the scheduled run it produced. A chat thread between the two
// parties is created fire-and-forget; its failure never rolls back the
// acceptance. Both invites and runs are then refetched in parallel, and as
// a safeguard the accepted invite is dropped from the local cache even if
// the refetch raced.
func (s *MatchingService) AcceptInvite(ctx context.Context, inviteID string) (string, error) {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return "", s.finish(err)
	}

	// The accept action needs the inviter, which only the invite knows.
	invite, err := s.FetchInvite(ctx, inviteID)
	if err != nil {
		return "", s.finish(fmt.Errorf("resolve invite before accept: %w", err))
	}

	var resp acceptInviteResponse
	err = s.api.CallConceptAction(ctx, "OneRunMatching", "acceptInvite", map[string]string{
		"inviter":  invite.Inviter,
		"invite":   inviteID,
		"accepter": userID,
	}, &resp)
	if err != nil {
		return "", s.finish(err)
	}

	runID := resp.ScheduledRun
	if resp.RunDoc != nil && resp.RunDoc.ID != "" {
		runID = resp.RunDoc.ID
	}
	if runID == "" {
		return "", s.finish(fmt.Errorf("accept succeeded but no run id in response"))
	}

	if err := s.api.CallConceptAction(ctx, "Messaging", "startChat", map[string]string{
		"userA": invite.Inviter,
		"userB": userID,
	}, nil); err != nil {
		s.log.Warn(ctx, "chat creation after invite acceptance failed", "invite", inviteID, "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.fetchInvites(gctx, userID) })
	g.Go(func() error { return s.fetchRuns(gctx, userID) })
	if err := g.Wait(); err != nil {
		s.log.Warn(ctx, "refetch after invite acceptance failed", "error", err)
	}

	// Safeguard: the server removes an accepted invite from every other
	// invitee's pending list; mirror that locally in case the refetch
	// returned stale data.
	s.mu.Lock()
	kept := s.invites[:0]
	for _, inv := range s.invites {
		if inv.ID == inviteID {
			continue
		}
		if inv.Inviter != userID && inv.HasInvitee(userID) && inv.AcceptanceStatus != models.InvitePending {
			continue
		}
		kept = append(kept, inv)
	}
	s.invites = kept
	s.mu.Unlock()

	return runID, s.finish(nil)
}

// DeclineInvite declines an invite and refetches the invite list.
func (s *MatchingService) DeclineInvite(ctx context.Context, inviteID string) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "declineInvite",
		map[string]string{"invite": inviteID, "decliner": userID}, nil); err != nil {
		return s.finish(err)
	}
	if err := s.fetchInvites(ctx, userID); err != nil {
		s.log.Warn(ctx, "invite list refresh after decline failed", "error", err)
	}
	return s.finish(nil)
}

// CompleteRun marks a run completed and refetches the run list.
func (s *MatchingService) CompleteRun(ctx context.Context, runID string) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "completeRun",
		map[string]string{"user": userID, "run": runID}, nil); err != nil {
		return s.finish(err)
	}
	if err := s.fetchRuns(ctx, userID); err != nil {
		s.log.Warn(ctx, "run list refresh after complete failed", "error", err)
	}
	return s.finish(nil)
}

// CancelRun cancels a run; the cache is patched locally.
func (s *MatchingService) CancelRun(ctx context.Context, runID string) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "cancelRun",
		map[string]string{"initiator": userID, "run": runID}, nil); err != nil {
		return s.finish(err)
	}

	s.mu.Lock()
	s.runsGen++
	kept := s.runs[:0]
	for _, r := range s.runs {
		if r.ID != runID {
			kept = append(kept, r)
		}
	}
	s.runs = kept
	s.mu.Unlock()
	return s.finish(nil)
}

// FetchInvites replaces the invite cache with the server's view of invites
// the user created or received.
func (s *MatchingService) FetchInvites(ctx context.Context) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.finish(s.fetchInvites(ctx, userID))
}

func (s *MatchingService) fetchInvites(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.invitesGen++
	gen := s.invitesGen
	s.mu.Unlock()

	var result []models.Invite
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "_getInvitesForUser",
		map[string]string{"user": userID}, &result); err != nil {
		return err
	}

	s.mu.Lock()
	if gen == s.invitesGen {
		s.invites = result
	}
	s.mu.Unlock()
	return nil
}

// FetchActiveInvites merges region-wide open invites into the cache,
// deduplicating against what is already cached. Failures are supplementary
// and do not disturb the error state.
func (s *MatchingService) FetchActiveInvites(ctx context.Context) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}

	var resp struct {
		Request string          `json:"request"`
		Invites []models.Invite `json:"invites"`
	}
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "getActiveInvitesForUser",
		map[string]string{"user": userID}, &resp); err != nil {
		s.log.Warn(ctx, "fetching active invites failed", "error", err)
		return s.finish(nil)
	}

	s.mu.Lock()
	seen := make(map[string]struct{}, len(s.invites))
	for _, inv := range s.invites {
		seen[inv.ID] = struct{}{}
	}
	for _, inv := range resp.Invites {
		if _, ok := seen[inv.ID]; !ok {
			s.invites = append(s.invites, inv)
		}
	}
	s.mu.Unlock()
	return s.finish(nil)
}

// FetchMatches replaces the run cache with the server's view.
func (s *MatchingService) FetchMatches(ctx context.Context) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.finish(s.fetchRuns(ctx, userID))
}

func (s *MatchingService) fetchRuns(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.runsGen++
	gen := s.runsGen
	s.mu.Unlock()

	var result []models.ScheduledRun
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "_getMatches",
		map[string]string{"user": userID}, &result); err != nil {
		return err
	}

	s.mu.Lock()
	if gen == s.runsGen {
		s.runs = result
	}
	s.mu.Unlock()
	return nil
}

// FetchInvite resolves a single invite, falling back to the local cache
// when the server query is unavailable.
func (s *MatchingService) FetchInvite(ctx context.Context, inviteID string) (*models.Invite, error) {
	var invite models.Invite
	err := s.api.CallConceptAction(ctx, "OneRunMatching", "_getInvite",
		map[string]string{"invite": inviteID}, &invite)
	if err == nil && invite.ID != "" {
		return &invite, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if inv.ID == inviteID {
			cp := inv
			return &cp, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("invite %s not found", inviteID)
}

// runWithInviteResponse covers the shapes _getRun has returned: the run
// either under runDoc or inlined at the top level, plus the associated
// invite when the caller participates in the run.
type runWithInviteResponse struct {
	models.ScheduledRun
	RunDoc *models.ScheduledRun `json:"runDoc"`
	Invite *models.Invite       `json:"invite"`
}

// FetchRun resolves a single run, falling back to the local cache.
func (s *MatchingService) FetchRun(ctx context.Context, runID string) (*models.ScheduledRun, error) {
	run, _, err := s.FetchRunWithInvite(ctx, runID)
	if err == nil && run != nil {
		return run, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		if r.ID == runID {
			cp := r
			return &cp, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("run %s not found", runID)
}

// FetchRunWithInvite resolves a run together with the invite that produced
// it. The invite is nil when the caller is not a participant. A returned
// invite is folded into the invite cache for later lookups.
func (s *MatchingService) FetchRunWithInvite(ctx context.Context, runID string) (*models.ScheduledRun, *models.Invite, error) {
	var resp runWithInviteResponse
	if err := s.api.CallConceptAction(ctx, "OneRunMatching", "_getRun",
		map[string]string{"run": runID}, &resp); err != nil {
		return nil, nil, err
	}

	run := resp.ScheduledRun
	if resp.RunDoc != nil {
		run = *resp.RunDoc
	}
	if run.ID == "" {
		return nil, nil, fmt.Errorf("run %s not found", runID)
	}

	if resp.Invite != nil {
		s.mu.Lock()
		found := false
		for _, inv := range s.invites {
			if inv.ID == resp.Invite.ID {
				found = true
				break
			}
		}
		if !found {
			s.invites = append(s.invites, *resp.Invite)
		}
		s.mu.Unlock()
	}
	return &run, resp.Invite, nil
}

// FindInviteForRun resolves the accepted invite behind a run, preferring the
// server query and falling back to a local search over the cached invites.
func (s *MatchingService) FindInviteForRun(ctx context.Context, run models.ScheduledRun) (*models.Invite, error) {
	userID, err := requireUser(s.id)
	if err != nil {
		return nil, err
	}

	var resp struct {
		models.Invite
		Wrapped *models.Invite `json:"invite"`
	}
	err = s.api.CallConceptAction(ctx, "OneRunMatching", "_getInviteForRun",
		map[string]string{"run": run.ID}, &resp)
	if err == nil {
		// The invite arrives either wrapped under "invite" or inlined.
		if resp.Wrapped != nil && resp.Wrapped.ID != "" {
			return resp.Wrapped, nil
		}
		if resp.ID != "" {
			cp := models.Invite{
				ID: resp.ID, Sent: resp.Sent, Start: resp.Start, Inviter: resp.Inviter,
				Invitees: resp.Invitees, Location: resp.Location, Distance: resp.Distance,
				AcceptanceStatus: resp.AcceptanceStatus, Region: resp.Region,
			}
			return &cp, nil
		}
	}
	if err != nil {
		s.log.Debug(ctx, "invite-for-run query unavailable, searching locally", "run", run.ID, "error", err)
		if ferr := s.fetchInvites(ctx, userID); ferr != nil {
			s.log.Warn(ctx, "invite refresh for local search failed", "error", ferr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	matches := func(inv models.Invite) bool {
		return (inv.Inviter == run.UserA && inv.HasInvitee(run.UserB)) ||
			(inv.Inviter == run.UserB && inv.HasInvitee(run.UserA))
	}
	for _, inv := range s.invites {
		if inv.AcceptanceStatus == models.InviteAccepted && matches(inv) {
			cp := inv
			return &cp, nil
		}
	}
	for _, inv := range s.invites {
		if matches(inv) {
			cp := inv
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no invite found for run %s", run.ID)
}
