package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/runmateapp/runmate-client/internal/gateway"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
)

// GoalsService owns the SharedGoals slice of state: multi-user goals and
// the generated steps underneath them. Steps are cached per goal with their
// own generation counter so a stale refetch cannot clobber newer state.
//
// Completing the final unmarked step of a goal closes the goal
// automatically; TestCompleteStep_LastStepClosesGoal pins this behavior.
type GoalsService struct {
	api gateway.Caller
	id  Identity
	log logging.Logger

	mu       sync.Mutex
	goals    []models.SharedGoal
	steps    map[string][]models.SharedStep
	goalsGen uint64
	stepsGen map[string]uint64
	load     bool
	err      string
}

// NewGoalsService constructs the service.
func NewGoalsService(api gateway.Caller, id Identity, log logging.Logger) *GoalsService {
	return &GoalsService{
		api:      api,
		id:       id,
		log:      log,
		steps:    map[string][]models.SharedStep{},
		stepsGen: map[string]uint64{},
	}
}

// Goals returns a copy of the cached goals.
func (s *GoalsService) Goals() []models.SharedGoal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SharedGoal, len(s.goals))
	copy(out, s.goals)
	return out
}

// ActiveGoals returns goals not yet closed.
func (s *GoalsService) ActiveGoals() []models.SharedGoal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SharedGoal
	for _, g := range s.goals {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out
}

// Steps returns the cached steps of one goal.
func (s *GoalsService) Steps(goalID string) []models.SharedStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached := s.steps[goalID]
	out := make([]models.SharedStep, len(cached))
	copy(out, cached)
	return out
}

// Loading reports whether an action is in flight.
func (s *GoalsService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load
}

// LastError returns the message of the last failed action.
func (s *GoalsService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *GoalsService) begin() {
	s.mu.Lock()
	s.load = true
	s.err = ""
	s.mu.Unlock()
}

func (s *GoalsService) finish(err error) error {
	s.mu.Lock()
	s.load = false
	if err != nil {
		s.err = err.Error()
	}
	s.mu.Unlock()
	return err
}

// FetchGoals replaces the goal cache with the server's view of goals the
// current user participates in.
func (s *GoalsService) FetchGoals(ctx context.Context) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.finish(s.fetchGoals(ctx, userID))
}

func (s *GoalsService) fetchGoals(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.goalsGen++
	gen := s.goalsGen
	s.mu.Unlock()

	var result []models.SharedGoal
	if err := s.api.CallConceptAction(ctx, "SharedGoals", "_getGoalsForUser",
		map[string]string{"user": userID}, &result); err != nil {
		return err
	}

	s.mu.Lock()
	if gen == s.goalsGen {
		s.goals = result
	}
	s.mu.Unlock()
	return nil
}

// CreateGoal creates a shared goal for the given participants (the backend
// generates the steps) and refetches the goal list. The new goal's id is
// returned.
func (s *GoalsService) CreateGoal(ctx context.Context, users []string, description string) (string, error) {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return "", s.finish(err)
	}

	var resp struct {
		SharedGoal string `json:"sharedGoal"`
	}
	err = s.api.CallConceptAction(ctx, "SharedGoals", "createSharedGoal",
		map[string]any{"users": users, "description": description}, &resp)
	if err != nil {
		return "", s.finish(err)
	}

	if err := s.fetchGoals(ctx, userID); err != nil {
		s.log.Warn(ctx, "goal list refresh after create failed", "error", err)
	}
	return resp.SharedGoal, s.finish(nil)
}

// CloseGoal deactivates a goal; the cache is patched locally.
func (s *GoalsService) CloseGoal(ctx context.Context, goalID string) error {
	s.begin()
	return s.finish(s.closeGoal(ctx, goalID))
}

func (s *GoalsService) closeGoal(ctx context.Context, goalID string) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return err
	}
	if err := s.api.CallConceptAction(ctx, "SharedGoals", "closeSharedGoal",
		map[string]string{"sharedGoal": goalID, "user": userID}, nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.goalsGen++
	for i := range s.goals {
		if s.goals[i].ID == goalID {
			s.goals[i].IsActive = false
		}
	}
	s.mu.Unlock()
	return nil
}

// FetchSteps replaces the cached steps of one goal.
func (s *GoalsService) FetchSteps(ctx context.Context, goalID string) ([]models.SharedStep, error) {
	s.begin()
	steps, err := s.fetchSteps(ctx, goalID)
	return steps, s.finish(err)
}

func (s *GoalsService) fetchSteps(ctx context.Context, goalID string) ([]models.SharedStep, error) {
	s.mu.Lock()
	s.stepsGen[goalID]++
	gen := s.stepsGen[goalID]
	s.mu.Unlock()

	var result []models.SharedStep
	if err := s.api.CallConceptAction(ctx, "SharedGoals", "_getStepsForGoal",
		map[string]string{"sharedGoal": goalID}, &result); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if gen == s.stepsGen[goalID] {
		s.steps[goalID] = result
	}
	out := make([]models.SharedStep, len(result))
	copy(out, result)
	s.mu.Unlock()
	return out, nil
}

// CompleteStep marks one step done, refetches the goal's steps, and closes
// the goal when the completed step was the last one still open.
func (s *GoalsService) CompleteStep(ctx context.Context, goalID, stepID string) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}

	if err := s.api.CallConceptAction(ctx, "SharedGoals", "completeStep",
		map[string]string{"user": userID, "step": stepID}, nil); err != nil {
		return s.finish(err)
	}

	steps, err := s.fetchSteps(ctx, goalID)
	if err != nil {
		return s.finish(fmt.Errorf("refresh steps after completion: %w", err))
	}

	if len(steps) > 0 && allCompleted(steps) {
		if err := s.closeGoal(ctx, goalID); err != nil {
			if be, ok := gateway.AsBusiness(err); ok {
				// Another participant may have closed it concurrently.
				s.log.Debug(ctx, "auto-close rejected", "goal", goalID, "reason", be.Message)
				return s.finish(nil)
			}
			return s.finish(fmt.Errorf("auto-close goal: %w", err))
		}
	}
	return s.finish(nil)
}

func allCompleted(steps []models.SharedStep) bool {
	for _, st := range steps {
		if !st.Completed() {
			return false
		}
	}
	return true
}
