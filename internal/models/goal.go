package models

import "time"

// SharedGoal is a multi-user objective decomposed into shared steps.
// A goal transitions active → closed, either manually or when every step
// carries a completion timestamp.
type SharedGoal struct {
	ID          string   `json:"_id"`
	Description string   `json:"description"`
	IsActive    bool     `json:"isActive"`
	Users       []string `json:"users"`
}

// SharedStep is one generated sub-step of a shared goal. Completion is nil
// until a participant marks the step done.
type SharedStep struct {
	ID          string     `json:"_id"`
	Goal        string     `json:"goal"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	Completion  *time.Time `json:"completion,omitempty"`
}

// Completed reports whether the step carries a completion timestamp.
func (s SharedStep) Completed() bool {
	return s.Completion != nil
}
