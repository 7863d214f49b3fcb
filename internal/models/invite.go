package models

import "time"

// AcceptanceStatus is the lifecycle state of an invite.
type AcceptanceStatus string

const (
	InviteCreated  AcceptanceStatus = "created"
	InvitePending  AcceptanceStatus = "pending"
	InviteAccepted AcceptanceStatus = "accepted"
	InviteDeclined AcceptanceStatus = "declined"
)

// Invite is a proposed one-off run between an inviter and one or more
// invitees. Created unsent, transitions through send → accept/decline.
type Invite struct {
	ID               string           `json:"_id"`
	Sent             bool             `json:"sent"`
	Start            time.Time        `json:"start"`
	Inviter          string           `json:"inviter"`
	Invitees         []string         `json:"invitees"`
	Location         string           `json:"location"`
	Distance         float64          `json:"distance"`
	AcceptanceStatus AcceptanceStatus `json:"acceptanceStatus"`
	Region           string           `json:"region"`
}

// HasInvitee reports whether user appears in the invitee list.
func (i Invite) HasInvitee(user string) bool {
	for _, u := range i.Invitees {
		if u == user {
			return true
		}
	}
	return false
}
