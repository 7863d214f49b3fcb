package models

// ScheduledRun is produced server-side when an invite is accepted. The
// associated invite is resolved by lookup, not stored as a foreign key here.
type ScheduledRun struct {
	ID        string `json:"_id"`
	UserA     string `json:"userA"`
	UserB     string `json:"userB"`
	Completed bool   `json:"completed"`
}

// Involves reports whether user is one of the two run participants.
func (r ScheduledRun) Involves(user string) bool {
	return r.UserA == user || r.UserB == user
}
