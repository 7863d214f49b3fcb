// Package models defines the client-side shapes of the remote entities.
// All entities are owned by the backend; the client holds cache copies only.
package models

// User is the cached identity created alongside a session.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}
