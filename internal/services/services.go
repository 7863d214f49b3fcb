// Package services holds the domain stores: each owns a slice of remote
// state mirrored locally and exposes action methods that call the concept
// API, then reconcile the local cache either by patching fields or by full
// refetch. The remote system stays the source of truth; local copies are
// caches with at-most-eventual consistency.
package services

import (
	"context"
	"io"

	"github.com/runmateapp/runmate-client/internal/gateway"
	"github.com/runmateapp/runmate-client/internal/models"
)

// Identity is the slice of the auth store the domain services need: who the
// current user is and their session token. Mutating actions fail fast with
// gateway.ErrNotAuthenticated when no identity is present, before any
// network round-trip.
type Identity interface {
	User() *models.User
	Session() string
}

// requireUser resolves the current user id or fails the precondition.
func requireUser(id Identity) (string, error) {
	u := id.User()
	if u == nil || u.ID == "" {
		return "", gateway.ErrNotAuthenticated
	}
	return u.ID, nil
}

// Uploader is the file-handshake slice of the gateway used by the profile
// service for image uploads.
type Uploader interface {
	RequestUploadURL(ctx context.Context, session, filename, contentType string) (*gateway.UploadTicket, error)
	Upload(ctx context.Context, uploadURL, contentType string, body io.Reader) error
	ConfirmUpload(ctx context.Context, file string) (string, error)
	GetDownloadURL(ctx context.Context, file string) (string, error)
}
