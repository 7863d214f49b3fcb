package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runmateapp/runmate-client/internal/gateway"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
)

func newProfileService(id Identity) (*ProfileService, *fakeCaller) {
	api := newFakeCaller()
	return NewProfileService(api, nil, id, logging.Nop()), api
}

func TestProfileFetch_RequiresIdentity(t *testing.T) {
	s, api := newProfileService(anonymous())

	err := s.Fetch(context.Background())
	require.ErrorIs(t, err, gateway.ErrNotAuthenticated)
	require.Zero(t, api.callCount("UserProfile", "getProfile"))
}

func TestProfileFetch_MergesIntoCache(t *testing.T) {
	s, api := newProfileService(loggedIn("u1"))
	ctx := context.Background()

	api.on("UserProfile", "getProfile", func(payload, out any) error {
		return respond(out, map[string]any{
			"displayname": "Alice",
			"bio":         "weekend runner",
			"tags":        map[string]any{"runningPace": "5:30"},
		})
	})
	require.NoError(t, s.Fetch(ctx))

	prof, ok := s.Profile()
	require.True(t, ok)
	require.Equal(t, "Alice", prof.DisplayName)
	require.Equal(t, "weekend runner", prof.Bio)

	// A later partial response must not blank out fields it omits.
	api.on("UserProfile", "getProfile", func(payload, out any) error {
		return respond(out, map[string]any{"location": "Cambridge"})
	})
	require.NoError(t, s.Fetch(ctx))

	prof, _ = s.Profile()
	require.Equal(t, "Alice", prof.DisplayName, "merge must preserve omitted fields")
	require.Equal(t, "Cambridge", prof.Location)
	require.Equal(t, "5:30", prof.Tags["runningPace"])
}

func TestProfileSetters_PatchLocallyOnSuccess(t *testing.T) {
	s, api := newProfileService(loggedIn("u1"))
	ctx := context.Background()

	require.NoError(t, s.SetDisplayName(ctx, "Alice"))
	require.NoError(t, s.SetBio(ctx, "trail running"))
	require.NoError(t, s.SetLocation(ctx, "Boston"))
	require.NoError(t, s.SetEmergencyContact(ctx, "Bob", "555-0100"))
	require.NoError(t, s.SetTag(ctx, "age", 29))

	prof, _ := s.Profile()
	require.Equal(t, "Alice", prof.DisplayName)
	require.Equal(t, "trail running", prof.Bio)
	require.Equal(t, "Boston", prof.Location)
	require.Equal(t, models.EmergencyContact{Name: "Bob", Phone: "555-0100"}, prof.EmergencyContact)
	require.Equal(t, 29, prof.Tags["age"])

	// Single-field mutations never trigger a refetch.
	require.Zero(t, api.callCount("UserProfile", "getProfile"))

	payload := api.lastPayload("UserProfile", "setName")
	require.Equal(t, map[string]string{"user": "u1", "displayname": "Alice"}, payload)
}

func TestProfileSetter_BusinessErrorRecorded(t *testing.T) {
	s, api := newProfileService(loggedIn("u1"))

	api.on("UserProfile", "setBio", func(payload, out any) error {
		return &gateway.BusinessError{Message: "bio too long"}
	})

	err := s.SetBio(context.Background(), "...")
	require.Error(t, err)
	require.Equal(t, "bio too long", s.LastError())

	prof, _ := s.Profile()
	require.Empty(t, prof.Bio, "failed mutation must not patch the cache")
}

func TestProfileRemoveTag(t *testing.T) {
	s, api := newProfileService(loggedIn("u1"))
	ctx := context.Background()

	require.NoError(t, s.SetTag(ctx, "gender", "f"))
	require.NoError(t, s.SetTag(ctx, "age", 30))
	require.NoError(t, s.RemoveTag(ctx, "gender"))

	prof, _ := s.Profile()
	require.NotContains(t, prof.Tags, "gender")
	require.Equal(t, 30, prof.Tags["age"])

	payload := api.lastPayload("UserProfile", "removeTag")
	require.Equal(t, map[string]string{"user": "u1", "tagType": "gender"}, payload)
}

func TestProfileBootstrap_CreateConflictFallsBackToFetch(t *testing.T) {
	s, api := newProfileService(anonymous())
	ctx := context.Background()

	api.on("UserProfile", "createProfile", func(payload, out any) error {
		return &gateway.BusinessError{Message: "profile exists"}
	})
	api.on("UserProfile", "getProfile", func(payload, out any) error {
		return respond(out, map[string]any{"displayname": "Returning"})
	})

	// Bootstrap runs with an explicit user id: at registration time the
	// identity may not be observable through the auth store yet.
	require.NoError(t, s.Bootstrap(ctx, "u9"))

	prof, ok := s.Profile()
	require.True(t, ok)
	require.Equal(t, "Returning", prof.DisplayName)
	require.Equal(t, map[string]string{"user": "u9"}, api.lastPayload("UserProfile", "getProfile"))
}

func TestProfileBootstrap_TransportErrorSurfaced(t *testing.T) {
	s, api := newProfileService(anonymous())

	api.on("UserProfile", "createProfile", func(payload, out any) error {
		return gateway.ErrUnavailable
	})

	err := s.Bootstrap(context.Background(), "u9")
	require.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestProfileClose_DeactivatesLocally(t *testing.T) {
	s, api := newProfileService(loggedIn("u1"))
	ctx := context.Background()

	api.on("UserProfile", "getProfile", func(payload, out any) error {
		return respond(out, map[string]any{"displayname": "Alice", "isActive": true})
	})
	require.NoError(t, s.Fetch(ctx))
	require.NoError(t, s.Close(ctx))

	prof, _ := s.Profile()
	require.False(t, prof.IsActive)
}

type fakeUploader struct {
	ticket    *gateway.UploadTicket
	uploaded  []string // upload URLs hit
	confirmed []string
	sessions  []string
}

func (f *fakeUploader) RequestUploadURL(_ context.Context, session, filename, contentType string) (*gateway.UploadTicket, error) {
	f.sessions = append(f.sessions, session)
	return f.ticket, nil
}

func (f *fakeUploader) Upload(_ context.Context, uploadURL, contentType string, _ io.Reader) error {
	f.uploaded = append(f.uploaded, uploadURL)
	return nil
}

func (f *fakeUploader) ConfirmUpload(_ context.Context, file string) (string, error) {
	f.confirmed = append(f.confirmed, file)
	return file, nil
}

func (f *fakeUploader) GetDownloadURL(_ context.Context, file string) (string, error) {
	return "https://cdn.example.com/" + file, nil
}

func TestUploadProfileImage_RunsHandshakeAndPatchesProfile(t *testing.T) {
	api := newFakeCaller()
	files := &fakeUploader{ticket: &gateway.UploadTicket{File: "file-1", UploadURL: "https://bucket/file-1"}}
	s := NewProfileService(api, files, loggedIn("u1"), logging.Nop())

	file, err := s.UploadProfileImage(context.Background(), "avatar.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "file-1", file)

	require.Equal(t, []string{"tok-u1"}, files.sessions, "upload slot must be requested with the session token")
	require.Equal(t, []string{"https://bucket/file-1"}, files.uploaded)
	require.Equal(t, []string{"file-1"}, files.confirmed)

	prof, _ := s.Profile()
	require.Equal(t, "file-1", prof.ProfileImage)
	require.Equal(t, map[string]string{"user": "u1", "image": "file-1"},
		api.lastPayload("UserProfile", "setProfileImage"))
}

func TestProfileImageURL_ResolvesStoredReference(t *testing.T) {
	api := newFakeCaller()
	files := &fakeUploader{}
	s := NewProfileService(api, files, loggedIn("u1"), logging.Nop())

	require.NoError(t, s.SetProfileImage(context.Background(), "file-7"))

	url, err := s.ProfileImageURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/file-7", url)
}
