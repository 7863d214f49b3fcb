package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/runmateapp/runmate-client/internal/gateway"
	"github.com/runmateapp/runmate-client/internal/logging"
	"github.com/runmateapp/runmate-client/internal/models"
)

// ProfileService owns the local copy of the UserProfile concept. The cache
// is merged field-by-field after each remote mutation, never wholesale-
// replaced once initialized, so a partial server response cannot blank out
// fields it did not include.
type ProfileService struct {
	api    gateway.Caller
	files  Uploader
	id     Identity
	log    logging.Logger
	mu     sync.Mutex
	prof   models.Profile
	cached bool
	load   bool
	err    string
}

// NewProfileService constructs the service. files may be nil when image
// uploads are not needed (tests, headless tooling).
func NewProfileService(api gateway.Caller, files Uploader, id Identity, log logging.Logger) *ProfileService {
	return &ProfileService{api: api, files: files, id: id, log: log}
}

// Profile returns a copy of the cached profile and whether one is cached.
func (s *ProfileService) Profile() (models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prof, s.cached
}

// Loading reports whether an action is in flight.
func (s *ProfileService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load
}

// LastError returns the human-readable message of the last failed action.
func (s *ProfileService) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ProfileService) begin() {
	s.mu.Lock()
	s.load = true
	s.err = ""
	s.mu.Unlock()
}

func (s *ProfileService) finish(err error) error {
	s.mu.Lock()
	s.load = false
	if err != nil {
		s.err = err.Error()
	}
	s.mu.Unlock()
	return err
}

// Fetch pulls the profile from the server and merges it into the cache.
func (s *ProfileService) Fetch(ctx context.Context) error {
	s.begin()
	return s.finish(s.fetch(ctx))
}

func (s *ProfileService) fetch(ctx context.Context) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return err
	}

	var remote models.Profile
	if err := s.api.CallConceptAction(ctx, "UserProfile", "getProfile",
		map[string]string{"user": userID}, &remote); err != nil {
		return err
	}

	s.mu.Lock()
	s.prof = s.prof.Merge(remote)
	s.cached = true
	s.mu.Unlock()
	return nil
}

// Create creates an empty profile for the current user, then fetches it.
func (s *ProfileService) Create(ctx context.Context) error {
	s.begin()
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	if err := s.api.CallConceptAction(ctx, "UserProfile", "createProfile",
		map[string]string{"user": userID}, nil); err != nil {
		return s.finish(err)
	}
	return s.finish(s.fetch(ctx))
}

// Bootstrap creates-or-fetches the profile for a freshly registered user.
// It satisfies the registration side effect: create may fail because the
// profile already exists, in which case the fetch still resolves it.
func (s *ProfileService) Bootstrap(ctx context.Context, userID string) error {
	if err := s.api.CallConceptAction(ctx, "UserProfile", "createProfile",
		map[string]string{"user": userID}, nil); err != nil {
		if _, ok := gateway.AsBusiness(err); !ok {
			return err
		}
		s.log.Debug(ctx, "profile already exists, fetching instead", "user", userID)
	}

	var remote models.Profile
	if err := s.api.CallConceptAction(ctx, "UserProfile", "getProfile",
		map[string]string{"user": userID}, &remote); err != nil {
		return err
	}

	s.mu.Lock()
	s.prof = s.prof.Merge(remote)
	s.cached = true
	s.mu.Unlock()
	return nil
}

// setField runs one single-field mutation and, on success, applies the
// optimistic local patch instead of refetching.
func (s *ProfileService) setField(ctx context.Context, action string, payload any, patch func(*models.Profile)) error {
	s.begin()
	if _, err := requireUser(s.id); err != nil {
		return s.finish(err)
	}
	if err := s.api.CallConceptAction(ctx, "UserProfile", action, payload, nil); err != nil {
		return s.finish(err)
	}

	s.mu.Lock()
	patch(&s.prof)
	s.mu.Unlock()
	return s.finish(nil)
}

// SetDisplayName updates the display name.
func (s *ProfileService) SetDisplayName(ctx context.Context, displayname string) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.setField(ctx, "setName",
		map[string]string{"user": userID, "displayname": displayname},
		func(p *models.Profile) { p.DisplayName = displayname })
}

// SetProfileImage records an already-uploaded image reference.
func (s *ProfileService) SetProfileImage(ctx context.Context, image string) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.setField(ctx, "setProfileImage",
		map[string]string{"user": userID, "image": image},
		func(p *models.Profile) { p.ProfileImage = image })
}

// SetBio updates the bio.
func (s *ProfileService) SetBio(ctx context.Context, bio string) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.setField(ctx, "setBio",
		map[string]string{"user": userID, "bio": bio},
		func(p *models.Profile) { p.Bio = bio })
}

// SetLocation updates the location.
func (s *ProfileService) SetLocation(ctx context.Context, location string) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.setField(ctx, "setLocation",
		map[string]string{"user": userID, "location": location},
		func(p *models.Profile) { p.Location = location })
}

// SetEmergencyContact updates the safety contact.
func (s *ProfileService) SetEmergencyContact(ctx context.Context, name, phone string) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.setField(ctx, "setEmergencyContact",
		map[string]string{"user": userID, "name": name, "phone": phone},
		func(p *models.Profile) {
			p.EmergencyContact = models.EmergencyContact{Name: name, Phone: phone}
		})
}

// SetTag sets one tag (gender, age, running level, pace, ...). Values are
// strings or numbers per the backend's open tag map.
func (s *ProfileService) SetTag(ctx context.Context, tagType string, value any) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.setField(ctx, "setTag",
		map[string]any{"user": userID, "tagType": tagType, "value": value},
		func(p *models.Profile) {
			tags := make(map[string]any, len(p.Tags)+1)
			for k, v := range p.Tags {
				tags[k] = v
			}
			tags[tagType] = value
			p.Tags = tags
		})
}

// RemoveTag deletes one tag.
func (s *ProfileService) RemoveTag(ctx context.Context, tagType string) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.setField(ctx, "removeTag",
		map[string]string{"user": userID, "tagType": tagType},
		func(p *models.Profile) {
			if len(p.Tags) == 0 {
				return
			}
			tags := make(map[string]any, len(p.Tags))
			for k, v := range p.Tags {
				if k != tagType {
					tags[k] = v
				}
			}
			p.Tags = tags
		})
}

// Close deactivates the profile, triggering server-side cascading cleanup.
func (s *ProfileService) Close(ctx context.Context) error {
	userID, err := requireUser(s.id)
	if err != nil {
		return s.finish(err)
	}
	return s.setField(ctx, "closeProfile",
		map[string]string{"user": userID},
		func(p *models.Profile) { p.IsActive = false })
}

// UploadProfileImage runs the three-step upload handshake for a new profile
// image and records the confirmed file reference on the profile.
func (s *ProfileService) UploadProfileImage(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if s.files == nil {
		return "", fmt.Errorf("file uploads not configured")
	}
	if _, err := requireUser(s.id); err != nil {
		return "", s.finish(err)
	}
	token := s.id.Session()
	if token == "" {
		return "", s.finish(gateway.ErrNotAuthenticated)
	}
	s.begin()

	ticket, err := s.files.RequestUploadURL(ctx, token, filename, contentType)
	if err != nil {
		return "", s.finish(fmt.Errorf("request upload slot: %w", err))
	}
	if err := s.files.Upload(ctx, ticket.UploadURL, contentType, body); err != nil {
		return "", s.finish(err)
	}
	file, err := s.files.ConfirmUpload(ctx, ticket.File)
	if err != nil {
		return "", s.finish(fmt.Errorf("confirm upload: %w", err))
	}

	if err := s.SetProfileImage(ctx, file); err != nil {
		return "", err
	}
	return file, nil
}

// ProfileImageURL resolves the stored image reference to a fetchable URL.
func (s *ProfileService) ProfileImageURL(ctx context.Context) (string, error) {
	if s.files == nil {
		return "", fmt.Errorf("file uploads not configured")
	}
	s.mu.Lock()
	file := s.prof.ProfileImage
	s.mu.Unlock()
	if file == "" {
		return "", nil
	}
	return s.files.GetDownloadURL(ctx, file)
}
