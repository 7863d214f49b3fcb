package models

// EmergencyContact is the safety contact attached to a profile.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Profile mirrors the UserProfile concept. Tags is an open map whose values
// the backend stores as strings or numbers (age, running level, pace, ...).
type Profile struct {
	DisplayName      string           `json:"displayname"`
	ProfileImage     string           `json:"profileImage"`
	Bio              string           `json:"bio"`
	Location         string           `json:"location"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	Tags             map[string]any   `json:"tags"`
	IsActive         bool             `json:"isActive"`
}

// Merge overlays the non-empty fields of partial onto p and returns the
// result. The cache is merged field-by-field, never wholesale-replaced, so a
// partial server response cannot blank out fields it did not include.
func (p Profile) Merge(partial Profile) Profile {
	out := p
	if partial.DisplayName != "" {
		out.DisplayName = partial.DisplayName
	}
	if partial.ProfileImage != "" {
		out.ProfileImage = partial.ProfileImage
	}
	if partial.Bio != "" {
		out.Bio = partial.Bio
	}
	if partial.Location != "" {
		out.Location = partial.Location
	}
	if partial.EmergencyContact.Name != "" || partial.EmergencyContact.Phone != "" {
		out.EmergencyContact = partial.EmergencyContact
	}
	if len(partial.Tags) > 0 {
		tags := make(map[string]any, len(out.Tags)+len(partial.Tags))
		for k, v := range out.Tags {
			tags[k] = v
		}
		for k, v := range partial.Tags {
			tags[k] = v
		}
		out.Tags = tags
	}
	out.IsActive = partial.IsActive
	return out
}
