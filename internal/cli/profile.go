package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// detectContentType maps a filename extension to the upload content type.
func detectContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ShowProfile fetches and prints the profile.
func (a *App) ShowProfile(ctx context.Context) error {
	if err := a.profile.Fetch(ctx); err != nil {
		return err
	}

	prof, ok := a.profile.Profile()
	if !ok {
		printlnFn("No profile yet. Use 'editprofile' to create one.")
		return nil
	}

	printlnFn("Display name:", prof.DisplayName)
	printlnFn("Bio:         ", prof.Bio)
	printlnFn("Location:    ", prof.Location)
	if prof.EmergencyContact.Name != "" {
		printlnFn(fmt.Sprintf("Emergency:    %s (%s)", prof.EmergencyContact.Name, prof.EmergencyContact.Phone))
	}
	for k, v := range prof.Tags {
		printlnFn(fmt.Sprintf("  %s: %v", k, v))
	}
	if prof.ProfileImage != "" {
		if url, err := a.profile.ProfileImageURL(ctx); err == nil && url != "" {
			printlnFn("Image:       ", url)
		}
	}
	return nil
}

// EditProfile walks through the profile fields, skipping any left empty.
func (a *App) EditProfile(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Display name (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	if name != "" {
		if err := a.profile.SetDisplayName(ctx, name); err != nil {
			return err
		}
	}

	bio, err := getMultiline(a.reader, "Bio (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	if bio != "" {
		if err := a.profile.SetBio(ctx, bio); err != nil {
			return err
		}
	}

	location, err := getSimpleText(a.reader, "Location (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	if location != "" {
		if err := a.profile.SetLocation(ctx, location); err != nil {
			return err
		}
	}

	ecName, err := getSimpleText(a.reader, "Emergency contact name (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	if ecName != "" {
		ecPhone, err := getSimpleText(a.reader, "Emergency contact phone", os.Stdout)
		if err != nil {
			return err
		}
		if err := a.profile.SetEmergencyContact(ctx, ecName, ecPhone); err != nil {
			return err
		}
	}

	for _, tag := range []string{"gender", "age", "runningLevel", "runningPace", "personality"} {
		v, err := getSimpleText(a.reader, tag+" (empty to keep)", os.Stdout)
		if err != nil {
			return err
		}
		if v != "" {
			if err := a.profile.SetTag(ctx, tag, v); err != nil {
				return err
			}
		}
	}

	printlnFn("Profile updated")
	return nil
}

// UploadImage uploads a local image file and sets it as the profile image.
func (a *App) UploadImage(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	file, err := a.profile.UploadProfileImage(ctx, filepath.Base(path), detectContentType(path), f)
	if err != nil {
		return err
	}

	printlnFn("Profile image updated:", file)
	return nil
}
