// Package store manages practice profiles: named, isolated SQLite
// databases under a shared root.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Profile ID validation errors.
var (
	// ErrInvalidProfileID indicates the profile ID format is invalid.
	ErrInvalidProfileID = errors.New("invalid profile ID: must be lowercase alphanumeric with hyphens, 1-3 path segments")

	// ErrReservedProfileID indicates the profile ID is reserved and cannot be deleted.
	ErrReservedProfileID = errors.New("reserved profile ID")
)

// DefaultProfile is used when nothing else selects a profile.
const DefaultProfile = "default"

// DBFileName is the database file inside each profile directory.
const DBFileName = "praxis.db"

// profileIDRegex: 1-3 segments of [a-z0-9-], each 1-64 chars, no leading
// or trailing hyphen.
var profileIDRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?(\/[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?){0,2}$`)

// ValidateProfileID returns ErrInvalidProfileID for malformed IDs.
func ValidateProfileID(id string) error {
	if id == "" || len(id) > 194 {
		return ErrInvalidProfileID
	}
	if strings.Contains(id, "--") {
		return ErrInvalidProfileID
	}
	if !profileIDRegex.MatchString(id) {
		return ErrInvalidProfileID
	}
	return nil
}

// IsReservedProfileID reports whether id names the default profile.
func IsReservedProfileID(id string) bool {
	return id == DefaultProfile
}

// ResolveProfile picks the profile: explicit > PRAXIS_PROFILE > "default".
func ResolveProfile(explicit string) (string, error) {
	if explicit != "" {
		if err := ValidateProfileID(explicit); err != nil {
			return "", fmt.Errorf("invalid profile %q: %w", explicit, err)
		}
		return explicit, nil
	}

	if env := os.Getenv("PRAXIS_PROFILE"); env != "" {
		if err := ValidateProfileID(env); err != nil {
			return "", fmt.Errorf("invalid PRAXIS_PROFILE %q: %w", env, err)
		}
		return env, nil
	}

	return DefaultProfile, nil
}

// DefaultRoot returns ~/.praxis, or ./.praxis without a home directory.
func DefaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".praxis")
	}
	return filepath.Join(home, ".praxis")
}

// ProfilesDir returns the directory holding every profile under root.
func ProfilesDir(root string) string {
	return filepath.Join(root, "profiles")
}

// EncodeProfilePath maps "course/anna" to the directory name "course__anna".
func EncodeProfilePath(id string) string {
	return strings.ReplaceAll(id, "/", "__")
}

// DecodeProfilePath reverses EncodeProfilePath.
func DecodeProfilePath(encoded string) string {
	return strings.ReplaceAll(encoded, "__", "/")
}

// ProfileDBPath returns root/profiles/<encoded id>/praxis.db.
func ProfileDBPath(root, id string) string {
	return filepath.Join(ProfilesDir(root), EncodeProfilePath(id), DBFileName)
}

// ListProfiles returns the IDs of profiles under root that have a database,
// sorted. A missing root yields an empty list.
func ListProfiles(root string) ([]string, error) {
	entries, err := os.ReadDir(ProfilesDir(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(ProfilesDir(root), e.Name(), DBFileName)); err != nil {
			continue
		}
		id := DecodeProfilePath(e.Name())
		if ValidateProfileID(id) == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteProfile removes a profile directory. The default profile cannot be deleted.
func DeleteProfile(root, id string) error {
	if err := ValidateProfileID(id); err != nil {
		return err
	}
	if IsReservedProfileID(id) {
		return ErrReservedProfileID
	}
	dir := filepath.Join(ProfilesDir(root), EncodeProfilePath(id))
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("profile %q: %w", id, err)
	}
	return os.RemoveAll(dir)
}
