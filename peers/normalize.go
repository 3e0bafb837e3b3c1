// Package peers implements the profile-similarity pipeline: profile text
// normalization, embedding generation, cosine-similarity ranking and the
// suggested-peers refresh job.
package peers

import "strings"

// Profile carries the free-text fields of a student profile that feed the
// embedding model. Empty strings mean the field is absent.
type Profile struct {
	ID            int
	UserID        int
	Name          string
	Major         string
	Hobbies       string
	Interests     string
	UniqueQuality string
	Story         string
	FavoriteMovie string
	FavoriteBook  string
}

// ProfileText flattens a profile into a single labeled text blob for the
// embedding model. Fields are emitted in a fixed order, one per line; absent
// fields are skipped entirely. Returns "" for a fully empty profile.
func ProfileText(p Profile) string {
	var parts []string

	if p.Name != "" {
		parts = append(parts, "Name: "+p.Name)
	}
	if p.Major != "" {
		parts = append(parts, "Major: "+p.Major)
	}
	if p.Hobbies != "" {
		parts = append(parts, "Hobbies: "+p.Hobbies)
	}
	if p.Interests != "" {
		parts = append(parts, "Interests: "+p.Interests)
	}
	if p.UniqueQuality != "" {
		parts = append(parts, "Unique Quality: "+p.UniqueQuality)
	}
	if p.Story != "" {
		parts = append(parts, "Story: "+p.Story)
	}
	if p.FavoriteMovie != "" {
		parts = append(parts, "Favorite Movie: "+p.FavoriteMovie)
	}
	if p.FavoriteBook != "" {
		parts = append(parts, "Favorite Book: "+p.FavoriteBook)
	}

	return strings.Join(parts, "\n")
}
