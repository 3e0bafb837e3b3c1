package main

import (
	"database/sql"
	"strings"
	"testing"
)

func TestBuildMentorSystemPromptWithoutProfile(t *testing.T) {
	got := buildMentorSystemPrompt(nil)
	if got != mentorSystemPrompt {
		t.Error("nil profile must return the base prompt unchanged")
	}
	if strings.Contains(got, "User Profile Information") {
		t.Error("nil profile must not add a profile section")
	}
}

func TestBuildMentorSystemPromptWithProfile(t *testing.T) {
	p := &mentorProfile{
		Name:          sql.NullString{String: "Alice", Valid: true},
		Major:         sql.NullString{String: "Physics", Valid: true},
		Age:           sql.NullInt64{Int64: 21, Valid: true},
		GPA:           sql.NullFloat64{Float64: 3.7, Valid: true},
		FavoriteBook:  sql.NullString{String: "Dune", Valid: true},
		LearningStyle: sql.NullString{String: "visual", Valid: true},
	}
	got := buildMentorSystemPrompt(p)

	if !strings.HasPrefix(got, mentorSystemPrompt) {
		t.Error("profile prompt must start with the base prompt")
	}
	for _, want := range []string{
		"User Profile Information:",
		"- Name: Alice",
		"- Major: Physics",
		"- Age: 21",
		"- GPA: 3.7",
		"- Favorite Book: Dune",
		"- Learning Style: visual",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
	// Unset fields never appear.
	for _, absent := range []string{"- Hobbies:", "- Country:", "- Role Models:"} {
		if strings.Contains(got, absent) {
			t.Errorf("prompt must not contain %q for an unset field", absent)
		}
	}
}

func TestBuildMentorSystemPromptSkipsEmptyStrings(t *testing.T) {
	p := &mentorProfile{
		Name:  sql.NullString{String: "", Valid: true},
		Story: sql.NullString{String: "first-generation student", Valid: true},
	}
	got := buildMentorSystemPrompt(p)
	if strings.Contains(got, "- Name:") {
		t.Error("valid-but-empty strings must be skipped")
	}
	if !strings.Contains(got, "- Personal Story: first-generation student") {
		t.Error("expected the story line")
	}
}
