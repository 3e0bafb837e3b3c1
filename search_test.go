package main

import (
	"testing"
)

func TestParseOccupationText(t *testing.T) {
	text := "Occupation: Data Scientist. Description: Analyzes data to extract insight. " +
		"Main duties: Build models; communicate findings. Creativity: 3.5. Leadership: 2. " +
		"Digital Literacy: 4.8. Critical Thinking: 4.1. Problem Solving: 4.9"

	occ := parseOccupationText(text)

	if occ.Label != "Data Scientist" {
		t.Errorf("expected label 'Data Scientist', got %q", occ.Label)
	}
	if occ.LeadStatement != "Analyzes data to extract insight" {
		t.Errorf("unexpected lead statement: %q", occ.LeadStatement)
	}
	if occ.MainDuties != "Build models; communicate findings" {
		t.Errorf("unexpected main duties: %q", occ.MainDuties)
	}
	checks := []struct {
		name string
		got  *float64
		want float64
	}{
		{"creativity", occ.Creativity, 3.5},
		{"leadership", occ.Leadership, 2},
		{"digital literacy", occ.DigitalLiteracy, 4.8},
		{"critical thinking", occ.CriticalThink, 4.1},
		{"problem solving", occ.ProblemSolving, 4.9},
	}
	for _, c := range checks {
		if c.got == nil {
			t.Errorf("%s: expected %v, got nil", c.name, c.want)
			continue
		}
		if *c.got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, *c.got)
		}
	}
}

func TestParseOccupationTextPartial(t *testing.T) {
	occ := parseOccupationText("Occupation: Welder. Creativity: not rated")

	if occ.Label != "Welder" {
		t.Errorf("expected label 'Welder', got %q", occ.Label)
	}
	if occ.Creativity != nil {
		t.Errorf("malformed rating must stay nil, got %v", *occ.Creativity)
	}
	if occ.LeadStatement != "" || occ.MainDuties != "" {
		t.Error("absent fields must stay empty")
	}
}

func TestParseOccupationTextIgnoresUnknownSentences(t *testing.T) {
	occ := parseOccupationText("Something else entirely. Occupation: Chef. Footer text")
	if occ.Label != "Chef" {
		t.Errorf("expected label 'Chef', got %q", occ.Label)
	}
}

func TestParseOccupationTextEmpty(t *testing.T) {
	occ := parseOccupationText("")
	if occ.Label != "" || occ.Creativity != nil {
		t.Errorf("empty text must produce a zero occupation, got %+v", occ)
	}
}

func TestTryParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"4.2", ptrFloat(4.2)},
		{" 3 ", ptrFloat(3)},
		{"", nil},
		{"n/a", nil},
	}
	for _, tt := range tests {
		got := tryParseFloat(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("tryParseFloat(%q): expected nil, got %v", tt.in, *got)
		case tt.want != nil && got == nil:
			t.Errorf("tryParseFloat(%q): expected %v, got nil", tt.in, *tt.want)
		case tt.want != nil && *got != *tt.want:
			t.Errorf("tryParseFloat(%q): expected %v, got %v", tt.in, *tt.want, *got)
		}
	}
}

func TestOasisCodeFromID(t *testing.T) {
	if got := oasisCodeFromID("oasis-1234-0"); got != "1234" {
		t.Errorf("expected '1234', got %q", got)
	}
	if got := oasisCodeFromID("noseparator"); got != "" {
		t.Errorf("expected empty code, got %q", got)
	}
}

func ptrFloat(f float64) *float64 { return &f }
