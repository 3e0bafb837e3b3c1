package main

import "time"

// SuggestedPeer is a ranked peer suggestion joined with the peer's profile.
type SuggestedPeer struct {
	UserID     int     `json:"user_id"`
	Name       string  `json:"name,omitempty"`
	Major      string  `json:"major,omitempty"`
	Year       *int    `json:"year,omitempty"`
	Similarity float64 `json:"similarity"`
	Hobbies    string  `json:"hobbies,omitempty"`
	Interests  string  `json:"interests,omitempty"`
}

// Message is a stored direct message between two users.
type Message struct {
	MessageID   int64     `json:"message_id"`
	SenderID    int       `json:"sender_id"`
	RecipientID int       `json:"recipient_id"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
}

// ConversationPreview summarizes one conversation for the sidebar listing.
type ConversationPreview struct {
	PeerID      int       `json:"peer_id"`
	PeerName    string    `json:"peer_name"`
	LastMessage string    `json:"last_message"`
	Timestamp   time.Time `json:"timestamp"`
}

// Occupation is one typed result from the occupation knowledge base.
type Occupation struct {
	ID              string   `json:"id"`
	Score           float64  `json:"score"`
	OasisCode       string   `json:"oasis_code"`
	Label           string   `json:"label"`
	LeadStatement   string   `json:"lead_statement,omitempty"`
	MainDuties      string   `json:"main_duties,omitempty"`
	Creativity      *float64 `json:"creativity,omitempty"`
	Leadership      *float64 `json:"leadership,omitempty"`
	DigitalLiteracy *float64 `json:"digital_literacy,omitempty"`
	CriticalThink   *float64 `json:"critical_thinking,omitempty"`
	ProblemSolving  *float64 `json:"problem_solving,omitempty"`
}

// SavedRecommendation is an occupation a user pinned to their space.
type SavedRecommendation struct {
	ID              int        `json:"id"`
	OasisCode       string     `json:"oasis_code"`
	Label           string     `json:"label"`
	Description     string     `json:"description,omitempty"`
	MainDuties      string     `json:"main_duties,omitempty"`
	RoleCreativity  *float64   `json:"role_creativity,omitempty"`
	RoleLeadership  *float64   `json:"role_leadership,omitempty"`
	RoleDigitalLit  *float64   `json:"role_digital_literacy,omitempty"`
	RoleCriticalTh  *float64   `json:"role_critical_thinking,omitempty"`
	RoleProblemSolv *float64   `json:"role_problem_solving,omitempty"`
	SavedAt         time.Time  `json:"saved_at"`
	Notes           []UserNote `json:"notes"`
}

// UserSkills holds the user's self-assessed skill ratings on a 0..5 scale.
// Nil means the skill has not been rated yet.
type UserSkills struct {
	Creativity       *float64 `json:"creativity,omitempty"`
	Leadership       *float64 `json:"leadership,omitempty"`
	DigitalLiteracy  *float64 `json:"digital_literacy,omitempty"`
	CriticalThinking *float64 `json:"critical_thinking,omitempty"`
	ProblemSolving   *float64 `json:"problem_solving,omitempty"`
}

// UserNote is a free-text note, optionally attached to a saved recommendation.
type UserNote struct {
	ID                    int       `json:"id"`
	SavedRecommendationID *int      `json:"saved_recommendation_id,omitempty"`
	Content               string    `json:"content"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
