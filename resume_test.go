package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSkillLevel(t *testing.T) {
	tests := []struct {
		rating float64
		want   string
	}{
		{5.0, "Expert"},
		{4.0, "Expert"},
		{3.5, "Advanced"},
		{3.0, "Advanced"},
		{2.0, "Intermediate"},
		{1.0, "Beginner"},
		{0.0, "Beginner"},
	}
	for _, tt := range tests {
		if got := skillLevel(tt.rating); got != tt.want {
			t.Errorf("skillLevel(%v): expected %q, got %q", tt.rating, tt.want, got)
		}
	}
}

func TestBuildResumePayload(t *testing.T) {
	profile := &resumeProfile{
		Name:          sql.NullString{String: "Alice", Valid: true},
		Major:         sql.NullString{String: "Physics", Valid: true},
		GPA:           sql.NullFloat64{Float64: 3.8, Valid: true},
		Country:       sql.NullString{String: "Canada", Valid: true},
		StateProvince: sql.NullString{String: "Quebec", Valid: true},
		Story:         sql.NullString{String: "transferred after one year", Valid: true},
		Interests:     sql.NullString{String: "quantum computing, chess , ", Valid: true},
	}
	skills := &UserSkills{
		Creativity:     ptrFloat(4.2),
		ProblemSolving: ptrFloat(2.5),
	}

	payload := buildResumePayload("alice@example.com", profile, skills)

	basics := payload["basics"].(map[string]interface{})
	if basics["name"] != "Alice" || basics["email"] != "alice@example.com" {
		t.Errorf("unexpected basics: %v", basics)
	}
	if basics["summary"] != "transferred after one year" {
		t.Errorf("expected the story as summary, got %v", basics["summary"])
	}
	location := basics["location"].(map[string]string)
	if location["region"] != "Quebec" || location["country"] != "Canada" {
		t.Errorf("unexpected location: %v", location)
	}

	education := payload["education"].([]map[string]interface{})
	if len(education) != 1 || education[0]["area"] != "Physics" || education[0]["score"] != "3.8" {
		t.Errorf("unexpected education: %v", education)
	}

	resumeSkills := payload["skills"].([]resumeSkill)
	if len(resumeSkills) != 2 {
		t.Fatalf("expected 2 rated skills, got %d", len(resumeSkills))
	}
	if resumeSkills[0].Name != "Creativity" || resumeSkills[0].Level != "Expert" {
		t.Errorf("unexpected first skill: %+v", resumeSkills[0])
	}
	if resumeSkills[1].Name != "Problem Solving" || resumeSkills[1].Level != "Intermediate" {
		t.Errorf("unexpected second skill: %+v", resumeSkills[1])
	}

	interests := payload["interests"].([]resumeInterest)
	if len(interests) != 2 || interests[0].Name != "quantum computing" || interests[1].Name != "chess" {
		t.Errorf("interests must be split and trimmed, got %v", interests)
	}
}

func TestBuildResumePayloadEmptyProfile(t *testing.T) {
	payload := buildResumePayload("bob@example.com", &resumeProfile{}, nil)

	basics := payload["basics"].(map[string]interface{})
	if basics["summary"] != "My professional summary" {
		t.Errorf("expected the default summary, got %v", basics["summary"])
	}
	if len(payload["skills"].([]resumeSkill)) != 0 {
		t.Error("no skills record must yield an empty skills list")
	}
	if len(payload["interests"].([]resumeInterest)) != 0 {
		t.Error("no interests must yield an empty interests list")
	}
	education := payload["education"].([]map[string]interface{})
	if education[0]["score"] != "" {
		t.Errorf("missing GPA must yield an empty score, got %v", education[0]["score"])
	}
}

func TestResumeToken(t *testing.T) {
	token, err := resumeToken(7, "alice@example.com")
	if err != nil {
		t.Fatalf("resumeToken failed: %v", err)
	}
	// The resume secret falls back to the app secret, so the app parser
	// accepts it and recovers the user id.
	id, ok := parseUserIDFromJWT(token)
	if !ok || id != 7 {
		t.Errorf("expected user 7, got (%d, %v)", id, ok)
	}
}

// ============================================================================
// RESUME TEST SUITE (against a stub resume service)
// ============================================================================

func TestResumeSuite(t *testing.T) {
	requireDB(t)

	user := createTestUser(t, "resume_test@example.com", "testpass123")
	defer cleanupTestData(user.Email)

	_, err := db.Exec(`
		UPDATE user_profiles SET name = 'Resa', major = 'Design', interests = 'typography'
		WHERE user_id = $1
	`, user.ID)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO user_skills (user_id, creativity) VALUES ($1, 4.5)
		ON CONFLICT (user_id) DO UPDATE SET creativity = 4.5
	`, user.ID)
	if err != nil {
		t.Fatalf("skills seed failed: %v", err)
	}

	var received map[string]interface{}
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&received)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"id": "r-123"})
		case http.MethodGet:
			json.NewEncoder(w).Encode([]map[string]string{{"id": "r-123"}})
		}
	}))
	defer stub.Close()

	svc := &resumeService{baseURL: stub.URL, client: stub.Client()}

	t.Run("Token", func(t *testing.T) {
		w := httptest.NewRecorder()
		resumeTokenHandler(db).ServeHTTP(w, authedRequest(t, http.MethodGet, "/resume/token", nil, user))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var resp map[string]string
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["token"] == "" {
			t.Error("expected a token in the response")
		}
	})

	t.Run("Create", func(t *testing.T) {
		w := httptest.NewRecorder()
		resumeCreateHandler(db, svc).ServeHTTP(w, authedRequest(t, http.MethodPost, "/resume/create", nil, user))

		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}
		var resp map[string]interface{}
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["edit_url"] != "resume/editor/r-123" {
			t.Errorf("unexpected edit_url: %v", resp["edit_url"])
		}

		// The stub saw the mapped profile.
		basics, _ := received["basics"].(map[string]interface{})
		if basics == nil || basics["name"] != "Resa" {
			t.Errorf("expected the profile name in the pushed payload, got %v", received)
		}
		skills, _ := received["skills"].([]interface{})
		if len(skills) != 1 {
			t.Errorf("expected 1 rated skill in the payload, got %v", received["skills"])
		}
	})

	t.Run("List", func(t *testing.T) {
		w := httptest.NewRecorder()
		resumeListHandler(db, svc).ServeHTTP(w, authedRequest(t, http.MethodGet, "/resume/list", nil, user))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var resp map[string]interface{}
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["resumes"] == nil {
			t.Error("expected a resumes list")
		}
	})

	t.Run("Service Down", func(t *testing.T) {
		down := &resumeService{baseURL: "http://127.0.0.1:1", client: http.DefaultClient}
		w := httptest.NewRecorder()
		resumeListHandler(db, down).ServeHTTP(w, authedRequest(t, http.MethodGet, "/resume/list", nil, user))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
	})
}
