package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// resumeService talks to an external Reactive Resume instance. The service is
// optional: when it is unreachable the resume endpoints answer 503 and the
// rest of the app works normally.
type resumeService struct {
	baseURL string
	client  *http.Client
}

func newResumeService() *resumeService {
	baseURL := os.Getenv("RESUME_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3100/api"
	}
	return &resumeService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// resumeSecret is the signing key the resume service validates tokens with.
// Falls back to the app's own secret when the two share one.
func resumeSecret() []byte {
	if s := os.Getenv("RESUME_JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return jwtSecret
}

// resumeToken issues a token the resume service accepts. Longer expiry than
// the app token: the user may spend a while in the editor.
func resumeToken(userID int, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     email,
		"user_id": userID,
		"exp":     time.Now().Add(120 * time.Minute).Unix(),
	})
	return token.SignedString(resumeSecret())
}

// resumeProfile carries the profile fields that feed the resume payload.
type resumeProfile struct {
	Name          sql.NullString
	Major         sql.NullString
	GPA           sql.NullFloat64
	Hobbies       sql.NullString
	Country       sql.NullString
	StateProvince sql.NullString
	Story         sql.NullString
	Interests     sql.NullString
}

func loadResumeProfile(db *sql.DB, userID int) (*resumeProfile, error) {
	var p resumeProfile
	err := db.QueryRow(`
		SELECT name, major, gpa, hobbies, country, state_province, story, interests
		FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&p.Name, &p.Major, &p.GPA, &p.Hobbies, &p.Country,
		&p.StateProvince, &p.Story, &p.Interests)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func loadUserSkills(db *sql.DB, userID int) *UserSkills {
	var s UserSkills
	err := db.QueryRow(`
		SELECT creativity, leadership, digital_literacy, critical_thinking, problem_solving
		FROM user_skills WHERE user_id = $1
	`, userID).Scan(&s.Creativity, &s.Leadership, &s.DigitalLiteracy,
		&s.CriticalThinking, &s.ProblemSolving)
	if err != nil {
		return nil
	}
	return &s
}

// skillLevel converts a 0..5 rating into the level strings the resume
// template expects.
func skillLevel(rating float64) string {
	switch {
	case rating >= 4.0:
		return "Expert"
	case rating >= 3.0:
		return "Advanced"
	case rating >= 2.0:
		return "Intermediate"
	default:
		return "Beginner"
	}
}

type resumeSkill struct {
	Name     string   `json:"name"`
	Level    string   `json:"level"`
	Keywords []string `json:"keywords"`
}

type resumeInterest struct {
	Name string `json:"name"`
}

// buildResumePayload maps a profile plus skill ratings into the Reactive
// Resume document schema. Unrated skills and empty fields are left out.
func buildResumePayload(email string, p *resumeProfile, skills *UserSkills) map[string]interface{} {
	var interests []resumeInterest
	if p.Interests.Valid {
		for _, interest := range strings.Split(p.Interests.String, ",") {
			if v := strings.TrimSpace(interest); v != "" {
				interests = append(interests, resumeInterest{Name: v})
			}
		}
	}
	if interests == nil {
		interests = []resumeInterest{}
	}

	resumeSkills := []resumeSkill{}
	if skills != nil {
		for _, entry := range []struct {
			name   string
			rating *float64
		}{
			{"Creativity", skills.Creativity},
			{"Leadership", skills.Leadership},
			{"Digital Literacy", skills.DigitalLiteracy},
			{"Critical Thinking", skills.CriticalThinking},
			{"Problem Solving", skills.ProblemSolving},
		} {
			if entry.rating == nil {
				continue
			}
			resumeSkills = append(resumeSkills, resumeSkill{
				Name:     entry.name,
				Level:    skillLevel(*entry.rating),
				Keywords: []string{},
			})
		}
	}

	summary := "My professional summary"
	if p.Story.Valid && p.Story.String != "" {
		summary = p.Story.String
	}
	gpa := ""
	if p.GPA.Valid {
		gpa = strconv.FormatFloat(p.GPA.Float64, 'g', -1, 64)
	}

	return map[string]interface{}{
		"basics": map[string]interface{}{
			"name":  p.Name.String,
			"email": email,
			"location": map[string]string{
				"city":    "",
				"region":  p.StateProvince.String,
				"country": p.Country.String,
			},
			"summary": summary,
		},
		"education": []map[string]interface{}{
			{
				"institution": "",
				"area":        p.Major.String,
				"studyType":   "Bachelor's",
				"score":       gpa,
				"date":        map[string]string{"start": "", "end": ""},
			},
		},
		"skills":    resumeSkills,
		"interests": interests,
		"metadata": map[string]interface{}{
			"protected": false,
			"template":  "kakuna",
		},
	}
}

// GET /resume/token: issue an editor token for the resume service.
func resumeTokenHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		var email string
		if err := db.QueryRow("SELECT email FROM users WHERE id = $1", userID).Scan(&email); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		token, err := resumeToken(userID, email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			log.Println("Error generating resume token:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	})
}

// POST /resume/create: build the payload from the stored profile and push it
// to the resume service.
func resumeCreateHandler(db *sql.DB, svc *resumeService) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		var email string
		if err := db.QueryRow("SELECT email FROM users WHERE id = $1", userID).Scan(&email); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		profile, err := loadResumeProfile(db, userID)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error loading profile for resume:", err)
			return
		}

		payload := buildResumePayload(email, profile, loadUserSkills(db, userID))
		token, err := resumeToken(userID, email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}

		body, _ := json.Marshal(payload)
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
			svc.baseURL+"/resumes", bytes.NewReader(body))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "resume_error")
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := svc.client.Do(req)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "resume_unavailable")
			log.Println("Error reaching resume service:", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			writeError(w, http.StatusInternalServerError, "resume_error")
			log.Printf("Resume service answered %d on create", resp.StatusCode)
			return
		}

		var created map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			writeError(w, http.StatusInternalServerError, "resume_error")
			log.Println("Error decoding resume service response:", err)
			return
		}

		editURL := ""
		if id, ok := created["id"].(string); ok {
			editURL = fmt.Sprintf("resume/editor/%s", id)
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"resume":   created,
			"edit_url": editURL,
		})
	})
}

// GET /resume/list: fetch the user's resumes from the resume service.
func resumeListHandler(db *sql.DB, svc *resumeService) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		var email string
		if err := db.QueryRow("SELECT email FROM users WHERE id = $1", userID).Scan(&email); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		token, err := resumeToken(userID, email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token_generation_error")
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet,
			svc.baseURL+"/resumes", nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "resume_error")
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := svc.client.Do(req)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "resume_unavailable")
			log.Println("Error reaching resume service:", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			writeError(w, http.StatusInternalServerError, "resume_error")
			log.Printf("Resume service answered %d on list", resp.StatusCode)
			return
		}

		var resumes interface{}
		if err := json.NewDecoder(resp.Body).Decode(&resumes); err != nil {
			writeError(w, http.StatusInternalServerError, "resume_error")
			log.Println("Error decoding resume service response:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"resumes": resumes})
	})
}

// resumeDispatcher routes /resume/token, /resume/create and /resume/list.
func resumeDispatcher(db *sql.DB, svc *resumeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/resume/") {
		case "token":
			resumeTokenHandler(db).ServeHTTP(w, r)
		case "create":
			resumeCreateHandler(db, svc).ServeHTTP(w, r)
		case "list":
			resumeListHandler(db, svc).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}
