package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// POST /space/recommendations: pin an occupation to the user's space.
// Saving the same oasis_code twice is a client error.
func createRecommendationHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		type RecommendationRequest struct {
			OasisCode       string   `json:"oasis_code"`
			Label           string   `json:"label"`
			Description     string   `json:"description"`
			MainDuties      string   `json:"main_duties"`
			RoleCreativity  *float64 `json:"role_creativity"`
			RoleLeadership  *float64 `json:"role_leadership"`
			RoleDigitalLit  *float64 `json:"role_digital_literacy"`
			RoleCriticalTh  *float64 `json:"role_critical_thinking"`
			RoleProblemSolv *float64 `json:"role_problem_solving"`
		}
		var req RecommendationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if strings.TrimSpace(req.OasisCode) == "" || strings.TrimSpace(req.Label) == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		rec := SavedRecommendation{
			OasisCode:       req.OasisCode,
			Label:           req.Label,
			Description:     req.Description,
			MainDuties:      req.MainDuties,
			RoleCreativity:  req.RoleCreativity,
			RoleLeadership:  req.RoleLeadership,
			RoleDigitalLit:  req.RoleDigitalLit,
			RoleCriticalTh:  req.RoleCriticalTh,
			RoleProblemSolv: req.RoleProblemSolv,
			Notes:           []UserNote{},
		}
		err := db.QueryRow(`
			INSERT INTO saved_recommendations (
				user_id, oasis_code, label, description, main_duties,
				role_creativity, role_leadership, role_digital_literacy,
				role_critical_thinking, role_problem_solving
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, saved_at
		`, userID, req.OasisCode, req.Label, req.Description, req.MainDuties,
			req.RoleCreativity, req.RoleLeadership, req.RoleDigitalLit,
			req.RoleCriticalTh, req.RoleProblemSolv,
		).Scan(&rec.ID, &rec.SavedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				writeError(w, http.StatusBadRequest, "already_saved")
				return
			}
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error saving recommendation:", err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	})
}

// GET /space/recommendations: all saved recommendations with their notes.
func listRecommendationsHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		rows, err := db.Query(`
			SELECT id, oasis_code, label, COALESCE(description, ''), COALESCE(main_duties, ''),
			       role_creativity, role_leadership, role_digital_literacy,
			       role_critical_thinking, role_problem_solving, saved_at
			FROM saved_recommendations
			WHERE user_id = $1
			ORDER BY saved_at DESC
		`, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error listing recommendations:", err)
			return
		}
		defer rows.Close()

		recs := []SavedRecommendation{}
		for rows.Next() {
			var rec SavedRecommendation
			if err := rows.Scan(&rec.ID, &rec.OasisCode, &rec.Label, &rec.Description,
				&rec.MainDuties, &rec.RoleCreativity, &rec.RoleLeadership, &rec.RoleDigitalLit,
				&rec.RoleCriticalTh, &rec.RoleProblemSolv, &rec.SavedAt); err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			rec.Notes = []UserNote{}
			recs = append(recs, rec)
		}
		if err := rows.Err(); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		// Attach notes per recommendation after the outer result set is closed.
		for i := range recs {
			notes, err := loadNotes(db, userID, &recs[i].ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				log.Println("Error loading notes:", err)
				return
			}
			recs[i].Notes = notes
		}
		writeJSON(w, http.StatusOK, recs)
	})
}

// DELETE /space/recommendations/{id}: notes attached to it go with it.
func deleteRecommendationHandler(db *sql.DB, recID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		res, err := db.Exec(
			"DELETE FROM saved_recommendations WHERE id = $1 AND user_id = $2",
			recID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error deleting recommendation:", err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, "recommendation_not_found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func loadNotes(db *sql.DB, userID int, recID *int) ([]UserNote, error) {
	var rows *sql.Rows
	var err error
	if recID != nil {
		rows, err = db.Query(`
			SELECT id, saved_recommendation_id, content, created_at, updated_at
			FROM user_notes WHERE user_id = $1 AND saved_recommendation_id = $2
			ORDER BY created_at
		`, userID, *recID)
	} else {
		rows, err = db.Query(`
			SELECT id, saved_recommendation_id, content, created_at, updated_at
			FROM user_notes WHERE user_id = $1
			ORDER BY created_at
		`, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []UserNote{}
	for rows.Next() {
		var n UserNote
		var rid sql.NullInt64
		if err := rows.Scan(&n.ID, &rid, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		if rid.Valid {
			v := int(rid.Int64)
			n.SavedRecommendationID = &v
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// POST /space/notes: create a note, optionally attached to a saved
// recommendation the user owns.
func createNoteHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		type NoteRequest struct {
			SavedRecommendationID *int   `json:"saved_recommendation_id"`
			Content               string `json:"content"`
		}
		var req NoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "empty_content")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		if req.SavedRecommendationID != nil {
			var exists bool
			err := db.QueryRow(
				"SELECT EXISTS (SELECT 1 FROM saved_recommendations WHERE id = $1 AND user_id = $2)",
				*req.SavedRecommendationID, userID).Scan(&exists)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			if !exists {
				writeError(w, http.StatusNotFound, "recommendation_not_found")
				return
			}
		}

		n := UserNote{SavedRecommendationID: req.SavedRecommendationID, Content: req.Content}
		err := db.QueryRow(`
			INSERT INTO user_notes (user_id, saved_recommendation_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`, userID, req.SavedRecommendationID, req.Content).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error creating note:", err)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	})
}

// GET /space/notes?saved_recommendation_id=N
func listNotesHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		var recID *int
		if v := r.URL.Query().Get("saved_recommendation_id"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_recommendation_id")
				return
			}
			recID = &n
		}

		notes, err := loadNotes(db, userID, recID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error listing notes:", err)
			return
		}
		writeJSON(w, http.StatusOK, notes)
	})
}

// PUT /space/notes/{id}
func updateNoteHandler(db *sql.DB, noteID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		type NoteUpdate struct {
			Content string `json:"content"`
		}
		var req NoteUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "empty_content")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		var n UserNote
		var rid sql.NullInt64
		err := db.QueryRow(`
			UPDATE user_notes SET content = $1, updated_at = NOW()
			WHERE id = $2 AND user_id = $3
			RETURNING id, saved_recommendation_id, content, created_at, updated_at
		`, req.Content, noteID, userID).Scan(&n.ID, &rid, &n.Content, &n.CreatedAt, &n.UpdatedAt)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "note_not_found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error updating note:", err)
			return
		}
		if rid.Valid {
			v := int(rid.Int64)
			n.SavedRecommendationID = &v
		}
		writeJSON(w, http.StatusOK, n)
	})
}

// DELETE /space/notes/{id}
func deleteNoteHandler(db *sql.DB, noteID int) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		res, err := db.Exec("DELETE FROM user_notes WHERE id = $1 AND user_id = $2", noteID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error deleting note:", err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, "note_not_found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// PUT /space/skills: upsert the user's self-assessed skill ratings. Only the
// ratings present in the body change; the response carries the stored set.
func updateSkillsHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		var req UserSkills
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		var skills UserSkills
		err := db.QueryRow(`
			INSERT INTO user_skills (user_id, creativity, leadership, digital_literacy,
				critical_thinking, problem_solving)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id) DO UPDATE SET
				creativity = COALESCE(EXCLUDED.creativity, user_skills.creativity),
				leadership = COALESCE(EXCLUDED.leadership, user_skills.leadership),
				digital_literacy = COALESCE(EXCLUDED.digital_literacy, user_skills.digital_literacy),
				critical_thinking = COALESCE(EXCLUDED.critical_thinking, user_skills.critical_thinking),
				problem_solving = COALESCE(EXCLUDED.problem_solving, user_skills.problem_solving),
				last_updated = NOW()
			RETURNING creativity, leadership, digital_literacy, critical_thinking, problem_solving
		`, userID, req.Creativity, req.Leadership, req.DigitalLiteracy,
			req.CriticalThinking, req.ProblemSolving,
		).Scan(&skills.Creativity, &skills.Leadership, &skills.DigitalLiteracy,
			&skills.CriticalThinking, &skills.ProblemSolving)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error updating skills:", err)
			return
		}
		writeJSON(w, http.StatusOK, skills)
	})
}

// spaceDispatcher routes /space/recommendations[/{id}], /space/notes[/{id}]
// and /space/skills.
func spaceDispatcher(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(parts) == 2 && parts[1] == "skills":
			updateSkillsHandler(db).ServeHTTP(w, r)
		case len(parts) == 2 && parts[1] == "recommendations":
			switch r.Method {
			case http.MethodPost:
				createRecommendationHandler(db).ServeHTTP(w, r)
			case http.MethodGet:
				listRecommendationsHandler(db).ServeHTTP(w, r)
			default:
				writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			}
		case len(parts) == 3 && parts[1] == "recommendations":
			id, err := strconv.Atoi(parts[2])
			if err != nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				writeError(w, http.StatusMethodNotAllowed, "invalid_method")
				return
			}
			deleteRecommendationHandler(db, id).ServeHTTP(w, r)
		case len(parts) == 2 && parts[1] == "notes":
			switch r.Method {
			case http.MethodPost:
				createNoteHandler(db).ServeHTTP(w, r)
			case http.MethodGet:
				listNotesHandler(db).ServeHTTP(w, r)
			default:
				writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			}
		case len(parts) == 3 && parts[1] == "notes":
			id, err := strconv.Atoi(parts[2])
			if err != nil {
				http.NotFound(w, r)
				return
			}
			switch r.Method {
			case http.MethodPut:
				updateNoteHandler(db, id).ServeHTTP(w, r)
			case http.MethodDelete:
				deleteNoteHandler(db, id).ServeHTTP(w, r)
			default:
				writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			}
		default:
			http.NotFound(w, r)
		}
	}
}
