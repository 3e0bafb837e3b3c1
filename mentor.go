package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const mentorSystemPrompt = `You are a Socratic mentor engaging the student in a "game" of problem-solving. Your role is to:

1. Ask clarifying, guiding questions to help the student reflect, articulate their thoughts, and explore what truly motivates them.
2. Encourage them to discover their own goals and values through questioning and gentle nudges, rather than providing direct answers upfront.
3. Ensure the student thinks deeply and reflects on their options.
4. Help them progress toward self-defined objectives while feeling supported and validated.
5. Use the Socratic method: ask open-ended questions that challenge assumptions and promote critical thinking.
6. Acknowledge and validate their thoughts and feelings while gently pushing them to explore deeper.
7. When they express a goal or interest, ask them to elaborate on why it matters to them.
8. Help them identify patterns in their thinking and interests.
9. Use their personal preferences (favorite movies, books, celebrities) to create relatable examples and analogies.
10. Consider their learning style when suggesting approaches or activities.

Remember: Your goal is not to give answers, but to help them discover their own path through thoughtful questioning.`

// Keep at most this many conversation rows per user in mentor_messages.
const mentorHistoryLimit = 10

// mentorProfile holds the profile fields woven into the system prompt.
type mentorProfile struct {
	Name, Sex, Major                   sql.NullString
	Age, Year                          sql.NullInt64
	GPA                                sql.NullFloat64
	Hobbies, Country, StateProvince    sql.NullString
	UniqueQuality, Story               sql.NullString
	FavoriteMovie, FavoriteBook        sql.NullString
	FavoriteCelebrities, LearningStyle sql.NullString
	Interests                          sql.NullString
}

// buildMentorSystemPrompt appends the user's profile, when present, to the
// base mentor prompt so the model can personalize its questions.
func buildMentorSystemPrompt(p *mentorProfile) string {
	if p == nil {
		return mentorSystemPrompt
	}
	var b strings.Builder
	b.WriteString(mentorSystemPrompt)
	b.WriteString("\n\nUser Profile Information:\n")

	writeStr := func(label string, v sql.NullString) {
		if v.Valid && v.String != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, v.String)
		}
	}
	writeStr("Name", p.Name)
	if p.Age.Valid {
		fmt.Fprintf(&b, "- Age: %d\n", p.Age.Int64)
	}
	writeStr("Sex", p.Sex)
	writeStr("Major", p.Major)
	if p.Year.Valid {
		fmt.Fprintf(&b, "- Year: %d\n", p.Year.Int64)
	}
	if p.GPA.Valid {
		fmt.Fprintf(&b, "- GPA: %g\n", p.GPA.Float64)
	}
	writeStr("Hobbies", p.Hobbies)
	writeStr("Country", p.Country)
	writeStr("State/Province", p.StateProvince)
	writeStr("Unique Quality", p.UniqueQuality)
	writeStr("Personal Story", p.Story)
	writeStr("Favorite Movie", p.FavoriteMovie)
	writeStr("Favorite Book", p.FavoriteBook)
	writeStr("Role Models", p.FavoriteCelebrities)
	writeStr("Learning Style", p.LearningStyle)
	writeStr("Interests", p.Interests)
	return b.String()
}

func loadMentorProfile(db *sql.DB, userID int) *mentorProfile {
	var p mentorProfile
	err := db.QueryRow(`
		SELECT name, age, sex, major, year, gpa, hobbies, country, state_province,
		       unique_quality, story, favorite_movie, favorite_book, favorite_celebrities,
		       learning_style, interests
		FROM user_profiles WHERE user_id = $1
	`, userID).Scan(
		&p.Name, &p.Age, &p.Sex, &p.Major, &p.Year, &p.GPA, &p.Hobbies, &p.Country,
		&p.StateProvince, &p.UniqueQuality, &p.Story, &p.FavoriteMovie, &p.FavoriteBook,
		&p.FavoriteCelebrities, &p.LearningStyle, &p.Interests,
	)
	if err != nil {
		return nil
	}
	return &p
}

// loadMentorHistory returns the stored conversation in chronological order.
func loadMentorHistory(db *sql.DB, userID int) ([]llms.MessageContent, error) {
	rows, err := db.Query(`
		SELECT role, content FROM (
		    SELECT id, role, content FROM mentor_messages
		    WHERE user_id = $1
		    ORDER BY id DESC
		    LIMIT $2
		) h ORDER BY id ASC
	`, userID, mentorHistoryLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []llms.MessageContent
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		msgType := llms.ChatMessageTypeHuman
		if role == "assistant" {
			msgType = llms.ChatMessageTypeAI
		}
		history = append(history, llms.TextParts(msgType, content))
	}
	return history, rows.Err()
}

// POST /mentor/send: one turn of the Socratic mentor conversation.
func mentorSendHandler(db *sql.DB, model llms.Model) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		if model == nil {
			writeError(w, http.StatusServiceUnavailable, "mentor_unavailable")
			return
		}

		type MentorRequest struct {
			Text string `json:"text"`
		}
		var req MentorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		text := strings.TrimSpace(req.Text)
		if text == "" {
			writeError(w, http.StatusBadRequest, "empty_message")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		history, err := loadMentorHistory(db, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error loading mentor history:", err)
			return
		}

		messages := make([]llms.MessageContent, 0, len(history)+2)
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem,
			buildMentorSystemPrompt(loadMentorProfile(db, userID))))
		messages = append(messages, history...)
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, text))

		resp, err := model.GenerateContent(r.Context(), messages,
			llms.WithTemperature(0.8),
			llms.WithMaxTokens(256),
		)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "mentor_error")
			log.Println("Error calling mentor model:", err)
			return
		}
		if len(resp.Choices) == 0 {
			writeError(w, http.StatusInternalServerError, "mentor_error")
			return
		}
		answer := resp.Choices[0].Content

		// Store both turns and trim old rows so the history stays bounded.
		err = withTx(r.Context(), db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(
				"INSERT INTO mentor_messages (user_id, role, content) VALUES ($1, 'user', $2)",
				userID, text); err != nil {
				return err
			}
			if _, err := tx.Exec(
				"INSERT INTO mentor_messages (user_id, role, content) VALUES ($1, 'assistant', $2)",
				userID, answer); err != nil {
				return err
			}
			_, err := tx.Exec(`
				DELETE FROM mentor_messages
				WHERE user_id = $1 AND id NOT IN (
				    SELECT id FROM mentor_messages
				    WHERE user_id = $1
				    ORDER BY id DESC
				    LIMIT $2
				)
			`, userID, mentorHistoryLimit)
			return err
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error storing mentor history:", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"text":    answer,
			"is_user": false,
		})
	})
}

// POST /mentor/clear: forget the stored conversation.
func mentorClearHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		if _, err := db.Exec("DELETE FROM mentor_messages WHERE user_id = $1", userID); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error clearing mentor history:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Conversation history cleared successfully",
		})
	})
}

// mentorDispatcher routes /mentor/send and /mentor/clear.
func mentorDispatcher(db *sql.DB, model llms.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/mentor/") {
		case "send":
			mentorSendHandler(db, model).ServeHTTP(w, r)
		case "clear":
			mentorClearHandler(db).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}
