package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// GET /profile/me
func profileMeHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		var name, sex, major, country, stateProvince, uniqueQuality, story sql.NullString
		var favoriteMovie, favoriteBook, favoriteCelebrities, learningStyle, hobbies, interests sql.NullString
		var age, year sql.NullInt64
		var gpa sql.NullFloat64
		var hasEmbedding bool

		err := db.QueryRow(`
			SELECT name, age, sex, major, year, gpa, hobbies, country, state_province,
			       unique_quality, story, favorite_movie, favorite_book, favorite_celebrities,
			       learning_style, interests, embedding IS NOT NULL
			FROM user_profiles WHERE user_id = $1
		`, userID).Scan(
			&name, &age, &sex, &major, &year, &gpa, &hobbies, &country, &stateProvince,
			&uniqueQuality, &story, &favoriteMovie, &favoriteBook, &favoriteCelebrities,
			&learningStyle, &interests, &hasEmbedding,
		)
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error fetching profile:", err)
			return
		}

		resp := map[string]interface{}{
			"user_id":       userID,
			"has_embedding": hasEmbedding,
		}
		addString(resp, "name", name)
		addInt(resp, "age", age)
		addString(resp, "sex", sex)
		addString(resp, "major", major)
		addInt(resp, "year", year)
		if gpa.Valid {
			resp["gpa"] = gpa.Float64
		}
		addString(resp, "hobbies", hobbies)
		addString(resp, "country", country)
		addString(resp, "state_province", stateProvince)
		addString(resp, "unique_quality", uniqueQuality)
		addString(resp, "story", story)
		addString(resp, "favorite_movie", favoriteMovie)
		addString(resp, "favorite_book", favoriteBook)
		addString(resp, "favorite_celebrities", favoriteCelebrities)
		addString(resp, "learning_style", learningStyle)
		addString(resp, "interests", interests)

		writeJSON(w, http.StatusOK, resp)
	})
}

func addString(m map[string]interface{}, key string, v sql.NullString) {
	if v.Valid {
		m[key] = v.String
	}
}

func addInt(m map[string]interface{}, key string, v sql.NullInt64) {
	if v.Valid {
		m[key] = v.Int64
	}
}

// PUT /profile/update: partial update: only fields present in the body are
// written, everything else keeps its stored value. The embedding column is
// never touched here; only the pipeline writes or clears it.
func profileUpdateHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		type ProfileUpdate struct {
			Name                *string  `json:"name"`
			Age                 *int     `json:"age"`
			Sex                 *string  `json:"sex"`
			Major               *string  `json:"major"`
			Year                *int     `json:"year"`
			GPA                 *float64 `json:"gpa"`
			Hobbies             *string  `json:"hobbies"`
			Country             *string  `json:"country"`
			StateProvince       *string  `json:"state_province"`
			UniqueQuality       *string  `json:"unique_quality"`
			Story               *string  `json:"story"`
			FavoriteMovie       *string  `json:"favorite_movie"`
			FavoriteBook        *string  `json:"favorite_book"`
			FavoriteCelebrities *string  `json:"favorite_celebrities"`
			LearningStyle       *string  `json:"learning_style"`
			Interests           *string  `json:"interests"`
		}
		var req ProfileUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		_, err := db.Exec(`
			INSERT INTO user_profiles (
				user_id, name, age, sex, major, year, gpa, hobbies, country, state_province,
				unique_quality, story, favorite_movie, favorite_book, favorite_celebrities,
				learning_style, interests
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT (user_id) DO UPDATE SET
				name = COALESCE(EXCLUDED.name, user_profiles.name),
				age = COALESCE(EXCLUDED.age, user_profiles.age),
				sex = COALESCE(EXCLUDED.sex, user_profiles.sex),
				major = COALESCE(EXCLUDED.major, user_profiles.major),
				year = COALESCE(EXCLUDED.year, user_profiles.year),
				gpa = COALESCE(EXCLUDED.gpa, user_profiles.gpa),
				hobbies = COALESCE(EXCLUDED.hobbies, user_profiles.hobbies),
				country = COALESCE(EXCLUDED.country, user_profiles.country),
				state_province = COALESCE(EXCLUDED.state_province, user_profiles.state_province),
				unique_quality = COALESCE(EXCLUDED.unique_quality, user_profiles.unique_quality),
				story = COALESCE(EXCLUDED.story, user_profiles.story),
				favorite_movie = COALESCE(EXCLUDED.favorite_movie, user_profiles.favorite_movie),
				favorite_book = COALESCE(EXCLUDED.favorite_book, user_profiles.favorite_book),
				favorite_celebrities = COALESCE(EXCLUDED.favorite_celebrities, user_profiles.favorite_celebrities),
				learning_style = COALESCE(EXCLUDED.learning_style, user_profiles.learning_style),
				interests = COALESCE(EXCLUDED.interests, user_profiles.interests),
				updated_at = NOW()
		`,
			userID, req.Name, req.Age, req.Sex, req.Major, req.Year, req.GPA, req.Hobbies,
			req.Country, req.StateProvince, req.UniqueQuality, req.Story, req.FavoriteMovie,
			req.FavoriteBook, req.FavoriteCelebrities, req.LearningStyle, req.Interests,
		)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "profile_save_error")
			log.Println("Error saving profile:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// GET /users/{id}/profile: the public subset of another user's profile.
func userProfileHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "users" || parts[2] != "profile" {
			http.NotFound(w, r)
			return
		}
		targetID, err := strconv.Atoi(parts[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}

		var name, major, hobbies, interests sql.NullString
		var year sql.NullInt64
		err = db.QueryRow(`
			SELECT name, major, year, hobbies, interests
			FROM user_profiles WHERE user_id = $1
		`, targetID).Scan(&name, &major, &year, &hobbies, &interests)
		if err != nil {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}

		resp := map[string]interface{}{"user_id": targetID}
		addString(resp, "name", name)
		addString(resp, "major", major)
		addInt(resp, "year", year)
		addString(resp, "hobbies", hobbies)
		addString(resp, "interests", interests)
		writeJSON(w, http.StatusOK, resp)
	})
}
