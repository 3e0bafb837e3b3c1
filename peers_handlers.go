package main

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
)

// GET /peers/suggested?limit=N: the ranked suggestions computed by the
// offline pipeline, joined with each peer's profile. Read-only: this path
// never writes suggested_peers.
func suggestedPeersHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		limit := 5
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 20 {
				writeError(w, http.StatusBadRequest, "invalid_limit")
				return
			}
			limit = n
		}

		rows, err := db.Query(`
			SELECT sp.suggested_id, sp.similarity,
			       COALESCE(up.name, ''), COALESCE(up.major, ''), up.year,
			       COALESCE(up.hobbies, ''), COALESCE(up.interests, '')
			FROM suggested_peers sp
			JOIN user_profiles up ON up.user_id = sp.suggested_id
			WHERE sp.user_id = $1
			ORDER BY sp.similarity DESC
			LIMIT $2
		`, userID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error getting suggested peers:", err)
			return
		}
		defer rows.Close()

		peers := make([]SuggestedPeer, 0, limit)
		for rows.Next() {
			var p SuggestedPeer
			var year sql.NullInt64
			if err := rows.Scan(&p.UserID, &p.Similarity, &p.Name, &p.Major, &year, &p.Hobbies, &p.Interests); err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			if year.Valid {
				y := int(year.Int64)
				p.Year = &y
			}
			peers = append(peers, p)
		}
		if err := rows.Err(); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		if len(peers) == 0 {
			log.Printf("No suggested peers found for user %d", userID)
		}
		writeJSON(w, http.StatusOK, peers)
	})
}
