package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

const maxMessageLength = 5000

// POST /messages: send a direct message. The stored row is also relayed to
// any WebSocket sessions of both users.
func createMessageHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		type MessageRequest struct {
			RecipientID int    `json:"recipient_id"`
			Body        string `json:"body"`
		}
		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}

		senderID := r.Context().Value(userIDKey).(int)
		body := strings.TrimSpace(req.Body)
		if body == "" || len(body) > maxMessageLength {
			writeError(w, http.StatusBadRequest, "invalid_body")
			return
		}
		if req.RecipientID == senderID {
			writeError(w, http.StatusBadRequest, "invalid_recipient")
			return
		}
		exists, err := userExists(db, req.RecipientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		if !exists {
			writeError(w, http.StatusBadRequest, "invalid_recipient")
			return
		}

		msg := Message{SenderID: senderID, RecipientID: req.RecipientID, Body: body}
		err = db.QueryRow(`
			INSERT INTO messages (sender_id, recipient_id, body)
			VALUES ($1, $2, $3)
			RETURNING message_id, timestamp
		`, senderID, req.RecipientID, body).Scan(&msg.MessageID, &msg.Timestamp)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "message_error")
			log.Println("Error sending message:", err)
			return
		}

		// Live relay; delivery is best-effort, the row is already stored.
		messageHub.sendToUser(req.RecipientID, ServerEvent{Type: "message", From: senderID, Data: msg})
		messageHub.sendToUser(senderID, ServerEvent{Type: "message", From: senderID, Data: msg})

		writeJSON(w, http.StatusCreated, msg)
	})
}

// GET /messages/conversation/{peerID}?limit=20: newest first.
func conversationHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "messages" || parts[1] != "conversation" {
			http.NotFound(w, r)
			return
		}
		peerID, err := strconv.Atoi(parts[2])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		rows, err := db.Query(`
			SELECT message_id, sender_id, recipient_id, body, timestamp
			FROM messages
			WHERE (sender_id = $1 AND recipient_id = $2)
			   OR (sender_id = $2 AND recipient_id = $1)
			ORDER BY timestamp DESC
			LIMIT $3
		`, userID, peerID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error retrieving conversation:", err)
			return
		}
		defer rows.Close()

		msgs := make([]Message, 0, limit)
		for rows.Next() {
			var m Message
			if err := rows.Scan(&m.MessageID, &m.SenderID, &m.RecipientID, &m.Body, &m.Timestamp); err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			msgs = append(msgs, m)
		}
		if err := rows.Err(); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	})
}

// GET /messages/conversations: one preview per peer, most recent first.
func conversationsHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(userIDKey).(int)

		rows, err := db.Query(`
			SELECT DISTINCT ON (peer_id)
			       peer_id, body, timestamp
			FROM (
			    SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS peer_id,
			           body, timestamp
			    FROM messages
			    WHERE sender_id = $1 OR recipient_id = $1
			) m
			ORDER BY peer_id, timestamp DESC
		`, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			log.Println("Error retrieving conversations:", err)
			return
		}
		defer rows.Close()

		previews := []ConversationPreview{}
		for rows.Next() {
			var p ConversationPreview
			if err := rows.Scan(&p.PeerID, &p.LastMessage, &p.Timestamp); err != nil {
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			previews = append(previews, p)
		}
		if err := rows.Err(); err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		// Attach peer names; fall back to "User {id}" like the profile-less case
		for i := range previews {
			var name sql.NullString
			_ = db.QueryRow("SELECT name FROM user_profiles WHERE user_id = $1", previews[i].PeerID).Scan(&name)
			if name.Valid && name.String != "" {
				previews[i].PeerName = name.String
			} else {
				previews[i].PeerName = "User " + strconv.Itoa(previews[i].PeerID)
			}
		}

		// Most recent conversation first
		sort.Slice(previews, func(i, j int) bool {
			return previews[i].Timestamp.After(previews[j].Timestamp)
		})

		writeJSON(w, http.StatusOK, previews)
	})
}

// Dispatcher for /messages and /messages/* routes.
func messagesDispatcher(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(r.URL.Path, "/")
		parts := strings.Split(path, "/")
		switch {
		case len(parts) == 1:
			createMessageHandler(db).ServeHTTP(w, r)
		case len(parts) == 2 && parts[1] == "conversations":
			conversationsHandler(db).ServeHTTP(w, r)
		case len(parts) == 3 && parts[1] == "conversation":
			conversationHandler(db).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}
