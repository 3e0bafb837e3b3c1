package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ============================================================================
// MESSAGING TEST SUITE
// ============================================================================

func TestMessagingSuite(t *testing.T) {
	requireDB(t)

	alice := createTestUser(t, "msg_alice@example.com", "testpass123")
	bob := createTestUser(t, "msg_bob@example.com", "testpass123")
	defer cleanupTestData(alice.Email, bob.Email)

	t.Run("Send Message", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"recipient_id":%d,"body":"hey Bob"}`, bob.ID))
		w := httptest.NewRecorder()
		createMessageHandler(db).ServeHTTP(w, authedRequest(t, http.MethodPost, "/messages", body, alice))

		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}
		var msg Message
		json.NewDecoder(w.Body).Decode(&msg)
		if msg.SenderID != alice.ID || msg.RecipientID != bob.ID {
			t.Errorf("unexpected sender/recipient: %d -> %d", msg.SenderID, msg.RecipientID)
		}
		if msg.MessageID == 0 {
			t.Error("expected a stored message_id")
		}
	})

	t.Run("Send To Self", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"recipient_id":%d,"body":"talking to myself"}`, alice.ID))
		w := httptest.NewRecorder()
		createMessageHandler(db).ServeHTTP(w, authedRequest(t, http.MethodPost, "/messages", body, alice))

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("Send To Unknown Recipient", func(t *testing.T) {
		body := []byte(`{"recipient_id":999999999,"body":"anyone there?"}`)
		w := httptest.NewRecorder()
		createMessageHandler(db).ServeHTTP(w, authedRequest(t, http.MethodPost, "/messages", body, alice))

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("Empty Body", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"recipient_id":%d,"body":"   "}`, bob.ID))
		w := httptest.NewRecorder()
		createMessageHandler(db).ServeHTTP(w, authedRequest(t, http.MethodPost, "/messages", body, alice))

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("Conversation History", func(t *testing.T) {
		// Bob replies so the thread has traffic in both directions.
		body := []byte(fmt.Sprintf(`{"recipient_id":%d,"body":"hey Alice"}`, alice.ID))
		w := httptest.NewRecorder()
		createMessageHandler(db).ServeHTTP(w, authedRequest(t, http.MethodPost, "/messages", body, bob))
		if w.Code != http.StatusCreated {
			t.Fatalf("reply failed: status %d", w.Code)
		}

		path := fmt.Sprintf("/messages/conversation/%d", bob.ID)
		w = httptest.NewRecorder()
		conversationHandler(db).ServeHTTP(w, authedRequest(t, http.MethodGet, path, nil, alice))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var msgs []Message
		json.NewDecoder(w.Body).Decode(&msgs)
		if len(msgs) < 2 {
			t.Fatalf("expected at least 2 messages, got %d", len(msgs))
		}
		// Newest first.
		for i := 1; i < len(msgs); i++ {
			if msgs[i].Timestamp.After(msgs[i-1].Timestamp) {
				t.Error("conversation must be ordered newest first")
				break
			}
		}
	})

	t.Run("Conversations Listing", func(t *testing.T) {
		w := httptest.NewRecorder()
		conversationsHandler(db).ServeHTTP(w, authedRequest(t, http.MethodGet, "/messages/conversations", nil, alice))

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		var previews []ConversationPreview
		json.NewDecoder(w.Body).Decode(&previews)

		found := false
		for _, p := range previews {
			if p.PeerID == bob.ID {
				found = true
				if p.LastMessage == "" {
					t.Error("preview must carry the last message body")
				}
			}
		}
		if !found {
			t.Errorf("expected a preview for peer %d", bob.ID)
		}
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/messages", nil)
		w := httptest.NewRecorder()
		createMessageHandler(db).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
		}
	})
}
