package main

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/grpc"

	"github.com/philbeliveau/Orientor-project/peers"
)

// JWT secret from environment variable or fallback
func getJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("your_secret_key_please_change_in_production")
}

var jwtSecret = getJWTSecret()

func main() {
	initDB()

	// The query embedder backs occupation search. It must match the model
	// the offline pipeline used, otherwise distances are meaningless.
	embedder, err := peers.NewFastEmbedder(peers.DefaultModel, os.Getenv("EMBED_CACHE_DIR"))
	if err != nil {
		log.Fatal("Error loading embedding model: ", err)
	}
	defer embedder.Close()

	qdrantClient := newQdrantClient()
	mentorModel := newMentorModel()

	mux := http.NewServeMux()

	// Core auth & user endpoints
	mux.Handle("/register", registerHandler(db))
	mux.Handle("/login", loginHandler(db))
	mux.Handle("/me", meHandler(db))
	mux.Handle("/me/password", changePasswordHandler(db))

	// Profiles
	mux.Handle("/profile/me", profileMeHandler(db))
	mux.Handle("/profile/update", profileUpdateHandler(db))
	mux.Handle("/users/", userProfileHandler(db))

	// Peer suggestions computed by the offline pipeline
	mux.Handle("/peers/suggested", suggestedPeersHandler(db))

	// Direct messages + live relay
	mux.Handle("/messages", messagesDispatcher(db))
	mux.Handle("/messages/", messagesDispatcher(db))
	mux.Handle("/ws/messages", wsMessagesHandler())

	// Socratic mentor
	mux.Handle("/mentor/", mentorDispatcher(db, mentorModel))

	// Occupation search over the vector index
	mux.Handle("/occupations/", occupationsDispatcher(qdrantClient, embedder))

	// Saved recommendations, notes and skills
	mux.Handle("/space/", spaceDispatcher(db))

	// Resume bridge to the external Reactive Resume service
	mux.Handle("/resume/", resumeDispatcher(db, newResumeService()))

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	log.Println("Starting Orientor backend on port 8080...")
	http.ListenAndServe(":8080", withCORS(mux))
}

// newQdrantClient connects to the occupation index. The index is optional:
// when it is unreachable the search endpoints answer 503 and the rest of the
// app works normally.
func newQdrantClient() *qdrant.Client {
	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		host = "localhost"
	}
	port := 6334
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(32 * 1024 * 1024)),
		},
	})
	if err != nil {
		log.Println("Occupation search disabled, cannot connect to Qdrant:", err)
		return nil
	}
	return client
}

// newMentorModel builds the chat model for the mentor endpoints. Without an
// OPENAI_API_KEY the mentor answers 503 instead of failing the whole server.
func newMentorModel() llms.Model {
	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Println("Mentor disabled, OPENAI_API_KEY is not set")
		return nil
	}
	model, err := openai.New(openai.WithModel("gpt-3.5-turbo"))
	if err != nil {
		log.Println("Mentor disabled, cannot build OpenAI client:", err)
		return nil
	}
	return model
}
