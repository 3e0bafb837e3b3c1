// Command peers-refresh generates profile embeddings and peer suggestions.
// It is meant to be run from cron or by hand; the server never triggers it.
//
//	peers-refresh -operation refresh -model fast-all-MiniLM-L6-v2 -batch-size 100 -top-n 5
//
// Exits 0 on success, 1 on any error.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/philbeliveau/Orientor-project/peers"
)

func main() {
	operation := flag.String("operation", "refresh", "operation to perform: embeddings, peers, or refresh")
	model := flag.String("model", peers.DefaultModel, "embedding model to use")
	batchSize := flag.Int("batch-size", 100, "batch size for peer ranking")
	topN := flag.Int("top-n", 5, "number of similar peers to find for each user")
	flag.Parse()

	log.Printf("Starting operation: %s", *operation)

	db := openDB()
	defer db.Close()

	// Model load failure is fatal to the whole batch.
	embedder, err := peers.NewFastEmbedder(*model, os.Getenv("EMBED_CACHE_DIR"))
	if err != nil {
		log.Fatal("Error loading embedding model: ", err)
	}
	defer embedder.Close()

	pipeline := &peers.Pipeline{DB: db, Model: embedder}
	ctx := context.Background()

	switch *operation {
	case "embeddings":
		count, err := pipeline.GenerateEmbeddings(ctx)
		if err != nil {
			log.Fatal("Error generating embeddings: ", err)
		}
		log.Printf("Generated embeddings for %d profiles", count)

	case "peers":
		count, err := pipeline.RankPeers(ctx, *batchSize, *topN)
		if err != nil {
			log.Fatal("Error finding similar peers: ", err)
		}
		log.Printf("Found similar peers for %d users", count)

	case "refresh":
		result, err := pipeline.Refresh(ctx, *batchSize, *topN)
		if err != nil {
			log.Fatal("Error in refresh operation: ", err)
		}
		log.Printf("Refresh completed: %d profiles embedded, %d users ranked, %.2fs elapsed",
			result.ProfilesEmbedded, result.UsersRanked, result.Elapsed.Seconds())

	default:
		log.Fatalf("Unknown operation %q (want embeddings, peers, or refresh)", *operation)
	}

	log.Println("Operation completed successfully")
}

func openDB() *sql.DB {
	_ = godotenv.Load()

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		connStr = "user=postgres password=postgres dbname=orientor sslmode=disable"
		log.Println("Warning: DATABASE_URL not set, using default connection string")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Error connecting to the database:", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Cannot reach the database:", err)
	}
	return db
}
