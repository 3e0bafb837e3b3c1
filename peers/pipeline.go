package peers

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Pipeline computes and persists peer-similarity suggestions. It is meant to
// run as a single offline invocation (cron or the peers-refresh CLI); nothing
// here defends against two refreshes racing on the same rows.
type Pipeline struct {
	DB    *sql.DB
	Model Embedder
}

// RefreshResult reports what a full refresh accomplished.
type RefreshResult struct {
	ProfilesEmbedded int           `json:"profiles_processed"`
	UsersRanked      int           `json:"users_with_peers"`
	Elapsed          time.Duration `json:"-"`
}

// GenerateEmbeddings embeds every profile whose embedding column is NULL and
// writes the vectors back. Profiles whose normalized text is empty are
// skipped and logged, not failed. All writes go into one transaction that
// commits at the end of the batch; a crash before commit loses them all.
// Returns the number of profiles embedded.
func (pl *Pipeline) GenerateEmbeddings(ctx context.Context) (int, error) {
	rows, err := pl.DB.QueryContext(ctx, `
		SELECT id, user_id,
		       COALESCE(name, ''), COALESCE(major, ''), COALESCE(hobbies, ''),
		       COALESCE(interests, ''), COALESCE(unique_quality, ''), COALESCE(story, ''),
		       COALESCE(favorite_movie, ''), COALESCE(favorite_book, '')
		FROM user_profiles
		WHERE embedding IS NULL
		ORDER BY id
	`)
	if err != nil {
		return 0, fmt.Errorf("fetching profiles without embeddings: %w", err)
	}
	defer rows.Close()

	var ids []int
	var texts []string
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Major, &p.Hobbies,
			&p.Interests, &p.UniqueQuality, &p.Story, &p.FavoriteMovie, &p.FavoriteBook); err != nil {
			return 0, err
		}
		text := ProfileText(p)
		if text == "" {
			log.Printf("Profile for user_id %d has no text content. Skipping.", p.UserID)
			continue
		}
		ids = append(ids, p.ID)
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		log.Println("No profiles found that need embeddings.")
		return 0, nil
	}

	log.Printf("Generating embeddings for %d profiles...", len(ids))

	// One model call for the whole batch; the model batches internally.
	vectors, err := pl.Model.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("generating embeddings: %w", err)
	}
	if len(vectors) != len(ids) {
		return 0, fmt.Errorf("model returned %d vectors for %d texts", len(vectors), len(ids))
	}

	tx, err := pl.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	count := 0
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE user_profiles SET embedding = $1 WHERE id = $2",
			pgvector.NewVector(vectors[i]), id,
		); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("storing embedding for profile %d: %w", id, err)
		}
		count++
		if count%100 == 0 {
			log.Printf("Processed %d/%d profiles...", count, len(ids))
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	log.Printf("Successfully generated embeddings for %d profiles.", count)
	return count, nil
}

// peerRank is one (suggested user, similarity) pair for a source user.
type peerRank struct {
	suggestedID int
	similarity  float64
}

// RankPeers computes, for every user with an embedding, the topN most similar
// other embedded users by cosine similarity and upserts them into
// suggested_peers. Users are processed in batches of batchSize purely to
// bound transaction size; batching never changes any user's result set.
// Returns the number of users processed.
func (pl *Pipeline) RankPeers(ctx context.Context, batchSize, topN int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	if topN <= 0 {
		topN = 5
	}

	rows, err := pl.DB.QueryContext(ctx,
		"SELECT user_id FROM user_profiles WHERE embedding IS NOT NULL ORDER BY user_id")
	if err != nil {
		return 0, fmt.Errorf("fetching embedded users: %w", err)
	}
	userIDs, err := collectInts(rows)
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		log.Println("No users found with embeddings.")
		return 0, nil
	}

	log.Printf("Finding similar peers for %d users...", len(userIDs))
	totalProcessed := 0

	for start := 0; start < len(userIDs); start += batchSize {
		end := start + batchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch := userIDs[start:end]

		tx, err := pl.DB.BeginTx(ctx, nil)
		if err != nil {
			return totalProcessed, err
		}
		for _, uid := range batch {
			ranked, err := pl.rankOne(ctx, tx, uid, topN)
			if err != nil {
				_ = tx.Rollback()
				return totalProcessed, fmt.Errorf("ranking peers for user %d: %w", uid, err)
			}
			for _, r := range ranked {
				if err := upsertSuggestion(ctx, tx, uid, r.suggestedID, r.similarity); err != nil {
					_ = tx.Rollback()
					return totalProcessed, fmt.Errorf("storing suggestion %d -> %d: %w", uid, r.suggestedID, err)
				}
			}
			totalProcessed++
		}
		if err := tx.Commit(); err != nil {
			return totalProcessed, err
		}
		log.Printf("Processed %d/%d users...", totalProcessed, len(userIDs))
	}

	log.Printf("Successfully found similar peers for %d users.", totalProcessed)
	return totalProcessed, nil
}

// rankOne returns the topN embedded peers of uid by cosine similarity,
// descending. The similarity ranking itself is delegated to pgvector's
// cosine-distance operator; a user is never compared against itself.
func (pl *Pipeline) rankOne(ctx context.Context, tx *sql.Tx, uid, topN int) ([]peerRank, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT up2.user_id,
		       1 - (up1.embedding <=> up2.embedding) AS similarity
		FROM user_profiles up1
		JOIN user_profiles up2 ON up1.user_id <> up2.user_id
		WHERE up1.user_id = $1
		  AND up2.embedding IS NOT NULL
		ORDER BY similarity DESC
		LIMIT $2
	`, uid, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranked []peerRank
	for rows.Next() {
		var r peerRank
		if err := rows.Scan(&r.suggestedID, &r.similarity); err != nil {
			return nil, err
		}
		ranked = append(ranked, r)
	}
	return ranked, rows.Err()
}

// upsertSuggestion writes one (source, suggested, similarity) triple.
// Replaying the same triple leaves exactly one row with the latest value.
func upsertSuggestion(ctx context.Context, tx *sql.Tx, userID, suggestedID int, similarity float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO suggested_peers (user_id, suggested_id, similarity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, suggested_id)
		DO UPDATE SET similarity = EXCLUDED.similarity, updated_at = NOW()
	`, userID, suggestedID, similarity)
	return err
}

// Refresh clears every embedding and every suggestion, then rebuilds both
// from scratch. The clear steps commit before the rebuild starts, so a crash
// mid-refresh leaves an empty (not stale) state until the next run.
func (pl *Pipeline) Refresh(ctx context.Context, batchSize, topN int) (RefreshResult, error) {
	start := time.Now()
	var res RefreshResult

	if _, err := pl.DB.ExecContext(ctx, "UPDATE user_profiles SET embedding = NULL"); err != nil {
		return res, fmt.Errorf("clearing embeddings: %w", err)
	}
	if _, err := pl.DB.ExecContext(ctx, "DELETE FROM suggested_peers"); err != nil {
		return res, fmt.Errorf("clearing suggested peers: %w", err)
	}

	embedded, err := pl.GenerateEmbeddings(ctx)
	if err != nil {
		return res, err
	}
	res.ProfilesEmbedded = embedded

	if embedded > 0 {
		ranked, err := pl.RankPeers(ctx, batchSize, topN)
		if err != nil {
			return res, err
		}
		res.UsersRanked = ranked
	}

	res.Elapsed = time.Since(start)
	log.Printf("Refresh completed in %.2f seconds", res.Elapsed.Seconds())
	return res, nil
}

func collectInts(rows *sql.Rows) ([]int, error) {
	defer rows.Close()
	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
