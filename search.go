package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/philbeliveau/Orientor-project/peers"
)

// occupationCollection is the Qdrant collection holding the occupation
// knowledge base, one point per occupation text chunk.
const occupationCollection = "oasis-minilm-index"

func tryParseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseOccupationText extracts the structured fields from a stored occupation
// text. The text is a sequence of labeled sentences such as
// "Occupation: Data Scientist. Description: ... . Creativity: 4.2".
// Unrecognized sentences are ignored; malformed ratings stay nil.
func parseOccupationText(text string) Occupation {
	var occ Occupation
	for _, part := range strings.Split(text, ". ") {
		switch {
		case strings.HasPrefix(part, "Occupation: "):
			occ.Label = strings.TrimPrefix(part, "Occupation: ")
		case strings.HasPrefix(part, "Description: "):
			occ.LeadStatement = strings.TrimPrefix(part, "Description: ")
		case strings.HasPrefix(part, "Main duties: "):
			occ.MainDuties = strings.TrimPrefix(part, "Main duties: ")
		case strings.HasPrefix(part, "Creativity: "):
			occ.Creativity = tryParseFloat(strings.TrimPrefix(part, "Creativity: "))
		case strings.HasPrefix(part, "Leadership: "):
			occ.Leadership = tryParseFloat(strings.TrimPrefix(part, "Leadership: "))
		case strings.HasPrefix(part, "Digital Literacy: "):
			occ.DigitalLiteracy = tryParseFloat(strings.TrimPrefix(part, "Digital Literacy: "))
		case strings.HasPrefix(part, "Critical Thinking: "):
			occ.CriticalThink = tryParseFloat(strings.TrimPrefix(part, "Critical Thinking: "))
		case strings.HasPrefix(part, "Problem Solving: "):
			occ.ProblemSolving = tryParseFloat(strings.TrimPrefix(part, "Problem Solving: "))
		}
	}
	return occ
}

// oasisCodeFromID extracts the occupation code from a point ID of the form
// "oasis-{code}-{n}".
func oasisCodeFromID(id string) string {
	parts := strings.Split(id, "-")
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}

// POST /occupations/search: embed the query locally and search the
// occupation collection. Multiple chunks of the same occupation collapse to
// one result keeping the best-scoring chunk.
func searchOccupationsHandler(client *qdrant.Client, embedder peers.Embedder) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		if client == nil {
			writeError(w, http.StatusServiceUnavailable, "search_unavailable")
			return
		}

		type SearchRequest struct {
			Query string `json:"query"`
			TopK  int    `json:"top_k"`
		}
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		query := strings.TrimSpace(req.Query)
		if query == "" {
			writeError(w, http.StatusBadRequest, "empty_query")
			return
		}
		topK := req.TopK
		if topK <= 0 || topK > 50 {
			topK = 5
		}

		vector, err := embedder.EmbedQuery(r.Context(), query)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "embedding_error")
			log.Println("Error embedding search query:", err)
			return
		}

		points, err := client.Query(r.Context(), &qdrant.QueryPoints{
			CollectionName: occupationCollection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(topK)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "search_error")
			log.Println("Error querying occupation index:", err)
			return
		}

		seen := make(map[string]bool)
		results := make([]Occupation, 0, len(points))
		for _, point := range points {
			id := ""
			if uuid := point.GetId().GetUuid(); uuid != "" {
				id = uuid
			} else {
				id = strconv.FormatUint(point.GetId().GetNum(), 10)
			}

			text := ""
			if v, ok := point.GetPayload()["text"]; ok {
				text = v.GetStringValue()
			}

			occ := parseOccupationText(text)
			occ.ID = id
			occ.Score = float64(point.GetScore())
			occ.OasisCode = oasisCodeFromID(id)
			if occ.OasisCode == "" || seen[occ.OasisCode] {
				continue
			}
			seen[occ.OasisCode] = true
			results = append(results, occ)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"query":   query,
			"results": results,
		})
	})
}

// GET /occupations/health: reports whether the occupation index is
// reachable and how many vectors it holds.
func occupationsHealthHandler(client *qdrant.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			writeError(w, http.StatusServiceUnavailable, "search_unavailable")
			return
		}
		count, err := client.Count(r.Context(), &qdrant.CountPoints{
			CollectionName: occupationCollection,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "search_error")
			log.Println("Error checking occupation index health:", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":       "healthy",
			"vector_count": count,
		})
	}
}

// occupationsDispatcher routes /occupations/search and /occupations/health.
func occupationsDispatcher(client *qdrant.Client, embedder peers.Embedder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/occupations/") {
		case "search":
			searchOccupationsHandler(client, embedder).ServeHTTP(w, r)
		case "health":
			occupationsHealthHandler(client).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}
