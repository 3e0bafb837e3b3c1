package peers

import (
	"context"
	"fmt"
	"path/filepath"

	fastembed "github.com/anush008/fastembed-go"
)

// Embedder produces fixed-dimensionality vectors for profile text.
type Embedder interface {
	// EmbedDocuments embeds a batch of texts, one vector per text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the vector length the model emits.
	Dimension() int
}

// DefaultModel is the embedding model used unless overridden. It matches the
// sentence-transformers/all-MiniLM-L6-v2 weights (384 dimensions).
const DefaultModel = "fast-all-MiniLM-L6-v2"

// modelNames maps friendly model names to fastembed model constants, so the
// CLI accepts either the huggingface name or the fastembed one.
var modelNames = map[string]fastembed.EmbeddingModel{
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"fast-all-MiniLM-L6-v2":                  fastembed.AllMiniLML6V2,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"fast-bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"fast-bge-base-en":                       fastembed.BGEBaseEN,
}

var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.AllMiniLML6V2: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseEN:     768,
}

// FastEmbedder runs a local ONNX sentence-embedding model.
type FastEmbedder struct {
	model     *fastembed.FlagEmbedding
	dimension int
}

// NewFastEmbedder loads the named embedding model. Model load failure is
// fatal to the caller: there is no retry, the batch cannot proceed without it.
func NewFastEmbedder(name, cacheDir string) (*FastEmbedder, error) {
	if name == "" {
		name = DefaultModel
	}
	model, ok := modelNames[name]
	if !ok {
		model = fastembed.EmbeddingModel(name)
		if _, known := modelDimensions[model]; !known {
			return nil, fmt.Errorf("unsupported embedding model %q", name)
		}
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "local_cache")
	}

	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("loading embedding model %q: %w", name, err)
	}

	return &FastEmbedder{model: flagEmbed, dimension: modelDimensions[model]}, nil
}

func (e *FastEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors, err := e.model.Embed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	return vectors, nil
}

func (e *FastEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vector, err := e.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

func (e *FastEmbedder) Dimension() int { return e.dimension }

// Close releases the ONNX session.
func (e *FastEmbedder) Close() error {
	if e.model != nil {
		return e.model.Destroy()
	}
	return nil
}
