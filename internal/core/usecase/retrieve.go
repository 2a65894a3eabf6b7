package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

const defaultTopK = 5

type Retriever struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	logger   *slog.Logger
}

func NewRetriever(embedder ports.Embedder, index ports.VectorIndex, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, index: index, logger: logger}
}

// Retrieve returns up to topK chunks of documentID by descending similarity.
// An empty or unreachable index yields no chunks and no error; only a failed
// query embedding is reported.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, documentID string) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("empty query"))
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.index.Query(ctx, vector, topK, documentID)
	if err != nil {
		r.logger.Warn("vector_index_unavailable", "index", r.index.Name(), "error", err)
		return []domain.RetrievedChunk{}, nil
	}

	out := make([]domain.RetrievedChunk, 0, len(matches))
	for _, match := range matches {
		out = append(out, domain.RetrievedChunk{
			Text:            match.Text,
			Metadata:        match.Metadata,
			SimilarityScore: 1 - match.Distance,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SimilarityScore > out[j].SimilarityScore
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}
