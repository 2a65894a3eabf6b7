package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

// Indexer keeps exactly one document's chunks searchable in its index.
type Indexer struct {
	chunker  ports.Chunker
	embedder ports.Embedder
	index    ports.VectorIndex
	logger   *slog.Logger
	newID    func() string

	mu sync.Mutex
	// stale is the document whose predecessors are still in the index.
	stale string
}

func NewIndexer(chunker ports.Chunker, embedder ports.Embedder, index ports.VectorIndex, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// IndexDocument writes the new document's chunks before retiring the previous
// document's, so the index never holds a half-replaced set. If the write fails
// the previous document stays in place.
func (ix *Indexer) IndexDocument(ctx context.Context, text string, meta domain.IndexMetadata) domain.IndexResult {
	if strings.TrimSpace(text) == "" {
		return failedIndex(domain.WrapError(domain.ErrInvalidInput, "index document", errors.New("no text to index")))
	}

	documentID := ix.newID()
	chunks := ix.chunker.Split(text)
	if len(chunks) == 0 {
		return failedIndex(domain.WrapError(domain.ErrIndexing, "index document", errors.New("no chunks produced")))
	}

	vectors := ix.embedChunks(ctx, chunks)
	entries := make([]domain.IndexEntry, 0, len(chunks))
	for i, chunk := range chunks {
		if vectors[i] == nil {
			continue
		}
		chunkID := fmt.Sprintf("%s_chunk_%d", documentID, i)
		entries = append(entries, domain.IndexEntry{
			ID:     chunkID,
			Vector: vectors[i],
			Text:   chunk,
			Metadata: domain.ChunkMetadata{
				ChunkID:    chunkID,
				DocumentID: documentID,
				ChunkIndex: i,
				Filename:   meta.Filename,
				FileType:   meta.FileType,
				CharCount:  runeLen(chunk),
				WordCount:  countWords(chunk),
			},
		})
	}
	if len(entries) == 0 {
		return failedIndex(domain.WrapError(domain.ErrIndexing, "index document", errors.New("no embeddings generated")))
	}

	if err := ix.index.Upsert(ctx, entries); err != nil {
		if cleanupErr := ix.index.DeleteDocument(context.WithoutCancel(ctx), documentID); cleanupErr != nil {
			ix.logger.Warn("partial_index_cleanup_failed", "document_id", documentID, "error", cleanupErr)
		}
		result := failedIndex(domain.WrapError(domain.ErrIndexing, "upsert chunks", err))
		result.StorageMethod = ix.index.Name()
		return result
	}

	ix.mu.Lock()
	ix.stale = ""
	ix.mu.Unlock()
	if err := ix.index.DeleteExcept(ctx, documentID); err != nil {
		// Queries filter by document id, so stale entries stay invisible.
		ix.logger.Warn("previous_document_retire_failed", "document_id", documentID, "error", err)
		ix.mu.Lock()
		ix.stale = documentID
		ix.mu.Unlock()
	}

	ix.logger.Info("document_indexed",
		"document_id", documentID,
		"filename", meta.Filename,
		"chunks", len(chunks),
		"embedded", len(entries),
	)
	return domain.IndexResult{
		Success:         true,
		DocumentID:      documentID,
		ChunksCount:     len(chunks),
		EmbeddingsCount: len(entries),
		StorageMethod:   ix.index.Name(),
	}
}

// embedChunks tries one batch call and falls back to per-chunk calls. A nil
// vector marks a chunk whose embedding failed.
func (ix *Indexer) embedChunks(ctx context.Context, chunks []string) [][]float32 {
	vectors, err := ix.embedder.Embed(ctx, chunks)
	if err == nil && len(vectors) == len(chunks) {
		return vectors
	}
	if err != nil {
		ix.logger.Warn("batch_embedding_failed", "chunks", len(chunks), "error", err)
	}

	out := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		single, err := ix.embedder.Embed(ctx, []string{chunk})
		if err != nil || len(single) != 1 || len(single[0]) == 0 {
			ix.logger.Warn("chunk_embedding_failed", "chunk_index", i, "error", err)
			continue
		}
		out[i] = single[0]
	}
	return out
}

func (ix *Indexer) Clear(ctx context.Context) error {
	if err := ix.index.Clear(ctx); err != nil {
		return domain.WrapError(domain.ErrIndexing, "clear index", err)
	}
	ix.mu.Lock()
	ix.stale = ""
	ix.mu.Unlock()
	return nil
}

// CollectionStats retries a pending retirement before counting. If the
// previous document is still present the stats are marked degraded.
func (ix *Indexer) CollectionStats(ctx context.Context) (domain.CollectionStats, error) {
	degraded := ix.retireStale(ctx)
	count, err := ix.index.Count(ctx)
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("count chunks: %w", err)
	}
	return domain.CollectionStats{
		TotalChunks:    count,
		CollectionName: ix.index.Name(),
		EmbeddingModel: ix.embedder.Model(),
		Degraded:       degraded,
	}, nil
}

func (ix *Indexer) retireStale(ctx context.Context) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.stale == "" {
		return false
	}
	if err := ix.index.DeleteExcept(ctx, ix.stale); err != nil {
		ix.logger.Warn("previous_document_retire_failed", "document_id", ix.stale, "error", err)
		return true
	}
	ix.stale = ""
	return false
}

func failedIndex(err error) domain.IndexResult {
	return domain.IndexResult{Success: false, Error: domain.ErrorMessage(err), Err: err}
}
