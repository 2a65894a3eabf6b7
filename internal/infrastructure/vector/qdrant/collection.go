package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

// Collection is the vector index of a single session.
type Collection struct {
	client *Client
	name   string

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) path(suffix string) string {
	return "/collections/" + c.name + suffix
}

// pointID maps a chunk id to a stable UUID, since Qdrant only accepts
// unsigned integers or UUIDs as point ids.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (c *Collection) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	size := len(entries[0].Vector)
	if size == 0 {
		return fmt.Errorf("empty vector for %s", entries[0].ID)
	}
	if err := c.ensureCollection(ctx, size); err != nil {
		return err
	}

	points := make([]point, 0, len(entries))
	for _, entry := range entries {
		if len(entry.Vector) != size {
			return fmt.Errorf("vector size mismatch for %s: %d != %d", entry.ID, len(entry.Vector), size)
		}
		meta := entry.Metadata
		chunkID := meta.ChunkID
		if chunkID == "" {
			chunkID = entry.ID
		}
		points = append(points, point{
			ID:     pointID(entry.ID),
			Vector: entry.Vector,
			Payload: map[string]any{
				"chunk_id":     chunkID,
				"document_id":  meta.DocumentID,
				"chunk_index":  meta.ChunkIndex,
				"filename":     meta.Filename,
				"file_type":    meta.FileType,
				"chunk_length": meta.CharCount,
				"word_count":   meta.WordCount,
				"text":         entry.Text,
			},
		})
	}

	if err := c.client.do(ctx, http.MethodPut, c.path("/points?wait=true"), map[string]any{"points": points}, nil, "upsert"); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (c *Collection) Query(ctx context.Context, vector []float32, topK int, documentID string) ([]domain.VectorMatch, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if documentID != "" {
		reqBody["filter"] = documentFilter("must", documentID)
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := c.client.do(ctx, http.MethodPost, c.path("/points/search"), reqBody, &resp, "search")
	if errors.Is(err, errNotFound) {
		return []domain.VectorMatch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	out := make([]domain.VectorMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.VectorMatch{
			ID:   getStringPayload(r.Payload, "chunk_id"),
			Text: getStringPayload(r.Payload, "text"),
			Metadata: domain.ChunkMetadata{
				ChunkID:    getStringPayload(r.Payload, "chunk_id"),
				DocumentID: getStringPayload(r.Payload, "document_id"),
				ChunkIndex: getIntPayload(r.Payload, "chunk_index"),
				Filename:   getStringPayload(r.Payload, "filename"),
				FileType:   getStringPayload(r.Payload, "file_type"),
				CharCount:  getIntPayload(r.Payload, "chunk_length"),
				WordCount:  getIntPayload(r.Payload, "word_count"),
			},
			// Qdrant reports cosine similarity; the index contract is distance.
			Distance: 1 - r.Score,
		})
	}
	return out, nil
}

func (c *Collection) DeleteDocument(ctx context.Context, documentID string) error {
	return c.deleteByFilter(ctx, documentFilter("must", documentID), "delete document")
}

func (c *Collection) DeleteExcept(ctx context.Context, documentID string) error {
	return c.deleteByFilter(ctx, documentFilter("must_not", documentID), "delete stale documents")
}

func (c *Collection) deleteByFilter(ctx context.Context, filter map[string]any, operation string) error {
	err := c.client.do(ctx, http.MethodPost, c.path("/points/delete?wait=true"), map[string]any{"filter": filter}, nil, "delete")
	if errors.Is(err, errNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// Clear drops the whole collection.
func (c *Collection) Clear(ctx context.Context) error {
	err := c.client.do(ctx, http.MethodDelete, c.path(""), nil, nil, "drop collection")
	if err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("drop collection: %w", err)
	}
	c.ensureMu.Lock()
	c.ensuredCollection = false
	c.ensuredVectorSize = 0
	c.ensureMu.Unlock()
	return nil
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := c.client.do(ctx, http.MethodPost, c.path("/points/count"), map[string]any{"exact": true}, &resp, "count")
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.Result.Count, nil
}

func (c *Collection) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.client.do(ctx, http.MethodPut, c.path(""), reqBody, nil, "ensure collection")
	if err != nil && !isConflict(err) {
		return err
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func documentFilter(clause, documentID string) map[string]any {
	return map[string]any{
		clause: []map[string]any{
			{
				"key":   "document_id",
				"match": map[string]any{"value": documentID},
			},
		},
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
