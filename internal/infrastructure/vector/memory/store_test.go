package memory

import (
	"context"
	"math"
	"testing"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

func entry(id, docID string, vector ...float32) domain.IndexEntry {
	return domain.IndexEntry{
		ID:       id,
		Vector:   vector,
		Text:     "text of " + id,
		Metadata: domain.ChunkMetadata{ChunkID: id, DocumentID: docID},
	}
}

func TestQueryOrdersByDistanceAndFiltersDocument(t *testing.T) {
	ctx := context.Background()
	store := NewStore("test")
	err := store.Upsert(ctx, []domain.IndexEntry{
		entry("a_chunk_0", "a", 1, 0),
		entry("a_chunk_1", "a", 0, 1),
		entry("b_chunk_0", "b", 1, 0),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	matches, err := store.Query(ctx, []float32{1, 0}, 5, "a")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a_chunk_0" || math.Abs(matches[0].Distance) > 1e-9 {
		t.Fatalf("unexpected best match %+v", matches[0])
	}
	if math.Abs(matches[1].Distance-1) > 1e-9 {
		t.Fatalf("expected orthogonal distance 1, got %f", matches[1].Distance)
	}
}

func TestQueryRespectsTopK(t *testing.T) {
	ctx := context.Background()
	store := NewStore("test")
	_ = store.Upsert(ctx, []domain.IndexEntry{
		entry("1", "d", 1, 0),
		entry("2", "d", 1, 1),
		entry("3", "d", 0, 1),
	})
	matches, _ := store.Query(ctx, []float32{1, 0}, 2, "")
	if len(matches) != 2 || matches[0].ID != "1" || matches[1].ID != "2" {
		t.Fatalf("unexpected matches %+v", matches)
	}
}

func TestUpsertReplacesSameID(t *testing.T) {
	ctx := context.Background()
	store := NewStore("test")
	_ = store.Upsert(ctx, []domain.IndexEntry{entry("1", "d", 1, 0)})
	_ = store.Upsert(ctx, []domain.IndexEntry{entry("1", "d", 0, 1)})
	if count, _ := store.Count(ctx); count != 1 {
		t.Fatalf("expected 1 entry, got %d", count)
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewStore("test")
	_ = store.Upsert(ctx, []domain.IndexEntry{entry("1", "d", 1, 0)})
	if err := store.Upsert(ctx, []domain.IndexEntry{entry("2", "d", 1, 0, 0)}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestDeleteExceptKeepsOnlyActiveDocument(t *testing.T) {
	ctx := context.Background()
	store := NewStore("test")
	_ = store.Upsert(ctx, []domain.IndexEntry{
		entry("old_0", "old", 1, 0),
		entry("new_0", "new", 0, 1),
	})
	if err := store.DeleteExcept(ctx, "new"); err != nil {
		t.Fatalf("DeleteExcept() error = %v", err)
	}
	matches, _ := store.Query(ctx, []float32{1, 0}, 5, "")
	if len(matches) != 1 || matches[0].Metadata.DocumentID != "new" {
		t.Fatalf("unexpected matches %+v", matches)
	}

	_ = store.DeleteDocument(ctx, "new")
	if count, _ := store.Count(ctx); count != 0 {
		t.Fatalf("expected empty store, got %d", count)
	}
}

func TestFactoryGivesSessionsPrivateStores(t *testing.T) {
	ctx := context.Background()
	open := NewFactory("docqa")
	first, err := open(ctx, "aa-bb")
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	second, _ := open(ctx, "cc-dd")
	if first.Name() != "docqa_aabb" {
		t.Fatalf("unexpected name %q", first.Name())
	}
	_ = first.Upsert(ctx, []domain.IndexEntry{entry("1", "d", 1)})
	if count, _ := second.Count(ctx); count != 0 {
		t.Fatalf("sessions must not share entries")
	}
	if _, err := open(ctx, " "); err == nil {
		t.Fatalf("expected error for blank session id")
	}
}
