package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

func entries(docID string, vectors ...[]float32) []domain.IndexEntry {
	out := make([]domain.IndexEntry, 0, len(vectors))
	for i, v := range vectors {
		id := fmt.Sprintf("%s_chunk_%d", docID, i)
		out = append(out, domain.IndexEntry{
			ID:     id,
			Vector: v,
			Text:   "text " + id,
			Metadata: domain.ChunkMetadata{
				ChunkID:    id,
				DocumentID: docID,
				ChunkIndex: i,
				Filename:   "a.txt",
			},
		})
	}
	return out
}

func TestCollectionNameStripsDashes(t *testing.T) {
	client := New("http://qdrant", "docqa")
	if got := client.CollectionName("1b4e28ba-2fa1-11d2-883f-0016d3cca427"); got != "docqa_1b4e28ba2fa111d2883f0016d3cca427" {
		t.Fatalf("unexpected collection name %q", got)
	}
}

func TestUpsertEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var points []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docqa_s1":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docqa_s1/points":
			var body struct {
				Points []map[string]any `json:"points"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			points = append(points, body.Points...)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	index, err := New(server.URL, "docqa").Open(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	batch := entries("doc-1", []float32{0.1, 0.2}, []float32{0.3, 0.4})
	if err := index.Upsert(context.Background(), batch); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	if err := index.Upsert(context.Background(), batch); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection once, got %d", got)
	}
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}
	payload, _ := points[0]["payload"].(map[string]any)
	if payload["chunk_id"] != "doc-1_chunk_0" || payload["document_id"] != "doc-1" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if points[0]["id"] != pointID("doc-1_chunk_0") || points[0]["id"] == points[1]["id"] {
		t.Fatalf("point ids must be stable and distinct: %v %v", points[0]["id"], points[1]["id"])
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/docqa_s1" {
			http.Error(w, "boom", http.StatusBadRequest)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	index, _ := New(server.URL, "docqa").Open(context.Background(), "s1")
	err := index.Upsert(context.Background(), entries("doc-1", []float32{0.1, 0.2}))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestQueryFiltersByDocumentAndConvertsScore(t *testing.T) {
	var filter map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docqa_s1/points/search" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		filter, _ = body["filter"].(map[string]any)
		_, _ = w.Write([]byte(`{"result":[{"score":0.75,"payload":{"chunk_id":"doc-1_chunk_2","document_id":"doc-1","chunk_index":2,"filename":"a.txt","text":"hello"}}]}`))
	}))
	defer server.Close()

	index, _ := New(server.URL, "docqa").Open(context.Background(), "s1")
	matches, err := index.Query(context.Background(), []float32{0.1, 0.2}, 5, "doc-1")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one match, got %d", len(matches))
	}
	m := matches[0]
	if m.Distance != 0.25 || m.Metadata.ChunkIndex != 2 || m.Text != "hello" || m.Metadata.DocumentID != "doc-1" {
		t.Fatalf("unexpected match %+v", m)
	}
	must, _ := filter["must"].([]any)
	if len(must) != 1 {
		t.Fatalf("expected document filter, got %v", filter)
	}
}

func TestMissingCollectionIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	index, _ := New(server.URL, "docqa").Open(context.Background(), "s1")
	ctx := context.Background()
	if matches, err := index.Query(ctx, []float32{1}, 5, ""); err != nil || len(matches) != 0 {
		t.Fatalf("Query() = %v, %v", matches, err)
	}
	if count, err := index.Count(ctx); err != nil || count != 0 {
		t.Fatalf("Count() = %d, %v", count, err)
	}
	if err := index.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := index.DeleteExcept(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteExcept() error = %v", err)
	}
}

func TestDeleteExceptUsesMustNot(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docqa_s1/points/delete" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	index, _ := New(server.URL, "docqa").Open(context.Background(), "s1")
	if err := index.DeleteExcept(context.Background(), "doc-2"); err != nil {
		t.Fatalf("DeleteExcept() error = %v", err)
	}
	filter, _ := body["filter"].(map[string]any)
	if _, ok := filter["must_not"]; !ok {
		t.Fatalf("expected must_not filter, got %v", body)
	}
}
