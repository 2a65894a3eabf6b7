package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

// Store is an in-process vector index using brute-force cosine similarity.
// Each session gets a private Store.
type Store struct {
	name string

	mu        sync.RWMutex
	dimension int
	entries   []domain.IndexEntry
}

func NewStore(name string) *Store {
	return &Store{name: name}
}

// NewFactory opens a fresh Store per session.
func NewFactory(prefix string) ports.VectorIndexFactory {
	if prefix == "" {
		prefix = "docqa"
	}
	return func(_ context.Context, sessionID string) (ports.VectorIndex, error) {
		if strings.TrimSpace(sessionID) == "" {
			return nil, fmt.Errorf("session id is required")
		}
		return NewStore(prefix + "_" + strings.ReplaceAll(sessionID, "-", "")), nil
	}
}

func (s *Store) Name() string {
	return s.name
}

// Upsert replaces entries with the same id and appends the rest.
func (s *Store) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if len(entry.Vector) == 0 {
			return fmt.Errorf("empty vector for %s", entry.ID)
		}
		if s.dimension == 0 {
			s.dimension = len(entry.Vector)
		}
		if len(entry.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for %s: %d != %d", entry.ID, len(entry.Vector), s.dimension)
		}
	}

	positions := make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		positions[e.ID] = i
	}
	for _, entry := range entries {
		entry.Vector = append([]float32(nil), entry.Vector...)
		if i, ok := positions[entry.ID]; ok {
			s.entries[i] = entry
			continue
		}
		positions[entry.ID] = len(s.entries)
		s.entries = append(s.entries, entry)
	}
	return nil
}

func (s *Store) Query(_ context.Context, vector []float32, topK int, documentID string) ([]domain.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 5
	}
	matches := make([]domain.VectorMatch, 0, len(s.entries))
	for _, e := range s.entries {
		if documentID != "" && e.Metadata.DocumentID != documentID {
			continue
		}
		matches = append(matches, domain.VectorMatch{
			ID:       e.ID,
			Text:     e.Text,
			Metadata: e.Metadata,
			Distance: 1 - cosine(e.Vector, vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Store) DeleteDocument(_ context.Context, documentID string) error {
	s.retain(func(e domain.IndexEntry) bool { return e.Metadata.DocumentID != documentID })
	return nil
}

func (s *Store) DeleteExcept(_ context.Context, documentID string) error {
	s.retain(func(e domain.IndexEntry) bool { return e.Metadata.DocumentID == documentID })
	return nil
}

func (s *Store) retain(keep func(domain.IndexEntry) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	if len(s.entries) == 0 {
		s.dimension = 0
	}
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.dimension = 0
	return nil
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
