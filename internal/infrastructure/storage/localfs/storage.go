// Package localfs keeps translation cache entries as one JSON file per key.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

const fileSuffix = ".json"

type Storage struct {
	basePath string
	mu       sync.RWMutex
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./cache"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.basePath, key+fileSuffix), nil
}

func (s *Storage) Get(_ context.Context, key string) (*domain.TranslationCacheEntry, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	raw, err := os.ReadFile(path)
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}

	var entry domain.TranslationCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cache file %s: %w", filepath.Base(path), err)
	}
	return &entry, true, nil
}

// Put writes through a temp file so readers never see a partial entry.
func (s *Storage) Put(_ context.Context, entry domain.TranslationCacheEntry) error {
	path, err := s.path(entry.Key)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.basePath, ".entry-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Clear removes entries whose key contains pattern; an empty pattern removes all.
func (s *Storage) Clear(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.entries()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, file := range files {
		key := strings.TrimSuffix(file.Name(), fileSuffix)
		if pattern != "" && !strings.Contains(key, pattern) {
			continue
		}
		if err := os.Remove(filepath.Join(s.basePath, file.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove cache file: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *Storage) Stats(_ context.Context) (domain.CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.entries()
	if err != nil {
		return domain.CacheStats{}, err
	}
	var total int64
	for _, file := range files {
		info, err := file.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return domain.CacheStats{
		TotalEntries:   len(files),
		TotalSizeBytes: total,
		TotalSizeMB:    math.Round(float64(total)/(1024*1024)*100) / 100,
		Location:       s.basePath,
	}, nil
}

func (s *Storage) entries() ([]os.DirEntry, error) {
	all, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	out := all[:0]
	for _, entry := range all {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), fileSuffix) {
			out = append(out, entry)
		}
	}
	return out, nil
}
