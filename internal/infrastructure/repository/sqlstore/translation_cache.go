package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

type TranslationCacheRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewTranslationCacheRepository(db *sql.DB, dialect Dialect) *TranslationCacheRepository {
	return &TranslationCacheRepository{db: db, dialect: dialect}
}

func (r *TranslationCacheRepository) Get(ctx context.Context, key string) (*domain.TranslationCacheEntry, bool, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`
SELECT cache_key, content_hash, provider, translated_text, source_language, target_language, method
FROM translation_cache
WHERE cache_key = $1
`), key)

	var entry domain.TranslationCacheEntry
	var provider, source, target string
	err := row.Scan(&entry.Key, &entry.ContentHash, &provider, &entry.TranslatedText, &source, &target, &entry.Method)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	entry.Provider = domain.Provider(provider)
	entry.SourceLanguage = domain.LanguageCode(source)
	entry.TargetLanguage = domain.LanguageCode(target)
	return &entry, true, nil
}

func (r *TranslationCacheRepository) Put(ctx context.Context, entry domain.TranslationCacheEntry) error {
	size := len(entry.Key) + len(entry.TranslatedText) + len(entry.ContentHash)
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`
INSERT INTO translation_cache (
	cache_key, content_hash, provider, translated_text, source_language, target_language, method, size_bytes, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (cache_key) DO UPDATE SET
	content_hash = EXCLUDED.content_hash,
	provider = EXCLUDED.provider,
	translated_text = EXCLUDED.translated_text,
	source_language = EXCLUDED.source_language,
	target_language = EXCLUDED.target_language,
	method = EXCLUDED.method,
	size_bytes = EXCLUDED.size_bytes,
	created_at = EXCLUDED.created_at
`),
		entry.Key, entry.ContentHash, string(entry.Provider), entry.TranslatedText,
		string(entry.SourceLanguage), string(entry.TargetLanguage), entry.Method, int64(size), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Clear removes entries whose key contains pattern; an empty pattern removes all.
func (r *TranslationCacheRepository) Clear(ctx context.Context, pattern string) (int, error) {
	var (
		res sql.Result
		err error
	)
	if pattern == "" {
		res, err = r.db.ExecContext(ctx, `DELETE FROM translation_cache`)
	} else {
		res, err = r.db.ExecContext(ctx, r.dialect.rebind(`DELETE FROM translation_cache WHERE cache_key LIKE $1 ESCAPE '\'`), "%"+escapeLike(pattern)+"%")
	}
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear cache rows affected: %w", err)
	}
	return int(removed), nil
}

func (r *TranslationCacheRepository) Stats(ctx context.Context) (domain.CacheStats, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM translation_cache`)
	var count, total int64
	if err := row.Scan(&count, &total); err != nil {
		return domain.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return domain.CacheStats{
		TotalEntries:   int(count),
		TotalSizeBytes: total,
		TotalSizeMB:    math.Round(float64(total)/(1024*1024)*100) / 100,
		Location:       string(r.dialect) + ":translation_cache",
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
