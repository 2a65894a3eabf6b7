package domain

const (
	MethodNoTranslation = "no_translation_needed"
	MethodCloud         = "google_cloud_translate"
	MethodLocal         = "nllb"
	cachedSuffix        = "_cached"
)

// CachedMethod tags a method as served from the translation cache.
func CachedMethod(method string) string {
	if method == "" {
		method = "cached"
	}
	return method + cachedSuffix
}

type TranslationResult struct {
	Success        bool         `json:"success"`
	TranslatedText string       `json:"translated_text,omitempty"`
	SourceLanguage LanguageCode `json:"source_language,omitempty"`
	TargetLanguage LanguageCode `json:"target_language,omitempty"`
	Method         string       `json:"method,omitempty"`
	Error          string       `json:"error,omitempty"`
	Index          int          `json:"index,omitempty"`

	Err error `json:"-"`
}

// FailedTranslation builds a failed result carrying the typed error.
func FailedTranslation(target LanguageCode, err error) TranslationResult {
	return TranslationResult{
		Success:        false,
		TargetLanguage: target,
		Error:          ErrorMessage(err),
		Err:            err,
	}
}

// TranslationCacheEntry is one persisted translation, keyed by CacheKey.
type TranslationCacheEntry struct {
	Key            string       `json:"key"`
	ContentHash    string       `json:"content_hash"`
	Provider       Provider     `json:"provider"`
	TranslatedText string       `json:"translated_text"`
	SourceLanguage LanguageCode `json:"source_language"`
	TargetLanguage LanguageCode `json:"target_language"`
	Method         string       `json:"method"`
}

type CacheStats struct {
	TotalEntries   int     `json:"total_files"`
	TotalSizeBytes int64   `json:"total_size_bytes"`
	TotalSizeMB    float64 `json:"total_size_mb"`
	Location       string  `json:"cache_directory"`
}

type ConnectionTest struct {
	Success        bool         `json:"success"`
	Message        string       `json:"message,omitempty"`
	Original       string       `json:"original,omitempty"`
	Translated     string       `json:"translated,omitempty"`
	TargetLanguage LanguageCode `json:"target_language,omitempty"`
	DetectedSource LanguageCode `json:"detected_source,omitempty"`
	Error          string       `json:"error,omitempty"`
}

type ServiceInfo struct {
	ActiveService      string   `json:"active_service"`
	ServiceType        Provider `json:"service_type"`
	SupportedLanguages int      `json:"supported_languages"`
	BackendLoaded      bool     `json:"backend_loaded"`
}

type SummaryTranslation struct {
	Success           bool         `json:"success"`
	TranslatedSummary string       `json:"translated_summary,omitempty"`
	SourceLanguage    LanguageCode `json:"source_language,omitempty"`
	TargetLanguage    LanguageCode `json:"target_language"`
	Error             string       `json:"error,omitempty"`
}
