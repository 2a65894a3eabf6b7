package domain

import (
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// Upload is the file handed over by a presentation layer.
type Upload struct {
	Filename string
	Data     []byte
}

func (u Upload) Size() int64 {
	return int64(len(u.Data))
}

func (u Upload) Extension() string {
	return strings.ToLower(filepath.Ext(u.Filename))
}

// MimeType guesses the content type from the extension; empty when unknown.
func (u Upload) MimeType() string {
	return mime.TypeByExtension(u.Extension())
}

type TranslationStatus string

const (
	TranslationNotNeeded TranslationStatus = "not_needed"
	TranslationSucceeded TranslationStatus = "succeeded"
	TranslationFailed    TranslationStatus = "failed"
)

type Document struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	FileType  string `json:"file_type"`
	MimeType  string `json:"mime_type,omitempty"`

	Text         string `json:"-"`
	OriginalText string `json:"-"`

	DetectedLanguage   LanguageCode      `json:"detected_language,omitempty"`
	TargetLanguage     LanguageCode      `json:"target_language"`
	TranslationNeeded  bool              `json:"translation_needed"`
	TranslationSuccess bool              `json:"translation_success"`
	TranslationStatus  TranslationStatus `json:"translation_status"`
	TranslationMethod  string            `json:"translation_method,omitempty"`
	TranslationError   string            `json:"translation_error,omitempty"`

	WordCount int `json:"word_count"`
	CharCount int `json:"char_count"`
	Pages     int `json:"pages"`

	DocumentID  string    `json:"document_id,omitempty"`
	ChunksCount int       `json:"chunks_count,omitempty"`
	IndexedAt   time.Time `json:"indexed_at,omitempty"`
}

// EstimatePages assumes 250 words per page with a floor of one page.
func EstimatePages(words int) int {
	pages := words / 250
	if pages < 1 {
		return 1
	}
	return pages
}
