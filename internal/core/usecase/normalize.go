package usecase

import (
	"context"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

// SourceFile describes where raw text came from.
type SourceFile struct {
	Filename  string
	SizeBytes int64
	FileType  string
	MimeType  string
}

// DocumentNormalizer produces the canonical text that gets indexed.
type DocumentNormalizer struct{}

func NewDocumentNormalizer() *DocumentNormalizer {
	return &DocumentNormalizer{}
}

// Normalize translates rawText into target when its detected language
// differs. A failed translation keeps the original text and records the error.
func (n *DocumentNormalizer) Normalize(
	ctx context.Context,
	rawText string,
	file SourceFile,
	target domain.LanguageCode,
	router *TranslationRouter,
) domain.Document {
	doc := domain.Document{
		Filename:           file.Filename,
		SizeBytes:          file.SizeBytes,
		FileType:           file.FileType,
		MimeType:           file.MimeType,
		Text:               rawText,
		OriginalText:       rawText,
		TargetLanguage:     target,
		TranslationSuccess: true,
		TranslationStatus:  domain.TranslationNotNeeded,
	}

	if router != nil {
		detected, ok := router.DetectLanguage(rawText)
		if ok {
			doc.DetectedLanguage = detected
		}
		if ok && detected != target {
			doc.TranslationNeeded = true
			result := router.Translate(ctx, TranslateRequest{
				Text:      rawText,
				Target:    target,
				Source:    detected,
				CacheName: file.Filename,
			})
			doc.TranslationMethod = result.Method
			if result.Success {
				doc.Text = result.TranslatedText
				doc.TranslationStatus = domain.TranslationSucceeded
			} else {
				doc.TranslationSuccess = false
				doc.TranslationStatus = domain.TranslationFailed
				doc.TranslationError = result.Error
			}
		}
	}

	doc.WordCount = countWords(doc.Text)
	doc.CharCount = runeLen(doc.Text)
	doc.Pages = domain.EstimatePages(doc.WordCount)
	return doc
}
