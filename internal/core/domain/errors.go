package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrExtraction          = errors.New("text extraction failed")
	ErrTranslation         = errors.New("translation failed")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrBackendUnavailable  = errors.New("translation backend unavailable")
	ErrIndexing            = errors.New("indexing failed")
	ErrSynthesis           = errors.New("answer generation failed")
	ErrNoActiveDocument    = errors.New("no active document")
	ErrSessionNotFound     = errors.New("session not found")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ErrorMessage returns err's text or "" for nil.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
