// Package extractor routes uploads to a format-specific text extractor by file extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/extractor/docx"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/docqa-assistant/internal/infrastructure/extractor/xlsx"
)

// FormatExtractor handles one family of file formats.
type FormatExtractor interface {
	Extensions() []string
	Extract(ctx context.Context, raw []byte) (string, error)
}

type Dispatcher struct {
	byExt map[string]FormatExtractor
	exts  []string
}

// New registers PDF, Word, plain text and Excel extractors.
func New() *Dispatcher {
	return NewDispatcher(pdf.NewExtractor(), docx.NewExtractor(), plaintext.NewExtractor(), xlsx.NewExtractor())
}

func NewDispatcher(extractors ...FormatExtractor) *Dispatcher {
	d := &Dispatcher{byExt: make(map[string]FormatExtractor)}
	for _, ex := range extractors {
		for _, ext := range ex.Extensions() {
			ext = strings.ToLower(ext)
			if _, dup := d.byExt[ext]; dup {
				continue
			}
			d.byExt[ext] = ex
			d.exts = append(d.exts, ext)
		}
	}
	return d
}

func (d *Dispatcher) SupportedExtensions() []string {
	out := make([]string, len(d.exts))
	copy(out, d.exts)
	return out
}

func (d *Dispatcher) Extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ex, ok := d.byExt[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("unsupported file format: %s", ext))
	}
	text, err := ex.Extract(ctx, data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", ext, err)
	}
	return strings.TrimSpace(text), nil
}
