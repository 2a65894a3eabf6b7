package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extensions() []string {
	return []string{".txt"}
}

// Extract decodes raw bytes as UTF-8 when valid and otherwise sniffs the
// encoding (BOM first, then a windows-1252 fallback).
func (e *Extractor) Extract(_ context.Context, raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return strings.TrimSpace(string(raw)), nil
	}

	enc, name, _ := charset.DetermineEncoding(raw, "text/plain")
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("decode %s text: %w", name, err)
	}
	text := strings.TrimPrefix(string(decoded), "\ufeff")
	return strings.TrimSpace(text), nil
}
