package pdf

import (
	"context"
	"testing"
)

func TestExtractRejectsNonPDF(t *testing.T) {
	if _, err := NewExtractor().Extract(context.Background(), []byte("plain words, not a pdf")); err == nil {
		t.Fatalf("expected error for non-pdf input")
	}
}

func TestExtensions(t *testing.T) {
	got := NewExtractor().Extensions()
	if len(got) != 1 || got[0] != ".pdf" {
		t.Fatalf("unexpected extensions %v", got)
	}
}
