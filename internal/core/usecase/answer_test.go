package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/language"
)

func TestAnswerBuildsGroundedPrompt(t *testing.T) {
	completer := &completerFake{text: "  Dos años.  ", tokens: 42}
	synth := NewAnswerSynthesizer(completer, language.MustNewRegistry(), 0, 0.3)
	chunks := []domain.RetrievedChunk{{Text: "The term is two years."}, {Text: "Payment is monthly."}}

	result := synth.Answer(context.Background(), "What is the term?", chunks, "es")
	if !result.Success || result.Answer != "Dos años." || result.TokensUsed != 42 || result.ModelUsed != "llm-test" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ContextChunksUsed != 2 {
		t.Fatalf("expected 2 context chunks, got %d", result.ContextChunksUsed)
	}

	req := completer.requests[0]
	if req.MaxTokens != 1000 || req.Temperature != 0.3 {
		t.Fatalf("unexpected generation params %+v", req)
	}
	if !strings.Contains(req.UserPrompt, "Context 1:\nThe term is two years.\n\nContext 2:\nPayment is monthly.") {
		t.Fatalf("context block missing or out of order:\n%s", req.UserPrompt)
	}
	if !strings.Contains(req.UserPrompt, "answer the user's question in Spanish") || !strings.Contains(req.UserPrompt, "Question: What is the term?") {
		t.Fatalf("unexpected user prompt:\n%s", req.UserPrompt)
	}
	if !strings.Contains(req.SystemPrompt, "clearly in Spanish") {
		t.Fatalf("unexpected system prompt:\n%s", req.SystemPrompt)
	}
}

func TestAnswerWithoutContext(t *testing.T) {
	completer := &completerFake{text: "unused"}
	synth := NewAnswerSynthesizer(completer, language.MustNewRegistry(), 1000, 0.3)

	result := synth.Answer(context.Background(), "q", nil, "en")
	if result.Success || result.Error != noContextError || result.Answer != noContextAnswer {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(completer.requests) != 0 {
		t.Fatalf("completer must not be called without context")
	}
}

func TestAnswerCompleterFailure(t *testing.T) {
	completer := &completerFake{err: errors.New("rate limited")}
	synth := NewAnswerSynthesizer(completer, language.MustNewRegistry(), 1000, 0.3)

	result := synth.Answer(context.Background(), "q", []domain.RetrievedChunk{{Text: "t"}}, "en")
	if result.Success || !domain.IsKind(result.Err, domain.ErrSynthesis) {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(result.Error, "rate limited") || len(completer.requests) != 1 {
		t.Fatalf("expected one attempt with raw error, got %q", result.Error)
	}
}

func TestSourcesPreview(t *testing.T) {
	long := strings.Repeat("x", 250)
	sources := Sources([]domain.RetrievedChunk{
		{Text: long, SimilarityScore: 0.8, Metadata: domain.ChunkMetadata{Filename: "a.pdf", ChunkIndex: 3}},
		{Text: "short"},
	})
	if sources[0].Preview != strings.Repeat("x", 200)+"..." || sources[0].ChunkIndex != 3 {
		t.Fatalf("unexpected source %+v", sources[0])
	}
	if sources[1].Filename != "Unknown" || sources[1].Preview != "short" {
		t.Fatalf("unexpected source %+v", sources[1])
	}
}
