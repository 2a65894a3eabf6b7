package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/language"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

const (
	defaultAnswerMaxTokens   = 1000
	defaultAnswerTemperature = 0.3
	sourcePreviewChars       = 200

	noContextError  = "No relevant information found in the document"
	noContextAnswer = "I couldn't find relevant information in the uploaded document to answer your question."
)

type AnswerSynthesizer struct {
	completer   ports.Completer
	registry    *language.Registry
	maxTokens   int
	temperature float64
}

func NewAnswerSynthesizer(completer ports.Completer, registry *language.Registry, maxTokens int, temperature float64) *AnswerSynthesizer {
	if maxTokens <= 0 {
		maxTokens = defaultAnswerMaxTokens
	}
	if temperature < 0 {
		temperature = defaultAnswerTemperature
	}
	return &AnswerSynthesizer{
		completer:   completer,
		registry:    registry,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Answer asks the completer once. Retries belong to the completer transport.
func (s *AnswerSynthesizer) Answer(ctx context.Context, query string, chunks []domain.RetrievedChunk, target domain.LanguageCode) domain.AnswerResult {
	if len(chunks) == 0 {
		err := domain.WrapError(domain.ErrSynthesis, "answer", errors.New(noContextError))
		return domain.AnswerResult{
			Success:        false,
			Answer:         noContextAnswer,
			TargetLanguage: target,
			Error:          noContextError,
			Err:            err,
		}
	}

	languageName := s.registry.LanguageName(target)
	completion, err := s.completer.Complete(ctx, domain.CompletionRequest{
		SystemPrompt: buildSystemPrompt(languageName),
		UserPrompt:   buildAnswerPrompt(query, buildContext(chunks), languageName),
		MaxTokens:    s.maxTokens,
		Temperature:  s.temperature,
	})
	if err != nil {
		wrapped := domain.WrapError(domain.ErrSynthesis, "complete", err)
		return domain.AnswerResult{
			Success:           false,
			ContextChunksUsed: len(chunks),
			TargetLanguage:    target,
			Error:             fmt.Sprintf("Failed to generate answer: %v", err),
			Err:               wrapped,
		}
	}

	return domain.AnswerResult{
		Success:           true,
		Answer:            strings.TrimSpace(completion.Text),
		TokensUsed:        completion.TokensUsed,
		ModelUsed:         completion.Model,
		ContextChunksUsed: len(chunks),
		TargetLanguage:    target,
	}
}

// Sources lists chunk attributions in retrieval order.
func Sources(chunks []domain.RetrievedChunk) []domain.Source {
	out := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		filename := chunk.Metadata.Filename
		if filename == "" {
			filename = "Unknown"
		}
		out = append(out, domain.Source{
			Filename:        filename,
			ChunkIndex:      chunk.Metadata.ChunkIndex,
			SimilarityScore: chunk.SimilarityScore,
			Preview:         preview(chunk.Text, sourcePreviewChars),
		})
	}
	return out
}

func buildContext(chunks []domain.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("Context %d:\n%s\n", i+1, chunk.Text))
	}
	return strings.Join(parts, "\n")
}

func buildAnswerPrompt(query, context, languageName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following context from the uploaded document, please answer the user's question in %s.\n\n", languageName)
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("1. Answer based only on the information provided in the context\n")
	b.WriteString("2. If the context doesn't contain enough information, say so clearly\n")
	fmt.Fprintf(&b, "3. Respond in %s\n", languageName)
	b.WriteString("4. Be precise and helpful\n")
	b.WriteString("5. Include relevant details from the context\n\n")
	b.WriteString("Answer:")
	return b.String()
}

func buildSystemPrompt(languageName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful multilingual document assistant. Your task is to answer questions about uploaded documents accurately and clearly in %s.\n\n", languageName)
	b.WriteString("Key guidelines:\n")
	b.WriteString("- Answer based only on the provided document context\n")
	b.WriteString("- Be accurate and precise\n")
	b.WriteString("- If information is not in the document, clearly state that\n")
	fmt.Fprintf(&b, "- Respond in %s\n", languageName)
	b.WriteString("- Be helpful and professional\n")
	b.WriteString("- Cite specific parts of the document when relevant")
	return b.String()
}
