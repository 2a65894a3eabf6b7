package domain

import "time"

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

type Completion struct {
	Text       string
	TokensUsed int
	Model      string
}

type AnswerResult struct {
	Success           bool         `json:"success"`
	Answer            string       `json:"answer,omitempty"`
	TokensUsed        int          `json:"tokens_used"`
	ModelUsed         string       `json:"model_used,omitempty"`
	ContextChunksUsed int          `json:"context_chunks_used"`
	TargetLanguage    LanguageCode `json:"target_language"`
	Error             string       `json:"error,omitempty"`

	Err error `json:"-"`
}

type Source struct {
	Filename        string  `json:"filename"`
	ChunkIndex      int     `json:"chunk_index"`
	SimilarityScore float64 `json:"similarity_score"`
	Preview         string  `json:"preview"`
}

type AnswerMetadata struct {
	ChunksRetrieved int          `json:"chunks_retrieved"`
	TokensUsed      int          `json:"tokens_used"`
	ModelUsed       string       `json:"model_used,omitempty"`
	TargetLanguage  LanguageCode `json:"target_language"`
}

type ConversationTurn struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Sources   []Source       `json:"sources"`
	Metadata  AnswerMetadata `json:"metadata"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
