package domain

import "time"

type SessionStatus string

const (
	SessionEmpty      SessionStatus = "empty"
	SessionProcessing SessionStatus = "processing"
	SessionIndexed    SessionStatus = "indexed"
)

type UploadResult struct {
	Success  bool          `json:"success"`
	Status   string        `json:"status"`
	Degraded bool          `json:"degraded"`
	Document *Document     `json:"document,omitempty"`
	State    SessionStatus `json:"state"`
	Error    string        `json:"error,omitempty"`

	Err error `json:"-"`
}

type AskResult struct {
	Success  bool              `json:"success"`
	Answer   string            `json:"answer,omitempty"`
	Sources  []Source          `json:"sources,omitempty"`
	Metadata *AnswerMetadata   `json:"metadata,omitempty"`
	Notice   string            `json:"notice,omitempty"`
	Error    string            `json:"error,omitempty"`
	Turn     *ConversationTurn `json:"-"`

	Err error `json:"-"`
}

type SessionSnapshot struct {
	ID                 string        `json:"id"`
	State              SessionStatus `json:"state"`
	Document           *Document     `json:"document,omitempty"`
	Language           LanguageCode  `json:"language"`
	TranslationBackend Provider      `json:"translation_backend"`
	HistoryLength      int           `json:"history_length"`
	CreatedAt          time.Time     `json:"created_at"`
}

type BackendSwitch struct {
	Provider         Provider         `json:"provider"`
	Language         LanguageCode     `json:"language"`
	LanguageChanged  bool             `json:"language_changed"`
	PreviousLanguage LanguageCode     `json:"previous_language"`
	Languages        []LanguageOption `json:"languages"`
}

type SessionEventType string

const (
	EventDocumentIndexed  SessionEventType = "document.indexed"
	EventDocumentCleared  SessionEventType = "document.cleared"
	EventBackendSwitched  SessionEventType = "backend.switched"
	EventQuestionAnswered SessionEventType = "question.answered"
)

type SessionEvent struct {
	Type       SessionEventType `json:"type"`
	SessionID  string           `json:"session_id"`
	DocumentID string           `json:"document_id,omitempty"`
	Filename   string           `json:"filename,omitempty"`
	Chunks     int              `json:"chunks,omitempty"`
	Provider   Provider         `json:"provider,omitempty"`
	Success    bool             `json:"success"`
	OccurredAt time.Time        `json:"occurred_at"`
}
