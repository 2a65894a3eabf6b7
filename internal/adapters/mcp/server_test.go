package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

type sessionFake struct {
	id       string
	language domain.LanguageCode
	backend  domain.Provider
	uploaded string
	cleared  bool
	statsErr error
}

func (f *sessionFake) ID() string { return f.id }

func (f *sessionFake) Upload(_ context.Context, upload domain.Upload) domain.UploadResult {
	if upload.Extension() == ".png" {
		return domain.UploadResult{Success: false, Status: "Unsupported file format"}
	}
	f.uploaded = upload.Filename
	return domain.UploadResult{Success: true, Status: "Document processed successfully!"}
}

func (f *sessionFake) Ask(_ context.Context, question string) domain.AskResult {
	if f.uploaded == "" {
		return domain.AskResult{Success: false, Error: "No document uploaded", Err: domain.ErrNoActiveDocument}
	}
	turn := &domain.ConversationTurn{}
	return domain.AskResult{Success: true, Answer: "30 days", Turn: turn}
}

func (f *sessionFake) Clear(context.Context) error {
	f.cleared = true
	f.uploaded = ""
	return nil
}

func (f *sessionFake) SetLanguage(code domain.LanguageCode) error {
	if code == "xx" {
		return domain.WrapError(domain.ErrUnsupportedLanguage, "set language", errors.New("language xx is not supported"))
	}
	f.language = code
	return nil
}

func (f *sessionFake) SetTranslationBackend(provider domain.Provider) (domain.BackendSwitch, error) {
	f.backend = provider
	return domain.BackendSwitch{Provider: provider, Language: "en"}, nil
}

func (f *sessionFake) LanguageOptions() []domain.LanguageOption {
	return []domain.LanguageOption{{Code: "en", Name: "English"}}
}

func (f *sessionFake) History() []domain.ConversationTurn { return nil }

func (f *sessionFake) Snapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{ID: f.id, Language: f.language, TranslationBackend: f.backend}
}

func (f *sessionFake) TranslateSummary(context.Context, domain.LanguageCode) (domain.SummaryTranslation, error) {
	return domain.SummaryTranslation{}, nil
}

func (f *sessionFake) Collection(context.Context) (domain.CollectionStats, error) {
	if f.statsErr != nil {
		return domain.CollectionStats{}, f.statsErr
	}
	return domain.CollectionStats{TotalChunks: 3}, nil
}

func (f *sessionFake) ServiceInfo() domain.ServiceInfo { return domain.ServiceInfo{ServiceType: f.backend} }

type directoryFake struct {
	session *sessionFake
	created int
	deleted []string
}

func (d *directoryFake) Create(context.Context) (ports.DocumentSession, error) {
	d.created++
	return d.session, nil
}

func (d *directoryFake) Get(string) (ports.DocumentSession, error) { return d.session, nil }

func (d *directoryFake) Delete(_ context.Context, id string) error {
	d.deleted = append(d.deleted, id)
	return nil
}

func (d *directoryFake) ArchivedTurns(context.Context, string, int) ([]domain.ConversationTurn, error) {
	return nil, nil
}

type adminFake struct{}

func (adminFake) BackendOptions() []domain.BackendOption { return nil }

func (adminFake) LanguageOptions(provider domain.Provider) []domain.LanguageOption {
	if provider == domain.ProviderLocal {
		return []domain.LanguageOption{{Code: "ur", Name: "Urdu"}}
	}
	return nil
}

func (adminFake) TestConnection(context.Context, domain.Provider) domain.ConnectionTest {
	return domain.ConnectionTest{}
}

func (adminFake) CacheStats(context.Context) (domain.CacheStats, error) { return domain.CacheStats{}, nil }

func (adminFake) ClearCache(context.Context, string) (int, error) { return 0, nil }

func newTestServer() (*Server, *directoryFake) {
	dir := &directoryFake{session: &sessionFake{id: "s1", language: "en", backend: domain.ProviderCloud}}
	s := NewServer(dir, adminFake{}, nil)
	s.readFile = func(path string) ([]byte, error) {
		if strings.Contains(path, "missing") {
			return nil, errors.New("no such file")
		}
		return []byte("content"), nil
	}
	return s, dir
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	content, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return content.Text
}

func TestUploadThenAsk(t *testing.T) {
	s, dir := newTestServer()
	ctx := context.Background()

	result, err := s.handleUpload(ctx, call(map[string]any{"path": "/tmp/docs/policy.pdf"}))
	if err != nil || result.IsError {
		t.Fatalf("upload = %v, %v", result, err)
	}
	if dir.session.uploaded != "policy.pdf" {
		t.Fatalf("expected base filename, got %q", dir.session.uploaded)
	}

	result, err = s.handleAsk(ctx, call(map[string]any{"question": "refund window?"}))
	if err != nil || result.IsError {
		t.Fatalf("ask = %v, %v", result, err)
	}
	if !strings.Contains(text(t, result), "30 days") {
		t.Fatalf("unexpected answer %q", text(t, result))
	}
	if dir.created != 1 {
		t.Fatalf("session must be created once, got %d", dir.created)
	}
}

func TestUploadErrors(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()

	result, _ := s.handleUpload(ctx, call(map[string]any{}))
	if !result.IsError {
		t.Fatalf("missing path must be a tool error")
	}
	result, _ = s.handleUpload(ctx, call(map[string]any{"path": "missing.pdf"}))
	if !result.IsError {
		t.Fatalf("unreadable file must be a tool error")
	}
	result, _ = s.handleUpload(ctx, call(map[string]any{"path": "image.png"}))
	if !result.IsError || !strings.Contains(text(t, result), "Unsupported file format") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAskWithoutDocumentIsToolError(t *testing.T) {
	s, _ := newTestServer()
	result, err := s.handleAsk(context.Background(), call(map[string]any{"question": "anything?"}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !result.IsError || text(t, result) != "No document uploaded" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSetLanguageAndBackend(t *testing.T) {
	s, dir := newTestServer()
	ctx := context.Background()

	result, _ := s.handleSetLanguage(ctx, call(map[string]any{"language": "xx"}))
	if !result.IsError || !strings.Contains(text(t, result), "xx") {
		t.Fatalf("expected unsupported language error, got %+v", result)
	}
	result, _ = s.handleSetLanguage(ctx, call(map[string]any{"language": "es"}))
	if result.IsError || dir.session.language != "es" {
		t.Fatalf("language not set: %+v", result)
	}

	result, _ = s.handleSetBackend(ctx, call(map[string]any{"backend": "deepl"}))
	if !result.IsError {
		t.Fatalf("unknown backend must be rejected")
	}
	result, _ = s.handleSetBackend(ctx, call(map[string]any{"backend": "nllb"}))
	if result.IsError || dir.session.backend != domain.ProviderLocal {
		t.Fatalf("backend not switched: %+v", result)
	}
}

func TestListLanguages(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()

	result, _ := s.handleListLanguages(ctx, call(map[string]any{"backend": "nllb"}))
	if !strings.Contains(text(t, result), "Urdu") {
		t.Fatalf("expected backend languages, got %q", text(t, result))
	}
	result, _ = s.handleListLanguages(ctx, call(map[string]any{}))
	if !strings.Contains(text(t, result), "English") {
		t.Fatalf("expected session languages, got %q", text(t, result))
	}
}

func TestStatusOmitsCollectionOnError(t *testing.T) {
	s, dir := newTestServer()
	ctx := context.Background()

	result, _ := s.handleStatus(ctx, call(nil))
	if !strings.Contains(text(t, result), `"total_chunks": 3`) {
		t.Fatalf("expected collection stats, got %q", text(t, result))
	}

	dir.session.statsErr = errors.New("qdrant down")
	result, _ = s.handleStatus(ctx, call(nil))
	if strings.Contains(text(t, result), "collection") {
		t.Fatalf("collection must be omitted, got %q", text(t, result))
	}
}

func TestClearAndCloseDeletesSession(t *testing.T) {
	s, dir := newTestServer()
	ctx := context.Background()

	if _, err := s.handleUpload(ctx, call(map[string]any{"path": "policy.txt"})); err != nil {
		t.Fatalf("upload error = %v", err)
	}
	result, _ := s.handleClear(ctx, call(nil))
	if result.IsError || !dir.session.cleared {
		t.Fatalf("clear failed: %+v", result)
	}

	s.close()
	if len(dir.deleted) != 1 || dir.deleted[0] != "s1" {
		t.Fatalf("expected session delete, got %v", dir.deleted)
	}
	s.close()
	if len(dir.deleted) != 1 {
		t.Fatalf("close must be idempotent")
	}
}
