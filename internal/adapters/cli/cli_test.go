package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

type sessionFake struct {
	id        string
	language  domain.LanguageCode
	backend   domain.Provider
	upload    domain.Upload
	uploadOK  bool
	questions []string
	summary   domain.SummaryTranslation
}

func (f *sessionFake) ID() string { return f.id }

func (f *sessionFake) Upload(_ context.Context, upload domain.Upload) domain.UploadResult {
	f.upload = upload
	if !f.uploadOK {
		return domain.UploadResult{Success: false, Status: "Unsupported file format"}
	}
	return domain.UploadResult{Success: true, Status: "Document processed successfully!"}
}

func (f *sessionFake) Ask(_ context.Context, question string) domain.AskResult {
	f.questions = append(f.questions, question)
	return domain.AskResult{
		Success: true,
		Answer:  "answer to " + question,
		Sources: []domain.Source{{Filename: f.upload.Filename, ChunkIndex: 0, SimilarityScore: 0.9, Preview: "Returns within 30 days."}},
	}
}

func (f *sessionFake) Clear(context.Context) error { return nil }

func (f *sessionFake) SetLanguage(code domain.LanguageCode) error {
	if code == "xx" {
		return domain.WrapError(domain.ErrUnsupportedLanguage, "set language", errors.New("xx"))
	}
	f.language = code
	return nil
}

func (f *sessionFake) SetTranslationBackend(provider domain.Provider) (domain.BackendSwitch, error) {
	f.backend = provider
	return domain.BackendSwitch{Provider: provider, Language: f.language, PreviousLanguage: f.language}, nil
}

func (f *sessionFake) LanguageOptions() []domain.LanguageOption { return nil }
func (f *sessionFake) History() []domain.ConversationTurn       { return nil }

func (f *sessionFake) Snapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{ID: f.id, Language: f.language, TranslationBackend: f.backend}
}

func (f *sessionFake) TranslateSummary(_ context.Context, target domain.LanguageCode) (domain.SummaryTranslation, error) {
	f.summary.TargetLanguage = target
	return f.summary, nil
}

func (f *sessionFake) Collection(context.Context) (domain.CollectionStats, error) {
	return domain.CollectionStats{}, nil
}

func (f *sessionFake) ServiceInfo() domain.ServiceInfo { return domain.ServiceInfo{} }

type directoryFake struct {
	session *sessionFake
	deleted []string
}

func (d *directoryFake) Create(context.Context) (ports.DocumentSession, error) {
	return d.session, nil
}

func (d *directoryFake) Get(id string) (ports.DocumentSession, error) {
	if id != d.session.id {
		return nil, domain.ErrSessionNotFound
	}
	return d.session, nil
}

func (d *directoryFake) Delete(_ context.Context, id string) error {
	d.deleted = append(d.deleted, id)
	return nil
}

func (d *directoryFake) ArchivedTurns(context.Context, string, int) ([]domain.ConversationTurn, error) {
	return nil, nil
}

type adminFake struct {
	pattern string
}

func (a *adminFake) BackendOptions() []domain.BackendOption {
	return []domain.BackendOption{
		{ID: domain.ProviderCloud, Name: "Google Cloud Translate"},
		{ID: domain.ProviderLocal, Name: "NLLB (Open Source)"},
	}
}

func (a *adminFake) LanguageOptions(provider domain.Provider) []domain.LanguageOption {
	if provider == domain.ProviderLocal {
		return []domain.LanguageOption{{Code: "en", Name: "English"}, {Code: "ur", Name: "Urdu"}}
	}
	return []domain.LanguageOption{{Code: "en", Name: "English"}}
}

func (a *adminFake) TestConnection(_ context.Context, provider domain.Provider) domain.ConnectionTest {
	if provider == domain.ProviderCloud {
		return domain.ConnectionTest{Success: false, Error: "missing credentials"}
	}
	return domain.ConnectionTest{Success: true, Original: "Hello", Translated: "Hola"}
}

func (a *adminFake) CacheStats(context.Context) (domain.CacheStats, error) {
	return domain.CacheStats{TotalEntries: 4, TotalSizeMB: 0.01, Location: "cache"}, nil
}

func (a *adminFake) ClearCache(_ context.Context, pattern string) (int, error) {
	a.pattern = pattern
	return 2, nil
}

func run(t *testing.T, deps Deps, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(deps)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func fileDeps(session *sessionFake) (Deps, *directoryFake) {
	dir := &directoryFake{session: session}
	return Deps{
		Sessions: dir,
		Admin:    &adminFake{},
		ReadFile: func(path string) ([]byte, error) {
			if strings.HasSuffix(path, "missing.txt") {
				return nil, fmt.Errorf("open %s: no such file", path)
			}
			return []byte("Returns within 30 days."), nil
		},
	}, dir
}

func TestAskUploadsAndPrintsAnswerWithSources(t *testing.T) {
	session := &sessionFake{id: "s1", language: "en", uploadOK: true}
	deps, dir := fileDeps(session)

	out, errOut, err := run(t, deps, "", "ask", "--language", "es", "--backend", "nllb", "docs/policy.txt", "refund window?")
	if err != nil {
		t.Fatalf("ask error = %v", err)
	}
	if session.upload.Filename != "policy.txt" {
		t.Fatalf("expected base filename, got %q", session.upload.Filename)
	}
	if session.language != "es" || session.backend != domain.ProviderLocal {
		t.Fatalf("flags not applied: %+v", session)
	}
	if !strings.Contains(out, "answer to refund window?") || !strings.Contains(out, "policy.txt chunk 0 (0.90)") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(errOut, "Document processed successfully!") {
		t.Fatalf("expected upload status on stderr, got %q", errOut)
	}
	if len(dir.deleted) != 1 || dir.deleted[0] != "s1" {
		t.Fatalf("session must be deleted after the command, got %v", dir.deleted)
	}
}

func TestAskRequiresTwoArgs(t *testing.T) {
	deps, _ := fileDeps(&sessionFake{id: "s1", uploadOK: true})
	if _, _, err := run(t, deps, "", "ask", "policy.txt"); err == nil {
		t.Fatalf("expected argument error")
	}
}

func TestAskReportsUploadFailure(t *testing.T) {
	deps, dir := fileDeps(&sessionFake{id: "s1", uploadOK: false})
	_, _, err := run(t, deps, "", "ask", "image.png", "what?")
	if err == nil || !strings.Contains(err.Error(), "Unsupported file format") {
		t.Fatalf("expected upload failure, got %v", err)
	}
	if len(dir.deleted) != 1 {
		t.Fatalf("failed upload must still delete the session")
	}
}

func TestAskRejectsUnsupportedLanguage(t *testing.T) {
	deps, _ := fileDeps(&sessionFake{id: "s1", uploadOK: true})
	_, _, err := run(t, deps, "", "ask", "--language", "xx", "policy.txt", "q")
	if !domain.IsKind(err, domain.ErrUnsupportedLanguage) {
		t.Fatalf("expected unsupported language, got %v", err)
	}
}

func TestAskMissingFile(t *testing.T) {
	deps, _ := fileDeps(&sessionFake{id: "s1", uploadOK: true})
	if _, _, err := run(t, deps, "", "ask", "missing.txt", "q"); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestChatAnswersUntilExit(t *testing.T) {
	session := &sessionFake{id: "s1", uploadOK: true}
	deps, _ := fileDeps(session)

	out, _, err := run(t, deps, "first?\n\nsecond?\nexit\nignored?\n", "chat", "policy.txt")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if len(session.questions) != 2 || session.questions[1] != "second?" {
		t.Fatalf("unexpected questions %v", session.questions)
	}
	if !strings.Contains(out, "answer to first?") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSummaryPrintsTranslation(t *testing.T) {
	session := &sessionFake{id: "s1", uploadOK: true, summary: domain.SummaryTranslation{Success: true, TranslatedSummary: "Resumen del documento"}}
	deps, _ := fileDeps(session)

	out, _, err := run(t, deps, "", "summary", "--target", "es", "policy.txt")
	if err != nil {
		t.Fatalf("summary error = %v", err)
	}
	if !strings.Contains(out, "Resumen del documento") || session.summary.TargetLanguage != "es" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLanguagesForBackend(t *testing.T) {
	deps, _ := fileDeps(&sessionFake{id: "s1"})
	out, _, err := run(t, deps, "", "languages", "--backend", "nllb")
	if err != nil {
		t.Fatalf("languages error = %v", err)
	}
	if !strings.Contains(out, "Urdu") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, _, err := run(t, deps, "", "languages", "--backend", "deepl"); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestBackendsWithConnectionTest(t *testing.T) {
	deps, _ := fileDeps(&sessionFake{id: "s1"})
	out, _, err := run(t, deps, "", "backends", "--test")
	if err != nil {
		t.Fatalf("backends error = %v", err)
	}
	if !strings.Contains(out, "fail  missing credentials") || !strings.Contains(out, `"Hello" -> "Hola"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCacheCommands(t *testing.T) {
	admin := &adminFake{}
	deps := Deps{Sessions: &directoryFake{session: &sessionFake{id: "s1"}}, Admin: admin}

	out, _, err := run(t, deps, "", "cache", "stats")
	if err != nil || !strings.Contains(out, "Entries:  4") {
		t.Fatalf("cache stats = %q, %v", out, err)
	}
	out, _, err = run(t, deps, "", "cache", "clear", "--pattern", "report")
	if err != nil || admin.pattern != "report" || !strings.Contains(out, "Removed 2") {
		t.Fatalf("cache clear = %q, %v", out, err)
	}
}

func TestCheckReportsProblems(t *testing.T) {
	deps := Deps{Validate: func() []error {
		return []error{errors.New("OpenAI API key is required")}
	}}
	out, _, err := run(t, deps, "", "check")
	if err == nil || !strings.Contains(out, "OpenAI API key is required") {
		t.Fatalf("check = %q, %v", out, err)
	}

	deps.Validate = func() []error { return nil }
	out, _, err = run(t, deps, "", "check")
	if err != nil || !strings.Contains(out, "Configuration OK") {
		t.Fatalf("check = %q, %v", out, err)
	}
}
