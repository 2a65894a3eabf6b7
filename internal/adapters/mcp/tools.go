package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

type sessionStatus struct {
	Session    domain.SessionSnapshot  `json:"session"`
	Service    domain.ServiceInfo      `json:"service"`
	Collection *domain.CollectionStats `json:"collection,omitempty"`
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("upload_document",
		mcp.WithDescription("Upload a PDF, DOCX, XLSX or TXT file and make it the active document, replacing any previous one"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file on the server's filesystem")),
	), s.handleUpload)

	s.mcp.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Ask a question about the active document; the answer comes back in the session language with sources"),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question in any supported language")),
	), s.handleAsk)

	s.mcp.AddTool(mcp.NewTool("clear_document",
		mcp.WithDescription("Forget the active document and its index"),
	), s.handleClear)

	s.mcp.AddTool(mcp.NewTool("set_language",
		mcp.WithDescription("Set the language answers are returned in"),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language code such as en, es or ur")),
	), s.handleSetLanguage)

	s.mcp.AddTool(mcp.NewTool("set_translation_backend",
		mcp.WithDescription("Switch the translation backend; the language falls back to English if the new backend lacks it"),
		mcp.WithString("backend", mcp.Required(), mcp.Enum(string(domain.ProviderCloud), string(domain.ProviderLocal))),
	), s.handleSetBackend)

	s.mcp.AddTool(mcp.NewTool("list_languages",
		mcp.WithDescription("List supported languages for a backend, or for the session's backend when omitted"),
		mcp.WithString("backend", mcp.Enum(string(domain.ProviderCloud), string(domain.ProviderLocal))),
	), s.handleListLanguages)

	s.mcp.AddTool(mcp.NewTool("session_status",
		mcp.WithDescription("Show the session state, translation service and index size"),
	), s.handleStatus)
}

func (s *Server) handleUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.uploadFile(ctx, path)
	if err != nil {
		return errorResult(err), nil
	}
	if !result.Success {
		return mcp.NewToolResultError(result.Status), nil
	}
	return jsonResult(result)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session, err := s.current(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	result := session.Ask(ctx, question)
	if result.Notice != "" {
		return mcp.NewToolResultText(result.Notice), nil
	}
	if !result.Success && result.Turn == nil {
		return mcp.NewToolResultError(result.Error), nil
	}
	return jsonResult(result)
}

func (s *Server) handleClear(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.current(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if err := session.Clear(ctx); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText("Document cleared."), nil
}

func (s *Server) handleSetLanguage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	language, err := req.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	session, err := s.current(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if err := session.SetLanguage(domain.LanguageCode(language)); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Answers will be returned in %s.", language)), nil
}

func (s *Server) handleSetBackend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("backend")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	provider, ok := domain.ParseProvider(raw)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown translation backend %q", raw)), nil
	}
	session, err := s.current(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	switched, err := session.SetTranslationBackend(provider)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(switched)
}

func (s *Server) handleListLanguages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if raw := req.GetString("backend", ""); raw != "" {
		provider, ok := domain.ParseProvider(raw)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown translation backend %q", raw)), nil
		}
		return jsonResult(s.admin.LanguageOptions(provider))
	}
	session, err := s.current(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(session.LanguageOptions())
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.current(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	status := sessionStatus{Session: session.Snapshot(), Service: session.ServiceInfo()}
	if stats, err := session.Collection(ctx); err == nil {
		status.Collection = &stats
	} else {
		s.logger.Warn("mcp_collection_stats_failed", "session_id", session.ID(), "error", err)
	}
	return jsonResult(status)
}
