// Package mcp exposes a document session to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

const Version = "0.1.0"

// Server owns a single session, created on first use; an MCP stdio client is one user.
type Server struct {
	sessions ports.SessionDirectory
	admin    ports.TranslationAdmin
	readFile func(string) ([]byte, error)
	logger   *slog.Logger
	mcp      *server.MCPServer

	mu      sync.Mutex
	session ports.DocumentSession
}

func NewServer(sessions ports.SessionDirectory, admin ports.TranslationAdmin, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sessions: sessions,
		admin:    admin,
		readFile: os.ReadFile,
		logger:   logger,
		mcp:      server.NewMCPServer("docqa", Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// Serve speaks MCP on in/out until ctx is canceled or in is closed, then drops the session.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	defer s.close()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}

func (s *Server) current(ctx context.Context) (ports.DocumentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session, nil
	}
	session, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("mcp_session_created", "session_id", session.ID())
	s.session = session
	return session, nil
}

func (s *Server) close() {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()
	if session == nil {
		return
	}
	if err := s.sessions.Delete(context.Background(), session.ID()); err != nil {
		s.logger.Warn("mcp_session_delete_failed", "session_id", session.ID(), "error", err)
	}
}

func (s *Server) uploadFile(ctx context.Context, path string) (domain.UploadResult, error) {
	data, err := s.readFile(path)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	session, err := s.current(ctx)
	if err != nil {
		return domain.UploadResult{}, err
	}
	return session.Upload(ctx, domain.Upload{Filename: filepath.Base(path), Data: data}), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(domain.ErrorMessage(err))
}
