// Package cli is the docqa command line: one throwaway session per command.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
	"github.com/kirillkom/docqa-assistant/internal/core/ports"
)

type Deps struct {
	Sessions ports.SessionDirectory
	Admin    ports.TranslationAdmin
	// Validate reports configuration problems for `docqa check`.
	Validate func() []error
	// ReadFile defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
}

type sessionFlags struct {
	language string
	backend  string
}

func NewRootCommand(deps Deps) *cobra.Command {
	if deps.ReadFile == nil {
		deps.ReadFile = os.ReadFile
	}

	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about a document in any language",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newAskCommand(deps),
		newChatCommand(deps),
		newSummaryCommand(deps),
		newLanguagesCommand(deps),
		newBackendsCommand(deps),
		newCacheCommand(deps),
		newCheckCommand(deps),
	)
	return root
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "answer language code (default from configuration)")
	cmd.Flags().StringVarP(&f.backend, "backend", "b", "", "translation backend: google_cloud or nllb")
}

// openDocument creates a session with the requested backend and language and
// uploads path into it. The caller must call the returned cleanup.
func openDocument(ctx context.Context, cmd *cobra.Command, deps Deps, flags sessionFlags, path string) (ports.DocumentSession, func(), error) {
	data, err := deps.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	session, err := deps.Sessions.Create(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	cleanup := func() {
		_ = deps.Sessions.Delete(context.WithoutCancel(ctx), session.ID())
	}

	if flags.backend != "" {
		provider, ok := domain.ParseProvider(flags.backend)
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf("unknown translation backend %q", flags.backend)
		}
		switched, err := session.SetTranslationBackend(provider)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if switched.LanguageChanged {
			cmd.PrintErrf("Language %s is not supported by %s, using %s\n", switched.PreviousLanguage, provider, switched.Language)
		}
	}
	if flags.language != "" {
		if err := session.SetLanguage(domain.LanguageCode(flags.language)); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	result := session.Upload(ctx, domain.Upload{Filename: filepath.Base(path), Data: data})
	if !result.Success {
		cleanup()
		return nil, nil, fmt.Errorf("%s", result.Status)
	}
	cmd.PrintErrln(result.Status)
	return session, cleanup, nil
}

func printAnswer(cmd *cobra.Command, result domain.AskResult) {
	if result.Notice != "" {
		cmd.Println(result.Notice)
		return
	}
	if !result.Success {
		if result.Answer != "" {
			cmd.Println(result.Answer)
		}
		cmd.PrintErrf("Error: %s\n", result.Error)
		return
	}
	cmd.Println(result.Answer)
	if len(result.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, source := range result.Sources {
		cmd.Printf("  [%d] %s chunk %d (%.2f)\n", i+1, source.Filename, source.ChunkIndex, source.SimilarityScore)
		cmd.Printf("      %s\n", source.Preview)
	}
}
