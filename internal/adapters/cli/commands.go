package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

func newAskCommand(deps Deps) *cobra.Command {
	var flags sessionFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask FILE QUESTION",
		Short: "Upload a document and answer one question about it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, cleanup, err := openDocument(ctx, cmd, deps, flags, args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			result := session.Ask(ctx, args[1])
			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal answer: %w", err)
				}
				cmd.Println(string(data))
			} else {
				printAnswer(cmd, result)
			}
			if !result.Success {
				return errors.New("question was not answered")
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer as JSON")
	return cmd
}

func newChatCommand(deps Deps) *cobra.Command {
	var flags sessionFlags
	cmd := &cobra.Command{
		Use:   "chat FILE",
		Short: "Upload a document and ask questions until EOF or \"exit\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, cleanup, err := openDocument(ctx, cmd, deps, flags, args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				cmd.Print("> ")
				if !scanner.Scan() {
					cmd.Println()
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "/clear":
					if err := session.Clear(ctx); err != nil {
						cmd.PrintErrf("Error: %v\n", err)
					}
					cmd.Println("Document cleared.")
					continue
				}
				printAnswer(cmd, session.Ask(ctx, line))
				cmd.Println()
			}
		},
	}
	flags.register(cmd)
	return cmd
}

func newSummaryCommand(deps Deps) *cobra.Command {
	var flags sessionFlags
	var target string
	cmd := &cobra.Command{
		Use:   "summary FILE",
		Short: "Translate a short summary of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, cleanup, err := openDocument(ctx, cmd, deps, flags, args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := session.TranslateSummary(ctx, domain.LanguageCode(target))
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("summary translation failed: %s", result.Error)
			}
			cmd.Println(result.TranslatedSummary)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&target, "target", "t", "", "summary language code (default: session language)")
	return cmd
}

func newLanguagesCommand(deps Deps) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the languages a translation backend supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, ok := domain.ParseProvider(backend)
			if !ok {
				return fmt.Errorf("unknown translation backend %q", backend)
			}
			for _, option := range deps.Admin.LanguageOptions(provider) {
				cmd.Printf("%-8s %s\n", option.Code, option.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&backend, "backend", "b", string(domain.ProviderCloud), "translation backend: google_cloud or nllb")
	return cmd
}

func newBackendsCommand(deps Deps) *cobra.Command {
	var test bool
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List translation backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, option := range deps.Admin.BackendOptions() {
				if !test {
					cmd.Printf("%-14s %s\n", option.ID, option.Name)
					continue
				}
				result := deps.Admin.TestConnection(cmd.Context(), option.ID)
				if result.Success {
					cmd.Printf("%-14s ok    %q -> %q\n", option.ID, result.Original, result.Translated)
				} else {
					cmd.Printf("%-14s fail  %s\n", option.ID, result.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&test, "test", false, "translate a probe text through every backend")
	return cmd
}

func newCacheCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the translation cache",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show translation cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := deps.Admin.CacheStats(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Entries:  %d\n", s.TotalEntries)
			cmd.Printf("Size:     %.2f MB\n", s.TotalSizeMB)
			cmd.Printf("Location: %s\n", s.Location)
			return nil
		},
	}

	var pattern string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached translations whose key contains a pattern (all by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := deps.Admin.ClearCache(cmd.Context(), pattern)
			if err != nil {
				return err
			}
			cmd.Printf("Removed %d cached translation(s)\n", removed)
			return nil
		},
	}
	clearCmd.Flags().StringVarP(&pattern, "pattern", "p", "", "only remove keys containing this text")

	cmd.AddCommand(stats, clearCmd)
	return cmd
}

func newCheckCommand(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if deps.Validate == nil {
				cmd.Println("Configuration OK")
				return nil
			}
			problems := deps.Validate()
			if len(problems) == 0 {
				cmd.Println("Configuration OK")
				return nil
			}
			for _, problem := range problems {
				cmd.Printf("- %v\n", problem)
			}
			return fmt.Errorf("%d configuration problem(s)", len(problems))
		},
	}
}
