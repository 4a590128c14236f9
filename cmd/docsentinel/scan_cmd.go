package main

import (
	"fmt"
	"os"

	"github.com/c360studio/docsentinel/docsentinel"
	"github.com/spf13/cobra"
)

func scanCmd(repoPath *string) *cobra.Command {
	var (
		mode           string
		from, to       string
		withLLM        bool
		includePrivate bool
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the repository for semantic drift between code and documentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := absRepoRoot(*repoPath)
			if err != nil {
				return err
			}
			core, err := openCore(repoRoot, newLogger())
			if err != nil {
				return err
			}
			defer core.Close()

			scanMode, err := parseMode(mode)
			if err != nil {
				return err
			}

			rec, events, diag, err := core.Scan(cmd.Context(), docsentinel.ScanOptions{
				Mode:           scanMode,
				From:           from,
				To:             to,
				WithLLM:        withLLM,
				IncludePrivate: includePrivate,
			})
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			for _, w := range diag.ExtractionWarnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			for _, w := range diag.EmbeddingProviderFails {
				fmt.Fprintf(os.Stderr, "warning: embedding provider: %s\n", w)
			}
			if diag.EnrichmentFailures > 0 {
				fmt.Fprintf(os.Stderr, "warning: %d enrichment call(s) failed\n", diag.EnrichmentFailures)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scan %s: %s..%s, %d event(s)\n", rec.ID, rec.FromRev, rec.ToRev, rec.EventCount)

			if asJSON {
				if err := writeEventsJSON(cmd.OutOrStdout(), events); err != nil {
					return err
				}
			} else {
				printEventsText(cmd.OutOrStdout(), events)
			}

			exitCode = exitCodeForEvents(events)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "since-last-scan", "scan mode: full, range, uncommitted, since-last-scan")
	cmd.Flags().StringVar(&from, "from", "", "range start revision (mode=range)")
	cmd.Flags().StringVar(&to, "to", "", "range end revision (mode=range; defaults to HEAD)")
	cmd.Flags().BoolVar(&withLLM, "with-llm", false, "enrich pending events via the configured LLM")
	cmd.Flags().BoolVar(&includePrivate, "include-private", false, "include private/unexported symbols")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON")
	return cmd
}

func parseMode(s string) (docsentinel.Mode, error) {
	switch s {
	case "full":
		return docsentinel.ModeFull, nil
	case "range":
		return docsentinel.ModeRange, nil
	case "uncommitted":
		return docsentinel.ModeUncommitted, nil
	case "since-last-scan", "":
		return docsentinel.ModeSinceLastScan, nil
	default:
		return "", fmt.Errorf("unknown scan mode %q", s)
	}
}
