package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func analyzeCmd(repoPath *string) *cobra.Command {
	var (
		withDocs       bool
		withSimilarity bool
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Inspect one file's live chunks, documentation mentions, and embedding similarity",
		Args:  cobra.ExactArgs(1),
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

			report, err := core.Analyze(cmd.Context(), args[0], withDocs, withSimilarity)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d code chunk(s)\n", report.Target, len(report.CodeChunks))
			for _, cc := range report.CodeChunks {
				fmt.Fprintf(out, "  %s\n", cc.QualifiedName)
				if withDocs {
					for _, dc := range report.MatchingDocs[cc.Identity()] {
						fmt.Fprintf(out, "    mentioned in %s %v\n", dc.Path, dc.HeadingPath)
					}
				}
				if withSimilarity {
					for _, s := range report.Similarities[cc.Identity()] {
						fmt.Fprintf(out, "    nearest doc %s (score %.3f)\n", s.Identity, s.Score)
					}
					if pn, ok := report.PriorNearest[cc.Identity()]; ok {
						fmt.Fprintf(out, "    prior nearest %s (similarity %.3f)\n", pn.DocIdentity, pn.Similarity)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withDocs, "docs", false, "include documentation mentions")
	cmd.Flags().BoolVar(&withSimilarity, "similarity", false, "include embedding similarity to the nearest documentation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
