package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func acceptCmd(repoPath *string) *cobra.Command {
	var (
		file   string
		commit bool
	)

	cmd := &cobra.Command{
		Use:   "accept <event-id>",
		Short: "Apply a fix for a drift event's related documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required: the replacement content for the related documentation file")
			}
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}

			repoRoot, err := absRepoRoot(*repoPath)
			if err != nil {
				return err
			}
			core, err := openCore(repoRoot, newLogger())
			if err != nil {
				return err
			}
			defer core.Close()

			if err := core.AcceptFix(cmd.Context(), args[0], string(content), commit); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accepted fix for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the file containing the replacement documentation content")
	cmd.Flags().BoolVar(&commit, "commit", false, "git add and commit the fixed file")
	return cmd
}
