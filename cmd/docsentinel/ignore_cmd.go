package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func ignoreCmd(repoPath *string) *cobra.Command {
	var (
		reason    string
		permanent bool
	)

	cmd := &cobra.Command{
		Use:   "ignore <event-id>",
		Short: "Suppress a drift event",
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

			if err := core.IgnoreEvent(cmd.Context(), args[0], reason, permanent); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ignored %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why this event is being ignored")
	cmd.Flags().BoolVar(&permanent, "permanent", false, "suppress this (kind, code, doc) tuple on every future scan, not just until the next commit")
	return cmd
}
