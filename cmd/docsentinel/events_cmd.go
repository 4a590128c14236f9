package main

import (
	"github.com/c360studio/docsentinel/drift"
	"github.com/c360studio/docsentinel/store"
	"github.com/spf13/cobra"
)

func eventsCmd(repoPath *string) *cobra.Command {
	var (
		status string
		kind   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List stored drift events",
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

			filter := store.EventFilter{
				Status: drift.Status(status),
				Kind:   drift.Kind(kind),
			}
			events, err := core.Events(cmd.Context(), filter)
			if err != nil {
				return err
			}

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

	cmd.Flags().StringVar(&status, "status", "", "filter by status: pending, accepted, ignored, fixed")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by rule kind")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON")
	return cmd
}
