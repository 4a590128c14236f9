package main

import (
	"fmt"
	"os"

	"github.com/c360studio/docsentinel/config"
	"github.com/c360studio/docsentinel/docsentinel"
	"github.com/spf13/cobra"
)

func initCmd(repoPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .docsentinel store and default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, err := absRepoRoot(*repoPath)
			if err != nil {
				return err
			}

			configPath := resolveConfigPath(repoRoot)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := config.DefaultConfig().SaveToFile(configPath); err != nil {
					return fmt.Errorf("writing default config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			}

			core, err := openCore(repoRoot, newLogger())
			if err != nil {
				return err
			}
			defer core.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", docsentinel.StoreDir(repoRoot))
			return nil
		},
	}
}
