// Package main provides the docsentinel binary entry point: a thin Cobra
// wrapper over the docsentinel package's core API. It carries no business
// logic of its own.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "docsentinel"

// exitCode is set by a subcommand's RunE when it wants to signal something
// other than success without itself calling os.Exit mid-command.
var exitCode = exitClean

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFatal)
	}
	os.Exit(exitCode)
}

func rootCmd() *cobra.Command {
	var repoPath string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Semantic drift detection between source code and documentation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&repoPath, "repo", ".", "repository path to operate on")

	cmd.AddCommand(
		initCmd(&repoPath),
		scanCmd(&repoPath),
		eventsCmd(&repoPath),
		acceptCmd(&repoPath),
		ignoreCmd(&repoPath),
		analyzeCmd(&repoPath),
	)
	return cmd
}
