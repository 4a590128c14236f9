package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c360studio/docsentinel/config"
	"github.com/c360studio/docsentinel/docsentinel"
)

// exit codes per the documented host-CLI mapping: no pending high+ events,
// pending High, pending Critical, fatal configuration/store error.
const (
	exitClean           = 0
	exitPendingHigh     = 1
	exitPendingCritical = 2
	exitFatal           = 3
)

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if isatty(os.Stderr) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// resolveConfigPath returns the conventional config.toml path under a
// repository's store directory.
func resolveConfigPath(repoRoot string) string {
	return filepath.Join(docsentinel.StoreDir(repoRoot), "config.toml")
}

func loadConfig(repoRoot string) (*config.Config, error) {
	path := resolveConfigPath(repoRoot)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

func absRepoRoot(repoPath string) (string, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return "", fmt.Errorf("resolving repository path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

func openCore(repoRoot string, logger *slog.Logger) (*docsentinel.Core, error) {
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	core, err := docsentinel.Init(repoRoot, cfg, docsentinel.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("initializing docsentinel: %w", err)
	}
	return core, nil
}
