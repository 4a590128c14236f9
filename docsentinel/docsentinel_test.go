package docsentinel_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/c360studio/docsentinel/config"
	"github.com/c360studio/docsentinel/docsentinel"
	"github.com/c360studio/docsentinel/drift"
	"github.com/c360studio/docsentinel/store"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test User")
	return dir
}

func writeAndCommit(t *testing.T, dir, path, content, message string) {
	t.Helper()
	full := filepath.Join(dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	cmd := exec.Command("git", "add", ".")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())
	cmd = exec.Command("git", "commit", "-m", message)
	cmd.Dir = dir
	require.NoError(t, cmd.Run())
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	// Soft rules off: mock vectors are hash-derived, so every changed chunk
	// would also draw a LowSimilarity event; these tests check hard rules.
	cfg.Drift.TopK = 0
	return cfg
}

func TestInitCreatesStore(t *testing.T) {
	dir := setupRepo(t)
	core, err := docsentinel.Init(dir, testConfig(), docsentinel.Options{})
	require.NoError(t, err)
	defer core.Close()

	require.DirExists(t, docsentinel.StoreDir(dir))
}

func TestScanFullFlagsUndocumentedSymbol(t *testing.T) {
	dir := setupRepo(t)
	writeAndCommit(t, dir, "lib.py", "def compute_total(items):\n    return sum(items)\n", "feat: add compute_total")

	core, err := docsentinel.Init(dir, testConfig(), docsentinel.Options{})
	require.NoError(t, err)
	defer core.Close()

	_, events, diag, err := core.Scan(context.Background(), docsentinel.ScanOptions{Mode: docsentinel.ModeFull})
	require.NoError(t, err)
	require.Empty(t, diag.ExtractionWarnings)
	require.Len(t, events, 1)
	require.Equal(t, drift.KindSymbolAdded, events[0].Kind)
	require.Equal(t, drift.StatusPending, events[0].Status)
}

func TestScanDocumentedSymbolProducesNoEvent(t *testing.T) {
	dir := setupRepo(t)
	writeAndCommit(t, dir, "lib.py", "def compute_total(items):\n    return sum(items)\n", "feat: add compute_total")
	writeAndCommit(t, dir, "README.md", "# Library\n\n## compute_total\n\nSums a list of items.\n", "docs: document compute_total")

	core, err := docsentinel.Init(dir, testConfig(), docsentinel.Options{})
	require.NoError(t, err)
	defer core.Close()

	_, events, _, err := core.Scan(context.Background(), docsentinel.ScanOptions{Mode: docsentinel.ModeFull})
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestRescanAtSameRevisionIsIdempotent(t *testing.T) {
	dir := setupRepo(t)
	writeAndCommit(t, dir, "lib.py", "def compute_total(items):\n    return sum(items)\n", "feat: add compute_total")

	core, err := docsentinel.Init(dir, testConfig(), docsentinel.Options{})
	require.NoError(t, err)
	defer core.Close()

	ctx := context.Background()
	_, first, _, err := core.Scan(ctx, docsentinel.ScanOptions{Mode: docsentinel.ModeFull})
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, second, _, err := core.Scan(ctx, docsentinel.ScanOptions{Mode: docsentinel.ModeFull})
	require.NoError(t, err)
	require.Empty(t, second)
}

func TestPermanentIgnoreSurvivesRescan(t *testing.T) {
	dir := setupRepo(t)
	writeAndCommit(t, dir, "lib.py", "def compute_total(items):\n    return sum(items)\n", "feat: add compute_total")

	core, err := docsentinel.Init(dir, testConfig(), docsentinel.Options{})
	require.NoError(t, err)
	defer core.Close()

	ctx := context.Background()
	_, events, _, err := core.Scan(ctx, docsentinel.ScanOptions{Mode: docsentinel.ModeFull})
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, core.IgnoreEvent(ctx, events[0].ID, "tracked elsewhere", true))

	writeAndCommit(t, dir, "other.py", "def unrelated():\n    pass\n", "feat: add unrelated")

	_, rescanned, _, err := core.Scan(ctx, docsentinel.ScanOptions{Mode: docsentinel.ModeSinceLastScan})
	require.NoError(t, err)
	require.Len(t, rescanned, 1, "only the new unrelated() symbol should surface")
	require.Contains(t, rescanned[0].Description, "unrelated")
}

func TestAnalyzeWithoutExtrasOnlyListsChunks(t *testing.T) {
	dir := setupRepo(t)
	writeAndCommit(t, dir, "lib.py", "def compute_total(items):\n    return sum(items)\n", "feat: add compute_total")

	core, err := docsentinel.Init(dir, testConfig(), docsentinel.Options{})
	require.NoError(t, err)
	defer core.Close()

	ctx := context.Background()
	_, _, _, err = core.Scan(ctx, docsentinel.ScanOptions{Mode: docsentinel.ModeFull})
	require.NoError(t, err)

	report, err := core.Analyze(ctx, "lib.py", false, false)
	require.NoError(t, err)
	require.Len(t, report.CodeChunks, 1)
	require.Nil(t, report.MatchingDocs)
	require.Nil(t, report.Similarities)
}

func TestEventsFilterByStatus(t *testing.T) {
	dir := setupRepo(t)
	writeAndCommit(t, dir, "lib.py", "def compute_total(items):\n    return sum(items)\n", "feat: add compute_total")

	core, err := docsentinel.Init(dir, testConfig(), docsentinel.Options{})
	require.NoError(t, err)
	defer core.Close()

	ctx := context.Background()
	_, events, _, err := core.Scan(ctx, docsentinel.ScanOptions{Mode: docsentinel.ModeFull})
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, core.IgnoreEvent(ctx, events[0].ID, "not relevant", false))

	pending, err := core.Events(ctx, store.EventFilter{Status: drift.StatusPending})
	require.NoError(t, err)
	require.Empty(t, pending)

	ignored, err := core.Events(ctx, store.EventFilter{Status: drift.StatusIgnored})
	require.NoError(t, err)
	require.Len(t, ignored, 1)
}
