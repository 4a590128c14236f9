// Package docsentinel wires the Repository Walker, Code Chunk Extractor,
// Documentation Chunk Extractor, Embedding Index, and Drift Engine into the
// core API surface exposed to CLI/TUI collaborators: init, scan, events,
// accept_fix, ignore_event, analyze. It owns no transport of its own — see
// cmd/docsentinel for the thin Cobra wrapper.
//
// It is a single long-lived struct holding every collaborator, constructed
// once in an Init-style function and torn down with Close.
package docsentinel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/docsentinel/codechunk"
	_ "github.com/c360studio/docsentinel/codechunk/java"
	_ "github.com/c360studio/docsentinel/codechunk/python"
	"github.com/c360studio/docsentinel/config"
	"github.com/c360studio/docsentinel/docchunk"
	"github.com/c360studio/docsentinel/drift"
	"github.com/c360studio/docsentinel/embedding"
	"github.com/c360studio/docsentinel/llm"
	_ "github.com/c360studio/docsentinel/llm/providers"
	"github.com/c360studio/docsentinel/model"
	"github.com/c360studio/docsentinel/store"
	"github.com/c360studio/docsentinel/walker"
)

// Core is the process-wide handle to one repository's drift-detection
// state: the store plus every collaborator needed to run a scan. There is
// no ambient singleton — callers own the lifetime via Init/Close.
type Core struct {
	cfg        *config.Config
	repoRoot   string
	store      *store.Store
	walker     *walker.Walker
	classifier *walker.Classifier
	codeReg    *codechunk.Registry
	docExtract docchunk.Extractor
	index      *embedding.Index
	engine     *drift.Engine
	enricher   *drift.Enricher
	logger     *slog.Logger
}

// Options tunes Init beyond what cfg already carries.
type Options struct {
	Logger *slog.Logger
}

// Init opens (creating if absent) the store under repoRoot's conventional
// .docsentinel/ directory, constructs every collaborator from cfg, and
// warm-starts the embedding index from whatever the store already has
// cached. The returned Core owns the store; callers must Close it.
func Init(repoRoot string, cfg *config.Config, opts Options) (*Core, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("docsentinel: invalid configuration: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dataDir := StoreDir(repoRoot)
	st, err := store.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("docsentinel: opening store: %w", err)
	}

	classifier := walker.NewClassifier(cfg.Patterns.IgnorePatterns, cfg.Patterns.DocPatterns, cfg.Patterns.CodePatterns)
	w := walker.New(repoRoot, classifier)

	provider := buildEmbeddingProvider(cfg.Embedding)
	index := embedding.NewIndex(provider, 4, logger)
	if err := seedIndex(st, index); err != nil {
		st.Close()
		return nil, fmt.Errorf("docsentinel: seeding embedding index: %w", err)
	}

	engine := drift.NewEngine(drift.Config{
		SimilarityThreshold: cfg.Drift.SimilarityThreshold,
		TopK:                cfg.Drift.TopK,
	}, index)

	var enricher *drift.Enricher
	if cfg.LLM.Endpoint != "" {
		enricher = drift.NewEnricher(buildLLMClient(cfg.LLM, logger), logger)
	}

	return &Core{
		cfg:        cfg,
		repoRoot:   repoRoot,
		store:      st,
		walker:     w,
		classifier: classifier,
		codeReg:    codechunk.DefaultRegistry,
		docExtract: docchunk.NewATXExtractor(),
		index:      index,
		engine:     engine,
		enricher:   enricher,
		logger:     logger,
	}, nil
}

// StoreDir returns the conventional store directory for a repository root.
func StoreDir(repoRoot string) string {
	return repoRoot + "/.docsentinel"
}

// Close releases the store's write lock and closes its database handle.
func (c *Core) Close() error {
	return c.store.Close()
}

// Store exposes the underlying store, for collaborators (analyze, the CLI)
// that need read access the Core API doesn't otherwise surface.
func (c *Core) Store() *store.Store { return c.store }

func seedIndex(st *store.Store, index *embedding.Index) error {
	ctx := context.Background()

	codeChunks, err := st.ListLiveCodeChunks(ctx)
	if err != nil {
		return err
	}
	for _, cc := range codeChunks {
		index.Seed(cc.Identity(), cc.ContentHash, cc.Embedding)
	}

	docChunks, err := st.ListLiveDocChunks(ctx)
	if err != nil {
		return err
	}
	for _, dc := range docChunks {
		index.Seed(dc.Identity(), dc.ContentHash, dc.Embedding)
	}
	return nil
}

func buildEmbeddingProvider(cfg config.EmbeddingConfig) embedding.Provider {
	switch cfg.Provider {
	case "local-http":
		return embedding.NewLocalHTTPProvider(cfg.Endpoint, cfg.Model, cfg.Dimension)
	case "openai-shape":
		return embedding.NewOpenAIProvider(cfg.Endpoint, cfg.Model, cfg.APIKey, cfg.Dimension)
	default:
		return embedding.Get("mock")
	}
}

// buildLLMClient wraps the enrichment endpoint in a single-capability
// model.Registry rather than adding a parallel direct-HTTP path just for
// this one call.
func buildLLMClient(cfg config.LLMConfig, logger *slog.Logger) *llm.Client {
	const endpointName = "docsentinel-enrichment"
	registry := model.NewRegistry(
		map[model.Capability]*model.CapabilityConfig{
			model.CapabilityReviewing: {
				Description: "Drift event triage and fix suggestion",
				Preferred:   []string{endpointName},
			},
		},
		map[string]*model.EndpointConfig{
			endpointName: {
				Provider:  "ollama",
				URL:       cfg.Endpoint,
				Model:     cfg.Model,
				MaxTokens: cfg.MaxTokens,
			},
		},
	)
	return llm.NewClient(registry, llm.WithLogger(logger))
}
