package docsentinel

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/docsentinel/codechunk"
	"github.com/c360studio/docsentinel/docchunk"
	"github.com/c360studio/docsentinel/drift"
	"github.com/c360studio/docsentinel/embedding"
	"github.com/c360studio/docsentinel/store"
	"github.com/c360studio/docsentinel/walker"
	"github.com/google/uuid"
)

// Mode selects how a Scan resolves the set of commits to diff.
type Mode string

const (
	// ModeFull re-derives every chunk from the tree at HEAD.
	ModeFull Mode = "full"
	// ModeRange diffs an explicit From..To commit range.
	ModeRange Mode = "range"
	// ModeUncommitted diffs the working tree against HEAD.
	ModeUncommitted Mode = "uncommitted"
	// ModeSinceLastScan diffs the store's last recorded scan endpoint
	// against To (HEAD if unset), falling back to ModeFull when no prior
	// scan exists.
	ModeSinceLastScan Mode = "since-last-scan"
)

// ScanOptions configures one Scan call.
type ScanOptions struct {
	Mode Mode
	From string // ModeRange only
	To   string // ModeRange; defaults to HEAD

	WithLLM        bool // enrich pending events via the configured LLM
	IncludePrivate bool // include private/unexported symbols in extraction
}

// Diagnostics accumulates a scan's recoverable failures: extraction
// warnings, embedding-provider failures, and enrichment failures are
// collected rather than aborting the scan.
type Diagnostics struct {
	ExtractionWarnings     []string
	EmbeddingProviderFails []string
	EnrichmentFailures     int
}

func (d *Diagnostics) addExtraction(w *codechunk.ExtractWarning) {
	if w != nil {
		d.ExtractionWarnings = append(d.ExtractionWarnings, w.Error())
	}
}

// Scan walks the requested commit range, re-extracts changed files,
// reconciles the store, evaluates the Drift Engine, and persists the
// resulting events and scan record inside one transaction. A write to the
// embedding cache columns happens after the transaction commits, since a
// cache miss there only costs a re-embed on the next scan rather than
// corrupting any invariant.
func (c *Core) Scan(ctx context.Context, opts ScanOptions) (*store.ScanRecord, []drift.Event, *Diagnostics, error) {
	diag := &Diagnostics{}

	req, fromRev, toRev, err := c.resolveWalk(ctx, opts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("docsentinel: resolving scan range: %w", err)
	}

	changes, err := c.walker.Walk(ctx, req)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("docsentinel: walking repository: %w", err)
	}

	liveDocs, err := c.store.ListLiveDocChunks(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("docsentinel: loading live doc chunks: %w", err)
	}
	docsByIdentity := make(map[string]store.DocChunkRecord, len(liveDocs))
	for _, d := range liveDocs {
		docsByIdentity[d.Identity()] = d
	}

	type codeFile struct {
		file   string
		chunks []codechunk.Chunk
	}
	type docFile struct {
		file   string
		chunks []docchunk.Chunk
	}

	var codeFiles []codeFile
	var docFiles []docFile
	var codeChanges []drift.CodeChange
	var embedItems []embedding.Item

	for _, ch := range changes {
		switch ch.Class {
		case walker.ClassCode:
			newChunks, oldChunks := c.extractCodeChange(ctx, ch, opts.IncludePrivate, diag)
			codeChanges = append(codeChanges, buildCodeChanges(oldChunks, newChunks)...)

			if ch.Kind != walker.Deleted {
				codeFiles = append(codeFiles, codeFile{file: ch.Path, chunks: newChunks})
				for _, nc := range newChunks {
					embedItems = append(embedItems, embedding.Item{
						Identity:    nc.Identity(),
						ContentHash: nc.ContentHash,
						Text:        codeEmbedText(nc),
					})
				}
			}
			if ch.Kind == walker.Deleted || ch.Kind == walker.Renamed {
				oldPath := ch.Path
				if ch.Kind == walker.Renamed {
					oldPath = ch.OldPath
				}
				codeFiles = append(codeFiles, codeFile{file: oldPath, chunks: nil})
			}

		case walker.ClassDoc:
			var newChunks []docchunk.Chunk
			if ch.Kind != walker.Deleted {
				newChunks = c.docExtract.Extract(ch.Path, ch.NewBytes)
				docFiles = append(docFiles, docFile{file: ch.Path, chunks: newChunks})
				for _, nd := range newChunks {
					embedItems = append(embedItems, embedding.Item{
						Identity:    nd.Identity(),
						ContentHash: nd.ContentHash,
						Text:        docEmbedText(nd),
					})
				}
				for _, d := range docsByIdentity {
					if d.Path == ch.Path {
						delete(docsByIdentity, d.Identity())
					}
				}
				for _, nd := range newChunks {
					docsByIdentity[nd.Identity()] = store.DocChunkRecord{Chunk: nd}
				}
			}
			if ch.Kind == walker.Deleted || ch.Kind == walker.Renamed {
				oldPath := ch.Path
				if ch.Kind == walker.Renamed {
					oldPath = ch.OldPath
				}
				docFiles = append(docFiles, docFile{file: oldPath, chunks: nil})
				for _, d := range docsByIdentity {
					if d.Path == oldPath {
						delete(docsByIdentity, d.Identity())
					}
				}
			}
		}
	}

	docs := make([]drift.DocSnapshot, 0, len(docsByIdentity))
	for _, d := range docsByIdentity {
		docs = append(docs, drift.DocSnapshot{
			Identity:    d.Identity(),
			HeadingPath: d.HeadingPath,
			Content:     d.Content,
		})
	}
	docSet := make(map[string]bool, len(docs))
	for _, d := range docs {
		docSet[d.Identity] = true
	}
	isDoc := func(candidate string) bool { return docSet[candidate] }

	priorNearest := make(map[string]drift.PriorNearest, len(codeChanges))
	for _, cch := range codeChanges {
		if cch.Change != drift.ChangeModified {
			continue
		}
		if results := c.index.TopK(cch.Identity, 1, isDoc); len(results) > 0 {
			priorNearest[cch.Identity] = drift.PriorNearest{
				DocIdentity: results[0].Identity,
				Similarity:  results[0].Score,
			}
		}
	}

	if errs := c.index.EnsureEmbedded(ctx, embedItems); len(errs) > 0 {
		for _, e := range errs {
			diag.EmbeddingProviderFails = append(diag.EmbeddingProviderFails, e.Error())
		}
	}

	priorIgnores, err := c.store.PriorIgnores(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("docsentinel: loading prior ignores: %w", err)
	}

	isAncestor := func(a, b string) bool { return c.walker.IsAncestor(ctx, a, b) }
	events := c.engine.Evaluate(drift.ScanInput{
		Changes:      codeChanges,
		Docs:         docs,
		PriorNearest: priorNearest,
		PriorIgnores: priorIgnores,
	}, toRev, isAncestor)

	if opts.WithLLM && c.enricher != nil {
		for i, ev := range events {
			enriched := c.enricher.Enrich(ctx, ev)
			if enriched.SuggestedFix == "" && ev.SuggestedFix == "" {
				diag.EnrichmentFailures++
			}
			events[i] = enriched
		}
	}

	rec := store.ScanRecord{
		ID:         uuid.New().String(),
		FromRev:    fromRev,
		ToRev:      toRev,
		Mode:       string(opts.Mode),
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
		EventCount: len(events),
	}

	err = c.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, cf := range codeFiles {
			if err := c.store.ReconcileCodeChunks(ctx, tx, toRev, cf.file, cf.chunks); err != nil {
				return err
			}
		}
		for _, df := range docFiles {
			if err := c.store.ReconcileDocChunks(ctx, tx, toRev, df.file, df.chunks); err != nil {
				return err
			}
		}
		if err := c.store.UpsertEvents(ctx, tx, events); err != nil {
			return err
		}
		return c.store.RecordScan(ctx, tx, rec)
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("docsentinel: persisting scan: %w", err)
	}

	c.persistEmbeddings(ctx, codeChanges, docs)
	c.persistNearest(ctx, codeChanges, isDoc)

	return &rec, events, diag, nil
}

// resolveWalk turns ScanOptions into a walker.Request plus the from/to
// revision strings the scan record and engine need. ModeSinceLastScan's
// resolution (looking up the store's last scan endpoint) is the core's
// responsibility, not the walker's: the walker only knows how to diff a
// range it is given.
func (c *Core) resolveWalk(ctx context.Context, opts ScanOptions) (walker.Request, string, string, error) {
	switch opts.Mode {
	case ModeUncommitted:
		head, err := c.walker.ResolveRevision(ctx, "HEAD")
		if err != nil {
			head = ""
		}
		return walker.Request{Mode: walker.ModeUncommitted}, head, head, nil

	case ModeRange:
		to := opts.To
		if to == "" {
			to = "HEAD"
		}
		toRev, err := c.walker.ResolveRevision(ctx, to)
		if err != nil {
			return walker.Request{}, "", "", err
		}
		fromRev, err := c.walker.ResolveRevision(ctx, opts.From)
		if err != nil {
			return walker.Request{}, "", "", err
		}
		return walker.Request{Mode: walker.ModeRange, From: opts.From, To: to}, fromRev, toRev, nil

	case ModeSinceLastScan:
		last, err := c.store.LastScanTo(ctx)
		if err != nil {
			return walker.Request{}, "", "", err
		}
		if last == "" {
			return c.resolveWalk(ctx, ScanOptions{Mode: ModeFull, WithLLM: opts.WithLLM, IncludePrivate: opts.IncludePrivate})
		}
		to := opts.To
		if to == "" {
			to = "HEAD"
		}
		toRev, err := c.walker.ResolveRevision(ctx, to)
		if err != nil {
			return walker.Request{}, "", "", err
		}
		return walker.Request{Mode: walker.ModeRange, From: last, To: to}, last, toRev, nil

	default: // ModeFull
		head, err := c.walker.ResolveRevision(ctx, "HEAD")
		if err != nil {
			return walker.Request{}, "", "", err
		}
		return walker.Request{Mode: walker.ModeFull}, "", head, nil
	}
}

// extractCodeChange extracts the new and prior chunk sets for one code
// file change, dispatching by language and skipping languages the
// configuration has disabled entirely.
func (c *Core) extractCodeChange(ctx context.Context, ch walker.Change, includePrivate bool, diag *Diagnostics) (newChunks, oldChunks []codechunk.Chunk) {
	if ch.Kind != walker.Deleted {
		ext := filepath.Ext(ch.Path)
		if c.languageEnabled(ext) {
			chunks, warn := codechunk.ExtractFile(ctx, c.codeReg, ext, ch.Path, ch.NewBytes, includePrivate)
			diag.addExtraction(warn)
			newChunks = chunks
		}
	}
	if ch.Kind != walker.Added {
		oldPath := ch.Path
		if ch.Kind == walker.Renamed {
			oldPath = ch.OldPath
		}
		ext := filepath.Ext(oldPath)
		if c.languageEnabled(ext) {
			chunks, warn := codechunk.ExtractFile(ctx, c.codeReg, ext, oldPath, ch.OldBytes, includePrivate)
			diag.addExtraction(warn)
			oldChunks = chunks
		}
	}
	return newChunks, oldChunks
}

func (c *Core) languageEnabled(ext string) bool {
	lang, ok := c.codeReg.LanguageForExtension(ext)
	if !ok {
		return false
	}
	for _, l := range c.cfg.Patterns.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// buildCodeChanges diffs a file's prior and current chunk sets by identity,
// emitting a drift.CodeChange only for symbols that were actually added,
// removed, or whose signature changed — a chunk present unchanged in both
// sets contributes nothing, since there is no new information for the
// engine to evaluate.
func buildCodeChanges(oldChunks, newChunks []codechunk.Chunk) []drift.CodeChange {
	oldByIdentity := make(map[string]codechunk.Chunk, len(oldChunks))
	for _, c := range oldChunks {
		oldByIdentity[c.Identity()] = c
	}
	newByIdentity := make(map[string]codechunk.Chunk, len(newChunks))
	for _, c := range newChunks {
		newByIdentity[c.Identity()] = c
	}

	var out []drift.CodeChange
	for identity, nc := range newByIdentity {
		oc, existed := oldByIdentity[identity]
		switch {
		case !existed:
			out = append(out, drift.CodeChange{
				Identity:      identity,
				QualifiedName: nc.QualifiedName,
				Change:        drift.ChangeAdded,
				Signature:     nc.Signature,
				SignatureHash: nc.SignatureHash,
				ParamCount:    codechunk.ParamCount(nc.Signature),
			})
		case oc.SignatureHash != nc.SignatureHash:
			out = append(out, drift.CodeChange{
				Identity:           identity,
				QualifiedName:      nc.QualifiedName,
				Change:             drift.ChangeModified,
				Signature:          nc.Signature,
				SignatureHash:      nc.SignatureHash,
				ParamCount:         codechunk.ParamCount(nc.Signature),
				PriorSignature:     oc.Signature,
				PriorSignatureHash: oc.SignatureHash,
				PriorParamCount:    codechunk.ParamCount(oc.Signature),
			})
		}
	}
	for identity, oc := range oldByIdentity {
		if _, ok := newByIdentity[identity]; ok {
			continue
		}
		out = append(out, drift.CodeChange{
			Identity:           identity,
			QualifiedName:      oc.QualifiedName,
			Change:             drift.ChangeRemoved,
			PriorSignature:     oc.Signature,
			PriorSignatureHash: oc.SignatureHash,
			PriorParamCount:    codechunk.ParamCount(oc.Signature),
		})
	}
	return out
}

const (
	codeBodyPreviewLimit = 1024
	docContentLimit      = 2048
)

// codeEmbedText builds the embedding input for a code chunk:
// "{qualified_name}\n{signature}\n{body_preview}", where body_preview is the
// first 1,024 characters of the body with whitespace collapsed.
func codeEmbedText(c codechunk.Chunk) string {
	return c.QualifiedName + "\n" + c.Signature + "\n" + collapseAndTruncate(c.Body, codeBodyPreviewLimit)
}

// docEmbedText builds the embedding input for a doc chunk:
// "{heading_path joined by \" > \"}\n{content}", truncated at 2,048 characters.
func docEmbedText(d docchunk.Chunk) string {
	text := strings.Join(d.HeadingPath, " > ") + "\n" + d.Content
	if len(text) > docContentLimit {
		text = text[:docContentLimit]
	}
	return text
}

// collapseAndTruncate collapses runs of whitespace to single spaces and
// limits the result to at most limit characters.
func collapseAndTruncate(s string, limit int) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	if len(collapsed) > limit {
		collapsed = collapsed[:limit]
	}
	return collapsed
}

// persistEmbeddings writes back whatever the index now holds for chunks
// touched by this scan. A cache miss here only costs a re-embed later, so
// failures are not propagated.
func (c *Core) persistEmbeddings(ctx context.Context, codeChanges []drift.CodeChange, docs []drift.DocSnapshot) {
	for _, cch := range codeChanges {
		if cch.Change == drift.ChangeRemoved {
			continue
		}
		if vec, ok := c.index.Vector(cch.Identity); ok {
			_ = c.store.SetCodeChunkEmbedding(ctx, cch.Identity, vec)
		}
	}
	for _, d := range docs {
		if vec, ok := c.index.Vector(d.Identity); ok {
			_ = c.store.SetDocChunkEmbedding(ctx, d.Identity, vec)
		}
	}
}

// persistNearest records each added or modified code chunk's current nearest
// doc and similarity. Analyze reports the stored pair as the chunk's prior
// nearest doc; Scan takes its SimilarityDrop baseline from the index instead.
func (c *Core) persistNearest(ctx context.Context, codeChanges []drift.CodeChange, isDoc func(string) bool) {
	for _, cch := range codeChanges {
		if cch.Change == drift.ChangeRemoved {
			continue
		}
		results := c.index.TopK(cch.Identity, 1, isDoc)
		if len(results) == 0 {
			continue
		}
		_ = c.store.SetCodeChunkNearest(ctx, cch.Identity, results[0].Identity, results[0].Score)
	}
}
