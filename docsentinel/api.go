package docsentinel

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/c360studio/docsentinel/drift"
	"github.com/c360studio/docsentinel/embedding"
	"github.com/c360studio/docsentinel/store"
)

// Events returns the stored events matching filter, most severe and most
// recently created first.
func (c *Core) Events(ctx context.Context, filter store.EventFilter) ([]drift.Event, error) {
	return c.store.ListEvents(ctx, filter)
}

// AcceptFix writes content to the file backing eventID's related
// documentation chunk, marks the event Fixed, and, when commit is true,
// stages and commits the change with git — the same plain os/exec
// invocation the walker uses to talk to the repository, rather than a
// separate git library.
func (c *Core) AcceptFix(ctx context.Context, eventID, content string, commit bool) error {
	ev, err := c.store.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("docsentinel: accepting fix for %s: %w", eventID, err)
	}
	if len(ev.RelatedDoc) == 0 {
		return fmt.Errorf("docsentinel: event %s has no related documentation chunk to fix", eventID)
	}

	doc, err := c.store.GetDocChunk(ctx, ev.RelatedDoc[0])
	if err != nil {
		return fmt.Errorf("docsentinel: resolving doc chunk for %s: %w", eventID, err)
	}

	fullPath := c.repoRoot + "/" + doc.Path
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("docsentinel: writing fix to %s: %w", doc.Path, err)
	}

	if commit {
		if err := c.commitPath(ctx, doc.Path, fmt.Sprintf("docsentinel: fix drift event %s", eventID)); err != nil {
			return err
		}
	}

	head, err := c.walker.ResolveRevision(ctx, "HEAD")
	if err != nil {
		head = ev.UpdatedRev
	}
	if err := c.store.ApplyFix(ctx, eventID, head); err != nil {
		return fmt.Errorf("docsentinel: marking %s fixed: %w", eventID, err)
	}
	return nil
}

// IgnoreEvent records an ignore decision for eventID. A permanent ignore
// suppresses the event's (kind, code, doc) tuple on every future scan; a
// scoped ignore (permanent=false) is pinned to the current HEAD, so the
// suppression holds only for scans whose target commit is that pinned
// commit or one of its ancestors.
func (c *Core) IgnoreEvent(ctx context.Context, eventID, reason string, permanent bool) error {
	head, err := c.walker.ResolveRevision(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("docsentinel: resolving HEAD for ignore: %w", err)
	}
	if err := c.store.IgnoreEvent(ctx, eventID, reason, permanent, head); err != nil {
		return fmt.Errorf("docsentinel: ignoring %s: %w", eventID, err)
	}
	return nil
}

// AnalysisReport is the result of an ad hoc, non-scan analysis of one
// source path: the live code chunks it contains, the documentation that
// mentions them, and their similarity to the nearest documented section.
type AnalysisReport struct {
	Target       string
	CodeChunks   []store.CodeChunkRecord
	MatchingDocs map[string][]store.DocChunkRecord     // keyed by code chunk identity
	Similarities map[string][]embedding.ScoredIdentity // keyed by code chunk identity
	PriorNearest map[string]drift.PriorNearest         // keyed by code chunk identity, as of the last scan
}

// Analyze inspects target (a repo-root-relative file path) outside the
// scan/reconcile lifecycle: it reads whatever the store currently has live
// for that path and optionally cross-references documentation mentions
// and embedding similarity, touching no git history and writing nothing.
func (c *Core) Analyze(ctx context.Context, target string, withDocs, withSimilarity bool) (*AnalysisReport, error) {
	allCode, err := c.store.ListLiveCodeChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("docsentinel: analyzing %s: %w", target, err)
	}
	report := &AnalysisReport{Target: target}
	for _, cc := range allCode {
		if cc.Path == target {
			report.CodeChunks = append(report.CodeChunks, cc)
		}
	}

	if !withDocs && !withSimilarity {
		return report, nil
	}

	var allDocs []store.DocChunkRecord
	if withDocs || withSimilarity {
		allDocs, err = c.store.ListLiveDocChunks(ctx)
		if err != nil {
			return nil, fmt.Errorf("docsentinel: loading docs for %s: %w", target, err)
		}
	}

	if withDocs {
		report.MatchingDocs = make(map[string][]store.DocChunkRecord)
		for _, cc := range report.CodeChunks {
			for _, dc := range allDocs {
				if mentionsText(dc.Content, cc.QualifiedName) || mentionsHeadingPath(dc.HeadingPath, cc.QualifiedName) {
					report.MatchingDocs[cc.Identity()] = append(report.MatchingDocs[cc.Identity()], dc)
				}
			}
		}
	}

	if withSimilarity {
		docSet := make(map[string]bool, len(allDocs))
		for _, dc := range allDocs {
			docSet[dc.Identity()] = true
		}
		isDoc := func(candidate string) bool { return docSet[candidate] }

		report.Similarities = make(map[string][]embedding.ScoredIdentity)
		for _, cc := range report.CodeChunks {
			report.Similarities[cc.Identity()] = c.index.TopK(cc.Identity(), c.cfg.Drift.TopK, isDoc)
		}

		prior, err := c.store.PriorNearestMap(ctx)
		if err != nil {
			return nil, fmt.Errorf("docsentinel: loading prior nearest docs for %s: %w", target, err)
		}
		report.PriorNearest = make(map[string]drift.PriorNearest, len(report.CodeChunks))
		for _, cc := range report.CodeChunks {
			if pn, ok := prior[cc.Identity()]; ok {
				report.PriorNearest[cc.Identity()] = pn
			}
		}
	}

	return report, nil
}

func mentionsText(content, qualifiedName string) bool {
	return qualifiedName != "" && strings.Contains(content, qualifiedName)
}

func mentionsHeadingPath(headingPath []string, qualifiedName string) bool {
	for _, h := range headingPath {
		if strings.Contains(h, qualifiedName) {
			return true
		}
	}
	return false
}

func (c *Core) commitPath(ctx context.Context, path, message string) error {
	add := exec.CommandContext(ctx, "git", "add", path)
	add.Dir = c.repoRoot
	if out, err := add.CombinedOutput(); err != nil {
		return fmt.Errorf("docsentinel: git add %s: %s: %w", path, string(out), err)
	}
	commit := exec.CommandContext(ctx, "git", "commit", "-m", message)
	commit.Dir = c.repoRoot
	if out, err := commit.CombinedOutput(); err != nil {
		return fmt.Errorf("docsentinel: git commit: %s: %w", string(out), err)
	}
	return nil
}
