package drift

import (
	"sort"

	"github.com/c360studio/docsentinel/embedding"
	"github.com/google/uuid"
)

// Config tunes the soft-rule thresholds.
type Config struct {
	SimilarityThreshold float64
	TopK                int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{SimilarityThreshold: 0.7, TopK: 5}
}

// SimilarityProvider is the slice of embedding.Index the engine needs for
// soft rules. Declared here, rather than depending on the concrete type
// everywhere, so tests can substitute a fake.
type SimilarityProvider interface {
	TopK(identity string, k int, filter func(candidate string) bool) []embedding.ScoredIdentity
	Vector(identity string) ([]float32, bool)
}

// PriorNearest is the (doc, similarity) pair a code chunk was closest to as
// of the previous scan that embedded it, supplied by the caller so
// SimilarityDrop can be computed without the engine holding scan history.
type PriorNearest struct {
	DocIdentity string
	Similarity  float64
}

// IgnoreRecord is a previously recorded ignore decision for a
// (kind, code, doc) tuple, supplied by the store.
type IgnoreRecord struct {
	Permanent      bool
	PinnedRevision string
}

// ScanInput bundles everything one Evaluate call needs.
type ScanInput struct {
	Changes      []CodeChange
	Docs         []DocSnapshot
	PriorNearest map[string]PriorNearest // keyed by code chunk identity
	PriorIgnores map[string]IgnoreRecord // keyed by Event.dedupKey()
}

// Engine evaluates hard and soft rules over a scan's changed chunks.
// A nil index (embedding provider offline or disabled) makes the engine
// skip soft rules entirely rather than failing the scan.
type Engine struct {
	cfg   Config
	index SimilarityProvider
}

// NewEngine constructs an Engine. index may be nil.
func NewEngine(cfg Config, index SimilarityProvider) *Engine {
	return &Engine{cfg: cfg, index: index}
}

// Evaluate produces the deduplicated, deterministically ordered event set
// for one scan. toRevision is the scan's target commit; isAncestor(a, b)
// must report whether commit a is an ancestor of (or equal to) commit b —
// used to resolve scan-scoped ignore suppression.
func (e *Engine) Evaluate(input ScanInput, toRevision string, isAncestor func(a, b string) bool) []Event {
	docSet := make(map[string]bool, len(input.Docs))
	for _, d := range input.Docs {
		docSet[d.Identity] = true
	}
	isDoc := func(candidate string) bool { return docSet[candidate] }

	var raw []Event
	for _, change := range input.Changes {
		raw = append(raw, evaluateHardRules(change, input.Docs)...)
	}
	if e.index != nil {
		for _, change := range input.Changes {
			var prior *PriorNearest
			if p, ok := input.PriorNearest[change.Identity]; ok {
				prior = &p
			}
			raw = append(raw, evaluateSoftRules(change, e.index, e.cfg, isDoc, prior)...)
		}
	}

	seen := make(map[string]bool, len(raw))
	events := make([]Event, 0, len(raw))
	for _, ev := range raw {
		key := ev.dedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		if rec, ok := input.PriorIgnores[key]; ok {
			if rec.Permanent {
				continue
			}
			if rec.PinnedRevision != "" && isAncestor != nil && isAncestor(toRevision, rec.PinnedRevision) {
				continue
			}
		}

		ev.ID = newEventID()
		ev.Status = StatusPending
		ev.CreatedRev = toRevision
		ev.UpdatedRev = toRevision
		events = append(events, ev)
	}

	sortEvents(events)
	return events
}

// sortEvents orders by severity descending, then identity ascending, so
// repeated evaluations of the same input produce byte-identical output.
func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		ri, rj := severityRank[events[i].Severity], severityRank[events[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return events[i].dedupKey() < events[j].dedupKey()
	})
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
