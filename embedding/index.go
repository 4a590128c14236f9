package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Item is one piece of text to embed, keyed by its owner's stable identity
// and content hash. The content hash doubles as the cache key: two chunks
// with identical text share one embedding call.
type Item struct {
	Identity    string
	ContentHash string
	Text        string
}

// EmbedError records a single item that could not be embedded. Index
// degrades gracefully on these: the item is simply left out of similarity
// queries rather than failing the whole batch.
type EmbedError struct {
	Identity string
	err      error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embed %s: %v", e.Identity, e.err)
}

func (e *EmbedError) Unwrap() error { return e.err }

// Index caches embedding vectors by content hash and answers nearest
// neighbor queries over whatever has been embedded so far.
type Index struct {
	mu           sync.RWMutex
	provider     Provider
	vectors      map[string][]float32 // content hash -> vector
	identityHash map[string]string    // identity -> content hash
	sem          *semaphore.Weighted
	logger       *slog.Logger
}

// NewIndex creates an Index backed by provider. concurrency bounds the
// number of in-flight Embed calls; values below 1 are treated as 1.
func NewIndex(provider Provider, concurrency int64, logger *slog.Logger) *Index {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		provider:     provider,
		vectors:      make(map[string][]float32),
		identityHash: make(map[string]string),
		sem:          semaphore.NewWeighted(concurrency),
		logger:       logger,
	}
}

// EnsureEmbedded embeds every item whose content hash isn't already cached,
// bounded to the index's configured concurrency. Items that fail to embed
// are reported but do not stop the rest of the batch.
func (idx *Index) EnsureEmbedded(ctx context.Context, items []Item) []EmbedError {
	idx.mu.RLock()
	pending := make([]Item, 0, len(items))
	queued := make(map[string]bool, len(items))
	for _, it := range items {
		if _, ok := idx.vectors[it.ContentHash]; !ok && !queued[it.ContentHash] {
			queued[it.ContentHash] = true
			pending = append(pending, it)
		}
	}
	idx.mu.RUnlock()

	var (
		errMu sync.Mutex
		errs  []EmbedError
		wg    sync.WaitGroup
	)

	for _, it := range pending {
		it := it
		if err := idx.sem.Acquire(ctx, 1); err != nil {
			errMu.Lock()
			errs = append(errs, EmbedError{Identity: it.Identity, err: err})
			errMu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer idx.sem.Release(1)

			vecs, err := idx.provider.Embed(ctx, []string{it.Text})
			if err != nil {
				idx.logger.Warn("embedding failed, degrading gracefully",
					"identity", it.Identity, "error", err)
				errMu.Lock()
				errs = append(errs, EmbedError{Identity: it.Identity, err: err})
				errMu.Unlock()
				return
			}
			idx.mu.Lock()
			idx.vectors[it.ContentHash] = vecs[0]
			idx.mu.Unlock()
		}()
	}
	wg.Wait()

	idx.mu.Lock()
	for _, it := range items {
		idx.identityHash[it.Identity] = it.ContentHash
	}
	idx.mu.Unlock()

	sort.Slice(errs, func(i, j int) bool { return errs[i].Identity < errs[j].Identity })
	return errs
}

// Seed installs a vector for identity/contentHash without calling the
// provider, for preloading embeddings a store already has cached from a
// prior scan. A subsequent EnsureEmbedded call for the same content hash
// is then a cache hit.
func (idx *Index) Seed(identity, contentHash string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[contentHash] = vec
	idx.identityHash[identity] = contentHash
}

// Vector returns the cached vector for identity, if it has been embedded.
func (idx *Index) Vector(identity string) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	hash, ok := idx.identityHash[identity]
	if !ok {
		return nil, false
	}
	vec, ok := idx.vectors[hash]
	return vec, ok
}

// ScoredIdentity is one result of a TopK query.
type ScoredIdentity struct {
	Identity string
	Score    float64
}

// TopK returns the k identities most similar to identity by cosine
// similarity, restricted to those for which filter returns true (filter may
// be nil to admit everything). Ties break on ascending identity so results
// are deterministic across runs.
func (idx *Index) TopK(identity string, k int, filter func(candidate string) bool) []ScoredIdentity {
	vec, ok := idx.Vector(identity)
	if !ok || k <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scored := make([]ScoredIdentity, 0, len(idx.identityHash))
	for other, hash := range idx.identityHash {
		if other == identity {
			continue
		}
		if filter != nil && !filter(other) {
			continue
		}
		otherVec, ok := idx.vectors[hash]
		if !ok {
			continue
		}
		scored = append(scored, ScoredIdentity{Identity: other, Score: CosineSimilarity(vec, otherVec)})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Identity < scored[j].Identity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 if either
// is a zero vector or their dimensions disagree.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
