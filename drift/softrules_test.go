package drift

import (
	"testing"

	"github.com/c360studio/docsentinel/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarityDropFiresAboveThreshold(t *testing.T) {
	change := CodeChange{
		Identity:           "a\x00x\x00go",
		QualifiedName:      "x",
		Change:             ChangeModified,
		SignatureHash:      "same",
		PriorSignatureHash: "same",
	}
	index := &fakeIndex{
		topK: map[string][]embedding.ScoredIdentity{
			change.Identity: {{Identity: "d\x00x", Score: 0.5}},
		},
		vectors: map[string][]float32{
			change.Identity: {1, 0},
			"d\x00x":        {0, 1},
		},
	}
	prior := &PriorNearest{DocIdentity: "d\x00x", Similarity: 0.9}

	events := evaluateSoftRules(change, index, DefaultConfig(), func(string) bool { return true }, prior)

	var drop *Event
	for i := range events {
		if events[i].Kind == KindSimilarityDrop {
			drop = &events[i]
		}
	}
	require.NotNil(t, drop)
	assert.Equal(t, SeverityMedium, drop.Severity)
	assert.InDelta(t, 0.9, drop.Confidence, 1e-9)
}

func TestSimilarityDropDoesNotFireBelowThreshold(t *testing.T) {
	change := CodeChange{
		Identity:           "a\x00x\x00go",
		QualifiedName:      "x",
		Change:             ChangeModified,
		SignatureHash:      "same",
		PriorSignatureHash: "same",
	}
	index := &fakeIndex{
		vectors: map[string][]float32{
			change.Identity: {1, 0},
			"d\x00x":        {0.99, 0.14},
		},
	}
	prior := &PriorNearest{DocIdentity: "d\x00x", Similarity: 0.99}

	events := evaluateSoftRules(change, index, DefaultConfig(), func(string) bool { return true }, prior)
	for _, e := range events {
		assert.NotEqual(t, KindSimilarityDrop, e.Kind)
	}
}

func TestRemovedChangeSkipsSoftRules(t *testing.T) {
	change := CodeChange{Identity: "a\x00x\x00go", Change: ChangeRemoved}
	events := evaluateSoftRules(change, &fakeIndex{}, DefaultConfig(), func(string) bool { return true }, nil)
	assert.Empty(t, events)
}

func TestTopKZeroEmitsNoEvents(t *testing.T) {
	change := CodeChange{
		Identity:      "a\x00x\x00go",
		QualifiedName: "x",
		Change:        ChangeAdded,
	}
	index := &fakeIndex{
		topK: map[string][]embedding.ScoredIdentity{
			change.Identity: {{Identity: "d\x00x", Score: 0.9}},
		},
	}
	cfg := DefaultConfig()
	cfg.TopK = 0

	events := evaluateSoftRules(change, index, cfg, func(string) bool { return true }, nil)
	assert.Empty(t, events)
}

func TestLowSimilarityConfidenceClampedToUnitRange(t *testing.T) {
	change := CodeChange{
		Identity:      "a\x00x\x00go",
		QualifiedName: "x",
		Change:        ChangeAdded,
	}
	index := &fakeIndex{
		topK: map[string][]embedding.ScoredIdentity{
			change.Identity: {{Identity: "d\x00x", Score: -0.4}},
		},
	}

	events := evaluateSoftRules(change, index, DefaultConfig(), func(string) bool { return true }, nil)

	var low *Event
	for i := range events {
		if events[i].Kind == KindLowSimilarity {
			low = &events[i]
		}
	}
	require.NotNil(t, low)
	assert.Equal(t, 0.0, low.Confidence)
}
