package drift

import (
	"fmt"

	"github.com/c360studio/docsentinel/embedding"
)

// evaluateSoftRules applies the similarity-based rule table to one code
// change. Removed chunks are excluded — there is no current vector to query
// against once a symbol is gone.
func evaluateSoftRules(change CodeChange, index SimilarityProvider, cfg Config, isDoc func(string) bool, prior *PriorNearest) []Event {
	if change.Change == ChangeRemoved {
		return nil
	}
	if cfg.TopK <= 0 {
		return nil
	}

	var events []Event

	results := index.TopK(change.Identity, cfg.TopK, isDoc)
	maxSim := 0.0
	var nearestDoc string
	if len(results) > 0 {
		maxSim = results[0].Score
		nearestDoc = results[0].Identity
	}
	if maxSim < cfg.SimilarityThreshold {
		var related []string
		if nearestDoc != "" {
			related = []string{nearestDoc}
		}
		events = append(events, Event{
			Kind:        KindLowSimilarity,
			Severity:    SeverityLow,
			Confidence:  clampUnit(maxSim),
			Description: fmt.Sprintf("%s has low documentation similarity (%.2f)", change.QualifiedName, maxSim),
			Evidence:    fmt.Sprintf("max similarity across top-%d doc chunks: %.4f", cfg.TopK, maxSim),
			RelatedCode: []string{change.Identity},
			RelatedDoc:  related,
		})
	}

	if change.Change == ChangeModified && prior != nil && prior.DocIdentity != "" {
		codeVec, hasCode := index.Vector(change.Identity)
		docVec, hasDoc := index.Vector(prior.DocIdentity)
		if hasCode && hasDoc {
			newSim := embedding.CosineSimilarity(codeVec, docVec)
			drop := prior.Similarity - newSim
			if drop >= 0.10 {
				events = append(events, Event{
					Kind:        KindSimilarityDrop,
					Severity:    SeverityMedium,
					Confidence:  clampUnit(drop),
					Description: fmt.Sprintf("%s drifted away from its previously nearest doc chunk", change.QualifiedName),
					Evidence:    fmt.Sprintf("prior similarity %.4f, current similarity %.4f", prior.Similarity, newSim),
					RelatedCode: []string{change.Identity},
					RelatedDoc:  []string{prior.DocIdentity},
				})
			}
		}
	}

	return events
}

// clampUnit restricts a raw similarity or similarity-delta value to [0,1].
// Cosine similarity is defined over [-1,1]; confidences are not.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
