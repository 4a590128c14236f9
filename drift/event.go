// Package drift turns a scan's changed chunks into Drift Events: structural
// hard-rule findings plus similarity-based soft-rule findings, deduplicated
// and ordered deterministically, with an optional, strictly additive
// language-model enrichment pass.
package drift

// Severity ranks how urgently an event needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRank orders severities for tie-breaking and sort stability;
// lower rank sorts first (Critical before High before Medium before Low).
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Kind identifies which rule produced an event.
type Kind string

const (
	KindSignatureChanged  Kind = "SignatureChanged"
	KindSymbolRemoved     Kind = "SymbolRemoved"
	KindSymbolAdded       Kind = "SymbolAdded"
	KindParamCountChanged Kind = "ParamCountChanged"
	KindLowSimilarity     Kind = "LowSimilarity"
	KindSimilarityDrop    Kind = "SimilarityDrop"
)

// Status is a Drift Event's position in its review lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusIgnored  Status = "ignored"
	StatusFixed    Status = "fixed"
)

// Event is one emitted drift finding.
type Event struct {
	ID             string
	Kind           Kind
	Severity       Severity
	Confidence     float64
	Description    string
	Evidence       string
	RelatedCode    []string // code chunk identities
	RelatedDoc     []string // doc chunk identities
	SuggestedFix    string
	Status          Status
	IgnoreReason    string
	IgnorePermanent bool
	IgnoredAtRev    string // pinned commit for scan-scoped ignores
	CreatedRev      string
	UpdatedRev      string
}

// DedupKey returns the (kind, code, doc) tuple identity used for
// cross-scan suppression and within-scan duplicate removal. Stores persist
// it alongside an ignored event so a later scan can look up suppression
// without reconstructing the formula.
func (e Event) DedupKey() string {
	code := ""
	if len(e.RelatedCode) > 0 {
		code = e.RelatedCode[0]
	}
	doc := ""
	if len(e.RelatedDoc) > 0 {
		doc = e.RelatedDoc[0]
	}
	return string(e.Kind) + "\x00" + code + "\x00" + doc
}

func (e Event) dedupKey() string { return e.DedupKey() }
