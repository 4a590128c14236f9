package drift

import "strings"

// ChangeKind classifies how a code chunk moved between the prior and
// current revision, as determined by the store's reconciliation pass.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// CodeChange is one code chunk's revision-to-revision transition, as seen
// by the engine. Removed chunks carry only the Prior fields.
type CodeChange struct {
	Identity      string
	QualifiedName string
	Change        ChangeKind

	Signature     string
	SignatureHash string
	ParamCount    int

	PriorSignature     string
	PriorSignatureHash string
	PriorParamCount    int
}

// DocSnapshot is one doc chunk as of the current revision, used for mention
// matching and as a similarity candidate.
type DocSnapshot struct {
	Identity    string
	HeadingPath []string
	Content     string
}

// mentions reports whether qualifiedName appears as a substring of the doc
// chunk's content or any heading-path segment.
func mentions(doc DocSnapshot, qualifiedName string) bool {
	if qualifiedName == "" {
		return false
	}
	if strings.Contains(doc.Content, qualifiedName) {
		return true
	}
	for _, h := range doc.HeadingPath {
		if strings.Contains(h, qualifiedName) {
			return true
		}
	}
	return false
}

// matchingDocs returns the docs mentioning qualifiedName, in input order.
func matchingDocs(docs []DocSnapshot, qualifiedName string) []DocSnapshot {
	var out []DocSnapshot
	for _, d := range docs {
		if mentions(d, qualifiedName) {
			out = append(out, d)
		}
	}
	return out
}

func docIdentities(docs []DocSnapshot) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.Identity
	}
	return ids
}

// evaluateHardRules applies the structural rule table to one code change
// against the full current doc set. A change may produce zero, one, or two
// events (SignatureChanged/SymbolRemoved/SymbolAdded are mutually exclusive
// per change, but ParamCountChanged can co-occur with SignatureChanged).
func evaluateHardRules(change CodeChange, docs []DocSnapshot) []Event {
	var events []Event

	switch change.Change {
	case ChangeRemoved:
		matches := matchingDocs(docs, change.QualifiedName)
		if len(matches) > 0 {
			events = append(events, Event{
				Kind:        KindSymbolRemoved,
				Severity:    SeverityCritical,
				Confidence:  0.98,
				Description: "symbol " + change.QualifiedName + " was removed but is still documented",
				Evidence:    "prior signature: " + change.PriorSignature + "\nmatching docs: " + joinIdentities(matches),
				RelatedCode: []string{change.Identity},
				RelatedDoc:  docIdentities(matches),
			})
		}

	case ChangeAdded:
		matches := matchingDocs(docs, change.QualifiedName)
		if len(matches) == 0 {
			events = append(events, Event{
				Kind:        KindSymbolAdded,
				Severity:    SeverityMedium,
				Confidence:  0.80,
				Description: "symbol " + change.QualifiedName + " was added without any matching documentation",
				Evidence:    "new signature: " + change.Signature,
				RelatedCode: []string{change.Identity},
			})
		}

	case ChangeModified:
		if change.SignatureHash == change.PriorSignatureHash {
			break
		}
		matches := matchingDocs(docs, change.QualifiedName)
		if len(matches) == 0 {
			break
		}
		events = append(events, Event{
			Kind:        KindSignatureChanged,
			Severity:    SeverityHigh,
			Confidence:  0.95,
			Description: "signature of " + change.QualifiedName + " changed but its documentation was not updated",
			Evidence:    "old signature: " + change.PriorSignature + "\nnew signature: " + change.Signature + "\nmatching docs: " + joinIdentities(matches),
			RelatedCode: []string{change.Identity},
			RelatedDoc:  docIdentities(matches),
		})

		if change.ParamCount != change.PriorParamCount {
			events = append(events, Event{
				Kind:        KindParamCountChanged,
				Severity:    SeverityHigh,
				Confidence:  0.90,
				Description: "parameter count of " + change.QualifiedName + " changed",
				Evidence:    "old parameters: " + change.PriorSignature + "\nnew parameters: " + change.Signature,
				RelatedCode: []string{change.Identity},
				RelatedDoc:  docIdentities(matches),
			})
		}
	}

	return events
}

func joinIdentities(docs []DocSnapshot) string {
	ids := docIdentities(docs)
	return strings.Join(ids, ", ")
}
