package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(identity, content string, headingPath ...string) DocSnapshot {
	return DocSnapshot{Identity: identity, HeadingPath: headingPath, Content: content}
}

func TestSignatureChangedRequiresDocMention(t *testing.T) {
	change := CodeChange{
		Identity:           "lib.rs\x00add\x00rust",
		QualifiedName:      "add",
		Change:             ChangeModified,
		Signature:          "pub fn add(a: i64, b: i64, overflow: bool) -> i64",
		SignatureHash:      "new",
		PriorSignature:     "pub fn add(a: i32, b: i32) -> i32",
		PriorSignatureHash: "old",
		ParamCount:         3,
		PriorParamCount:    2,
	}
	docs := []DocSnapshot{doc("docs/api.md\x00add", "two parameters", "add")}

	events := evaluateHardRules(change, docs)
	require.Len(t, events, 2)

	var kinds []Kind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, KindSignatureChanged)
	assert.Contains(t, kinds, KindParamCountChanged)
}

func TestSignatureChangedSuppressedWithoutDocMention(t *testing.T) {
	change := CodeChange{
		Identity:           "lib.rs\x00internal\x00rust",
		QualifiedName:      "internal",
		Change:             ChangeModified,
		SignatureHash:      "new",
		PriorSignatureHash: "old",
	}
	events := evaluateHardRules(change, nil)
	assert.Empty(t, events)
}

func TestSymbolRemovedRequiresDocMention(t *testing.T) {
	change := CodeChange{
		Identity:       "lib.rs\x00obsolete\x00rust",
		QualifiedName:  "obsolete",
		Change:         ChangeRemoved,
		PriorSignature: "pub fn obsolete()",
	}
	docs := []DocSnapshot{doc("docs/api.md\x00obsolete", "call obsolete() before shutdown")}
	events := evaluateHardRules(change, docs)
	require.Len(t, events, 1)
	assert.Equal(t, KindSymbolRemoved, events[0].Kind)
	assert.Equal(t, SeverityCritical, events[0].Severity)
	assert.Equal(t, 0.98, events[0].Confidence)
}

func TestSymbolAddedOnlyWithoutDocMention(t *testing.T) {
	change := CodeChange{
		Identity:      "lib.rs\x00newFn\x00rust",
		QualifiedName: "newFn",
		Change:        ChangeAdded,
		Signature:     "pub fn newFn()",
	}
	events := evaluateHardRules(change, nil)
	require.Len(t, events, 1)
	assert.Equal(t, KindSymbolAdded, events[0].Kind)

	docs := []DocSnapshot{doc("docs/api.md\x00newFn", "see newFn for details")}
	events = evaluateHardRules(change, docs)
	assert.Empty(t, events)
}

func TestMentionsChecksHeadingPathToo(t *testing.T) {
	d := doc("a.md\x00add", "no mention in body", "add")
	assert.True(t, mentions(d, "add"))
}
