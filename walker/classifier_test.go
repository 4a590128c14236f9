package walker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPrecedenceIgnoreBeatsDoc(t *testing.T) {
	c := NewClassifier([]string{"vendor/**"}, []string{"**/*.md"}, []string{"**/*.go"})
	assert.Equal(t, ClassIgnored, c.Classify("vendor/README.md"))
}

func TestClassifyDoc(t *testing.T) {
	c := NewClassifier(nil, []string{"**/*.md"}, []string{"**/*.go"})
	assert.Equal(t, ClassDoc, c.Classify("docs/guide.md"))
}

func TestClassifyCode(t *testing.T) {
	c := NewClassifier(nil, []string{"**/*.md"}, []string{"**/*.go"})
	assert.Equal(t, ClassCode, c.Classify("internal/foo/bar.go"))
}

func TestClassifyUnmatchedDefaultsToIgnored(t *testing.T) {
	c := NewClassifier(nil, []string{"**/*.md"}, []string{"**/*.go"})
	assert.Equal(t, ClassIgnored, c.Classify("image.png"))
}
