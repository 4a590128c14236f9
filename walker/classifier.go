package walker

import "github.com/bmatcuk/doublestar/v4"

// Classification is the bucket a path falls into for extraction purposes.
type Classification string

const (
	ClassCode    Classification = "code"
	ClassDoc     Classification = "doc"
	ClassIgnored Classification = "ignored"
)

// Classifier buckets repository paths by glob pattern. Patterns are tried in
// a fixed precedence order: ignore, then doc, then code; anything matching
// none of the three pattern sets is treated as ignored.
type Classifier struct {
	ignore []string
	doc    []string
	code   []string
}

// NewClassifier builds a Classifier from the three configured pattern
// lists: paths matching ignore are excluded before doc/code are checked.
func NewClassifier(ignorePatterns, docPatterns, codePatterns []string) *Classifier {
	return &Classifier{ignore: ignorePatterns, doc: docPatterns, code: codePatterns}
}

// Classify buckets path, which must be repo-root-relative with forward
// slashes.
func (c *Classifier) Classify(path string) Classification {
	if anyMatch(c.ignore, path) {
		return ClassIgnored
	}
	if anyMatch(c.doc, path) {
		return ClassDoc
	}
	if anyMatch(c.code, path) {
		return ClassCode
	}
	return ClassIgnored
}

func anyMatch(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
