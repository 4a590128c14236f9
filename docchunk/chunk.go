// Package docchunk partitions Markdown-family documents into heading-scoped
// sections: a section runs from its ATX heading to the next heading of
// equal or shallower level.
package docchunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Chunk is a single heading-scoped documentation section.
type Chunk struct {
	Path        string
	HeadingPath []string
	Level       int
	Content     string
	ContentHash string
}

// Identity returns the stable (path, heading_path) identity tuple as a
// single string, suitable for use as a map/store key.
func (c Chunk) Identity() string {
	return c.Path + "\x00" + strings.Join(c.HeadingPath, "\x00")
}

// ContentHash computes the SHA-256 content hash of a section's raw text.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Extractor partitions a document's content into Chunks. It is an interface
// rather than a bare function so alternative heading syntaxes (e.g. setext
// underlines) can be plugged in later without changing callers.
type Extractor interface {
	Extract(path string, content []byte) []Chunk
}

// ATXExtractor extracts sections delimited by ATX headings (# .. ######).
// Setext-style headings are not recognized.
type ATXExtractor struct{}

// NewATXExtractor creates an ATXExtractor.
func NewATXExtractor() *ATXExtractor { return &ATXExtractor{} }

type headingLine struct {
	lineIndex int
	level     int
	text      string
}

// Extract implements Extractor.
func (e *ATXExtractor) Extract(path string, content []byte) []Chunk {
	body := stripFrontmatter(string(content))
	lines := strings.Split(body, "\n")
	headings := findHeadings(lines)

	if len(headings) == 0 {
		return []Chunk{{
			Path:        path,
			HeadingPath: nil,
			Level:       0,
			Content:     trimBlankEdges(body),
			ContentHash: ContentHash(trimBlankEdges(body)),
		}}
	}

	var chunks []Chunk
	var stack []headingLine
	for i, h := range headings {
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		path2 := make([]string, 0, len(stack)+1)
		for _, s := range stack {
			path2 = append(path2, s.text)
		}
		path2 = append(path2, h.text)
		stack = append(stack, h)

		end := len(lines)
		for j := i + 1; j < len(headings); j++ {
			if headings[j].level <= h.level {
				end = headings[j].lineIndex
				break
			}
		}

		sectionContent := trimBlankEdges(strings.Join(lines[h.lineIndex+1:end], "\n"))
		chunks = append(chunks, Chunk{
			Path:        path,
			HeadingPath: path2,
			Level:       h.level,
			Content:     sectionContent,
			ContentHash: ContentHash(sectionContent),
		})
	}
	return chunks
}

// findHeadings scans lines for ATX headings, skipping lines inside fenced
// code blocks (``` or ~~~ fences), which are preserved byte-for-byte and
// never spawn sections of their own.
func findHeadings(lines []string) []headingLine {
	var headings []headingLine
	var fence string // active fence marker ("```" / "~~~"), empty when not in one

	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			fence = "```"
			continue
		}
		if strings.HasPrefix(trimmed, "~~~") {
			fence = "~~~"
			continue
		}

		level := atxLevel(line)
		if level == 0 {
			continue
		}
		text := strings.TrimSpace(strings.TrimLeft(line, "#"))
		text = strings.TrimRight(text, "#")
		text = strings.TrimSpace(text)
		headings = append(headings, headingLine{lineIndex: i, level: level, text: text})
	}
	return headings
}

// atxLevel returns the ATX heading level (1-6) of line, or 0 if it is not a
// valid ATX heading line.
func atxLevel(line string) int {
	trimmed := strings.TrimLeft(line, " ")
	if len(trimmed) > 3 && line != trimmed {
		// more than 3 leading spaces disqualifies a line as a heading
		if len(line)-len(trimmed) > 3 {
			return 0
		}
	}
	n := 0
	for n < len(trimmed) && n < 6 && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0
	}
	rest := trimmed[n:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0
	}
	return n
}

// stripFrontmatter removes a leading YAML frontmatter block, if present,
// since frontmatter is metadata rather than documentation prose.
func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return content
	}
	rest := content[3:]
	rest = strings.TrimPrefix(rest, "\n")
	rest = strings.TrimPrefix(rest, "\r\n")
	idx := strings.Index(rest, "\n---")
	if idx == -1 {
		return content
	}
	after := rest[idx+len("\n---"):]
	if nl := strings.IndexByte(after, '\n'); nl != -1 {
		return after[nl+1:]
	}
	return ""
}

func trimBlankEdges(s string) string {
	lines := strings.Split(s, "\n")
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
