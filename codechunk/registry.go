package codechunk

import (
	"context"
	"fmt"
	"sync"
)

// ExtractWarning is a non-fatal error: a single file failed to parse. The
// pipeline continues, the affected file simply yields zero chunks for this
// revision.
type ExtractWarning struct {
	Path string
	Err  error
}

func (w *ExtractWarning) Error() string {
	return fmt.Sprintf("extract %s: %v", w.Path, w.Err)
}

func (w *ExtractWarning) Unwrap() error { return w.Err }

// FileParser extracts Chunks from a single file's bytes. Implementations must
// be pure with respect to their input: identical bytes always produce an
// identical, identically ordered chunk slice.
type FileParser interface {
	// Language returns the language tag this parser was constructed for.
	Language() string

	// ParseFile extracts exported-symbol chunks from content. When
	// includePrivate is false, private symbols (per the language's
	// visibility rule) are excluded from the result.
	ParseFile(ctx context.Context, path string, content []byte, includePrivate bool) ([]Chunk, error)
}

// ParserFactory constructs a FileParser for a language.
type ParserFactory func() FileParser

// Registry dispatches file extensions to language parsers. Safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]ParserFactory // language tag -> factory
	extMap  map[string]string        // extension -> language tag
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]ParserFactory),
		extMap:  make(map[string]string),
	}
}

// Register adds a parser factory for the given language tag and the file
// extensions (with leading dot, e.g. ".java") it should be dispatched for.
// The first registration for a given extension wins.
func (r *Registry) Register(language string, extensions []string, factory ParserFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers[language] = factory
	for _, ext := range extensions {
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = language
		}
	}
}

// LanguageForExtension returns the language tag registered for ext, if any.
func (r *Registry) LanguageForExtension(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.extMap[ext]
	return lang, ok
}

// NewParser instantiates the parser for a language tag.
func (r *Registry) NewParser(language string) (FileParser, error) {
	r.mu.RLock()
	factory, ok := r.parsers[language]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("codechunk: no parser registered for language %q", language)
	}
	return factory(), nil
}

// NewParserForExtension instantiates the parser registered for ext.
func (r *Registry) NewParserForExtension(ext string) (FileParser, error) {
	lang, ok := r.LanguageForExtension(ext)
	if !ok {
		return nil, fmt.Errorf("codechunk: no parser registered for extension %q", ext)
	}
	return r.NewParser(lang)
}

// Languages lists every registered language tag.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry is the global registry. Language packages register
// themselves against it via init().
var DefaultRegistry = NewRegistry()

// ExtractFile parses a file using the registry's dispatch-by-extension rule,
// converting a parse failure into an *ExtractWarning rather than aborting.
func ExtractFile(ctx context.Context, reg *Registry, ext, path string, content []byte, includePrivate bool) ([]Chunk, *ExtractWarning) {
	parser, err := reg.NewParserForExtension(ext)
	if err != nil {
		return nil, &ExtractWarning{Path: path, Err: err}
	}
	chunks, err := parser.ParseFile(ctx, path, content, includePrivate)
	if err != nil {
		return nil, &ExtractWarning{Path: path, Err: err}
	}
	return chunks, nil
}
