// Package python extracts code chunks from Python source using tree-sitter.
// Visibility follows Python convention: a leading underscore on the name
// marks a declaration private; everything else is public.
package python

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/c360studio/docsentinel/codechunk"
)

func init() {
	codechunk.DefaultRegistry.Register("python", []string{".py"}, func() codechunk.FileParser {
		return NewParser()
	})
}

// Parser extracts code chunks from Python files.
type Parser struct {
	sitter *sitter.Parser
}

// NewParser creates a Python parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{sitter: p}
}

// Language implements codechunk.FileParser.
func (p *Parser) Language() string { return "python" }

// ParseFile implements codechunk.FileParser.
func (p *Parser) ParseFile(ctx context.Context, path string, content []byte, includePrivate bool) ([]codechunk.Chunk, error) {
	tree, err := p.sitter.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse python file: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var chunks []codechunk.Chunk
	for i := 0; i < int(root.NamedChildCount()); i++ {
		chunks = append(chunks, p.extractTopLevel(root.NamedChild(i), content, "", includePrivate)...)
	}
	return chunks, nil
}

func (p *Parser) extractTopLevel(node *sitter.Node, content []byte, containerPrefix string, includePrivate bool) []codechunk.Chunk {
	switch node.Type() {
	case "class_definition":
		return p.extractClass(node, content, containerPrefix, includePrivate)
	case "function_definition":
		chunk, ok := p.functionChunk(node, content, containerPrefix)
		if !ok || (!includePrivate && chunk.Visibility == codechunk.VisibilityPrivate) {
			return nil
		}
		return []codechunk.Chunk{chunk}
	case "decorated_definition":
		def := definitionIn(node)
		if def == nil {
			return nil
		}
		return p.extractTopLevel(def, content, containerPrefix, includePrivate)
	}
	return nil
}

func (p *Parser) extractClass(node *sitter.Node, content []byte, containerPrefix string, includePrivate bool) []codechunk.Chunk {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, content)
	qualified := qualify(containerPrefix, name)
	vis := determineVisibility(name)

	sig := name
	if bases := node.ChildByFieldName("superclasses"); bases != nil {
		sig += text(bases, content)
	}

	classChunk := codechunk.Chunk{
		Language:      "python",
		Kind:          codechunk.KindStructLike,
		QualifiedName: qualified,
		Signature:     codechunk.NormalizeSignature(sig),
		SignatureHash: codechunk.SignatureHash(sig),
		DocComment:    bodyDocstring(node, content),
		Body:          bodyText(node, content),
		BodyStartLine: int(node.StartPoint().Row) + 1,
		BodyEndLine:   int(node.EndPoint().Row) + 1,
		Visibility:    vis,
		ContentHash:   codechunk.ContentHash(text(node, content)),
	}

	var chunks []codechunk.Chunk
	if includePrivate || vis == codechunk.VisibilityPublic {
		chunks = append(chunks, classChunk)
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return chunks
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		def := member
		if member.Type() == "decorated_definition" {
			def = definitionIn(member)
		}
		if def == nil || def.Type() != "function_definition" {
			continue
		}
		method, ok := p.functionChunk(def, content, qualified)
		if ok && (includePrivate || method.Visibility == codechunk.VisibilityPublic) {
			chunks = append(chunks, method)
		}
	}
	return chunks
}

func (p *Parser) functionChunk(node *sitter.Node, content []byte, containerPrefix string) (codechunk.Chunk, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return codechunk.Chunk{}, false
	}
	name := text(nameNode, content)
	qualified := qualify(containerPrefix, name)

	params := ""
	if pn := node.ChildByFieldName("parameters"); pn != nil {
		params = text(pn, content)
	}
	ret := ""
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		ret = " -> " + text(rt, content)
	}
	sig := name + params + ret

	kind := codechunk.KindFunction
	if containerPrefix != "" {
		kind = codechunk.KindMethod
	}

	return codechunk.Chunk{
		Language:      "python",
		Kind:          kind,
		QualifiedName: qualified,
		Signature:     codechunk.NormalizeSignature(sig),
		SignatureHash: codechunk.SignatureHash(sig),
		DocComment:    bodyDocstring(node, content),
		Body:          bodyText(node, content),
		BodyStartLine: int(node.StartPoint().Row) + 1,
		BodyEndLine:   int(node.EndPoint().Row) + 1,
		Visibility:    determineVisibility(name),
		ContentHash:   codechunk.ContentHash(text(node, content)),
	}, true
}

// bodyText returns the text of node's "body" field, or the empty string for
// declarations with no body (e.g. a stub in a .pyi file).
func bodyText(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	return text(body, content)
}

// determineVisibility applies Python's leading-underscore convention.
func determineVisibility(name string) codechunk.Visibility {
	if strings.HasPrefix(name, "_") {
		return codechunk.VisibilityPrivate
	}
	return codechunk.VisibilityPublic
}

// bodyDocstring returns the triple-quoted docstring leading a class or
// function body, if present.
func bodyDocstring(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	expr := first.NamedChild(0)
	if expr.Type() != "string" {
		return ""
	}
	raw := text(expr, content)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) {
			raw = strings.TrimPrefix(raw, q)
			raw = strings.TrimSuffix(raw, q)
			break
		}
	}
	return strings.TrimSpace(raw)
}

func definitionIn(decorated *sitter.Node) *sitter.Node {
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		child := decorated.NamedChild(i)
		if child.Type() == "class_definition" || child.Type() == "function_definition" {
			return child
		}
	}
	return nil
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func text(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}
