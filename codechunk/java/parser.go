// Package java extracts code chunks from Java source using tree-sitter.
// Visibility follows Java's explicit modifier keywords: a declaration is
// public only when it carries the "public" modifier; package-private,
// protected, and private declarations are all treated as private.
package java

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/c360studio/docsentinel/codechunk"
)

func init() {
	codechunk.DefaultRegistry.Register("java", []string{".java"}, func() codechunk.FileParser {
		return NewParser()
	})
}

// Parser extracts code chunks from Java files.
type Parser struct {
	sitter *sitter.Parser
}

// NewParser creates a Java parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{sitter: p}
}

// Language implements codechunk.FileParser.
func (p *Parser) Language() string { return "java" }

// ParseFile implements codechunk.FileParser.
func (p *Parser) ParseFile(ctx context.Context, path string, content []byte, includePrivate bool) ([]codechunk.Chunk, error) {
	tree, err := p.sitter.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse java file: %w", err)
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
	case "class_declaration", "record_declaration":
		return p.extractContainer(node, content, codechunk.KindStructLike, containerPrefix, includePrivate)
	case "interface_declaration":
		return p.extractContainer(node, content, codechunk.KindTraitLike, containerPrefix, includePrivate)
	case "enum_declaration":
		chunk, ok := p.containerChunk(node, content, codechunk.KindStructLike, containerPrefix)
		if !ok || (!includePrivate && chunk.Visibility == codechunk.VisibilityPrivate) {
			return nil
		}
		return []codechunk.Chunk{chunk}
	case "method_declaration":
		chunk, ok := p.methodChunk(node, content, containerPrefix)
		if !ok || (!includePrivate && chunk.Visibility == codechunk.VisibilityPrivate) {
			return nil
		}
		return []codechunk.Chunk{chunk}
	}
	return nil
}

func (p *Parser) extractContainer(node *sitter.Node, content []byte, kind codechunk.SymbolKind, containerPrefix string, includePrivate bool) []codechunk.Chunk {
	containerChunk, ok := p.containerChunk(node, content, kind, containerPrefix)
	if !ok {
		return nil
	}

	var chunks []codechunk.Chunk
	if includePrivate || containerChunk.Visibility == codechunk.VisibilityPublic {
		chunks = append(chunks, containerChunk)
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return chunks
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_declaration", "constructor_declaration":
			method, ok := p.methodChunk(member, content, containerChunk.QualifiedName)
			if ok && (includePrivate || method.Visibility == codechunk.VisibilityPublic) {
				chunks = append(chunks, method)
			}
		case "class_declaration", "interface_declaration", "record_declaration", "enum_declaration":
			chunks = append(chunks, p.extractTopLevel(member, content, containerChunk.QualifiedName, includePrivate)...)
		}
	}
	return chunks
}

func (p *Parser) containerChunk(node *sitter.Node, content []byte, kind codechunk.SymbolKind, containerPrefix string) (codechunk.Chunk, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return codechunk.Chunk{}, false
	}
	name := text(nameNode, content)
	qualified := qualify(containerPrefix, name)

	sig := name
	if superclass := node.ChildByFieldName("superclass"); superclass != nil {
		sig += " extends " + text(superclass, content)
	}
	if interfaces := node.ChildByFieldName("interfaces"); interfaces != nil {
		sig += " implements " + text(interfaces, content)
	}

	return codechunk.Chunk{
		Language:      "java",
		Kind:          kind,
		QualifiedName: qualified,
		Signature:     codechunk.NormalizeSignature(sig),
		SignatureHash: codechunk.SignatureHash(sig),
		DocComment:    precedingDocComment(node, content),
		Body:          bodyText(node, content),
		BodyStartLine: int(node.StartPoint().Row) + 1,
		BodyEndLine:   int(node.EndPoint().Row) + 1,
		Visibility:    visibility(node, content),
		ContentHash:   codechunk.ContentHash(text(node, content)),
	}, true
}

func (p *Parser) methodChunk(node *sitter.Node, content []byte, containerPrefix string) (codechunk.Chunk, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return codechunk.Chunk{}, false
	}
	name := text(nameNode, content)
	qualified := qualify(containerPrefix, name)

	params := ""
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = text(p, content)
	}
	ret := ""
	if r := node.ChildByFieldName("type"); r != nil {
		ret = text(r, content)
	}
	sig := name + params
	if ret != "" {
		sig += " " + ret
	}

	kind := codechunk.KindFunction
	if containerPrefix != "" {
		kind = codechunk.KindMethod
	}

	return codechunk.Chunk{
		Language:      "java",
		Kind:          kind,
		QualifiedName: qualified,
		Signature:     codechunk.NormalizeSignature(sig),
		SignatureHash: codechunk.SignatureHash(sig),
		DocComment:    precedingDocComment(node, content),
		Body:          bodyText(node, content),
		BodyStartLine: int(node.StartPoint().Row) + 1,
		BodyEndLine:   int(node.EndPoint().Row) + 1,
		Visibility:    visibility(node, content),
		ContentHash:   codechunk.ContentHash(text(node, content)),
	}, true
}

// bodyText returns the text of node's "body" field, or the empty string for
// declarations with no body (e.g. an abstract method or interface member).
func bodyText(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	return text(body, content)
}

// visibility inspects the "modifiers" child for an explicit access keyword.
// Absence of an explicit visibility keyword means package-private, which
// this extractor treats as private.
func visibility(node *sitter.Node, content []byte) codechunk.Visibility {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		mod := text(child, content)
		if strings.Contains(mod, "public") {
			return codechunk.VisibilityPublic
		}
		return codechunk.VisibilityPrivate
	}
	return codechunk.VisibilityPrivate
}

// precedingDocComment returns the immediately preceding "/** ... */" Javadoc
// block, if any, stripped of comment delimiters and leading " * " markers.
func precedingDocComment(node *sitter.Node, content []byte) string {
	prev := node.PrevSibling()
	if prev == nil || prev.Type() != "block_comment" {
		return ""
	}
	raw := text(prev, content)
	if !strings.HasPrefix(raw, "/**") {
		return ""
	}
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimSuffix(raw, "*/")
	lines := strings.Split(raw, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
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
