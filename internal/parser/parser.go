package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parser wraps a tree-sitter parser for TypeScript
type Parser struct {
	parser   *sitter.Parser
	language *sitter.Language
	isTSX    bool
}

// NewParser creates a parser for .ts, .mts and .cts sources. Angle-bracket
// type assertions are only valid in this grammar.
func NewParser() *Parser {
	parser := sitter.NewParser()
	lang := typescript.GetLanguage()
	parser.SetLanguage(lang)

	return &Parser{
		parser:   parser,
		language: lang,
	}
}

// NewTSXParser creates a parser for .tsx sources
func NewTSXParser() *Parser {
	parser := sitter.NewParser()
	lang := tsx.GetLanguage()
	parser.SetLanguage(lang)

	return &Parser{
		parser:   parser,
		language: lang,
		isTSX:    true,
	}
}

// ParseFile parses one file version
func (p *Parser) ParseFile(ctx context.Context, filename string, source []byte) (*File, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse file %s: %v", filename, err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode == nil {
		return nil, fmt.Errorf("no root node in parse tree for %s", filename)
	}

	return NewASTBuilder(filename, source).Build(rootNode), nil
}

// ParseString parses source held in a string
func (p *Parser) ParseString(source string) (*File, error) {
	return p.ParseFile(context.Background(), "<input>", []byte(source))
}

// IsTSX returns true if this parser is configured for TSX
func (p *Parser) IsTSX() bool {
	return p.isTSX
}

// Close closes the parser and frees resources
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// ParseForLanguage selects the grammar from the file extension and parses source
func ParseForLanguage(ctx context.Context, filename string, source []byte) (*File, error) {
	var p *Parser
	if strings.EqualFold(filepath.Ext(filename), ".tsx") {
		p = NewTSXParser()
	} else {
		p = NewParser()
	}
	defer p.Close()

	return p.ParseFile(ctx, filename, source)
}

// IsSourceFile reports whether path has an extension the engine can parse
func IsSourceFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts", ".tsx":
		return !strings.HasSuffix(strings.ToLower(path), ".d.ts")
	}
	return false
}
