// Package printer renders the source fragments the linker splices into a
// file, following the file's own newline, quote, semicolon and indentation
// conventions.
package printer

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/ludo-technologies/tsrefs/internal/parser"
	"github.com/ludo-technologies/tsrefs/internal/rewrite"
)

const (
	LF   = "\n"
	CRLF = "\r\n"
)

// Style is the formatting convention of one file
type Style struct {
	Newline   string
	Quote     byte
	Semicolon bool
	Indent    string
}

// DefaultStyle is used for conventions a file gives no evidence of
func DefaultStyle() Style {
	return Style{Newline: LF, Quote: '"', Semicolon: true, Indent: "  "}
}

// DetectNewline returns the line ending used by source, or fallback when
// source has no line break
func DetectNewline(source []byte, fallback string) string {
	if bytes.Contains(source, []byte(CRLF)) {
		return CRLF
	}
	if bytes.IndexByte(source, '\n') >= 0 {
		return LF
	}
	if fallback == "" {
		return LF
	}
	return fallback
}

// DetectStyle inspects a parsed file for its conventions
func DetectStyle(file *parser.File, fallbackNewline string) Style {
	style := DefaultStyle()
	style.Newline = DetectNewline(file.Source, fallbackNewline)
	style.Indent = detectIndent(file.Source)

	var last parser.Stmt
	for _, st := range file.Statements {
		switch s := st.(type) {
		case *parser.ImportDecl:
			if s.Source != nil && s.Source.Quote != 0 {
				style.Quote = s.Source.Quote
			}
			last = s
		case *parser.ExportList:
			if s.Source != nil && s.Source.Quote != 0 {
				style.Quote = s.Source.Quote
				last = s
			}
		case *parser.ExportAll:
			if s.Source != nil && s.Source.Quote != 0 {
				style.Quote = s.Source.Quote
				last = s
			}
		}
	}
	if last == nil && len(file.Statements) > 0 {
		last = file.Statements[0]
	}
	switch last.(type) {
	case *parser.ImportDecl, *parser.ExportList, *parser.ExportAll, *parser.VarStatement, *parser.ExprStatement:
		text := strings.TrimRight(file.Text(last), " \t\r\n")
		style.Semicolon = strings.HasSuffix(text, ";")
	}

	return style
}

// detectIndent returns the leading whitespace of the first indented line
func detectIndent(source []byte) string {
	for _, line := range bytes.Split(source, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '\t':
			return "\t"
		case ' ':
			n := 0
			for n < len(line) && line[n] == ' ' {
				n++
			}
			if n == len(line) || line[n] == '\r' || line[n] == '*' {
				continue
			}
			if n > 8 {
				n = 2
			}
			return strings.Repeat(" ", n)
		}
	}
	return "  "
}

// NamedImport renders `import { Export as Local } from "path"` or the
// shorter `import { Local } from "path"` when the names agree
func NamedImport(style Style, local, exported, path string) string {
	return "import { " + specifier(exported, local) + " } from " + quote(style, path) + semi(style)
}

// DefaultImport renders `import Local from "path"`
func DefaultImport(style Style, local, path string) string {
	return "import " + local + " from " + quote(style, path) + semi(style)
}

// ExportAllFrom renders `export * from "path"`
func ExportAllFrom(style Style, path string) string {
	return "export * from " + quote(style, path) + semi(style)
}

// ExportFrom renders `export { Export as Local } from "path"`
func ExportFrom(style Style, local, exported, path string) string {
	return "export { " + specifier(exported, local) + " } from " + quote(style, path) + semi(style)
}

// PropertyAssignment renders `key: value`, quoting the key when it is not
// an identifier
func PropertyAssignment(style Style, key, value string) string {
	if !IsIdentifier(key) {
		key = quote(style, key)
	}
	return key + ": " + value
}

// ArrayOf renders a single-item array literal
func ArrayOf(item string) string {
	return "[" + item + "]"
}

// ObjectOf renders a single-item object literal
func ObjectOf(item string) string {
	return "{ " + item + " }"
}

// IsIdentifier reports whether s can be written as a bare identifier
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// InsertListItem returns the edits that append item to a bracketed list.
// container spans the list including its brackets; items are the spans of
// the current members. An empty list is filled in place; pad surrounds a
// single-line item with spaces (`{ item }`). A non-empty list follows the
// existing layout: inline lists get `, item`, multi-line lists get the item
// on its own line at the indentation of the last member, keeping any
// trailing comma convention.
func InsertListItem(src []byte, container parser.Span, items []parser.Span, item string, style Style, pad bool) []rewrite.Edit {
	open := container.Start
	closing := container.End - 1

	if len(items) == 0 {
		inner := src[open+1 : closing]
		trivia := len(bytes.TrimSpace(inner)) > 0
		if bytes.IndexByte(inner, '\n') >= 0 {
			base := lineIndent(src, open)
			if trivia {
				// comments stay; the item goes on the line before the closing one
				at := open + 1 + bytes.LastIndexByte(inner, '\n')
				if at > open+1 && src[at-1] == '\r' {
					at--
				}
				return []rewrite.Edit{rewrite.Insert(at, style.Newline+base+style.Indent+item)}
			}
			text := style.Newline + base + style.Indent + item + style.Newline + base
			return []rewrite.Edit{rewrite.Replace(open+1, closing, text)}
		}
		if trivia {
			end := open + 1 + len(bytes.TrimRight(inner, " \t"))
			return []rewrite.Edit{rewrite.Insert(end, " "+item)}
		}
		if pad {
			return []rewrite.Edit{rewrite.Replace(open+1, closing, " "+item+" ")}
		}
		return []rewrite.Edit{rewrite.Replace(open+1, closing, item)}
	}

	last := items[len(items)-1]
	prevEnd := open + 1
	if len(items) > 1 {
		prevEnd = items[len(items)-2].End
	}
	multiline := bytes.IndexByte(src[prevEnd:last.Start], '\n') >= 0

	anchor := last.End
	comma := trailingComma(src[last.End:closing])
	if comma >= 0 {
		anchor = last.End + comma + 1
	}

	if !multiline {
		if comma >= 0 {
			return []rewrite.Edit{rewrite.Insert(anchor, " "+item+",")}
		}
		return []rewrite.Edit{rewrite.Insert(anchor, ", "+item)}
	}

	text := style.Newline + lineIndent(src, last.Start) + item
	at := anchor
	if eol := lineEnd(src, anchor, closing); eol >= 0 {
		at = eol
	}
	if comma >= 0 {
		return []rewrite.Edit{rewrite.Insert(at, text+",")}
	}
	if at == anchor {
		return []rewrite.Edit{rewrite.Insert(anchor, ","+text)}
	}
	return []rewrite.Edit{rewrite.Insert(anchor, ","), rewrite.Insert(at, text)}
}

// StatementAfter returns the edit inserting stmt on its own line after the
// statement spanning prev. A line comment trailing prev stays on its line.
func StatementAfter(src []byte, prev parser.Span, stmt string, style Style) rewrite.Edit {
	at := prev.End
	i := at
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	if i+1 < len(src) && src[i] == '/' && src[i+1] == '/' {
		for i < len(src) && src[i] != '\n' && src[i] != '\r' {
			i++
		}
		at = i
	}
	return rewrite.Insert(at, style.Newline+stmt)
}

// StatementAtStart returns the edit inserting stmt at the top of a file
func StatementAtStart(stmt string, style Style) rewrite.Edit {
	return rewrite.Insert(0, stmt+style.Newline)
}

func specifier(exported, local string) string {
	if exported == "" || exported == local {
		return local
	}
	return exported + " as " + local
}

func quote(style Style, s string) string {
	q := string(style.Quote)
	if q == "\x00" || q == "" {
		q = `"`
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, q, `\`+q)
	return q + s + q
}

func semi(style Style) string {
	if style.Semicolon {
		return ";"
	}
	return ""
}

// lineIndent returns the leading whitespace of the line containing pos
func lineIndent(src []byte, pos int) string {
	start := pos
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

// trailingComma returns the offset of a comma that is the first token of
// tail, or -1
func trailingComma(tail []byte) int {
	for i := 0; i < len(tail); i++ {
		switch tail[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case ',':
			return i
		case '/':
			if i+1 < len(tail) && tail[i+1] == '/' {
				for i < len(tail) && tail[i] != '\n' {
					i++
				}
				continue
			}
			if i+1 < len(tail) && tail[i+1] == '*' {
				end := bytes.Index(tail[i+2:], []byte("*/"))
				if end < 0 {
					return -1
				}
				i += end + 3
				continue
			}
			return -1
		default:
			return -1
		}
	}
	return -1
}

// lineEnd returns the offset where the line containing from ends (before
// any \r), provided that happens before limit; otherwise -1
func lineEnd(src []byte, from, limit int) int {
	for i := from; i < limit; i++ {
		if src[i] == '\n' {
			if i > from && src[i-1] == '\r' {
				return i - 1
			}
			return i
		}
	}
	return -1
}
