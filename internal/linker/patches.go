package linker

import (
	"github.com/ludo-technologies/tsrefs/internal/parser"
	"github.com/ludo-technologies/tsrefs/internal/rewrite"
)

// patchTable holds the pending edits of top-level declarations, keyed by
// the declaration node of the file version the edits were computed against.
// Keys are *parser.VarDeclarator, *parser.ExportDefault or
// *parser.ExprStatement.
type patchTable struct {
	entries map[parser.Node][]rewrite.Edit
}

func newPatchTable() *patchTable {
	return &patchTable{entries: make(map[parser.Node][]rewrite.Edit)}
}

func (p *patchTable) add(key parser.Node, edits ...rewrite.Edit) {
	p.entries[key] = append(p.entries[key], edits...)
}

// take removes and returns the edits of every declaration of file
func (p *patchTable) take(file *parser.File) []rewrite.Edit {
	var out []rewrite.Edit
	grab := func(key parser.Node) {
		if edits, ok := p.entries[key]; ok {
			out = append(out, edits...)
			delete(p.entries, key)
		}
	}
	for _, st := range file.Statements {
		switch s := st.(type) {
		case *parser.VarStatement:
			for _, d := range s.Declarators {
				grab(d)
			}
		case *parser.ExportDefault:
			grab(s)
		case *parser.ExprStatement:
			grab(s)
		}
	}
	return out
}

// pending returns the number of declarations whose edits were never applied
func (p *patchTable) pending() int {
	return len(p.entries)
}
