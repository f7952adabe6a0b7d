package linker

import (
	"github.com/ludo-technologies/tsrefs/internal/parser"
)

// initializerHandler receives a matched `new Ctor(...)` expression and the
// top-level node its edits are keyed by
type initializerHandler func(file *parser.File, call *parser.NewExpr, key parser.Node)

// locate hands every top-level construction of the configured class in file
// to handle, in source order, until the reference is added. Matched shapes
// are a variable initializer, a bare expression statement and an
// `export default` value. It reports whether anything matched.
func (r *run) locate(file *parser.File, handle initializerHandler) bool {
	matched := false
	visit := func(e parser.Expr, key parser.Node) {
		call, ok := r.constructs(e)
		if !ok {
			return
		}
		matched = true
		handle(file, call, key)
	}

	for _, st := range file.Statements {
		if r.done() {
			break
		}
		switch s := st.(type) {
		case *parser.VarStatement:
			for _, d := range s.Declarators {
				if r.done() {
					break
				}
				visit(d.Init, d)
			}
		case *parser.ExprStatement:
			visit(s.X, s)
		case *parser.ExportDefault:
			visit(s.Value, s)
		}
	}
	return matched
}

// constructs reports whether e is `new <ConstructorName>(...)`
func (r *run) constructs(e parser.Expr) (*parser.NewExpr, bool) {
	if e == nil {
		return nil, false
	}
	call, ok := parser.Unwrap(e).(*parser.NewExpr)
	if !ok {
		return nil, false
	}
	id, ok := parser.Unwrap(call.Callee).(*parser.Identifier)
	if !ok || id.Name != r.req.ConstructorName {
		return nil, false
	}
	return call, true
}

// optionsObject returns the first argument of call when it is an object literal
func optionsObject(call *parser.NewExpr) *parser.ObjectLit {
	if call.Args == nil || len(call.Args.Items) == 0 {
		return nil
	}
	obj, _ := parser.Unwrap(call.Args.Items[0]).(*parser.ObjectLit)
	return obj
}
