package parser

// Span is a half-open byte range [Start, End) into a file's source
type Span struct {
	Start int
	End   int
}

// Pos returns the span itself so that every node embedding Span satisfies Node
func (s Span) Pos() Span { return s }

// Len returns the length of the span in bytes
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether other lies entirely inside s
func (s Span) Contains(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Node is implemented by every syntax node
type Node interface {
	Pos() Span
}

// Stmt is a top-level statement. The set of implementations is closed.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression. The set of implementations is closed.
type Expr interface {
	Node
	exprNode()
}

// Property is a member of an object literal
type Property interface {
	Node
	propNode()
}

// File is one parsed version of a source file. Versions are immutable:
// an edit produces a new File.
type File struct {
	Path       string
	Source     []byte
	Statements []Stmt

	// HasError is set when tree-sitter reported a syntax error anywhere in the file
	HasError bool
}

// Text returns the source text covered by n
func (f *File) Text(n Node) string {
	s := n.Pos()
	if s.Start < 0 || s.End > len(f.Source) || s.Start > s.End {
		return ""
	}
	return string(f.Source[s.Start:s.End])
}

// Imports returns the top-level import declarations in source order
func (f *File) Imports() []*ImportDecl {
	var out []*ImportDecl
	for _, st := range f.Statements {
		if imp, ok := st.(*ImportDecl); ok {
			out = append(out, imp)
		}
	}
	return out
}

// Statements

// ImportDecl is `import ... from "source"`
type ImportDecl struct {
	Span
	TypeOnly  bool
	Default   *Identifier
	Namespace *Identifier
	Named     []*ImportSpecifier
	Source    *StringLit
}

// ImportSpecifier is one `Imported as Local` entry of a named import
type ImportSpecifier struct {
	Span
	Imported string
	Local    *Identifier

	// TypeOnly is set for `import { type X }`
	TypeOnly bool
}

// ExportList is `export { a, b as c }` with an optional `from "source"`
type ExportList struct {
	Span
	Specifiers []*ExportSpecifier
	Source     *StringLit
}

// ExportSpecifier is one `Local as Exported` entry of an export list
type ExportSpecifier struct {
	Span
	Local    string
	Exported string
}

// ExportAll is `export * from "source"` or `export * as Alias from "source"`
type ExportAll struct {
	Span
	Alias  *Identifier
	Source *StringLit
}

// VarStatement is a `const`, `let` or `var` statement, possibly exported
type VarStatement struct {
	Span
	Kind        string
	Exported    bool
	Declarators []*VarDeclarator
}

// VarDeclarator is `Name = Init` inside a VarStatement. Name is nil for
// destructuring patterns.
type VarDeclarator struct {
	Span
	Name *Identifier
	Init Expr
}

// ExportDefault is `export default <expr>`
type ExportDefault struct {
	Span
	Value Expr
}

// ClassDecl is a class declaration. Name is nil for `export default class {}`.
type ClassDecl struct {
	Span
	Name     *Identifier
	Exported bool
	Default  bool
	Abstract bool
}

// ExprStatement is an expression used as a statement
type ExprStatement struct {
	Span
	X Expr
}

// OtherStmt is any statement the engine does not inspect
type OtherStmt struct {
	Span
	Kind string
}

func (*ImportDecl) stmtNode()    {}
func (*ExportList) stmtNode()    {}
func (*ExportAll) stmtNode()     {}
func (*VarStatement) stmtNode()  {}
func (*ExportDefault) stmtNode() {}
func (*ClassDecl) stmtNode()     {}
func (*ExprStatement) stmtNode() {}
func (*OtherStmt) stmtNode()     {}

// Expressions

// Identifier is a plain name
type Identifier struct {
	Span
	Name string
}

// StringLit is a string literal. Value has the quotes removed.
type StringLit struct {
	Span
	Value string
	Quote byte
}

// NewExpr is `new Callee(Args)`. Args is nil when the call has no parentheses.
type NewExpr struct {
	Span
	Callee Expr
	Args   *ArgList
}

// ArgList is a parenthesized argument list. Its span includes the parentheses.
type ArgList struct {
	Span
	Items []Expr
}

// ArrayLit is `[a, b]`. Its span includes the brackets.
type ArrayLit struct {
	Span
	Elements []Expr
}

// ObjectLit is `{ a: b, c }`. Its span includes the braces.
type ObjectLit struct {
	Span
	Props []Property
}

// CastKind distinguishes the type-assertion wrappers
type CastKind int

const (
	CastAs CastKind = iota
	CastAngle
	CastSatisfies
	CastNonNull
)

// CastExpr is `X as T`, `<T>X`, `X satisfies T` or `X!`
type CastExpr struct {
	Span
	Kind CastKind
	X    Expr
}

// ParenExpr is `(X)`
type ParenExpr struct {
	Span
	X Expr
}

// ClassExpr is a class expression, `class {}` or `class Name {}`
type ClassExpr struct {
	Span
	Name *Identifier
}

// OtherExpr is any expression the engine does not inspect
type OtherExpr struct {
	Span
	Kind string
}

func (*Identifier) exprNode() {}
func (*StringLit) exprNode()  {}
func (*NewExpr) exprNode()    {}
func (*ArrayLit) exprNode()   {}
func (*ObjectLit) exprNode()  {}
func (*CastExpr) exprNode()   {}
func (*ParenExpr) exprNode()  {}
func (*ClassExpr) exprNode()  {}
func (*OtherExpr) exprNode()  {}

// Properties

// PropertyAssign is `Key: Value`. Key is the unquoted property name.
type PropertyAssign struct {
	Span
	Key   string
	Value Expr
}

// ShorthandProp is `{ Name }`
type ShorthandProp struct {
	Span
	Name *Identifier
}

// OtherProp is a spread, method, accessor or computed-key property
type OtherProp struct {
	Span
	Kind string
}

func (*PropertyAssign) propNode() {}
func (*ShorthandProp) propNode()  {}
func (*OtherProp) propNode()      {}

// Unwrap strips casts and parentheses from e
func Unwrap(e Expr) Expr {
	for {
		switch x := e.(type) {
		case *CastExpr:
			e = x.X
		case *ParenExpr:
			e = x.X
		default:
			return e
		}
	}
}

// PropertyName returns the name a property is keyed by, or "" for OtherProp
func PropertyName(p Property) string {
	switch x := p.(type) {
	case *PropertyAssign:
		return x.Key
	case *ShorthandProp:
		return x.Name.Name
	}
	return ""
}
