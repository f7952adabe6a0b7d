package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// ASTBuilder builds the typed syntax tree from a tree-sitter CST
type ASTBuilder struct {
	filename string
	source   []byte
}

// NewASTBuilder creates a new AST builder
func NewASTBuilder(filename string, source []byte) *ASTBuilder {
	return &ASTBuilder{
		filename: filename,
		source:   source,
	}
}

// Build converts the program node into a File
func (b *ASTBuilder) Build(root *sitter.Node) *File {
	file := &File{
		Path:   b.filename,
		Source: b.source,
	}
	if root == nil {
		return file
	}
	file.HasError = root.HasError()

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil || b.isTrivia(child) || child.Type() == "hash_bang_line" {
			continue
		}
		file.Statements = append(file.Statements, b.buildStatement(child))
	}

	return file
}

// buildStatement maps a top-level statement
func (b *ASTBuilder) buildStatement(tsNode *sitter.Node) Stmt {
	switch tsNode.Type() {
	case "import_statement":
		return b.buildImport(tsNode)
	case "export_statement":
		return b.buildExport(tsNode)
	case "lexical_declaration", "variable_declaration":
		return b.buildVarStatement(tsNode, b.span(tsNode), false)
	case "class_declaration", "abstract_class_declaration":
		return b.buildClassDecl(tsNode, b.span(tsNode), false, false)
	case "expression_statement":
		stmt := &ExprStatement{Span: b.span(tsNode)}
		if inner := b.firstNamedChild(tsNode); inner != nil {
			stmt.X = b.buildExpr(inner)
		}
		return stmt
	default:
		return &OtherStmt{Span: b.span(tsNode), Kind: tsNode.Type()}
	}
}

// buildImport builds an import declaration
func (b *ASTBuilder) buildImport(tsNode *sitter.Node) Stmt {
	imp := &ImportDecl{Span: b.span(tsNode)}

	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "type":
			imp.TypeOnly = true
		case "import_clause":
			b.buildImportClause(child, imp)
		case "string":
			imp.Source = b.buildString(child)
		case "import_require_clause":
			// import x = require("y") is not an ES import
			return &OtherStmt{Span: imp.Span, Kind: tsNode.Type()}
		}
	}

	return imp
}

// buildImportClause fills default, namespace and named bindings
func (b *ASTBuilder) buildImportClause(clause *sitter.Node, imp *ImportDecl) {
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier":
			imp.Default = b.buildIdentifier(child)
		case "namespace_import":
			if id := b.findChildOfType(child, "identifier"); id != nil {
				imp.Namespace = b.buildIdentifier(id)
			}
		case "named_imports":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec == nil || spec.Type() != "import_specifier" {
					continue
				}
				if s := b.buildImportSpecifier(spec); s != nil {
					imp.Named = append(imp.Named, s)
				}
			}
		}
	}
}

// buildImportSpecifier builds `name` or `name as alias`
func (b *ASTBuilder) buildImportSpecifier(spec *sitter.Node) *ImportSpecifier {
	nameNode := b.getChildByFieldName(spec, "name")
	if nameNode == nil {
		return nil
	}
	imported := b.moduleExportName(nameNode)

	localNode := b.getChildByFieldName(spec, "alias")
	if localNode == nil {
		localNode = nameNode
	}

	typeOnly := false
	for i := 0; i < int(spec.ChildCount()); i++ {
		if child := spec.Child(i); child != nil && !child.IsNamed() && child.Type() == "type" {
			typeOnly = true
		}
	}

	return &ImportSpecifier{
		Span:     b.span(spec),
		Imported: imported,
		Local:    &Identifier{Span: b.span(localNode), Name: b.moduleExportName(localNode)},
		TypeOnly: typeOnly,
	}
}

// buildExport builds every form of export statement
func (b *ASTBuilder) buildExport(tsNode *sitter.Node) Stmt {
	span := b.span(tsNode)

	var (
		isDefault bool
		isStar    bool
		source    *StringLit
		clause    *sitter.Node
		nsExport  *sitter.Node
	)
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "default":
			isDefault = true
		case "*":
			isStar = true
		case "=":
			// export = x
			return &OtherStmt{Span: span, Kind: "export_assignment"}
		case "export_clause":
			clause = child
		case "namespace_export":
			nsExport = child
		case "string":
			if tsNode.FieldNameForChild(i) == "source" || source == nil {
				source = b.buildString(child)
			}
		}
	}

	if decl := b.getChildByFieldName(tsNode, "declaration"); decl != nil {
		switch decl.Type() {
		case "lexical_declaration", "variable_declaration":
			return b.buildVarStatement(decl, span, true)
		case "class_declaration", "abstract_class_declaration":
			return b.buildClassDecl(decl, span, true, isDefault)
		}
		return &OtherStmt{Span: span, Kind: "export_" + decl.Type()}
	}

	if value := b.getChildByFieldName(tsNode, "value"); value != nil && isDefault {
		expr := b.buildExpr(value)
		if class, ok := expr.(*ClassExpr); ok {
			return &ClassDecl{Span: span, Name: class.Name, Exported: true, Default: true}
		}
		return &ExportDefault{Span: span, Value: expr}
	}

	if nsExport != nil {
		all := &ExportAll{Span: span, Source: source}
		if id := b.lastNamedChild(nsExport); id != nil {
			all.Alias = &Identifier{Span: b.span(id), Name: b.moduleExportName(id)}
		}
		return all
	}

	if isStar {
		return &ExportAll{Span: span, Source: source}
	}

	if clause != nil {
		list := &ExportList{Span: span, Source: source}
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if spec == nil || spec.Type() != "export_specifier" {
				continue
			}
			if s := b.buildExportSpecifier(spec); s != nil {
				list.Specifiers = append(list.Specifiers, s)
			}
		}
		return list
	}

	return &OtherStmt{Span: span, Kind: tsNode.Type()}
}

// buildExportSpecifier builds `local` or `local as exported`
func (b *ASTBuilder) buildExportSpecifier(spec *sitter.Node) *ExportSpecifier {
	nameNode := b.getChildByFieldName(spec, "name")
	if nameNode == nil {
		// fall back to positional children, skipping the `as` keyword
		var names []*sitter.Node
		for i := 0; i < int(spec.NamedChildCount()); i++ {
			if c := spec.NamedChild(i); c != nil && !b.isTrivia(c) {
				names = append(names, c)
			}
		}
		if len(names) == 0 {
			return nil
		}
		nameNode = names[0]
	}

	local := b.moduleExportName(nameNode)
	exported := local
	if alias := b.getChildByFieldName(spec, "alias"); alias != nil {
		exported = b.moduleExportName(alias)
	}

	return &ExportSpecifier{Span: b.span(spec), Local: local, Exported: exported}
}

// buildVarStatement builds a const/let/var statement. span is the span of
// the enclosing statement, which includes `export` when present.
func (b *ASTBuilder) buildVarStatement(tsNode *sitter.Node, span Span, exported bool) Stmt {
	stmt := &VarStatement{Span: span, Exported: exported}

	if kind := b.getChildByFieldName(tsNode, "kind"); kind != nil {
		stmt.Kind = kind.Type()
	} else if first := tsNode.Child(0); first != nil {
		stmt.Kind = first.Type()
	}

	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child == nil || child.Type() != "variable_declarator" {
			continue
		}
		decl := &VarDeclarator{Span: b.span(child)}
		if name := b.getChildByFieldName(child, "name"); name != nil && name.Type() == "identifier" {
			decl.Name = b.buildIdentifier(name)
		}
		if value := b.getChildByFieldName(child, "value"); value != nil {
			decl.Init = b.buildExpr(value)
		}
		stmt.Declarators = append(stmt.Declarators, decl)
	}

	return stmt
}

// buildClassDecl builds a class declaration
func (b *ASTBuilder) buildClassDecl(tsNode *sitter.Node, span Span, exported, isDefault bool) Stmt {
	decl := &ClassDecl{
		Span:     span,
		Exported: exported,
		Default:  isDefault,
		Abstract: tsNode.Type() == "abstract_class_declaration",
	}
	if name := b.getChildByFieldName(tsNode, "name"); name != nil {
		decl.Name = b.buildIdentifier(name)
	}
	return decl
}

// buildExpr maps an expression node
func (b *ASTBuilder) buildExpr(tsNode *sitter.Node) Expr {
	if tsNode == nil {
		return nil
	}
	span := b.span(tsNode)

	switch tsNode.Type() {
	case "identifier":
		return b.buildIdentifier(tsNode)
	case "string":
		return b.buildString(tsNode)
	case "new_expression":
		return b.buildNew(tsNode)
	case "array":
		arr := &ArrayLit{Span: span}
		for i := 0; i < int(tsNode.NamedChildCount()); i++ {
			child := tsNode.NamedChild(i)
			if child == nil || b.isTrivia(child) {
				continue
			}
			arr.Elements = append(arr.Elements, b.buildExpr(child))
		}
		return arr
	case "object":
		return b.buildObject(tsNode)
	case "as_expression":
		return &CastExpr{Span: span, Kind: CastAs, X: b.buildExpr(b.firstNamedChild(tsNode))}
	case "satisfies_expression":
		return &CastExpr{Span: span, Kind: CastSatisfies, X: b.buildExpr(b.firstNamedChild(tsNode))}
	case "non_null_expression":
		return &CastExpr{Span: span, Kind: CastNonNull, X: b.buildExpr(b.firstNamedChild(tsNode))}
	case "type_assertion":
		// <T>expr: the expression follows the type arguments
		return &CastExpr{Span: span, Kind: CastAngle, X: b.buildExpr(b.lastNamedChild(tsNode))}
	case "parenthesized_expression":
		return &ParenExpr{Span: span, X: b.buildExpr(b.firstNamedChild(tsNode))}
	case "class":
		class := &ClassExpr{Span: span}
		if name := b.getChildByFieldName(tsNode, "name"); name != nil {
			class.Name = b.buildIdentifier(name)
		}
		return class
	default:
		return &OtherExpr{Span: span, Kind: tsNode.Type()}
	}
}

// buildNew builds `new Callee(args)`
func (b *ASTBuilder) buildNew(tsNode *sitter.Node) Expr {
	expr := &NewExpr{Span: b.span(tsNode)}
	if callee := b.getChildByFieldName(tsNode, "constructor"); callee != nil {
		expr.Callee = b.buildExpr(callee)
	}
	if args := b.getChildByFieldName(tsNode, "arguments"); args != nil {
		list := &ArgList{Span: b.span(args)}
		for i := 0; i < int(args.NamedChildCount()); i++ {
			child := args.NamedChild(i)
			if child == nil || b.isTrivia(child) {
				continue
			}
			list.Items = append(list.Items, b.buildExpr(child))
		}
		expr.Args = list
	}
	return expr
}

// buildObject builds an object literal
func (b *ASTBuilder) buildObject(tsNode *sitter.Node) Expr {
	obj := &ObjectLit{Span: b.span(tsNode)}

	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child == nil || b.isTrivia(child) {
			continue
		}
		span := b.span(child)

		switch child.Type() {
		case "pair":
			key := b.getChildByFieldName(child, "key")
			value := b.getChildByFieldName(child, "value")
			if key == nil || value == nil || key.Type() == "computed_property_name" {
				obj.Props = append(obj.Props, &OtherProp{Span: span, Kind: child.Type()})
				continue
			}
			obj.Props = append(obj.Props, &PropertyAssign{
				Span:  span,
				Key:   b.propertyKey(key),
				Value: b.buildExpr(value),
			})
		case "shorthand_property_identifier":
			obj.Props = append(obj.Props, &ShorthandProp{
				Span: span,
				Name: &Identifier{Span: span, Name: child.Content(b.source)},
			})
		default:
			obj.Props = append(obj.Props, &OtherProp{Span: span, Kind: child.Type()})
		}
	}

	return obj
}

func (b *ASTBuilder) buildIdentifier(tsNode *sitter.Node) *Identifier {
	return &Identifier{Span: b.span(tsNode), Name: tsNode.Content(b.source)}
}

func (b *ASTBuilder) buildString(tsNode *sitter.Node) *StringLit {
	raw := tsNode.Content(b.source)
	lit := &StringLit{Span: b.span(tsNode), Value: raw}
	if len(raw) >= 2 {
		lit.Quote = raw[0]
		lit.Value = raw[1 : len(raw)-1]
	}
	return lit
}

// propertyKey returns the unquoted name of an object key
func (b *ASTBuilder) propertyKey(key *sitter.Node) string {
	if key.Type() == "string" {
		return b.buildString(key).Value
	}
	return key.Content(b.source)
}

// moduleExportName returns an identifier's text or a string name's value
func (b *ASTBuilder) moduleExportName(n *sitter.Node) string {
	if n.Type() == "string" {
		return b.buildString(n).Value
	}
	return n.Content(b.source)
}

// Helper methods

func (b *ASTBuilder) span(tsNode *sitter.Node) Span {
	return Span{Start: int(tsNode.StartByte()), End: int(tsNode.EndByte())}
}

// getChildByFieldName gets a child node by field name
func (b *ASTBuilder) getChildByFieldName(tsNode *sitter.Node, fieldName string) *sitter.Node {
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child != nil && tsNode.FieldNameForChild(i) == fieldName {
			return child
		}
	}
	return nil
}

func (b *ASTBuilder) findChildOfType(tsNode *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		if child := tsNode.Child(i); child != nil && child.Type() == nodeType {
			return child
		}
	}
	return nil
}

func (b *ASTBuilder) firstNamedChild(tsNode *sitter.Node) *sitter.Node {
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		if child := tsNode.NamedChild(i); child != nil && !b.isTrivia(child) {
			return child
		}
	}
	return nil
}

func (b *ASTBuilder) lastNamedChild(tsNode *sitter.Node) *sitter.Node {
	for i := int(tsNode.NamedChildCount()) - 1; i >= 0; i-- {
		if child := tsNode.NamedChild(i); child != nil && !b.isTrivia(child) {
			return child
		}
	}
	return nil
}

// isTrivia checks if a node is trivia (comments)
func (b *ASTBuilder) isTrivia(tsNode *sitter.Node) bool {
	nodeType := tsNode.Type()
	return nodeType == "comment" ||
		nodeType == "line_comment" ||
		nodeType == "block_comment" ||
		nodeType == ""
}
