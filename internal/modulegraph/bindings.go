package modulegraph

import (
	"github.com/ludo-technologies/tsrefs/internal/parser"
)

// BindingKind is the kind of top-level declaration a name is bound by
type BindingKind int

const (
	BindingVariable BindingKind = iota
	BindingClass
	BindingNamedImport
	BindingDefaultImport
	BindingNamespaceImport
)

func (k BindingKind) String() string {
	switch k {
	case BindingVariable:
		return "variable"
	case BindingClass:
		return "class"
	case BindingNamedImport:
		return "named import"
	case BindingDefaultImport:
		return "default import"
	case BindingNamespaceImport:
		return "namespace import"
	}
	return "unknown"
}

// Binding is the top-level declaration of a name in one file
type Binding struct {
	Kind BindingKind
	Name string
	File *parser.File

	// Declarator is set for BindingVariable
	Declarator *parser.VarDeclarator

	// Class is set for BindingClass
	Class *parser.ClassDecl

	// Import and Imported are set for the import kinds. Imported is the
	// name exported by the source module ("default" for default imports).
	Import   *parser.ImportDecl
	Imported string

	// TypeOnly is set for `import type` and `import { type X }`, which
	// bind no runtime value
	TypeOnly bool
}

// Lookup finds the top-level binding of name in file, or nil
func Lookup(file *parser.File, name string) *Binding {
	for _, st := range file.Statements {
		switch s := st.(type) {
		case *parser.VarStatement:
			for _, d := range s.Declarators {
				if d.Name != nil && d.Name.Name == name {
					return &Binding{Kind: BindingVariable, Name: name, File: file, Declarator: d}
				}
			}
		case *parser.ClassDecl:
			if s.Name != nil && s.Name.Name == name {
				return &Binding{Kind: BindingClass, Name: name, File: file, Class: s}
			}
		case *parser.ImportDecl:
			if s.Default != nil && s.Default.Name == name {
				return &Binding{Kind: BindingDefaultImport, Name: name, File: file, Import: s, Imported: "default", TypeOnly: s.TypeOnly}
			}
			if s.Namespace != nil && s.Namespace.Name == name {
				return &Binding{Kind: BindingNamespaceImport, Name: name, File: file, Import: s, TypeOnly: s.TypeOnly}
			}
			for _, spec := range s.Named {
				if spec.Local.Name == name {
					return &Binding{Kind: BindingNamedImport, Name: name, File: file, Import: s, Imported: spec.Imported, TypeOnly: s.TypeOnly || spec.TypeOnly}
				}
			}
		}
	}
	return nil
}
