package modulegraph

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/tsrefs/internal/parser"
)

// DeclKind is the kind of defining declaration a name resolves to
type DeclKind int

const (
	// DeclVariable is `const name = <init>`
	DeclVariable DeclKind = iota
	// DeclDefaultValue is `export default <expression>`
	DeclDefaultValue
	// DeclClass is a class declaration
	DeclClass
	// DeclNamespace is a whole module bound by `import * as` or `export * as`
	DeclNamespace
)

// Declaration is where a name is ultimately defined
type Declaration struct {
	Kind DeclKind
	File *parser.File

	Declarator *parser.VarDeclarator
	Default    *parser.ExportDefault
	Class      *parser.ClassDecl

	// Module is the resolved path of a DeclNamespace
	Module string
}

var sourceExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// ResolveModule maps a relative module specifier used in from to a file
// path. Bare package specifiers are not resolved.
func (g *Graph) ResolveModule(from, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") &&
		specifier != "." && specifier != ".." && !filepath.IsAbs(specifier) {
		return "", false
	}

	base := filepath.Clean(filepath.Join(filepath.Dir(Normalize(from)), filepath.FromSlash(specifier)))
	if filepath.IsAbs(specifier) {
		base = filepath.Clean(filepath.FromSlash(specifier))
	}

	for _, candidate := range moduleCandidates(base) {
		if info, err := g.fs.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// moduleCandidates lists the files a specifier may refer to, most specific
// first. An emitted extension (.js, .mjs, .cjs) maps back to its source.
func moduleCandidates(base string) []string {
	var out []string
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	switch ext {
	case ".js", ".jsx":
		out = append(out, stem+".ts", stem+".tsx")
	case ".mjs":
		out = append(out, stem+".mts")
	case ".cjs":
		out = append(out, stem+".cts")
	case ".ts", ".tsx", ".mts", ".cts":
		out = append(out, base)
	}

	for _, e := range sourceExtensions {
		out = append(out, base+e)
	}
	for _, e := range sourceExtensions {
		out = append(out, filepath.Join(base, "index"+e))
	}
	return out
}

// ResolveIdentifier resolves name as seen from the top level of file to
// its defining declaration, following imports and re-exports across files.
// It returns nil when the name cannot be resolved or the chain is cyclic.
func (g *Graph) ResolveIdentifier(ctx context.Context, file *parser.File, name string) *Declaration {
	return g.resolveLocal(ctx, file, name, make(map[string]bool))
}

// ResolveBinding resolves an already looked-up binding
func (g *Graph) ResolveBinding(ctx context.Context, b *Binding) *Declaration {
	return g.resolveBinding(ctx, b, make(map[string]bool))
}

func (g *Graph) resolveLocal(ctx context.Context, file *parser.File, name string, visited map[string]bool) *Declaration {
	key := Normalize(file.Path) + "#" + name
	if visited[key] {
		return nil
	}
	visited[key] = true

	b := Lookup(file, name)
	if b == nil {
		return nil
	}
	return g.resolveBinding(ctx, b, visited)
}

func (g *Graph) resolveBinding(ctx context.Context, b *Binding, visited map[string]bool) *Declaration {
	switch b.Kind {
	case BindingVariable:
		return &Declaration{Kind: DeclVariable, File: b.File, Declarator: b.Declarator}
	case BindingClass:
		return &Declaration{Kind: DeclClass, File: b.File, Class: b.Class}
	}

	if b.Import == nil || b.Import.Source == nil {
		return nil
	}
	target, ok := g.ResolveModule(b.File.Path, b.Import.Source.Value)
	if !ok {
		g.logger.Debug("unresolved module", slog.String("from", b.File.Path), slog.String("specifier", b.Import.Source.Value))
		return nil
	}

	switch b.Kind {
	case BindingNamespaceImport:
		return &Declaration{Kind: DeclNamespace, File: b.File, Module: target}
	default:
		return g.resolveExport(ctx, target, b.Imported, visited)
	}
}

// resolveExport finds the declaration exported from path under name
func (g *Graph) resolveExport(ctx context.Context, path, name string, visited map[string]bool) *Declaration {
	key := Normalize(path) + "|" + name
	if visited[key] {
		return nil
	}
	visited[key] = true

	file, err := g.File(ctx, path)
	if err != nil {
		g.logger.Debug("cannot read module", slog.String("path", path), slog.Any("error", err))
		return nil
	}

	var starSources []string
	for _, st := range file.Statements {
		switch s := st.(type) {
		case *parser.VarStatement:
			if !s.Exported {
				continue
			}
			for _, d := range s.Declarators {
				if d.Name != nil && d.Name.Name == name {
					return &Declaration{Kind: DeclVariable, File: file, Declarator: d}
				}
			}

		case *parser.ClassDecl:
			if !s.Exported {
				continue
			}
			if (s.Default && name == "default") || (!s.Default && s.Name != nil && s.Name.Name == name) {
				return &Declaration{Kind: DeclClass, File: file, Class: s}
			}

		case *parser.ExportDefault:
			if name != "default" {
				continue
			}
			if id, ok := parser.Unwrap(s.Value).(*parser.Identifier); ok {
				return g.resolveLocal(ctx, file, id.Name, visited)
			}
			return &Declaration{Kind: DeclDefaultValue, File: file, Default: s}

		case *parser.ExportList:
			for _, spec := range s.Specifiers {
				if spec.Exported != name {
					continue
				}
				if s.Source == nil {
					return g.resolveLocal(ctx, file, spec.Local, visited)
				}
				target, ok := g.ResolveModule(file.Path, s.Source.Value)
				if !ok {
					return nil
				}
				return g.resolveExport(ctx, target, spec.Local, visited)
			}

		case *parser.ExportAll:
			if s.Source == nil {
				continue
			}
			if s.Alias != nil {
				if s.Alias.Name == name {
					if target, ok := g.ResolveModule(file.Path, s.Source.Value); ok {
						return &Declaration{Kind: DeclNamespace, File: file, Module: target}
					}
					return nil
				}
				continue
			}
			if name != "default" {
				starSources = append(starSources, s.Source.Value)
			}
		}
	}

	// explicit exports shadow names re-exported through `export *`
	for _, spec := range starSources {
		target, ok := g.ResolveModule(file.Path, spec)
		if !ok {
			continue
		}
		if decl := g.resolveExport(ctx, target, name, visited); decl != nil {
			return decl
		}
	}
	return nil
}

// ReexportsModule reports whether file already re-exports module through
// `export * from` or `export { ... } from`
func (g *Graph) ReexportsModule(file *parser.File, module, name string) bool {
	module = Normalize(module)
	for _, st := range file.Statements {
		switch s := st.(type) {
		case *parser.ExportAll:
			if s.Alias != nil || s.Source == nil {
				continue
			}
			if target, ok := g.ResolveModule(file.Path, s.Source.Value); ok && target == module {
				return true
			}
		case *parser.ExportList:
			if s.Source == nil {
				continue
			}
			target, ok := g.ResolveModule(file.Path, s.Source.Value)
			if !ok || target != module {
				continue
			}
			for _, spec := range s.Specifiers {
				if spec.Exported == name {
					return true
				}
			}
		}
	}
	return false
}

// ImportsModule reports whether file already binds local to the value
// export imported of module. Type-only imports bind no value.
func (g *Graph) ImportsModule(file *parser.File, module, local, imported string) bool {
	b := Lookup(file, local)
	if b == nil || b.Import == nil || b.Import.Source == nil || b.TypeOnly {
		return false
	}
	if b.Kind == BindingNamespaceImport || b.Imported != imported {
		return false
	}
	target, ok := g.ResolveModule(file.Path, b.Import.Source.Value)
	return ok && target == Normalize(module)
}
