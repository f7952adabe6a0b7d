package linker

import (
	"log/slog"

	"github.com/ludo-technologies/tsrefs/internal/modulegraph"
	"github.com/ludo-technologies/tsrefs/internal/parser"
)

// growValue grows the list an expression evaluates to. Casts and
// parentheses are looked through; identifiers are followed to their
// declarations. key is the top-level node the edits belong to.
func (r *run) growValue(file *parser.File, expr parser.Expr, key parser.Node) {
	if r.done() || expr == nil {
		return
	}
	switch x := parser.Unwrap(expr).(type) {
	case *parser.ArrayLit:
		r.growArray(file, x, key)
	case *parser.ObjectLit:
		if r.req.Options.TreatObjectAsList {
			r.growObject(file, x, key)
		}
	case *parser.Identifier:
		r.followIdentifier(file, x.Name)
	}
}

// followIdentifier resolves name in file and grows the value it is declared with
func (r *run) followIdentifier(file *parser.File, name string) {
	if r.done() {
		return
	}
	visitKey := modulegraph.Normalize(file.Path) + "#" + name
	if r.seen[visitKey] {
		return
	}
	r.seen[visitKey] = true

	decl := r.graph.ResolveIdentifier(r.ctx, file, name)
	if decl == nil {
		r.logger.Debug("unresolved identifier", slog.String("file", file.Path), slog.String("name", name))
		return
	}
	r.growDeclaration(decl)
}

func (r *run) growDeclaration(decl *modulegraph.Declaration) {
	switch decl.Kind {
	case modulegraph.DeclVariable:
		if decl.Declarator.Init == nil || !r.mayEdit(decl.File.Path) || r.seen[decl.Declarator] {
			return
		}
		r.seen[decl.Declarator] = true
		r.growValue(decl.File, decl.Declarator.Init, decl.Declarator)

	case modulegraph.DeclDefaultValue:
		if !r.mayEdit(decl.File.Path) || r.seen[decl.Default] {
			return
		}
		r.seen[decl.Default] = true
		r.growValue(decl.File, decl.Default.Value, decl.Default)

	case modulegraph.DeclNamespace:
		r.growNamespace(decl.Module)
	}
}

// growNamespace makes the target visible through a module imported with
// `import * as`, by re-exporting it from that module
func (r *run) growNamespace(path string) {
	if !r.req.Options.TreatNamespaceAsList {
		return
	}
	module, err := r.graph.File(r.ctx, path)
	if err != nil {
		r.logger.Debug("cannot read namespace module", slog.String("path", path), slog.Any("error", err))
		return
	}
	if !r.mayEdit(module.Path) {
		return
	}

	if !r.graph.ReexportsModule(module, r.req.Import.FilePath, r.req.Import.ImportName) {
		r.fileEdits[module.Path] = append(r.fileEdits[module.Path], r.exportEdit(module))
		r.graph.MarkDirty(module.Path)
	}
	r.outcome.ReferenceAdded = true
	r.outcome.ImportAdded = true
}

// mayEdit reports whether the run is allowed to edit path
func (r *run) mayEdit(path string) bool {
	return r.req.Options.UpdateOtherFiles || r.graph.IsEntry(path)
}
