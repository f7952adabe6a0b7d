package linker

import (
	"fmt"
	"log/slog"

	"github.com/ludo-technologies/tsrefs/internal/modulegraph"
	"github.com/ludo-technologies/tsrefs/internal/parser"
	"github.com/ludo-technologies/tsrefs/internal/printer"
	"github.com/ludo-technologies/tsrefs/internal/rewrite"
)

// synthesizeImports stages an import of the target in every file that
// gained a reference, unless the file already imports it
func (r *run) synthesizeImports() {
	target := r.req.Import
	imported := target.ExportName
	if target.IsDefaultExport {
		imported = "default"
	}
	for _, path := range r.needImport {
		if path == target.FilePath {
			r.outcome.ImportAdded = true
			continue
		}
		file, err := r.graph.File(r.ctx, path)
		if err != nil {
			r.outcome.LinkingError = true
			return
		}

		if !r.graph.ImportsModule(file, target.FilePath, target.ImportName, imported) {
			if modulegraph.Lookup(file, target.ImportName) != nil {
				r.logger.Debug("import name is already bound",
					slog.String("file", path),
					slog.String("name", target.ImportName))
				r.outcome.LinkingError = true
				return
			}
			r.fileEdits[path] = append(r.fileEdits[path], r.importEdit(file))
		}
		r.outcome.ImportAdded = true
	}
}

// importEdit places the import after the last import of file
func (r *run) importEdit(file *parser.File) rewrite.Edit {
	style := r.graph.Style(file)
	target := r.req.Import
	spec := r.graph.RelativeImportPath(file.Path, target.FilePath)

	stmt := printer.NamedImport(style, target.ImportName, target.ExportName, spec)
	if target.IsDefaultExport {
		stmt = printer.DefaultImport(style, target.ImportName, spec)
	}

	anchor := -1
	for i, st := range file.Statements {
		if _, ok := st.(*parser.ImportDecl); ok {
			anchor = i
		}
	}
	return insertAfter(file, anchor, stmt, style)
}

// exportEdit places a re-export of the target after the last import or
// re-export of module
func (r *run) exportEdit(module *parser.File) rewrite.Edit {
	style := r.graph.Style(module)
	target := r.req.Import
	spec := r.graph.RelativeImportPath(module.Path, target.FilePath)

	var stmt string
	switch {
	case r.req.Options.PreferWildcardReexport:
		stmt = printer.ExportAllFrom(style, spec)
	case target.IsDefaultExport:
		stmt = printer.ExportFrom(style, target.ImportName, "default", spec)
	default:
		stmt = printer.ExportFrom(style, target.ImportName, target.ExportName, spec)
	}

	anchor := -1
	for i, st := range module.Statements {
		switch st.(type) {
		case *parser.ImportDecl, *parser.ExportList, *parser.ExportAll:
			anchor = i
		}
	}
	return insertAfter(module, anchor, stmt, style)
}

// insertAfter inserts stmt after statement index, after the first statement
// when index is negative, or at the top of an empty file
func insertAfter(file *parser.File, index int, stmt string, style printer.Style) rewrite.Edit {
	if len(file.Statements) == 0 {
		return printer.StatementAtStart(stmt, style)
	}
	if index < 0 {
		index = 0
	}
	return printer.StatementAfter(file.Source, file.Statements[index].Pos(), stmt, style)
}

// commit applies the staged edits of every dirty file once and records the
// new versions in the graph. Nothing is written.
func (r *run) commit() error {
	for _, path := range r.graph.Dirty() {
		file, err := r.graph.File(r.ctx, path)
		if err != nil {
			return fmt.Errorf("cannot fetch %s: %w", path, err)
		}

		edits := append(r.patches.take(file), r.fileEdits[path]...)
		if len(edits) == 0 {
			continue
		}
		source, err := rewrite.Apply(file.Source, edits)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		next, err := r.graph.Reparse(r.ctx, path, source)
		if err != nil {
			return err
		}
		if next.HasError && !file.HasError {
			return fmt.Errorf("%w: %s", modulegraph.ErrUnparsable, path)
		}
		r.graph.Replace(next)
	}

	if n := r.patches.pending(); n > 0 {
		return fmt.Errorf("%d declarations were left unpatched", n)
	}
	return nil
}
