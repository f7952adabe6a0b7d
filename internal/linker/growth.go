package linker

import (
	"github.com/ludo-technologies/tsrefs/internal/parser"
	"github.com/ludo-technologies/tsrefs/internal/printer"
	"github.com/ludo-technologies/tsrefs/internal/rewrite"
)

// growExisting grows the value of the configured property when the options
// object already has it
func (r *run) growExisting(file *parser.File, call *parser.NewExpr, key parser.Node) {
	obj := optionsObject(call)
	if obj == nil {
		return
	}
	for _, p := range obj.Props {
		if r.done() {
			return
		}
		switch prop := p.(type) {
		case *parser.PropertyAssign:
			if prop.Key == r.req.PropertyName {
				r.growValue(file, prop.Value, key)
			}
		case *parser.ShorthandProp:
			if prop.Name.Name == r.req.PropertyName {
				r.followIdentifier(file, prop.Name.Name)
			}
		}
	}
}

// addNew creates the configured property holding the reference. Calls
// without arguments get a fresh options object; an options object that
// already has the property is left alone.
func (r *run) addNew(file *parser.File, call *parser.NewExpr, key parser.Node) {
	style := r.graph.Style(file)
	prop := printer.PropertyAssignment(style, r.req.PropertyName, r.newContainer())

	switch {
	case call.Args == nil:
		r.patches.add(key, rewrite.Insert(call.End, "("+printer.ObjectOf(prop)+")"))
	case len(call.Args.Items) == 0:
		r.patches.add(key, printer.InsertListItem(file.Source, call.Args.Span, nil, printer.ObjectOf(prop), style, false)...)
	default:
		obj := optionsObject(call)
		if obj == nil {
			return
		}
		for _, p := range obj.Props {
			if parser.PropertyName(p) == r.req.PropertyName {
				return
			}
		}
		r.patches.add(key, printer.InsertListItem(file.Source, obj.Span, propSpans(obj.Props), prop, style, true)...)
	}

	r.outcome.ReferenceAdded = true
	r.requireImport(file.Path)
}

func (r *run) newContainer() string {
	if r.req.Options.InstantiateObjectByDefault {
		return printer.ObjectOf(r.req.Import.ImportName)
	}
	return printer.ArrayOf(r.req.Import.ImportName)
}

// growArray appends the import name to arr unless an element already names it
func (r *run) growArray(file *parser.File, arr *parser.ArrayLit, key parser.Node) {
	name := r.req.Import.ImportName
	spans := make([]parser.Span, 0, len(arr.Elements))
	for _, el := range arr.Elements {
		if id, ok := parser.Unwrap(el).(*parser.Identifier); ok && id.Name == name {
			r.alreadyPresent()
			return
		}
		spans = append(spans, el.Pos())
	}

	r.patches.add(key, printer.InsertListItem(file.Source, arr.Span, spans, name, r.graph.Style(file), false)...)
	r.outcome.ReferenceAdded = true
	r.requireImport(file.Path)
}

// growObject adds the import name to obj as a shorthand property unless a
// property already refers to it
func (r *run) growObject(file *parser.File, obj *parser.ObjectLit, key parser.Node) {
	name := r.req.Import.ImportName
	for _, p := range obj.Props {
		switch prop := p.(type) {
		case *parser.ShorthandProp:
			if prop.Name.Name == name {
				r.alreadyPresent()
				return
			}
		case *parser.PropertyAssign:
			if file.Text(prop.Value) == name {
				r.alreadyPresent()
				return
			}
		}
	}

	r.patches.add(key, printer.InsertListItem(file.Source, obj.Span, propSpans(obj.Props), name, r.graph.Style(file), true)...)
	r.outcome.ReferenceAdded = true
	r.requireImport(file.Path)
}

// alreadyPresent records a reference found in place. Its import is assumed
// to be in place as well.
func (r *run) alreadyPresent() {
	r.outcome.ReferenceAdded = true
	r.outcome.ImportAdded = true
}

func propSpans(props []parser.Property) []parser.Span {
	spans := make([]parser.Span, 0, len(props))
	for _, p := range props {
		spans = append(spans, p.Pos())
	}
	return spans
}
