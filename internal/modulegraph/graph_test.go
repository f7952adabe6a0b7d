package modulegraph

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/tsrefs/internal/modsys"
	"github.com/ludo-technologies/tsrefs/internal/parser"
	"github.com/ludo-technologies/tsrefs/internal/printer"
	"github.com/ludo-technologies/tsrefs/internal/testutil"
)

func newGraph(t *testing.T, files testutil.Files) (*Graph, afero.Fs) {
	t.Helper()
	fs := testutil.NewFs(t, "/repo", files)
	g := New(fs, "/repo/src/data-source.ts")
	require.NoError(t, g.Init(context.Background()))
	return g, fs
}

func TestGraphReadsEachFileOnce(t *testing.T) {
	fs := testutil.NewFs(t, "/repo", testutil.Files{
		"src/data-source.ts": `export const a = [];`,
	})

	reads := 0
	g := New(fs, "/repo/src/data-source.ts", WithParser(func(ctx context.Context, path string, src []byte) (*parser.File, error) {
		reads++
		return parser.ParseForLanguage(ctx, path, src)
	}))
	ctx := context.Background()

	require.NoError(t, g.Init(ctx))
	first, err := g.File(ctx, "/repo/src/../src/data-source.ts")
	require.NoError(t, err)
	second, err := g.File(ctx, "/repo/src/data-source.ts")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, reads)
}

func TestGraphReplaceServesLatestVersion(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{
		"src/data-source.ts": `export const a = [];`,
	})
	ctx := context.Background()

	next, err := g.Reparse(ctx, g.Entry(), []byte(`export const a = [B];`))
	require.NoError(t, err)
	g.Replace(next)

	got, err := g.File(ctx, g.Entry())
	require.NoError(t, err)
	assert.Equal(t, "export const a = [B];", string(got.Source))
}

func TestGraphDirtySetIsOrderedAndUnique(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{"src/data-source.ts": ``})

	g.MarkDirty("/repo/src/b.ts")
	g.MarkDirty("/repo/src/a.ts")
	g.MarkDirty("/repo/src/./b.ts")

	assert.Equal(t, []string{"/repo/src/b.ts", "/repo/src/a.ts"}, g.Dirty())
	assert.True(t, g.IsDirty("/repo/src/a.ts"))
	assert.False(t, g.IsDirty("/repo/src/c.ts"))
}

func TestGraphModuleSystem(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{
		"package.json":       `{"type": "module"}`,
		"src/data-source.ts": ``,
	})
	assert.Equal(t, modsys.ESM, g.ModuleSystem())
	assert.Equal(t, "./entity/User.js", g.RelativeImportPath(g.Entry(), "/repo/src/entity/User.ts"))

	fixed := New(afero.NewMemMapFs(), "/x/a.ts", WithModuleSystem(modsys.CommonJS))
	assert.Equal(t, "./b", fixed.RelativeImportPath("/x/a.ts", "/x/b.ts"))
}

func TestResolveModule(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{
		"src/data-source.ts":  ``,
		"src/entities.ts":     ``,
		"src/models/index.ts": ``,
		"src/legacy.cts":      ``,
		"src/entity/User.mts": ``,
		"src/entity/Post.ts":  ``,
	})
	from := g.Entry()

	tests := map[string]string{
		"./entities.js":         "/repo/src/entities.ts",
		"./entities":            "/repo/src/entities.ts",
		"./models":              "/repo/src/models/index.ts",
		"./legacy.cjs":          "/repo/src/legacy.cts",
		"./entity/User.mjs":     "/repo/src/entity/User.mts",
		"../src/entity/Post.ts": "/repo/src/entity/Post.ts",
	}
	for spec, want := range tests {
		got, ok := g.ResolveModule(from, spec)
		assert.True(t, ok, spec)
		assert.Equal(t, want, got, spec)
	}

	_, ok := g.ResolveModule(from, "typeorm")
	assert.False(t, ok, "package specifiers are not resolved")
	_, ok = g.ResolveModule(from, "./missing.js")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	file := testutil.ParseTS(t, `
import Def from "./a.js";
import * as ns from "./b.js";
import { x as y } from "./c.js";
const list = [];
export class Model {}
`)

	cases := map[string]BindingKind{
		"Def":   BindingDefaultImport,
		"ns":    BindingNamespaceImport,
		"y":     BindingNamedImport,
		"list":  BindingVariable,
		"Model": BindingClass,
	}
	for name, kind := range cases {
		b := Lookup(file, name)
		require.NotNil(t, b, name)
		assert.Equal(t, kind, b.Kind, name)
	}

	assert.Equal(t, "x", Lookup(file, "y").Imported)
	assert.Equal(t, "default", Lookup(file, "Def").Imported)
	assert.Nil(t, Lookup(file, "x"), "the imported name is not bound locally")
}

func TestResolveIdentifierAcrossFiles(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{
		"src/data-source.ts": `
			import { entities } from "./barrel.js";
			import lists from "./lists.js";
			import * as all from "./models/index.js";
			import { renamed } from "./renamed.js";
			import { starred } from "./star.js";
			import defaultLiteral from "./literal.js";
		`,
		"src/barrel.ts":       `export { entities } from "./entities.js";`,
		"src/entities.ts":     `export const entities = [];`,
		"src/lists.ts":        `const inner = {}; export default inner;`,
		"src/models/index.ts": `export * from "./User.js";`,
		"src/renamed.ts":      `const local = []; export { local as renamed };`,
		"src/star.ts":         `export * from "./deep.js";`,
		"src/deep.ts":         `export const starred = [];`,
		"src/literal.ts":      `export default [] as any[];`,
	})
	ctx := context.Background()
	entry, err := g.File(ctx, g.Entry())
	require.NoError(t, err)

	decl := g.ResolveIdentifier(ctx, entry, "entities")
	require.NotNil(t, decl)
	assert.Equal(t, DeclVariable, decl.Kind)
	assert.Equal(t, "/repo/src/entities.ts", decl.File.Path)
	assert.Equal(t, "entities", decl.Declarator.Name.Name)

	decl = g.ResolveIdentifier(ctx, entry, "lists")
	require.NotNil(t, decl)
	assert.Equal(t, DeclVariable, decl.Kind)
	assert.Equal(t, "inner", decl.Declarator.Name.Name)

	decl = g.ResolveIdentifier(ctx, entry, "all")
	require.NotNil(t, decl)
	assert.Equal(t, DeclNamespace, decl.Kind)
	assert.Equal(t, "/repo/src/models/index.ts", decl.Module)

	decl = g.ResolveIdentifier(ctx, entry, "renamed")
	require.NotNil(t, decl)
	assert.Equal(t, "local", decl.Declarator.Name.Name)

	decl = g.ResolveIdentifier(ctx, entry, "starred")
	require.NotNil(t, decl)
	assert.Equal(t, "/repo/src/deep.ts", decl.File.Path)

	decl = g.ResolveIdentifier(ctx, entry, "defaultLiteral")
	require.NotNil(t, decl)
	assert.Equal(t, DeclDefaultValue, decl.Kind)
	assert.Equal(t, "/repo/src/literal.ts", decl.File.Path)

	assert.Nil(t, g.ResolveIdentifier(ctx, entry, "nothing"))
}

func TestResolveIdentifierCycleTerminates(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{
		"src/data-source.ts": `import { loop } from "./a.js";`,
		"src/a.ts":           `export { loop } from "./b.js";`,
		"src/b.ts":           `export { loop } from "./a.js";`,
	})
	ctx := context.Background()
	entry, err := g.File(ctx, g.Entry())
	require.NoError(t, err)

	assert.Nil(t, g.ResolveIdentifier(ctx, entry, "loop"))
}

func TestReexportsAndImportsModule(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{
		"src/data-source.ts": `import { User } from "./entity/User.js";`,
		"src/index.ts":       `export * from "./entity/User.js"; export { Post } from "./entity/Post.js";`,
		"src/entity/User.ts": `export class User {}`,
		"src/entity/Post.ts": `export class Post {}`,
	})
	ctx := context.Background()
	entry, err := g.File(ctx, g.Entry())
	require.NoError(t, err)
	index, err := g.File(ctx, "/repo/src/index.ts")
	require.NoError(t, err)

	assert.True(t, g.ImportsModule(entry, "/repo/src/entity/User.ts", "User", "User"))
	assert.False(t, g.ImportsModule(entry, "/repo/src/entity/User.ts", "User", "default"))
	assert.False(t, g.ImportsModule(entry, "/repo/src/entity/Post.ts", "Post", "Post"))

	assert.True(t, g.ReexportsModule(index, "/repo/src/entity/User.ts", "User"))
	assert.True(t, g.ReexportsModule(index, "/repo/src/entity/Post.ts", "Post"))
	assert.False(t, g.ReexportsModule(index, "/repo/src/entity/Post.ts", "Other"))
}

func TestImportsModuleRequiresValueImport(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{
		"src/data-source.ts": `
			import type { User } from "./entity/User.js";
			import { type Post } from "./entity/Post.js";
			import { Schema as Tag } from "./entity/Tag.js";
			import Category from "./entity/Category.js";
		`,
		"src/entity/User.ts":     `export class User {}`,
		"src/entity/Post.ts":     `export class Post {}`,
		"src/entity/Tag.ts":      `export class Tag {} export class Schema {}`,
		"src/entity/Category.ts": `export default class {}`,
	})
	entry, err := g.File(context.Background(), g.Entry())
	require.NoError(t, err)

	assert.False(t, g.ImportsModule(entry, "/repo/src/entity/User.ts", "User", "User"))
	assert.False(t, g.ImportsModule(entry, "/repo/src/entity/Post.ts", "Post", "Post"))
	assert.False(t, g.ImportsModule(entry, "/repo/src/entity/Tag.ts", "Tag", "Tag"))
	assert.True(t, g.ImportsModule(entry, "/repo/src/entity/Tag.ts", "Tag", "Schema"))
	assert.True(t, g.ImportsModule(entry, "/repo/src/entity/Category.ts", "Category", "default"))

	b := Lookup(entry, "Post")
	require.NotNil(t, b)
	assert.True(t, b.TypeOnly)
}

func TestWriteBack(t *testing.T) {
	g, fs := newGraph(t, testutil.Files{
		"src/data-source.ts": "export const a = [];\n",
	})
	ctx := context.Background()

	next, err := g.Reparse(ctx, g.Entry(), []byte("export const a = [B];\n"))
	require.NoError(t, err)
	g.Replace(next)
	g.MarkDirty(g.Entry())

	written, err := g.WriteBack(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/src/data-source.ts"}, written)
	assert.Equal(t, "export const a = [B];\n", testutil.ReadFile(t, fs, "/repo/src/data-source.ts"))
}

func TestWriteBackAbortsWhenDirtyFileMissing(t *testing.T) {
	g, fs := newGraph(t, testutil.Files{
		"src/data-source.ts": "export const a = [];\n",
	})
	ctx := context.Background()

	next, err := g.Reparse(ctx, g.Entry(), []byte("export const a = [B];\n"))
	require.NoError(t, err)
	g.Replace(next)
	g.MarkDirty(g.Entry())
	g.MarkDirty("/repo/src/gone.ts")

	written, err := g.WriteBack(ctx)
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.Equal(t, "export const a = [];\n", testutil.ReadFile(t, fs, "/repo/src/data-source.ts"))
}

func TestWriteBackRejectsBrokenEdit(t *testing.T) {
	g, _ := newGraph(t, testutil.Files{
		"src/data-source.ts": "export const a = [];\n",
	})
	ctx := context.Background()

	next, err := g.Reparse(ctx, g.Entry(), []byte("export const a = [B;\n"))
	require.NoError(t, err)
	g.Replace(next)
	g.MarkDirty(g.Entry())

	_, err = g.WriteBack(ctx)
	assert.True(t, errors.Is(err, ErrUnparsable))
}

func TestNewlineFallsBackToEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/src/data-source.ts", []byte("const a = [];\r\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/src/one-line.ts", []byte("export const b = [];"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/src/lf.ts", []byte("export const c = [];\n"), 0o644))

	g := New(fs, "/repo/src/data-source.ts")
	ctx := context.Background()
	require.NoError(t, g.Init(ctx))
	_, err := g.File(ctx, "/repo/src/one-line.ts")
	require.NoError(t, err)
	_, err = g.File(ctx, "/repo/src/lf.ts")
	require.NoError(t, err)

	assert.Equal(t, printer.CRLF, g.Newline("/repo/src/data-source.ts"))
	assert.Equal(t, printer.CRLF, g.Newline("/repo/src/one-line.ts"))
	assert.Equal(t, printer.LF, g.Newline("/repo/src/lf.ts"))
	assert.Equal(t, printer.CRLF, g.Newline("/repo/src/never-read.ts"))
}
