package linker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/tsrefs/domain"
	"github.com/ludo-technologies/tsrefs/internal/testutil"
)

const (
	root       = "/proj"
	dataSource = "/proj/src/data-source.ts"
	userFile   = "/proj/src/entity/User.ts"
)

func userTarget() domain.ImportTarget {
	return domain.ImportTarget{
		FilePath:   userFile,
		ImportName: "User",
		ExportName: "User",
	}
}

func request(opts domain.LinkOptions) domain.LinkRequest {
	return domain.LinkRequest{
		TargetFile:      dataSource,
		ConstructorName: "DataSource",
		PropertyName:    "entities",
		Import:          userTarget(),
		Options:         opts,
	}
}

func allowAll() domain.LinkOptions {
	opts := domain.DefaultLinkOptions()
	opts.UpdateOtherFiles = true
	opts.TreatObjectAsList = true
	return opts
}

func link(t *testing.T, fs afero.Fs, req domain.LinkRequest) *domain.LinkResult {
	t.Helper()
	res, err := New(req, WithFs(fs)).Link(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestAddToExistingArray(t *testing.T) {
	fs := testutil.NewFs(t, root, testutil.Files{
		"package.json": `{"type": "module"}`,
		"src/data-source.ts": `
			import { DataSource } from "typeorm";

			export const AppDataSource = new DataSource({
			  type: "postgres",
			  entities: [],
			});
		`,
		"src/entity/User.ts": `export class User {}`,
	})

	files, err := New(request(domain.DefaultLinkOptions()), WithFs(fs)).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{dataSource}, files)

	want := testutil.Dedent(`
		import { DataSource } from "typeorm";
		import { User } from "./entity/User.js";

		export const AppDataSource = new DataSource({
		  type: "postgres",
		  entities: [User],
		});
	`)
	assert.Equal(t, want, testutil.ReadFile(t, fs, dataSource))
}

func TestSecondApplicationChangesNothing(t *testing.T) {
	fs := testutil.NewFs(t, root, testutil.Files{
		"src/data-source.ts": `
			import { DataSource } from "typeorm";
			import { Post } from "./entity/Post";

			export const AppDataSource = new DataSource({
			  entities: [Post],
			});
		`,
		"src/entity/User.ts": `export class User {}`,
		"src/entity/Post.ts": `export class Post {}`,
	})

	first, err := New(request(domain.DefaultLinkOptions()), WithFs(fs)).Apply(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	after := testutil.ReadFile(t, fs, dataSource)
	assert.Contains(t, after, "entities: [Post, User]")
	assert.Contains(t, after, `import { User } from "./entity/User";`)

	second, err := New(request(domain.DefaultLinkOptions()), WithFs(fs)).Apply(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, second)
	assert.Empty(t, second)
	assert.Equal(t, after, testutil.ReadFile(t, fs, dataSource))
}

func TestCreatesMissingProperty(t *testing.T) {
	tests := []struct {
		name   string
		opts   func(*domain.LinkOptions)
		source string
		want   string
	}{
		{
			name: "object by default",
			opts: func(o *domain.LinkOptions) { o.InstantiateObjectByDefault = true },
			source: `
				import { DataSource } from "typeorm"
				export const AppDataSource = new DataSource({
				  type: "postgres",
				})
			`,
			want: `
				import { DataSource } from "typeorm"
				import { User } from "./entity/User"
				export const AppDataSource = new DataSource({
				  type: "postgres",
				  entities: { User },
				})
			`,
		},
		{
			name: "array in inline options",
			source: `
				import { DataSource } from "typeorm";
				export default new DataSource({ type: "sqlite" });
			`,
			want: `
				import { DataSource } from "typeorm";
				import { User } from "./entity/User";
				export default new DataSource({ type: "sqlite", entities: [User] });
			`,
		},
		{
			name: "empty argument list",
			source: `
				import { DataSource } from "typeorm";
				const ds = new DataSource();
			`,
			want: `
				import { DataSource } from "typeorm";
				import { User } from "./entity/User";
				const ds = new DataSource({ entities: [User] });
			`,
		},
		{
			name: "empty options object",
			source: `
				import { DataSource } from "typeorm";
				new DataSource({});
			`,
			want: `
				import { DataSource } from "typeorm";
				import { User } from "./entity/User";
				new DataSource({ entities: [User] });
			`,
		},
		{
			name: "cast options",
			source: `
				import { DataSource, DataSourceOptions } from "typeorm";
				export const ds = new DataSource({ type: "sqlite" } as DataSourceOptions);
			`,
			want: `
				import { DataSource, DataSourceOptions } from "typeorm";
				import { User } from "./entity/User";
				export const ds = new DataSource({ type: "sqlite", entities: [User] } as DataSourceOptions);
			`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := testutil.NewFs(t, root, testutil.Files{
				"src/data-source.ts": tt.source,
				"src/entity/User.ts": `export class User {}`,
			})
			opts := domain.DefaultLinkOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			res := link(t, fs, request(opts))
			require.NoError(t, res.Reason)
			assert.Equal(t, []string{dataSource}, res.Files)
			assert.Equal(t, testutil.Dedent(tt.want), testutil.ReadFile(t, fs, dataSource))
		})
	}
}

func TestGrowsListShapes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name: "multi-line array with trailing comma",
			source: `
				import { DataSource } from "typeorm";
				import { Post } from "./entity/Post";

				export const ds = new DataSource({
				  entities: [
				    Post,
				  ],
				});
			`,
			want: `
				import { DataSource } from "typeorm";
				import { Post } from "./entity/Post";
				import { User } from "./entity/User";

				export const ds = new DataSource({
				  entities: [
				    Post,
				    User,
				  ],
				});
			`,
		},
		{
			name: "empty multi-line array keeps its comment",
			source: `
				import { DataSource } from "typeorm";

				export const ds = new DataSource({
				  entities: [
				    // add entities here
				  ],
				});
			`,
			want: `
				import { DataSource } from "typeorm";
				import { User } from "./entity/User";

				export const ds = new DataSource({
				  entities: [
				    // add entities here
				    User
				  ],
				});
			`,
		},
		{
			name: "local variable through shorthand",
			source: `
				import { DataSource } from "typeorm";
				import { Post } from "./entity/Post";

				const entities = [Post];

				export default new DataSource({
				  entities,
				});
			`,
			want: `
				import { DataSource } from "typeorm";
				import { Post } from "./entity/Post";
				import { User } from "./entity/User";

				const entities = [Post, User];

				export default new DataSource({
				  entities,
				});
			`,
		},
		{
			name: "object as set",
			source: `
				import { DataSource } from "typeorm";
				import { Post } from "./entity/Post";

				const entities = { Post };

				new DataSource({ entities });
			`,
			want: `
				import { DataSource } from "typeorm";
				import { Post } from "./entity/Post";
				import { User } from "./entity/User";

				const entities = { Post, User };

				new DataSource({ entities });
			`,
		},
		{
			name: "variable chain with casts",
			source: `
				import { DataSource } from "typeorm";

				const base = [] as Function[];
				const entities = (base);

				export const ds = new DataSource({ entities: entities });
			`,
			want: `
				import { DataSource } from "typeorm";
				import { User } from "./entity/User";

				const base = [User] as Function[];
				const entities = (base);

				export const ds = new DataSource({ entities: entities });
			`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := testutil.NewFs(t, root, testutil.Files{
				"src/data-source.ts": tt.source,
				"src/entity/User.ts": `export class User {}`,
				"src/entity/Post.ts": `export class Post {}`,
			})

			res := link(t, fs, request(allowAll()))
			require.NoError(t, res.Reason)
			assert.True(t, res.Outcome.Succeeded())
			assert.Equal(t, testutil.Dedent(tt.want), testutil.ReadFile(t, fs, dataSource))
		})
	}
}

func TestFollowsReExportChain(t *testing.T) {
	files := testutil.Files{
		"src/data-source.ts": `
			import { DataSource } from "typeorm";
			import { entities } from "./config";

			export const ds = new DataSource({
			  entities: entities,
			});
		`,
		"src/config.ts": `export { all as entities } from "./lists";`,
		"src/lists.ts": `
			import { Post } from "./entity/Post";

			export const all = [Post];
		`,
		"src/entity/User.ts": `export class User {}`,
		"src/entity/Post.ts": `export class Post {}`,
	}

	t.Run("updates the declaring file", func(t *testing.T) {
		fs := testutil.NewFs(t, root, files)
		entryBefore := testutil.ReadFile(t, fs, dataSource)

		res := link(t, fs, request(allowAll()))
		require.NoError(t, res.Reason)
		assert.Equal(t, []string{"/proj/src/lists.ts"}, res.Files)

		want := testutil.Dedent(`
			import { Post } from "./entity/Post";
			import { User } from "./entity/User";

			export const all = [Post, User];
		`)
		assert.Equal(t, want, testutil.ReadFile(t, fs, "/proj/src/lists.ts"))
		assert.Equal(t, entryBefore, testutil.ReadFile(t, fs, dataSource))
	})

	t.Run("refuses other files when not allowed", func(t *testing.T) {
		fs := testutil.NewFs(t, root, files)
		listsBefore := testutil.ReadFile(t, fs, "/proj/src/lists.ts")

		res := link(t, fs, request(domain.DefaultLinkOptions()))
		assert.Empty(t, res.Files)
		assert.ErrorIs(t, res.Reason, domain.ErrUnsupportedValue)
		assert.False(t, res.Outcome.ReferenceAdded)
		assert.Equal(t, listsBefore, testutil.ReadFile(t, fs, "/proj/src/lists.ts"))
	})
}

func TestFollowsThreeHops(t *testing.T) {
	fs := testutil.NewFs(t, root, testutil.Files{
		"src/data-source.ts": `
			import { DataSource } from "typeorm";
			import { entities } from "./config";

			const all = entities;
			export const ds = new DataSource({ entities: all });
		`,
		"src/config.ts": `export { default as entities } from "./list";`,
		"src/list.ts": `
			import { Post } from "./entity/Post";

			export default [Post];
		`,
		"src/entity/User.ts": `export class User {}`,
		"src/entity/Post.ts": `export class Post {}`,
	})
	entryBefore := testutil.ReadFile(t, fs, dataSource)
	configBefore := testutil.ReadFile(t, fs, "/proj/src/config.ts")

	res := link(t, fs, request(allowAll()))
	require.NoError(t, res.Reason)
	assert.Equal(t, []string{"/proj/src/list.ts"}, res.Files)

	want := testutil.Dedent(`
		import { Post } from "./entity/Post";
		import { User } from "./entity/User";

		export default [Post, User];
	`)
	assert.Equal(t, want, testutil.ReadFile(t, fs, "/proj/src/list.ts"))
	assert.Equal(t, entryBefore, testutil.ReadFile(t, fs, dataSource))
	assert.Equal(t, configBefore, testutil.ReadFile(t, fs, "/proj/src/config.ts"))

	again := link(t, fs, request(allowAll()))
	assert.Empty(t, again.Files)
	assert.NoError(t, again.Reason)
}

func TestDefaultExportedLiteral(t *testing.T) {
	fs := testutil.NewFs(t, root, testutil.Files{
		"src/data-source.ts": `
			import { DataSource } from "typeorm";
			import entities from "./entities";

			export default new DataSource({ entities });
		`,
		"src/entities.ts": `
			import { Post } from "./entity/Post";

			export default [Post];
		`,
		"src/entity/User.ts": `export class User {}`,
		"src/entity/Post.ts": `export class Post {}`,
	})

	res := link(t, fs, request(allowAll()))
	require.NoError(t, res.Reason)
	assert.Equal(t, []string{"/proj/src/entities.ts"}, res.Files)

	want := testutil.Dedent(`
		import { Post } from "./entity/Post";
		import { User } from "./entity/User";

		export default [Post, User];
	`)
	assert.Equal(t, want, testutil.ReadFile(t, fs, "/proj/src/entities.ts"))
}

func TestNamespaceImport(t *testing.T) {
	files := testutil.Files{
		"src/data-source.ts": `
			import { DataSource } from "typeorm";
			import * as entities from "./entity";

			export const ds = new DataSource({
			  entities: entities,
			});
		`,
		"src/entity/index.ts": `
			export * from "./Post";
		`,
		"src/entity/User.ts": `export default class {}`,
		"src/entity/Post.ts": `export class Post {}`,
	}
	const index = "/proj/src/entity/index.ts"

	t.Run("wildcard re-export", func(t *testing.T) {
		fs := testutil.NewFs(t, root, files)
		res := link(t, fs, request(allowAll()))
		require.NoError(t, res.Reason)
		assert.Equal(t, []string{index}, res.Files)
		assert.Equal(t, "export * from \"./Post\";\nexport * from \"./User\";\n", testutil.ReadFile(t, fs, index))

		again := link(t, fs, request(allowAll()))
		assert.Empty(t, again.Files)
		assert.True(t, again.Outcome.Succeeded())
	})

	t.Run("named default re-export", func(t *testing.T) {
		fs := testutil.NewFs(t, root, files)
		opts := allowAll()
		opts.PreferWildcardReexport = false
		req := request(opts)
		req.Import.ExportName = "default"
		req.Import.IsDefaultExport = true

		res := link(t, fs, req)
		require.NoError(t, res.Reason)
		assert.Equal(t, "export * from \"./Post\";\nexport { default as User } from \"./User\";\n", testutil.ReadFile(t, fs, index))
	})

	t.Run("disabled", func(t *testing.T) {
		fs := testutil.NewFs(t, root, files)
		opts := allowAll()
		opts.TreatNamespaceAsList = false

		res := link(t, fs, request(opts))
		assert.Empty(t, res.Files)
		assert.ErrorIs(t, res.Reason, domain.ErrUnsupportedValue)
	})
}

func TestImportStatements(t *testing.T) {
	t.Run("aliased named export", func(t *testing.T) {
		fs := testutil.NewFs(t, root, testutil.Files{
			"src/data-source.ts": `
				import { DataSource } from 'typeorm'

				new DataSource({ entities: [] })
			`,
			"src/entity/User.ts": `export class Model {}`,
		})
		req := request(domain.DefaultLinkOptions())
		req.Import.ExportName = "Model"

		link(t, fs, req)
		assert.Equal(t, "import { DataSource } from 'typeorm'\nimport { Model as User } from './entity/User'\n\nnew DataSource({ entities: [User] })\n",
			testutil.ReadFile(t, fs, dataSource))
	})

	t.Run("default export", func(t *testing.T) {
		fs := testutil.NewFs(t, root, testutil.Files{
			"src/data-source.ts": `
				import { DataSource } from "typeorm";
				new DataSource({ entities: [] });
			`,
			"src/entity/User.ts": `export default class {}`,
		})
		req := request(domain.DefaultLinkOptions())
		req.Import.ExportName = "default"
		req.Import.IsDefaultExport = true

		link(t, fs, req)
		assert.Contains(t, testutil.ReadFile(t, fs, dataSource), "import User from \"./entity/User\";\n")
	})

	t.Run("existing import is reused", func(t *testing.T) {
		fs := testutil.NewFs(t, root, testutil.Files{
			"src/data-source.ts": `
				import { DataSource } from "typeorm";
				import { User } from "./entity/User";
				new DataSource({ entities: [] });
			`,
			"src/entity/User.ts": `export class User {}`,
		})

		res := link(t, fs, request(domain.DefaultLinkOptions()))
		require.NoError(t, res.Reason)
		out := testutil.ReadFile(t, fs, dataSource)
		assert.Equal(t, 1, strings.Count(out, "import { User }"))
		assert.Contains(t, out, "entities: [User]")
	})

	t.Run("existing aliased import of the export is reused", func(t *testing.T) {
		fs := testutil.NewFs(t, root, testutil.Files{
			"src/data-source.ts": `
				import { DataSource } from "typeorm";
				import { Model as User } from "./entity/User";
				new DataSource({ entities: [] });
			`,
			"src/entity/User.ts": `export class Model {}`,
		})
		req := request(domain.DefaultLinkOptions())
		req.Import.ExportName = "Model"

		res := link(t, fs, req)
		require.NoError(t, res.Reason)
		out := testutil.ReadFile(t, fs, dataSource)
		assert.Equal(t, 1, strings.Count(out, "./entity/User"))
		assert.Contains(t, out, "entities: [User]")
	})

	unusable := []struct {
		name string
		stmt string
	}{
		{"type-only import", `import type { User } from "./entity/User";`},
		{"type-only specifier", `import { type User } from "./entity/User";`},
		{"other export under the same name", `import { UserSchema as User } from "./entity/User";`},
		{"default import of a named export", `import User from "./entity/User";`},
	}
	for _, tt := range unusable {
		t.Run(tt.name+" is not reused", func(t *testing.T) {
			fs := testutil.NewFs(t, root, testutil.Files{
				"src/data-source.ts": "import { DataSource } from \"typeorm\";\n" + tt.stmt + "\nnew DataSource({ entities: [] });\n",
				"src/entity/User.ts": `export class User {} export class UserSchema {} export default User;`,
			})
			before := testutil.ReadFile(t, fs, dataSource)

			res := link(t, fs, request(domain.DefaultLinkOptions()))
			assert.Empty(t, res.Files)
			assert.ErrorIs(t, res.Reason, domain.ErrLinking)
			assert.Equal(t, before, testutil.ReadFile(t, fs, dataSource))
		})
	}

	t.Run("no imports", func(t *testing.T) {
		fs := testutil.NewFs(t, root, testutil.Files{
			"src/data-source.ts": `
				const ds = new DataSource({ entities: [] });
				export default ds;
			`,
			"src/entity/User.ts": `export class User {}`,
		})

		link(t, fs, request(domain.DefaultLinkOptions()))
		assert.Equal(t, "const ds = new DataSource({ entities: [User] });\nimport { User } from \"./entity/User\";\nexport default ds;\n",
			testutil.ReadFile(t, fs, dataSource))
	})

	t.Run("module system override", func(t *testing.T) {
		fs := testutil.NewFs(t, root, testutil.Files{
			"src/data-source.ts": `
				import { DataSource } from "typeorm";
				new DataSource({ entities: [] });
			`,
			"src/entity/User.ts": `export class User {}`,
		})
		opts := domain.DefaultLinkOptions()
		opts.ModuleSystem = domain.ModuleSystemESM

		link(t, fs, request(opts))
		assert.Contains(t, testutil.ReadFile(t, fs, dataSource), `import { User } from "./entity/User.js";`)
	})
}

func TestPreservesLineEndings(t *testing.T) {
	fs := afero.NewMemMapFs()
	source := strings.Join([]string{
		`import { DataSource } from "typeorm";`,
		``,
		`export const ds = new DataSource({`,
		`  entities: [`,
		`    Post,`,
		`  ],`,
		`});`,
		``,
	}, "\r\n")
	require.NoError(t, afero.WriteFile(fs, dataSource, []byte(source), 0o644))
	require.NoError(t, afero.WriteFile(fs, userFile, []byte("export class User {}\r\n"), 0o644))

	link(t, fs, request(domain.DefaultLinkOptions()))

	want := strings.Join([]string{
		`import { DataSource } from "typeorm";`,
		`import { User } from "./entity/User";`,
		``,
		`export const ds = new DataSource({`,
		`  entities: [`,
		`    Post,`,
		`    User,`,
		`  ],`,
		`});`,
		``,
	}, "\r\n")
	assert.Equal(t, want, testutil.ReadFile(t, fs, dataSource))
}

func TestSoftFailures(t *testing.T) {
	tests := []struct {
		name   string
		opts   domain.LinkOptions
		source string
		reason error
	}{
		{
			name: "no initializer",
			opts: domain.DefaultLinkOptions(),
			source: `
				import { Other } from "typeorm";
				export const ds = new Other({ entities: [] });
			`,
			reason: domain.ErrInitializerNotFound,
		},
		{
			name: "opaque property value",
			opts: domain.DefaultLinkOptions(),
			source: `
				import { DataSource } from "typeorm";
				export const ds = new DataSource({ entities: load() });
			`,
			reason: domain.ErrUnsupportedValue,
		},
		{
			name: "object not treated as list",
			opts: domain.DefaultLinkOptions(),
			source: `
				import { DataSource } from "typeorm";
				export const ds = new DataSource({ entities: { } });
			`,
			reason: domain.ErrUnsupportedValue,
		},
		{
			name: "first argument is not an object",
			opts: domain.DefaultLinkOptions(),
			source: `
				import { DataSource } from "typeorm";
				export const ds = new DataSource(options);
			`,
			reason: domain.ErrUnsupportedValue,
		},
		{
			name: "cyclic variables",
			opts: allowAll(),
			source: `
				import { DataSource } from "typeorm";
				const a = b;
				const b = a;
				export const ds = new DataSource({ entities: a });
			`,
			reason: domain.ErrUnsupportedValue,
		},
		{
			name: "import name taken by a local declaration",
			opts: domain.DefaultLinkOptions(),
			source: `
				import { DataSource } from "typeorm";
				class User {}
				export const ds = new DataSource({ entities: [] });
			`,
			reason: domain.ErrLinking,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := testutil.NewFs(t, root, testutil.Files{
				"src/data-source.ts": tt.source,
				"src/entity/User.ts": `export class User {}`,
			})
			before := testutil.ReadFile(t, fs, dataSource)

			res := link(t, fs, request(tt.opts))
			assert.NotNil(t, res.Files)
			assert.Empty(t, res.Files)
			assert.ErrorIs(t, res.Reason, tt.reason)
			assert.Equal(t, before, testutil.ReadFile(t, fs, dataSource))
		})
	}
}

func TestFirstInitializerWins(t *testing.T) {
	fs := testutil.NewFs(t, root, testutil.Files{
		"src/data-source.ts": `
			import { DataSource } from "typeorm";
			export const a = new DataSource({ entities: [] });
			export const b = new DataSource({ entities: [] });
		`,
		"src/entity/User.ts": `export class User {}`,
	})

	link(t, fs, request(domain.DefaultLinkOptions()))

	out := testutil.ReadFile(t, fs, dataSource)
	assert.Contains(t, out, "export const a = new DataSource({ entities: [User] });")
	assert.Contains(t, out, "export const b = new DataSource({ entities: [] });")
}

func TestInvalidRequests(t *testing.T) {
	fs := testutil.NewFs(t, root, testutil.Files{
		"src/entity/User.ts": `export class User {}`,
	})

	req := request(domain.DefaultLinkOptions())
	req.PropertyName = ""
	_, err := New(req, WithFs(fs)).Apply(context.Background())
	var de domain.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrCodeInvalidInput, de.Code)

	_, err = New(request(domain.DefaultLinkOptions()), WithFs(fs)).Apply(context.Background())
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrCodeFileNotFound, de.Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(request(domain.DefaultLinkOptions()), WithFs(fs)).Apply(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
