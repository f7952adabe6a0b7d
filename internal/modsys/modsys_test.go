package modsys

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectByExtension(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	tests := map[string]ModuleSystem{
		"/p/a.mts": ESM,
		"/p/a.mjs": ESM,
		"/p/a.cts": CommonJS,
		"/p/a.cjs": CommonJS,
		"/p/a.ts":  CommonJS,
		"/p/a.txt": CommonJS,
	}
	for path, want := range tests {
		got, err := Detect(ctx, fs, path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
}

func TestDetectNearestPackageJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(fs, "/repo/package.json", []byte(`{"type":"module"}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/legacy/package.json", []byte(`{"name":"legacy"}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/broken/package.json", []byte(`{`), 0o644))
	require.NoError(t, fs.MkdirAll("/repo/src/db/package.json", 0o755))

	got, err := Detect(ctx, fs, "/repo/src/db/data-source.ts")
	require.NoError(t, err)
	assert.Equal(t, ESM, got, "a directory named package.json is skipped")

	got, err = Detect(ctx, fs, "/repo/legacy/data-source.ts")
	require.NoError(t, err)
	assert.Equal(t, CommonJS, got)

	got, err = Detect(ctx, fs, "/repo/broken/data-source.ts")
	require.NoError(t, err)
	assert.Equal(t, CommonJS, got, "an unparsable manifest means CommonJS")

	got, err = Detect(ctx, fs, "/elsewhere/data-source.ts")
	require.NoError(t, err)
	assert.Equal(t, CommonJS, got)
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Detect(ctx, afero.NewMemMapFs(), "/a/b.ts")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelativeImportPath(t *testing.T) {
	from := filepath.FromSlash("/repo/src/data-source.ts")

	tests := []struct {
		to     string
		system ModuleSystem
		want   string
	}{
		{"/repo/src/entity/User.ts", ESM, "./entity/User.js"},
		{"/repo/src/entity/User.ts", CommonJS, "./entity/User"},
		{"/repo/src/entity/User.mts", CommonJS, "./entity/User.mjs"},
		{"/repo/src/entity/User.cts", ESM, "./entity/User.cjs"},
		{"/repo/lib/User.ts", ESM, "../lib/User.js"},
		{"/repo/src/User.ts", CommonJS, "./User"},
	}
	for _, tt := range tests {
		got := RelativeImportPath(from, filepath.FromSlash(tt.to), tt.system)
		assert.Equal(t, tt.want, got, tt.to)
	}
}

func TestParse(t *testing.T) {
	got, ok := Parse("ESM")
	assert.True(t, ok)
	assert.Equal(t, ESM, got)

	got, ok = Parse("commonjs")
	assert.True(t, ok)
	assert.Equal(t, CommonJS, got)

	_, ok = Parse("")
	assert.False(t, ok)
}
