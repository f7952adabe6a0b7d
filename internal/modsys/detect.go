// Package modsys decides whether a TypeScript file compiles to an ES module
// or to CommonJS, and computes import specifiers accordingly.
package modsys

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ModuleSystem is the module format a file is emitted as
type ModuleSystem string

const (
	ESM      ModuleSystem = "esm"
	CommonJS ModuleSystem = "commonjs"
)

// Parse converts a configured value into a ModuleSystem. The empty string
// and "auto" mean detection.
func Parse(value string) (ModuleSystem, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "esm", "module", "es":
		return ESM, true
	case "commonjs", "cjs":
		return CommonJS, true
	}
	return "", false
}

type packageManifest struct {
	Type string `json:"type"`
}

// Detect determines the module system of path. .mts/.mjs are ESM and
// .cts/.cjs are CommonJS regardless of context; .ts/.js follow the nearest
// package.json "type" field. Anything unresolvable is CommonJS.
func Detect(ctx context.Context, fs afero.Fs, path string) (ModuleSystem, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mjs", ".mts":
		return ESM, nil
	case ".cjs", ".cts":
		return CommonJS, nil
	case ".js", ".ts", ".tsx", ".jsx":
	default:
		return CommonJS, nil
	}

	dir := filepath.Dir(path)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate := filepath.Join(dir, "package.json")
		if info, err := fs.Stat(candidate); err == nil && !info.IsDir() {
			data, err := afero.ReadFile(fs, candidate)
			if err != nil {
				return CommonJS, nil
			}
			var manifest packageManifest
			if err := json.Unmarshal(data, &manifest); err != nil {
				return CommonJS, nil
			}
			if manifest.Type == "module" {
				return ESM, nil
			}
			return CommonJS, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return CommonJS, nil
		}
		dir = parent
	}
}
