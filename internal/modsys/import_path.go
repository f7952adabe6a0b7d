package modsys

import (
	"path/filepath"
	"strings"
)

// RelativeImportPath returns the specifier `from` uses to import `to`.
// .mts and .cts become .mjs and .cjs; .ts becomes .js under ESM and is
// dropped under CommonJS. The result always uses forward slashes and starts
// with "." so it is never mistaken for a package name.
func RelativeImportPath(from, to string, system ModuleSystem) string {
	rel, err := filepath.Rel(filepath.Dir(from), to)
	if err != nil {
		rel = to
	}

	ext := filepath.Ext(rel)
	base := strings.TrimSuffix(rel, ext)
	switch ext {
	case ".mts":
		rel = base + ".mjs"
	case ".cts":
		rel = base + ".cjs"
	case ".ts", ".tsx":
		if system == ESM {
			rel = base + ".js"
		} else {
			rel = base
		}
	}

	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}
