package modulegraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
)

// ErrUnparsable is returned by WriteBack when an edited file no longer
// parses although its original did
var ErrUnparsable = errors.New("edited file does not parse")

// WriteBack writes the latest version of every dirty file. All dirty files
// are fetched and checked before anything is written; if any cannot be
// fetched nothing is written and no paths are returned.
func (g *Graph) WriteBack(ctx context.Context) ([]string, error) {
	type pending struct {
		path    string
		content []byte
	}

	writes := make([]pending, 0, len(g.dirty))
	for _, path := range g.dirty {
		file, err := g.File(ctx, path)
		if err != nil {
			g.logger.Debug("dirty file cannot be fetched, aborting write-back", slog.String("path", path), slog.Any("error", err))
			return nil, nil
		}
		if orig, ok := g.original[path]; ok && file.HasError && !orig.HasError {
			return nil, fmt.Errorf("%w: %s", ErrUnparsable, path)
		}
		writes = append(writes, pending{path: path, content: file.Source})
	}

	written := make([]string, 0, len(writes))
	for _, w := range writes {
		mode := g.modes[w.path]
		if mode == 0 {
			mode = 0o644
		}
		if err := afero.WriteFile(g.fs, w.path, w.content, mode); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", w.path, err)
		}
		g.logger.Info("updated file", slog.String("path", w.path))
		written = append(written, w.path)
	}
	return written, nil
}
