package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ludo-technologies/tsrefs/domain"
)

// DefaultDebounce is how long the watcher waits for changes to settle
const DefaultDebounce = 200 * time.Millisecond

// RunCallback is called after every add-references pass of the watcher
type RunCallback func(response *domain.AddReferencesResponse, err error)

// WatchUseCase re-runs add-references whenever a target file appears or changes
type WatchUseCase struct {
	addReferences *AddReferencesUseCase
	fileHelper    *FileHelper
	logger        *slog.Logger
	debounce      time.Duration
	onRun         RunCallback
}

// NewWatchUseCase creates a watch use case
func NewWatchUseCase(addReferences *AddReferencesUseCase, logger *slog.Logger) *WatchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchUseCase{
		addReferences: addReferences,
		fileHelper:    NewFileHelper(),
		logger:        logger,
		debounce:      DefaultDebounce,
	}
}

// WithDebounce sets the settle delay
func (uc *WatchUseCase) WithDebounce(d time.Duration) *WatchUseCase {
	if d > 0 {
		uc.debounce = d
	}
	return uc
}

// OnRun registers a callback invoked after each pass
func (uc *WatchUseCase) OnRun(cb RunCallback) *WatchUseCase {
	uc.onRun = cb
	return uc
}

// Run performs one pass, then watches the directories covered by the
// request's patterns until ctx is cancelled. Failures of later passes are
// logged and do not stop the watcher.
func (uc *WatchUseCase) Run(ctx context.Context, req domain.AddReferencesRequest) error {
	if req.RootDir == "" {
		req.RootDir = "."
	}
	root, err := filepath.Abs(req.RootDir)
	if err != nil {
		return domain.NewInvalidInputError("invalid root directory", err)
	}
	req.RootDir = root
	dataSource := DataSourcePath(req)

	response, err := uc.addReferences.Execute(ctx, req)
	uc.report(response, err)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	var patterns []string
	for _, prop := range req.Properties {
		patterns = append(patterns, prop.Patterns...)
	}
	if err := uc.watchDirs(w, root, patterns); err != nil {
		return err
	}
	uc.logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(uc.debounce)
			timerCh = timer.C
		} else {
			timer.Reset(uc.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			uc.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			response, err := uc.addReferences.Execute(ctx, req)
			uc.report(response, err)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := uc.fileHelper.fs.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := uc.watchDirs(w, root, []string{ev.Name}); addErr != nil {
						uc.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}

			if ev.Name == dataSource || !uc.fileHelper.IsTargetFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				uc.logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			uc.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (uc *WatchUseCase) watchDirs(w *fsnotify.Watcher, root string, patterns []string) error {
	dirs, err := uc.fileHelper.WatchDirectories(root, patterns)
	if err != nil {
		return fmt.Errorf("failed to list watched directories: %w", err)
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return nil
}

func (uc *WatchUseCase) report(response *domain.AddReferencesResponse, err error) {
	if err != nil {
		uc.logger.Error("add references failed", slog.String("error", err.Error()))
	} else if response != nil {
		uc.logger.Info("add references done",
			slog.Int("added", len(response.Added)),
			slog.Int("updated", len(response.Updated)))
	}
	if uc.onRun != nil {
		uc.onRun(response, err)
	}
}
