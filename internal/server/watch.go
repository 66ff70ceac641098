package server

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/olehluchkiv/diverify/internal/manifest"
	"github.com/olehluchkiv/diverify/internal/resolver"
)

// debounceDelay collapses bursts of editor writes into one re-analysis.
const debounceDelay = 500 * time.Millisecond

// Watch re-runs the analysis whenever the current input changes on disk. It
// blocks until ctx is cancelled. Refresh must have succeeded at least once.
func (s *Server) Watch(ctx context.Context) error {
	run := s.lastRun()
	if run == nil {
		return fmt.Errorf("watch: no analysis loaded")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	relevant, err := addWatches(w, run.Source)
	if err != nil {
		return err
	}
	s.logger.Info("watching for changes", "kind", run.Source.Kind.String(), "path", run.Source.Path)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !relevant(event.Name) {
				continue
			}
			s.logger.Debug("input changed", "file", event.Name, "operation", event.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				_ = s.Refresh(ctx)
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("file watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// addWatches registers the directories holding in and returns a predicate
// selecting the events that should trigger a re-analysis. Directories are
// watched rather than files so editors that replace files are still seen.
func addWatches(w *fsnotify.Watcher, in resolver.Input) (func(string) bool, error) {
	if in.Kind == resolver.KindManifest {
		path := filepath.Clean(in.Path)
		if err := w.Add(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
		return func(name string) bool { return filepath.Clean(name) == path }, nil
	}

	err := filepath.WalkDir(in.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != in.Path && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", in.Path, err)
	}
	return func(name string) bool {
		return strings.HasSuffix(name, ".go") || filepath.Base(name) == "go.mod" || manifest.IsManifestFile(name)
	}, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "testdata"
}
