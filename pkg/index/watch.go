package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last artifact event
// before reloading.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the index whenever a new artifact pair lands in the index
// directory. It blocks until ctx is cancelled. Reload failures are logged
// and the previous snapshot keeps serving.
func (idx *Index) Watch(ctx context.Context, debounce time.Duration) error {
	if idx.dir == "" {
		return configErr("watch", errors.New("no index directory configured"))
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(idx.dir, 0755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(idx.dir); err != nil {
		return fmt.Errorf("watching %s: %w", idx.dir, err)
	}
	idx.logger.Info("watching index directory", "dir", idx.dir)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isArtifactEvent(ev) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			idx.logger.Warn("index watcher error", "error", err)
		case <-timer.C:
			idx.reload()
		}
	}
}

func (idx *Index) reload() {
	snap, err := idx.readArtifacts()
	if err != nil {
		idx.logger.Log(context.Background(), reloadLogLevel(err), "index reload skipped", "dir", idx.dir, "error", err)
		return
	}
	if snap.version == idx.current.Load().version {
		return
	}
	idx.current.Store(snap)
	idx.logger.Info("index reloaded", "chunks", len(snap.entries), "version", snap.version)
}

func isArtifactEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	return name == VectorsFile || name == MappingFile
}

// reloadLogLevel keeps the expected states of a pair being rewritten (one
// file missing, versions out of step) at debug. Anything else will not fix
// itself and is logged at warn.
func reloadLogLevel(err error) slog.Level {
	if errors.Is(err, ErrIndexNotFound) || errors.Is(err, errVersionSkew) {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
