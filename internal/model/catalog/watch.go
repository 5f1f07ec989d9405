package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zhouzirui/concierge/backend/internal/logging"
)

const reloadDebounce = 250 * time.Millisecond

// Watch loads path into store and keeps reloading it whenever the file changes
// until ctx is done. Invalid edits are logged and the previous catalog stays in place.
func Watch(ctx context.Context, path string, store *MemoryStore) error {
	initial, err := Load(path)
	if err != nil {
		return err
	}
	store.Replace(initial)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory rather than the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch catalog dir: %w", err)
	}

	go run(ctx, watcher, path, store)
	return nil
}

func run(ctx context.Context, watcher *fsnotify.Watcher, path string, store *MemoryStore) {
	log := logging.Named("catalog")
	defer watcher.Close()

	target := filepath.Clean(path)
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Rapid saves collapse into one reload.
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
			} else {
				debounce.Reset(reloadDebounce)
			}
			fire = debounce.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnw("watcher error", "error", err)

		case <-fire:
			fire = nil
			next, err := Load(path)
			if err != nil {
				log.Warnw("catalog reload rejected, keeping previous", "path", path, "error", err)
				continue
			}
			store.Replace(next)
			log.Infow("catalog reloaded", "path", path, "services", len(next.Services), "symptoms", len(next.Symptoms))
		}
	}
}
