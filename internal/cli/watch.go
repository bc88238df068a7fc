package cli

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"elasticlm-backend/internal/services"
)

// settleDelay is how long a file must go without writes before it is
// considered complete.
const settleDelay = 750 * time.Millisecond

// dirWatcher reports files in a directory once they stop changing.
type dirWatcher struct {
	watcher *fsnotify.Watcher
	settle  time.Duration
}

func newDirWatcher(dir string) (*dirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &dirWatcher{watcher: w, settle: settleDelay}, nil
}

// Run calls fn with the path of every created or rewritten supported file
// until ctx is done.
func (d *dirWatcher) Run(ctx context.Context, fn func(path string)) error {
	defer d.watcher.Close()

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range timers {
				t.Stop()
			}
			mu.Unlock()
			return nil
		case event, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !services.SupportedExtension(event.Name) || isHidden(event.Name) {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Reset(d.settle)
			} else {
				timers[path] = time.AfterFunc(d.settle, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()
					fn(path)
				})
			}
			mu.Unlock()
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 0 && base[0] == '.'
}
