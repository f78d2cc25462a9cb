package catalog

import (
	log "log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates cached listings when a list file changes on disk.
// The desktop GUI edits the same JSON files the voice side reads, so a
// stale cache would keep speaking the old listing. Events are debounced;
// editors tend to fire several writes per save.
type Watcher struct {
	cat      *Catalog
	watcher  *fsnotify.Watcher
	debounce time.Duration
	stop     chan struct{}
}

func NewWatcher(cat *Catalog, listsDir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(listsDir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		cat:      cat,
		watcher:  fw,
		debounce: 300 * time.Millisecond,
		stop:     make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() {
	go w.loop()
	log.Info("list watcher started")
}

func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) loop() {
	pending := map[string]struct{}{}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			pending[strings.TrimSuffix(name, ".json")] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			for id := range pending {
				w.cat.Invalidate(id)
				log.Debug("listing invalidated", "category", id)
			}
			pending = map[string]struct{}{}
			fire = nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("list watcher error", "err", err)
		}
	}
}
