package document

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watcher invalidates the cached session when the document changes on disk
// and then calls onChange. Editors often write a file in several steps, so
// events are debounced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	cache    *SessionCache
	onChange func()

	stopOnce sync.Once
	done     chan struct{}
}

// Watch starts watching path. onChange may be nil.
func Watch(cache *SessionCache, path string, onChange func()) (*Watcher, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(p)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	log.Debug("document: watching dir", "dir", dir)

	w := &Watcher{
		watcher:  fw,
		path:     p,
		cache:    cache,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("document: fsnotify event", "file", event.Name, "event", event.Op)

			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.cache.Invalidate(w.path)
			if w.onChange != nil {
				w.onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Debug("document: fsnotify error", "path", w.path, "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
		<-w.done
	})
	return err
}
