package workspace

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher collects names of files created in the output root while a
// streaming invocation is in flight, so the files event can be emitted
// without waiting for a post-stream directory rescan.
type Watcher struct {
	inner *fsnotify.Watcher

	mu      sync.Mutex
	created map[string]struct{}
	done    chan struct{}
}

// Watch starts watching the workspace's output root for file creation.
func (w *Workspace) Watch() (*Watcher, error) {
	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := inner.Add(w.root); err != nil {
		inner.Close()
		return nil, fmt.Errorf("watch output root: %w", err)
	}

	watcher := &Watcher{
		inner:   inner,
		created: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	go watcher.loop()
	return watcher, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.inner.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				w.mu.Lock()
				w.created[filepath.Base(event.Name)] = struct{}{}
				w.mu.Unlock()
			}
		case _, ok := <-w.inner.Errors:
			if !ok {
				return
			}
		}
	}
}

// Created returns the names of files created since watching began.
func (w *Watcher) Created() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	names := make([]string, 0, len(w.created))
	for name := range w.created {
		names = append(names, name)
	}
	return names
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.inner.Close()
	<-w.done
	return err
}
