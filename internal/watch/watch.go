// Package watch regenerates a feed whenever the audio files directly inside a
// scan root change.
package watch

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"podcast-generator/internal/mediatype"
)

// Watcher monitors a scan root and calls a refresh function, debounced, after
// audio files are created, written, removed or renamed.
type Watcher struct {
	root    string
	types   *mediatype.Table
	refresh func() error
	watcher *fsnotify.Watcher
	logger  *log.Logger

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	refreshDelay time.Duration

	// runMu serializes refresh calls.
	runMu sync.Mutex

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New runs refresh once and then starts watching root. An error from the
// initial refresh is returned and nothing is left running.
func New(root string, types *mediatype.Table, debounce time.Duration, refresh func() error, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	if types == nil {
		types = mediatype.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:         filepath.Clean(root),
		types:        types,
		refresh:      refresh,
		watcher:      watcher,
		logger:       logger,
		refreshDelay: debounce,
		done:         make(chan struct{}),
	}

	if err := watcher.Add(w.root); err != nil {
		watcher.Close()
		return nil, err
	}

	if err := w.refresh(); err != nil {
		watcher.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops the watcher and cleans up resources.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)

		w.refreshMu.Lock()
		if w.refreshTimer != nil {
			if w.refreshTimer.Stop() {
				w.wg.Done()
			}
			w.refreshTimer = nil
		}
		w.refreshMu.Unlock()

		w.closeErr = w.watcher.Close()
		w.wg.Wait()
	})
	return w.closeErr
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Dir(filepath.Clean(event.Name)) != w.root {
		return
	}
	if !w.types.Supports(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.scheduleRefresh()
	}
}

// scheduleRefresh (re)arms the debounce timer. An armed timer holds a wg slot
// until it is stopped or its callback returns.
func (w *Watcher) scheduleRefresh() {
	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	if w.refreshTimer != nil && w.refreshTimer.Stop() {
		w.wg.Done()
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.refreshDelay, func() {
		defer w.wg.Done()

		w.refreshMu.Lock()
		if w.refreshTimer == timer {
			w.refreshTimer = nil
		}
		w.refreshMu.Unlock()

		w.runMu.Lock()
		defer w.runMu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}

		if err := w.refresh(); err != nil {
			w.logger.Printf("refresh error: %v", err)
		}
	})

	w.refreshTimer = timer
}
