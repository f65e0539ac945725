package notify

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// cancelFile is the signal file name that aborts in-flight routes.
const cancelFile = "cancel"

// SignalWatcher watches a signals directory for a cancel file and invokes
// the registered cancel functions when one appears. A stat fallback covers
// environments where the watcher cannot start.
type SignalWatcher struct {
	signalsDir string

	mu        sync.Mutex
	cancelled bool
	cancels   []func()

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalWatcher creates a watcher over <dir>/signals. The directory is
// created if needed. If the fsnotify watcher cannot start, the watcher
// still works via ShouldCancel polling.
func NewSignalWatcher(dir string) (*SignalWatcher, error) {
	signalsDir := filepath.Join(dir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sw := &SignalWatcher{
		signalsDir: signalsDir,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - polling fallback still applies.
		return sw, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return sw, nil
	}
	sw.watcher = watcher

	go sw.watch()
	return sw, nil
}

// OnCancel registers a function invoked once when a cancel signal arrives.
// Typically this is a context.CancelFunc wrapping an in-flight route.
func (sw *SignalWatcher) OnCancel(fn func()) {
	sw.mu.Lock()
	cancelled := sw.cancelled
	if !cancelled {
		sw.cancels = append(sw.cancels, fn)
	}
	sw.mu.Unlock()

	if cancelled {
		fn()
	}
}

// ShouldCancel returns true if a cancel signal has been received. It also
// checks the file directly in case the watcher missed it.
func (sw *SignalWatcher) ShouldCancel() bool {
	if _, err := os.Stat(filepath.Join(sw.signalsDir, cancelFile)); err == nil {
		sw.fire()
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.cancelled
}

// SendCancel creates the cancel signal file.
func (sw *SignalWatcher) SendCancel() error {
	path := filepath.Join(sw.signalsDir, cancelFile)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes the signal file and resets state so a new route can run.
func (sw *SignalWatcher) Clear() {
	sw.mu.Lock()
	sw.cancelled = false
	sw.cancels = nil
	sw.mu.Unlock()

	os.Remove(filepath.Join(sw.signalsDir, cancelFile))
}

// Close shuts down the watcher.
func (sw *SignalWatcher) Close() {
	close(sw.done)
	if sw.watcher != nil {
		sw.watcher.Close()
	}
}

// watch monitors the signals directory for the cancel file.
func (sw *SignalWatcher) watch() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == cancelFile &&
				(event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				sw.fire()
			}
		case <-sw.watcher.Errors:
			// Ignore errors, keep watching.
		}
	}
}

// fire marks the watcher cancelled and runs registered cancel functions
// exactly once.
func (sw *SignalWatcher) fire() {
	sw.mu.Lock()
	if sw.cancelled {
		sw.mu.Unlock()
		return
	}
	sw.cancelled = true
	cancels := sw.cancels
	sw.cancels = nil
	sw.mu.Unlock()

	for _, fn := range cancels {
		fn()
	}
}
