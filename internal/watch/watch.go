package watch

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// ErrStopped is returned by Start on a Watcher that was stopped.
var ErrStopped = errors.New("watcher already stopped")

// Watcher reports changes to bookmark files in a data directory and its
// archive subdirectory. Bursts of events are coalesced into one callback.
// A Watcher is single-use: once stopped it cannot be started again.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dirs     []string
	onChange func()
	logger   *log.Logger
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stopped  bool
}

// New creates a Watcher for dataDir. onChange is called from the watcher
// goroutine. A nil logger discards errors.
func New(dataDir string, onChange func(), logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Watcher{
		watcher:  fw,
		dirs:     []string{dataDir, filepath.Join(dataDir, "archive")},
		onChange: onChange,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. A missing archive directory is picked up when it
// is created.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrStopped
	}
	if w.running {
		return nil
	}

	watched := 0
	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("cannot watch directory", "dir", dir, "err", err)
			continue
		}
		watched++
	}
	w.logger.Debug("watching bookmark directories", "count", watched)

	w.running = true
	go w.run()
	return nil
}

// Stop ends watching and waits for the goroutine to exit. It is safe to
// call more than once, and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.stopped = true
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	// Close is idempotent in fsnotify.
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("closing watcher", "err", err)
	}
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.isArchiveDir(event) {
				if err := w.watcher.Add(event.Name); err != nil {
					w.logger.Warn("cannot watch directory", "dir", event.Name, "err", err)
				}
				continue
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("bookmark file changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "err", err)

		case <-fire:
			fire = nil
			if w.onChange != nil {
				w.onChange()
			}
		}
	}
}

func (w *Watcher) isArchiveDir(event fsnotify.Event) bool {
	return event.Has(fsnotify.Create) && filepath.Clean(event.Name) == filepath.Clean(w.dirs[1])
}

func relevant(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".yml") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
