// Package watch monitors a frozen dataset file and re-verifies its digest
// against the manifest when the file changes on disk. It catches tampering
// between scheduled verifications.
package watch

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"driftlab/internal/domain"
	"driftlab/internal/manifest"
)

// DefaultDebounce is how long the file must stay quiet before the digest is
// recomputed. Editors and atomic-replace flows fire several events per save.
const DefaultDebounce = 100 * time.Millisecond

// Status is the outcome of one triggered re-verification.
type Status struct {
	Path           string
	Valid          bool
	ExpectedHash   string
	RecomputedHash string
	CheckedAt      time.Time
	// Err is set when the file could not be read, e.g. after removal.
	Err error
}

// Config configures a dataset watcher.
type Config struct {
	// Path is the dataset file to guard.
	Path string
	// Manifest carries the frozen digest the file is checked against.
	Manifest domain.Manifest
	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
	// OnStatus receives every verification outcome. Required.
	OnStatus func(Status)
}

// Watcher guards a single frozen dataset file. It watches the parent
// directory so the guard survives rename and atomic-replace saves.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	manifest  domain.Manifest
	debounce  time.Duration
	onStatus  func(Status)

	// pendingSince is the last relevant fs event; zero when idle
	pendingSince time.Time
	pendingMu    sync.Mutex

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a watcher for the dataset described by cfg.
func New(cfg Config) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, errors.New("watch: path is required")
	}
	if cfg.OnStatus == nil {
		return nil, errors.New("watch: OnStatus callback is required")
	}

	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		path:      absPath,
		manifest:  cfg.Manifest,
		debounce:  debounce,
		onStatus:  cfg.OnStatus,
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the dataset's directory.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	return nil
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() error {
	if w.closed.Swap(true) {
		return nil
	}

	close(w.done)
	w.wg.Wait()
	return w.fsWatcher.Close()
}

// eventLoop marks the file dirty on relevant fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			w.pendingMu.Lock()
			w.pendingSince = time.Now()
			w.pendingMu.Unlock()

		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			// Watch errors are transient; the next event re-arms the check.
		}
	}
}

// debounceLoop re-verifies once the file has been quiet for the debounce
// interval.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.pendingMu.Lock()
			since := w.pendingSince
			w.pendingMu.Unlock()

			if since.IsZero() || now.Sub(since) < w.debounce {
				continue
			}

			w.verify(since, now)
		}
	}
}

// verify recomputes the digest and publishes the outcome. The pending mark
// is cleared only if no new event arrived while hashing, so a file modified
// mid-hash is checked again once it stabilizes.
func (w *Watcher) verify(since time.Time, now time.Time) {
	status := Status{Path: w.path, CheckedAt: now}

	result, err := manifest.Verify(w.path, w.manifest)
	if err != nil {
		status.Err = err
		status.ExpectedHash = w.manifest.File.Hash
	} else {
		status.Valid = result.Valid
		status.ExpectedHash = result.ExpectedHash
		status.RecomputedHash = result.RecomputedHash
	}

	w.pendingMu.Lock()
	if w.pendingSince == since {
		w.pendingSince = time.Time{}
	}
	w.pendingMu.Unlock()

	w.onStatus(status)
}
