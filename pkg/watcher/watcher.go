// Package watcher reports changes to a bean store on disk: a directory of bean
// files or a single database file. It uses fsnotify and falls back to polling
// on remote filesystems or when asked to.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// EnvForcePoll forces polling mode when set to a true value.
const EnvForcePoll = "BEANWORK_FORCE_POLL"

var (
	ErrRemoved        = errors.New("watched path was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) { w.debounceDuration = d }
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithOnChange sets the callback invoked after a debounced change.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// WithPattern limits a directory watch to entries matching a filepath.Match
// pattern such as "*.md". It has no effect when watching a file.
func WithPattern(pattern string) Option {
	return func(w *Watcher) { w.pattern = pattern }
}

// fingerprint summarises the watched path for polling.
type fingerprint struct {
	exists bool
	count  int
	size   int64
	mtime  time.Time
}

// Watcher monitors a file or directory.
type Watcher struct {
	path             string
	pattern          string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	isDir       bool
	last        fingerprint

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// New creates a watcher for path. The path does not need to exist yet.
func New(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	info, err := os.Stat(w.path)
	if err != nil && os.IsPermission(err) {
		return ErrPermission
	}
	w.isDir = err == nil && info.IsDir()
	w.last, _ = w.fingerprint()

	w.fsType = DetectFilesystemType(w.path)
	forcePoll := w.forcePoll || envBool(EnvForcePoll)
	w.useFallback = forcePoll || isRemoteFilesystem(w.fsType)

	w.ctx, w.cancel = context.WithCancel(context.Background())

	if !w.useFallback {
		if fsw, err := w.startFsnotify(); err == nil {
			w.fsWatcher = fsw
			go w.watchFsnotify(w.ctx, fsw)
		} else {
			w.useFallback = true
		}
	}
	if w.useFallback {
		go w.watchPolling(w.ctx)
	}

	w.started = true
	return nil
}

func (w *Watcher) startFsnotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Files are watched through their directory so atomic renames are seen.
	target := filepath.Dir(w.path)
	if w.isDir {
		target = w.path
	}
	if err := fsw.Add(target); err != nil {
		fsw.Close()
		return nil, err
	}
	return fsw, nil
}

// Stop stops watching. The Changed channel stays open so a reader blocked on
// it is not woken by the close.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// IsPolling reports whether the watcher uses polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted reports whether the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives after each debounced change.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the absolute watched path.
func (w *Watcher) Path() string {
	return w.path
}

// FilesystemType returns the classification made by Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// relevant reports whether an fsnotify event name concerns the watched path.
func (w *Watcher) relevant(name string) bool {
	if !w.isDir {
		return filepath.Base(name) == filepath.Base(w.path)
	}
	if filepath.Clean(name) == w.path {
		return true
	}
	if w.pattern == "" {
		return true
	}
	ok, _ := filepath.Match(w.pattern, filepath.Base(name))
	return ok
}

func (w *Watcher) watchFsnotify(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			removedSelf := filepath.Clean(event.Name) == w.path || !w.isDir
			switch {
			case event.Op&fsnotify.Remove != 0 && removedSelf:
				w.onError(ErrRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		w.mu.Lock()
		prev := w.last
		next, err := w.fingerprint()
		w.last = next
		w.mu.Unlock()

		switch {
		case err != nil:
			w.onError(err)
		case prev.exists && !next.exists:
			w.onError(ErrRemoved)
		case next != prev:
			w.debouncer.Trigger(w.notifyChange)
		}
	}
}

// fingerprint stats the watched path. For a directory it aggregates the
// matching entries so additions, deletions and edits all show up.
func (w *Watcher) fingerprint() (fingerprint, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsPermission(err) {
			return fingerprint{}, ErrPermission
		}
		return fingerprint{}, nil
	}
	if !info.IsDir() {
		return fingerprint{exists: true, count: 1, size: info.Size(), mtime: info.ModTime()}, nil
	}

	fp := fingerprint{exists: true}
	entries, err := os.ReadDir(w.path)
	if err != nil {
		return fp, nil
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if w.pattern != "" {
			if ok, _ := filepath.Match(w.pattern, e.Name()); !ok {
				continue
			}
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		fp.count++
		fp.size += fi.Size()
		if fi.ModTime().After(fp.mtime) {
			fp.mtime = fi.ModTime()
		}
	}
	return fp, nil
}

func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()
	if !started {
		return
	}

	w.onChange()
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
