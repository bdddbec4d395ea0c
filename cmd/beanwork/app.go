package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/vanderheijden86/beanwork/pkg/config"
	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/notify"
	"github.com/vanderheijden86/beanwork/pkg/search"
	"github.com/vanderheijden86/beanwork/pkg/store"
	"github.com/vanderheijden86/beanwork/pkg/store/beanscli"
	"github.com/vanderheijden86/beanwork/pkg/store/beansfile"
	"github.com/vanderheijden86/beanwork/pkg/store/sqlitestore"
	"github.com/vanderheijden86/beanwork/pkg/view"
	"github.com/vanderheijden86/beanwork/pkg/watcher"
)

// app is the state shared by every subcommand: flags, the loaded config and
// the open store.
type app struct {
	projectDir  string
	configPath  string
	backend     string
	beansPath   string
	localSearch bool

	cfg   config.Config
	store store.BeanStore
	close func() error

	stderr io.Writer
	isTTY  func(f any) bool
	prompt chooser
}

func newApp() *app {
	return &app{
		stderr: os.Stderr,
		isTTY:  isTerminal,
		prompt: promptChoice,
		close:  func() error { return nil },
	}
}

// isTerminal reports whether f is a file attached to a terminal.
func isTerminal(f any) bool {
	file, ok := f.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// setup loads the config and opens the store.
func (a *app) setup() error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	st, closeFn, err := openStore(a.cfg, a.projectDir)
	if err != nil {
		return err
	}
	a.store, a.close = st, closeFn
	return nil
}

// loadConfig resolves the project root and the effective config. Flags
// override the config files and the environment.
func (a *app) loadConfig() error {
	if a.projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		a.projectDir = wd
	}

	var (
		cfg config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load(a.projectDir)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.backend != "" {
		cfg.Store.Backend = a.backend
	}
	if a.beansPath != "" {
		cfg.Store.Path = a.beansPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// storePath resolves the configured store path against the project root.
func storePath(cfg config.Config, projectDir string) string {
	p := cfg.Store.Path
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

func openStore(cfg config.Config, projectDir string) (store.BeanStore, func() error, error) {
	noop := func() error { return nil }
	path := storePath(cfg, projectDir)
	switch cfg.Store.Backend {
	case config.BackendFiles:
		info, err := os.Stat(path)
		if err != nil {
			return nil, nil, fmt.Errorf("beans directory: %w", err)
		}
		if !info.IsDir() {
			return nil, nil, fmt.Errorf("beans directory %s is not a directory", path)
		}
		return beansfile.New(path), noop, nil
	case config.BackendCLI:
		return beanscli.New(beanscli.WithBinary(cfg.Store.Binary), beanscli.WithDir(projectDir)), noop, nil
	case config.BackendSQLite:
		st, err := sqlitestore.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// watchTarget is the path whose changes mean the beans changed.
func (a *app) watchTarget() (path, pattern string) {
	switch a.cfg.Store.Backend {
	case config.BackendSQLite:
		return storePath(a.cfg, a.projectDir), ""
	default:
		return storePath(a.cfg, a.projectDir), beansfile.Pattern
	}
}

func (a *app) newWatcher(onChange func()) (*watcher.Watcher, error) {
	path, pattern := a.watchTarget()
	opts := []watcher.Option{
		watcher.WithForcePoll(a.cfg.Watch.ForcePoll),
		watcher.WithOnError(func(err error) {
			fmt.Fprintf(a.stderr, "warning: watcher: %v\n", err)
		}),
	}
	if d := time.Duration(a.cfg.Watch.Debounce); d > 0 {
		opts = append(opts, watcher.WithDebounceDuration(d))
	}
	if pattern != "" {
		opts = append(opts, watcher.WithPattern(pattern))
	}
	if onChange != nil {
		opts = append(opts, watcher.WithOnChange(onChange))
	}
	return watcher.New(path, opts...)
}

// viewOptions are the options every view of this run shares.
func (a *app) viewOptions() ([]view.Option, error) {
	weights, err := search.WeightsFromEnv()
	if err != nil {
		return nil, err
	}
	return []view.Option{
		view.WithLogger(log.New(a.stderr, "", log.LstdFlags)),
		view.WithSortMode(a.cfg.SortMode()),
		view.WithScorer(search.NewScorer(weights)),
		view.WithLocalSearch(a.localSearch),
		view.WithAugmenter(view.BlockedAugmenter(a.store)),
	}, nil
}

// newSet builds views of panes that share d.
func (a *app) newSet(panes []dragdrop.Pane, d *notify.Deduper, extra ...view.Option) (*view.Set, error) {
	opts, err := a.viewOptions()
	if err != nil {
		return nil, err
	}
	return view.NewSet(a.store, panes, d, append(opts, extra...)...), nil
}

// oneShotDeduper is for commands that refresh once and return the error
// themselves, so the deduper neither shows nor logs it.
func oneShotDeduper() *notify.Deduper {
	return notify.NewDeduper(nil, notify.WithLogger(log.New(io.Discard, "", 0)))
}

// stderrDeduper shows each distinct fetch failure once and logs every one to
// stderr.
func (a *app) stderrDeduper() *notify.Deduper {
	return notify.NewDeduper(a.stderrNotifier(), notify.WithLogger(log.New(a.stderr, "", log.LstdFlags)))
}

// stderrNotifier prints deduplicated fetch failures.
func (a *app) stderrNotifier() notify.Notifier {
	return notify.NotifierFunc(func(msg string) {
		fmt.Fprintf(a.stderr, "Error: %s\n", msg)
	})
}

func (a *app) teardown() error {
	if a.close == nil {
		return nil
	}
	err := a.close()
	a.close = nil
	return err
}
