// Package view keeps one immutable tree snapshot per pane and rebuilds it from
// the store on Refresh.
//
// A refresh runs fetch (with the pushdown filter), the post-fetch hook,
// augmentation, the local filter, relevance scoring and tree building, then
// publishes the new snapshot to subscribers. Views refresh independently; the
// only thing they share is the notify.Deduper.
package view

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/beanwork/pkg/debug"
	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/filter"
	"github.com/vanderheijden86/beanwork/pkg/metrics"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/notify"
	"github.com/vanderheijden86/beanwork/pkg/ordering"
	"github.com/vanderheijden86/beanwork/pkg/search"
	"github.com/vanderheijden86/beanwork/pkg/store"
	"github.com/vanderheijden86/beanwork/pkg/tree"
)

// PostFetch adjusts the fetched records before anything else sees them.
type PostFetch func(beans []model.Bean) []model.Bean

// Augmenter enriches fetched records. On error the view keeps the records it
// passed in.
type Augmenter func(ctx context.Context, beans []model.Bean) ([]model.Bean, error)

// maxRebuilds bounds how often a refresh restarts because the sort mode or
// filter changed while it was running.
const maxRebuilds = 3

// View is one pane over a store.
type View struct {
	pane     dragdrop.Pane
	store    store.BeanStore
	pipeline filter.Pipeline
	deduper  *notify.Deduper
	scorer   search.Scorer
	post     PostFetch
	augment  Augmenter
	logger   *log.Logger
	set      *Set

	group singleflight.Group

	mu      sync.RWMutex
	mode    ordering.Mode
	state   filter.State
	gen     uint64
	snap    *tree.Snapshot
	lastErr error
	warning error
	subs    map[int]func(*tree.Snapshot)
	nextSub int
}

// Option configures a View.
type Option func(*View)

// WithPostFetch installs a hook run on the raw fetch result.
func WithPostFetch(fn PostFetch) Option {
	return func(v *View) { v.post = fn }
}

// WithAugmenter installs an enrichment step run after the post-fetch hook.
func WithAugmenter(fn Augmenter) Option {
	return func(v *View) { v.augment = fn }
}

// WithDeduper shares d for fetch failure notifications.
func WithDeduper(d *notify.Deduper) Option {
	return func(v *View) { v.deduper = d }
}

// WithSortMode sets the initial sort mode.
func WithSortMode(mode ordering.Mode) Option {
	return func(v *View) { v.mode = mode }
}

// WithFilter sets the initial filter.
func WithFilter(s filter.State) Option {
	return func(v *View) { v.state = s }
}

// WithLocalSearch forces client-side text matching even for stores that search.
func WithLocalSearch(local bool) Option {
	return func(v *View) { v.pipeline.Local = local }
}

// WithScorer replaces the default relevance weights.
func WithScorer(s search.Scorer) Option {
	return func(v *View) { v.scorer = s }
}

// WithLogger sends warnings to l instead of the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(v *View) { v.logger = l }
}

// New creates a view of pane over st. The snapshot is empty until Refresh.
func New(pane dragdrop.Pane, st store.BeanStore, opts ...Option) *View {
	v := &View{
		pane:     pane,
		store:    st,
		pipeline: filter.Pipeline{Fixed: append([]model.Status(nil), pane.Native...)},
		scorer:   search.NewScorer(search.DefaultWeights()),
		mode:     ordering.DefaultMode,
		snap:     tree.Empty(),
		subs:     make(map[int]func(*tree.Snapshot)),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.deduper == nil {
		v.deduper = notify.NewDeduper(nil, notify.WithLogger(v.logger))
	}
	return v
}

// Name returns the pane name.
func (v *View) Name() string { return v.pane.Name }

// Pane returns the pane the view shows.
func (v *View) Pane() dragdrop.Pane { return v.pane }

// Snapshot returns the current snapshot. It is never nil.
func (v *View) Snapshot() *tree.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snap
}

// Children returns the sorted children of id; an empty id returns the roots.
func (v *View) Children(id string) []tree.TreeNode {
	return v.Snapshot().Children(id)
}

// Parent returns the attached parent of id.
func (v *View) Parent(id string) (tree.TreeNode, bool) {
	return v.Snapshot().Parent(id)
}

// SortMode returns the active sort mode.
func (v *View) SortMode() ordering.Mode {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mode
}

// SetSortMode changes the sort mode used by the next Refresh. Unknown modes
// are accepted and keep store order.
func (v *View) SetSortMode(mode ordering.Mode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
	v.gen++
}

// Filter returns the active filter.
func (v *View) Filter() filter.State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// SetFilter merges u into the filter used by the next Refresh.
func (v *View) SetFilter(u filter.Update) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = v.state.With(u)
	v.gen++
}

// Err returns the error of the last refresh, nil when it succeeded.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastErr
}

// Warning returns the last AugmentationError, nil when augmentation succeeded.
func (v *View) Warning() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.warning
}

// Subscribe registers fn to receive every published snapshot. fn runs on the
// refreshing goroutine and must not block. The returned func unsubscribes.
func (v *View) Subscribe(fn func(*tree.Snapshot)) (cancel func()) {
	v.mu.Lock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// EvaluateDrop validates a drag gesture against the current snapshot. A view
// that belongs to a Set checks cycles against the beans of every pane.
func (v *View) EvaluateDrop(draggedID, targetID string) dragdrop.Result {
	var snap dragdrop.Lookup = v.Snapshot()
	if v.set != nil {
		snap = paneLookup{Snapshot: v.Snapshot(), all: v.set.union()}
	}
	return dragdrop.Evaluate(snap, draggedID, targetID, v.pane)
}

// Refresh rebuilds the snapshot from the store. Concurrent calls on the same
// view share one rebuild. A store failure returns a *FetchError and publishes
// an empty snapshot; augmentation failures are only logged.
func (v *View) Refresh(ctx context.Context) error {
	_, err, shared := v.group.Do("refresh", func() (any, error) {
		return nil, v.refresh(ctx)
	})
	if shared {
		debug.Log("view %s: joined in-flight refresh", v.pane.Name)
	}
	return err
}

func (v *View) refresh(ctx context.Context) error {
	defer metrics.Timer(metrics.Refresh)()
	defer debug.LogEnterExit("view.refresh " + v.pane.Name)()

	for attempt := 0; ; attempt++ {
		v.mu.RLock()
		mode, state, gen := v.mode, v.state, v.gen
		v.mu.RUnlock()

		snap, warning, err := v.build(ctx, mode, state)

		v.mu.Lock()
		if v.gen != gen && attempt < maxRebuilds && err == nil {
			v.mu.Unlock()
			continue
		}
		v.snap = snap
		v.lastErr = err
		v.warning = warning
		subs := make([]func(*tree.Snapshot), 0, len(v.subs))
		for _, fn := range v.subs {
			subs = append(subs, fn)
		}
		v.mu.Unlock()

		for _, fn := range subs {
			fn(snap)
		}
		return err
	}
}

// build runs one full pipeline pass. It always returns a usable snapshot.
// warning holds an AugmentationError, err a FetchError.
func (v *View) build(ctx context.Context, mode ordering.Mode, state filter.State) (snap *tree.Snapshot, warning, err error) {
	lf, ok := v.pipeline.Pushdown(state, store.CanSearch(v.store))
	if !ok {
		debug.Log("view %s: filter excludes every pane status", v.pane.Name)
		return tree.Empty(), nil, nil
	}

	beans, err := v.store.List(ctx, lf)
	if err != nil {
		fe := &FetchError{View: v.pane.Name, Err: err}
		v.deduper.Report(fe)
		return tree.Empty(), nil, fe
	}

	if v.post != nil {
		beans = v.post(beans)
	}

	if v.augment != nil {
		augmented, aerr := v.augment(ctx, beans)
		if aerr != nil {
			warning = &AugmentationError{View: v.pane.Name, Err: aerr}
			v.logf("warning: %v", warning)
		} else {
			beans = augmented
		}
	}

	local := v.pipeline.Apply(beans, state, lf.Search != "")

	less, ok := ordering.Comparator(mode)
	if !ok {
		debug.Log("view %s: unknown sort mode %q, keeping store order", v.pane.Name, mode)
	}
	scores := v.scorer.Scores(local, state.Query())
	if scores != nil {
		less = ordering.WithScores(scores, less)
	}

	snap = tree.Build(local, tree.WithComparator(less), tree.WithScores(scores))
	debug.Log("view %s: %d fetched, %d shown", v.pane.Name, len(beans), snap.Len())
	return snap, warning, nil
}

func (v *View) logf(format string, args ...any) {
	if v.logger != nil {
		v.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// ErrEmptyIntent is returned by Apply for an intent that changes nothing.
var ErrEmptyIntent = errors.New("intent changes nothing")

// Apply sends intent to st as a patch. Callers refresh afterwards.
func Apply(ctx context.Context, st store.BeanStore, intent dragdrop.Intent) (model.Bean, error) {
	patch := intent.Patch()
	if intent.ID == "" || patch.IsEmpty() {
		return model.Bean{}, ErrEmptyIntent
	}
	updated, err := st.Update(ctx, intent.ID, patch)
	if err != nil {
		return model.Bean{}, fmt.Errorf("%s: %w", intent, err)
	}
	return updated, nil
}
