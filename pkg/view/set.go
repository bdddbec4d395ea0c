package view

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/beanwork/pkg/analysis"
	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/notify"
	"github.com/vanderheijden86/beanwork/pkg/store"
	"github.com/vanderheijden86/beanwork/pkg/tree"
)

// Set is the group of panes shown together. All views share one store and one
// deduper.
type Set struct {
	store   store.BeanStore
	deduper *notify.Deduper
	views   []*View
	byName  map[string]*View
}

// NewSet creates one view per pane. d is shared by every view; nil creates a
// deduper that only logs. opts apply to every view.
func NewSet(st store.BeanStore, panes []dragdrop.Pane, d *notify.Deduper, opts ...Option) *Set {
	if d == nil {
		d = notify.NewDeduper(nil)
	}
	s := &Set{store: st, deduper: d, byName: make(map[string]*View, len(panes))}
	for _, p := range panes {
		v := New(p, st, append([]Option{WithDeduper(d)}, opts...)...)
		v.set = s
		s.views = append(s.views, v)
		s.byName[p.Name] = v
	}
	return s
}

// Views returns the views in pane order.
func (s *Set) Views() []*View {
	return append([]*View(nil), s.views...)
}

// View returns the view for a pane name.
func (s *Set) View(name string) (*View, bool) {
	v, ok := s.byName[name]
	return v, ok
}

// Deduper returns the shared deduper.
func (s *Set) Deduper() *notify.Deduper { return s.deduper }

// Store returns the shared store.
func (s *Set) Store() store.BeanStore { return s.store }

// RefreshAll refreshes every view concurrently. A failing view does not stop
// the others; the first error is returned after all finished.
func (s *Set) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	for _, v := range s.views {
		g.Go(func() error {
			return v.Refresh(ctx)
		})
	}
	return g.Wait()
}

// Apply sends intent to the store and refreshes every view, since a status
// change moves a bean between panes.
func (s *Set) Apply(ctx context.Context, intent dragdrop.Intent) (model.Bean, error) {
	updated, err := Apply(ctx, s.store, intent)
	if err != nil {
		return model.Bean{}, err
	}
	return updated, s.RefreshAll(ctx)
}

// BlockedAugmenter marks beans blocked by open work, resolving blockers that
// are not in the fetched set through st.
func BlockedAugmenter(st analysis.Shower) Augmenter {
	return func(ctx context.Context, beans []model.Bean) ([]model.Bean, error) {
		return analysis.MarkBlocked(ctx, st, beans)
	}
}

// Lookup resolves beans across every pane's current snapshot, so a drop can
// target a bean shown in another pane. The first pane holding an id wins.
func (s *Set) Lookup() dragdrop.Lookup {
	return s.union()
}

func (s *Set) union() unionLookup {
	snaps := make(unionLookup, 0, len(s.views))
	for _, v := range s.views {
		snaps = append(snaps, v.Snapshot())
	}
	return snaps
}

type unionLookup []*tree.Snapshot

func (u unionLookup) Bean(id string) (model.Bean, bool) {
	for _, snap := range u {
		if b, ok := snap.Bean(id); ok {
			return b, true
		}
	}
	return model.Bean{}, false
}

// ParentID returns the parent id is attached under in its pane. A bean shown
// as a root because its parent lives in another pane keeps that parent.
func (u unionLookup) ParentID(id string) string {
	for _, snap := range u {
		b, ok := snap.Bean(id)
		if !ok {
			continue
		}
		if p := snap.ParentID(id); p != "" {
			return p
		}
		if _, ok := u.Bean(b.ParentID); b.ParentID != "" && ok {
			return b.ParentID
		}
		return ""
	}
	return ""
}

// paneLookup shows one pane's snapshot but lets the cycle check see the
// records of every pane in the set.
type paneLookup struct {
	*tree.Snapshot
	all unionLookup
}

func (p paneLookup) Record(id string) (model.Bean, bool) {
	return p.all.Bean(id)
}
