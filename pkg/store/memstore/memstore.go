// Package memstore is an in-process BeanStore. It backs the tests of the view,
// ui, mcpserver and command packages, and is the reference for how other
// adapters treat filters and patches.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vanderheijden86/beanwork/pkg/filter"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/store"
)

// Store keeps beans in memory in insertion order.
type Store struct {
	mu       sync.RWMutex
	order    []string
	beans    map[string]model.Bean
	searches bool
	listErr  error
	lists    int
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSearch makes the store evaluate ListFilter.Search itself.
func WithSearch() Option {
	return func(s *Store) { s.searches = true }
}

// WithClock replaces time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a store seeded with beans. Later duplicates replace earlier ones.
func New(beans []model.Bean, opts ...Option) *Store {
	s := &Store{beans: make(map[string]model.Bean, len(beans)), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	for _, b := range beans {
		s.put(b)
	}
	return s
}

var (
	_ store.BeanStore = (*Store)(nil)
	_ store.Searcher  = (*Store)(nil)
)

// SupportsSearch reports whether the store was created WithSearch.
func (s *Store) SupportsSearch() bool { return s.searches }

// Put inserts or replaces a bean.
func (s *Store) Put(b model.Bean) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(b)
}

func (s *Store) put(b model.Bean) {
	if _, ok := s.beans[b.ID]; !ok {
		s.order = append(s.order, b.ID)
	}
	s.beans[b.ID] = b.Clone()
}

// Delete removes a bean. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.beans[id]; !ok {
		return
	}
	delete(s.beans, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// FailLists makes every List return err until called with nil.
func (s *Store) FailLists(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// ListCalls returns how many times List was called.
func (s *Store) ListCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lists
}

// List returns copies of the beans matching f, in insertion order.
func (s *Store) List(ctx context.Context, f model.ListFilter) ([]model.Bean, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lists++
	listErr := s.listErr
	s.mu.Unlock()
	if listErr != nil {
		return nil, listErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	pipe := filter.Pipeline{Fixed: f.Status}
	state := filter.State{Types: f.Type}
	if s.searches {
		state.Search = f.Search
	}
	all := make([]model.Bean, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.beans[id].Clone())
	}
	return pipe.Apply(all, state, false), nil
}

// Show returns a copy of one bean.
func (s *Store) Show(ctx context.Context, id string) (model.Bean, error) {
	if err := ctx.Err(); err != nil {
		return model.Bean{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.beans[id]
	if !ok {
		return model.Bean{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	return b.Clone(), nil
}

// Update validates and applies patch, stamping UpdatedAt.
func (s *Store) Update(ctx context.Context, id string, patch model.Patch) (model.Bean, error) {
	if err := ctx.Err(); err != nil {
		return model.Bean{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.beans[id]
	if !ok {
		return model.Bean{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	lookup := func(ref string) (model.Bean, bool) {
		b, ok := s.beans[ref]
		return b, ok
	}
	if err := store.ValidatePatch(cur, patch, lookup); err != nil {
		return model.Bean{}, err
	}
	next := patch.Apply(cur)
	next.UpdatedAt = s.now()
	s.beans[id] = next
	return next.Clone(), nil
}
