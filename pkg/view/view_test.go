package view

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/filter"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/notify"
	"github.com/vanderheijden86/beanwork/pkg/ordering"
	"github.com/vanderheijden86/beanwork/pkg/store"
	"github.com/vanderheijden86/beanwork/pkg/store/memstore"
	"github.com/vanderheijden86/beanwork/pkg/testutil"
	"github.com/vanderheijden86/beanwork/pkg/tree"
)

func quietLogger() *log.Logger { return log.New(&bytes.Buffer{}, "", 0) }

func ids(nodes []tree.TreeNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}

func sample() *memstore.Store {
	return memstore.New([]model.Bean{
		testutil.B("e1", model.StatusTodo, model.TypeEpic, ""),
		testutil.B("t1", model.StatusInProgress, model.TypeTask, "e1"),
		testutil.B("t2", model.StatusTodo, model.TypeTask, "e1"),
		testutil.B("d1", model.StatusDraft, model.TypeTask, ""),
		testutil.B("c1", model.StatusCompleted, model.TypeTask, "e1"),
	})
}

func TestRefreshBuildsPaneTree(t *testing.T) {
	v := New(dragdrop.Active, sample(), WithLogger(quietLogger()))
	if v.Snapshot().Len() != 0 {
		t.Fatal("snapshot should start empty")
	}
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if got := ids(v.Children("")); len(got) != 1 || got[0] != "e1" {
		t.Fatalf("roots = %v, want [e1]", got)
	}
	kids := ids(v.Children("e1"))
	if len(kids) != 2 || kids[0] != "t1" || kids[1] != "t2" {
		t.Errorf("children = %v, want [t1 t2] (completed c1 excluded)", kids)
	}
	if p, ok := v.Parent("t2"); !ok || p.ID() != "e1" {
		t.Errorf("parent of t2 = %v", p.ID())
	}
	root := v.Children("")[0]
	if !root.HasInProgressDescendant || root.CollapsibleState() != tree.Collapsed {
		t.Errorf("root flags = %+v", root)
	}
}

func TestSetFilterIntersectsPane(t *testing.T) {
	st := sample()
	v := New(dragdrop.Active, st, WithLogger(quietLogger()))
	only := []model.Status{model.StatusInProgress}
	v.SetFilter(filter.Update{Statuses: &only})
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := ids(v.Snapshot().All()); len(got) != 1 || got[0] != "t1" {
		t.Errorf("visible = %v, want [t1]", got)
	}

	// A status outside the pane empties it without asking the store.
	calls := st.ListCalls()
	done := []model.Status{model.StatusCompleted}
	v.SetFilter(filter.Update{Statuses: &done})
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v.Snapshot().Len() != 0 {
		t.Error("expected empty pane")
	}
	if st.ListCalls() != calls {
		t.Error("store should not be called for an empty intersection")
	}
}

func TestSearchRanksAndScores(t *testing.T) {
	st := memstore.New([]model.Bean{
		{ID: "x2", Title: "Refactor session store", Body: "uses auth token", Status: model.StatusTodo, Type: model.TypeTask},
		{ID: "x1", Title: "Fix auth bug", Status: model.StatusTodo, Type: model.TypeBug},
		{ID: "x3", Title: "Unrelated", Status: model.StatusTodo, Type: model.TypeTask},
	})
	v := New(dragdrop.Active, st, WithLogger(quietLogger()))
	q := "auth"
	v.SetFilter(filter.Update{Search: &q})
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	roots := v.Children("")
	if got := ids(roots); len(got) != 2 || got[0] != "x1" || got[1] != "x2" {
		t.Fatalf("roots = %v, want [x1 x2]", got)
	}
	if roots[0].Score <= roots[1].Score {
		t.Errorf("scores %d <= %d", roots[0].Score, roots[1].Score)
	}
}

func TestSortModeChange(t *testing.T) {
	st := memstore.New([]model.Bean{
		testutil.B("b", model.StatusTodo, model.TypeTask, ""),
		testutil.B("a", model.StatusInProgress, model.TypeTask, ""),
		testutil.B("c", model.StatusTodo, model.TypeTask, ""),
	})
	v := New(dragdrop.Active, st, WithLogger(quietLogger()))
	_ = v.Refresh(context.Background())
	if got := ids(v.Children("")); strings.Join(got, ",") != "a,b,c" {
		t.Errorf("default order = %v", got)
	}

	v.SetSortMode(ordering.Mode("nonsense"))
	_ = v.Refresh(context.Background())
	if got := ids(v.Children("")); strings.Join(got, ",") != "b,a,c" {
		t.Errorf("unknown mode should keep store order, got %v", got)
	}
	if v.SortMode() != ordering.Mode("nonsense") {
		t.Error("SortMode not recorded")
	}
}

func TestFetchErrorPublishesEmptyAndDedupes(t *testing.T) {
	st := sample()
	var shown []string
	var mu sync.Mutex
	d := notify.NewDeduper(notify.NotifierFunc(func(m string) {
		mu.Lock()
		shown = append(shown, m)
		mu.Unlock()
	}), notify.WithLogger(quietLogger()))

	set := NewSet(st, dragdrop.Panes(), d, WithLogger(quietLogger()))
	if err := set.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	active, _ := set.View("active")
	if active.Snapshot().Len() == 0 {
		t.Fatal("active pane should have beans")
	}

	st.FailLists(errors.New("beans: exit status 1"))
	err := set.RefreshAll(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	for _, v := range set.Views() {
		if v.Snapshot().Len() != 0 {
			t.Errorf("%s kept stale data after a failed fetch", v.Name())
		}
		if v.Err() == nil {
			t.Errorf("%s has no recorded error", v.Name())
		}
	}
	if len(shown) != 1 {
		t.Errorf("notifications = %d, want 1 across %d panes", len(shown), len(set.Views()))
	}
}

type slowStore struct {
	*memstore.Store
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowStore) List(ctx context.Context, f model.ListFilter) ([]model.Bean, error) {
	s.calls.Add(1)
	<-s.release
	return s.Store.List(ctx, f)
}

func TestConcurrentRefreshCollapses(t *testing.T) {
	st := &slowStore{Store: sample(), release: make(chan struct{})}
	v := New(dragdrop.Active, st, WithLogger(quietLogger()))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = v.Refresh(context.Background())
		}()
	}
	// Give the goroutines time to pile up on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(st.release)
	wg.Wait()

	if n := st.calls.Load(); n < 1 || n > 5 {
		t.Fatalf("List calls = %d", n)
	}
	if v.Snapshot().Len() == 0 {
		t.Error("snapshot not published")
	}
}

func TestHooks(t *testing.T) {
	st := sample()
	var order []string
	v := New(dragdrop.Active, st,
		WithLogger(quietLogger()),
		WithPostFetch(func(beans []model.Bean) []model.Bean {
			order = append(order, "post")
			out := beans[:0:0]
			for _, b := range beans {
				if b.ID != "t2" {
					out = append(out, b)
				}
			}
			return out
		}),
		WithAugmenter(func(_ context.Context, beans []model.Bean) ([]model.Bean, error) {
			order = append(order, "augment")
			out := make([]model.Bean, len(beans))
			for i, b := range beans {
				out[i] = b.Clone()
				out[i].Blocked = true
			}
			return out, nil
		}),
	)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, ",") != "post,augment" {
		t.Errorf("hook order = %v", order)
	}
	if _, ok := v.Snapshot().Node("t2"); ok {
		t.Error("post-fetch hook result ignored")
	}
	if n, _ := v.Snapshot().Node("t1"); !n.Bean.Blocked {
		t.Error("augmented records not used")
	}
}

func TestAugmentationFailureFallsBack(t *testing.T) {
	var logs bytes.Buffer
	v := New(dragdrop.Active, sample(),
		WithLogger(log.New(&logs, "", 0)),
		WithAugmenter(func(context.Context, []model.Bean) ([]model.Bean, error) {
			return nil, errors.New("lookup failed")
		}),
	)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("augmentation failure must not fail the refresh: %v", err)
	}
	if v.Snapshot().Len() != 3 {
		t.Errorf("len = %d, want un-augmented 3", v.Snapshot().Len())
	}
	var ae *AugmentationError
	if !errors.As(v.Warning(), &ae) {
		t.Errorf("warning = %v", v.Warning())
	}
	if !strings.Contains(logs.String(), "lookup failed") {
		t.Error("augmentation failure not logged")
	}
}

func TestBlockedAugmenter(t *testing.T) {
	blocker := testutil.B("blocker", model.StatusTodo, model.TypeTask, "")
	blocker.BlockingIDs = []string{"t2"}
	st := sample()
	st.Put(blocker)

	v := New(dragdrop.Active, st, WithLogger(quietLogger()), WithAugmenter(BlockedAugmenter(st)))
	_ = v.Refresh(context.Background())
	if n, _ := v.Snapshot().Node("t2"); !n.Bean.Blocked {
		t.Error("t2 should be blocked by an open bean")
	}
	if n, _ := v.Snapshot().Node("t1"); n.Bean.Blocked {
		t.Error("t1 has no blockers")
	}
}

func TestBlockedAugmenterSkipsDeletedBlockers(t *testing.T) {
	b := testutil.B("b", model.StatusTodo, model.TypeTask, "")
	b.BlockedByIDs = []string{"a"}
	c := testutil.B("c", model.StatusTodo, model.TypeTask, "")
	c.BlockedByIDs = []string{"deleted-bean"}
	st := memstore.New([]model.Bean{testutil.B("a", model.StatusTodo, model.TypeTask, ""), b, c})

	var logs bytes.Buffer
	v := New(dragdrop.Active, st, WithLogger(log.New(&logs, "", 0)), WithAugmenter(BlockedAugmenter(st)))
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v.Warning() != nil || logs.Len() != 0 {
		t.Errorf("warning = %v, logs = %q", v.Warning(), logs.String())
	}
	if n, _ := v.Snapshot().Node("b"); !n.Bean.Blocked {
		t.Error("b should stay blocked by open a")
	}
	if n, _ := v.Snapshot().Node("c"); n.Bean.Blocked {
		t.Error("c's blocker was deleted")
	}
}

func TestSubscribe(t *testing.T) {
	v := New(dragdrop.Active, sample(), WithLogger(quietLogger()))
	var got []*tree.Snapshot
	cancel := v.Subscribe(func(s *tree.Snapshot) { got = append(got, s) })

	_ = v.Refresh(context.Background())
	cancel()
	cancel()
	_ = v.Refresh(context.Background())

	if len(got) != 1 || got[0].Len() != 3 {
		t.Errorf("notifications = %d", len(got))
	}
}

func TestEvaluateDropAndApply(t *testing.T) {
	st := sample()
	set := NewSet(st, dragdrop.Panes(), nil, WithLogger(quietLogger()))
	ctx := context.Background()
	if err := set.RefreshAll(ctx); err != nil {
		t.Fatal(err)
	}
	completed, _ := set.View("completed")
	active, _ := set.View("active")

	if res := active.EvaluateDrop("t2", ""); res.Outcome != dragdrop.OutcomeIntent || !res.Intent.ClearParent {
		t.Errorf("background drop of a child = %+v", res)
	}
	if res := active.EvaluateDrop("c1", ""); !errors.Is(res.Error(), dragdrop.ErrUnknownBean) {
		t.Errorf("bean outside the snapshot = %v", res.Outcome)
	}

	// A cross-pane drop is evaluated against the pane the bean was dragged from.
	res := dragdrop.Evaluate(completed.Snapshot(), "c1", "", active.Pane())
	if res.Outcome != dragdrop.OutcomeNeedsConfirmation {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	res = dragdrop.Resolve(res, dragdrop.ChangeStatus)
	if res.Outcome != dragdrop.OutcomeIntent {
		t.Fatalf("resolve = %v", res.Outcome)
	}
	if _, err := set.Apply(ctx, *res.Intent); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := active.Snapshot().Node("c1"); !ok {
		t.Error("c1 should now show in the active pane")
	}
	if completed.Snapshot().Len() != 0 {
		t.Error("c1 should have left the completed pane")
	}

	if _, err := Apply(ctx, st, dragdrop.Intent{ID: "t1"}); !errors.Is(err, ErrEmptyIntent) {
		t.Errorf("empty intent err = %v", err)
	}
	if _, err := Apply(ctx, st, dragdrop.Intent{ID: "ghost", ClearParent: true}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown bean err = %v", err)
	}
}

func TestSetLookupSpansPanes(t *testing.T) {
	set := NewSet(sample(), dragdrop.Panes(), nil, WithLogger(quietLogger()))
	if err := set.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	active, _ := set.View("active")
	lookup := set.Lookup()

	if _, ok := lookup.Bean("d1"); !ok {
		t.Fatal("draft bean not visible through the set lookup")
	}
	if got := lookup.ParentID("t1"); got != "e1" {
		t.Errorf("ParentID(t1) = %q", got)
	}

	res := dragdrop.Evaluate(lookup, "d1", "e1", active.Pane())
	if res.Outcome != dragdrop.OutcomeNeedsConfirmation || len(res.Confirm.Choices) != 3 {
		t.Fatalf("drop draft on active epic = %+v", res)
	}
	res = dragdrop.Resolve(res, dragdrop.ChangeStatusAndReparent)
	if res.Outcome != dragdrop.OutcomeIntent || res.Intent.NewParentID != "e1" || res.Intent.NewStatus != model.StatusTodo {
		t.Errorf("resolved = %+v", res)
	}
}

func TestCycleCheckFollowsParentsAcrossPanes(t *testing.T) {
	ctx := context.Background()

	t.Run("set lookup", func(t *testing.T) {
		set := NewSet(memstore.New([]model.Bean{
			testutil.B("m1", model.StatusCompleted, model.TypeMilestone, ""),
			testutil.B("e1", model.StatusCompleted, model.TypeEpic, "m1"),
			testutil.B("m2", model.StatusTodo, model.TypeMilestone, "e1"),
		}), dragdrop.Panes(), nil, WithLogger(quietLogger()))
		if err := set.RefreshAll(ctx); err != nil {
			t.Fatal(err)
		}
		lookup := set.Lookup()
		if got := lookup.ParentID("m2"); got != "e1" {
			t.Fatalf("ParentID(m2) = %q, want e1 from the completed pane", got)
		}

		res := dragdrop.Evaluate(lookup, "e1", "m2", dragdrop.Active)
		res = dragdrop.Resolve(res, dragdrop.ChangeStatusAndReparent)
		if res.Outcome != dragdrop.OutcomeRejected || res.Err.Code != dragdrop.CycleDetected {
			t.Fatalf("got %v %v, want cycle-detected", res.Outcome, res.Err)
		}
	})

	t.Run("view in a set", func(t *testing.T) {
		set := NewSet(memstore.New([]model.Bean{
			testutil.B("e1", model.StatusTodo, model.TypeEpic, ""),
			testutil.B("x", model.StatusCompleted, model.TypeMilestone, "e1"),
			testutil.B("m2", model.StatusTodo, model.TypeMilestone, "x"),
		}), dragdrop.Panes(), nil, WithLogger(quietLogger()))
		if err := set.RefreshAll(ctx); err != nil {
			t.Fatal(err)
		}
		active, _ := set.View("active")
		if _, ok := active.Snapshot().Bean("x"); ok {
			t.Fatal("completed x should not show in the active pane")
		}

		res := active.EvaluateDrop("e1", "m2")
		if res.Outcome != dragdrop.OutcomeRejected || !errors.Is(res.Error(), dragdrop.ErrCycle) {
			t.Fatalf("got %v %v, want cycle-detected", res.Outcome, res.Err)
		}
		if res := active.EvaluateDrop("x", ""); !errors.Is(res.Error(), dragdrop.ErrUnknownBean) {
			t.Errorf("beans of other panes stay undraggable here: %v", res.Outcome)
		}
	})
}
