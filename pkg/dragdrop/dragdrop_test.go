package dragdrop

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/testutil"
	"github.com/vanderheijden86/beanwork/pkg/tree"
)

func snapshot(beans ...model.Bean) *tree.Snapshot {
	return tree.Build(beans)
}

func TestEvaluateRejects(t *testing.T) {
	snap := snapshot(
		testutil.B("b1", model.StatusTodo, model.TypeTask, ""),
		testutil.B("b2", model.StatusTodo, model.TypeEpic, ""),
		testutil.B("m", model.StatusTodo, model.TypeMilestone, ""),
		testutil.B("e", model.StatusTodo, model.TypeEpic, "m"),
		testutil.B("f", model.StatusTodo, model.TypeFeature, "e"),
		testutil.B("t", model.StatusInProgress, model.TypeTask, "f"),
	)

	tests := []struct {
		name     string
		dragged  string
		target   string
		want     Code
		sentinel error
	}{
		{"epic under task", "b2", "b1", InvalidHierarchy, ErrInvalidHierarchy},
		{"onto itself", "b1", "b1", SelfParent, ErrSelfParent},
		{"unknown dragged", "ghost", "b1", UnknownBean, ErrUnknownBean},
		{"unknown target", "t", "ghost", UnknownBean, ErrUnknownBean},
		{"leaf cannot contain", "t", "b1", InvalidHierarchy, ErrInvalidHierarchy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(snap, tt.dragged, tt.target, Active)
			if res.Outcome != OutcomeRejected || res.Err == nil {
				t.Fatalf("outcome = %v, want rejected", res.Outcome)
			}
			if res.Intent != nil {
				t.Error("rejected drop must not carry an intent")
			}
			if res.Err.Code != tt.want {
				t.Errorf("code = %s, want %s", res.Err.Code, tt.want)
			}
			if !errors.Is(res.Error(), tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", res.Error(), tt.sentinel)
			}
		})
	}
}

func TestEvaluateCycle(t *testing.T) {
	// The store let a milestone end up under an epic. Moving that epic under the
	// milestone passes the type check and must fail on the ancestor walk.
	snap := fakeLookup{
		beans: map[string]model.Bean{
			"m1": testutil.B("m1", model.StatusTodo, model.TypeMilestone, ""),
			"e1": testutil.B("e1", model.StatusTodo, model.TypeEpic, "m1"),
			"m2": testutil.B("m2", model.StatusTodo, model.TypeMilestone, "e1"),
		},
	}
	res := Evaluate(snap, "e1", "m2", Active)
	if res.Outcome != OutcomeRejected || res.Err.Code != CycleDetected {
		t.Fatalf("got %v %v, want cycle-detected", res.Outcome, res.Err)
	}
	if !errors.Is(res.Error(), ErrCycle) {
		t.Error("errors.Is should match ErrCycle")
	}

	tr := snapshot(
		testutil.B("e1", model.StatusTodo, model.TypeEpic, ""),
		testutil.B("f1", model.StatusTodo, model.TypeFeature, "e1"),
	)
	if !isAncestor(tr, "e1", "f1") || isAncestor(tr, "f1", "e1") {
		t.Error("ancestor walk disagrees with the tree")
	}
}

// hiddenParents shows a snapshot and keeps the records filtered out of it.
type hiddenParents struct {
	*tree.Snapshot
	hidden map[string]model.Bean
}

func (h hiddenParents) Record(id string) (model.Bean, bool) {
	b, ok := h.hidden[id]
	return b, ok
}

func TestEvaluateCycleThroughHiddenParent(t *testing.T) {
	// x is completed and filtered out, so m2 shows as a root of the active
	// snapshot although the store keeps it below e1.
	shown := snapshot(
		testutil.B("e1", model.StatusTodo, model.TypeEpic, ""),
		testutil.B("m2", model.StatusTodo, model.TypeMilestone, "x"),
	)
	if got := shown.ParentID("m2"); got != "" {
		t.Fatalf("m2 attached under %q, want a root", got)
	}

	if res := Evaluate(shown, "e1", "m2", Active); res.Outcome != OutcomeIntent {
		t.Fatalf("without the hidden record the chain ends at x: %v", res.Outcome)
	}

	lookup := hiddenParents{
		Snapshot: shown,
		hidden: map[string]model.Bean{
			"x": testutil.B("x", model.StatusCompleted, model.TypeMilestone, "e1"),
		},
	}
	res := Evaluate(lookup, "e1", "m2", Active)
	if res.Outcome != OutcomeRejected || res.Err.Code != CycleDetected {
		t.Fatalf("got %v %v, want cycle-detected", res.Outcome, res.Err)
	}
}

type fakeLookup struct {
	beans map[string]model.Bean
}

func (f fakeLookup) Bean(id string) (model.Bean, bool) {
	b, ok := f.beans[id]
	return b, ok
}

func (f fakeLookup) ParentID(id string) string {
	return f.beans[id].ParentID
}

func TestEvaluateIntraPaneReparent(t *testing.T) {
	snap := snapshot(
		testutil.B("e1", model.StatusTodo, model.TypeEpic, ""),
		testutil.B("e2", model.StatusInProgress, model.TypeEpic, ""),
		testutil.B("t1", model.StatusInProgress, model.TypeTask, "e1"),
	)

	res := Evaluate(snap, "t1", "e2", Active)
	if res.Outcome != OutcomeIntent {
		t.Fatalf("outcome = %v, want intent (%v)", res.Outcome, res.Err)
	}
	if *res.Intent != (Intent{ID: "t1", NewParentID: "e2"}) {
		t.Errorf("intent = %+v", *res.Intent)
	}
	p := res.Intent.Patch()
	if p.ParentID == nil || *p.ParentID != "e2" || p.Status != nil {
		t.Errorf("patch = %+v", p)
	}

	if res := Evaluate(snap, "t1", "e1", Active); res.Outcome != OutcomeNoChange {
		t.Errorf("dropping on current parent = %v, want no-change", res.Outcome)
	}
}

func TestEvaluateIntraPaneBackground(t *testing.T) {
	snap := snapshot(
		testutil.B("e1", model.StatusTodo, model.TypeEpic, ""),
		testutil.B("t1", model.StatusTodo, model.TypeTask, "e1"),
		testutil.B("orphan", model.StatusTodo, model.TypeTask, "deleted"),
	)

	res := Evaluate(snap, "t1", "", Active)
	if res.Outcome != OutcomeIntent || !res.Intent.ClearParent {
		t.Fatalf("background drop of a child should clear its parent: %+v", res)
	}
	if !res.Intent.Patch().ClearParent {
		t.Error("patch should clear parent")
	}
	if res := Evaluate(snap, "e1", "", Active); res.Outcome != OutcomeNoChange {
		t.Errorf("root on background = %v, want no-change", res.Outcome)
	}
	if res := Evaluate(snap, "orphan", "", Active); res.Outcome != OutcomeIntent {
		t.Errorf("dangling parent reference should be cleared, got %v", res.Outcome)
	}
}

func TestCrossPaneBackgroundNeedsConfirmation(t *testing.T) {
	snap := snapshot(testutil.B("done", model.StatusCompleted, model.TypeTask, ""))

	res := Evaluate(snap, "done", "", Active)
	if res.Outcome != OutcomeNeedsConfirmation || res.Intent != nil {
		t.Fatalf("outcome = %v, want confirmation without intent", res.Outcome)
	}
	if got := res.Confirm.Choices; len(got) != 2 || got[0] != ChangeStatus || got[1] != Cancel {
		t.Errorf("choices = %v", got)
	}

	confirmed := Resolve(res, ChangeStatus)
	if confirmed.Outcome != OutcomeIntent {
		t.Fatalf("confirm outcome = %v", confirmed.Outcome)
	}
	if *confirmed.Intent != (Intent{ID: "done", NewStatus: model.StatusTodo}) {
		t.Errorf("intent = %+v", *confirmed.Intent)
	}

	cancelled := Resolve(res, Cancel)
	if cancelled.Outcome != OutcomeCancelled || cancelled.Intent != nil {
		t.Errorf("cancel = %+v, want no intent", cancelled)
	}

	// Reparent was not offered for a background drop.
	if r := Resolve(res, ChangeStatusAndReparent); r.Outcome != OutcomeCancelled {
		t.Errorf("unoffered choice = %v, want cancelled", r.Outcome)
	}
}

func TestCrossPaneOnBean(t *testing.T) {
	snap := snapshot(
		testutil.B("e1", model.StatusTodo, model.TypeEpic, ""),
		testutil.B("d1", model.StatusDraft, model.TypeTask, ""),
		testutil.B("d2", model.StatusDraft, model.TypeEpic, ""),
	)

	res := Evaluate(snap, "d1", "e1", Active)
	if res.Outcome != OutcomeNeedsConfirmation || len(res.Confirm.Choices) != 3 {
		t.Fatalf("expected three-way confirmation, got %+v", res)
	}

	both := Resolve(res, ChangeStatusAndReparent)
	if both.Outcome != OutcomeIntent {
		t.Fatalf("outcome = %v (%v)", both.Outcome, both.Err)
	}
	if *both.Intent != (Intent{ID: "d1", NewParentID: "e1", NewStatus: model.StatusTodo}) {
		t.Errorf("intent = %+v", *both.Intent)
	}
	p := both.Intent.Patch()
	if p.Status == nil || *p.Status != model.StatusTodo || p.ParentID == nil || *p.ParentID != "e1" {
		t.Errorf("patch = %+v", p)
	}

	statusOnly := Resolve(res, ChangeStatus)
	if statusOnly.Intent.NewParentID != "" {
		t.Error("status-only choice must not reparent")
	}

	// Epic under epic passes classification but fails on resolve.
	bad := Resolve(Evaluate(snap, "d2", "e1", Active), ChangeStatusAndReparent)
	if bad.Outcome != OutcomeRejected || bad.Err.Code != InvalidHierarchy {
		t.Errorf("reparent resolve = %+v, want invalid hierarchy", bad)
	}
}

func TestResolvePassesThroughOtherResults(t *testing.T) {
	in := intentResult(Intent{ID: "x", ClearParent: true})
	if out := Resolve(in, Cancel); out.Outcome != OutcomeIntent {
		t.Errorf("Resolve changed a non-confirmation result: %v", out.Outcome)
	}
}

func TestSessionLifecycle(t *testing.T) {
	snap := snapshot(testutil.B("done", model.StatusCompleted, model.TypeTask, ""))
	s := NewSession(snap)

	if _, err := s.Drop("", Active); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("drop before start: err = %v", err)
	}
	if err := s.Start("done"); err != nil {
		t.Fatal(err)
	}
	if err := s.Start("done"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double start: err = %v", err)
	}
	res, err := s.Drop("", Active)
	if err != nil || res.Outcome != OutcomeNeedsConfirmation || s.State() != DropEvaluated {
		t.Fatalf("drop = %v, %v, state %v", res.Outcome, err, s.State())
	}
	res, err = s.Confirm(ChangeStatus)
	if err != nil || res.Outcome != OutcomeIntent || s.State() != Confirmed {
		t.Fatalf("confirm = %v, %v, state %v", res.Outcome, err, s.State())
	}
	if _, err := s.Confirm(ChangeStatus); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double confirm: err = %v", err)
	}
	s.Reset()
	if s.State() != Idle || s.DraggedID() != "" {
		t.Errorf("reset state = %v", s.State())
	}

	// cancel path
	_ = s.Start("done")
	_, _ = s.Drop("", Active)
	res, _ = s.Confirm(Cancel)
	if res.Outcome != OutcomeCancelled || s.State() != Cancelled || s.Result().Intent != nil {
		t.Errorf("cancel confirm = %v state %v", res.Outcome, s.State())
	}
	s.Reset()

	_ = s.Start("done")
	if err := s.Cancel(); err != nil || s.State() != Cancelled {
		t.Errorf("cancel after start: %v, %v", err, s.State())
	}
	if err := s.Cancel(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel twice: err = %v", err)
	}
}

func TestSessionRejectedDropEndsCancelled(t *testing.T) {
	s := NewSession(snapshot(testutil.B("a", model.StatusTodo, model.TypeTask, "")))
	_ = s.Start("a")
	res, _ := s.Drop("a", Active)
	if res.Err == nil || res.Err.Code != SelfParent {
		t.Fatalf("drop = %+v", res)
	}
	res, _ = s.Confirm(ChangeStatus)
	if res.Outcome != OutcomeRejected || s.State() != Cancelled {
		t.Errorf("confirm on rejection = %v state %v", res.Outcome, s.State())
	}
}

func TestPanes(t *testing.T) {
	if p, ok := PaneByName("ACTIVE"); !ok || p.Target != model.StatusTodo {
		t.Errorf("PaneByName(ACTIVE) = %+v, %v", p, ok)
	}
	if !Active.IsNative(model.StatusInProgress) || Active.IsNative(model.StatusDraft) {
		t.Error("active pane native statuses wrong")
	}
	if _, ok := PaneByName("nope"); ok {
		t.Error("unknown pane should not resolve")
	}
}

func TestValidationErrorMessages(t *testing.T) {
	err := &ValidationError{Code: InvalidHierarchy, DraggedID: "a", TargetID: "b", Detail: "a task cannot contain a epic"}
	if err.Error() == "" || errors.Is(err, ErrCycle) {
		t.Error("unexpected error behaviour")
	}
}
