package model

import (
	"testing"
)

func TestCanParent(t *testing.T) {
	tests := []struct {
		parent, child Type
		want          bool
	}{
		{TypeMilestone, TypeEpic, true},
		{TypeMilestone, TypeTask, false},
		{TypeEpic, TypeFeature, true},
		{TypeEpic, TypeBug, true},
		{TypeEpic, TypeTask, true},
		{TypeEpic, TypeEpic, false},
		{TypeFeature, TypeTask, true},
		{TypeFeature, TypeBug, false},
		{TypeTask, TypeEpic, false},
		{TypeBug, TypeTask, false},
		{Type("story"), TypeTask, false},
	}
	for _, tt := range tests {
		if got := CanParent(tt.parent, tt.child); got != tt.want {
			t.Errorf("CanParent(%s, %s) = %v, want %v", tt.parent, tt.child, got, tt.want)
		}
	}
}

func TestRanks(t *testing.T) {
	for i, s := range Statuses {
		if s.Rank() != i {
			t.Errorf("status %s rank = %d, want %d", s, s.Rank(), i)
		}
	}
	for i, p := range Priorities {
		if p.Rank() != i {
			t.Errorf("priority %s rank = %d, want %d", p, p.Rank(), i)
		}
	}
	for i, ty := range Types {
		if ty.Rank() != i {
			t.Errorf("type %s rank = %d, want %d", ty, ty.Rank(), i)
		}
	}
	if Priority("").Rank() != PriorityNormal.Rank() {
		t.Error("unset priority should rank as normal")
	}
	if Status("weird").Rank() <= StatusScrapped.Rank() {
		t.Error("unknown status should rank after all known statuses")
	}
}

func TestBeanCode(t *testing.T) {
	tests := map[string]string{
		"beans-x1y2": "x1y2",
		"my-proj-ab": "ab",
		"plain":      "plain",
		"trailing-":  "trailing-",
	}
	for id, want := range tests {
		b := Bean{ID: id}
		if got := b.Code(); got != want {
			t.Errorf("Code(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestPatchApply(t *testing.T) {
	orig := Bean{
		ID:           "b1",
		Status:       StatusTodo,
		ParentID:     "p1",
		BlockingIDs:  []string{"x"},
		BlockedByIDs: []string{"y", "z"},
	}
	done := StatusCompleted
	parent := "p2"
	p := Patch{
		Status:          &done,
		ParentID:        &parent,
		AddBlocking:     []string{"x", "w"},
		RemoveBlockedBy: []string{"y"},
	}

	got := p.Apply(orig)
	if got.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.ParentID != "p2" {
		t.Errorf("parent = %q, want p2", got.ParentID)
	}
	if len(got.BlockingIDs) != 2 || got.BlockingIDs[1] != "w" {
		t.Errorf("blocking = %v, want [x w]", got.BlockingIDs)
	}
	if len(got.BlockedByIDs) != 1 || got.BlockedByIDs[0] != "z" {
		t.Errorf("blocked by = %v, want [z]", got.BlockedByIDs)
	}
	if orig.Status != StatusTodo || len(orig.BlockedByIDs) != 2 || len(orig.BlockingIDs) != 1 {
		t.Error("Apply must not modify the original bean")
	}

	cleared := Patch{ParentID: &parent, ClearParent: true}.Apply(orig)
	if cleared.ParentID != "" {
		t.Errorf("ClearParent should win, got parent %q", cleared.ParentID)
	}
}

func TestPatchIsEmpty(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if (Patch{ClearParent: true}).IsEmpty() {
		t.Error("ClearParent patch should not be empty")
	}
	if (Patch{AddBlockedBy: []string{"a"}}).IsEmpty() {
		t.Error("blocked-by patch should not be empty")
	}
}
