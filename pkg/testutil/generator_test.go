package testutil

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/beanwork/pkg/model"
)

func TestHierarchyShape(t *testing.T) {
	beans := QuickHierarchy(2, 2, 3)
	// 2 milestones, 4 epics, 8 features
	if len(beans) != 14 {
		t.Fatalf("expected 14 beans, got %d", len(beans))
	}
	AssertNoDuplicateIDs(t, beans)

	counts := map[model.Type]int{}
	for _, b := range beans {
		counts[b.Type]++
		if b.ParentID == "" {
			continue
		}
		parent := FindBean(beans, b.ParentID)
		if parent == nil {
			t.Fatalf("%s has unknown parent %s", b.ID, b.ParentID)
		}
		if !model.CanParent(parent.Type, b.Type) {
			t.Errorf("%s (%s) under %s (%s) is not a valid hierarchy", b.ID, b.Type, parent.ID, parent.Type)
		}
	}
	if counts[model.TypeMilestone] != 2 || counts[model.TypeEpic] != 4 || counts[model.TypeFeature] != 8 {
		t.Errorf("unexpected type counts %v", counts)
	}
}

func TestParentCycle(t *testing.T) {
	beans := NewDefault().ParentCycle(3)
	for i, b := range beans {
		if want := beans[(i+1)%3].ID; b.ParentID != want {
			t.Errorf("%s parent = %s, want %s", b.ID, b.ParentID, want)
		}
	}
}

func TestDeterminism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeTags = true
	cfg.StatusMix = model.Statuses

	a := New(cfg).Hierarchy(3, 2, 2)
	b := New(cfg).Hierarchy(3, 2, 2)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should produce identical fixtures")
	}
}
