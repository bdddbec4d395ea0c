// Package ordering implements the deterministic comparators used to sort
// sibling groups in a bean tree.
package ordering

import (
	"sort"

	"github.com/vanderheijden86/beanwork/pkg/debug"
	"github.com/vanderheijden86/beanwork/pkg/model"
)

// Mode selects a sort order.
type Mode string

const (
	ModeStatusPriority Mode = "status-priority-type-title" // default
	ModePriorityStatus Mode = "priority-status-type-title"
	ModeUpdated        Mode = "updated"
	ModeCreated        Mode = "created"
	ModeID             Mode = "id"
)

// DefaultMode is the order used when nothing else is configured.
const DefaultMode = ModeStatusPriority

var modes = []Mode{ModeStatusPriority, ModePriorityStatus, ModeUpdated, ModeCreated, ModeID}

// Modes returns the supported modes in cycle order.
func Modes() []Mode {
	return append([]Mode(nil), modes...)
}

// ParseMode returns the mode named s, and whether it is supported.
func ParseMode(s string) (Mode, bool) {
	m := Mode(s)
	return m, m.IsValid()
}

func (m Mode) String() string { return string(m) }

// IsValid reports whether m is a supported mode.
func (m Mode) IsValid() bool {
	for _, known := range modes {
		if m == known {
			return true
		}
	}
	return false
}

// Next returns the mode after m in cycle order. Unknown modes cycle to the default.
func (m Mode) Next() Mode {
	for i, known := range modes {
		if m == known {
			return modes[(i+1)%len(modes)]
		}
	}
	return DefaultMode
}

// Label is a short human name for menus and headers.
func (m Mode) Label() string {
	switch m {
	case ModeStatusPriority:
		return "Status"
	case ModePriorityStatus:
		return "Priority"
	case ModeUpdated:
		return "Updated"
	case ModeCreated:
		return "Created"
	case ModeID:
		return "ID"
	default:
		return string(m)
	}
}

// Less reports whether a sorts before b.
type Less func(a, b *model.Bean) bool

// Comparator returns the total order for mode. ok is false for unknown modes,
// in which case callers keep input order.
func Comparator(mode Mode) (less Less, ok bool) {
	switch mode {
	case ModeStatusPriority:
		return func(a, b *model.Bean) bool {
			if c := compareInts(a.Status.Rank(), b.Status.Rank()); c != 0 {
				return c < 0
			}
			if c := compareInts(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
				return c < 0
			}
			if c := compareInts(a.Type.Rank(), b.Type.Rank()); c != 0 {
				return c < 0
			}
			return tiebreak(a, b)
		}, true
	case ModePriorityStatus:
		return func(a, b *model.Bean) bool {
			if c := compareInts(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
				return c < 0
			}
			if c := compareInts(a.Status.Rank(), b.Status.Rank()); c != 0 {
				return c < 0
			}
			if c := compareInts(a.Type.Rank(), b.Type.Rank()); c != 0 {
				return c < 0
			}
			return tiebreak(a, b)
		}, true
	case ModeUpdated:
		return func(a, b *model.Bean) bool {
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return tiebreak(a, b)
		}, true
	case ModeCreated:
		return func(a, b *model.Bean) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return tiebreak(a, b)
		}, true
	case ModeID:
		return func(a, b *model.Bean) bool {
			if a.ID != b.ID {
				return a.ID < b.ID
			}
			return a.Title < b.Title
		}, true
	default:
		return nil, false
	}
}

// tiebreak orders by title, then id, so every mode is a total order.
func tiebreak(a, b *model.Bean) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID < b.ID
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Sort orders beans in place by mode. Unknown modes leave the slice untouched.
func Sort(beans []model.Bean, mode Mode) {
	less, ok := Comparator(mode)
	if !ok {
		debug.Log("ordering: unknown sort mode %q, keeping input order", mode)
		return
	}
	SortFunc(beans, less)
}

// SortFunc stably sorts beans in place with less. A nil less is a no-op.
func SortFunc(beans []model.Bean, less Less) {
	if less == nil || len(beans) < 2 {
		return
	}
	sort.SliceStable(beans, func(i, j int) bool {
		return less(&beans[i], &beans[j])
	})
}

// WithScores orders by descending score first; equal scores fall back to less,
// or to input order when less is nil. Beans missing from scores count as 0.
func WithScores(scores map[string]int, less Less) Less {
	return func(a, b *model.Bean) bool {
		sa, sb := scores[a.ID], scores[b.ID]
		if sa != sb {
			return sa > sb
		}
		if less == nil {
			return false
		}
		return less(a, b)
	}
}
