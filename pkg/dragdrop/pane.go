package dragdrop

import (
	"strings"

	"github.com/vanderheijden86/beanwork/pkg/model"
)

// Pane describes a view as the drop logic sees it: the statuses it natively
// shows and the status a bean takes when it is moved into it.
type Pane struct {
	Name   string
	Native []model.Status
	Target model.Status
}

// Predefined panes.
var (
	Active    = Pane{Name: "active", Native: []model.Status{model.StatusTodo, model.StatusInProgress}, Target: model.StatusTodo}
	Drafts    = Pane{Name: "drafts", Native: []model.Status{model.StatusDraft}, Target: model.StatusDraft}
	Completed = Pane{Name: "completed", Native: []model.Status{model.StatusCompleted}, Target: model.StatusCompleted}
	Scrapped  = Pane{Name: "scrapped", Native: []model.Status{model.StatusScrapped}, Target: model.StatusScrapped}
)

// Panes returns the predefined panes in display order.
func Panes() []Pane {
	return []Pane{Active, Drafts, Completed, Scrapped}
}

// PaneByName looks up a predefined pane, ignoring case.
func PaneByName(name string) (Pane, bool) {
	for _, p := range Panes() {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Pane{}, false
}

// IsNative reports whether status belongs to the pane without a status change.
func (p Pane) IsNative(status model.Status) bool {
	for _, s := range p.Native {
		if s == status {
			return true
		}
	}
	return false
}
