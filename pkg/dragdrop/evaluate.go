// Package dragdrop validates drag gestures over a tree snapshot and turns them
// into mutation intents.
//
// Everything here is pure: Evaluate and Resolve read a snapshot and return a
// value. Applying an intent against a store, and refreshing afterwards, is up
// to the caller.
package dragdrop

import (
	"fmt"

	"github.com/vanderheijden86/beanwork/pkg/model"
)

// Lookup is the read access drop evaluation needs. *tree.Snapshot implements it.
// ParentID must return the attached parent, "" for roots.
type Lookup interface {
	Bean(id string) (model.Bean, bool)
	ParentID(id string) string
}

// RecordLookup is a Lookup that also knows beans it does not show, such as
// the beans of other panes. The cycle check follows stored parents through
// Record when the chain leaves the shown beans.
type RecordLookup interface {
	Lookup
	Record(id string) (model.Bean, bool)
}

// Intent is a validated mutation. Zero fields mean "unchanged".
type Intent struct {
	ID          string       `json:"id"`
	NewParentID string       `json:"new_parent_id,omitempty"`
	ClearParent bool         `json:"clear_parent,omitempty"`
	NewStatus   model.Status `json:"new_status,omitempty"`
}

// Patch converts the intent into a store patch.
func (i Intent) Patch() model.Patch {
	var p model.Patch
	if i.NewStatus != "" {
		status := i.NewStatus
		p.Status = &status
	}
	if i.NewParentID != "" {
		parent := i.NewParentID
		p.ParentID = &parent
	}
	p.ClearParent = i.ClearParent
	return p
}

func (i Intent) String() string {
	switch {
	case i.NewStatus != "" && i.NewParentID != "":
		return fmt.Sprintf("move %s under %s as %s", i.ID, i.NewParentID, i.NewStatus)
	case i.NewStatus != "":
		return fmt.Sprintf("mark %s %s", i.ID, i.NewStatus)
	case i.NewParentID != "":
		return fmt.Sprintf("move %s under %s", i.ID, i.NewParentID)
	case i.ClearParent:
		return fmt.Sprintf("move %s to top level", i.ID)
	default:
		return fmt.Sprintf("leave %s unchanged", i.ID)
	}
}

// Choice is a user answer to a confirmation prompt.
type Choice int

const (
	ChangeStatus Choice = iota
	ChangeStatusAndReparent
	Cancel
)

func (c Choice) String() string {
	switch c {
	case ChangeStatus:
		return "change status"
	case ChangeStatusAndReparent:
		return "change status and move under target"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("choice(%d)", int(c))
	}
}

// Outcome is the kind of Result.
type Outcome int

const (
	// OutcomeIntent carries an Intent ready to apply.
	OutcomeIntent Outcome = iota
	// OutcomeRejected carries a ValidationError.
	OutcomeRejected
	// OutcomeNeedsConfirmation carries a prompt the user must answer.
	OutcomeNeedsConfirmation
	// OutcomeNoChange means the drop is valid but changes nothing.
	OutcomeNoChange
	// OutcomeCancelled means the user declined.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIntent:
		return "intent"
	case OutcomeRejected:
		return "rejected"
	case OutcomeNeedsConfirmation:
		return "needs-confirmation"
	case OutcomeNoChange:
		return "no-change"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// NeedsConfirmation is a cross-pane drop waiting for the user.
type NeedsConfirmation struct {
	DraggedID string
	TargetID  string // empty for a background drop
	Pane      Pane
	Choices   []Choice
	// Pending is the status-only intent ChangeStatus would produce.
	Pending Intent

	snap Lookup
}

// Result is what Evaluate and Resolve return. Exactly one of Intent, Err and
// Confirm is set for the matching Outcome; NoChange and Cancelled carry none.
type Result struct {
	Outcome Outcome
	Intent  *Intent
	Err     *ValidationError
	Confirm *NeedsConfirmation
}

func intentResult(i Intent) Result { return Result{Outcome: OutcomeIntent, Intent: &i} }

func rejected(code Code, draggedID, targetID, detail string) Result {
	return Result{Outcome: OutcomeRejected, Err: &ValidationError{Code: code, DraggedID: draggedID, TargetID: targetID, Detail: detail}}
}

// Error returns the validation error as an error, or nil.
func (r Result) Error() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// Evaluate classifies dropping draggedID onto targetID (empty for the pane
// background) in pane.
//
// A drop is intra-pane when the dragged bean's status is native to pane; it
// then means "re-parent", validated for self-parenting, the type hierarchy and
// cycles. Any other drop changes status and always needs confirmation.
func Evaluate(snap Lookup, draggedID, targetID string, pane Pane) Result {
	dragged, ok := snap.Bean(draggedID)
	if !ok {
		return rejected(UnknownBean, draggedID, targetID, draggedID)
	}

	if !pane.IsNative(dragged.Status) {
		confirm := &NeedsConfirmation{
			DraggedID: draggedID,
			TargetID:  targetID,
			Pane:      pane,
			Pending:   Intent{ID: draggedID, NewStatus: pane.Target},
			snap:      snap,
		}
		if targetID == "" {
			confirm.Choices = []Choice{ChangeStatus, Cancel}
		} else {
			if _, ok := snap.Bean(targetID); !ok {
				return rejected(UnknownBean, draggedID, targetID, targetID)
			}
			confirm.Choices = []Choice{ChangeStatus, ChangeStatusAndReparent, Cancel}
		}
		return Result{Outcome: OutcomeNeedsConfirmation, Confirm: confirm}
	}

	if targetID == "" {
		if snap.ParentID(draggedID) == "" && !dragged.HasParent() {
			return Result{Outcome: OutcomeNoChange}
		}
		return intentResult(Intent{ID: draggedID, ClearParent: true})
	}

	if res, ok := validateReparent(snap, dragged, targetID); !ok {
		return res
	}
	if snap.ParentID(draggedID) == targetID {
		return Result{Outcome: OutcomeNoChange}
	}
	return intentResult(Intent{ID: draggedID, NewParentID: targetID})
}

// validateReparent runs the self, hierarchy and cycle checks for putting
// dragged under targetID. ok is false when res holds a rejection.
func validateReparent(snap Lookup, dragged model.Bean, targetID string) (res Result, ok bool) {
	if targetID == dragged.ID {
		return rejected(SelfParent, dragged.ID, targetID, ""), false
	}
	target, found := snap.Bean(targetID)
	if !found {
		return rejected(UnknownBean, dragged.ID, targetID, targetID), false
	}
	if !model.CanParent(target.Type, dragged.Type) {
		detail := fmt.Sprintf("a %s cannot contain a %s", target.Type, dragged.Type)
		return rejected(InvalidHierarchy, dragged.ID, targetID, detail), false
	}
	if isAncestor(snap, dragged.ID, targetID) {
		return rejected(CycleDetected, dragged.ID, targetID, ""), false
	}
	return Result{}, true
}

// isAncestor walks up from id and reports whether ancestorID is on the way.
// The walk is bounded so a malformed Lookup cannot loop forever.
func isAncestor(snap Lookup, ancestorID, id string) bool {
	const maxDepth = 1 << 16
	cur := parentOf(snap, id)
	for steps := 0; cur != "" && steps < maxDepth; steps++ {
		if cur == ancestorID {
			return true
		}
		cur = parentOf(snap, cur)
	}
	return false
}

// parentOf returns the attached parent of id, or the stored ParentID when the
// lookup shows id as a root. A snapshot detaches beans whose parent it does
// not hold, but the store still links them.
func parentOf(snap Lookup, id string) string {
	if p := snap.ParentID(id); p != "" {
		return p
	}
	if b, ok := snap.Bean(id); ok {
		return b.ParentID
	}
	if r, ok := snap.(RecordLookup); ok {
		if b, ok := r.Record(id); ok {
			return b.ParentID
		}
	}
	return ""
}

// Resolve applies the user's choice to a NeedsConfirmation result. Other
// results are returned unchanged. ChangeStatusAndReparent re-runs the
// re-parent validation against the snapshot the drop was evaluated on; a
// choice that was not offered is treated as Cancel.
func Resolve(res Result, choice Choice) Result {
	if res.Outcome != OutcomeNeedsConfirmation || res.Confirm == nil {
		return res
	}
	c := res.Confirm
	if !offered(c.Choices, choice) {
		choice = Cancel
	}

	switch choice {
	case ChangeStatus:
		return intentResult(c.Pending)
	case ChangeStatusAndReparent:
		dragged, ok := c.snap.Bean(c.DraggedID)
		if !ok {
			return rejected(UnknownBean, c.DraggedID, c.TargetID, c.DraggedID)
		}
		if r, ok := validateReparent(c.snap, dragged, c.TargetID); !ok {
			return r
		}
		intent := c.Pending
		intent.NewParentID = c.TargetID
		return intentResult(intent)
	default:
		return Result{Outcome: OutcomeCancelled}
	}
}

func offered(choices []Choice, c Choice) bool {
	for _, o := range choices {
		if o == c {
			return true
		}
	}
	return false
}
