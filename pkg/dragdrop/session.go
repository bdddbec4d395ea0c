package dragdrop

import "fmt"

// State is a step in the drag gesture.
type State int

const (
	Idle State = iota
	DragStarted
	DropEvaluated
	Confirmed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DragStarted:
		return "drag-started"
	case DropEvaluated:
		return "drop-evaluated"
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session tracks one gesture:
//
//	Idle → DragStarted → DropEvaluated → Confirmed | Cancelled → Idle
//
// It is not safe for concurrent use; a UI owns one session per pointer.
type Session struct {
	snap    Lookup
	state   State
	dragged string
	result  Result
}

// NewSession starts an idle session over snap.
func NewSession(snap Lookup) *Session {
	return &Session{snap: snap}
}

// State returns the current step.
func (s *Session) State() State { return s.state }

// DraggedID returns the bean being dragged, or "" when idle.
func (s *Session) DraggedID() string { return s.dragged }

// Result returns the latest evaluation or resolution.
func (s *Session) Result() Result { return s.result }

// SetSnapshot swaps the snapshot used for later evaluations, for example after
// a refresh landed mid-gesture.
func (s *Session) SetSnapshot(snap Lookup) { s.snap = snap }

// Start begins dragging id.
func (s *Session) Start(id string) error {
	if s.state != Idle {
		return fmt.Errorf("start from %s: %w", s.state, ErrInvalidTransition)
	}
	s.dragged = id
	s.result = Result{}
	s.state = DragStarted
	return nil
}

// Drop evaluates dropping the dragged bean onto targetID in pane.
func (s *Session) Drop(targetID string, pane Pane) (Result, error) {
	if s.state != DragStarted {
		return Result{}, fmt.Errorf("drop from %s: %w", s.state, ErrInvalidTransition)
	}
	s.result = Evaluate(s.snap, s.dragged, targetID, pane)
	s.state = DropEvaluated
	return s.result, nil
}

// Confirm finishes an evaluated drop. For drops that need confirmation the
// choice is resolved; otherwise the evaluated result stands, unless choice is
// Cancel. The session ends Confirmed, or Cancelled when nothing is applied.
func (s *Session) Confirm(choice Choice) (Result, error) {
	if s.state != DropEvaluated {
		return Result{}, fmt.Errorf("confirm from %s: %w", s.state, ErrInvalidTransition)
	}
	res := s.result
	switch {
	case res.Outcome == OutcomeNeedsConfirmation:
		res = Resolve(res, choice)
	case choice == Cancel:
		res = Result{Outcome: OutcomeCancelled}
	}
	s.result = res
	if res.Outcome == OutcomeIntent {
		s.state = Confirmed
	} else {
		s.state = Cancelled
	}
	return res, nil
}

// Cancel abandons the gesture after it started.
func (s *Session) Cancel() error {
	if s.state != DragStarted && s.state != DropEvaluated {
		return fmt.Errorf("cancel from %s: %w", s.state, ErrInvalidTransition)
	}
	s.result = Result{Outcome: OutcomeCancelled}
	s.state = Cancelled
	return nil
}

// Reset returns to Idle from any state.
func (s *Session) Reset() {
	s.state = Idle
	s.dragged = ""
	s.result = Result{}
}
