package tree

import "github.com/vanderheijden86/beanwork/pkg/model"

// CollapsibleState tells the renderer whether a node can be expanded.
type CollapsibleState int

const (
	// None marks a leaf.
	None CollapsibleState = iota
	// Collapsed marks a node with children, shown folded by default.
	Collapsed
	// Expanded marks a node with children that the renderer unfolded.
	Expanded
)

func (s CollapsibleState) String() string {
	switch s {
	case Collapsed:
		return "collapsed"
	case Expanded:
		return "expanded"
	default:
		return "none"
	}
}

// TreeNode is one bean plus the fields computed during a build. Nodes are
// values; the Bean inside must be treated as read-only.
type TreeNode struct {
	Bean model.Bean

	HasChildren bool
	// HasInProgressDescendant is true iff some proper descendant is in-progress.
	HasInProgressDescendant bool
	// Depth is 0 for roots.
	Depth int
	// Score is the relevance score, 0 when no query is active.
	Score int
}

// ID is shorthand for n.Bean.ID.
func (n TreeNode) ID() string { return n.Bean.ID }

// CollapsibleState is Collapsed for nodes with children and None otherwise.
func (n TreeNode) CollapsibleState() CollapsibleState {
	if n.HasChildren {
		return Collapsed
	}
	return None
}

// InProgressHint reports whether the renderer should flag that work is
// happening below a node that is not itself in progress.
func (n TreeNode) InProgressHint() bool {
	return n.HasInProgressDescendant && n.Bean.Status != model.StatusInProgress
}
