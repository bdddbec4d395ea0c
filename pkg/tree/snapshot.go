package tree

import "github.com/vanderheijden86/beanwork/pkg/model"

// Snapshot is the immutable result of one Build. All methods are read-only and
// safe for concurrent use.
type Snapshot struct {
	nodes    []TreeNode
	index    map[string]int
	parent   []int
	children [][]int
	roots    []int
	order    []int // pre-order over the sorted forest
}

// Empty returns a snapshot with no nodes.
func Empty() *Snapshot {
	return Build(nil)
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.nodes)
}

// Roots returns the sorted root nodes.
func (s *Snapshot) Roots() []TreeNode {
	if s == nil {
		return nil
	}
	return s.collect(s.roots)
}

// Children returns the sorted children of id. An empty id returns the roots.
// Unknown ids have no children.
func (s *Snapshot) Children(id string) []TreeNode {
	if id == "" {
		return s.Roots()
	}
	i, ok := s.lookup(id)
	if !ok {
		return nil
	}
	return s.collect(s.children[i])
}

// Node returns the node for id.
func (s *Snapshot) Node(id string) (TreeNode, bool) {
	i, ok := s.lookup(id)
	if !ok {
		return TreeNode{}, false
	}
	return s.nodes[i], true
}

// Bean returns the bean for id.
func (s *Snapshot) Bean(id string) (model.Bean, bool) {
	n, ok := s.Node(id)
	return n.Bean, ok
}

// Parent returns the attached parent of id. Roots and unknown ids have none.
// A bean whose ParentID was rejected during the build is a root here.
func (s *Snapshot) Parent(id string) (TreeNode, bool) {
	i, ok := s.lookup(id)
	if !ok || s.parent[i] == noParent {
		return TreeNode{}, false
	}
	return s.nodes[s.parent[i]], true
}

// ParentID returns the attached parent id of id, or "" for roots.
func (s *Snapshot) ParentID(id string) string {
	p, ok := s.Parent(id)
	if !ok {
		return ""
	}
	return p.Bean.ID
}

// IsDescendant reports whether id sits strictly below ancestorID.
func (s *Snapshot) IsDescendant(id, ancestorID string) bool {
	i, ok := s.lookup(id)
	if !ok {
		return false
	}
	a, ok := s.lookup(ancestorID)
	if !ok {
		return false
	}
	for cur := s.parent[i]; cur != noParent; cur = s.parent[cur] {
		if cur == a {
			return true
		}
	}
	return false
}

// Ancestors returns the chain from the direct parent of id up to its root.
func (s *Snapshot) Ancestors(id string) []TreeNode {
	i, ok := s.lookup(id)
	if !ok {
		return nil
	}
	var out []TreeNode
	for cur := s.parent[i]; cur != noParent; cur = s.parent[cur] {
		out = append(out, s.nodes[cur])
	}
	return out
}

// All returns every node in pre-order over the sorted forest.
func (s *Snapshot) All() []TreeNode {
	if s == nil {
		return nil
	}
	return s.collect(s.order)
}

// Walk visits nodes in pre-order. Returning false from fn skips the node's
// subtree.
func (s *Snapshot) Walk(fn func(TreeNode) bool) {
	if s == nil {
		return
	}
	stack := make([]int, 0, len(s.roots))
	for i := len(s.roots) - 1; i >= 0; i-- {
		stack = append(stack, s.roots[i])
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(s.nodes[i]) {
			continue
		}
		kids := s.children[i]
		for k := len(kids) - 1; k >= 0; k-- {
			stack = append(stack, kids[k])
		}
	}
}

// Visible returns the nodes a renderer shows, in order, when only the ids for
// which expanded returns true are unfolded. A nil expanded unfolds everything.
func (s *Snapshot) Visible(expanded func(id string) bool) []TreeNode {
	var out []TreeNode
	s.Walk(func(n TreeNode) bool {
		out = append(out, n)
		return expanded == nil || expanded(n.Bean.ID)
	})
	return out
}

// IsLastChild reports whether id is the last entry of its sibling group.
func (s *Snapshot) IsLastChild(id string) bool {
	i, ok := s.lookup(id)
	if !ok {
		return false
	}
	group := s.roots
	if p := s.parent[i]; p != noParent {
		group = s.children[p]
	}
	return len(group) > 0 && group[len(group)-1] == i
}

func (s *Snapshot) lookup(id string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.index[id]
	return i, ok
}

func (s *Snapshot) collect(idx []int) []TreeNode {
	if len(idx) == 0 {
		return nil
	}
	out := make([]TreeNode, len(idx))
	for k, i := range idx {
		out[k] = s.nodes[i]
	}
	return out
}
