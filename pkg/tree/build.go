// Package tree turns a flat, unordered list of beans into an immutable,
// cycle free forest with per-node descendant flags.
//
// Nodes live in an arena slice and reference each other by index, so a
// snapshot never holds pointer cycles and can be shared freely between
// goroutines once built.
package tree

import (
	"sort"

	"github.com/vanderheijden86/beanwork/pkg/debug"
	"github.com/vanderheijden86/beanwork/pkg/metrics"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/ordering"
)

const noParent = -1

type buildOptions struct {
	less   ordering.Less
	scores map[string]int
}

// Option configures Build.
type Option func(*buildOptions)

// WithComparator sorts every sibling group, roots included, by less.
// Without it siblings keep input order.
func WithComparator(less ordering.Less) Option {
	return func(o *buildOptions) { o.less = less }
}

// WithScores stores relevance scores on the nodes. It does not change order;
// combine with ordering.WithScores for that.
func WithScores(scores map[string]int) Option {
	return func(o *buildOptions) { o.scores = scores }
}

// Build indexes beans, attaches each to its parent when that is safe, sorts the
// sibling groups and computes the descendant flags.
//
// A ParentID that is missing, points at the bean itself or would close a cycle
// makes the bean a root. Beans are attached in input order, so in a cycle the
// bean that would close the loop is the one that becomes a root. For duplicate
// IDs the first occurrence wins.
func Build(beans []model.Bean, opts ...Option) *Snapshot {
	defer metrics.Timer(metrics.TreeBuild)()

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Snapshot{
		nodes: make([]TreeNode, 0, len(beans)),
		index: make(map[string]int, len(beans)),
	}
	for _, b := range beans {
		if b.ID == "" {
			debug.Log("tree: skipping bean without id (title %q)", b.Title)
			continue
		}
		if _, dup := s.index[b.ID]; dup {
			debug.Log("tree: duplicate bean id %s, keeping first", b.ID)
			continue
		}
		s.index[b.ID] = len(s.nodes)
		s.nodes = append(s.nodes, TreeNode{Bean: b.Clone(), Score: o.scores[b.ID]})
	}

	n := len(s.nodes)
	s.parent = make([]int, n)
	for i := range s.parent {
		s.parent[i] = noParent
	}
	for i := range s.nodes {
		pid := s.nodes[i].Bean.ParentID
		if pid == "" {
			continue
		}
		p, ok := s.index[pid]
		if !ok || p == i {
			continue
		}
		if s.reaches(p, i, n) {
			debug.Log("tree: parent %s of %s would close a cycle, treating as root", pid, s.nodes[i].Bean.ID)
			continue
		}
		s.parent[i] = p
	}

	s.children = make([][]int, n)
	for i, p := range s.parent {
		if p == noParent {
			s.roots = append(s.roots, i)
		} else {
			s.children[p] = append(s.children[p], i)
		}
	}

	if o.less != nil {
		s.sortGroup(s.roots, o.less)
		for _, group := range s.children {
			s.sortGroup(group, o.less)
		}
	}

	s.computeFlags()
	debug.Log("tree: built %d nodes, %d roots", n, len(s.roots))
	return s
}

// reaches walks the attached parent chain from start and reports whether it
// hits target within bound steps.
func (s *Snapshot) reaches(start, target, bound int) bool {
	cur := start
	for steps := 0; cur != noParent && steps <= bound; steps++ {
		if cur == target {
			return true
		}
		cur = s.parent[cur]
	}
	return false
}

func (s *Snapshot) sortGroup(group []int, less ordering.Less) {
	if len(group) < 2 {
		return
	}
	sort.SliceStable(group, func(a, b int) bool {
		return less(&s.nodes[group[a]].Bean, &s.nodes[group[b]].Bean)
	})
}

// computeFlags sets depth, HasChildren and HasInProgressDescendant in one
// pre-order walk followed by a reverse (post-order) sweep.
func (s *Snapshot) computeFlags() {
	order := make([]int, 0, len(s.nodes))
	stack := make([]int, 0, len(s.roots))
	for i := len(s.roots) - 1; i >= 0; i-- {
		stack = append(stack, s.roots[i])
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, i)
		kids := s.children[i]
		for k := len(kids) - 1; k >= 0; k-- {
			s.nodes[kids[k]].Depth = s.nodes[i].Depth + 1
			stack = append(stack, kids[k])
		}
	}
	s.order = order

	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		node := &s.nodes[i]
		node.HasChildren = len(s.children[i]) > 0
		for _, c := range s.children[i] {
			child := &s.nodes[c]
			if child.Bean.Status == model.StatusInProgress || child.HasInProgressDescendant {
				node.HasInProgressDescendant = true
				break
			}
		}
	}
}
