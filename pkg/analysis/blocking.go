// Package analysis derives blocking information from the blocking/blocked-by
// references of a bean set: which beans are blocked by open work and which
// blocking relationships form cycles.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/store"
)

// Graph is the directed "blocks" graph: an edge u → v means u blocks v.
// References to beans outside the set are kept aside as external blockers.
type Graph struct {
	g        *simple.DirectedGraph
	idToNode map[string]int64
	nodeToID map[int64]string
	external map[string][]string // blocked id → blocker ids not in the set
}

// NewGraph builds the blocks graph from beans. Both directions are read:
// a.BlockingIDs containing b and b.BlockedByIDs containing a give the same edge.
func NewGraph(beans []model.Bean) *Graph {
	g := &Graph{
		g:        simple.NewDirectedGraph(),
		idToNode: make(map[string]int64, len(beans)),
		nodeToID: make(map[int64]string, len(beans)),
		external: make(map[string][]string),
	}
	for _, b := range beans {
		if _, dup := g.idToNode[b.ID]; dup || b.ID == "" {
			continue
		}
		n := g.g.NewNode()
		g.g.AddNode(n)
		g.idToNode[b.ID] = n.ID()
		g.nodeToID[n.ID()] = b.ID
	}

	for _, b := range beans {
		for _, blocked := range b.BlockingIDs {
			g.link(b.ID, blocked)
		}
		for _, blocker := range b.BlockedByIDs {
			g.link(blocker, b.ID)
		}
	}
	return g
}

func (g *Graph) link(blocker, blocked string) {
	v, ok := g.idToNode[blocked]
	if !ok {
		return
	}
	u, ok := g.idToNode[blocker]
	if !ok {
		if blocker != "" {
			g.external[blocked] = appendUnique(g.external[blocked], blocker)
		}
		return
	}
	if u == v {
		// simple graphs reject self edges; track them with the external refs
		g.external[blocked] = appendUnique(g.external[blocked], blocked)
		return
	}
	g.g.SetEdge(g.g.NewEdge(g.g.Node(u), g.g.Node(v)))
}

// Blockers returns the ids blocking id: in-set blockers first, sorted, then
// external ones in reference order.
func (g *Graph) Blockers(id string) []string {
	n, ok := g.idToNode[id]
	if !ok {
		return nil
	}
	var out []string
	to := g.g.To(n)
	for to.Next() {
		out = append(out, g.nodeToID[to.Node().ID()])
	}
	sort.Strings(out)
	return append(out, g.external[id]...)
}

// External returns the blocker ids that are referenced but not in the set.
func (g *Graph) External() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ids := range g.external {
		for _, id := range ids {
			if _, inSet := g.idToNode[id]; inSet || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Cycles returns every group of beans that block each other in a loop, each
// sorted, the groups in lexical order. Self-blocking beans form a group of one.
func (g *Graph) Cycles() [][]string {
	var cycles [][]string
	for _, scc := range topo.TarjanSCC(g.g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, len(scc))
		for i, n := range scc {
			ids[i] = g.nodeToID[n.ID()]
		}
		sort.Strings(ids)
		cycles = append(cycles, ids)
	}
	for blocked, blockers := range g.external {
		if contains(blockers, blocked) {
			cycles = append(cycles, []string{blocked})
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], "\x00") < strings.Join(cycles[j], "\x00")
	})
	return cycles
}

// BlockingCycles is NewGraph(beans).Cycles().
func BlockingCycles(beans []model.Bean) [][]string {
	return NewGraph(beans).Cycles()
}

// CycleWarnings renders one human-readable line per blocking cycle.
func CycleWarnings(beans []model.Bean) []string {
	cycles := BlockingCycles(beans)
	out := make([]string, 0, len(cycles))
	for _, c := range cycles {
		if len(c) == 1 {
			out = append(out, fmt.Sprintf("%s blocks itself", c[0]))
			continue
		}
		out = append(out, fmt.Sprintf("blocking cycle: %s → %s", strings.Join(c, " → "), c[0]))
	}
	return out
}

// Shower resolves single beans. store.BeanStore satisfies it.
type Shower interface {
	Show(ctx context.Context, id string) (model.Bean, error)
}

// maxLookups bounds concurrent Show calls for blockers outside the set.
const maxLookups = 8

// MarkBlocked returns copies of beans with Blocked set when any blocker is
// still open. Blockers outside the set are fetched through s; a nil s treats
// them as open. A blocker the store no longer has does not block. Any other
// failed lookup fails the whole call and the input is left untouched.
func MarkBlocked(ctx context.Context, s Shower, beans []model.Bean) ([]model.Bean, error) {
	g := NewGraph(beans)

	status := make(map[string]model.Status, len(beans))
	for _, b := range beans {
		if _, ok := status[b.ID]; !ok {
			status[b.ID] = b.Status
		}
	}

	gone := make(map[string]bool)
	if external := g.External(); len(external) > 0 && s != nil {
		fetched := make([]model.Status, len(external))
		missing := make([]bool, len(external))
		eg, ctx := errgroup.WithContext(ctx)
		eg.SetLimit(maxLookups)
		for i, id := range external {
			eg.Go(func() error {
				b, err := s.Show(ctx, id)
				if errors.Is(err, store.ErrNotFound) {
					missing[i] = true
					return nil
				}
				if err != nil {
					return fmt.Errorf("resolve blocker %s: %w", id, err)
				}
				fetched[i] = b.Status
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		for i, id := range external {
			if missing[i] {
				gone[id] = true
				continue
			}
			status[id] = fetched[i]
		}
	}

	out := make([]model.Bean, len(beans))
	for i, b := range beans {
		out[i] = b.Clone()
		out[i].Blocked = false
		for _, blocker := range g.Blockers(b.ID) {
			if gone[blocker] {
				continue
			}
			st, known := status[blocker]
			if !known || !st.IsClosed() {
				out[i].Blocked = true
				break
			}
		}
	}
	return out, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func appendUnique(ids []string, id string) []string {
	if contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
