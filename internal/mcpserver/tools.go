package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/filter"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/notify"
	"github.com/vanderheijden86/beanwork/pkg/ordering"
	"github.com/vanderheijden86/beanwork/pkg/store"
	"github.com/vanderheijden86/beanwork/pkg/tree"
	"github.com/vanderheijden86/beanwork/pkg/view"
)

// nodeJSON is the wire form of one tree node.
type nodeJSON struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Status           model.Status   `json:"status"`
	Type             model.Type     `json:"type"`
	Priority         model.Priority `json:"priority"`
	ParentID         string         `json:"parent_id,omitempty"`
	Depth            int            `json:"depth"`
	HasChildren      bool           `json:"has_children"`
	InProgressBelow  bool           `json:"in_progress_below,omitempty"`
	Blocked          bool           `json:"blocked,omitempty"`
	Score            int            `json:"score,omitempty"`
	CollapsibleState string         `json:"collapsible_state"`
	InProgressHint   bool           `json:"in_progress_hint,omitempty"`
}

func toJSON(snap *tree.Snapshot, nodes []tree.TreeNode) []nodeJSON {
	out := make([]nodeJSON, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeJSON{
			ID:               n.ID(),
			Title:            n.Bean.Title,
			Status:           n.Bean.Status,
			Type:             n.Bean.Type,
			Priority:         n.Bean.Priority.Effective(),
			ParentID:         snap.ParentID(n.ID()),
			Depth:            n.Depth,
			HasChildren:      n.HasChildren,
			InProgressBelow:  n.HasInProgressDescendant,
			Blocked:          n.Bean.Blocked,
			Score:            n.Score,
			CollapsibleState: n.CollapsibleState().String(),
			InProgressHint:   n.InProgressHint(),
		})
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func paneArg(req mcp.CallToolRequest, def dragdrop.Pane) (dragdrop.Pane, error) {
	name := req.GetString("pane", "")
	if name == "" {
		return def, nil
	}
	p, ok := dragdrop.PaneByName(name)
	if !ok {
		return dragdrop.Pane{}, fmt.Errorf("unknown pane %q", name)
	}
	return p, nil
}

func paneNames() []string {
	var names []string
	for _, p := range dragdrop.Panes() {
		names = append(names, p.Name)
	}
	return names
}

func modeNames() []string {
	var names []string
	for _, m := range ordering.Modes() {
		names = append(names, string(m))
	}
	return names
}

// base holds what every tool needs. The deduper is shared so a broken store
// is reported once, not on every call.
type base struct {
	store   store.BeanStore
	deduper *notify.Deduper
	opts    []view.Option
}

func newBase(st store.BeanStore, opts []view.Option) base {
	return base{store: st, deduper: notify.NewDeduper(nil), opts: opts}
}

func (b base) view(pane dragdrop.Pane, extra ...view.Option) *view.View {
	opts := append([]view.Option{view.WithDeduper(b.deduper)}, b.opts...)
	return view.New(pane, b.store, append(opts, extra...)...)
}

// TreeTool handles beans_tree.
type TreeTool struct{ base }

// NewTreeTool creates a TreeTool.
func NewTreeTool(st store.BeanStore, opts ...view.Option) *TreeTool {
	return &TreeTool{newBase(st, opts)}
}

// Definition returns the MCP tool definition for beans_tree.
func (t *TreeTool) Definition() mcp.Tool {
	return mcp.NewTool("beans_tree",
		mcp.WithDescription("List the beans of one pane as a tree in display order. "+
			"Each node carries its depth, parent and whether in-progress work sits below it."),
		mcp.WithString("pane",
			mcp.Description("Pane to list (default: active)"),
			mcp.Enum(paneNames()...),
		),
		mcp.WithString("sort",
			mcp.Description("Sort mode (default: "+string(ordering.DefaultMode)+")"),
			mcp.Enum(modeNames()...),
		),
		mcp.WithString("type",
			mcp.Description("Comma separated bean types to keep, e.g. epic,task"),
		),
	)
}

// Handle processes the beans_tree tool call.
func (t *TreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pane, err := paneArg(req, dragdrop.Active)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var extra []view.Option
	if s := req.GetString("sort", ""); s != "" {
		mode, ok := ordering.ParseMode(s)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown sort mode %q", s)), nil
		}
		extra = append(extra, view.WithSortMode(mode))
	}
	if raw := req.GetString("type", ""); raw != "" {
		var types []model.Type
		for _, part := range strings.Split(raw, ",") {
			typ := model.Type(strings.TrimSpace(part))
			if !typ.IsValid() {
				return mcp.NewToolResultError(fmt.Sprintf("unknown bean type %q", part)), nil
			}
			types = append(types, typ)
		}
		extra = append(extra, view.WithFilter(filter.State{Types: types}))
	}

	v := t.view(pane, extra...)
	if err := v.Refresh(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap := v.Snapshot()
	return jsonResult(struct {
		Pane  string     `json:"pane"`
		Sort  string     `json:"sort"`
		Count int        `json:"count"`
		Nodes []nodeJSON `json:"nodes"`
	}{pane.Name, string(v.SortMode()), snap.Len(), toJSON(snap, snap.All())})
}

// SearchTool handles beans_search.
type SearchTool struct{ base }

// NewSearchTool creates a SearchTool.
func NewSearchTool(st store.BeanStore, opts ...view.Option) *SearchTool {
	return &SearchTool{newBase(st, opts)}
}

// Definition returns the MCP tool definition for beans_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("beans_search",
		mcp.WithDescription("Search beans in a pane. Matches on id, title, tags and body; "+
			"results are ranked by relevance, best first."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
		mcp.WithString("pane",
			mcp.Description("Pane to search (default: active)"),
			mcp.Enum(paneNames()...),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}

// Handle processes the beans_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	pane, err := paneArg(req, dragdrop.Active)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 20)

	v := t.view(pane, view.WithFilter(filter.State{Search: query}))
	if err := v.Refresh(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap := v.Snapshot()
	nodes := toJSON(snap, snap.All())
	// Pre-order keeps children under parents; results want pure relevance.
	sortByScore(nodes)
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("No beans match that query."), nil
	}
	return jsonResult(struct {
		Query   string     `json:"query"`
		Pane    string     `json:"pane"`
		Results []nodeJSON `json:"results"`
	}{query, pane.Name, nodes})
}

func sortByScore(nodes []nodeJSON) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Score > nodes[j].Score })
}

// EvaluateDropTool handles beans_evaluate_drop.
type EvaluateDropTool struct{ base }

// NewEvaluateDropTool creates an EvaluateDropTool.
func NewEvaluateDropTool(st store.BeanStore, opts ...view.Option) *EvaluateDropTool {
	return &EvaluateDropTool{newBase(st, opts)}
}

// Definition returns the MCP tool definition for beans_evaluate_drop.
func (t *EvaluateDropTool) Definition() mcp.Tool {
	return mcp.NewTool("beans_evaluate_drop",
		mcp.WithDescription("Check what dropping one bean onto another bean, or onto a pane, would do. "+
			"Returns the change as an intent, a rejection reason, or the choices a user must pick from. Never writes."),
		mcp.WithString("bean",
			mcp.Required(),
			mcp.Description("Id of the bean being moved"),
		),
		mcp.WithString("target",
			mcp.Description("Id of the bean to drop onto; omit to drop onto the pane itself"),
		),
		mcp.WithString("pane",
			mcp.Required(),
			mcp.Description("Pane receiving the drop"),
			mcp.Enum(paneNames()...),
		),
		mcp.WithString("choice",
			mcp.Description("Answer for a drop that needs confirmation"),
			mcp.Enum("change_status", "change_status_and_reparent", "cancel"),
		),
	)
}

type dropJSON struct {
	Outcome string           `json:"outcome"`
	Intent  *dragdrop.Intent `json:"intent,omitempty"`
	Summary string           `json:"summary,omitempty"`
	Error   string           `json:"error,omitempty"`
	Code    dragdrop.Code    `json:"code,omitempty"`
	Choices []string         `json:"choices,omitempty"`
}

var choiceNames = map[string]dragdrop.Choice{
	"change_status":              dragdrop.ChangeStatus,
	"change_status_and_reparent": dragdrop.ChangeStatusAndReparent,
	"cancel":                     dragdrop.Cancel,
}

func choiceName(c dragdrop.Choice) string {
	for name, v := range choiceNames {
		if v == c {
			return name
		}
	}
	return c.String()
}

// Handle processes the beans_evaluate_drop tool call.
func (t *EvaluateDropTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("bean", "")
	if id == "" {
		return mcp.NewToolResultError("'bean' is required"), nil
	}
	if req.GetString("pane", "") == "" {
		return mcp.NewToolResultError("'pane' is required"), nil
	}
	pane, err := paneArg(req, dragdrop.Active)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var choice *dragdrop.Choice
	if raw := req.GetString("choice", ""); raw != "" {
		c, ok := choiceNames[raw]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown choice %q", raw)), nil
		}
		choice = &c
	}

	set := view.NewSet(t.store, dragdrop.Panes(), t.deduper, t.opts...)
	if err := set.RefreshAll(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := dragdrop.Evaluate(set.Lookup(), id, req.GetString("target", ""), pane)
	if choice != nil {
		res = dragdrop.Resolve(res, *choice)
	}
	return jsonResult(describe(res))
}

func describe(res dragdrop.Result) dropJSON {
	out := dropJSON{Outcome: res.Outcome.String()}
	switch res.Outcome {
	case dragdrop.OutcomeIntent:
		out.Intent = res.Intent
		out.Summary = res.Intent.String()
	case dragdrop.OutcomeRejected:
		out.Error = res.Err.Error()
		out.Code = res.Err.Code
	case dragdrop.OutcomeNeedsConfirmation:
		out.Summary = res.Confirm.Pending.String()
		for _, c := range res.Confirm.Choices {
			out.Choices = append(out.Choices, choiceName(c))
		}
	}
	return out
}
