package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/store/memstore"
	"github.com/vanderheijden86/beanwork/pkg/testutil"
	"github.com/vanderheijden86/beanwork/pkg/view"
)

func newStore() *memstore.Store {
	e1 := testutil.B("beans-e1", model.StatusTodo, model.TypeEpic, "")
	e1.Title = "Auth epic"
	t1 := testutil.B("beans-t1", model.StatusInProgress, model.TypeTask, "beans-e1")
	t1.Title = "Fix auth bug"
	t2 := testutil.B("beans-t2", model.StatusTodo, model.TypeTask, "beans-e1")
	t2.Body = "mentions auth once"
	return memstore.New([]model.Bean{
		e1, t1, t2,
		testutil.B("beans-d1", model.StatusDraft, model.TypeTask, ""),
	})
}

func quiet() view.Option {
	return view.WithLogger(log.New(&bytes.Buffer{}, "", 0))
}

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	var out T
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decoding %q: %v", resultText(r), err)
	}
	return out
}

type treeResult struct {
	Pane  string     `json:"pane"`
	Count int        `json:"count"`
	Nodes []nodeJSON `json:"nodes"`
}

func TestTreeTool(t *testing.T) {
	tool := NewTreeTool(newStore(), quiet())
	if def := tool.Definition(); def.Name != "beans_tree" || len(def.InputSchema.Properties) != 3 {
		t.Errorf("definition = %+v", def)
	}

	res, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	got := decode[treeResult](t, res)
	if got.Pane != "active" || got.Count != 3 {
		t.Fatalf("result = %+v", got)
	}
	root := got.Nodes[0]
	if root.ID != "beans-e1" || !root.InProgressHint || root.CollapsibleState != "collapsed" {
		t.Errorf("root = %+v", root)
	}
	if got.Nodes[1].ID != "beans-t1" || got.Nodes[1].ParentID != "beans-e1" || got.Nodes[1].Depth != 1 {
		t.Errorf("first child = %+v", got.Nodes[1])
	}

	res, _ = tool.Handle(context.Background(), makeReq(map[string]any{"pane": "drafts"}))
	if got := decode[treeResult](t, res); got.Count != 1 || got.Nodes[0].ID != "beans-d1" {
		t.Errorf("drafts = %+v", got)
	}

	res, _ = tool.Handle(context.Background(), makeReq(map[string]any{"type": "epic"}))
	if got := decode[treeResult](t, res); got.Count != 1 {
		t.Errorf("type filter = %+v", got)
	}
}

func TestTreeToolRejectsBadArguments(t *testing.T) {
	tool := NewTreeTool(newStore(), quiet())
	for _, args := range []map[string]any{
		{"pane": "nowhere"},
		{"sort": "random"},
		{"type": "epic,chore"},
	} {
		res, err := tool.Handle(context.Background(), makeReq(args))
		if err != nil || !res.IsError {
			t.Errorf("args %v: res=%+v err=%v", args, res, err)
		}
	}
}

func TestTreeToolReportsStoreFailure(t *testing.T) {
	st := newStore()
	st.FailLists(errors.New("disk gone"))
	res, _ := NewTreeTool(st, quiet()).Handle(context.Background(), makeReq(nil))
	if !res.IsError || !strings.Contains(resultText(res), "failed to load beans") {
		t.Errorf("result = %q", resultText(res))
	}
}

func TestSearchTool(t *testing.T) {
	tool := NewSearchTool(newStore(), quiet())
	ctx := context.Background()

	res, _ := tool.Handle(ctx, makeReq(map[string]any{"query": "auth"}))
	got := decode[struct {
		Results []nodeJSON `json:"results"`
	}](t, res)
	if len(got.Results) != 3 {
		t.Fatalf("results = %+v", got.Results)
	}
	for i := 1; i < len(got.Results); i++ {
		if got.Results[i].Score > got.Results[i-1].Score {
			t.Errorf("results not ranked: %+v", got.Results)
		}
	}
	if last := got.Results[2]; last.ID != "beans-t2" {
		t.Errorf("body-only match should rank last, got %s", last.ID)
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]any{"query": "auth", "limit": float64(1)}))
	if got := decode[struct {
		Results []nodeJSON `json:"results"`
	}](t, res); len(got.Results) != 1 {
		t.Errorf("limit ignored: %d results", len(got.Results))
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]any{"query": "zzz"}))
	if res.IsError || !strings.Contains(resultText(res), "No beans") {
		t.Errorf("no match = %q", resultText(res))
	}
	res, _ = tool.Handle(ctx, makeReq(map[string]any{"query": "  "}))
	if !res.IsError {
		t.Error("blank query accepted")
	}
}

func TestEvaluateDropTool(t *testing.T) {
	tool := NewEvaluateDropTool(newStore(), quiet())
	ctx := context.Background()
	tests := []struct {
		name    string
		args    map[string]any
		outcome string
		check   func(t *testing.T, d dropJSON)
	}{
		{
			name:    "invalid hierarchy",
			args:    map[string]any{"bean": "beans-e1", "target": "beans-t1", "pane": "active"},
			outcome: "rejected",
			check: func(t *testing.T, d dropJSON) {
				if d.Code != "InvalidHierarchy" && !strings.Contains(d.Error, "cannot contain") {
					t.Errorf("drop = %+v", d)
				}
			},
		},
		{
			name:    "to top level",
			args:    map[string]any{"bean": "beans-t2", "pane": "active"},
			outcome: "intent",
			check: func(t *testing.T, d dropJSON) {
				if d.Intent == nil || !d.Intent.ClearParent {
					t.Errorf("drop = %+v", d)
				}
			},
		},
		{
			name:    "cross pane asks",
			args:    map[string]any{"bean": "beans-d1", "target": "beans-e1", "pane": "active"},
			outcome: "needs-confirmation",
			check: func(t *testing.T, d dropJSON) {
				if len(d.Choices) != 3 || d.Choices[1] != "change_status_and_reparent" {
					t.Errorf("choices = %v", d.Choices)
				}
			},
		},
		{
			name:    "cross pane resolved",
			args:    map[string]any{"bean": "beans-d1", "target": "beans-e1", "pane": "active", "choice": "change_status_and_reparent"},
			outcome: "intent",
			check: func(t *testing.T, d dropJSON) {
				if d.Intent.NewStatus != model.StatusTodo || d.Intent.NewParentID != "beans-e1" {
					t.Errorf("intent = %+v", d.Intent)
				}
			},
		},
		{
			name:    "cancelled",
			args:    map[string]any{"bean": "beans-d1", "pane": "active", "choice": "cancel"},
			outcome: "cancelled",
		},
		{
			name:    "unknown bean",
			args:    map[string]any{"bean": "beans-zz", "pane": "active"},
			outcome: "rejected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tool.Handle(ctx, makeReq(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			d := decode[dropJSON](t, res)
			if d.Outcome != tt.outcome {
				t.Fatalf("outcome = %s, want %s (%+v)", d.Outcome, tt.outcome, d)
			}
			if tt.check != nil {
				tt.check(t, d)
			}
		})
	}
}

func TestEvaluateDropToolArguments(t *testing.T) {
	tool := NewEvaluateDropTool(newStore(), quiet())
	for _, args := range []map[string]any{
		{"pane": "active"},
		{"bean": "beans-t1"},
		{"bean": "beans-t1", "pane": "active", "choice": "maybe"},
	} {
		res, _ := tool.Handle(context.Background(), makeReq(args))
		if !res.IsError {
			t.Errorf("args %v accepted", args)
		}
	}
}

func TestNewBuildsServer(t *testing.T) {
	if s := New(newStore(), quiet()); s == nil {
		t.Fatal("nil server")
	}
}
