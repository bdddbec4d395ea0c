// Package ui draws bean trees for the terminal: a static renderer used by the
// CLI and an interactive bubbletea viewer over a view.Set.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/beanwork/pkg/tree"
)

// Glyphs used in tree rows.
const (
	glyphBranch = "├── "
	glyphLast   = "└── "
	glyphPipe   = "│   "
	glyphSpace  = "    "

	glyphLeaf      = "•"
	glyphCollapsed = "▸"
	glyphExpanded  = "▾"

	glyphInProgress = "◐"
	glyphBlocked    = "⊘"
)

// TreeOptions controls RenderTree and Rows.
type TreeOptions struct {
	// Width truncates titles so rows fit; 0 disables truncation.
	Width int
	// Expanded reports whether a node is unfolded. Nil unfolds everything.
	Expanded func(id string) bool
	// Selected and Marked highlight one row each.
	Selected string
	Marked   string
	// ShowScores appends the relevance score to rows that have one.
	ShowScores bool
	Styles     Styles
}

// RenderTree renders the visible nodes of snap, one row per line.
func RenderTree(snap *tree.Snapshot, opts TreeOptions) string {
	return strings.Join(Rows(snap, opts), "\n")
}

// Rows renders the visible nodes of snap. Row i belongs to
// snap.Visible(opts.Expanded)[i].
func Rows(snap *tree.Snapshot, opts TreeOptions) []string {
	nodes := snap.Visible(opts.Expanded)
	rows := make([]string, len(nodes))
	for i, n := range nodes {
		rows[i] = renderRow(snap, n, opts)
	}
	return rows
}

func renderRow(snap *tree.Snapshot, n tree.TreeNode, opts TreeOptions) string {
	st := opts.Styles
	id := n.ID()

	marker := " "
	if id == opts.Marked && id != "" {
		marker = st.Marked.Render("*")
	}

	head := []string{
		st.Connector.Render(treePrefix(snap, n)) + expandIndicator(n, opts.Expanded),
		st.TypeBadge(n.Bean.Type),
		st.ID.Render(id),
		st.StatusBadge(n.Bean.Status),
	}
	if p := st.PriorityBadge(n.Bean.Priority); p != "" {
		head = append(head, p)
	}

	var tail []string
	if n.InProgressHint() {
		tail = append(tail, st.Hint.Render(glyphInProgress))
	}
	if n.Bean.Blocked {
		tail = append(tail, st.Blocked.Render(glyphBlocked))
	}
	if opts.ShowScores && n.Score > 0 {
		tail = append(tail, st.Score.Render(fmt.Sprintf("(%d)", n.Score)))
	}

	left := marker + strings.Join(head, " ") + " "
	right := ""
	if len(tail) > 0 {
		right = " " + strings.Join(tail, " ")
	}

	title := n.Bean.Title
	if opts.Width > 0 {
		budget := opts.Width - lipgloss.Width(left) - lipgloss.Width(right)
		title = truncate(title, budget)
	}
	row := left + st.Title.Render(title) + right

	if id == opts.Selected && id != "" {
		row = st.Selected.Render(row)
	}
	return row
}

// treePrefix draws the connector columns for n: one column per ancestor below
// the root level, then the branch into n itself. Roots have no prefix.
func treePrefix(snap *tree.Snapshot, n tree.TreeNode) string {
	if n.Depth == 0 {
		return ""
	}
	ancestors := snap.Ancestors(n.ID()) // parent first, root last
	var b strings.Builder
	// Skip the root: its column is the unindented root row itself.
	for i := len(ancestors) - 2; i >= 0; i-- {
		if snap.IsLastChild(ancestors[i].ID()) {
			b.WriteString(glyphSpace)
		} else {
			b.WriteString(glyphPipe)
		}
	}
	if snap.IsLastChild(n.ID()) {
		b.WriteString(glyphLast)
	} else {
		b.WriteString(glyphBranch)
	}
	return b.String()
}

func expandIndicator(n tree.TreeNode, expanded func(string) bool) string {
	switch {
	case !n.HasChildren:
		return glyphLeaf
	case expanded == nil || expanded(n.ID()):
		return glyphExpanded
	default:
		return glyphCollapsed
	}
}

// truncate shortens s to maxWidth cells, ending with an ellipsis when cut.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth-1, "") + "…"
}
