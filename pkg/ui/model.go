package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/filter"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/search"
	"github.com/vanderheijden86/beanwork/pkg/tree"
	"github.com/vanderheijden86/beanwork/pkg/view"
)

const helpLine = "tab pane · j/k move · enter fold · / search · s sort · m mark · p drop on bean · P drop on pane · d details · y copy id · r refresh · q quit"

type refreshedMsg struct{ err error }

type appliedMsg struct {
	intent dragdrop.Intent
	err    error
}

type changedMsg struct{}

type noticeMsg string

// Notices carries fetch failures from a notify.Deduper to the status bar.
// Pass the same value to notify.NewDeduper and WithNotices.
type Notices chan string

// NewNotices returns a buffered Notices.
func NewNotices() Notices { return make(Notices, 16) }

// Notify queues msg for the status bar. It drops msg when the queue is full.
func (n Notices) Notify(msg string) {
	select {
	case n <- msg:
	default:
	}
}

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the system clipboard, for tests.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.copy = fn }
}

// WithChanges refreshes every pane whenever ch receives, typically a
// watcher.Changed channel.
func WithChanges(ch <-chan struct{}) Option {
	return func(m *Model) { m.changes = ch }
}

// WithNotices shows the messages of n in the status bar instead of every
// refresh error.
func WithNotices(n Notices) Option {
	return func(m *Model) { m.notices = n }
}

// WithStyles replaces DefaultStyles.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// WithMarkdownStyle picks the glamour style for bean bodies. "auto" detects
// the terminal background.
func WithMarkdownStyle(name string) Option {
	return func(m *Model) { m.mdStyle = name }
}

// Model is the interactive viewer: one tab per pane of a view.Set.
type Model struct {
	ctx   context.Context
	set   *view.Set
	views []*view.View

	active   int
	cursor   int
	expanded map[string]bool
	styles   Styles

	search    textinput.Model
	searching bool

	session *dragdrop.Session
	confirm *dragdrop.NeedsConfirmation

	detail     viewport.Model
	showDetail bool
	mdStyle    string

	width, height int
	statusMsg     string
	statusIsError bool

	copy    func(string) error
	changes <-chan struct{}
	notices Notices
}

// NewModel builds the viewer. Nothing is fetched until Init runs.
func NewModel(ctx context.Context, set *view.Set, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "search beans"
	ti.Prompt = "/ "

	m := Model{
		ctx:      ctx,
		set:      set,
		views:    set.Views(),
		expanded: make(map[string]bool),
		styles:   DefaultStyles(),
		search:   ti,
		session:  dragdrop.NewSession(set.Lookup()),
		detail:   viewport.New(80, 20),
		mdStyle:  "auto",
		width:    80,
		height:   24,
		copy:     clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init fetches every pane and starts listening for store changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(), m.waitForChange(), m.waitForNotice())
}

func (m Model) refreshCmd() tea.Cmd {
	set, ctx := m.set, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: set.RefreshAll(ctx)}
	}
}

func (m Model) waitForChange() tea.Cmd {
	ch := m.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) waitForNotice() tea.Cmd {
	ch := m.notices
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(msg)
	}
}

func (m Model) applyCmd(intent dragdrop.Intent) tea.Cmd {
	set, ctx := m.set, m.ctx
	return func() tea.Msg {
		_, err := set.Apply(ctx, intent)
		return appliedMsg{intent: intent, err: err}
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail.Width = msg.Width
		m.detail.Height = max(m.height-4, 1)
		return m, nil

	case refreshedMsg:
		switch {
		case msg.err != nil && m.notices == nil:
			m.setStatus(msg.err.Error(), true)
		case msg.err == nil && m.statusIsError:
			// Show the next failure again even if it repeats the last one.
			m.setStatus("", false)
			m.set.Deduper().Reset()
		}
		m.session.SetSnapshot(m.set.Lookup())
		m.clampCursor()
		return m, nil

	case changedMsg:
		return m, tea.Batch(m.refreshCmd(), m.waitForChange())

	case noticeMsg:
		m.setStatus(string(msg), true)
		return m, m.waitForNotice()

	case appliedMsg:
		m.session.Reset()
		m.session.SetSnapshot(m.set.Lookup())
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("move failed: %v", msg.err), true)
		} else {
			m.setStatus(msg.intent.String(), false)
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.confirm != nil:
			return m.handleConfirmKey(msg)
		case m.searching:
			return m.handleSearchKey(msg)
		case m.showDetail:
			return m.handleDetailKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.active = (m.active + 1) % len(m.views)
		m.cursor = 0
	case "shift+tab":
		m.active = (m.active + len(m.views) - 1) % len(m.views)
		m.cursor = 0
	case "j", "down":
		m.cursor++
		m.clampCursor()
	case "k", "up":
		m.cursor--
		m.clampCursor()
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = len(m.visible()) - 1
		m.clampCursor()
	case "enter", " ":
		if n, ok := m.selected(); ok && n.HasChildren {
			m.expanded[n.ID()] = !m.expanded[n.ID()]
		}
	case "right", "l":
		if n, ok := m.selected(); ok && n.HasChildren {
			m.expanded[n.ID()] = true
		}
	case "left", "h":
		if n, ok := m.selected(); ok {
			if m.expanded[n.ID()] {
				m.expanded[n.ID()] = false
			} else if p, ok := m.currentView().Parent(n.ID()); ok {
				m.selectID(p.ID())
			}
		}
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "s":
		next := m.currentView().SortMode().Next()
		for _, v := range m.views {
			v.SetSortMode(next)
		}
		m.setStatus("sort: "+next.Label(), false)
		return m, m.refreshCmd()
	case "r":
		return m, m.refreshCmd()
	case "d":
		if n, ok := m.selected(); ok {
			m.openDetail(n.Bean)
		}
	case "y":
		if n, ok := m.selected(); ok {
			if err := m.copy(n.ID()); err != nil {
				m.setStatus(fmt.Sprintf("clipboard error: %v", err), true)
			} else {
				m.setStatus("copied "+n.ID(), false)
			}
		}
	case "m":
		n, ok := m.selected()
		if !ok {
			break
		}
		m.session.Reset()
		m.session.SetSnapshot(m.set.Lookup())
		if err := m.session.Start(n.ID()); err != nil {
			m.setStatus(err.Error(), true)
			break
		}
		m.setStatus("marked "+n.ID()+": p drops on a bean, P on the pane", false)
	case "p":
		n, ok := m.selected()
		if !ok {
			m.setStatus("no bean selected", true)
			break
		}
		return m.drop(n.ID())
	case "P":
		return m.drop("")
	case "esc":
		if m.session.State() != dragdrop.Idle {
			m.session.Reset()
			m.setStatus("move cancelled", false)
		}
	}
	return m, nil
}

// drop evaluates the marked bean landing on targetID ("" for the pane
// background) in the current pane.
func (m Model) drop(targetID string) (tea.Model, tea.Cmd) {
	if m.session.State() != dragdrop.DragStarted {
		m.setStatus("mark a bean with m first", true)
		return m, nil
	}
	res, err := m.session.Drop(targetID, m.currentView().Pane())
	if err != nil {
		m.setStatus(err.Error(), true)
		m.session.Reset()
		return m, nil
	}
	switch res.Outcome {
	case dragdrop.OutcomeIntent:
		if _, err := m.session.Confirm(dragdrop.ChangeStatus); err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		return m, m.applyCmd(*res.Intent)
	case dragdrop.OutcomeNeedsConfirmation:
		m.confirm = res.Confirm
		return m, nil
	case dragdrop.OutcomeRejected:
		m.setStatus(res.Err.Error(), true)
	case dragdrop.OutcomeNoChange:
		m.setStatus("nothing to change", false)
	}
	m.session.Reset()
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	choices := m.confirm.Choices
	choice := dragdrop.Cancel
	switch k := msg.String(); k {
	case "esc", "n", "q":
	default:
		if len(k) != 1 || k[0] < '1' || int(k[0]-'1') >= len(choices) {
			return m, nil
		}
		choice = choices[k[0]-'1']
	}
	m.confirm = nil
	res, err := m.session.Confirm(choice)
	if err != nil {
		m.session.Reset()
		m.setStatus(err.Error(), true)
		return m, nil
	}
	switch res.Outcome {
	case dragdrop.OutcomeIntent:
		return m, m.applyCmd(*res.Intent)
	case dragdrop.OutcomeRejected:
		m.setStatus(res.Err.Error(), true)
	default:
		m.setStatus("move cancelled", false)
	}
	m.session.Reset()
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		return m, m.applySearch()
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.applySearch())
}

func (m *Model) applySearch() tea.Cmd {
	q := m.search.Value()
	for _, v := range m.views {
		v.SetFilter(filter.Update{Search: &q})
	}
	m.cursor = 0
	return m.refreshCmd()
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "d", "enter":
		m.showDetail = false
		return m, nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *Model) openDetail(b model.Bean) {
	content := detailMarkdown(b)
	if r, err := m.markdownRenderer(); err == nil {
		if out, err := r.Render(content); err == nil {
			content = out
		}
	}
	m.detail.SetContent(content)
	m.detail.GotoTop()
	m.showDetail = true
}

func (m *Model) markdownRenderer() (*glamour.TermRenderer, error) {
	style := glamour.WithAutoStyle()
	if m.mdStyle != "" && m.mdStyle != "auto" {
		style = glamour.WithStandardStyle(m.mdStyle)
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(max(m.width-4, 20)))
}

// detailMarkdown is the document shown by the detail pane and beanwork show.
func detailMarkdown(b model.Bean) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	fmt.Fprintf(&sb, "- **id:** %s\n- **status:** %s\n- **type:** %s\n- **priority:** %s\n", b.ID, b.Status, b.Type, b.Priority.Effective())
	if b.ParentID != "" {
		fmt.Fprintf(&sb, "- **parent:** %s\n", b.ParentID)
	}
	if len(b.Tags) > 0 {
		fmt.Fprintf(&sb, "- **tags:** %s\n", strings.Join(b.Tags, ", "))
	}
	if len(b.BlockedByIDs) > 0 {
		fmt.Fprintf(&sb, "- **blocked by:** %s\n", strings.Join(b.BlockedByIDs, ", "))
	}
	if len(b.BlockingIDs) > 0 {
		fmt.Fprintf(&sb, "- **blocking:** %s\n", strings.Join(b.BlockingIDs, ", "))
	}
	if body := strings.TrimSpace(b.Body); body != "" {
		sb.WriteString("\n" + body + "\n")
	}
	return sb.String()
}

// DetailMarkdown exposes the detail document for the CLI.
func DetailMarkdown(b model.Bean) string { return detailMarkdown(b) }

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

func (m Model) currentView() *view.View { return m.views[m.active] }

func (m Model) isExpanded(id string) bool { return m.expanded[id] }

// expandFunc unfolds everything while a search is active so matches below
// collapsed parents stay visible.
func (m Model) expandFunc() func(string) bool {
	if search.Active(m.currentView().Filter().Query()) {
		return nil
	}
	return m.isExpanded
}

func (m Model) visible() []tree.TreeNode {
	return m.currentView().Snapshot().Visible(m.expandFunc())
}

func (m Model) selected() (tree.TreeNode, bool) {
	nodes := m.visible()
	if m.cursor < 0 || m.cursor >= len(nodes) {
		return tree.TreeNode{}, false
	}
	return nodes[m.cursor], true
}

func (m *Model) selectID(id string) {
	for i, n := range m.visible() {
		if n.ID() == id {
			m.cursor = i
			return
		}
	}
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder

	tabs := make([]string, len(m.views))
	for i, v := range m.views {
		label := fmt.Sprintf("%s (%d)", v.Name(), v.Snapshot().Len())
		if i == m.active {
			tabs[i] = m.styles.ActiveTab.Render(label)
		} else {
			tabs[i] = m.styles.Tab.Render(label)
		}
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("  " + m.styles.Status.Render("sort: "+m.currentView().SortMode().Label()))
	b.WriteString("\n\n")

	if m.showDetail {
		b.WriteString(m.detail.View())
		b.WriteString("\n" + m.styles.Status.Render("esc close · ↑/↓ scroll"))
		return b.String()
	}

	v := m.currentView()
	snap := v.Snapshot()
	selectedID := ""
	if n, ok := m.selected(); ok {
		selectedID = n.ID()
	}
	rows := Rows(snap, TreeOptions{
		Width:      m.width,
		Expanded:   m.expandFunc(),
		Selected:   selectedID,
		Marked:     m.session.DraggedID(),
		ShowScores: search.Active(v.Filter().Query()),
		Styles:     m.styles,
	})
	if len(rows) == 0 {
		b.WriteString(m.styles.Status.Render("  no beans"))
		b.WriteString("\n")
	}
	for _, row := range window(rows, m.cursor, max(m.height-6, 1)) {
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.confirm != nil:
		b.WriteString(m.styles.Prompt.Render(confirmPrompt(m.confirm)))
	case m.searching:
		b.WriteString(m.search.View())
	case m.statusMsg != "":
		if m.statusIsError {
			b.WriteString(m.styles.Error.Render(m.statusMsg))
		} else {
			b.WriteString(m.styles.Status.Render(m.statusMsg))
		}
	}
	b.WriteString("\n" + m.styles.Status.Render(helpLine))
	return b.String()
}

// window returns at most height rows, scrolled so cursor stays on screen.
func window(rows []string, cursor, height int) []string {
	if len(rows) <= height {
		return rows
	}
	start := cursor - height + 1
	if start < 0 {
		start = 0
	}
	return rows[start : start+height]
}

func confirmPrompt(c *dragdrop.NeedsConfirmation) string {
	target := "the " + c.Pane.Name + " pane"
	if c.TargetID != "" {
		target = c.TargetID
	}
	parts := make([]string, len(c.Choices))
	for i, ch := range c.Choices {
		parts[i] = fmt.Sprintf("%d) %s", i+1, ch)
	}
	return fmt.Sprintf("move %s to %s as %s? %s", c.DraggedID, target, c.Pending.NewStatus, strings.Join(parts, "  "))
}
