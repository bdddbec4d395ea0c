package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/beanwork/pkg/analysis"
	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/filter"
	"github.com/vanderheijden86/beanwork/pkg/metrics"
	"github.com/vanderheijden86/beanwork/pkg/model"
	"github.com/vanderheijden86/beanwork/pkg/notify"
	"github.com/vanderheijden86/beanwork/pkg/ordering"
	"github.com/vanderheijden86/beanwork/pkg/ui"
	"github.com/vanderheijden86/beanwork/pkg/view"
)

// treeFlags are the selection and display flags shared by tree and watch.
type treeFlags struct {
	pane       string
	sort       string
	search     string
	statuses   []string
	types      []string
	priorities []string
	tags       []string
	scores     bool
	plain      bool
	timings    bool
	warnings   bool
}

func (f *treeFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.pane, "pane", "p", "all", "Pane to show, or all")
	fl.StringVarP(&f.sort, "sort", "s", "", "Sort mode: "+strings.Join(modeNames(), ", "))
	fl.StringVarP(&f.search, "search", "q", "", "Only beans matching this text, ranked by relevance")
	fl.StringSliceVar(&f.statuses, "status", nil, "Only these statuses (within the pane)")
	fl.StringSliceVarP(&f.types, "type", "t", nil, "Only these types")
	fl.StringSliceVar(&f.priorities, "priority", nil, "Only these priorities")
	fl.StringSliceVar(&f.tags, "tag", nil, "Only beans with any of these tags")
	fl.BoolVar(&f.scores, "scores", false, "Show relevance scores")
	fl.BoolVar(&f.plain, "plain", false, "No colors")
	fl.BoolVar(&f.timings, "timings", false, "Print engine timings to stderr")
	fl.BoolVar(&f.warnings, "warnings", false, "Print blocking cycles to stderr")
}

func modeNames() []string {
	var names []string
	for _, m := range ordering.Modes() {
		names = append(names, string(m))
	}
	return names
}

// panes narrows the configured panes to the --pane flag.
func (f *treeFlags) panes(configured []dragdrop.Pane) ([]dragdrop.Pane, error) {
	if f.pane == "" || f.pane == "all" {
		return configured, nil
	}
	p, ok := dragdrop.PaneByName(f.pane)
	if !ok {
		return nil, fmt.Errorf("unknown pane %q", f.pane)
	}
	return []dragdrop.Pane{p}, nil
}

// viewOptions turns the sort and filter flags into view options.
func (f *treeFlags) viewOptions() ([]view.Option, error) {
	var opts []view.Option
	if f.sort != "" {
		mode, ok := ordering.ParseMode(f.sort)
		if !ok {
			return nil, fmt.Errorf("unknown sort mode %q (want %s)", f.sort, strings.Join(modeNames(), ", "))
		}
		opts = append(opts, view.WithSortMode(mode))
	}
	state, err := f.filterState()
	if err != nil {
		return nil, err
	}
	if !state.IsZero() {
		opts = append(opts, view.WithFilter(state))
	}
	return opts, nil
}

func (f *treeFlags) filterState() (filter.State, error) {
	s := filter.State{Search: f.search, Tags: f.tags}
	for _, v := range f.statuses {
		st := model.Status(strings.TrimSpace(v))
		if !st.IsValid() {
			return s, fmt.Errorf("unknown status %q", v)
		}
		s.Statuses = append(s.Statuses, st)
	}
	for _, v := range f.types {
		t := model.Type(strings.TrimSpace(v))
		if !t.IsValid() {
			return s, fmt.Errorf("unknown type %q", v)
		}
		s.Types = append(s.Types, t)
	}
	for _, v := range f.priorities {
		p := model.Priority(strings.TrimSpace(v))
		if !p.IsValid() {
			return s, fmt.Errorf("unknown priority %q", v)
		}
		s.Priorities = append(s.Priorities, p)
	}
	return s, nil
}

func (f *treeFlags) styles(a *app, out io.Writer) ui.Styles {
	if f.plain || os.Getenv("NO_COLOR") != "" || !a.isTTY(out) {
		return ui.PlainStyles()
	}
	return ui.DefaultStyles()
}

func terminalWidth(out io.Writer) int {
	if file, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(file.Fd())); err == nil {
			return w
		}
	}
	return 0
}

func newTreeCmd(a *app) *cobra.Command {
	f := &treeFlags{}
	cmd := &cobra.Command{
		Use:     "tree",
		Short:   "Print the pane trees",
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.timings {
				metrics.ResetAll()
			}
			set, err := a.treeSet(f, oneShotDeduper())
			if err != nil {
				return err
			}
			if err := set.RefreshAll(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			a.printTrees(out, set, f)
			a.printDiagnostics(set, f)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// treeSet builds the views the tree flags select.
func (a *app) treeSet(f *treeFlags, d *notify.Deduper) (*view.Set, error) {
	panes, err := f.panes(a.cfg.Panes())
	if err != nil {
		return nil, err
	}
	opts, err := f.viewOptions()
	if err != nil {
		return nil, err
	}
	return a.newSet(panes, d, opts...)
}

func (a *app) printTrees(out io.Writer, set *view.Set, f *treeFlags) {
	styles := f.styles(a, out)
	views := set.Views()
	for i, v := range views {
		snap := v.Snapshot()
		if len(views) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, styles.Header.Render(fmt.Sprintf("%s (%d)", v.Name(), snap.Len())))
		}
		if snap.Len() == 0 {
			fmt.Fprintln(out, styles.Hint.Render("  no beans"))
			continue
		}
		fmt.Fprintln(out, ui.RenderTree(snap, ui.TreeOptions{
			Width:      terminalWidth(out),
			ShowScores: f.scores,
			Styles:     styles,
		}))
	}
}

// printDiagnostics writes augmentation warnings, and on request blocking
// cycles and timings, to stderr.
func (a *app) printDiagnostics(set *view.Set, f *treeFlags) {
	var beans []model.Bean
	for _, v := range set.Views() {
		if w := v.Warning(); w != nil {
			fmt.Fprintf(a.stderr, "warning: %s: %v\n", v.Name(), w)
		}
		for _, n := range v.Snapshot().All() {
			beans = append(beans, n.Bean)
		}
	}
	if f.warnings {
		for _, w := range analysis.CycleWarnings(beans) {
			fmt.Fprintf(a.stderr, "warning: %s\n", w)
		}
	}
	if f.timings {
		_ = metrics.WriteSummary(a.stderr)
	}
}
