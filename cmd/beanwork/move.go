package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/view"
)

// chooser answers a cross-pane confirmation.
type chooser func(c *dragdrop.NeedsConfirmation) (dragdrop.Choice, error)

var choiceFlags = map[string]dragdrop.Choice{
	"status":   dragdrop.ChangeStatus,
	"reparent": dragdrop.ChangeStatusAndReparent,
	"cancel":   dragdrop.Cancel,
}

func parseChoice(s string) (dragdrop.Choice, error) {
	c, ok := choiceFlags[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown choice %q (want status, reparent or cancel)", s)
	}
	return c, nil
}

func confirmTitle(c *dragdrop.NeedsConfirmation) string {
	target := "the " + c.Pane.Name + " pane"
	if c.TargetID != "" {
		target = c.TargetID
	}
	return fmt.Sprintf("Move %s to %s as %s?", c.DraggedID, target, c.Pending.NewStatus)
}

// promptChoice asks on the terminal. Aborting the form cancels the move.
func promptChoice(c *dragdrop.NeedsConfirmation) (dragdrop.Choice, error) {
	choice := dragdrop.Cancel
	opts := make([]huh.Option[dragdrop.Choice], len(c.Choices))
	for i, ch := range c.Choices {
		opts[i] = huh.NewOption(ch.String(), ch)
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[dragdrop.Choice]().
				Title(confirmTitle(c)).
				Options(opts...).
				Value(&choice),
		),
	).WithTheme(huh.ThemeDracula())
	if !isTerminal(os.Stdin) {
		form = form.WithAccessible(true)
	}
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return dragdrop.Cancel, nil
		}
		return dragdrop.Cancel, err
	}
	return choice, nil
}

// paneOf returns the pane whose snapshot holds id.
func paneOf(set *view.Set, id string) (dragdrop.Pane, bool) {
	for _, v := range set.Views() {
		if _, ok := v.Snapshot().Bean(id); ok {
			return v.Pane(), true
		}
	}
	return dragdrop.Pane{}, false
}

func newMoveCmd(a *app) *cobra.Command {
	var (
		onto   string
		pane   string
		choice string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "move <bean-id>",
		Short: "Move a bean under another bean or into a pane",
		Long: `Move a bean the way a drag and drop in the viewer would.

With --onto the bean becomes a child of the target; without it the bean is
dropped on the pane background and becomes top level. --pane picks the pane
the drop lands in (default: the pane the bean is in). Moving into another
pane changes the bean's status and asks how to proceed, or uses --choice.`,
		GroupID: "edit",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			out := cmd.OutOrStdout()

			set, err := a.newSet(dragdrop.Panes(), oneShotDeduper())
			if err != nil {
				return err
			}
			if err := set.RefreshAll(ctx); err != nil {
				return err
			}

			var target dragdrop.Pane
			if pane != "" {
				p, ok := dragdrop.PaneByName(pane)
				if !ok {
					return fmt.Errorf("unknown pane %q", pane)
				}
				target = p
			} else if p, ok := paneOf(set, id); ok {
				target = p
			} else {
				return fmt.Errorf("bean %s is not in any pane", id)
			}

			res := dragdrop.Evaluate(set.Lookup(), id, onto, target)
			if res.Outcome == dragdrop.OutcomeNeedsConfirmation {
				picked, err := a.choose(res.Confirm, choice)
				if err != nil {
					return err
				}
				res = dragdrop.Resolve(res, picked)
			}

			switch res.Outcome {
			case dragdrop.OutcomeRejected:
				return res.Error()
			case dragdrop.OutcomeNoChange:
				fmt.Fprintf(out, "%s is already there\n", id)
				return nil
			case dragdrop.OutcomeCancelled:
				fmt.Fprintln(out, "cancelled")
				return nil
			}

			intent := *res.Intent
			if dryRun {
				fmt.Fprintf(out, "would %s\n", intent)
				return nil
			}
			if _, err := set.Apply(ctx, intent); err != nil {
				return err
			}
			fmt.Fprintln(out, intent)
			return nil
		},
	}
	cmd.Flags().StringVar(&onto, "onto", "", "Target bean (default: the pane background)")
	cmd.Flags().StringVar(&pane, "pane", "", "Pane the drop lands in")
	cmd.Flags().StringVar(&choice, "choice", "", "Answer for cross-pane moves: status, reparent or cancel")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the change without applying it")
	return cmd
}

// choose answers c from the --choice flag, or asks when stdin is a terminal.
func (a *app) choose(c *dragdrop.NeedsConfirmation, flag string) (dragdrop.Choice, error) {
	if flag != "" {
		return parseChoice(flag)
	}
	if !a.isTTY(os.Stdin) {
		return dragdrop.Cancel, fmt.Errorf("%s needs confirmation: pass --choice status, reparent or cancel", strings.TrimSuffix(confirmTitle(c), "?"))
	}
	return a.prompt(c)
}
