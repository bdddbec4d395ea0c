package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/beanwork/pkg/ui"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		raw   bool
		style string
	)
	cmd := &cobra.Command{
		Use:     "show <bean-id>",
		Short:   "Show one bean with its body rendered as markdown",
		GroupID: "views",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.store.Show(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("show %s: %w", args[0], err)
			}
			doc := ui.DetailMarkdown(b)
			out := cmd.OutOrStdout()
			if raw || !a.isTTY(out) {
				_, err := fmt.Fprint(out, doc)
				return err
			}

			width := terminalWidth(out)
			if width <= 0 {
				width = 80
			}
			opt := glamour.WithAutoStyle()
			if style != "" {
				opt = glamour.WithStandardStyle(style)
			} else if os.Getenv("NO_COLOR") != "" {
				opt = glamour.WithStandardStyle("notty")
			}
			r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
			if err != nil {
				return err
			}
			rendered, err := r.Render(doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, rendered)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source")
	cmd.Flags().StringVar(&style, "style", "", "Glamour style (dark, light, notty, ...)")
	return cmd
}
