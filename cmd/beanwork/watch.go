package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/beanwork/pkg/view"
)

const clearScreen = "\x1b[H\x1b[2J"

func newWatchCmd(a *app) *cobra.Command {
	f := &treeFlags{}
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Print the pane trees again whenever beans change",
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			set, err := a.treeSet(f, a.stderrDeduper())
			if err != nil {
				return err
			}
			w, err := a.newWatcher(nil)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return fmt.Errorf("watching %s: %w", w.Path(), err)
			}
			defer w.Stop()
			if w.IsPolling() {
				fmt.Fprintf(a.stderr, "polling %s every %s (%s filesystem)\n", w.Path(), w.PollInterval(), w.FilesystemType())
			}
			return a.watchLoop(ctx, cmd.OutOrStdout(), set, f, w.Changed())
		},
	}
	f.register(cmd)
	return cmd
}

// watchLoop renders once, then again after every change until ctx ends.
// Refresh failures go to the set's deduper; the failing pane renders empty
// and the loop keeps running.
func (a *app) watchLoop(ctx context.Context, out io.Writer, set *view.Set, f *treeFlags, changes <-chan struct{}) error {
	tty := a.isTTY(out)
	render := func() {
		_ = set.RefreshAll(ctx)
		if ctx.Err() != nil {
			return
		}
		if tty {
			fmt.Fprint(out, clearScreen)
		}
		a.printTrees(out, set, f)
		a.printDiagnostics(set, f)
		if !tty {
			fmt.Fprintf(out, "-- %s\n", time.Now().Format(time.TimeOnly))
		}
	}

	render()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			render()
		}
	}
}
