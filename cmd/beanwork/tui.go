package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/beanwork/pkg/debug"
	"github.com/vanderheijden86/beanwork/pkg/notify"
	"github.com/vanderheijden86/beanwork/pkg/ui"
	"github.com/vanderheijden86/beanwork/pkg/view"
)

func newTUICmd(a *app) *cobra.Command {
	var (
		noWatch bool
		plain   bool
		logFile string
	)
	cmd := &cobra.Command{
		Use:     "tui",
		Short:   "Browse the panes interactively",
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.New(debug.Writer(), "", log.LstdFlags)
			if logFile != "" {
				f, err := tea.LogToFileWith(logFile, "beanwork ", logger)
				if err != nil {
					return fmt.Errorf("log file: %w", err)
				}
				defer f.Close()
			}
			notices := ui.NewNotices()
			set, err := a.tuiSet(notices, logger)
			if err != nil {
				return err
			}

			opts := []ui.Option{ui.WithNotices(notices)}
			if plain || os.Getenv("NO_COLOR") != "" {
				opts = append(opts, ui.WithStyles(ui.PlainStyles()), ui.WithMarkdownStyle("notty"))
			}
			if !noWatch {
				w, err := a.newWatcher(nil)
				if err != nil {
					return err
				}
				if err := w.Start(); err != nil {
					fmt.Fprintf(a.stderr, "warning: not watching for changes: %v\n", err)
				} else {
					defer w.Stop()
					opts = append(opts, ui.WithChanges(w.Changed()))
				}
			}
			return runTUIProgram(ui.NewModel(ctx, set, opts...))
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not refresh when beans change on disk")
	cmd.Flags().BoolVar(&plain, "plain", false, "No colors")
	cmd.Flags().StringVar(&logFile, "log", "", "Append warnings to this file (default: debug log only)")
	return cmd
}

// tuiSet builds the viewer's panes. Warnings go to logger since stderr belongs
// to the screen; fetch failures reach the status bar through notices.
func (a *app) tuiSet(notices ui.Notices, logger *log.Logger) (*view.Set, error) {
	d := notify.NewDeduper(notices, notify.WithLogger(logger))
	return a.newSet(a.cfg.Panes(), d, view.WithLogger(logger))
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Quit on SIGINT/SIGTERM; kill if the program does not exit in time.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
