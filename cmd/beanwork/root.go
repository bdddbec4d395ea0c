package main

import (
	"github.com/spf13/cobra"
)

// skipStore marks commands that run without config or store.
const skipStore = "beanwork/skip-store"

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "beanwork <command>",
		Short: "Browse and reorganise beans as pane trees",
		Long: `beanwork reads the beans of a project and shows them as trees, one per
pane (active, drafts, completed, scrapped). It can search them by relevance,
move them between parents and panes, and serve the same engine over MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsStore(cmd) {
				return nil
			}
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVarP(&a.projectDir, "dir", "C", "", "Project root (default: current directory)")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: user config merged with .beanwork.yaml)")
	root.PersistentFlags().StringVar(&a.backend, "store", "", "Store backend: files, cli or sqlite")
	root.PersistentFlags().StringVar(&a.beansPath, "path", "", "Beans directory or database file")
	root.PersistentFlags().BoolVar(&a.localSearch, "local-search", false, "Match search text locally even when the store can search")

	root.AddGroup(
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "edit", Title: "Editing:"},
		&cobra.Group{ID: "serve", Title: "Serving:"},
	)

	root.AddCommand(
		newTreeCmd(a),
		newShowCmd(a),
		newTUICmd(a),
		newWatchCmd(a),
		newMoveCmd(a),
		newImportCmd(a),
		newMCPCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipStore] != "" {
			return false
		}
		if c.Name() == "help" || c.Name() == cobra.ShellCompRequestCmd || c.Name() == "completion" {
			return false
		}
	}
	return true
}
