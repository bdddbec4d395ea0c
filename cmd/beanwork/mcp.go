package main

import (
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/beanwork/internal/mcpserver"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "mcp",
		Short:   "Serve the bean trees to MCP clients over stdio",
		GroupID: "serve",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.viewOptions()
			if err != nil {
				return err
			}
			return mcpserver.ServeStdio(mcpserver.New(a.store, opts...))
		},
	}
}
