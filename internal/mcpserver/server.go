// Package mcpserver exposes the bean tree engine as MCP tools so agents can
// read pane trees, search beans and check moves before making them.
//
// Every tool call builds short-lived views over the shared store, so calls
// never see each other's sort or filter state.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/vanderheijden86/beanwork/pkg/store"
	"github.com/vanderheijden86/beanwork/pkg/version"
	"github.com/vanderheijden86/beanwork/pkg/view"
)

const instructions = `beanwork serves the beans of one project as trees, one per pane
(active, drafts, completed, scrapped).

- beans_tree lists a pane as a tree.
- beans_search ranks beans in a pane against a query.
- beans_evaluate_drop checks whether moving a bean onto another bean or onto a
  pane is allowed and what it would change. It never writes.`

// New builds the MCP server. opts apply to every view the tools create.
func New(st store.BeanStore, opts ...view.Option) *server.MCPServer {
	s := server.NewMCPServer(
		"beanwork",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	tree := NewTreeTool(st, opts...)
	s.AddTool(tree.Definition(), tree.Handle)

	search := NewSearchTool(st, opts...)
	s.AddTool(search.Definition(), search.Handle)

	drop := NewEvaluateDropTool(st, opts...)
	s.AddTool(drop.Definition(), drop.Handle)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
