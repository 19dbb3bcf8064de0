// Package tool exposes the email operations as MCP tools. Tool arguments are
// validated against the generated schemas before any handler runs.
package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type emailSvc interface {
	searchEmailsSvc
	composeEmailSvc
}

// NewServer creates an MCP server with the email tool set, scoped to the
// owner identity established at startup.
func NewServer(svc emailSvc, ownerID string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "mailbridge", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_emails",
		Description: "Search emails across all connected accounts, merged newest first",
	}, NewSearchEmails(svc, ownerID).SearchEmails)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "compose_email",
		Description: "Draft an email from a natural-language request, or send a previously drafted one after the user confirms",
	}, NewComposeEmail(svc, ownerID).ComposeEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_email",
		Description: "Get the full content of one email by ID",
	}, GetEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize_emails",
		Description: "Summarize emails matching a query",
	}, SummarizeEmails)

	return server
}
