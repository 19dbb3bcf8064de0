package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetEmailRequest are the arguments of the get_email tool.
type GetEmailRequest struct {
	MessageID string `json:"message_id" jsonschema:"provider message ID"`
	Provider  string `json:"provider,omitempty" jsonschema:"provider the message lives on: gmail or outlook"`
}

// GetEmailResponse is reserved for the full message content.
type GetEmailResponse struct{}

// SummarizeEmailsRequest are the arguments of the summarize_emails tool.
type SummarizeEmailsRequest struct {
	Query    string `json:"query,omitempty" jsonschema:"search query selecting the emails to summarize"`
	Provider string `json:"provider,omitempty" jsonschema:"restrict to one provider: gmail or outlook"`
}

// SummarizeEmailsResponse is reserved for the summary text.
type SummarizeEmailsResponse struct{}

// GetEmail is declared but not implemented yet. It reports that explicitly
// rather than silently succeeding.
func GetEmail(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetEmailRequest,
) (*mcp.CallToolResult, GetEmailResponse, error) {
	return notImplemented("get_email"), GetEmailResponse{}, nil
}

// SummarizeEmails is declared but not implemented yet.
func SummarizeEmails(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ SummarizeEmailsRequest,
) (*mcp.CallToolResult, SummarizeEmailsResponse, error) {
	return notImplemented("summarize_emails"), SummarizeEmailsResponse{}, nil
}

func notImplemented(name string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: name + " is not yet implemented"},
		},
	}
}
