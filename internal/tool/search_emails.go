package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/croftd/mailbridge-mcp/internal/model"
	"github.com/croftd/mailbridge-mcp/internal/search"
)

// SearchEmailsRequest are the arguments of the search_emails tool.
type SearchEmailsRequest struct {
	Query      string `json:"query,omitempty" jsonschema:"provider-native search query, empty for the inbox"`
	MaxResults int64  `json:"max_results,omitempty" jsonschema:"maximum merged results to return"`
	Provider   string `json:"provider,omitempty" jsonschema:"restrict to one provider: gmail or outlook"`
}

// SearchEmailsResponse is the merged fan-out result.
type SearchEmailsResponse struct {
	Messages []model.EmailMessage   `json:"messages" jsonschema:"matching messages, newest first"`
	Total    int                    `json:"total" jsonschema:"total matches before truncation"`
	Accounts []search.AccountStatus `json:"accounts" jsonschema:"per-account connection status"`
	Note     string                 `json:"note,omitempty" jsonschema:"informational note, e.g. no connected accounts"`
}

type searchEmailsSvc interface {
	Search(ctx context.Context, ownerID, query string, maxResults int64, filter model.Provider) (*search.Result, error)
}

// NewSearchEmails creates the search_emails tool handler.
func NewSearchEmails(svc searchEmailsSvc, ownerID string) *SearchEmails {
	return &SearchEmails{
		svc:     svc,
		ownerID: ownerID,
	}
}

// SearchEmails fans a query out across the owner's connected accounts.
type SearchEmails struct {
	svc     searchEmailsSvc
	ownerID string
}

// SearchEmails handles one search_emails call.
func (t *SearchEmails) SearchEmails(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchEmailsRequest,
) (*mcp.CallToolResult, SearchEmailsResponse, error) {
	filter, err := model.ParseProvider(input.Provider)
	if err != nil {
		return nil, SearchEmailsResponse{}, err
	}

	input.MaxResults = normalizeMaxResults(input.MaxResults)

	result, err := t.svc.Search(ctx, t.ownerID, input.Query, input.MaxResults, filter)
	if err != nil {
		return nil, SearchEmailsResponse{}, fmt.Errorf("svc.Search failed: %w", err)
	}

	return nil, SearchEmailsResponse{
		Messages: result.Messages,
		Total:    result.Total,
		Accounts: result.Accounts,
		Note:     result.Note,
	}, nil
}

func normalizeMaxResults(maxResults int64) int64 {
	if maxResults == 0 {
		return 10
	}
	if maxResults > 50 {
		return 50
	}
	return maxResults
}
