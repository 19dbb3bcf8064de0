package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/croftd/mailbridge-mcp/internal/model"
)

// ComposeEmailRequest are the arguments of the compose_email tool.
type ComposeEmailRequest struct {
	Message  string                   `json:"message" jsonschema:"the user's request, or their confirmation reply"`
	History  []model.ConversationTurn `json:"history,omitempty" jsonschema:"prior conversation turns, oldest first"`
	Provider string                   `json:"provider,omitempty" jsonschema:"provider to send from: gmail or outlook"`
}

// ComposeEmailResponse carries the assistant reply for this turn.
type ComposeEmailResponse struct {
	Reply string `json:"reply" jsonschema:"reply to show the user"`
}

type composeEmailSvc interface {
	Handle(ctx context.Context, ownerID string, history []model.ConversationTurn, userMessage string, filter model.Provider) (string, error)
}

// NewComposeEmail creates the compose_email tool handler.
func NewComposeEmail(svc composeEmailSvc, ownerID string) *ComposeEmail {
	return &ComposeEmail{
		svc:     svc,
		ownerID: ownerID,
	}
}

// ComposeEmail drives the draft/confirm/send protocol.
type ComposeEmail struct {
	svc     composeEmailSvc
	ownerID string
}

// ComposeEmail handles one compose_email call.
func (t *ComposeEmail) ComposeEmail(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ComposeEmailRequest,
) (*mcp.CallToolResult, ComposeEmailResponse, error) {
	if input.Message == "" {
		return nil, ComposeEmailResponse{}, errors.New("message must not be empty")
	}

	filter, err := model.ParseProvider(input.Provider)
	if err != nil {
		return nil, ComposeEmailResponse{}, err
	}

	reply, err := t.svc.Handle(ctx, t.ownerID, input.History, input.Message, filter)
	if err != nil {
		return nil, ComposeEmailResponse{}, fmt.Errorf("svc.Handle failed: %w", err)
	}

	return nil, ComposeEmailResponse{Reply: reply}, nil
}
