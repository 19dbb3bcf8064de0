// Package outlook adapts the Microsoft Graph mail API to the canonical
// adapter contract. Graph responses are decoded into typed wire structs; raw
// provider JSON never leaves this package.
package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/croftd/mailbridge-mcp/internal/model"
	"github.com/croftd/mailbridge-mcp/internal/provider"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Adapter implements provider.Adapter against Microsoft Graph.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithBaseURL overrides the Graph base URL, used in tests.
func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// NewAdapter creates a Graph adapter.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Graph wire shapes, limited to the fields this adapter selects.
type graphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphMessage struct {
	ID               string           `json:"id"`
	ConversationID   string           `json:"conversationId"`
	Subject          string           `json:"subject"`
	BodyPreview      string           `json:"bodyPreview"`
	ReceivedDateTime string           `json:"receivedDateTime"`
	IsRead           *bool            `json:"isRead"`
	From             *graphRecipient  `json:"from"`
	ToRecipients     []graphRecipient `json:"toRecipients"`
}

type graphListResponse struct {
	Value []graphMessage `json:"value"`
}

type graphItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphSendMessage struct {
	Subject      string           `json:"subject"`
	Body         graphItemBody    `json:"body"`
	ToRecipients []graphRecipient `json:"toRecipients"`
}

type graphSendRequest struct {
	Message         graphSendMessage `json:"message"`
	SaveToSentItems bool             `json:"saveToSentItems"`
}

type graphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search issues a single message list call ordered by received time
// descending, adding the Graph $search parameter when a query is present.
func (a *Adapter) Search(ctx context.Context, token, query string, maxResults int64) ([]model.EmailMessage, error) {
	params := url.Values{}
	params.Set("$top", strconv.FormatInt(maxResults, 10))
	params.Set("$orderby", "receivedDateTime desc")
	params.Set("$select", "id,conversationId,subject,bodyPreview,receivedDateTime,isRead,from,toRecipients")
	if query != "" {
		params.Set("$search", fmt.Sprintf("%q", query))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/me/messages?"+params.Encode(), nil)
	if err != nil {
		return nil, a.wrapErr(0, fmt.Errorf("http.NewRequestWithContext failed: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, a.wrapErr(0, fmt.Errorf("list messages failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, a.statusErr(resp)
	}

	var list graphListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, a.wrapErr(0, fmt.Errorf("decoding list response: %w", err))
	}

	messages := make([]model.EmailMessage, 0, len(list.Value))
	for _, m := range list.Value {
		messages = append(messages, toCanonical(m))
	}

	return messages, nil
}

// Send posts a structured message to the sendMail endpoint. Graph returns no
// body on success, so the result carries a synthetic message ID.
func (a *Adapter) Send(ctx context.Context, token, to, subject, body string) (*model.SendResult, error) {
	payload, err := json.Marshal(graphSendRequest{
		Message: graphSendMessage{
			Subject: subject,
			Body: graphItemBody{
				ContentType: "Text",
				Content:     body,
			},
			ToRecipients: []graphRecipient{
				{EmailAddress: graphEmailAddress{Address: to}},
			},
		},
		SaveToSentItems: true,
	})
	if err != nil {
		return nil, a.wrapErr(0, fmt.Errorf("json.Marshal failed: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/me/sendMail", bytes.NewReader(payload))
	if err != nil {
		return nil, a.wrapErr(0, fmt.Errorf("http.NewRequestWithContext failed: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, a.wrapErr(0, fmt.Errorf("sendMail failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, a.statusErr(resp)
	}

	return &model.SendResult{
		MessageID: "outlook-" + uuid.NewString(),
	}, nil
}

func toCanonical(m graphMessage) model.EmailMessage {
	out := model.EmailMessage{
		ID:       m.ID,
		ThreadID: m.ConversationID,
		Subject:  model.OrDefault(m.Subject, model.NoSubject),
		From:     model.UnknownAddress,
		To:       model.UnknownAddress,
		Date:     m.ReceivedDateTime,
		Preview:  m.BodyPreview,
		Provider: model.ProviderOutlook,
		Read:     m.IsRead,
	}

	if m.From != nil {
		out.From = model.OrDefault(formatAddress(m.From.EmailAddress), model.UnknownAddress)
	}
	if len(m.ToRecipients) > 0 {
		parts := make([]string, 0, len(m.ToRecipients))
		for _, r := range m.ToRecipients {
			if addr := formatAddress(r.EmailAddress); addr != "" {
				parts = append(parts, addr)
			}
		}
		out.To = model.OrDefault(strings.Join(parts, ", "), model.UnknownAddress)
	}

	return out
}

func formatAddress(a graphEmailAddress) string {
	if a.Name != "" && a.Address != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Address)
	}
	if a.Address != "" {
		return a.Address
	}
	return a.Name
}

func (a *Adapter) statusErr(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	msg := strings.TrimSpace(string(raw))
	var gerr graphErrorResponse
	if err := json.Unmarshal(raw, &gerr); err == nil && gerr.Error.Message != "" {
		msg = gerr.Error.Message
	}

	return &provider.CallError{
		Provider:   model.ProviderOutlook,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

func (a *Adapter) wrapErr(status int, err error) error {
	return &provider.CallError{
		Provider:   model.ProviderOutlook,
		StatusCode: status,
		Message:    err.Error(),
		Err:        err,
	}
}
