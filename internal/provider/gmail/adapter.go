// Package gmail adapts the Gmail REST API to the canonical adapter contract.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/croftd/mailbridge-mcp/internal/model"
	"github.com/croftd/mailbridge-mcp/internal/provider"
)

const gmailUserID = "me"

// defaultQuery is used when the caller supplies no search query.
const defaultQuery = "in:inbox"

// Adapter implements provider.Adapter against the Gmail API.
type Adapter struct {
	opts []option.ClientOption
}

// NewAdapter creates a Gmail adapter. Extra client options (endpoint
// overrides in tests) are applied to every service instance.
func NewAdapter(opts ...option.ClientOption) *Adapter {
	return &Adapter{opts: opts}
}

// Search lists message IDs matching the Gmail-native query, then fetches each
// message's metadata concurrently to build canonical summaries.
func (a *Adapter) Search(ctx context.Context, token, query string, maxResults int64) ([]model.EmailMessage, error) {
	svc, err := a.newSvc(ctx, token)
	if err != nil {
		return nil, wrapErr(err)
	}

	q := query
	if q == "" {
		q = defaultQuery
	}

	list, err := svc.Users.Messages.List(gmailUserID).
		Q(q).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr(fmt.Errorf("messages.List failed: %w", err))
	}

	messages := make([]model.EmailMessage, len(list.Messages))
	errs := make([]error, len(list.Messages))

	var wg sync.WaitGroup
	for i, m := range list.Messages {
		wg.Add(1)
		go func(i int, msgID string) {
			defer wg.Done()

			msg, err := svc.Users.Messages.Get(gmailUserID, msgID).
				Format("metadata").
				MetadataHeaders("From", "To", "Subject", "Date").
				Context(ctx).
				Do()
			if err != nil {
				errs[i] = fmt.Errorf("messages.Get %s failed: %w", msgID, err)
				return
			}

			messages[i] = toCanonical(msg)
		}(i, m.Id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, wrapErr(err)
		}
	}

	return messages, nil
}

// Send posts a minimal raw RFC-822 message through the raw-send endpoint.
func (a *Adapter) Send(ctx context.Context, token, to, subject, body string) (*model.SendResult, error) {
	svc, err := a.newSvc(ctx, token)
	if err != nil {
		return nil, wrapErr(err)
	}

	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body)

	sent, err := svc.Users.Messages.Send(gmailUserID, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr(fmt.Errorf("messages.Send failed: %w", err))
	}

	return &model.SendResult{
		MessageID: sent.Id,
		ThreadID:  sent.ThreadId,
	}, nil
}

func (a *Adapter) newSvc(ctx context.Context, token string) (*gmail.Service, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
	}, a.opts...)

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}

func toCanonical(msg *gmail.Message) model.EmailMessage {
	out := model.EmailMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  model.NoSubject,
		From:     model.UnknownAddress,
		To:       model.UnknownAddress,
		Preview:  msg.Snippet,
		Provider: model.ProviderGmail,
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "Subject":
				out.Subject = model.OrDefault(h.Value, model.NoSubject)
			case "From":
				out.From = model.OrDefault(h.Value, model.UnknownAddress)
			case "To":
				out.To = model.OrDefault(h.Value, model.UnknownAddress)
			case "Date":
				out.Date = h.Value
			}
		}
	}

	read := true
	for _, label := range msg.LabelIds {
		if label == "UNREAD" {
			read = false
			break
		}
	}
	out.Read = &read

	return out
}

func wrapErr(err error) error {
	ce := &provider.CallError{
		Provider: model.ProviderGmail,
		Message:  err.Error(),
		Err:      err,
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		ce.StatusCode = gerr.Code
		if gerr.Message != "" {
			ce.Message = gerr.Message
		}
	}

	return ce
}
