// Package compose orchestrates the draft, confirm, re-extract, send protocol.
// The flow holds no state of its own: each call reconstructs where the
// conversation stands from the supplied history and the current message.
package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/croftd/mailbridge-mcp/internal/llm"
	"github.com/croftd/mailbridge-mcp/internal/model"
	"github.com/croftd/mailbridge-mcp/internal/provider"
)

// confirmPrompt trails every emitted draft so the user knows how to authorize
// the send.
const confirmPrompt = `Reply "yes" or "confirm" to send this email.`

// confirmTokens is the full set of replies treated as confirmation, compared
// trimmed and case-insensitively. Nothing else confirms.
var confirmTokens = map[string]struct{}{
	"yes":     {},
	"confirm": {},
}

type composer interface {
	Compose(ctx context.Context, request string) (string, error)
	Extract(ctx context.Context, draftText string) (*model.DraftEmail, error)
}

type accountLister interface {
	List(ctx context.Context, ownerID string) ([]model.Account, error)
}

type tokenRefresher interface {
	EnsureFresh(ctx context.Context, account *model.Account) string
}

// Flow runs the send-confirmation protocol.
type Flow struct {
	llm       composer
	store     accountLister
	refresher tokenRefresher
	adapters  map[model.Provider]provider.Adapter
	log       *logrus.Logger
}

// NewFlow creates a Flow over the given adapters.
func NewFlow(llm composer, store accountLister, refresher tokenRefresher, adapters map[model.Provider]provider.Adapter, log *logrus.Logger) *Flow {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Flow{
		llm:       llm,
		store:     store,
		refresher: refresher,
		adapters:  adapters,
		log:       log,
	}
}

// Handle advances the protocol one turn. A non-confirming message starts (or
// restarts) drafting; a confirming one re-extracts the latest draft and
// dispatches it. The returned string is always a user-facing reply; an error
// is returned only when no meaningful reply exists (composition or store
// failure).
func (f *Flow) Handle(ctx context.Context, ownerID string, history []model.ConversationTurn, userMessage string, filter model.Provider) (string, error) {
	if !IsConfirmation(userMessage) {
		draft, err := f.llm.Compose(ctx, userMessage)
		if err != nil {
			return "", fmt.Errorf("drafting email failed: %w", err)
		}
		return draft + "\n\n" + confirmPrompt, nil
	}

	lastDraft, ok := lastAssistantTurn(history)
	if !ok {
		return "There is no drafted email to confirm. Ask me to compose one first.", nil
	}

	draft, err := f.llm.Extract(ctx, lastDraft)
	if errors.Is(err, llm.ErrNoEmailFound) {
		return "I couldn't find an email draft in the conversation, so nothing was sent. Ask me to compose one first.", nil
	}
	if err != nil {
		f.log.WithError(err).Warn("draft extraction failed")
		return "I couldn't reliably read the drafted email back, so nothing was sent. Please ask me to compose it again.", nil
	}

	account, err := f.selectAccount(ctx, ownerID, filter)
	if err != nil {
		return "", err
	}
	if account == nil {
		if filter != "" {
			return "No connected " + string(filter) + " account is available to send from.", nil
		}
		return "No connected email account is available to send from.", nil
	}

	adapter, ok := f.adapters[account.Provider]
	if !ok {
		return "No adapter is registered for provider " + string(account.Provider) + ".", nil
	}

	token := f.refresher.EnsureFresh(ctx, account)

	result, err := adapter.Send(ctx, token, draft.To, draft.Subject, draft.Body)
	if err != nil {
		f.log.WithFields(logrus.Fields{
			"provider": account.Provider,
			"account":  account.EmailAddress,
		}).WithError(err).Warn("send failed")
		return "send failed: " + err.Error(), nil
	}

	f.log.WithFields(logrus.Fields{
		"provider":   account.Provider,
		"account":    account.EmailAddress,
		"message_id": result.MessageID,
	}).Info("email sent")

	return fmt.Sprintf("Email sent to %s.\n\nSubject: %s\n\n%s", draft.To, draft.Subject, draft.Body), nil
}

// IsConfirmation reports whether the message authorizes dispatch of the
// pending draft.
func IsConfirmation(message string) bool {
	_, ok := confirmTokens[strings.ToLower(strings.TrimSpace(message))]
	return ok
}

func lastAssistantTurn(history []model.ConversationTurn) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleAssistant {
			return history[i].Text, true
		}
	}
	return "", false
}

// selectAccount picks the requested provider's first matching account, or the
// first account overall when no provider is requested. nil means none match.
func (f *Flow) selectAccount(ctx context.Context, ownerID string, filter model.Provider) (*model.Account, error) {
	accounts, err := f.store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for i := range accounts {
		if filter == "" || accounts[i].Provider == filter {
			return &accounts[i], nil
		}
	}

	return nil, nil
}
