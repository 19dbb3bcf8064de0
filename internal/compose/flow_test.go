package compose_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croftd/mailbridge-mcp/internal/compose"
	"github.com/croftd/mailbridge-mcp/internal/llm"
	"github.com/croftd/mailbridge-mcp/internal/model"
	"github.com/croftd/mailbridge-mcp/internal/provider"
)

const draftText = "To: a@example.com\nSubject: Hi\n\nHello,\n\nHello\n\nBest regards"

type composerMock struct {
	composeFunc func(ctx context.Context, request string) (string, error)
	extractFunc func(ctx context.Context, draftText string) (*model.DraftEmail, error)
}

func (c *composerMock) Compose(ctx context.Context, request string) (string, error) {
	return c.composeFunc(ctx, request)
}

func (c *composerMock) Extract(ctx context.Context, text string) (*model.DraftEmail, error) {
	return c.extractFunc(ctx, text)
}

type listerMock struct {
	accounts []model.Account
	err      error
}

func (l *listerMock) List(context.Context, string) ([]model.Account, error) {
	return l.accounts, l.err
}

type refresherMock struct{}

func (refresherMock) EnsureFresh(_ context.Context, account *model.Account) string {
	return account.AccessToken
}

type sendCall struct {
	token, to, subject, body string
}

type adapterMock struct {
	calls   []sendCall
	sendErr error
}

func (a *adapterMock) Search(context.Context, string, string, int64) ([]model.EmailMessage, error) {
	return nil, errors.New("not used")
}

func (a *adapterMock) Send(_ context.Context, token, to, subject, body string) (*model.SendResult, error) {
	a.calls = append(a.calls, sendCall{token: token, to: to, subject: subject, body: body})
	if a.sendErr != nil {
		return nil, a.sendErr
	}
	return &model.SendResult{MessageID: "sent-1"}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func extractingDraft(draft *model.DraftEmail) *composerMock {
	return &composerMock{
		composeFunc: func(_ context.Context, request string) (string, error) {
			return draftText, nil
		},
		extractFunc: func(context.Context, string) (*model.DraftEmail, error) {
			return draft, nil
		},
	}
}

func accounts() []model.Account {
	return []model.Account{
		{ID: "1", Provider: model.ProviderGmail, EmailAddress: "me@gmail.com", AccessToken: "tok-gmail"},
		{ID: "2", Provider: model.ProviderOutlook, EmailAddress: "me@outlook.com", AccessToken: "tok-outlook"},
	}
}

func TestIsConfirmation(t *testing.T) {
	cases := []struct {
		input    string
		confirms bool
	}{
		{"Yes", true},
		{" confirm ", true},
		{"YES", true},
		{"yes please", false},
		{"send it", false},
		{"", false},
		{"no", false},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.confirms, compose.IsConfirmation(tc.input))
		})
	}
}

func TestHandleDraftsOnNewRequest(t *testing.T) {
	gmail := &adapterMock{}
	flow := compose.NewFlow(
		extractingDraft(nil),
		&listerMock{accounts: accounts()},
		refresherMock{},
		map[model.Provider]provider.Adapter{model.ProviderGmail: gmail},
		quietLogger(),
	)

	reply, err := flow.Handle(context.Background(), "owner-1", nil, "email a@example.com saying hello", "")
	require.NoError(t, err)

	assert.Contains(t, reply, "To: a@example.com")
	assert.Contains(t, reply, "Subject: Hi")
	assert.Contains(t, reply, `Reply "yes" or "confirm" to send`)
	assert.Empty(t, gmail.calls, "drafting must not send")
}

func TestHandleConfirmWithoutDraft(t *testing.T) {
	gmail := &adapterMock{}
	flow := compose.NewFlow(
		extractingDraft(&model.DraftEmail{To: "a@example.com"}),
		&listerMock{accounts: accounts()},
		refresherMock{},
		map[model.Provider]provider.Adapter{model.ProviderGmail: gmail},
		quietLogger(),
	)

	history := []model.ConversationTurn{
		{Role: model.RoleUser, Text: "hello"},
	}

	reply, err := flow.Handle(context.Background(), "owner-1", history, "yes", "")
	require.NoError(t, err)

	assert.Contains(t, reply, "no drafted email")
	assert.Empty(t, gmail.calls)
}

func TestHandleConfirmExtractionSentinel(t *testing.T) {
	gmail := &adapterMock{}
	comp := &composerMock{
		extractFunc: func(context.Context, string) (*model.DraftEmail, error) {
			return nil, llm.ErrNoEmailFound
		},
	}
	flow := compose.NewFlow(
		comp,
		&listerMock{accounts: accounts()},
		refresherMock{},
		map[model.Provider]provider.Adapter{model.ProviderGmail: gmail},
		quietLogger(),
	)

	history := []model.ConversationTurn{
		{Role: model.RoleAssistant, Text: "I can help with many things"},
	}

	reply, err := flow.Handle(context.Background(), "owner-1", history, "confirm", "")
	require.NoError(t, err)

	assert.Contains(t, reply, "nothing was sent")
	assert.Empty(t, gmail.calls)
}

func TestHandleConfirmSendsExtractedDraft(t *testing.T) {
	gmail := &adapterMock{}

	var extracted string
	comp := &composerMock{
		extractFunc: func(_ context.Context, text string) (*model.DraftEmail, error) {
			extracted = text
			return &model.DraftEmail{To: "a@example.com", Subject: "Hi", Body: "Hello"}, nil
		},
	}

	flow := compose.NewFlow(
		comp,
		&listerMock{accounts: accounts()},
		refresherMock{},
		map[model.Provider]provider.Adapter{model.ProviderGmail: gmail},
		quietLogger(),
	)

	history := []model.ConversationTurn{
		{Role: model.RoleUser, Text: "email a@example.com"},
		{Role: model.RoleAssistant, Text: draftText},
		{Role: model.RoleUser, Text: "wait"},
		{Role: model.RoleAssistant, Text: draftText + " v2"},
	}

	reply, err := flow.Handle(context.Background(), "owner-1", history, "confirm", "")
	require.NoError(t, err)

	assert.Equal(t, draftText+" v2", extracted, "extraction reads the most recent assistant turn")

	require.Len(t, gmail.calls, 1)
	call := gmail.calls[0]
	assert.Equal(t, "tok-gmail", call.token)
	assert.Equal(t, "a@example.com", call.to)
	assert.Equal(t, "Hi", call.subject)
	assert.Equal(t, "Hello", call.body)

	assert.Contains(t, reply, "a@example.com")
	assert.Contains(t, reply, "Hi")
	assert.Contains(t, reply, "Hello")
}

func TestHandleConfirmHonorsProviderFilter(t *testing.T) {
	gmail := &adapterMock{}
	outlook := &adapterMock{}

	flow := compose.NewFlow(
		extractingDraft(&model.DraftEmail{To: "a@example.com", Subject: "Hi", Body: "Hello"}),
		&listerMock{accounts: accounts()},
		refresherMock{},
		map[model.Provider]provider.Adapter{
			model.ProviderGmail:   gmail,
			model.ProviderOutlook: outlook,
		},
		quietLogger(),
	)

	history := []model.ConversationTurn{{Role: model.RoleAssistant, Text: draftText}}

	_, err := flow.Handle(context.Background(), "owner-1", history, "yes", model.ProviderOutlook)
	require.NoError(t, err)

	assert.Empty(t, gmail.calls)
	require.Len(t, outlook.calls, 1)
	assert.Equal(t, "tok-outlook", outlook.calls[0].token)
}

func TestHandleSendFailure(t *testing.T) {
	gmail := &adapterMock{
		sendErr: &provider.CallError{Provider: model.ProviderGmail, StatusCode: 403, Message: "quota exceeded"},
	}

	flow := compose.NewFlow(
		extractingDraft(&model.DraftEmail{To: "a@example.com", Subject: "Hi", Body: "Hello"}),
		&listerMock{accounts: accounts()},
		refresherMock{},
		map[model.Provider]provider.Adapter{model.ProviderGmail: gmail},
		quietLogger(),
	)

	history := []model.ConversationTurn{{Role: model.RoleAssistant, Text: draftText}}

	reply, err := flow.Handle(context.Background(), "owner-1", history, "yes", "")
	require.NoError(t, err, "send failure is reported in the reply, not raised")

	assert.Contains(t, reply, "send failed:")
	assert.Contains(t, reply, "quota exceeded")
}

func TestHandleNoEligibleAccount(t *testing.T) {
	flow := compose.NewFlow(
		extractingDraft(&model.DraftEmail{To: "a@example.com"}),
		&listerMock{accounts: []model.Account{{ID: "1", Provider: model.ProviderGmail}}},
		refresherMock{},
		map[model.Provider]provider.Adapter{},
		quietLogger(),
	)

	history := []model.ConversationTurn{{Role: model.RoleAssistant, Text: draftText}}

	reply, err := flow.Handle(context.Background(), "owner-1", history, "yes", model.ProviderOutlook)
	require.NoError(t, err)

	assert.Contains(t, reply, "No connected outlook account")
}
