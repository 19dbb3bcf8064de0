// Package model defines the provider-agnostic shapes shared across the server.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a mail provider an account is connected through.
type Provider string

const (
	// ProviderGmail is the Gmail REST API provider.
	ProviderGmail Provider = "gmail"
	// ProviderOutlook is the Microsoft Graph provider.
	ProviderOutlook Provider = "outlook"
)

// ParseProvider normalizes a user-supplied provider name. The empty string is
// valid and means "no filter".
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case string(ProviderGmail):
		return ProviderGmail, nil
	case string(ProviderOutlook):
		return ProviderOutlook, nil
	default:
		return "", fmt.Errorf("unknown provider %q (expected gmail or outlook)", s)
	}
}

// Account is one authorized mail identity on one provider. The account store
// owns these records; everything else holds short-lived copies.
type Account struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"`
	Provider     Provider       `json:"provider"`
	EmailAddress string         `json:"email_address"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	Profile      map[string]any `json:"profile,omitempty"`
}

// Defaults substituted when a provider omits a field.
const (
	NoSubject      = "No Subject"
	UnknownAddress = "Unknown"
)

// EmailMessage is the canonical message shape produced by provider adapters.
// Immutable once constructed; missing provider fields are defaulted, never
// left empty.
type EmailMessage struct {
	ID       string   `json:"id" jsonschema:"provider message ID"`
	ThreadID string   `json:"thread_id,omitempty" jsonschema:"provider thread ID"`
	Subject  string   `json:"subject" jsonschema:"email subject"`
	From     string   `json:"from" jsonschema:"sender address"`
	To       string   `json:"to" jsonschema:"recipient address"`
	Date     string   `json:"date" jsonschema:"provider-reported date"`
	Preview  string   `json:"preview,omitempty" jsonschema:"short body preview"`
	Provider Provider `json:"provider" jsonschema:"originating provider"`
	Read     *bool    `json:"read,omitempty" jsonschema:"read flag when known"`
}

// ConversationTurn is one entry of the externally held chat history.
type ConversationTurn struct {
	Role string `json:"role" jsonschema:"user or assistant"`
	Text string `json:"text" jsonschema:"turn text"`
}

// Roles used in ConversationTurn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DraftEmail is the ephemeral structured form of a drafted message. It lives
// only between composition and send-or-abort and is never persisted.
type DraftEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendResult reports the outcome of a provider send. MessageID is synthetic
// when the provider returns no body on success.
type SendResult struct {
	MessageID string `json:"message_id,omitempty"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// OrDefault returns s, or def when s is empty or whitespace.
func OrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
