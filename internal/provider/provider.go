// Package provider defines the capability set every mail provider adapter
// implements, plus the attributable error type adapters fail with.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/croftd/mailbridge-mcp/internal/model"
)

// Adapter translates canonical search/send requests into one provider's wire
// calls and the responses back into the canonical model.
type Adapter interface {
	Search(ctx context.Context, token, query string, maxResults int64) ([]model.EmailMessage, error)
	Send(ctx context.Context, token, to, subject, body string) (*model.SendResult, error)
}

// CallError is a failed upstream provider call. It always names the provider
// so the aggregator can attribute and isolate per-account failures.
type CallError struct {
	Provider   model.Provider
	StatusCode int
	Message    string
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s call failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s call failed: %s", e.Provider, e.Message)
}

func (e *CallError) Unwrap() error { return e.Err }

// AsCallError unwraps err into a *CallError when it is one.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
