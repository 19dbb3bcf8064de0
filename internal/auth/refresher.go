// Package auth implements the token lifecycle policy for connected accounts.
package auth

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/croftd/mailbridge-mcp/internal/model"
)

// expirySkew is how close to expiry a token may get before a refresh is due.
const expirySkew = 5 * time.Minute

type accountStore interface {
	Upsert(ctx context.Context, account model.Account) error
}

// Refresher refreshes provider access tokens shortly before they expire and
// persists the result through the account store.
type Refresher struct {
	store     accountStore
	google    *oauth2.Config
	microsoft *oauth2.Config
	log       *logrus.Logger
	now       func() time.Time
}

// NewRefresher creates a Refresher. google and microsoft carry the per-provider
// client credentials and token endpoints used for the refresh exchange.
func NewRefresher(store accountStore, google, microsoft *oauth2.Config, log *logrus.Logger) *Refresher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Refresher{
		store:     store,
		google:    google,
		microsoft: microsoft,
		log:       log,
		now:       time.Now,
	}
}

// EnsureFresh returns a usable access token for the account, refreshing it
// first when it expires within the skew window. Refresh failures are not
// errors: the current token is returned as-is and the subsequent provider
// call surfaces the real failure. The account copy is updated in place on a
// successful refresh. No locking; concurrent redundant refreshes are a benign
// last-writer-wins race.
func (r *Refresher) EnsureFresh(ctx context.Context, account *model.Account) string {
	if account.ExpiresAt.Sub(r.now()) >= expirySkew {
		return account.AccessToken
	}

	fields := logrus.Fields{
		"provider": account.Provider,
		"account":  account.EmailAddress,
	}

	cfg := r.configFor(account.Provider)
	if cfg == nil {
		r.log.WithFields(fields).Warn("no oauth config for provider, keeping current token")
		return account.AccessToken
	}

	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		r.log.WithFields(fields).WithError(err).Warn("token refresh failed, keeping current token")
		return account.AccessToken
	}

	account.AccessToken = tok.AccessToken
	account.ExpiresAt = tok.Expiry
	// Providers normally keep the refresh token stable; adopt a new one only
	// when the exchange rotated it.
	if tok.RefreshToken != "" {
		account.RefreshToken = tok.RefreshToken
	}

	if err := r.store.Upsert(ctx, *account); err != nil {
		r.log.WithFields(fields).WithError(err).Warn("persisting refreshed token failed")
	}

	return account.AccessToken
}

func (r *Refresher) configFor(p model.Provider) *oauth2.Config {
	switch p {
	case model.ProviderGmail:
		return r.google
	case model.ProviderOutlook:
		return r.microsoft
	default:
		return nil
	}
}
