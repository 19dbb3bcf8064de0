// Package search fans a query out across every eligible account and merges
// the per-account results into one date-ordered list.
package search

import (
	"context"
	"net/mail"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/croftd/mailbridge-mcp/internal/model"
	"github.com/croftd/mailbridge-mcp/internal/provider"
)

type accountLister interface {
	List(ctx context.Context, ownerID string) ([]model.Account, error)
}

type tokenRefresher interface {
	EnsureFresh(ctx context.Context, account *model.Account) string
}

// AccountStatus reports one eligible account's connection metadata and
// outcome, present whether or not the account returned results.
type AccountStatus struct {
	Provider     model.Provider `json:"provider"`
	EmailAddress string         `json:"email_address"`
	OK           bool           `json:"ok"`
	Error        string         `json:"error,omitempty"`
}

// Result is the merged outcome of a fan-out search. Total counts matches
// before truncation to the requested maximum.
type Result struct {
	Messages []model.EmailMessage `json:"messages"`
	Total    int                  `json:"total"`
	Accounts []AccountStatus      `json:"accounts"`
	Note     string               `json:"note,omitempty"`
}

// Aggregator dispatches searches across connected accounts.
type Aggregator struct {
	store     accountLister
	refresher tokenRefresher
	adapters  map[model.Provider]provider.Adapter
	log       *logrus.Logger
}

// NewAggregator creates an Aggregator over the given adapters.
func NewAggregator(store accountLister, refresher tokenRefresher, adapters map[model.Provider]provider.Adapter, log *logrus.Logger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{
		store:     store,
		refresher: refresher,
		adapters:  adapters,
		log:       log,
	}
}

// Search runs the query on every account owned by ownerID, narrowed to filter
// when non-empty. A single account's failure never fails the aggregate: the
// account is reported as failed and contributes no messages. Only a store
// failure is an error.
func (a *Aggregator) Search(ctx context.Context, ownerID, query string, maxResults int64, filter model.Provider) (*Result, error) {
	accounts, err := a.store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	eligible := make([]model.Account, 0, len(accounts))
	for _, acct := range accounts {
		if filter != "" && acct.Provider != filter {
			continue
		}
		eligible = append(eligible, acct)
	}

	if len(eligible) == 0 {
		note := "no connected email accounts"
		if filter != "" {
			note = "no connected " + string(filter) + " account"
		}
		return &Result{
			Messages: []model.EmailMessage{},
			Accounts: []AccountStatus{},
			Note:     note,
		}, nil
	}

	statuses := make([]AccountStatus, len(eligible))
	perAccount := make([][]model.EmailMessage, len(eligible))

	var wg sync.WaitGroup
	for i := range eligible {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			acct := eligible[i]
			statuses[i] = AccountStatus{
				Provider:     acct.Provider,
				EmailAddress: acct.EmailAddress,
			}

			adapter, ok := a.adapters[acct.Provider]
			if !ok {
				statuses[i].Error = "no adapter registered for provider " + string(acct.Provider)
				return
			}

			token := a.refresher.EnsureFresh(ctx, &acct)

			messages, err := adapter.Search(ctx, token, query, maxResults)
			if err != nil {
				a.log.WithFields(logrus.Fields{
					"provider": acct.Provider,
					"account":  acct.EmailAddress,
				}).WithError(err).Warn("account search failed, excluding from results")
				statuses[i].Error = err.Error()
				return
			}

			statuses[i].OK = true
			perAccount[i] = messages
		}(i)
	}
	wg.Wait()

	merged := make([]model.EmailMessage, 0)
	for _, messages := range perAccount {
		merged = append(merged, messages...)
	}

	sortByDateDesc(merged)

	total := len(merged)
	if int64(len(merged)) > maxResults {
		merged = merged[:maxResults]
	}

	return &Result{
		Messages: merged,
		Total:    total,
		Accounts: statuses,
	}, nil
}

// sortByDateDesc orders newest first. Messages whose date cannot be parsed
// sort last, keeping their relative order.
func sortByDateDesc(messages []model.EmailMessage) {
	type keyed struct {
		msg model.EmailMessage
		ts  time.Time
		ok  bool
	}

	decorated := make([]keyed, len(messages))
	for i, m := range messages {
		ts, err := parseDate(m.Date)
		decorated[i] = keyed{msg: m, ts: ts, ok: err == nil}
	}

	sort.SliceStable(decorated, func(i, j int) bool {
		ki, kj := decorated[i], decorated[j]
		switch {
		case ki.ok && kj.ok:
			return ki.ts.After(kj.ts)
		case ki.ok:
			return true
		default:
			return false
		}
	})

	for i, k := range decorated {
		messages[i] = k.msg
	}
}

func parseDate(s string) (time.Time, error) {
	if ts, err := mail.ParseDate(s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}
