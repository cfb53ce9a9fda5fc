// Package pledges consumes flag events and maintains the donor ledger.
// Charge execution (Stripe) lives outside this system; the ledger only
// tracks what each donor has accrued.
package pledges

import (
	"context"
	"log/slog"
	"time"

	"github.com/pledgewatch/pledgewatch/internal/store"
)

// Ledger accrues per-post pledge amounts. It implements the orchestrator's
// FlagSink.
type Ledger struct {
	store *store.Store
}

// NewLedger creates a ledger over the store
func NewLedger(st *store.Store) *Ledger {
	return &Ledger{store: st}
}

// PostFlagged records one flag event and accrues every active pledge
func (l *Ledger) PostFlagged(ctx context.Context, postID string) error {
	if err := l.store.RecordFlagEvent(ctx, postID, time.Now()); err != nil {
		return err
	}
	slog.Info("flag event recorded", "post", postID)
	return nil
}

// Totals summarizes the ledger for the stats command
type Totals struct {
	ActivePledges int   `json:"active_pledges"`
	FlagEvents    int64 `json:"flag_events"`
	AccruedCents  int64 `json:"accrued_cents"`
}

// Totals reports current ledger state
func (l *Ledger) Totals(ctx context.Context) (*Totals, error) {
	pledges, err := l.store.ListPledges(ctx)
	if err != nil {
		return nil, err
	}
	events, err := l.store.CountFlagEvents(ctx)
	if err != nil {
		return nil, err
	}

	t := &Totals{FlagEvents: events}
	for _, p := range pledges {
		t.AccruedCents += p.AccruedCents
		if p.Active {
			t.ActivePledges++
		}
	}
	return t, nil
}
