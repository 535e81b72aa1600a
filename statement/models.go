// Package statement produces read-only per-cycle credit usage summaries,
// computed from a ledger's transaction log.
package statement

import (
	"sort"
	"time"

	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/types"
)

type Statement struct {
	types.Entity
	ID             id.StatementID `json:"id"`
	AccountID      string         `json:"account_id"`
	AppID          string         `json:"app_id"`
	PeriodStart    time.Time      `json:"period_start"`
	PeriodEnd      time.Time      `json:"period_end"`
	OpeningBalance types.Credits  `json:"opening_balance"`
	ClosingBalance types.Credits  `json:"closing_balance"`
	TotalDebited   types.Credits  `json:"total_debited"`
	TotalGranted   types.Credits  `json:"total_granted"`
	LineItems      []LineItem     `json:"line_items"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// LineItem rolls up one operation's usage across the period.
type LineItem struct {
	ID          id.LineItemID  `json:"id"`
	StatementID id.StatementID `json:"statement_id"`
	Operation   string         `json:"operation"`
	Runs        int64          `json:"runs"`
	Credits     types.Credits  `json:"credits"`
}

// Build computes the period's totals and per-operation line items from the
// ledger's transactions within [periodStart, periodEnd). opening is the
// combined balance at the period start. Refunds reduce an operation's
// debited total; grants and resets never produce line items.
func Build(accountID, appID string, periodStart, periodEnd time.Time, opening types.Credits, txns []*credit.Transaction) *Statement {
	stmt := &Statement{
		ID:             id.NewStatementID(),
		AccountID:      accountID,
		AppID:          appID,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		OpeningBalance: opening,
		GeneratedAt:    time.Now().UTC(),
	}
	stmt.Entity = types.NewEntity()

	type rollup struct {
		runs    int64
		credits types.Credits
	}
	byOp := make(map[string]*rollup)

	closing := opening
	for _, txn := range txns {
		if txn.Timestamp.Before(periodStart) || !txn.Timestamp.Before(periodEnd) {
			continue
		}
		delta := txn.BalanceDelta.Add(txn.BonusDelta)
		closing = closing.Add(delta)

		switch txn.Kind {
		case credit.KindDebit:
			spent := delta.Negate()
			stmt.TotalDebited = stmt.TotalDebited.Add(spent)
			r := byOp[txn.Operation]
			if r == nil {
				r = &rollup{}
				byOp[txn.Operation] = r
			}
			r.runs++
			r.credits = r.credits.Add(spent)
		case credit.KindRefund:
			stmt.TotalDebited = stmt.TotalDebited.Sub(delta)
			if r := byOp[txn.Operation]; r != nil {
				r.credits = r.credits.Sub(delta)
			}
		case credit.KindGrant, credit.KindReset:
			stmt.TotalGranted = stmt.TotalGranted.Add(delta)
		}
	}
	stmt.ClosingBalance = closing

	ops := make([]string, 0, len(byOp))
	for op := range byOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		r := byOp[op]
		stmt.LineItems = append(stmt.LineItems, LineItem{
			ID:          id.NewLineItemID(),
			StatementID: stmt.ID,
			Operation:   op,
			Runs:        r.runs,
			Credits:     r.credits,
		})
	}
	return stmt
}
