// Package credit holds the per-account credit ledger and its append-only
// transaction log. The ledger's cached balances are a convenience; the log
// is the source of truth, and Replay folds it back into the balances the
// ledger must carry.
package credit

import (
	"time"

	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/types"
)

type Ledger struct {
	types.Entity
	ID           id.LedgerID       `json:"id"`
	AccountID    string            `json:"account_id"`
	AppID        string            `json:"app_id"`
	TierKey      string            `json:"tier_key"`
	Balance      types.Credits     `json:"balance"`
	BonusCredits types.Credits     `json:"bonus_credits"`
	CycleResetAt time.Time         `json:"cycle_reset_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type Kind string

const (
	KindDebit  Kind = "debit"
	KindGrant  Kind = "grant"
	KindRefund Kind = "refund"
	KindReset  Kind = "reset"
	KindAudit  Kind = "audit"
)

// Transaction is one immutable entry in a ledger's log. Deltas are signed:
// debits carry negative deltas, grants and refunds positive ones. Audit
// entries record unlimited-tier operations with zero deltas.
type Transaction struct {
	ID           id.TransactionID `json:"id"`
	LedgerID     id.LedgerID      `json:"ledger_id"`
	AccountID    string           `json:"account_id"`
	AppID        string           `json:"app_id"`
	Operation    string           `json:"operation,omitempty"`
	Kind         Kind             `json:"kind"`
	BalanceDelta types.Credits    `json:"balance_delta"`
	BonusDelta   types.Credits    `json:"bonus_delta"`
	Description  string           `json:"description,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Replay folds a transaction log from zero into the (balance, bonus) pair
// the owning ledger should be carrying.
func Replay(txns []*Transaction) (balance, bonus types.Credits) {
	for _, txn := range txns {
		balance = balance.Add(txn.BalanceDelta)
		bonus = bonus.Add(txn.BonusDelta)
	}
	return balance, bonus
}

// Verify replays txns and compares the result against the ledger's cached
// balances. A mismatch is reported, never repaired.
func (l *Ledger) Verify(txns []*Transaction) (balance, bonus types.Credits, ok bool) {
	balance, bonus = Replay(txns)
	return balance, bonus, balance == l.Balance && bonus == l.BonusCredits
}

// Available is the total the account can spend right now.
func (l *Ledger) Available() types.Credits {
	return l.Balance.Add(l.BonusCredits)
}

// Summary is the read-model handed to callers asking about an account's
// credit position.
type Summary struct {
	AccountID        string        `json:"account_id"`
	TierKey          string        `json:"tier_key"`
	Balance          types.Credits `json:"balance"`
	BonusCredits     types.Credits `json:"bonus_credits"`
	MonthlyAllowance types.Credits `json:"monthly_allowance"`
	Unlimited        bool          `json:"unlimited"`
	CycleResetAt     time.Time     `json:"cycle_reset_at"`
	DaysUntilReset   int           `json:"days_until_reset"`
}

// SplitDebit divides a total debit into the allowance part and the bonus
// part, consuming allowance balance first. The caller is responsible for
// having checked affordability; a shortfall here leaves the remainder on
// the bonus side going negative, which storage drivers must reject.
func SplitDebit(balance, bonus, total types.Credits) (fromBalance, fromBonus types.Credits) {
	if total <= balance {
		return total, 0
	}
	return balance, total.Sub(balance)
}
