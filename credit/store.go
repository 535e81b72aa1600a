package credit

import (
	"context"
	"time"

	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/types"
)

// Store persists ledgers and their transaction logs. Debit must be atomic:
// when two concurrent debits compete for funds that only cover one, exactly
// one may succeed. Drivers enforce this with an optimistic-concurrency
// update on the cached balances.
type Store interface {
	CreateLedger(ctx context.Context, l *Ledger) error
	GetLedger(ctx context.Context, ledgerID id.LedgerID) (*Ledger, error)
	GetLedgerByAccount(ctx context.Context, accountID, appID string) (*Ledger, error)
	UpdateLedger(ctx context.Context, l *Ledger) error

	// Debit atomically consumes total credits, allowance balance first,
	// appending the debit transaction in the same step. It fails without
	// side effects when the ledger cannot cover total.
	Debit(ctx context.Context, ledgerID id.LedgerID, operation string, total types.Credits, description string) (*Transaction, error)

	// Grant adds amount to the bonus pool and appends a grant transaction.
	Grant(ctx context.Context, ledgerID id.LedgerID, amount types.Credits, description string) (*Transaction, error)

	// Refund returns amount to the pool it was debited from, bonus first,
	// mirroring the debit split in reverse.
	Refund(ctx context.Context, ledgerID id.LedgerID, operation string, amount types.Credits, description string) (*Transaction, error)

	// Reset sets the allowance balance to allowance, leaves the bonus pool
	// untouched, advances CycleResetAt to nextReset and appends a reset
	// transaction whose balance delta is the difference.
	Reset(ctx context.Context, ledgerID id.LedgerID, allowance types.Credits, nextReset time.Time) (*Transaction, error)

	// AppendTransaction appends a caller-built transaction verbatim. The engine
	// uses it for opening grants and for unlimited-tier audit entries.
	AppendTransaction(ctx context.Context, txn *Transaction) error

	ListTransactions(ctx context.Context, ledgerID id.LedgerID, opts TxnListOpts) ([]*Transaction, error)

	// ListDueForReset returns ledgers whose CycleResetAt is at or before now.
	ListDueForReset(ctx context.Context, now time.Time, limit int) ([]*Ledger, error)
}

type TxnListOpts struct {
	Kind   Kind
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
