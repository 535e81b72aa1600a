package credit_test

import (
	"testing"

	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/types"
)

func txn(kind credit.Kind, balanceDelta, bonusDelta types.Credits) *credit.Transaction {
	return &credit.Transaction{Kind: kind, BalanceDelta: balanceDelta, BonusDelta: bonusDelta}
}

func TestReplay(t *testing.T) {
	tests := []struct {
		name        string
		txns        []*credit.Transaction
		wantBalance types.Credits
		wantBonus   types.Credits
	}{
		{
			name: "empty log",
		},
		{
			name: "opening grant only",
			txns: []*credit.Transaction{
				txn(credit.KindGrant, 100, 0),
			},
			wantBalance: 100,
		},
		{
			name: "grant then debits",
			txns: []*credit.Transaction{
				txn(credit.KindGrant, 100, 0),
				txn(credit.KindDebit, -15, 0),
				txn(credit.KindDebit, -10, 0),
			},
			wantBalance: 75,
		},
		{
			name: "debit spilling into bonus",
			txns: []*credit.Transaction{
				txn(credit.KindGrant, 20, 0),
				txn(credit.KindGrant, 0, 30),
				txn(credit.KindDebit, -20, -5),
			},
			wantBalance: 0,
			wantBonus:   25,
		},
		{
			name: "reset tops balance back to allowance",
			txns: []*credit.Transaction{
				txn(credit.KindGrant, 100, 0),
				txn(credit.KindDebit, -60, 0),
				txn(credit.KindReset, 60, 0),
			},
			wantBalance: 100,
		},
		{
			name: "refund lands on bonus side",
			txns: []*credit.Transaction{
				txn(credit.KindGrant, 0, 50),
				txn(credit.KindDebit, 0, -10),
				txn(credit.KindRefund, 0, 10),
			},
			wantBonus: 50,
		},
		{
			name: "audit entries are inert",
			txns: []*credit.Transaction{
				txn(credit.KindGrant, 40, 0),
				txn(credit.KindAudit, 0, 0),
				txn(credit.KindAudit, 0, 0),
			},
			wantBalance: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance, bonus := credit.Replay(tt.txns)
			if balance != tt.wantBalance || bonus != tt.wantBonus {
				t.Errorf("Replay() = (%d, %d), want (%d, %d)",
					balance, bonus, tt.wantBalance, tt.wantBonus)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	txns := []*credit.Transaction{
		txn(credit.KindGrant, 100, 0),
		txn(credit.KindDebit, -30, 0),
	}

	l := &credit.Ledger{Balance: 70, BonusCredits: 0}
	if _, _, ok := l.Verify(txns); !ok {
		t.Error("consistent ledger failed verification")
	}

	drifted := &credit.Ledger{Balance: 75, BonusCredits: 0}
	balance, bonus, ok := drifted.Verify(txns)
	if ok {
		t.Error("drifted ledger passed verification")
	}
	if balance != 70 || bonus != 0 {
		t.Errorf("replayed = (%d, %d), want (70, 0)", balance, bonus)
	}
}

func TestSplitDebit(t *testing.T) {
	tests := []struct {
		name            string
		balance, bonus  types.Credits
		total           types.Credits
		wantFromBalance types.Credits
		wantFromBonus   types.Credits
	}{
		{name: "balance covers all", balance: 50, bonus: 20, total: 30, wantFromBalance: 30},
		{name: "exact balance", balance: 30, bonus: 20, total: 30, wantFromBalance: 30},
		{name: "spills into bonus", balance: 30, bonus: 20, total: 45, wantFromBalance: 30, wantFromBonus: 15},
		{name: "balance empty", balance: 0, bonus: 20, total: 15, wantFromBonus: 15},
		{name: "zero total", balance: 10, bonus: 10, total: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fromBalance, fromBonus := credit.SplitDebit(tt.balance, tt.bonus, tt.total)
			if fromBalance != tt.wantFromBalance || fromBonus != tt.wantFromBonus {
				t.Errorf("SplitDebit(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.balance, tt.bonus, tt.total,
					fromBalance, fromBonus, tt.wantFromBalance, tt.wantFromBonus)
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	l := &credit.Ledger{Balance: 30, BonusCredits: 12}
	if got := l.Available(); got != 42 {
		t.Errorf("Available() = %d, want 42", got)
	}
}
