package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/promo"
	"github.com/xraph/adscore/statement"
	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/types"
)

// SQLite has no native JSON column type, so every structured field is
// serialized to a TEXT column by the converters below.

// ==================== Tier models ====================

type tierModel struct {
	grove.BaseModel `grove:"table:adscore_tiers"`

	ID               string          `grove:"id,pk"`
	Key              string          `grove:"key"`
	Name             string          `grove:"name"`
	Description      string          `grove:"description"`
	Status           string          `grove:"status"`
	MonthlyAllowance int64           `grove:"monthly_allowance"`
	Unlimited        bool            `grove:"unlimited"`
	Costs            json.RawMessage `grove:"costs"`
	AppID            string          `grove:"app_id"`
	Metadata         json.RawMessage `grove:"metadata"`
	CreatedAt        time.Time       `grove:"created_at"`
	UpdatedAt        time.Time       `grove:"updated_at"`
}

func toTierModel(t *tier.Tier) *tierModel {
	costs, _ := json.Marshal(t.Costs)       //nolint:errcheck // best-effort
	metadata, _ := json.Marshal(t.Metadata) //nolint:errcheck // best-effort

	return &tierModel{
		ID:               t.ID.String(),
		Key:              t.Key,
		Name:             t.Name,
		Description:      t.Description,
		Status:           string(t.Status),
		MonthlyAllowance: int64(t.MonthlyAllowance),
		Unlimited:        t.Unlimited,
		Costs:            costs,
		AppID:            t.AppID,
		Metadata:         metadata,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func fromTierModel(m *tierModel) (*tier.Tier, error) {
	tierID, err := id.ParseTierID(m.ID)
	if err != nil {
		return nil, err
	}

	var costs []tier.OperationCost
	if len(m.Costs) > 0 {
		_ = json.Unmarshal(m.Costs, &costs) //nolint:errcheck // best-effort
	}

	return &tier.Tier{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               tierID,
		Key:              m.Key,
		Name:             m.Name,
		Description:      m.Description,
		Status:           tier.Status(m.Status),
		MonthlyAllowance: types.Credits(m.MonthlyAllowance),
		Unlimited:        m.Unlimited,
		Costs:            costs,
		AppID:            m.AppID,
		Metadata:         unmarshalMetadata(m.Metadata),
	}, nil
}

// ==================== Ledger models ====================

type ledgerModel struct {
	grove.BaseModel `grove:"table:adscore_ledgers"`

	ID           string          `grove:"id,pk"`
	AccountID    string          `grove:"account_id"`
	AppID        string          `grove:"app_id"`
	TierKey      string          `grove:"tier_key"`
	Balance      int64           `grove:"balance"`
	BonusCredits int64           `grove:"bonus_credits"`
	CycleResetAt time.Time       `grove:"cycle_reset_at"`
	Metadata     json.RawMessage `grove:"metadata"`
	CreatedAt    time.Time       `grove:"created_at"`
	UpdatedAt    time.Time       `grove:"updated_at"`
}

func toLedgerModel(l *credit.Ledger) *ledgerModel {
	metadata, _ := json.Marshal(l.Metadata) //nolint:errcheck // best-effort

	return &ledgerModel{
		ID:           l.ID.String(),
		AccountID:    l.AccountID,
		AppID:        l.AppID,
		TierKey:      l.TierKey,
		Balance:      int64(l.Balance),
		BonusCredits: int64(l.BonusCredits),
		CycleResetAt: l.CycleResetAt,
		Metadata:     metadata,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func fromLedgerModel(m *ledgerModel) (*credit.Ledger, error) {
	ledgerID, err := id.ParseLedgerID(m.ID)
	if err != nil {
		return nil, err
	}

	return &credit.Ledger{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           ledgerID,
		AccountID:    m.AccountID,
		AppID:        m.AppID,
		TierKey:      m.TierKey,
		Balance:      types.Credits(m.Balance),
		BonusCredits: types.Credits(m.BonusCredits),
		CycleResetAt: m.CycleResetAt,
		Metadata:     unmarshalMetadata(m.Metadata),
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:adscore_transactions"`

	ID           string    `grove:"id,pk"`
	LedgerID     string    `grove:"ledger_id"`
	AccountID    string    `grove:"account_id"`
	AppID        string    `grove:"app_id"`
	Operation    string    `grove:"operation"`
	Kind         string    `grove:"kind"`
	BalanceDelta int64     `grove:"balance_delta"`
	BonusDelta   int64     `grove:"bonus_delta"`
	Description  string    `grove:"description"`
	Timestamp    time.Time `grove:"timestamp"`
}

func toTransactionModel(t *credit.Transaction) *transactionModel {
	return &transactionModel{
		ID:           t.ID.String(),
		LedgerID:     t.LedgerID.String(),
		AccountID:    t.AccountID,
		AppID:        t.AppID,
		Operation:    t.Operation,
		Kind:         string(t.Kind),
		BalanceDelta: int64(t.BalanceDelta),
		BonusDelta:   int64(t.BonusDelta),
		Description:  t.Description,
		Timestamp:    t.Timestamp,
	}
}

func fromTransactionModel(m *transactionModel) (*credit.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	ledgerID, err := id.ParseLedgerID(m.LedgerID)
	if err != nil {
		return nil, err
	}

	return &credit.Transaction{
		ID:           txnID,
		LedgerID:     ledgerID,
		AccountID:    m.AccountID,
		AppID:        m.AppID,
		Operation:    m.Operation,
		Kind:         credit.Kind(m.Kind),
		BalanceDelta: types.Credits(m.BalanceDelta),
		BonusDelta:   types.Credits(m.BonusDelta),
		Description:  m.Description,
		Timestamp:    m.Timestamp,
	}, nil
}

// ==================== Project models ====================

type projectModel struct {
	grove.BaseModel `grove:"table:adscore_projects"`

	ID             string          `grove:"id,pk"`
	AccountID      string          `grove:"account_id"`
	AppID          string          `grove:"app_id"`
	Name           string          `grove:"name"`
	Content        json.RawMessage `grove:"content"`
	EnabledTools   json.RawMessage `grove:"enabled_tools"`
	Status         string          `grove:"status"`
	ToolResults    json.RawMessage `grove:"tool_results"`
	OverallScore   *int            `grove:"overall_score"`
	LastAnalyzedAt *time.Time      `grove:"last_analyzed_at"`
	CompletedAt    *time.Time      `grove:"completed_at"`
	Metadata       json.RawMessage `grove:"metadata"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func toProjectModel(p *project.Project) *projectModel {
	content, _ := json.Marshal(p.Content)           //nolint:errcheck // best-effort
	enabledTools, _ := json.Marshal(p.EnabledTools) //nolint:errcheck // best-effort
	toolResults, _ := json.Marshal(p.ToolResults)   //nolint:errcheck // best-effort
	metadata, _ := json.Marshal(p.Metadata)         //nolint:errcheck // best-effort

	return &projectModel{
		ID:             p.ID.String(),
		AccountID:      p.AccountID,
		AppID:          p.AppID,
		Name:           p.Name,
		Content:        content,
		EnabledTools:   enabledTools,
		Status:         string(p.Status),
		ToolResults:    toolResults,
		OverallScore:   p.OverallScore,
		LastAnalyzedAt: p.LastAnalyzedAt,
		CompletedAt:    p.CompletedAt,
		Metadata:       metadata,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromProjectModel(m *projectModel) (*project.Project, error) {
	projectID, err := id.ParseProjectID(m.ID)
	if err != nil {
		return nil, err
	}

	var content project.Content
	if len(m.Content) > 0 {
		_ = json.Unmarshal(m.Content, &content) //nolint:errcheck // best-effort
	}

	var enabledTools []string
	if len(m.EnabledTools) > 0 {
		_ = json.Unmarshal(m.EnabledTools, &enabledTools) //nolint:errcheck // best-effort
	}

	var toolResults map[string]*project.ToolResult
	if len(m.ToolResults) > 0 && string(m.ToolResults) != "null" {
		_ = json.Unmarshal(m.ToolResults, &toolResults) //nolint:errcheck // best-effort
	}

	return &project.Project{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             projectID,
		AccountID:      m.AccountID,
		AppID:          m.AppID,
		Name:           m.Name,
		Content:        content,
		EnabledTools:   enabledTools,
		Status:         project.Status(m.Status),
		ToolResults:    toolResults,
		OverallScore:   m.OverallScore,
		LastAnalyzedAt: m.LastAnalyzedAt,
		CompletedAt:    m.CompletedAt,
		Metadata:       unmarshalMetadata(m.Metadata),
	}, nil
}

// ==================== Promo models ====================

type promoModel struct {
	grove.BaseModel `grove:"table:adscore_promos"`

	ID             string          `grove:"id,pk"`
	Code           string          `grove:"code"`
	Name           string          `grove:"name"`
	Credits        int64           `grove:"credits"`
	MaxRedemptions int             `grove:"max_redemptions"`
	TimesRedeemed  int             `grove:"times_redeemed"`
	ValidFrom      *time.Time      `grove:"valid_from"`
	ValidUntil     *time.Time      `grove:"valid_until"`
	AppID          string          `grove:"app_id"`
	Metadata       json.RawMessage `grove:"metadata"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func toPromoModel(p *promo.Promo) *promoModel {
	metadata, _ := json.Marshal(p.Metadata) //nolint:errcheck // best-effort

	return &promoModel{
		ID:             p.ID.String(),
		Code:           p.Code,
		Name:           p.Name,
		Credits:        int64(p.Credits),
		MaxRedemptions: p.MaxRedemptions,
		TimesRedeemed:  p.TimesRedeemed,
		ValidFrom:      p.ValidFrom,
		ValidUntil:     p.ValidUntil,
		AppID:          p.AppID,
		Metadata:       metadata,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPromoModel(m *promoModel) (*promo.Promo, error) {
	promoID, err := id.ParsePromoID(m.ID)
	if err != nil {
		return nil, err
	}

	return &promo.Promo{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             promoID,
		Code:           m.Code,
		Name:           m.Name,
		Credits:        types.Credits(m.Credits),
		MaxRedemptions: m.MaxRedemptions,
		TimesRedeemed:  m.TimesRedeemed,
		ValidFrom:      m.ValidFrom,
		ValidUntil:     m.ValidUntil,
		AppID:          m.AppID,
		Metadata:       unmarshalMetadata(m.Metadata),
	}, nil
}

// ==================== Statement models ====================

type statementModel struct {
	grove.BaseModel `grove:"table:adscore_statements"`

	ID             string          `grove:"id,pk"`
	AccountID      string          `grove:"account_id"`
	AppID          string          `grove:"app_id"`
	PeriodStart    time.Time       `grove:"period_start"`
	PeriodEnd      time.Time       `grove:"period_end"`
	OpeningBalance int64           `grove:"opening_balance"`
	ClosingBalance int64           `grove:"closing_balance"`
	TotalDebited   int64           `grove:"total_debited"`
	TotalGranted   int64           `grove:"total_granted"`
	LineItems      json.RawMessage `grove:"line_items"`
	GeneratedAt    time.Time       `grove:"generated_at"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func toStatementModel(s *statement.Statement) *statementModel {
	lineItems, _ := json.Marshal(s.LineItems) //nolint:errcheck // best-effort

	return &statementModel{
		ID:             s.ID.String(),
		AccountID:      s.AccountID,
		AppID:          s.AppID,
		PeriodStart:    s.PeriodStart,
		PeriodEnd:      s.PeriodEnd,
		OpeningBalance: int64(s.OpeningBalance),
		ClosingBalance: int64(s.ClosingBalance),
		TotalDebited:   int64(s.TotalDebited),
		TotalGranted:   int64(s.TotalGranted),
		LineItems:      lineItems,
		GeneratedAt:    s.GeneratedAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func fromStatementModel(m *statementModel) (*statement.Statement, error) {
	stmtID, err := id.ParseStatementID(m.ID)
	if err != nil {
		return nil, err
	}

	var lineItems []statement.LineItem
	if len(m.LineItems) > 0 {
		_ = json.Unmarshal(m.LineItems, &lineItems) //nolint:errcheck // best-effort
	}

	return &statement.Statement{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             stmtID,
		AccountID:      m.AccountID,
		AppID:          m.AppID,
		PeriodStart:    m.PeriodStart,
		PeriodEnd:      m.PeriodEnd,
		OpeningBalance: types.Credits(m.OpeningBalance),
		ClosingBalance: types.Credits(m.ClosingBalance),
		TotalDebited:   types.Credits(m.TotalDebited),
		TotalGranted:   types.Credits(m.TotalGranted),
		LineItems:      lineItems,
		GeneratedAt:    m.GeneratedAt,
	}, nil
}

// ==================== Helpers ====================

func unmarshalMetadata(raw json.RawMessage) map[string]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var md map[string]string
	_ = json.Unmarshal(raw, &md) //nolint:errcheck // best-effort
	return md
}
