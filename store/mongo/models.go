package mongo

import (
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

// ==================== Tier models ====================

type tierModel struct {
	grove.BaseModel `grove:"table:adscore_tiers"`

	ID               string               `grove:"id,pk"             bson:"_id"`
	Key              string               `grove:"key"               bson:"key"`
	Name             string               `grove:"name"              bson:"name"`
	Description      string               `grove:"description"       bson:"description"`
	Status           string               `grove:"status"            bson:"status"`
	MonthlyAllowance int64                `grove:"monthly_allowance" bson:"monthly_allowance"`
	Unlimited        bool                 `grove:"unlimited"         bson:"unlimited"`
	Costs            []operationCostModel `grove:"costs"             bson:"costs"`
	AppID            string               `grove:"app_id"            bson:"app_id"`
	Metadata         map[string]string    `grove:"metadata"          bson:"metadata,omitempty"`
	CreatedAt        time.Time            `grove:"created_at"        bson:"created_at"`
	UpdatedAt        time.Time            `grove:"updated_at"        bson:"updated_at"`
}

type operationCostModel struct {
	Operation string `bson:"operation"`
	Cost      int64  `bson:"cost"`
}

func toTierModel(t *tier.Tier) *tierModel {
	costs := make([]operationCostModel, len(t.Costs))
	for i, c := range t.Costs {
		costs[i] = operationCostModel{
			Operation: c.Operation,
			Cost:      int64(c.Cost),
		}
	}

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
		Metadata:         t.Metadata,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func fromTierModel(m *tierModel) (*tier.Tier, error) {
	tierID, err := id.ParseTierID(m.ID)
	if err != nil {
		return nil, err
	}

	costs := make([]tier.OperationCost, len(m.Costs))
	for i, c := range m.Costs {
		costs[i] = tier.OperationCost{
			Operation: c.Operation,
			Cost:      types.Credits(c.Cost),
		}
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
		Metadata:         m.Metadata,
	}, nil
}

// ==================== Ledger models ====================

type ledgerModel struct {
	grove.BaseModel `grove:"table:adscore_ledgers"`

	ID           string            `grove:"id,pk"          bson:"_id"`
	AccountID    string            `grove:"account_id"     bson:"account_id"`
	AppID        string            `grove:"app_id"         bson:"app_id"`
	TierKey      string            `grove:"tier_key"       bson:"tier_key"`
	Balance      int64             `grove:"balance"        bson:"balance"`
	BonusCredits int64             `grove:"bonus_credits"  bson:"bonus_credits"`
	CycleResetAt time.Time         `grove:"cycle_reset_at" bson:"cycle_reset_at"`
	Metadata     map[string]string `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt    time.Time         `grove:"created_at"     bson:"created_at"`
	UpdatedAt    time.Time         `grove:"updated_at"     bson:"updated_at"`
}

func toLedgerModel(l *credit.Ledger) *ledgerModel {
	return &ledgerModel{
		ID:           l.ID.String(),
		AccountID:    l.AccountID,
		AppID:        l.AppID,
		TierKey:      l.TierKey,
		Balance:      int64(l.Balance),
		BonusCredits: int64(l.BonusCredits),
		CycleResetAt: l.CycleResetAt,
		Metadata:     l.Metadata,
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
		Metadata:     m.Metadata,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:adscore_transactions"`

	ID           string    `grove:"id,pk"         bson:"_id"`
	LedgerID     string    `grove:"ledger_id"     bson:"ledger_id"`
	AccountID    string    `grove:"account_id"    bson:"account_id"`
	AppID        string    `grove:"app_id"        bson:"app_id"`
	Operation    string    `grove:"operation"     bson:"operation"`
	Kind         string    `grove:"kind"          bson:"kind"`
	BalanceDelta int64     `grove:"balance_delta" bson:"balance_delta"`
	BonusDelta   int64     `grove:"bonus_delta"   bson:"bonus_delta"`
	Description  string    `grove:"description"   bson:"description"`
	Timestamp    time.Time `grove:"timestamp"     bson:"timestamp"`
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

	ID             string                      `grove:"id,pk"            bson:"_id"`
	AccountID      string                      `grove:"account_id"       bson:"account_id"`
	AppID          string                      `grove:"app_id"           bson:"app_id"`
	Name           string                      `grove:"name"             bson:"name"`
	Content        contentModel                `grove:"content"          bson:"content"`
	EnabledTools   []string                    `grove:"enabled_tools"    bson:"enabled_tools"`
	Status         string                      `grove:"status"           bson:"status"`
	ToolResults    map[string]*toolResultModel `grove:"tool_results"     bson:"tool_results,omitempty"`
	OverallScore   *int                        `grove:"overall_score"    bson:"overall_score,omitempty"`
	LastAnalyzedAt *time.Time                  `grove:"last_analyzed_at" bson:"last_analyzed_at,omitempty"`
	CompletedAt    *time.Time                  `grove:"completed_at"     bson:"completed_at,omitempty"`
	Metadata       map[string]string           `grove:"metadata"         bson:"metadata,omitempty"`
	CreatedAt      time.Time                   `grove:"created_at"       bson:"created_at"`
	UpdatedAt      time.Time                   `grove:"updated_at"       bson:"updated_at"`
}

type contentModel struct {
	Headline     string `bson:"headline"`
	Body         string `bson:"body"`
	CallToAction string `bson:"call_to_action,omitempty"`
	Platform     string `bson:"platform,omitempty"`
	Industry     string `bson:"industry,omitempty"`
	Audience     string `bson:"audience,omitempty"`
}

type toolResultModel struct {
	ID            string         `bson:"id"`
	ToolName      string         `bson:"tool_name"`
	Status        string         `bson:"status"`
	OverallScore  *int           `bson:"overall_score,omitempty"`
	ResultData    map[string]any `bson:"result_data,omitempty"`
	FailureReason string         `bson:"failure_reason,omitempty"`
	StartedAt     *time.Time     `bson:"started_at,omitempty"`
	FinishedAt    *time.Time     `bson:"finished_at,omitempty"`
}

func toToolResultModel(r *project.ToolResult) *toolResultModel {
	return &toolResultModel{
		ID:            r.ID.String(),
		ToolName:      r.ToolName,
		Status:        string(r.Status),
		OverallScore:  r.OverallScore,
		ResultData:    r.ResultData,
		FailureReason: r.FailureReason,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
}

func fromToolResultModel(m *toolResultModel) (*project.ToolResult, error) {
	runID, err := id.ParseToolRunID(m.ID)
	if err != nil {
		return nil, err
	}

	return &project.ToolResult{
		ID:            runID,
		ToolName:      m.ToolName,
		Status:        project.ResultStatus(m.Status),
		OverallScore:  m.OverallScore,
		ResultData:    m.ResultData,
		FailureReason: m.FailureReason,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	}, nil
}

func toProjectModel(p *project.Project) *projectModel {
	var results map[string]*toolResultModel
	if p.ToolResults != nil {
		results = make(map[string]*toolResultModel, len(p.ToolResults))
		for name, r := range p.ToolResults {
			results[name] = toToolResultModel(r)
		}
	}

	return &projectModel{
		ID:        p.ID.String(),
		AccountID: p.AccountID,
		AppID:     p.AppID,
		Name:      p.Name,
		Content: contentModel{
			Headline:     p.Content.Headline,
			Body:         p.Content.Body,
			CallToAction: p.Content.CallToAction,
			Platform:     p.Content.Platform,
			Industry:     p.Content.Industry,
			Audience:     p.Content.Audience,
		},
		EnabledTools:   p.EnabledTools,
		Status:         string(p.Status),
		ToolResults:    results,
		OverallScore:   p.OverallScore,
		LastAnalyzedAt: p.LastAnalyzedAt,
		CompletedAt:    p.CompletedAt,
		Metadata:       p.Metadata,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromProjectModel(m *projectModel) (*project.Project, error) {
	projectID, err := id.ParseProjectID(m.ID)
	if err != nil {
		return nil, err
	}

	var results map[string]*project.ToolResult
	if m.ToolResults != nil {
		results = make(map[string]*project.ToolResult, len(m.ToolResults))
		for name, rm := range m.ToolResults {
			r, err := fromToolResultModel(rm)
			if err != nil {
				return nil, err
			}
			results[name] = r
		}
	}

	return &project.Project{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        projectID,
		AccountID: m.AccountID,
		AppID:     m.AppID,
		Name:      m.Name,
		Content: project.Content{
			Headline:     m.Content.Headline,
			Body:         m.Content.Body,
			CallToAction: m.Content.CallToAction,
			Platform:     m.Content.Platform,
			Industry:     m.Content.Industry,
			Audience:     m.Content.Audience,
		},
		EnabledTools:   m.EnabledTools,
		Status:         project.Status(m.Status),
		ToolResults:    results,
		OverallScore:   m.OverallScore,
		LastAnalyzedAt: m.LastAnalyzedAt,
		CompletedAt:    m.CompletedAt,
		Metadata:       m.Metadata,
	}, nil
}

// ==================== Promo models ====================

type promoModel struct {
	grove.BaseModel `grove:"table:adscore_promos"`

	ID             string            `grove:"id,pk"           bson:"_id"`
	Code           string            `grove:"code"            bson:"code"`
	Name           string            `grove:"name"            bson:"name"`
	Credits        int64             `grove:"credits"         bson:"credits"`
	MaxRedemptions int               `grove:"max_redemptions" bson:"max_redemptions"`
	TimesRedeemed  int               `grove:"times_redeemed"  bson:"times_redeemed"`
	ValidFrom      *time.Time        `grove:"valid_from"      bson:"valid_from,omitempty"`
	ValidUntil     *time.Time        `grove:"valid_until"     bson:"valid_until,omitempty"`
	AppID          string            `grove:"app_id"          bson:"app_id"`
	Metadata       map[string]string `grove:"metadata"        bson:"metadata,omitempty"`
	CreatedAt      time.Time         `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"      bson:"updated_at"`
}

func toPromoModel(p *promo.Promo) *promoModel {
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
		Metadata:       p.Metadata,
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
		Metadata:       m.Metadata,
	}, nil
}

// ==================== Statement models ====================

type statementModel struct {
	grove.BaseModel `grove:"table:adscore_statements"`

	ID             string          `grove:"id,pk"           bson:"_id"`
	AccountID      string          `grove:"account_id"      bson:"account_id"`
	AppID          string          `grove:"app_id"          bson:"app_id"`
	PeriodStart    time.Time       `grove:"period_start"    bson:"period_start"`
	PeriodEnd      time.Time       `grove:"period_end"      bson:"period_end"`
	OpeningBalance int64           `grove:"opening_balance" bson:"opening_balance"`
	ClosingBalance int64           `grove:"closing_balance" bson:"closing_balance"`
	TotalDebited   int64           `grove:"total_debited"   bson:"total_debited"`
	TotalGranted   int64           `grove:"total_granted"   bson:"total_granted"`
	LineItems      []lineItemModel `grove:"line_items"      bson:"line_items"`
	GeneratedAt    time.Time       `grove:"generated_at"    bson:"generated_at"`
	CreatedAt      time.Time       `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"      bson:"updated_at"`
}

type lineItemModel struct {
	ID          string `bson:"id"`
	StatementID string `bson:"statement_id"`
	Operation   string `bson:"operation"`
	Runs        int64  `bson:"runs"`
	Credits     int64  `bson:"credits"`
}

func toStatementModel(s *statement.Statement) *statementModel {
	lineItems := make([]lineItemModel, len(s.LineItems))
	for i, li := range s.LineItems {
		lineItems[i] = lineItemModel{
			ID:          li.ID.String(),
			StatementID: li.StatementID.String(),
			Operation:   li.Operation,
			Runs:        li.Runs,
			Credits:     int64(li.Credits),
		}
	}

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

	lineItems := make([]statement.LineItem, len(m.LineItems))
	for i, lm := range m.LineItems {
		liID, err := id.ParseLineItemID(lm.ID)
		if err != nil {
			return nil, err
		}
		liStmtID, err := id.ParseStatementID(lm.StatementID)
		if err != nil {
			return nil, err
		}
		lineItems[i] = statement.LineItem{
			ID:          liID,
			StatementID: liStmtID,
			Operation:   lm.Operation,
			Runs:        lm.Runs,
			Credits:     types.Credits(lm.Credits),
		}
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
