package adscore

import (
	"errors"
	"fmt"

	"github.com/xraph/adscore/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("adscore: not found")
	ErrAlreadyExists = errors.New("adscore: already exists")
	ErrInvalidInput  = errors.New("adscore: invalid input")

	// Tier errors
	ErrTierNotFound      = errors.New("adscore: tier not found")
	ErrTierArchived      = errors.New("adscore: tier is archived")
	ErrTierInUse         = errors.New("adscore: tier is in use by ledgers")
	ErrDuplicateCost     = errors.New("adscore: duplicate operation cost")
	ErrUnknownOperation  = errors.New("adscore: operation not priced by tier")
	ErrNegativeAllowance = errors.New("adscore: allowance must not be negative")

	// Ledger errors
	ErrLedgerNotFound = errors.New("adscore: ledger not found")
	ErrLedgerExists   = errors.New("adscore: ledger already exists for account")
	ErrDebitConflict  = errors.New("adscore: concurrent ledger update, retry")
	ErrInvalidAmount  = errors.New("adscore: amount must be positive")
	ErrLedgerDiverged = errors.New("adscore: ledger balance diverged from transaction log")
	ErrTxnNotFound    = errors.New("adscore: transaction not found")

	// Project errors
	ErrProjectNotFound    = errors.New("adscore: project not found")
	ErrAnalysisInProgress = errors.New("adscore: analysis already in progress")
	ErrNoToolsSelected    = errors.New("adscore: no tools selected")
	ErrToolNotRegistered  = errors.New("adscore: tool not registered")
	ErrEmptyContent       = errors.New("adscore: project content is empty")

	// Promo errors
	ErrPromoNotFound   = errors.New("adscore: promo not found")
	ErrPromoExpired    = errors.New("adscore: promo expired")
	ErrPromoNotStarted = errors.New("adscore: promo not yet valid")
	ErrPromoExhausted  = errors.New("adscore: promo redemptions exhausted")
	ErrPromoInvalid    = errors.New("adscore: promo invalid")

	// Statement errors
	ErrStatementNotFound = errors.New("adscore: statement not found")

	// Store errors
	ErrStoreNotReady     = errors.New("adscore: store not ready")
	ErrStoreClosed       = errors.New("adscore: store is closed")
	ErrTransactionFailed = errors.New("adscore: transaction failed")
	ErrMigrationFailed   = errors.New("adscore: migration failed")

	// Engine errors
	ErrEngineStopped = errors.New("adscore: engine is stopped")
)

// InsufficientCreditsError is returned when a debit cannot be covered. It
// carries the exact shortfall so callers can surface an actionable message.
type InsufficientCreditsError struct {
	AccountID string
	Operation string
	Required  types.Credits
	Available types.Credits
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("adscore: insufficient credits for %s: requires %s, have %s (short %s)",
		e.Operation, e.Required, e.Available, e.Shortfall())
}

// Shortfall is how many more credits the account needs.
func (e *InsufficientCreditsError) Shortfall() types.Credits {
	return e.Required.Sub(e.Available)
}

// DivergenceError reports a ledger whose cached balances disagree with the
// replay of its transaction log.
type DivergenceError struct {
	AccountID     string
	Balance       types.Credits
	Bonus         types.Credits
	ReplayBalance types.Credits
	ReplayBonus   types.Credits
	TxnCount      int
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("adscore: ledger for %s diverged: cached (%d, %d), replay of %d transactions gives (%d, %d)",
		e.AccountID, e.Balance, e.Bonus, e.TxnCount, e.ReplayBalance, e.ReplayBonus)
}

func (e *DivergenceError) Is(target error) bool {
	return target == ErrLedgerDiverged
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("adscore: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "adscore: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("adscore: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTierNotFound) ||
		errors.Is(err, ErrLedgerNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrPromoNotFound) ||
		errors.Is(err, ErrStatementNotFound) ||
		errors.Is(err, ErrTxnNotFound)
}

// IsInsufficientCredits returns true if the error is a refused debit.
func IsInsufficientCredits(err error) bool {
	var ice *InsufficientCreditsError
	return errors.As(err, &ice)
}

// IsRejection returns true if the error means the request was refused
// rather than failed: the caller should not retry as-is.
func IsRejection(err error) bool {
	return IsInsufficientCredits(err) ||
		errors.Is(err, ErrAnalysisInProgress) ||
		errors.Is(err, ErrNoToolsSelected) ||
		errors.Is(err, ErrToolNotRegistered) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrPromoExpired) ||
		errors.Is(err, ErrPromoNotStarted) ||
		errors.Is(err, ErrPromoExhausted)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDebitConflict) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
