// Package id defines TypeID-based identity types for all adscore entities.
//
// Every entity in adscore uses a single ID struct with a prefix that
// identifies the entity type. IDs are K-sortable (UUIDv7-based), globally
// unique, and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all adscore entity types.
const (
	PrefixTier        Prefix = "tier"  // Subscription tier
	PrefixLedger      Prefix = "led"   // Credit ledger
	PrefixTransaction Prefix = "txn"   // Ledger transaction
	PrefixProject     Prefix = "proj"  // Analysis project
	PrefixToolRun     Prefix = "trun"  // Per-tool execution result
	PrefixPromo       Prefix = "promo" // Promotional credit code
	PrefixStatement   Prefix = "stmt"  // Cycle usage statement
	PrefixLineItem    Prefix = "li"    // Statement line item
)

// ID is the primary identifier type for all adscore entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "proj_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// MustParseWithPrefix is like ParseWithPrefix but panics on error.
func MustParseWithPrefix(s string, expected Prefix) ID {
	parsed, err := ParseWithPrefix(s, expected)
	if err != nil {
		panic(fmt.Sprintf("id: must parse with prefix %q: %v", expected, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases per entity
// ──────────────────────────────────────────────────

// TierID is a type-safe identifier for tiers (prefix: "tier").
type TierID = ID

// LedgerID is a type-safe identifier for credit ledgers (prefix: "led").
type LedgerID = ID

// TransactionID is a type-safe identifier for ledger transactions (prefix: "txn").
type TransactionID = ID

// ProjectID is a type-safe identifier for analysis projects (prefix: "proj").
type ProjectID = ID

// ToolRunID is a type-safe identifier for tool results (prefix: "trun").
type ToolRunID = ID

// PromoID is a type-safe identifier for promo codes (prefix: "promo").
type PromoID = ID

// StatementID is a type-safe identifier for statements (prefix: "stmt").
type StatementID = ID

// LineItemID is a type-safe identifier for statement line items (prefix: "li").
type LineItemID = ID

// AnyID is a type alias that accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewTierID generates a new unique tier ID.
func NewTierID() ID { return New(PrefixTier) }

// NewLedgerID generates a new unique ledger ID.
func NewLedgerID() ID { return New(PrefixLedger) }

// NewTransactionID generates a new unique transaction ID.
func NewTransactionID() ID { return New(PrefixTransaction) }

// NewProjectID generates a new unique project ID.
func NewProjectID() ID { return New(PrefixProject) }

// NewToolRunID generates a new unique tool run ID.
func NewToolRunID() ID { return New(PrefixToolRun) }

// NewPromoID generates a new unique promo ID.
func NewPromoID() ID { return New(PrefixPromo) }

// NewStatementID generates a new unique statement ID.
func NewStatementID() ID { return New(PrefixStatement) }

// NewLineItemID generates a new unique line item ID.
func NewLineItemID() ID { return New(PrefixLineItem) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseTierID parses a string and validates the "tier" prefix.
func ParseTierID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTier) }

// ParseLedgerID parses a string and validates the "led" prefix.
func ParseLedgerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixLedger) }

// ParseTransactionID parses a string and validates the "txn" prefix.
func ParseTransactionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTransaction) }

// ParseProjectID parses a string and validates the "proj" prefix.
func ParseProjectID(s string) (ID, error) { return ParseWithPrefix(s, PrefixProject) }

// ParseToolRunID parses a string and validates the "trun" prefix.
func ParseToolRunID(s string) (ID, error) { return ParseWithPrefix(s, PrefixToolRun) }

// ParsePromoID parses a string and validates the "promo" prefix.
func ParsePromoID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPromo) }

// ParseStatementID parses a string and validates the "stmt" prefix.
func ParseStatementID(s string) (ID, error) { return ParseWithPrefix(s, PrefixStatement) }

// ParseLineItemID parses a string and validates the "li" prefix.
func ParseLineItemID(s string) (ID, error) { return ParseWithPrefix(s, PrefixLineItem) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
