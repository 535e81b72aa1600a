// Package types provides common types used across adscore.
package types

import "fmt"

// Credits represents a quantity of analysis credits.
// All arithmetic is integer-only — one credit is the smallest unit and
// fractional credits do not exist.
type Credits int64

// Zero is the zero credit amount.
const Zero Credits = 0

// N creates a Credits value from an integer count.
func N(n int64) Credits { return Credits(n) }

// Arithmetic operations

// Add adds two credit amounts.
func (c Credits) Add(other Credits) Credits { return c + other }

// Sub subtracts another credit amount. The result may be negative;
// callers doing balance math should use SubFloor instead.
func (c Credits) Sub(other Credits) Credits { return c - other }

// SubFloor subtracts another credit amount, flooring the result at zero.
func (c Credits) SubFloor(other Credits) Credits {
	if other >= c {
		return 0
	}
	return c - other
}

// MulQty multiplies the credit amount by a quantity.
func (c Credits) MulQty(qty int64) Credits { return c * Credits(qty) }

// Negate returns the negative of the credit amount.
func (c Credits) Negate() Credits { return -c }

// Abs returns the absolute value.
func (c Credits) Abs() Credits {
	if c < 0 {
		return -c
	}
	return c
}

// Min returns the smaller of two credit amounts.
func (c Credits) Min(other Credits) Credits {
	if c < other {
		return c
	}
	return other
}

// Max returns the larger of two credit amounts.
func (c Credits) Max(other Credits) Credits {
	if c > other {
		return c
	}
	return other
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (c Credits) IsZero() bool { return c == 0 }

// IsPositive returns true if the amount is greater than zero.
func (c Credits) IsPositive() bool { return c > 0 }

// IsNegative returns true if the amount is less than zero.
func (c Credits) IsNegative() bool { return c < 0 }

// Int64 returns the amount as a plain int64.
func (c Credits) Int64() int64 { return int64(c) }

// String returns a human-readable string, e.g. "1 credit", "25 credits".
func (c Credits) String() string {
	if c == 1 || c == -1 {
		return fmt.Sprintf("%d credit", int64(c))
	}
	return fmt.Sprintf("%d credits", int64(c))
}

// Sum calculates the sum of multiple credit amounts.
func Sum(values ...Credits) Credits {
	var total Credits
	for _, v := range values {
		total += v
	}
	return total
}
