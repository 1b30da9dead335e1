// Package money provides an exact fixed-point monetary value.
//
// Amounts are stored as integer minor units (cents) with a currency tag.
// No value is ever represented in floating point:
//
//	m, err := money.Parse("199.99", "EUR")
//	total := m.Add(money.New(1, "EUR"))
//	total.EqualWithin(money.New(20000, "EUR"), 0) // true
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the number of fractional digits carried by a minor unit.
const MinorUnitExponent = 2

// DefaultTolerance is the default amount tolerance in minor units (1 cent).
const DefaultTolerance int64 = 1

// MaxAmount is the largest single record amount a reconciliation accepts, in
// minor units (10 trillion major units). Sums of accepted amounts stay far
// below the int64 range.
const MaxAmount int64 = 1_000_000_000_000_000

var (
	// ErrInvalidAmount is returned when an amount string cannot be parsed exactly.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrCurrencyMismatch is returned when two amounts carry different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrOverflow is returned when a sum does not fit in int64 minor units.
	ErrOverflow = errors.New("amount overflow")
)

// Money is an amount in minor units of a single currency.
type Money struct {
	Minor    int64  `json:"minor"`
	Currency string `json:"currency"`
}

// New creates a Money from minor units.
func New(minor int64, currency string) Money {
	return Money{Minor: minor, Currency: normalizeCurrency(currency)}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return New(0, currency)
}

// Parse converts a decimal string such as "1500" or "199.99" into minor units.
// Amounts with more fractional digits than a minor unit can hold are rejected
// instead of being rounded.
func Parse(amount, currency string) (Money, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, amount, err)
	}

	shifted := d.Shift(MinorUnitExponent)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Money{}, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, amount, MinorUnitExponent)
	}
	if !shifted.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, amount)
	}

	return New(shifted.IntPart(), currency), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m + other. The result keeps m's currency; callers are
// expected to have checked currencies with SameCurrency. Add wraps on
// overflow, use CheckedAdd when the operands are not bounded by MaxAmount.
func (m Money) Add(other Money) Money {
	return Money{Minor: m.Minor + other.Minor, Currency: m.Currency}
}

// CheckedAdd returns m + other, or ErrOverflow when the result does not fit.
func (m Money) CheckedAdd(other Money) (Money, error) {
	if (other.Minor > 0 && m.Minor > math.MaxInt64-other.Minor) ||
		(other.Minor < 0 && m.Minor < math.MinInt64-other.Minor) {
		return Money{}, fmt.Errorf("%w: %d + %d", ErrOverflow, m.Minor, other.Minor)
	}
	return Money{Minor: m.Minor + other.Minor, Currency: m.Currency}, nil
}

// Sub returns m - other. Negative results are legal.
func (m Money) Sub(other Money) Money {
	return Money{Minor: m.Minor - other.Minor, Currency: m.Currency}
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	if m.Minor < 0 {
		return Money{Minor: -m.Minor, Currency: m.Currency}
	}
	return m
}

// SameCurrency reports whether both amounts use the same currency.
func (m Money) SameCurrency(other Money) bool {
	return m.Currency == other.Currency
}

// EqualWithin reports whether |m - other| <= tolerance minor units.
// Amounts in different currencies are never equal.
func (m Money) EqualWithin(other Money, tolerance int64) bool {
	if !m.SameCurrency(other) || tolerance < 0 {
		return false
	}
	hi, lo := m.Minor, other.Minor
	if hi < lo {
		hi, lo = lo, hi
	}
	if lo < 0 && hi > math.MaxInt64+lo {
		return false
	}
	return hi-lo <= tolerance
}

// Equal reports exact equality.
func (m Money) Equal(other Money) bool {
	return m.EqualWithin(other, 0)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Minor == 0
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Minor > 0
}

// Decimal returns the amount as a decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Minor, -MinorUnitExponent)
}

// String renders the amount as "199.99 EUR".
func (m Money) String() string {
	s := m.Decimal().StringFixed(MinorUnitExponent)
	if m.Currency == "" {
		return s
	}
	return s + " " + m.Currency
}

// Sum adds amounts together. It fails if any amount is not in currency or
// the total overflows.
func Sum(currency string, amounts ...Money) (Money, error) {
	total := Zero(currency)
	for i, a := range amounts {
		if !total.SameCurrency(a) {
			return Money{}, fmt.Errorf("%w: amount %d is %s, expected %s", ErrCurrencyMismatch, i, a.Currency, total.Currency)
		}
		next, err := total.CheckedAdd(a)
		if err != nil {
			return Money{}, fmt.Errorf("amount %d: %w", i, err)
		}
		total = next
	}
	return total, nil
}

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
