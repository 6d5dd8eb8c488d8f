package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value in the ledger currency (INR) with
// fixed two-decimal precision and round-half-up behaviour. All monetary
// arithmetic in the engine goes through this type; raw floats never do.
type Money struct {
	amount decimal.Decimal
}

// Currency is the single ledger currency. Multi-currency books are not
// supported; conversion happens before amounts enter the engine.
const Currency = "INR"

// Scale is the number of decimal places carried by settled amounts (paise).
const Scale = 2

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// NewMoney creates a Money value from a decimal amount.
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// NewMoneyFromString creates Money from a decimal string like "1062.50".
func NewMoneyFromString(amount string) (Money, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount: %w", err)
	}
	return Money{amount: dec}, nil
}

// NewMoneyFromFloat creates Money from a float64 amount.
// Note: Use with caution due to floating point precision issues
func NewMoneyFromFloat(amount float64) Money {
	return Money{amount: decimal.NewFromFloat(amount)}
}

// NewMoneyFromPaise creates Money from integer paise (smallest unit).
func NewMoneyFromPaise(paise int64) Money {
	return Money{amount: decimal.NewFromInt(paise).Div(hundred)}
}

// MustNewMoneyFromString creates Money and panics on error (for constants/tests).
func MustNewMoneyFromString(amount string) Money {
	m, err := NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns the zero Money value.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// String returns a formatted money string (e.g., "₹1062.00").
func (m Money) String() string {
	return "₹" + m.amount.StringFixed(Scale)
}

// StringWithCode returns the amount with currency code (e.g., "1062.00 INR").
func (m Money) StringWithCode() string {
	return m.amount.StringFixed(Scale) + " " + Currency
}

// IsZero checks if the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive checks if the amount is positive.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative checks if the amount is negative.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Equal checks if two Money values are equal.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Compare returns -1, 0, or 1 based on comparison with other Money.
func (m Money) Compare(other Money) int {
	return m.amount.Cmp(other.amount)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// GreaterThan reports whether m > other.
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// Add adds two Money values.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub subtracts other Money from this Money.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg()}
}

// Mul multiplies Money by a decimal factor. The result keeps full
// precision; callers round once when the derived figure is final.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor)}
}

// Percent returns pct% of the amount (e.g., Percent(18) is the 18% share).
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(pct).Div(hundred)}
}

// Round rounds half-up to the ledger scale (2 places).
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(Scale)}
}

// RoundTo rounds half-up to the given number of decimal places.
func (m Money) RoundTo(places int32) Money {
	return Money{amount: m.amount.Round(places)}
}

// RoundToNearest rounds half-up to the nearest multiple of step
// (1, 5, 10 for the price round-off policy).
func (m Money) RoundToNearest(step int64) Money {
	if step <= 0 {
		return m
	}
	s := decimal.NewFromInt(step)
	return Money{amount: m.amount.Div(s).Round(0).Mul(s)}
}

// SplitHalf splits the amount into two shares that sum back exactly.
// Any odd paise left by halving goes to the first share, so
// first+second == m at the ledger scale. Used for the CGST/SGST split.
func (m Money) SplitHalf() (Money, Money) {
	second := Money{amount: m.amount.Div(two).RoundDown(Scale)}
	first := m.Sub(second)
	return first, second
}

// ToPaise converts to integer paise (smallest unit).
func (m Money) ToPaise() int64 {
	return m.amount.Mul(hundred).IntPart()
}

// ToFloat64 converts to float64 (display only, never for arithmetic).
func (m Money) ToFloat64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.amount.StringFixed(Scale))
}

// UnmarshalJSON decodes a decimal string or bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = Money{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return m.scanFromString(string(v))
	case string:
		return m.scanFromString(v)
	case int64:
		m.amount = decimal.NewFromInt(v)
		return nil
	case float64:
		m.amount = decimal.NewFromFloat(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}

// Value implements driver.Valuer, storing the plain decimal string.
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(Scale), nil
}

func (m *Money) scanFromString(s string) error {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid money format: %w", err)
	}
	m.amount = amount
	return nil
}

// SumMoney adds a slice of Money values.
func SumMoney(amounts []Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
