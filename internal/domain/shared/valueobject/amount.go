package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places every Amount carries
const AmountScale int32 = 2

// Amount is a fixed-precision monetary value rounded half away from zero to
// two decimal places. It is constructed once at the system boundary and all
// internal arithmetic stays inside the type.
// It is immutable - all operations return new Amount instances
type Amount struct {
	d decimal.Decimal
}

// ZeroAmount returns an amount of 0.00
func ZeroAmount() Amount {
	return Amount{}
}

// NewAmount creates an Amount from a decimal, rounding to AmountScale
func NewAmount(d decimal.Decimal) Amount {
	return Amount{d: d.Round(AmountScale)}
}

// NewAmountFromCents creates an Amount from an integer number of minor units
func NewAmountFromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -AmountScale)}
}

// NewAmountFromInt creates an Amount from a whole number of major units
func NewAmountFromInt(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

// ParseAmount parses a string such as "12.345" into an Amount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, errors.New("amount cannot be empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount string %q: %w", s, err)
	}
	return NewAmount(d), nil
}

// MustParseAmount parses s and panics on failure. Intended for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the underlying decimal value
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// Cents returns the amount in minor units
func (a Amount) Cents() int64 {
	return a.d.Shift(AmountScale).IntPart()
}

// Add returns a + other
func (a Amount) Add(other Amount) Amount {
	return Amount{d: a.d.Add(other.d)}
}

// Sub returns a - other
func (a Amount) Sub(other Amount) Amount {
	return Amount{d: a.d.Sub(other.d)}
}

// Mul returns a * factor rounded to AmountScale
func (a Amount) Mul(factor decimal.Decimal) Amount {
	return NewAmount(a.d.Mul(factor))
}

// Neg returns -a
func (a Amount) Neg() Amount {
	return Amount{d: a.d.Neg()}
}

// IsZero reports whether the amount is 0.00
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsPositive reports whether the amount is > 0
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// IsNegative reports whether the amount is < 0
func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// Cmp compares a and other: -1 if a < other, 0 if equal, +1 if a > other
func (a Amount) Cmp(other Amount) int {
	return a.d.Cmp(other.d)
}

// Equal reports whether a == other
func (a Amount) Equal(other Amount) bool {
	return a.d.Equal(other.d)
}

// LessThan reports whether a < other
func (a Amount) LessThan(other Amount) bool {
	return a.d.LessThan(other.d)
}

// GreaterThan reports whether a > other
func (a Amount) GreaterThan(other Amount) bool {
	return a.d.GreaterThan(other.d)
}

// Min returns the smaller of a and other
func (a Amount) Min(other Amount) Amount {
	if other.LessThan(a) {
		return other
	}
	return a
}

// String returns the amount with exactly two decimal places
func (a Amount) String() string {
	return a.d.StringFixed(AmountScale)
}

// SumAmounts adds up a list of amounts
func SumAmounts(amounts ...Amount) Amount {
	total := ZeroAmount()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON encodes the amount as a fixed-scale string
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = Amount{}
		return nil
	}
	raw = strings.Trim(raw, `"`)
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer for database serialization
func (a Amount) Value() (driver.Value, error) {
	return a.d.StringFixed(AmountScale), nil
}

// Scan implements sql.Scanner for database deserialization
func (a *Amount) Scan(value any) error {
	if value == nil {
		*a = Amount{}
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("failed to scan amount: %w", err)
	}
	*a = NewAmount(d)
	return nil
}
