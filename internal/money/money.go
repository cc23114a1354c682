// Package money provides the fixed-precision amounts used by the ledger.
//
// Money is an integer count of minor units (cents) at a fixed scale of 2.
// Rate is an exchange rate held as an integer count of millionths (scale 6).
// All arithmetic stays in integers; shopspring/decimal is used only at the
// edges, to parse and format values and to apply a rate.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by Money.
const Scale = 2

var (
	// ErrInvalidAmount is returned when a string or number cannot be turned into Money.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrOverflow is returned when a result does not fit in Money.
	ErrOverflow = fmt.Errorf("%w: out of range", ErrInvalidAmount)
)

var (
	maxUnits = decimal.NewFromInt(math.MaxInt64)
	minUnits = decimal.NewFromInt(math.MinInt64)
)

// toUnits rounds d to places and returns it as an integer count of
// 10^-places units. ok is false when the count does not fit in an int64.
func toUnits(d decimal.Decimal, places int32) (units int64, ok bool) {
	shifted := d.Round(places).Shift(places)
	if shifted.GreaterThan(maxUnits) || shifted.LessThan(minUnits) {
		return 0, false
	}
	return shifted.IntPart(), true
}

// Money is an amount in minor units. The sign carries meaning for splits:
// positive means a contact owes the user, negative means the user owes the contact.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromCents builds Money from a count of minor units.
func FromCents(cents int64) Money { return Money(cents) }

// FromDecimal converts a decimal to Money, rounding half away from zero to
// 2 places. Values outside the int64 range of cents return ErrOverflow.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents, ok := toUnits(d, Scale)
	if !ok {
		return Zero, fmt.Errorf("%w: %s", ErrOverflow, d)
	}
	return Money(cents), nil
}

// Parse reads a decimal string such as "12.34", "-5" or "0.125".
// Extra fractional digits are rounded half away from zero.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// MustParse is like Parse but panics on error. Use for literals in tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return int64(m) }

// Decimal returns the amount as a decimal with 2 places.
func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -Scale) }

func (m Money) Add(other Money) Money { return m + other }

// CheckedAdd is Add that reports ErrOverflow instead of wrapping.
func (m Money) CheckedAdd(other Money) (Money, error) {
	sum := m + other
	if (other > 0 && sum < m) || (other < 0 && sum > m) {
		return Zero, fmt.Errorf("%w: %s + %s", ErrOverflow, m, other)
	}
	return sum, nil
}

func (m Money) Sub(other Money) Money { return m - other }
func (m Money) Neg() Money            { return -m }

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Min returns the smaller of m and other.
func (m Money) Min(other Money) Money {
	if other < m {
		return other
	}
	return m
}

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(other Money) int {
	switch {
	case m < other:
		return -1
	case m > other:
		return 1
	default:
		return 0
	}
}

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsPositive() bool { return m > 0 }
func (m Money) IsNegative() bool { return m < 0 }

// String formats the amount with exactly two decimals, e.g. "-12.05".
func (m Money) String() string {
	return m.Decimal().StringFixed(Scale)
}

// MarshalJSON encodes Money as a decimal string so clients never see floats.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a decimal string or a JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*m = Zero
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds all values.
func Sum(values ...Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}
