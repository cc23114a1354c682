package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RateScale is the number of decimal places carried by Rate.
const RateScale = 6

// ErrInvalidRate is returned for unparsable or non-positive exchange rates.
var ErrInvalidRate = errors.New("invalid exchange rate")

// Rate is a multiplicative factor to the user's base currency, in millionths.
type Rate int64

// One is the identity rate (1.000000).
const One Rate = 1_000_000

// RateFromMicros builds a Rate from a count of millionths.
func RateFromMicros(micros int64) Rate { return Rate(micros) }

// ParseRate reads a decimal string such as "1.25". The value must be positive.
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return One, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	micros, ok := toUnits(d, RateScale)
	if !ok {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidRate, s)
	}
	r := Rate(micros)
	if r <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidRate, s)
	}
	return r, nil
}

// Micros returns the rate in millionths.
func (r Rate) Micros() int64 { return int64(r) }

// Decimal returns the rate as a decimal with 6 places.
func (r Rate) Decimal() decimal.Decimal { return decimal.New(int64(r), -RateScale) }

// Valid reports whether the rate is usable for conversion.
func (r Rate) Valid() bool { return r > 0 }

// Apply converts m into the base currency, rounding half away from zero to
// cents. A result outside the range of Money returns ErrOverflow.
func (r Rate) Apply(m Money) (Money, error) {
	if r == One {
		return m, nil
	}
	return FromDecimal(m.Decimal().Mul(r.Decimal()))
}

// String formats the rate with six decimals.
func (r Rate) String() string { return r.Decimal().StringFixed(RateScale) }

// MarshalJSON encodes the rate as a decimal string.
func (r Rate) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// UnmarshalJSON accepts a decimal string or number. Missing values decode to One.
func (r *Rate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*r = One
		return nil
	}
	parsed, err := ParseRate(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
