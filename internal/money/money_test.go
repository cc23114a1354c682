package money

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12", 1200, false},
		{"-5.5", -550, false},
		{"0.125", 13, false},
		{"0.124", 12, false},
		{"-0.125", -13, false},
		{" 7.10 ", 710, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1,50", 0, true},
		{"92233720368547758.07", 9223372036854775807, false},
		{"-92233720368547758.08", -9223372036854775808, false},
		{"92233720368547758.08", 0, true},
		{"184467440737095516.17", 0, true},
		{"-92233720368547758.09", 0, true},
		{"1e30", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.IsError(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := MustParse("30.00")
	b := MustParse("12.50")

	assert.Equal(t, MustParse("42.50"), a.Add(b))
	assert.Equal(t, MustParse("17.50"), a.Sub(b))
	assert.Equal(t, MustParse("-30.00"), a.Neg())
	assert.Equal(t, a, a.Neg().Abs())
	assert.Equal(t, b, a.Min(b))
	assert.Equal(t, b, b.Min(a))
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
	assert.Equal(t, MustParse("42.51"), Sum(a, b, FromCents(1)))
	assert.True(t, Zero.IsZero())
	assert.True(t, a.IsPositive())
	assert.True(t, a.Neg().IsNegative())
}

func TestString(t *testing.T) {
	assert.Equal(t, "0.00", Zero.String())
	assert.Equal(t, "-12.05", FromCents(-1205).String())
	assert.Equal(t, "1000000.99", FromCents(100000099).String())
}

func TestJSON(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
		Rate   Rate  `json:"rate"`
	}

	data, err := json.Marshal(payload{Amount: MustParse("9.90"), Rate: One})
	assert.NoError(t, err)
	assert.Equal(t, `{"amount":"9.90","rate":"1.000000"}`, string(data))

	var p payload
	assert.NoError(t, json.Unmarshal([]byte(`{"amount":12.3,"rate":"0.91"}`), &p))
	assert.Equal(t, MustParse("12.30"), p.Amount)
	assert.Equal(t, RateFromMicros(910000), p.Rate)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"ten"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"rate":"-1"}`), &p))
	assert.IsError(t, json.Unmarshal([]byte(`{"amount":"184467440737095516.17"}`), &p), ErrInvalidAmount)
}

func TestRateApply(t *testing.T) {
	tests := []struct {
		name   string
		rate   string
		amount string
		want   string
	}{
		{"identity", "1", "10.00", "10.00"},
		{"euro to dollar", "1.085", "20.00", "21.70"},
		{"rounds half away from zero", "0.5", "0.01", "0.01"},
		{"negative amount", "2.5", "-3.33", "-8.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseRate(tt.rate)
			assert.NoError(t, err)
			got, err := r.Apply(MustParse(tt.amount))
			assert.NoError(t, err)
			assert.Equal(t, MustParse(tt.want), got)
		})
	}

	_, err := RateFromMicros(2 * int64(One)).Apply(FromCents(math.MaxInt64/2 + 1))
	assert.IsError(t, err, ErrOverflow)
}

func TestCheckedAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		want    Money
		wantErr bool
	}{
		{"plain", 150, -200, -50, false},
		{"up to max", math.MaxInt64 - 1, 1, math.MaxInt64, false},
		{"past max", math.MaxInt64, 1, 0, true},
		{"past min", math.MinInt64, -1, 0, true},
		{"min plus max", math.MinInt64, math.MaxInt64, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.CheckedAdd(tt.b)
			if tt.wantErr {
				assert.IsError(t, err, ErrOverflow)
				assert.IsError(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRate(t *testing.T) {
	r, err := ParseRate("")
	assert.NoError(t, err)
	assert.Equal(t, One, r)

	r, err = ParseRate("1.2345678")
	assert.NoError(t, err)
	assert.Equal(t, "1.234568", r.String())

	_, err = ParseRate("0")
	assert.IsError(t, err, ErrInvalidRate)
	_, err = ParseRate("x")
	assert.IsError(t, err, ErrInvalidRate)
	_, err = ParseRate("9223372036854.775808")
	assert.IsError(t, err, ErrInvalidRate)
	_, err = ParseRate("1e40")
	assert.IsError(t, err, ErrInvalidRate)

	r, err = ParseRate("9223372036854.775807")
	assert.NoError(t, err)
	assert.Equal(t, Rate(math.MaxInt64), r)
}
