// Package money implements the fixed-point currency value used for all
// prices in the book. A Money is an immutable count of cents; the zero
// value is the absent ("no price") Money and every operation that needs a
// concrete value rejects it with ErrInvalidMoney.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidMoney reports a missing or malformed price operand.
var ErrInvalidMoney = errors.New("invalid money")

// Money is an exact currency amount in minor units. Two Money values with
// the same cents compare equal regardless of how they were constructed.
type Money struct {
	cents int64
	valid bool
}

// FromCents builds a Money from an integer count of cents.
func FromCents(cents int64) Money {
	return Money{cents: cents, valid: true}
}

// Parse reads a textual dollar amount. An optional leading "$", optional
// thousands separators, and zero or one decimal point with up to two
// fractional digits are accepted; a single fractional digit is zero-padded.
// The sign of a negative dollar amount propagates to the fractional part.
func Parse(s string) (Money, error) {
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty price string", ErrInvalidMoney)
	}
	sanitized := strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", "")
	if sanitized == "" {
		return Money{}, fmt.Errorf("%w: empty price string", ErrInvalidMoney)
	}

	if !strings.Contains(sanitized, ".") {
		dollars, err := strconv.ParseInt(sanitized, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
		}
		return FromCents(dollars * 100), nil
	}

	parts := strings.Split(sanitized, ".")
	if len(parts) != 2 {
		return Money{}, fmt.Errorf("%w: %q has more than one decimal point", ErrInvalidMoney, s)
	}
	centPart := parts[1]
	switch len(centPart) {
	case 0:
		centPart = "00"
	case 1:
		centPart += "0"
	case 2:
	default:
		return Money{}, fmt.Errorf("%w: %q has more than two fractional digits", ErrInvalidMoney, s)
	}

	var dollars int64
	negative := strings.HasPrefix(parts[0], "-")
	if parts[0] != "" && parts[0] != "-" {
		var err error
		dollars, err = strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
		}
	}
	frac, err := strconv.ParseInt(centPart, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	if negative {
		frac = -frac
	}
	return FromCents(dollars*100 + frac), nil
}

// Valid reports whether m carries a concrete value.
func (m Money) Valid() bool { return m.valid }

// Cents returns the raw minor-unit count. It is 0 for the absent Money.
func (m Money) Cents() int64 { return m.cents }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.valid && m.cents < 0 }

func (m Money) operands(other Money) error {
	if !m.valid || !other.valid {
		return fmt.Errorf("%w: operation on an absent price", ErrInvalidMoney)
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.operands(other); err != nil {
		return Money{}, err
	}
	return FromCents(m.cents + other.cents), nil
}

// Subtract returns m - other.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.operands(other); err != nil {
		return Money{}, err
	}
	return FromCents(m.cents - other.cents), nil
}

// Multiply scales the amount by an integer factor. The absent Money stays
// absent.
func (m Money) Multiply(by int64) Money {
	if !m.valid {
		return Money{}
	}
	return FromCents(m.cents * by)
}

// GreaterThan reports m > other.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.operands(other); err != nil {
		return false, err
	}
	return m.cents > other.cents, nil
}

// LessThan reports m < other.
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.operands(other); err != nil {
		return false, err
	}
	return m.cents < other.cents, nil
}

// GreaterOrEqual reports m >= other.
func (m Money) GreaterOrEqual(other Money) (bool, error) {
	if err := m.operands(other); err != nil {
		return false, err
	}
	return m.cents >= other.cents, nil
}

// LessOrEqual reports m <= other.
func (m Money) LessOrEqual(other Money) (bool, error) {
	if err := m.operands(other); err != nil {
		return false, err
	}
	return m.cents <= other.cents, nil
}

// Equal reports value equality. Two absent Money values are equal.
func (m Money) Equal(other Money) bool { return m == other }

// ToDecimal converts the amount to an exact decimal dollar value.
func (m Money) ToDecimal() decimal.Decimal {
	return decimal.New(m.cents, -2)
}

// String renders the amount as dollars, e.g. "$1,234.56".
func (m Money) String() string {
	if !m.valid {
		return "<nil>"
	}
	cents := m.cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("$%s%s.%02d", sign, groupThousands(cents/100), cents%100)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
