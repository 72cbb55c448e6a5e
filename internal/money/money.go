package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	ErrEmpty   = errors.New("empty amount")
	ErrInvalid = errors.New("invalid amount")
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

var hundred = decimal.NewFromInt(100)

// Parse reads an amount written either as 1234.56 or in the Brazilian style 1.234,56,
// optionally prefixed with R$.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, ErrEmpty
	}

	if comma := strings.LastIndex(s, ","); comma >= 0 {
		// 1,234.56 is US grouping, not a Brazilian amount
		if strings.LastIndex(s, ".") > comma {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return Round(d), nil
}

// Round rounds to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders d as R$ 1.234,56.
// Only the integer part goes through the printer, as an int64, so no float is involved.
func Format(d decimal.Decimal) string {
	d = Round(d)
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	abs := d.Abs()
	_, cents, _ := strings.Cut(abs.StringFixed(2), ".")
	return sign + "R$ " + printer.Sprint(number.Decimal(abs.IntPart())) + "," + cents
}

// Cents converts an amount to integer cents.
func Cents(d decimal.Decimal) int64 {
	return Round(d).Mul(hundred).IntPart()
}

// FromCents is the inverse of Cents.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// Split divides total into n parts of whole cents. The leftover cents go to the first
// part so the parts always add up to total.
func Split(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("split into %d parts", n)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: total must be positive", ErrInvalid)
	}

	cents := Cents(total)
	base := cents / int64(n)
	rem := cents - base*int64(n)
	if base == 0 {
		return nil, fmt.Errorf("%w: %s is too small for %d parts", ErrInvalid, total.StringFixed(2), n)
	}

	parts := make([]decimal.Decimal, n)
	for i := range parts {
		parts[i] = FromCents(base)
	}
	parts[0] = FromCents(base + rem)
	return parts, nil
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
