package cpf

import (
	"errors"
	"strings"
)

// Length is the number of digits in a CPF.
const Length = 11

var (
	ErrInvalidLength = errors.New("cpf must have 11 digits")
	ErrInvalidBase   = errors.New("cpf base must have 9 digits")
)

// Normalize strips everything that is not an ASCII digit.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate reports whether s is a valid CPF. Punctuation is ignored.
func Validate(s string) bool {
	digits := Normalize(s)
	if len(digits) != Length {
		return false
	}

	if allSame(digits) {
		return false
	}

	d1, d2, err := CheckDigits(digits[:9])
	if err != nil {
		return false
	}
	return int(digits[9]-'0') == d1 && int(digits[10]-'0') == d2
}

// CheckDigits computes both verification digits for the first nine digits of a CPF.
// Punctuation in base is ignored; anything other than nine digits is rejected.
func CheckDigits(base string) (int, int, error) {
	base = Normalize(base)
	if len(base) != 9 {
		return 0, 0, ErrInvalidBase
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(base[i]-'0') * (10 - i)
	}
	d1 := checkDigit(sum)

	sum = 0
	for i := 0; i < 9; i++ {
		sum += int(base[i]-'0') * (11 - i)
	}
	sum += d1 * 2
	d2 := checkDigit(sum)

	return d1, d2, nil
}

// checkDigit applies the mod 11 rule: 11 - (sum mod 11), or 0 when above 9
func checkDigit(sum int) int {
	r := 11 - (sum % 11)
	if r > 9 {
		return 0
	}
	return r
}

// Format applies the 000.000.000-00 mask.
func Format(s string) (string, error) {
	digits := Normalize(s)
	if len(digits) != Length {
		return "", ErrInvalidLength
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11], nil
}

// Mask hides the middle digits for logs and receipts: ***.456.789-**
func Mask(s string) string {
	digits := Normalize(s)
	if len(digits) != Length {
		return "***"
	}
	return "***." + digits[3:6] + "." + digits[6:9] + "-**"
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
