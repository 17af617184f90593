package extract

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

var suffixMultipliers = map[byte]decimal.Decimal{
	'k': decimal.New(1, 3),
	'm': decimal.New(1, 6),
	'b': decimal.New(1, 9),
}

// ParseAmount converts a money string such as "$10M", "5.5b" or "1,500,000"
// to a whole amount. Characters other than digits, '.', and the k/m/b
// suffixes are dropped first. Unparsable input and amounts too large to
// represent yield 0.
func ParseAmount(s string) int64 {
	var num strings.Builder
	var suffix byte
scan:
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= '0' && r <= '9' || r == '.':
			if suffix != 0 {
				// Digits after a suffix belong to something else.
				break scan
			}
			num.WriteRune(r)
		case r == 'k' || r == 'm' || r == 'b':
			if num.Len() > 0 && suffix == 0 {
				suffix = byte(r)
			}
		}
	}
	if num.Len() == 0 {
		return 0
	}
	d, err := decimal.NewFromString(num.String())
	if err != nil {
		return 0
	}
	if mul, ok := suffixMultipliers[suffix]; ok {
		d = d.Mul(mul)
	}
	if d.IsNegative() || d.GreaterThan(maxAmount) {
		return 0
	}
	return d.IntPart()
}
