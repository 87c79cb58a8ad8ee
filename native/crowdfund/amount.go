package crowdfund

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDisplayPlaces is the number of fractional digits used when payouts
// are rendered for display.
const DefaultDisplayPlaces int32 = 8

// ParseAmount converts a decimal string such as "12.5" into an exact rational.
func ParseAmount(raw string) (*big.Rat, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal amount %q", raw)
	}
	return value.Rat(), nil
}

// FormatAmount renders v as a decimal string rounded half away from zero to
// at most places fractional digits. Trailing zeros are dropped.
func FormatAmount(v *big.Rat, places int32) string {
	if v == nil {
		return "0"
	}
	if places < 0 {
		places = 0
	}
	num := decimal.NewFromBigInt(v.Num(), 0)
	if v.IsInt() {
		return num.String()
	}
	den := decimal.NewFromBigInt(v.Denom(), 0)
	return num.DivRound(den, places).String()
}

// FormatExact renders v without loss when it has a terminating decimal
// expansion and falls back to the "a/b" fraction form otherwise.
func FormatExact(v *big.Rat) string {
	if v == nil {
		return "0"
	}
	if v.IsInt() {
		return v.Num().String()
	}
	den := new(big.Int).Set(v.Denom())
	two, five := big.NewInt(2), big.NewInt(5)
	var twos, fives int32
	mod := new(big.Int)
	for {
		q, m := new(big.Int).QuoRem(den, two, mod)
		if m.Sign() != 0 {
			break
		}
		den, twos = q, twos+1
	}
	for {
		q, m := new(big.Int).QuoRem(den, five, mod)
		if m.Sign() != 0 {
			break
		}
		den, fives = q, fives+1
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return v.RatString()
	}
	places := twos
	if fives > places {
		places = fives
	}
	return FormatAmount(v, places)
}
