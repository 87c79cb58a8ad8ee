package stream

import (
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// SatsPerBTC is the number of indivisible units in one BTC (and sBTC).
	SatsPerBTC = 100_000_000
	// BlocksPerDay approximates one day of Bitcoin-anchored block production.
	BlocksPerDay = 144
)

// ParseBTC converts a BTC amount such as "0.015" into sats, truncating any
// precision below one sat.
func ParseBTC(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("btc amount required")
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid btc amount %q", raw)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("btc amount must not be negative")
	}
	sats, overflow := uint256.FromBig(value.Shift(8).Floor().BigInt())
	if overflow {
		return nil, ErrAmountOverflow
	}
	return sats, nil
}

// FormatBTC renders a sat amount as a BTC decimal string.
func FormatBTC(sats *uint256.Int) string {
	if sats == nil {
		return "0"
	}
	return decimal.NewFromBigInt(sats.ToBig(), -8).String()
}

// ParseSats parses a base-10 integer amount of the smallest unit.
func ParseSats(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid integer amount %q: %w", raw, err)
	}
	return value, nil
}

// DaysToBlocks converts a duration in days to blocks at BlocksPerDay.
func DaysToBlocks(days uint64) (uint64, error) {
	if days > math.MaxUint64/BlocksPerDay {
		return 0, ErrBlockOverflow
	}
	return days * BlocksPerDay, nil
}
