package stream

import "github.com/holiman/uint256"

// Segment is one linear leg of a stream schedule. Amount vests at
// floor(Amount / (StopBlock - StartBlock)) per block and any remainder is
// released at StopBlock.
type Segment struct {
	StartBlock uint64       `json:"startBlock"`
	StopBlock  uint64       `json:"stopBlock"`
	Amount     *uint256.Int `json:"amount"`
}

// Rate returns the per-block payment of the segment.
func (s Segment) Rate() *uint256.Int {
	return new(uint256.Int).Div(s.Amount, uint256.NewInt(s.StopBlock-s.StartBlock))
}

// EarnedAt returns how much of the segment has vested by block.
func (s Segment) EarnedAt(block uint64) *uint256.Int {
	switch {
	case block <= s.StartBlock:
		return new(uint256.Int)
	case block >= s.StopBlock:
		return s.Amount.Clone()
	}
	earned := new(uint256.Int).Mul(s.Rate(), uint256.NewInt(block-s.StartBlock))
	if earned.Gt(s.Amount) {
		return s.Amount.Clone()
	}
	return earned
}

func (s Segment) clone() Segment {
	return Segment{StartBlock: s.StartBlock, StopBlock: s.StopBlock, Amount: s.Amount.Clone()}
}
