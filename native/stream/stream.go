package stream

import (
	"math"
	"strings"

	"github.com/holiman/uint256"
)

// Stream is a block-indexed linear payout schedule for a single recipient.
// Amounts are denominated in an indivisible smallest unit, so per-block rates
// use floor division.
//
// A Stream is not safe for concurrent use.
type Stream struct {
	recipient string
	segments  []Segment
	withdrawn *uint256.Int
	// lastBlock is the highest block a withdrawal or top-up was applied at.
	lastBlock uint64
}

// New opens a stream paying deposit to recipient over durationBlocks blocks
// starting at startBlock.
func New(recipient string, deposit *uint256.Int, startBlock, durationBlocks uint64) (*Stream, error) {
	addr := strings.TrimSpace(recipient)
	if addr == "" {
		return nil, ErrInvalidRecipient
	}
	if durationBlocks == 0 {
		return nil, ErrInvalidDuration
	}
	if deposit == nil || deposit.IsZero() {
		return nil, ErrInvalidDeposit
	}
	if startBlock > math.MaxUint64-durationBlocks {
		return nil, ErrBlockOverflow
	}
	return &Stream{
		recipient: addr,
		segments: []Segment{{
			StartBlock: startBlock,
			StopBlock:  startBlock + durationBlocks,
			Amount:     deposit.Clone(),
		}},
		withdrawn: new(uint256.Int),
	}, nil
}

// EarnedAt returns the cumulative amount vested by block, independent of
// withdrawals. It is zero up to the start block and the full deposit from the
// stop block onwards.
func (s *Stream) EarnedAt(block uint64) *uint256.Int {
	earned := new(uint256.Int)
	for _, seg := range s.segments {
		earned.Add(earned, seg.EarnedAt(block))
	}
	return earned
}

// Withdrawable returns what can still be withdrawn at block.
func (s *Stream) Withdrawable(block uint64) *uint256.Int {
	earned := s.EarnedAt(block)
	if earned.Lt(s.withdrawn) {
		return new(uint256.Int)
	}
	return earned.Sub(earned, s.withdrawn)
}

// Withdraw pays amount out of the balance earned by atBlock and returns the
// new cumulative withdrawn total.
func (s *Stream) Withdraw(atBlock uint64, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if amount.Gt(s.Withdrawable(atBlock)) {
		return nil, ErrInsufficientEarned
	}
	s.withdrawn.Add(s.withdrawn, amount)
	s.observe(atBlock)
	return s.withdrawn.Clone(), nil
}

// TopUp adds deposit and extends the stop block by additionalBlocks. The
// schedule is split at atBlock: everything vested up to atBlock stays exactly
// as it was and the unvested balance plus the new deposit is spread over the
// remaining blocks. A stream that already ended at atBlock restarts from
// atBlock. atBlock may not precede any block a withdrawal or earlier top-up
// was applied at.
func (s *Stream) TopUp(atBlock uint64, deposit *uint256.Int, additionalBlocks uint64) error {
	if deposit == nil {
		deposit = new(uint256.Int)
	}
	if deposit.IsZero() && additionalBlocks == 0 {
		return ErrInvalidTopUp
	}
	last := len(s.segments) - 1
	active := s.segments[last]
	if atBlock < s.lastBlock || (last > 0 && atBlock < active.StartBlock) {
		return ErrStaleBlock
	}
	if _, overflow := new(uint256.Int).AddOverflow(s.Deposited(), deposit); overflow {
		return ErrAmountOverflow
	}

	switch {
	case atBlock >= active.StopBlock:
		if additionalBlocks == 0 {
			return ErrInvalidDuration
		}
		if deposit.IsZero() {
			return ErrInvalidDeposit
		}
		if atBlock > math.MaxUint64-additionalBlocks {
			return ErrBlockOverflow
		}
		s.segments = append(s.segments, Segment{
			StartBlock: atBlock,
			StopBlock:  atBlock + additionalBlocks,
			Amount:     deposit.Clone(),
		})
	case atBlock <= active.StartBlock:
		if active.StopBlock > math.MaxUint64-additionalBlocks {
			return ErrBlockOverflow
		}
		s.segments[last] = Segment{
			StartBlock: active.StartBlock,
			StopBlock:  active.StopBlock + additionalBlocks,
			Amount:     new(uint256.Int).Add(active.Amount, deposit),
		}
	default:
		if active.StopBlock > math.MaxUint64-additionalBlocks {
			return ErrBlockOverflow
		}
		vested := active.EarnedAt(atBlock)
		unvested := new(uint256.Int).Sub(active.Amount, vested)
		s.segments[last] = Segment{
			StartBlock: active.StartBlock,
			StopBlock:  atBlock,
			Amount:     vested,
		}
		s.segments = append(s.segments, Segment{
			StartBlock: atBlock,
			StopBlock:  active.StopBlock + additionalBlocks,
			Amount:     unvested.Add(unvested, deposit),
		})
	}
	s.observe(atBlock)
	return nil
}

func (s *Stream) observe(block uint64) {
	if block > s.lastBlock {
		s.lastBlock = block
	}
}

// Recipient returns the address the stream pays.
func (s *Stream) Recipient() string { return s.recipient }

// Deposited returns the sum of every deposit made into the stream.
func (s *Stream) Deposited() *uint256.Int {
	total := new(uint256.Int)
	for _, seg := range s.segments {
		total.Add(total, seg.Amount)
	}
	return total
}

// Withdrawn returns the cumulative amount paid out.
func (s *Stream) Withdrawn() *uint256.Int { return s.withdrawn.Clone() }

// StartBlock returns the first block of the schedule.
func (s *Stream) StartBlock() uint64 { return s.segments[0].StartBlock }

// StopBlock returns the block at which the full deposit has vested.
func (s *Stream) StopBlock() uint64 { return s.segments[len(s.segments)-1].StopBlock }

// PaymentPerBlock returns the rate of the active segment. Without top-ups this
// is floor(deposit / duration).
func (s *Stream) PaymentPerBlock() *uint256.Int {
	return s.segments[len(s.segments)-1].Rate()
}

// Segments returns a copy of the schedule.
func (s *Stream) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		out[i] = seg.clone()
	}
	return out
}

// Exhausted reports whether the stream has fully vested by block and every
// unit has been withdrawn.
func (s *Stream) Exhausted(block uint64) bool {
	return block >= s.StopBlock() && s.withdrawn.Eq(s.Deposited())
}

// Clone returns a deep copy of the stream.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}
	return &Stream{
		recipient: s.recipient,
		segments:  s.Segments(),
		withdrawn: s.withdrawn.Clone(),
		lastBlock: s.lastBlock,
	}
}
