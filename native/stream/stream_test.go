package stream

import (
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func mustStream(t *testing.T, deposit, start, duration uint64) *Stream {
	t.Helper()
	s, err := New("ST1SJ3DTE5DN7X54YDH5D64R3BCB6A2AG2ZQ8YPD5", u(deposit), start, duration)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	return s
}

func expectEarned(t *testing.T, s *Stream, block, want uint64) {
	t.Helper()
	if got := s.EarnedAt(block); !got.Eq(u(want)) {
		t.Fatalf("EarnedAt(%d) = %s, want %d", block, got.Dec(), want)
	}
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name      string
		recipient string
		deposit   *uint256.Int
		start     uint64
		duration  uint64
		want      error
	}{
		{name: "blank recipient", recipient: " ", deposit: u(1), duration: 1, want: ErrInvalidRecipient},
		{name: "zero duration", recipient: "ST1", deposit: u(1), duration: 0, want: ErrInvalidDuration},
		{name: "nil deposit", recipient: "ST1", deposit: nil, duration: 1, want: ErrInvalidDeposit},
		{name: "zero deposit", recipient: "ST1", deposit: u(0), duration: 1, want: ErrInvalidDeposit},
		{name: "stop overflows", recipient: "ST1", deposit: u(1), start: math.MaxUint64, duration: 1, want: ErrBlockOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.recipient, tc.deposit, tc.start, tc.duration); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEarnedAtBoundaries(t *testing.T) {
	s := mustStream(t, 1000, 100, 100)
	if s.StopBlock() != 200 {
		t.Fatalf("expected stop block 200, got %d", s.StopBlock())
	}
	if !s.PaymentPerBlock().Eq(u(10)) {
		t.Fatalf("expected rate 10, got %s", s.PaymentPerBlock().Dec())
	}
	expectEarned(t, s, 0, 0)
	expectEarned(t, s, 100, 0)
	expectEarned(t, s, 101, 10)
	expectEarned(t, s, 150, 500)
	expectEarned(t, s, 199, 990)
	expectEarned(t, s, 200, 1000)
	expectEarned(t, s, 250, 1000)
}

func TestEarnedAtFloorsRateAndPaysDustAtStop(t *testing.T) {
	s := mustStream(t, 1000, 0, 3)
	if !s.PaymentPerBlock().Eq(u(333)) {
		t.Fatalf("expected floor rate 333, got %s", s.PaymentPerBlock().Dec())
	}
	expectEarned(t, s, 1, 333)
	expectEarned(t, s, 2, 666)
	expectEarned(t, s, 3, 1000)

	tiny := mustStream(t, 5, 10, 10)
	expectEarned(t, tiny, 15, 0)
	expectEarned(t, tiny, 20, 5)
}

func TestWithdrawDrainsEarnedBalance(t *testing.T) {
	s := mustStream(t, 1000, 100, 100)
	total, err := s.Withdraw(150, u(200))
	if err != nil {
		t.Fatalf("first withdraw: %v", err)
	}
	if !total.Eq(u(200)) {
		t.Fatalf("expected withdrawn 200, got %s", total.Dec())
	}
	if _, err := s.Withdraw(150, u(300)); err != nil {
		t.Fatalf("second withdraw: %v", err)
	}
	if _, err := s.Withdraw(150, u(1)); !errors.Is(err, ErrInsufficientEarned) {
		t.Fatalf("expected ErrInsufficientEarned, got %v", err)
	}
	if !s.Withdrawn().Eq(u(500)) {
		t.Fatalf("failed withdraw changed total to %s", s.Withdrawn().Dec())
	}
	if !s.Withdrawable(120).IsZero() {
		t.Fatalf("earlier block should have nothing withdrawable")
	}
	if _, err := s.Withdraw(150, u(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestExhausted(t *testing.T) {
	s := mustStream(t, 100, 0, 10)
	if _, err := s.Withdraw(10, u(100)); err != nil {
		t.Fatalf("withdraw all: %v", err)
	}
	if !s.Exhausted(10) {
		t.Fatalf("expected stream to be exhausted")
	}
	other := mustStream(t, 100, 0, 10)
	if other.Exhausted(50) {
		t.Fatalf("unwithdrawn stream reported exhausted")
	}
}

func TestTopUpPreservesElapsedAccrual(t *testing.T) {
	s := mustStream(t, 1000, 100, 100)
	before := make(map[uint64]*uint256.Int)
	for b := uint64(90); b <= 150; b++ {
		before[b] = s.EarnedAt(b)
	}
	if err := s.TopUp(150, u(500), 50); err != nil {
		t.Fatalf("top up: %v", err)
	}
	for b, want := range before {
		if got := s.EarnedAt(b); !got.Eq(want) {
			t.Fatalf("EarnedAt(%d) changed from %s to %s", b, want.Dec(), got.Dec())
		}
	}
	if s.StopBlock() != 250 {
		t.Fatalf("expected stop block 250, got %d", s.StopBlock())
	}
	if !s.Deposited().Eq(u(1500)) {
		t.Fatalf("expected deposited 1500, got %s", s.Deposited().Dec())
	}
	// 500 unvested + 500 new over the 100 remaining blocks.
	if !s.PaymentPerBlock().Eq(u(10)) {
		t.Fatalf("expected rate 10, got %s", s.PaymentPerBlock().Dec())
	}
	expectEarned(t, s, 200, 1000)
	expectEarned(t, s, 250, 1500)
	if len(s.Segments()) != 2 {
		t.Fatalf("expected two segments, got %d", len(s.Segments()))
	}
}

func TestTopUpBeforeStartMergesSchedule(t *testing.T) {
	s := mustStream(t, 1000, 100, 100)
	if err := s.TopUp(50, u(1000), 100); err != nil {
		t.Fatalf("top up: %v", err)
	}
	if len(s.Segments()) != 1 {
		t.Fatalf("expected merged schedule")
	}
	if s.StartBlock() != 100 || s.StopBlock() != 300 {
		t.Fatalf("unexpected window %d-%d", s.StartBlock(), s.StopBlock())
	}
	expectEarned(t, s, 200, 1000)
}

func TestTopUpStretchWithoutDeposit(t *testing.T) {
	s := mustStream(t, 1000, 0, 100)
	if err := s.TopUp(50, nil, 50); err != nil {
		t.Fatalf("stretch: %v", err)
	}
	expectEarned(t, s, 50, 500)
	// 500 remaining over 100 blocks.
	expectEarned(t, s, 100, 750)
	expectEarned(t, s, 150, 1000)
}

func TestTopUpAfterEndRestarts(t *testing.T) {
	s := mustStream(t, 100, 0, 10)
	if err := s.TopUp(20, u(50), 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if err := s.TopUp(20, nil, 5); !errors.Is(err, ErrInvalidDeposit) {
		t.Fatalf("expected ErrInvalidDeposit, got %v", err)
	}
	if err := s.TopUp(20, u(50), 5); err != nil {
		t.Fatalf("restart: %v", err)
	}
	expectEarned(t, s, 15, 100)
	expectEarned(t, s, 20, 100)
	expectEarned(t, s, 22, 120)
	expectEarned(t, s, 25, 150)
	if s.StopBlock() != 25 {
		t.Fatalf("expected stop block 25, got %d", s.StopBlock())
	}
}

func TestTopUpValidation(t *testing.T) {
	s := mustStream(t, 1000, 0, 100)
	if err := s.TopUp(10, nil, 0); !errors.Is(err, ErrInvalidTopUp) {
		t.Fatalf("expected ErrInvalidTopUp, got %v", err)
	}
	if err := s.TopUp(40, u(10), 0); err != nil {
		t.Fatalf("top up: %v", err)
	}
	if err := s.TopUp(30, u(10), 0); !errors.Is(err, ErrStaleBlock) {
		t.Fatalf("expected ErrStaleBlock, got %v", err)
	}
	if err := s.TopUp(50, u(10), math.MaxUint64); !errors.Is(err, ErrBlockOverflow) {
		t.Fatalf("expected ErrBlockOverflow, got %v", err)
	}
	if !s.Deposited().Eq(u(1010)) {
		t.Fatalf("failed top-ups changed deposit to %s", s.Deposited().Dec())
	}
}

func TestWithdrawAcrossTopUp(t *testing.T) {
	s := mustStream(t, 1000, 0, 100)
	if _, err := s.Withdraw(50, u(500)); err != nil {
		t.Fatal(err)
	}
	if err := s.TopUp(50, u(1000), 0); err != nil {
		t.Fatal(err)
	}
	// 1500 unvested over 50 blocks.
	if !s.Withdrawable(60).Eq(u(300)) {
		t.Fatalf("expected 300 withdrawable, got %s", s.Withdrawable(60).Dec())
	}
	if _, err := s.Withdraw(100, u(1500)); err != nil {
		t.Fatalf("withdraw remainder: %v", err)
	}
	if !s.Exhausted(100) {
		t.Fatalf("expected exhausted stream")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := mustStream(t, 1000, 0, 10)
	clone := s.Clone()
	if _, err := clone.Withdraw(10, u(1000)); err != nil {
		t.Fatal(err)
	}
	if !s.Withdrawn().IsZero() {
		t.Fatalf("clone shares withdrawn counter")
	}
}

func TestTopUpBeforeWithdrawalBlockIsStale(t *testing.T) {
	s := mustStream(t, 1000, 100, 100)
	if _, err := s.Withdraw(200, u(1000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := s.TopUp(150, u(1000), 1000); !errors.Is(err, ErrStaleBlock) {
		t.Fatalf("expected ErrStaleBlock, got %v", err)
	}
	expectEarned(t, s, 200, 1000)
	if !s.Deposited().Eq(u(1000)) || s.StopBlock() != 200 || len(s.Segments()) != 1 {
		t.Fatalf("rejected top-up changed the schedule")
	}
	if !s.Withdrawn().Eq(u(1000)) {
		t.Fatalf("withdrawn changed to %s", s.Withdrawn().Dec())
	}
	if err := s.TopUp(200, u(500), 50); err != nil {
		t.Fatalf("top up at withdrawal block: %v", err)
	}
	expectEarned(t, s, 200, 1000)
}

func TestRestartBeforeWithdrawalBlockIsStale(t *testing.T) {
	s := mustStream(t, 1000, 100, 100)
	if _, err := s.Withdraw(300, u(1000)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := s.TopUp(250, u(500), 100); !errors.Is(err, ErrStaleBlock) {
		t.Fatalf("expected ErrStaleBlock, got %v", err)
	}
	expectEarned(t, s, 300, 1000)
	if len(s.Segments()) != 1 {
		t.Fatalf("rejected restart appended a segment")
	}
}

func TestWithdrawalNeverExceedsEarnedAfterTopUps(t *testing.T) {
	s := mustStream(t, 1000, 0, 100)
	steps := []struct {
		block    uint64
		withdraw uint64
		deposit  uint64
		blocks   uint64
	}{
		{block: 40, withdraw: 400},
		{block: 30, deposit: 100, blocks: 10},
		{block: 60, deposit: 100, blocks: 10},
		{block: 50, withdraw: 10},
		{block: 90, withdraw: 100},
	}
	var last uint64
	for i, st := range steps {
		if st.withdraw > 0 {
			_, _ = s.Withdraw(st.block, u(st.withdraw))
		} else {
			_ = s.TopUp(st.block, u(st.deposit), st.blocks)
		}
		if st.block > last {
			last = st.block
		}
		if s.Withdrawn().Gt(s.EarnedAt(last)) {
			t.Fatalf("step %d: withdrawn %s exceeds earned %s at block %d",
				i, s.Withdrawn().Dec(), s.EarnedAt(last).Dec(), last)
		}
	}
}

func TestCloneKeepsStaleBlockGuard(t *testing.T) {
	s := mustStream(t, 1000, 0, 100)
	if _, err := s.Withdraw(80, u(100)); err != nil {
		t.Fatal(err)
	}
	if err := s.Clone().TopUp(50, u(10), 0); !errors.Is(err, ErrStaleBlock) {
		t.Fatalf("expected clone to reject stale top-up, got %v", err)
	}
}
