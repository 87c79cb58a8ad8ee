package fundd

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/holiman/uint256"

	"fundflow/core/events"
	"fundflow/native/common"
	"fundflow/native/crowdfund"
	"fundflow/native/stream"
)

func sequentialIDs() func() string {
	var n atomic.Uint64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

func TestRegistryConcurrentContributionsNeverOvershoot(t *testing.T) {
	reg := NewRegistry(WithIDFunc(sequentialIDs()))
	snap, err := reg.CreateLedger(big.NewRat(100, 1), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
		rejected atomic.Int64
	)
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Contribute(snap.ID, fmt.Sprintf("ST%d", i), big.NewRat(1, 1))
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, crowdfund.ErrGoalExceeded):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted.Load() != 100 || rejected.Load() != 150 {
		t.Fatalf("expected 100 accepted and 150 rejected, got %d/%d", accepted.Load(), rejected.Load())
	}
	got, err := reg.Ledger(snap.ID)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if !got.Ledger.Funded() || got.Ledger.Total().Cmp(big.NewRat(100, 1)) != 0 {
		t.Fatalf("unexpected total %s", got.Ledger.Total().RatString())
	}
	if got.Version != 101 {
		t.Fatalf("expected version 101, got %d", got.Version)
	}
}

func TestRegistryConcurrentWithdrawalsRespectEarned(t *testing.T) {
	reg := NewRegistry(WithIDFunc(sequentialIDs()))
	snap, err := reg.CreateStream("ST1", uint256.NewInt(1000), 0, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Withdraw(snap.ID, 50, uint256.NewInt(10))
		}()
	}
	wg.Wait()
	got, err := reg.Stream(snap.ID)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if !got.Stream.Withdrawn().Eq(uint256.NewInt(500)) {
		t.Fatalf("expected exactly the earned 500 withdrawn, got %s", got.Stream.Withdrawn().Dec())
	}
}

func TestRegistryEmitsEvents(t *testing.T) {
	bus := events.NewBroadcaster(0)
	reg := NewRegistry(WithIDFunc(sequentialIDs()), WithEmitter(bus))

	ledger, err := reg.CreateLedger(big.NewRat(10, 1), crowdfund.PolicyRequireFunded)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Contribute(ledger.ID, "A", big.NewRat(4, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Contribute(ledger.ID, "B", big.NewRat(7, 1)); !errors.Is(err, crowdfund.ErrGoalExceeded) {
		t.Fatalf("expected ErrGoalExceeded, got %v", err)
	}
	if _, err := reg.Contribute(ledger.ID, "B", big.NewRat(6, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Distribute(ledger.ID, big.NewRat(5, 1)); err != nil {
		t.Fatal(err)
	}
	s, err := reg.CreateStream("ST1", uint256.NewInt(100), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Withdraw(s.ID, 5, uint256.NewInt(50)); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.TopUp(s.ID, 5, uint256.NewInt(50), 5); err != nil {
		t.Fatal(err)
	}

	want := []string{
		crowdfund.EventTypeLedgerCreated,
		crowdfund.EventTypeContributionAccepted,
		crowdfund.EventTypeContributionAccepted,
		crowdfund.EventTypeLedgerFunded,
		crowdfund.EventTypePayoutsComputed,
		stream.EventTypeStreamCreated,
		stream.EventTypeStreamWithdrawn,
		stream.EventTypeStreamToppedUp,
	}
	history := bus.History()
	if len(history) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(history))
	}
	for i, rec := range history {
		if rec.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], rec.Type)
		}
	}
	if history[3].Attributes["contributors"] != "2" {
		t.Fatalf("unexpected funded event %v", history[3].Attributes)
	}
	if history[6].Attributes["withdrawn"] != "50" {
		t.Fatalf("unexpected withdrawal event %v", history[6].Attributes)
	}
}

func TestRegistryPauseAndNotFound(t *testing.T) {
	pauses := common.NewPauses(common.ModuleStream)
	reg := NewRegistry(WithIDFunc(sequentialIDs()), WithPauses(pauses))

	if _, err := reg.CreateStream("ST1", uint256.NewInt(10), 0, 10); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if _, err := reg.CreateLedger(big.NewRat(1, 1), ""); err != nil {
		t.Fatalf("crowdfund should not be paused: %v", err)
	}
	pauses.Set(common.ModuleStream, false)
	if _, err := reg.CreateStream("ST1", uint256.NewInt(10), 0, 10); err != nil {
		t.Fatalf("resumed stream module: %v", err)
	}

	if _, err := reg.Ledger("missing"); !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("expected ErrLedgerNotFound, got %v", err)
	}
	if _, err := reg.Withdraw("missing", 1, uint256.NewInt(1)); !errors.Is(err, ErrStreamNotFound) {
		t.Fatalf("expected ErrStreamNotFound, got %v", err)
	}
}

func TestRegistryDefaultPolicy(t *testing.T) {
	reg := NewRegistry(WithDefaultPolicy(crowdfund.PolicyRequireFunded))
	snap, err := reg.CreateLedger(big.NewRat(10, 1), "")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Ledger.Policy() != crowdfund.PolicyRequireFunded {
		t.Fatalf("expected default policy, got %s", snap.Ledger.Policy())
	}
	if ids := reg.LedgerIDs(); len(ids) != 1 || ids[0] != snap.ID {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestRegistryEventCarriesStoredContributor(t *testing.T) {
	bus := events.NewBroadcaster(0)
	reg := NewRegistry(WithIDFunc(sequentialIDs()), WithEmitter(bus))
	ledger, err := reg.CreateLedger(big.NewRat(10, 1), crowdfund.PolicyAnyFunding)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Contribute(ledger.ID, "  ST1A \t", big.NewRat(3, 1)); err != nil {
		t.Fatal(err)
	}
	snap, err := reg.Ledger(ledger.ID)
	if err != nil {
		t.Fatal(err)
	}
	stored := snap.Ledger.Contributions()[0].Contributor
	history := bus.History()
	accepted := history[len(history)-1]
	if accepted.Type != crowdfund.EventTypeContributionAccepted {
		t.Fatalf("unexpected event %s", accepted.Type)
	}
	if got := accepted.Attributes["contributor"]; got != stored || got != "ST1A" {
		t.Fatalf("event contributor %q, ledger contributor %q", got, stored)
	}
}
