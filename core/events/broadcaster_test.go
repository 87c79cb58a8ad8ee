package events

import (
	"context"
	"testing"
	"time"

	"fundflow/core/types"
)

type testEvent struct{ evt *types.Event }

func (e testEvent) EventType() string    { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

type bareEvent string

func (e bareEvent) EventType() string { return string(e) }

func TestBroadcasterReplaysHistoryAfterCursor(t *testing.T) {
	b := NewBroadcaster(10)
	b.SetNowFunc(func() time.Time { return time.Unix(1700000000, 0) })
	for i := 0; i < 3; i++ {
		b.Emit(testEvent{evt: &types.Event{Type: "crowdfund.contribution.accepted", Attributes: map[string]string{"n": string(rune('a' + i))}}})
	}

	_, cancel, backlog := b.Subscribe(context.Background(), 1)
	defer cancel()
	if len(backlog) != 2 {
		t.Fatalf("expected 2 replayed events, got %d", len(backlog))
	}
	if backlog[0].Sequence != 2 || backlog[0].Cursor != "2" || backlog[0].Attributes["n"] != "b" {
		t.Fatalf("unexpected first replay: %+v", backlog[0])
	}
	if backlog[0].Timestamp != 1700000000 {
		t.Fatalf("unexpected timestamp %d", backlog[0].Timestamp)
	}
}

func TestBroadcasterDeliversLiveEvents(t *testing.T) {
	b := NewBroadcaster(0)
	updates, cancel, backlog := b.Subscribe(context.Background(), 0)
	defer cancel()
	if len(backlog) != 0 {
		t.Fatalf("expected empty backlog")
	}
	b.Emit(bareEvent("stream.created"))
	select {
	case rec := <-updates:
		if rec.Type != "stream.created" || rec.Sequence != 1 {
			t.Fatalf("unexpected record %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcasterTrimsHistory(t *testing.T) {
	b := NewBroadcaster(2)
	for i := 0; i < 5; i++ {
		b.Emit(bareEvent("stream.withdrawn"))
	}
	history := b.History()
	if len(history) != 2 || history[0].Sequence != 4 || history[1].Sequence != 5 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestBroadcasterCancelClosesChannel(t *testing.T) {
	b := NewBroadcaster(1)
	ctx, stop := context.WithCancel(context.Background())
	updates, _, _ := b.Subscribe(ctx, 0)
	stop()
	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not cancelled")
	}
	b.Emit(bareEvent("stream.created"))
}

func TestEmitCopiesAttributes(t *testing.T) {
	b := NewBroadcaster(1)
	attrs := map[string]string{"ledgerId": "l1"}
	b.Emit(testEvent{evt: &types.Event{Type: "crowdfund.ledger.created", Attributes: attrs}})
	attrs["ledgerId"] = "mutated"
	if got := b.History()[0].Attributes["ledgerId"]; got != "l1" {
		t.Fatalf("history aliases caller attributes: %q", got)
	}
}
