package stream

import (
	"strconv"

	"fundflow/core/events"
	"fundflow/core/types"

	"github.com/holiman/uint256"
)

const (
	// EventTypeStreamCreated is emitted when a stream is opened.
	EventTypeStreamCreated = "stream.created"
	// EventTypeStreamWithdrawn is emitted for every accepted withdrawal.
	EventTypeStreamWithdrawn = "stream.withdrawn"
	// EventTypeStreamToppedUp is emitted when deposit or duration is added.
	EventTypeStreamToppedUp = "stream.topped_up"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// CreatedEvent describes a newly opened stream.
func CreatedEvent(streamID string, s *Stream) *types.Event {
	return &types.Event{
		Type: EventTypeStreamCreated,
		Attributes: map[string]string{
			"streamId":        streamID,
			"recipient":       s.Recipient(),
			"deposit":         s.Deposited().Dec(),
			"startBlock":      strconv.FormatUint(s.StartBlock(), 10),
			"stopBlock":       strconv.FormatUint(s.StopBlock(), 10),
			"paymentPerBlock": s.PaymentPerBlock().Dec(),
		},
	}
}

// WithdrawnEvent records a withdrawal and the resulting cumulative total.
func WithdrawnEvent(streamID string, recipient string, block uint64, amount, withdrawn *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeStreamWithdrawn,
		Attributes: map[string]string{
			"streamId":  streamID,
			"recipient": recipient,
			"block":     strconv.FormatUint(block, 10),
			"amount":    amount.Dec(),
			"withdrawn": withdrawn.Dec(),
		},
	}
}

// ToppedUpEvent records a schedule extension.
func ToppedUpEvent(streamID string, s *Stream, block uint64, deposit *uint256.Int, blocks uint64) *types.Event {
	return &types.Event{
		Type: EventTypeStreamToppedUp,
		Attributes: map[string]string{
			"streamId":        streamID,
			"block":           strconv.FormatUint(block, 10),
			"deposit":         deposit.Dec(),
			"blocks":          strconv.FormatUint(blocks, 10),
			"deposited":       s.Deposited().Dec(),
			"stopBlock":       strconv.FormatUint(s.StopBlock(), 10),
			"paymentPerBlock": s.PaymentPerBlock().Dec(),
		},
	}
}
