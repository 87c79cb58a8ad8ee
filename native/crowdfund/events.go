package crowdfund

import (
	"strconv"

	"fundflow/core/events"
	"fundflow/core/types"
)

const (
	// EventTypeLedgerCreated is emitted when a ledger is opened with a goal.
	EventTypeLedgerCreated = "crowdfund.ledger.created"
	// EventTypeContributionAccepted is emitted for every accepted contribution.
	EventTypeContributionAccepted = "crowdfund.contribution.accepted"
	// EventTypeLedgerFunded is emitted once when the goal is reached.
	EventTypeLedgerFunded = "crowdfund.ledger.funded"
	// EventTypePayoutsComputed is emitted when a distribution is requested.
	EventTypePayoutsComputed = "crowdfund.payouts.computed"
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

// LedgerCreatedEvent announces a new ledger.
func LedgerCreatedEvent(ledgerID string, goal string, policy Policy) *types.Event {
	return &types.Event{
		Type: EventTypeLedgerCreated,
		Attributes: map[string]string{
			"ledgerId": ledgerID,
			"goal":     goal,
			"policy":   string(policy),
		},
	}
}

// ContributionAcceptedEvent captures an accepted contribution and the new total.
func ContributionAcceptedEvent(ledgerID string, contributor string, amount string, total string) *types.Event {
	return &types.Event{
		Type: EventTypeContributionAccepted,
		Attributes: map[string]string{
			"ledgerId":    ledgerID,
			"contributor": contributor,
			"amount":      amount,
			"total":       total,
		},
	}
}

// LedgerFundedEvent marks the contribution that completed the goal.
func LedgerFundedEvent(ledgerID string, goal string, contributors int) *types.Event {
	return &types.Event{
		Type: EventTypeLedgerFunded,
		Attributes: map[string]string{
			"ledgerId":     ledgerID,
			"goal":         goal,
			"contributors": strconv.Itoa(contributors),
		},
	}
}

// PayoutsComputedEvent records a distribution request.
func PayoutsComputedEvent(ledgerID string, cost string, payouts int) *types.Event {
	return &types.Event{
		Type: EventTypePayoutsComputed,
		Attributes: map[string]string{
			"ledgerId": ledgerID,
			"cost":     cost,
			"payouts":  strconv.Itoa(payouts),
		},
	}
}
