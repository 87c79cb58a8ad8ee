package crowdfund

import (
	"math/big"
	"strings"
)

var hundred = big.NewRat(100, 1)

// Ledger tracks contributions toward a funding goal and splits costs between
// contributors in proportion to what they put in.
//
// A Ledger is not safe for concurrent use. Callers sharing one instance must
// serialise AddContribution against every other call.
type Ledger struct {
	goal          *big.Rat
	policy        Policy
	contributions []Contribution
	total         *big.Rat
}

// New returns an empty ledger for the supplied goal using PolicyAnyFunding.
func New(goal *big.Rat) (*Ledger, error) {
	return NewWithPolicy(goal, PolicyAnyFunding)
}

// NewWithPolicy returns an empty ledger with an explicit distribution policy.
func NewWithPolicy(goal *big.Rat, policy Policy) (*Ledger, error) {
	if goal == nil || goal.Sign() <= 0 {
		return nil, ErrInvalidGoal
	}
	switch policy {
	case PolicyAnyFunding, PolicyRequireFunded:
	default:
		return nil, ErrInvalidPolicy
	}
	return &Ledger{
		goal:   new(big.Rat).Set(goal),
		policy: policy,
		total:  new(big.Rat),
	}, nil
}

// AddContribution accepts amount from contributor. Contributions that would
// push the total past the goal are rejected outright, never clamped, and the
// ledger is left untouched on any error.
func (l *Ledger) AddContribution(contributor string, amount *big.Rat) (Receipt, error) {
	addr := strings.TrimSpace(contributor)
	if addr == "" {
		return Receipt{}, ErrInvalidContributor
	}
	if amount == nil || amount.Sign() <= 0 {
		return Receipt{}, ErrInvalidAmount
	}
	if amount.Cmp(l.Remaining()) > 0 {
		return Receipt{}, ErrGoalExceeded
	}
	l.contributions = append(l.contributions, Contribution{
		Contributor: addr,
		Amount:      new(big.Rat).Set(amount),
	})
	l.total.Add(l.total, amount)
	return Receipt{Total: new(big.Rat).Set(l.total), Funded: l.Funded()}, nil
}

// Distribute splits cost across the accepted contributions. Each payout is
// contribution/total*cost computed exactly, so the payouts always sum to cost.
// The result is recomputed from scratch on every call and depends only on the
// current contributions.
func (l *Ledger) Distribute(cost *big.Rat) ([]Payout, error) {
	if cost == nil || cost.Sign() <= 0 {
		return nil, ErrInvalidCost
	}
	if l.policy == PolicyRequireFunded && !l.Funded() {
		return nil, ErrNotFunded
	}
	if l.total.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	payouts := make([]Payout, 0, len(l.contributions))
	for _, c := range l.contributions {
		share := new(big.Rat).Quo(c.Amount, l.total)
		payouts = append(payouts, Payout{
			Contributor: c.Contributor,
			Amount:      share.Mul(share, cost),
		})
	}
	return payouts, nil
}

// Goal returns the funding target.
func (l *Ledger) Goal() *big.Rat { return new(big.Rat).Set(l.goal) }

// Total returns the sum of accepted contributions.
func (l *Ledger) Total() *big.Rat { return new(big.Rat).Set(l.total) }

// Remaining returns how much can still be contributed.
func (l *Ledger) Remaining() *big.Rat { return new(big.Rat).Sub(l.goal, l.total) }

// Funded reports whether the goal has been reached.
func (l *Ledger) Funded() bool { return l.total.Cmp(l.goal) == 0 }

// Policy returns the distribution policy of the ledger.
func (l *Ledger) Policy() Policy { return l.policy }

// Progress returns the funded percentage of the goal in [0, 100].
func (l *Ledger) Progress() *big.Rat {
	pct := new(big.Rat).Quo(l.total, l.goal)
	return pct.Mul(pct, hundred)
}

// Contributions returns a copy of the accepted contributions in acceptance
// order.
func (l *Ledger) Contributions() []Contribution {
	out := make([]Contribution, len(l.contributions))
	for i, c := range l.contributions {
		out[i] = c.clone()
	}
	return out
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	return &Ledger{
		goal:          new(big.Rat).Set(l.goal),
		policy:        l.policy,
		contributions: l.Contributions(),
		total:         new(big.Rat).Set(l.total),
	}
}
