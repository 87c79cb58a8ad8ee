package crowdfund

import (
	"fmt"
	"math/big"
	"strings"
)

// Policy controls when a ledger accepts distribution requests.
type Policy string

const (
	// PolicyAnyFunding allows distribution at any funding level. Shares are
	// normalised by the amount actually contributed, not by the goal.
	PolicyAnyFunding Policy = "any"
	// PolicyRequireFunded rejects distribution until the goal is reached.
	PolicyRequireFunded Policy = "funded"
)

// ParsePolicy normalises a policy name. An empty value selects
// PolicyAnyFunding.
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(PolicyAnyFunding):
		return PolicyAnyFunding, nil
	case string(PolicyRequireFunded):
		return PolicyRequireFunded, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, raw)
	}
}

// Contribution is a single accepted (contributor, amount) pair.
type Contribution struct {
	Contributor string   `json:"contributor"`
	Amount      *big.Rat `json:"amount"`
}

func (c Contribution) clone() Contribution {
	return Contribution{Contributor: c.Contributor, Amount: newRat(c.Amount)}
}

// Payout is the share of a distributed cost owed by one contribution.
type Payout struct {
	Contributor string   `json:"contributor"`
	Amount      *big.Rat `json:"amount"`
}

// Receipt describes the ledger after an accepted contribution.
type Receipt struct {
	Total  *big.Rat
	Funded bool
}

// SumPayouts returns the total of the supplied payouts.
func SumPayouts(payouts []Payout) *big.Rat {
	sum := new(big.Rat)
	for _, p := range payouts {
		if p.Amount != nil {
			sum.Add(sum, p.Amount)
		}
	}
	return sum
}

func newRat(v *big.Rat) *big.Rat {
	if v == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(v)
}
