package crowdfund

import "errors"

var (
	ErrInvalidGoal        = errors.New("crowdfund: goal must be positive")
	ErrInvalidContributor = errors.New("crowdfund: contributor address required")
	ErrInvalidAmount      = errors.New("crowdfund: amount must be positive")
	ErrGoalExceeded       = errors.New("crowdfund: contribution exceeds remaining goal")
	ErrInvalidCost        = errors.New("crowdfund: cost must be positive")
	ErrNotFunded          = errors.New("crowdfund: ledger not fully funded")
	ErrDivisionByZero     = errors.New("crowdfund: no contributions to distribute against")
	ErrInvalidPolicy      = errors.New("crowdfund: unknown distribution policy")
)
