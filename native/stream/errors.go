package stream

import "errors"

var (
	ErrInvalidRecipient   = errors.New("stream: recipient address required")
	ErrInvalidDeposit     = errors.New("stream: deposit must be positive")
	ErrInvalidDuration    = errors.New("stream: duration must be positive")
	ErrInvalidAmount      = errors.New("stream: amount must be positive")
	ErrInsufficientEarned = errors.New("stream: amount exceeds earned balance")
	ErrInvalidTopUp       = errors.New("stream: top-up must add deposit or blocks")
	ErrStaleBlock         = errors.New("stream: block precedes latest schedule change")
	ErrBlockOverflow      = errors.New("stream: block height overflow")
	ErrAmountOverflow     = errors.New("stream: amount overflow")
)
