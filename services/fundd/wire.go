package fundd

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"fundflow/native/crowdfund"
	"fundflow/native/stream"
)

type createLedgerRequest struct {
	Goal   string `json:"goal"`
	Policy string `json:"policy,omitempty"`
}

type contributionRequest struct {
	Contributor string `json:"contributor"`
	Amount      string `json:"amount"`
}

type distributionRequest struct {
	Cost string `json:"cost"`
}

type createStreamRequest struct {
	Recipient      string `json:"recipient"`
	Deposit        string `json:"deposit"`
	StartBlock     int64  `json:"startBlock"`
	DurationBlocks int64  `json:"durationBlocks"`
}

type withdrawalRequest struct {
	Block  int64  `json:"block"`
	Amount string `json:"amount"`
}

type topUpRequest struct {
	Block   int64  `json:"block"`
	Deposit string `json:"deposit,omitempty"`
	Blocks  int64  `json:"blocks"`
}

type contributionView struct {
	Contributor string `json:"contributor"`
	Amount      string `json:"amount"`
}

type ledgerResponse struct {
	ID            string             `json:"id"`
	Goal          string             `json:"goal"`
	Total         string             `json:"total"`
	Remaining     string             `json:"remaining"`
	Funded        bool               `json:"funded"`
	Policy        string             `json:"policy"`
	Progress      string             `json:"progress"`
	Contributions []contributionView `json:"contributions"`
	CreatedAt     time.Time          `json:"createdAt"`
	Version       uint64             `json:"version"`
}

type receiptResponse struct {
	LedgerID string `json:"ledgerId"`
	Total    string `json:"total"`
	Funded   bool   `json:"funded"`
}

type payoutView struct {
	Contributor string `json:"contributor"`
	Amount      string `json:"amount"`
	Exact       string `json:"exact"`
}

type distributionResponse struct {
	LedgerID string       `json:"ledgerId"`
	Cost     string       `json:"cost"`
	Payouts  []payoutView `json:"payouts"`
}

type segmentView struct {
	StartBlock uint64 `json:"startBlock"`
	StopBlock  uint64 `json:"stopBlock"`
	Amount     string `json:"amount"`
	Rate       string `json:"rate"`
}

type streamResponse struct {
	ID              string        `json:"id"`
	Recipient       string        `json:"recipient"`
	Deposited       string        `json:"deposited"`
	DepositedBTC    string        `json:"depositedBtc"`
	Withdrawn       string        `json:"withdrawn"`
	StartBlock      uint64        `json:"startBlock"`
	StopBlock       uint64        `json:"stopBlock"`
	PaymentPerBlock string        `json:"paymentPerBlock"`
	Segments        []segmentView `json:"segments"`
	Block           *uint64       `json:"block,omitempty"`
	Earned          string        `json:"earned,omitempty"`
	Withdrawable    string        `json:"withdrawable,omitempty"`
	Exhausted       *bool         `json:"exhausted,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	Version         uint64        `json:"version"`
}

type withdrawalResponse struct {
	StreamID  string `json:"streamId"`
	Block     uint64 `json:"block"`
	Amount    string `json:"amount"`
	Withdrawn string `json:"withdrawn"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ledgerResponseFrom(snap LedgerSnapshot) ledgerResponse {
	l := snap.Ledger
	contributions := l.Contributions()
	views := make([]contributionView, len(contributions))
	for i, c := range contributions {
		views[i] = contributionView{Contributor: c.Contributor, Amount: crowdfund.FormatExact(c.Amount)}
	}
	return ledgerResponse{
		ID:            snap.ID,
		Goal:          crowdfund.FormatExact(l.Goal()),
		Total:         crowdfund.FormatExact(l.Total()),
		Remaining:     crowdfund.FormatExact(l.Remaining()),
		Funded:        l.Funded(),
		Policy:        string(l.Policy()),
		Progress:      crowdfund.FormatAmount(l.Progress(), 2),
		Contributions: views,
		CreatedAt:     snap.CreatedAt,
		Version:       snap.Version,
	}
}

func distributionResponseFrom(ledgerID string, cost *big.Rat, payouts []crowdfund.Payout, places int32) distributionResponse {
	views := make([]payoutView, len(payouts))
	for i, p := range payouts {
		views[i] = payoutView{
			Contributor: p.Contributor,
			Amount:      crowdfund.FormatAmount(p.Amount, places),
			Exact:       p.Amount.RatString(),
		}
	}
	return distributionResponse{LedgerID: ledgerID, Cost: crowdfund.FormatExact(cost), Payouts: views}
}

// streamResponseFrom renders snap. When block is non-nil the accrual fields
// are evaluated at that height.
func streamResponseFrom(snap StreamSnapshot, block *uint64) streamResponse {
	s := snap.Stream
	segments := s.Segments()
	views := make([]segmentView, len(segments))
	for i, seg := range segments {
		views[i] = segmentView{
			StartBlock: seg.StartBlock,
			StopBlock:  seg.StopBlock,
			Amount:     seg.Amount.Dec(),
			Rate:       seg.Rate().Dec(),
		}
	}
	resp := streamResponse{
		ID:              snap.ID,
		Recipient:       s.Recipient(),
		Deposited:       s.Deposited().Dec(),
		DepositedBTC:    stream.FormatBTC(s.Deposited()),
		Withdrawn:       s.Withdrawn().Dec(),
		StartBlock:      s.StartBlock(),
		StopBlock:       s.StopBlock(),
		PaymentPerBlock: s.PaymentPerBlock().Dec(),
		Segments:        views,
		CreatedAt:       snap.CreatedAt,
		Version:         snap.Version,
	}
	if block != nil {
		at := *block
		exhausted := s.Exhausted(at)
		resp.Block = &at
		resp.Earned = s.EarnedAt(at).Dec()
		resp.Withdrawable = s.Withdrawable(at).Dec()
		resp.Exhausted = &exhausted
	}
	return resp
}

func parseRat(field, raw string) (*big.Rat, error) {
	v, err := crowdfund.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadRequest, field, err)
	}
	return v, nil
}

// parseUnits parses a smallest-unit integer. A negative value yields
// negative, the engine error for that field.
func parseUnits(field, raw string, negative error) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "-") {
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return nil, negative
		}
	}
	v, err := stream.ParseSats(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadRequest, field, err)
	}
	return v, nil
}

func nonNegativeBlock(field string, v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrBadRequest, field)
	}
	return uint64(v), nil
}

// durationBlocks maps negative durations onto the engine's duration error.
func durationBlocks(v int64) (uint64, error) {
	if v < 0 {
		return 0, stream.ErrInvalidDuration
	}
	return uint64(v), nil
}

func parseBlockQuery(raw string) (*uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: block: %v", ErrBadRequest, err)
	}
	return &v, nil
}
