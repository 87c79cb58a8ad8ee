package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fundflow/native/crowdfund"
	"fundflow/native/stream"
	"fundflow/services/fundd"
)

// scenario is a local dry run of ledgers and streams.
type scenario struct {
	Ledgers []ledgerScenario `yaml:"ledgers"`
	Streams []streamScenario `yaml:"streams"`
}

type ledgerScenario struct {
	Name   string `yaml:"name"`
	Goal   string `yaml:"goal"`
	Policy string `yaml:"policy"`
	Steps  []step `yaml:"steps"`
}

type streamScenario struct {
	Name           string `yaml:"name"`
	Recipient      string `yaml:"recipient"`
	Deposit        string `yaml:"deposit"`
	DepositBTC     string `yaml:"depositBtc"`
	StartBlock     uint64 `yaml:"startBlock"`
	DurationBlocks uint64 `yaml:"durationBlocks"`
	DurationDays   uint64 `yaml:"durationDays"`
	Steps          []step `yaml:"steps"`
}

type step struct {
	Action      string `yaml:"action"`
	Contributor string `yaml:"contributor"`
	Amount      string `yaml:"amount"`
	AmountBTC   string `yaml:"amountBtc"`
	Cost        string `yaml:"cost"`
	Block       uint64 `yaml:"block"`
	Deposit     string `yaml:"deposit"`
	DepositBTC  string `yaml:"depositBtc"`
	Blocks      uint64 `yaml:"blocks"`
	Days        uint64 `yaml:"days"`
	ExpectError string `yaml:"expectError"`
}

type stepResult struct {
	Subject string            `json:"subject"`
	Step    int               `json:"step"`
	Action  string            `json:"action"`
	Result  map[string]string `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	OK      bool              `json:"ok"`
}

type simulationReport struct {
	Steps  []stepResult `json:"steps"`
	Failed int          `json:"failed"`
}

func runSimulateCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("simulate", stderr)
	file := fs.String("file", "", "scenario YAML file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "file", *file) {
		return 1
	}
	sc, err := loadScenario(*file)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	report, err := simulate(sc)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if report.Failed > 0 {
		fmt.Fprintf(stderr, "%d step(s) did not match expectations\n", report.Failed)
		return 1
	}
	return 0
}

func loadScenario(path string) (scenario, error) {
	var sc scenario
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("read scenario: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return sc, errors.New("scenario is empty")
		}
		return sc, fmt.Errorf("decode scenario: %w", err)
	}
	return sc, nil
}

// simulate replays every scenario against in-process engines. Setup errors
// abort the run; step outcomes are compared with their expectations.
func simulate(sc scenario) (simulationReport, error) {
	report := simulationReport{Steps: []stepResult{}}
	for _, ls := range sc.Ledgers {
		goal, err := crowdfund.ParseAmount(ls.Goal)
		if err != nil {
			return report, fmt.Errorf("ledger %s: goal: %w", ls.Name, err)
		}
		policy, err := crowdfund.ParsePolicy(ls.Policy)
		if err != nil {
			return report, fmt.Errorf("ledger %s: %w", ls.Name, err)
		}
		ledger, err := crowdfund.NewWithPolicy(goal, policy)
		if err != nil {
			return report, fmt.Errorf("ledger %s: %w", ls.Name, err)
		}
		for i, st := range ls.Steps {
			result, err := runLedgerStep(ledger, st)
			report.record(ls.Name, i, st, result, err)
		}
	}
	for _, ss := range sc.Streams {
		deposit, err := resolveSats(ss.Deposit, ss.DepositBTC, false)
		if err != nil {
			return report, fmt.Errorf("stream %s: deposit: %w", ss.Name, err)
		}
		duration, err := resolveBlocks(ss.DurationBlocks, ss.DurationDays)
		if err != nil {
			return report, fmt.Errorf("stream %s: duration: %w", ss.Name, err)
		}
		s, err := stream.New(ss.Recipient, deposit, ss.StartBlock, duration)
		if err != nil {
			return report, fmt.Errorf("stream %s: %w", ss.Name, err)
		}
		for i, st := range ss.Steps {
			result, err := runStreamStep(s, st)
			report.record(ss.Name, i, st, result, err)
		}
	}
	return report, nil
}

func (r *simulationReport) record(subject string, idx int, st step, result map[string]string, err error) {
	code := fundd.ErrorCode(err)
	if err != nil && code == "internal" {
		code = err.Error()
	}
	res := stepResult{
		Subject: subject,
		Step:    idx + 1,
		Action:  st.Action,
		Result:  result,
		Error:   code,
		OK:      code == strings.TrimSpace(st.ExpectError),
	}
	if !res.OK {
		r.Failed++
	}
	r.Steps = append(r.Steps, res)
}

func runLedgerStep(l *crowdfund.Ledger, st step) (map[string]string, error) {
	switch st.Action {
	case "contribute":
		amount, err := crowdfund.ParseAmount(st.Amount)
		if err != nil {
			return nil, crowdfund.ErrInvalidAmount
		}
		receipt, err := l.AddContribution(st.Contributor, amount)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"total":  crowdfund.FormatExact(receipt.Total),
			"funded": fmt.Sprint(receipt.Funded),
		}, nil
	case "distribute":
		cost, err := crowdfund.ParseAmount(st.Cost)
		if err != nil {
			return nil, crowdfund.ErrInvalidCost
		}
		payouts, err := l.Distribute(cost)
		if err != nil {
			return nil, err
		}
		// Repeat contributors are reported as one summed share.
		shares := make(map[string]*big.Rat, len(payouts))
		for _, p := range payouts {
			if sum, ok := shares[p.Contributor]; ok {
				sum.Add(sum, p.Amount)
				continue
			}
			shares[p.Contributor] = p.Amount
		}
		out := make(map[string]string, len(shares))
		for who, amount := range shares {
			out[who] = crowdfund.FormatExact(amount)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown ledger action %q", st.Action)
	}
}

func runStreamStep(s *stream.Stream, st step) (map[string]string, error) {
	switch st.Action {
	case "earned":
		return map[string]string{
			"earned":       s.EarnedAt(st.Block).Dec(),
			"withdrawable": s.Withdrawable(st.Block).Dec(),
			"exhausted":    fmt.Sprint(s.Exhausted(st.Block)),
		}, nil
	case "withdraw":
		amount, err := resolveSats(st.Amount, st.AmountBTC, false)
		if err != nil {
			return nil, stream.ErrInvalidAmount
		}
		total, err := s.Withdraw(st.Block, amount)
		if err != nil {
			return nil, err
		}
		return map[string]string{"withdrawn": total.Dec()}, nil
	case "topup":
		deposit, err := resolveSats(st.Deposit, st.DepositBTC, true)
		if err != nil {
			return nil, stream.ErrInvalidDeposit
		}
		blocks, err := resolveBlocks(st.Blocks, st.Days)
		if err != nil {
			return nil, stream.ErrInvalidDuration
		}
		if err := s.TopUp(st.Block, deposit, blocks); err != nil {
			return nil, err
		}
		return map[string]string{
			"deposited": s.Deposited().Dec(),
			"stopBlock": fmt.Sprint(s.StopBlock()),
			"rate":      s.PaymentPerBlock().Dec(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown stream action %q", st.Action)
	}
}
