package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/holiman/uint256"

	"fundflow/native/stream"
)

func runStreamCommand(client *apiClient, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "create":
		return runStreamCreate(client, args[1:], stdout, stderr)
	case "get":
		return runStreamGet(client, args[1:], stdout, stderr)
	case "withdraw":
		return runStreamWithdraw(client, args[1:], stdout, stderr)
	case "topup":
		return runStreamTopUp(client, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown stream subcommand: %s\n", args[0])
		return 1
	}
}

// resolveSats accepts exactly one of a sat amount or a BTC amount. With
// optional set, neither is also accepted and yields zero.
func resolveSats(sats, btc string, optional bool) (*uint256.Int, error) {
	switch {
	case sats != "" && btc != "":
		return nil, fmt.Errorf("use either a sat amount or --btc, not both")
	case btc != "":
		return stream.ParseBTC(btc)
	case sats != "":
		return stream.ParseSats(sats)
	case optional:
		return new(uint256.Int), nil
	default:
		return nil, fmt.Errorf("an amount is required")
	}
}

// resolveBlocks accepts a block count or a number of days.
func resolveBlocks(blocks, days uint64) (uint64, error) {
	if blocks != 0 && days != 0 {
		return 0, fmt.Errorf("use either blocks or --days, not both")
	}
	if days != 0 {
		return stream.DaysToBlocks(days)
	}
	return blocks, nil
}

func runStreamCreate(client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("stream create", stderr)
	recipient := fs.String("recipient", "", "recipient address")
	deposit := fs.String("deposit", "", "deposit in sats")
	btc := fs.String("btc", "", "deposit in BTC")
	start := fs.Uint64("start", 0, "start block")
	duration := fs.Uint64("duration", 0, "duration in blocks")
	days := fs.Uint64("days", 0, "duration in days")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "recipient", *recipient) {
		return 1
	}
	sats, err := resolveSats(*deposit, *btc, false)
	if err != nil {
		fmt.Fprintf(stderr, "Error: deposit: %v\n", err)
		return 1
	}
	blocks, err := resolveBlocks(*duration, *days)
	if err != nil {
		fmt.Fprintf(stderr, "Error: duration: %v\n", err)
		return 1
	}
	body := map[string]any{
		"recipient":      *recipient,
		"deposit":        sats.Dec(),
		"startBlock":     *start,
		"durationBlocks": blocks,
	}
	return emit(client, http.MethodPost, "/v1/streams", body, stdout, stderr)
}

func runStreamGet(client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("stream get", stderr)
	id := fs.String("id", "", "stream id")
	block := fs.String("block", "", "evaluate accrual at this block")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "id", *id) {
		return 1
	}
	path := "/v1/streams/" + url.PathEscape(*id)
	if *block != "" {
		if _, err := strconv.ParseUint(*block, 10, 64); err != nil {
			fmt.Fprintf(stderr, "Error: --block: %v\n", err)
			return 1
		}
		path += "?block=" + *block
	}
	return emit(client, http.MethodGet, path, nil, stdout, stderr)
}

func runStreamWithdraw(client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("stream withdraw", stderr)
	id := fs.String("id", "", "stream id")
	block := fs.Uint64("block", 0, "current block height")
	amount := fs.String("amount", "", "amount in sats")
	btc := fs.String("btc", "", "amount in BTC")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "id", *id) {
		return 1
	}
	sats, err := resolveSats(*amount, *btc, false)
	if err != nil {
		fmt.Fprintf(stderr, "Error: amount: %v\n", err)
		return 1
	}
	body := map[string]any{"block": *block, "amount": sats.Dec()}
	return emit(client, http.MethodPost, "/v1/streams/"+url.PathEscape(*id)+"/withdrawals", body, stdout, stderr)
}

func runStreamTopUp(client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("stream topup", stderr)
	id := fs.String("id", "", "stream id")
	block := fs.Uint64("block", 0, "current block height")
	deposit := fs.String("deposit", "", "additional deposit in sats")
	btc := fs.String("btc", "", "additional deposit in BTC")
	blocks := fs.Uint64("blocks", 0, "additional blocks")
	days := fs.Uint64("days", 0, "additional days")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "id", *id) {
		return 1
	}
	sats, err := resolveSats(*deposit, *btc, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: deposit: %v\n", err)
		return 1
	}
	extra, err := resolveBlocks(*blocks, *days)
	if err != nil {
		fmt.Fprintf(stderr, "Error: blocks: %v\n", err)
		return 1
	}
	body := map[string]any{"block": *block, "deposit": sats.Dec(), "blocks": extra}
	return emit(client, http.MethodPost, "/v1/streams/"+url.PathEscape(*id)+"/topups", body, stdout, stderr)
}
