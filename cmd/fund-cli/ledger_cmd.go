package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fundflow/native/crowdfund"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runLedgerCommand(client *apiClient, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "create":
		return runLedgerCreate(client, args[1:], stdout, stderr)
	case "get":
		return runLedgerGet(client, args[1:], stdout, stderr)
	case "contribute":
		return runLedgerContribute(client, args[1:], stdout, stderr)
	case "distribute":
		return runLedgerDistribute(client, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown ledger subcommand: %s\n", args[0])
		return 1
	}
}

func runLedgerCreate(client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("ledger create", stderr)
	goal := fs.String("goal", "", "funding goal")
	policy := fs.String("policy", "", "distribution policy (any or funded)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := crowdfund.ParseAmount(*goal); err != nil {
		fmt.Fprintf(stderr, "Error: --goal: %v\n", err)
		return 1
	}
	if *policy != "" {
		if _, err := crowdfund.ParsePolicy(*policy); err != nil {
			fmt.Fprintf(stderr, "Error: --policy: %v\n", err)
			return 1
		}
	}
	body := map[string]string{"goal": strings.TrimSpace(*goal)}
	if *policy != "" {
		body["policy"] = strings.ToLower(strings.TrimSpace(*policy))
	}
	return emit(client, http.MethodPost, "/v1/ledgers", body, stdout, stderr)
}

func runLedgerGet(client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("ledger get", stderr)
	id := fs.String("id", "", "ledger id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "id", *id) {
		return 1
	}
	return emit(client, http.MethodGet, "/v1/ledgers/"+url.PathEscape(*id), nil, stdout, stderr)
}

func runLedgerContribute(client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("ledger contribute", stderr)
	id := fs.String("id", "", "ledger id")
	contributor := fs.String("contributor", "", "contributor address")
	amount := fs.String("amount", "", "contribution amount")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "id", *id) || !requireFlag(stderr, "contributor", *contributor) || !requireFlag(stderr, "amount", *amount) {
		return 1
	}
	body := map[string]string{"contributor": *contributor, "amount": *amount}
	return emit(client, http.MethodPost, "/v1/ledgers/"+url.PathEscape(*id)+"/contributions", body, stdout, stderr)
}

func runLedgerDistribute(client *apiClient, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("ledger distribute", stderr)
	id := fs.String("id", "", "ledger id")
	cost := fs.String("cost", "", "total cost to split")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if !requireFlag(stderr, "id", *id) || !requireFlag(stderr, "cost", *cost) {
		return 1
	}
	body := map[string]string{"cost": *cost}
	return emit(client, http.MethodPost, "/v1/ledgers/"+url.PathEscape(*id)+"/distributions", body, stdout, stderr)
}

func requireFlag(stderr io.Writer, name, value string) bool {
	if strings.TrimSpace(value) == "" {
		fmt.Fprintf(stderr, "Error: --%s is required\n", name)
		return false
	}
	return true
}

// emit performs the call and prints the JSON reply or the error.
func emit(client *apiClient, method, path string, body any, stdout, stderr io.Writer) int {
	raw, err := client.call(method, path, body)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := printJSON(stdout, raw); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
