package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

const defaultAPIEndpoint = "http://localhost:7090"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fund-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	api := fs.String("api", envOr("FUNDD_URL", defaultAPIEndpoint), "fundd base URL")
	token := fs.String("token", os.Getenv("FUNDD_TOKEN"), "bearer token for mutating calls")
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	client := newAPIClient(*api, *token)

	switch rest[0] {
	case "ledger":
		return runLedgerCommand(client, rest[1:], stdout, stderr)
	case "stream":
		return runStreamCommand(client, rest[1:], stdout, stderr)
	case "simulate":
		return runSimulateCommand(rest[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.TrimSpace(`
Usage: fund-cli [--api URL] [--token JWT] <command> [flags]

Commands:
  ledger create      --goal AMOUNT [--policy any|funded]
  ledger get         --id ID
  ledger contribute  --id ID --contributor ADDR --amount AMOUNT
  ledger distribute  --id ID --cost AMOUNT
  stream create      --recipient ADDR (--deposit SATS | --btc BTC) --start BLOCK (--duration BLOCKS | --days DAYS)
  stream get         --id ID [--block BLOCK]
  stream withdraw    --id ID --block BLOCK (--amount SATS | --btc BTC)
  stream topup       --id ID --block BLOCK [--deposit SATS | --btc BTC] [--blocks BLOCKS | --days DAYS]
  simulate           --file SCENARIO.yaml`)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
