// Command fusion-cli drives a fusiond node over JSON-RPC and manages the
// operator's local keys and swap secrets.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fusionswap/cmd/internal/passphrase"
)

const defaultEndpoint = "http://127.0.0.1:8645"

type cli struct {
	rpc   *rpcClient
	vault string
	now   func() time.Time
	// passphrase resolves keystore passphrases; replaced in tests.
	passphrase func() (string, error)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	c, rest, err := newCLI(args, os.LookupEnv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return c.dispatch(rest, stdout, stderr)
}

// newCLI strips the global flags from args. They may appear anywhere before
// the subcommand's own flags.
func newCLI(args []string, lookup func(string) (string, bool)) (*cli, []string, error) {
	endpoint := envOr(lookup, "FUSION_RPC", defaultEndpoint)
	token := envOr(lookup, "FUSION_TOKEN", "")
	vault := envOr(lookup, "FUSION_VAULT", defaultVaultPath())

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, inline := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || (name != "rpc" && name != "token" && name != "vault") {
			out = append(out, arg)
			continue
		}
		if !inline {
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("missing value for -%s", name)
			}
			value = args[i+1]
			i++
		}
		switch name {
		case "rpc":
			endpoint = value
		case "token":
			token = value
		case "vault":
			vault = value
		}
	}
	c := &cli{
		rpc:   newRPCClient(endpoint, token),
		vault: vault,
		now:   time.Now,
	}
	c.passphrase = passphrase.NewSource("FUSION_KEYSTORE_PASS", "keystore passphrase").Get
	return c, out, nil
}

func (c *cli) dispatch(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	rest := args[1:]
	switch args[0] {
	case "key":
		return c.runKeyCommand(rest, stdout, stderr)
	case "token":
		return c.runTokenCommand(rest, stdout, stderr)
	case "secret":
		return c.runSecretCommand(rest, stdout, stderr)
	case "order":
		return c.runOrderCommand(rest, stdout, stderr)
	case "auction":
		return c.runAuctionCommand(rest, stdout, stderr)
	case "escrow":
		return c.runEscrowCommand(rest, stdout, stderr)
	case "resolver":
		return c.runResolverCommand(rest, stdout, stderr)
	case "balance":
		return c.runBalance(rest, stdout, stderr)
	case "events":
		return c.runEvents(rest, stdout, stderr)
	case "status":
		return c.runStatus(rest, stdout, stderr)
	case "call":
		return c.runCall(rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func (c *cli) invoke(method string, params interface{}, requireAuth bool, stdout, stderr io.Writer) int {
	result, rpcErr, err := c.rpc.call(method, params, requireAuth)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags reports false after printing the problem.
func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return false
	}
	return true
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

func handleRPCError(w io.Writer, err *rpcError) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC error %d: %s\n", err.Code, err.Message)
	if len(err.Data) > 0 {
		fmt.Fprintf(w, "  %s\n", err.Data)
	}
	return 1
}

func handleRPCCallError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC call failed: %v\n", err)
	return 1
}

func writeRPCResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	if _, err := w.Write(result); err == nil && result[len(result)-1] != '\n' {
		fmt.Fprintln(w)
	}
}

func envOr(lookup func(string) (string, bool), name, fallback string) string {
	if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func defaultVaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "fusion-secrets.db"
	}
	return filepath.Join(home, ".fusion", "secrets.db")
}

func usage() string {
	return strings.TrimSpace(`Usage:
  fusion-cli [-rpc URL] [-token JWT] [-vault PATH] <command> [flags]

Commands:
  key      new | show            manage encrypted account keys
  token                          mint a bearer token for an address
  secret   new | show | list     manage swap secrets in the local vault
  order    create | accept | cancel | expire | get
  auction  create | fill | price | cancel | expire | get
  escrow   create | withdraw | recover | phase | get
  resolver register | deregister | list
  balance                        query an account balance
  events                         list recent events from the node
  status                         query the indexer for an object
  call     <method> [json]       send a raw JSON-RPC request

Environment:
  FUSION_RPC, FUSION_TOKEN, FUSION_VAULT, FUSION_KEYSTORE_PASS
`)
}
