package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// termsFlags are shared by order and auction creation.
type termsFlags struct {
	asset      string
	deposit    string
	destChain  uint64
	hashlocks  string
	secretSet  string
	whitelist  string
	autoCancel uint64
	durations  durationFlags
}

type durationFlags struct {
	finality, exclusive, public, private uint64
}

func (d *durationFlags) register(fs *flag.FlagSet) {
	fs.Uint64Var(&d.finality, "finality", 0, "finality lock in seconds")
	fs.Uint64Var(&d.exclusive, "exclusive-withdrawal", 0, "length of the resolver-only withdrawal window in seconds")
	fs.Uint64Var(&d.public, "public-withdrawal", 0, "length of the public withdrawal window in seconds")
	fs.Uint64Var(&d.private, "private-cancellation", 0, "length of the resolver-only cancellation window in seconds")
}

// params returns nil when no duration flag was set so the node's defaults
// apply.
func (d durationFlags) params() map[string]uint64 {
	if d == (durationFlags{}) {
		return nil
	}
	return map[string]uint64{
		"finality":            d.finality,
		"exclusiveWithdrawal": d.exclusive,
		"publicWithdrawal":    d.public,
		"privateCancellation": d.private,
	}
}

func (t *termsFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&t.asset, "asset", "", "asset locked by the maker")
	fs.StringVar(&t.deposit, "deposit", "", "safety deposit override")
	fs.Uint64Var(&t.destChain, "dest-chain", 0, "destination chain id")
	fs.StringVar(&t.hashlocks, "hashlocks", "", "comma separated hash commitments")
	fs.StringVar(&t.secretSet, "secrets", "", "take hash commitments from a vault secret set")
	fs.StringVar(&t.whitelist, "whitelist", "", "comma separated resolver addresses allowed to fill")
	fs.Uint64Var(&t.autoCancel, "auto-cancel-after", 0, "seconds after which the order may be expired")
	t.durations.register(fs)
}

func (c *cli) termsParams(t termsFlags) (map[string]interface{}, error) {
	if strings.TrimSpace(t.asset) == "" {
		return nil, fmt.Errorf("-asset is required")
	}
	hashlocks := splitList(t.hashlocks)
	if t.secretSet != "" {
		if len(hashlocks) > 0 {
			return nil, fmt.Errorf("-hashlocks and -secrets are mutually exclusive")
		}
		locks, err := c.vaultHashLocks(t.secretSet)
		if err != nil {
			return nil, err
		}
		hashlocks = locks
	}
	if len(hashlocks) == 0 {
		return nil, fmt.Errorf("-hashlocks or -secrets is required")
	}
	params := map[string]interface{}{
		"asset":              t.asset,
		"destinationChainId": t.destChain,
		"hashlocks":          hashlocks,
	}
	if t.deposit != "" {
		params["safetyDeposit"] = t.deposit
	}
	if wl := splitList(t.whitelist); len(wl) > 0 {
		params["whitelist"] = wl
	}
	if t.autoCancel > 0 {
		params["autoCancelAfter"] = t.autoCancel
	}
	if d := t.durations.params(); d != nil {
		params["durations"] = d
	}
	return params, nil
}

func (c *cli) runOrderCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: fusion-cli order <create|accept|cancel|expire|get> [flags]")
		return 1
	}
	switch args[0] {
	case "create":
		return c.runOrderCreate(args[1:], stdout, stderr)
	case "accept":
		return c.runFill("fusion_acceptOrder", "order accept", args[1:], stdout, stderr)
	case "cancel":
		return c.runByID("fusion_cancelOrder", "order cancel", true, args[1:], stdout, stderr)
	case "expire":
		return c.runByID("fusion_expireOrder", "order expire", true, args[1:], stdout, stderr)
	case "get":
		return c.runByID("fusion_getOrder", "order get", false, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown order subcommand: %s\n", args[0])
		return 1
	}
}

func (c *cli) runOrderCreate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("order create", stderr)
	var terms termsFlags
	terms.register(fs)
	amount := fs.String("amount", "", "amount offered")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	params, err := c.termsParams(terms)
	if err != nil {
		return printError(stderr, err.Error())
	}
	if strings.TrimSpace(*amount) == "" {
		return printError(stderr, "-amount is required")
	}
	params["amount"] = *amount
	return c.invoke("fusion_createOrder", params, true, stdout, stderr)
}

func (c *cli) runAuctionCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: fusion-cli auction <create|fill|price|cancel|expire|get> [flags]")
		return 1
	}
	switch args[0] {
	case "create":
		return c.runAuctionCreate(args[1:], stdout, stderr)
	case "fill":
		return c.runFill("fusion_fillAuction", "auction fill", args[1:], stdout, stderr)
	case "price":
		return c.runByID("fusion_auctionPrice", "auction price", false, args[1:], stdout, stderr)
	case "cancel":
		return c.runByID("fusion_cancelAuction", "auction cancel", true, args[1:], stdout, stderr)
	case "expire":
		return c.runByID("fusion_expireAuction", "auction expire", true, args[1:], stdout, stderr)
	case "get":
		return c.runByID("fusion_getAuction", "auction get", false, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown auction subcommand: %s\n", args[0])
		return 1
	}
}

func (c *cli) runAuctionCreate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("auction create", stderr)
	var terms termsFlags
	terms.register(fs)
	start := fs.String("start-amount", "", "price at the start of the decay")
	end := fs.String("end-amount", "", "floor price once the decay completes")
	startTime := fs.Uint64("start-time", 0, "unix start time (default: now on the node)")
	decay := fs.Uint64("decay", 0, "decay duration in seconds")
	endTime := fs.Uint64("end-time", 0, "unix deadline for fills (default: start + decay)")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	params, err := c.termsParams(terms)
	if err != nil {
		return printError(stderr, err.Error())
	}
	if *start == "" || *end == "" {
		return printError(stderr, "-start-amount and -end-amount are required")
	}
	if *decay == 0 {
		return printError(stderr, "-decay is required")
	}
	params["startingAmount"] = *start
	params["endingAmount"] = *end
	params["decayDuration"] = *decay
	if *startTime > 0 {
		params["startTime"] = *startTime
	}
	if *endTime > 0 {
		params["endTime"] = *endTime
	}
	return c.invoke("fusion_createAuction", params, true, stdout, stderr)
}

func (c *cli) runEscrowCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: fusion-cli escrow <create|withdraw|recover|phase|get> [flags]")
		return 1
	}
	switch args[0] {
	case "create":
		return c.runEscrowCreate(args[1:], stdout, stderr)
	case "withdraw":
		return c.runEscrowWithdraw(args[1:], stdout, stderr)
	case "recover":
		return c.runByID("fusion_recover", "escrow recover", true, args[1:], stdout, stderr)
	case "phase":
		return c.runByID("fusion_escrowPhase", "escrow phase", false, args[1:], stdout, stderr)
	case "get":
		return c.runByID("fusion_getEscrow", "escrow get", false, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown escrow subcommand: %s\n", args[0])
		return 1
	}
}

// runEscrowCreate locks the resolver's side of a swap directly, without an
// order on this chain.
func (c *cli) runEscrowCreate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow create", stderr)
	var durations durationFlags
	durations.register(fs)
	recipient := fs.String("recipient", "", "address paid on withdrawal")
	asset := fs.String("asset", "", "asset to lock")
	amount := fs.String("amount", "", "amount to lock")
	deposit := fs.String("deposit", "", "safety deposit override")
	chain := fs.Uint64("chain", 0, "chain id of the counterpart escrow")
	hashlock := fs.String("hashlock", "", "hash commitment")
	secretSet := fs.String("secrets", "", "take the commitment from a vault secret set")
	index := fs.Uint("index", 0, "fill index within the vault secret set")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if *recipient == "" || *asset == "" || *amount == "" {
		return printError(stderr, "-recipient, -asset and -amount are required")
	}
	lock := strings.TrimSpace(*hashlock)
	if *secretSet != "" {
		locks, err := c.vaultHashLocks(*secretSet)
		if err != nil {
			return printError(stderr, err.Error())
		}
		if int(*index) >= len(locks) {
			return printError(stderr, fmt.Sprintf("secret set %s has %d entries", *secretSet, len(locks)))
		}
		lock = locks[*index]
	}
	if lock == "" {
		return printError(stderr, "-hashlock or -secrets is required")
	}
	params := map[string]interface{}{
		"recipient": *recipient,
		"asset":     *asset,
		"amount":    *amount,
		"chainId":   *chain,
		"hashlock":  lock,
	}
	if *deposit != "" {
		params["safetyDeposit"] = *deposit
	}
	if d := durations.params(); d != nil {
		params["durations"] = d
	}
	return c.invoke("fusion_createEscrow", params, true, stdout, stderr)
}

func (c *cli) runEscrowWithdraw(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow withdraw", stderr)
	id := fs.String("id", "", "escrow identifier")
	secret := fs.String("secret", "", "0x-prefixed secret preimage")
	secretSet := fs.String("secrets", "", "read the secret from a vault secret set")
	index := fs.Uint("index", 0, "fill index within the vault secret set")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if err := validateID(*id); err != nil {
		return printError(stderr, err.Error())
	}
	value := strings.TrimSpace(*secret)
	if *secretSet != "" {
		if value != "" {
			return printError(stderr, "-secret and -secrets are mutually exclusive")
		}
		s, err := c.vaultSecret(*secretSet, uint32(*index))
		if err != nil {
			return printError(stderr, err.Error())
		}
		value = s
	}
	if value == "" {
		return printError(stderr, "-secret or -secrets is required")
	}
	return c.invoke("fusion_withdraw", map[string]interface{}{"id": *id, "secret": value}, true, stdout, stderr)
}

func (c *cli) runResolverCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: fusion-cli resolver <register|deregister|list> [flags]")
		return 1
	}
	switch args[0] {
	case "register", "deregister":
		fs := newFlagSet("resolver "+args[0], stderr)
		resolver := fs.String("resolver", "", "resolver address")
		label := fs.String("label", "", "display label")
		if !parseFlags(fs, args[1:], stderr) {
			return 1
		}
		if *resolver == "" {
			return printError(stderr, "-resolver is required")
		}
		params := map[string]interface{}{"resolver": *resolver}
		method := "fusion_deregisterResolver"
		if args[0] == "register" {
			method = "fusion_registerResolver"
			if *label != "" {
				params["label"] = *label
			}
		}
		return c.invoke(method, params, true, stdout, stderr)
	case "list":
		fs := newFlagSet("resolver list", stderr)
		if !parseFlags(fs, args[1:], stderr) {
			return 1
		}
		return c.invoke("fusion_resolvers", nil, false, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown resolver subcommand: %s\n", args[0])
		return 1
	}
}

func (c *cli) runFill(method, name string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(name, stderr)
	id := fs.String("id", "", "object identifier")
	amount := fs.String("amount", "", "fill amount (default: whole remainder)")
	index := fs.Int("fill-index", -1, "hash commitment index (default: derived from the amount)")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if err := validateID(*id); err != nil {
		return printError(stderr, err.Error())
	}
	params := map[string]interface{}{"id": *id}
	if *amount != "" {
		params["amount"] = *amount
	}
	if *index >= 0 {
		params["fillIndex"] = *index
	}
	return c.invoke(method, params, true, stdout, stderr)
}

func (c *cli) runByID(method, name string, requireAuth bool, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(name, stderr)
	id := fs.String("id", "", "object identifier")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if err := validateID(*id); err != nil {
		return printError(stderr, err.Error())
	}
	return c.invoke(method, map[string]interface{}{"id": *id}, requireAuth, stdout, stderr)
}

func validateID(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("-id is required")
	}
	if !strings.HasPrefix(trimmed, "0x") && !strings.HasPrefix(trimmed, "0X") {
		return fmt.Errorf("-id must be a 0x-prefixed 32-byte hex string")
	}
	cleaned := trimmed[2:]
	if len(cleaned) != 64 || !isHex(cleaned) {
		return fmt.Errorf("-id must be a 0x-prefixed 32-byte hex string")
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
