package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fusionswap/crypto"
	"fusionswap/rpc/auth"
)

type keyInfo struct {
	Address string `json:"address"`
	Path    string `json:"path,omitempty"`
}

func (c *cli) runKeyCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: fusion-cli key <new|show> [flags]")
		return 1
	}
	switch args[0] {
	case "new":
		return c.runKeyNew(args[1:], stdout, stderr)
	case "show":
		return c.runKeyShow(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown key subcommand: %s\n", args[0])
		return 1
	}
}

func (c *cli) runKeyNew(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("key new", stderr)
	dir := fs.String("dir", "keystore", "directory receiving the encrypted key file")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	pass, err := c.passphrase()
	if err != nil {
		return printError(stderr, err.Error())
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err.Error())
	}
	path, err := crypto.SaveKeystore(*dir, key, pass)
	if err != nil {
		return printError(stderr, fmt.Sprintf("save keystore: %v", err))
	}
	return writeJSON(stdout, stderr, keyInfo{Address: key.PubKey().Address().String(), Path: path})
}

func (c *cli) runKeyShow(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("key show", stderr)
	file := fs.String("file", "", "keystore file")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if strings.TrimSpace(*file) == "" {
		return printError(stderr, "-file is required")
	}
	addr, err := c.keyAddress(*file)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return writeJSON(stdout, stderr, keyInfo{Address: addr, Path: *file})
}

func (c *cli) keyAddress(path string) (string, error) {
	pass, err := c.passphrase()
	if err != nil {
		return "", err
	}
	key, err := crypto.LoadKeystore(path, pass)
	if err != nil {
		return "", fmt.Errorf("load keystore: %w", err)
	}
	return key.PubKey().Address().String(), nil
}

// runTokenCommand signs a bearer token whose subject is the acting address.
// The HMAC secret is the node's, so this is an operator tool.
func (c *cli) runTokenCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("token", stderr)
	secret := fs.String("secret", os.Getenv("FUSION_JWT_SECRET"), "node JWT secret (default $FUSION_JWT_SECRET)")
	issuer := fs.String("issuer", "fusionswap", "token issuer")
	subject := fs.String("subject", "", "address the token acts as")
	keyFile := fs.String("keyfile", "", "derive the subject from a keystore file")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	sub := strings.TrimSpace(*subject)
	if sub == "" && *keyFile != "" {
		addr, err := c.keyAddress(*keyFile)
		if err != nil {
			return printError(stderr, err.Error())
		}
		sub = addr
	}
	if sub == "" {
		return printError(stderr, "-subject or -keyfile is required")
	}
	token, err := auth.SignToken(*secret, *issuer, sub, *ttl, c.now())
	if err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintln(stdout, token)
	return 0
}

func writeJSON(stdout, stderr io.Writer, v interface{}) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return printError(stderr, err.Error())
	}
	return 0
}
