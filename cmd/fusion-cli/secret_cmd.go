package main

import (
	"context"
	"fmt"
	"io"

	"fusionswap/native/escrow"
)

func (c *cli) runSecretCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: fusion-cli secret <new|show|list> [flags]")
		return 1
	}
	switch args[0] {
	case "new":
		return c.runSecretNew(args[1:], stdout, stderr)
	case "show":
		return c.runSecretShow(args[1:], stdout, stderr)
	case "list":
		return c.runSecretList(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown secret subcommand: %s\n", args[0])
		return 1
	}
}

func (c *cli) withVault(stderr io.Writer, fn func(*secretVault) int) int {
	v, err := openVault(c.vault)
	if err != nil {
		return printError(stderr, fmt.Sprintf("open vault %s: %v", c.vault, err))
	}
	defer v.Close()
	return fn(v)
}

func (c *cli) runSecretNew(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("secret new", stderr)
	name := fs.String("name", "", "name of the secret set")
	count := fs.Int("count", 1, "number of secrets; one per fill checkpoint")
	algoName := fs.String("algo", string(escrow.HashSHA3256), "hash algorithm (sha3-256, keccak256, blake3)")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	algo, err := escrow.ParseHashAlgorithm(*algoName)
	if err != nil {
		return printError(stderr, err.Error())
	}
	return c.withVault(stderr, func(v *secretVault) int {
		recs, err := v.Generate(context.Background(), *name, *count, algo, c.now())
		if err != nil {
			return printError(stderr, err.Error())
		}
		for i := range recs {
			recs[i].Secret = ""
		}
		return writeJSON(stdout, stderr, recs)
	})
}

func (c *cli) runSecretShow(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("secret show", stderr)
	name := fs.String("name", "", "name of the secret set")
	index := fs.Uint("index", 0, "fill index")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	return c.withVault(stderr, func(v *secretVault) int {
		rec, err := v.Get(context.Background(), *name, uint32(*index))
		if err != nil {
			return printError(stderr, err.Error())
		}
		return writeJSON(stdout, stderr, rec)
	})
}

func (c *cli) runSecretList(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("secret list", stderr)
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	return c.withVault(stderr, func(v *secretVault) int {
		recs, err := v.List(context.Background())
		if err != nil {
			return printError(stderr, err.Error())
		}
		if recs == nil {
			recs = []vaultSecret{}
		}
		return writeJSON(stdout, stderr, recs)
	})
}

// vaultHashLocks resolves the -secrets flag of order and auction creation.
func (c *cli) vaultHashLocks(name string) ([]string, error) {
	v, err := openVault(c.vault)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	return v.HashLocks(context.Background(), name)
}

func (c *cli) vaultSecret(name string, index uint32) (string, error) {
	v, err := openVault(c.vault)
	if err != nil {
		return "", err
	}
	defer v.Close()
	rec, err := v.Get(context.Background(), name, index)
	if err != nil {
		return "", err
	}
	return rec.Secret, nil
}
