package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

func (c *cli) runBalance(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("balance", stderr)
	address := fs.String("address", "", "account address")
	asset := fs.String("asset", "", "asset symbol")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if *address == "" || *asset == "" {
		return printError(stderr, "-address and -asset are required")
	}
	return c.invoke("fusion_balance", map[string]interface{}{"address": *address, "asset": *asset}, false, stdout, stderr)
}

// runEvents reads the node's in-memory backlog. With -indexed it queries the
// indexer instead, which keeps the full history.
func (c *cli) runEvents(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("events", stderr)
	since := fs.Uint64("since", 0, "return events after this sequence")
	limit := fs.Int("limit", 0, "maximum number of events")
	indexed := fs.Bool("indexed", false, "query the indexer")
	objectID := fs.String("object", "", "indexer only: filter by object id")
	eventType := fs.String("type", "", "indexer only: filter by event type")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if !*indexed {
		if *objectID != "" || *eventType != "" {
			return printError(stderr, "-object and -type require -indexed")
		}
		params := map[string]interface{}{"since": *since}
		if *limit > 0 {
			params["limit"] = *limit
		}
		return c.invoke("fusion_events", params, false, stdout, stderr)
	}
	params := map[string]interface{}{}
	if *since > 0 {
		params["after"] = *since
	}
	if *limit > 0 {
		params["limit"] = *limit
	}
	if *objectID != "" {
		params["objectId"] = *objectID
	}
	if *eventType != "" {
		params["type"] = *eventType
	}
	return c.invoke("fusion_listEvents", params, false, stdout, stderr)
}

func (c *cli) runStatus(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("status", stderr)
	id := fs.String("id", "", "order, auction or escrow identifier")
	escrows := fs.Bool("escrows", false, "list escrows created from the order or auction instead")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if err := validateID(*id); err != nil {
		return printError(stderr, err.Error())
	}
	method := "fusion_status"
	if *escrows {
		method = "fusion_escrowsBySource"
	}
	return c.invoke(method, map[string]interface{}{"id": *id}, false, stdout, stderr)
}

// runCall sends an arbitrary method. The optional second argument is the
// JSON object passed as the single parameter.
func (c *cli) runCall(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("call", stderr)
	auth := fs.Bool("auth", false, "require a bearer token")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 || len(rest) > 2 {
		return printError(stderr, "usage: fusion-cli call [-auth] <method> [json-object]")
	}
	method := strings.TrimSpace(rest[0])
	var params interface{}
	if len(rest) == 2 {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(rest[1]), &obj); err != nil {
			return printError(stderr, fmt.Sprintf("params must be a JSON object: %v", err))
		}
		params = obj
	}
	return c.invoke(method, params, *auth, stdout, stderr)
}
