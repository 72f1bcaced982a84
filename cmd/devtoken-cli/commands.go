package main

import (
	"flag"
	"fmt"
	"io"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type tokenInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
	Owner       string `json:"owner"`
}

type stakeSlot struct {
	Slot      uint64 `json:"slot"`
	State     string `json:"state"`
	Amount    string `json:"amount"`
	Since     int64  `json:"since"`
	Claimable string `json:"claimable"`
}

type stakesResult struct {
	Address     string      `json:"address"`
	Staked      bool        `json:"staked"`
	TotalAmount string      `json:"totalAmount"`
	Stakes      []stakeSlot `json:"stakes"`
}

type historyEntry struct {
	Sequence   uint64            `json:"sequence"`
	Position   int               `json:"position"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Timestamp  string            `json:"timestamp"`
}

// parseAmount accepts a non-negative base-unit integer. Underscores may be
// used as digit separators.
func parseAmount(raw string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	v, ok := new(big.Int).SetString(cleaned, 10)
	if !ok || v.Sign() < 0 {
		return "", fmt.Errorf("invalid amount %q", raw)
	}
	return v.String(), nil
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func usage(stderr io.Writer, line string) int {
	fmt.Fprintln(stderr, "Usage: devtoken-cli "+line)
	return 2
}

func runTokenCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		return usage(stderr, "token")
	}
	c, err := g.client()
	if err != nil {
		return fail(stderr, err)
	}
	var info tokenInfo
	if err := c.get("/v1/token", &info); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Name:         %s\n", info.Name)
	fmt.Fprintf(stdout, "Symbol:       %s\n", info.Symbol)
	fmt.Fprintf(stdout, "Decimals:     %d\n", info.Decimals)
	fmt.Fprintf(stdout, "Total supply: %s\n", info.TotalSupply)
	if info.Owner != "" {
		fmt.Fprintf(stdout, "Owner:        %s\n", info.Owner)
	} else {
		fmt.Fprintln(stdout, "Owner:        renounced")
	}
	return 0
}

func runBalanceCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		return usage(stderr, "balance <address>")
	}
	c, err := g.client()
	if err != nil {
		return fail(stderr, err)
	}
	var out struct {
		Address string `json:"address"`
		Balance string `json:"balance"`
	}
	if err := c.get("/v1/accounts/"+url.PathEscape(args[0])+"/balance", &out); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "%s %s\n", out.Address, out.Balance)
	return 0
}

func runStakesCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		return usage(stderr, "stakes <address>")
	}
	c, err := g.client()
	if err != nil {
		return fail(stderr, err)
	}
	var out stakesResult
	if err := c.get("/v1/stakes/"+url.PathEscape(args[0]), &out); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Stakes for %s (total %s)\n", out.Address, out.TotalAmount)
	if len(out.Stakes) == 0 {
		fmt.Fprintln(stdout, "  none")
		return 0
	}
	for _, slot := range out.Stakes {
		fmt.Fprintf(stdout, "  #%d %-10s amount=%s since=%d claimable=%s\n",
			slot.Slot, slot.State, slot.Amount, slot.Since, slot.Claimable)
	}
	return 0
}

func runStakeCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		return usage(stderr, "stake <amount>")
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return fail(stderr, err)
	}
	c, err := g.client()
	if err != nil {
		return fail(stderr, err)
	}
	var out struct {
		Slot   uint64 `json:"slot"`
		Index  uint64 `json:"index"`
		Amount string `json:"amount"`
		Since  int64  `json:"since"`
	}
	if err := c.post("/v1/stake", map[string]string{"amount": amount}, &out); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Staked %s in slot %d (stakeholder #%d, since %d)\n", out.Amount, out.Slot, out.Index, out.Since)
	return 0
}

func runWithdrawCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		return usage(stderr, "withdraw <slot> <amount>")
	}
	slot, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fail(stderr, fmt.Errorf("invalid slot %q", args[0]))
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return fail(stderr, err)
	}
	c, err := g.client()
	if err != nil {
		return fail(stderr, err)
	}
	var out struct {
		Principal  string `json:"principal"`
		Reward     string `json:"reward"`
		Total      string `json:"total"`
		Remaining  string `json:"remaining"`
		Tombstoned bool   `json:"tombstoned"`
	}
	body := map[string]interface{}{"amount": amount, "slot": slot}
	if err := c.post("/v1/withdraw", body, &out); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Withdrew %s + reward %s = %s from slot %d\n", out.Principal, out.Reward, out.Total, slot)
	if out.Tombstoned {
		fmt.Fprintln(stdout, "Slot closed")
	} else {
		fmt.Fprintf(stdout, "Remaining in slot: %s\n", out.Remaining)
	}
	return 0
}

func runTransferCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		return usage(stderr, "transfer <to> <amount>")
	}
	return postTransfer(g, "/v1/transfer", "Transferred", args[0], args[1], stdout, stderr)
}

func runMintCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		return usage(stderr, "mint <to> <amount>")
	}
	return postTransfer(g, "/v1/admin/mint", "Minted", args[0], args[1], stdout, stderr)
}

func postTransfer(g *globals, path, verb, to, rawAmount string, stdout, stderr io.Writer) int {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return fail(stderr, err)
	}
	c, err := g.client()
	if err != nil {
		return fail(stderr, err)
	}
	var out struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := c.post(path, map[string]string{"to": to, "amount": amount}, &out); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "%s %s to %s\n", verb, out.Amount, out.To)
	return 0
}

func runHistoryCommand(g *globals, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 20, "Maximum number of events")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		return usage(stderr, "history <address> [--limit N]")
	}
	c, err := g.client()
	if err != nil {
		return fail(stderr, err)
	}
	var out struct {
		Events []historyEntry `json:"events"`
	}
	path := fmt.Sprintf("/v1/events/%s?limit=%d", url.PathEscape(fs.Arg(0)), *limit)
	if err := c.get(path, &out); err != nil {
		return fail(stderr, err)
	}
	for _, entry := range out.Events {
		keys := make([]string, 0, len(entry.Attributes))
		for k := range entry.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+entry.Attributes[k])
		}
		fmt.Fprintf(stdout, "%d.%d %s %s\n", entry.Sequence, entry.Position, entry.Type, strings.Join(parts, " "))
	}
	return 0
}
