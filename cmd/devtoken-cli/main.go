package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"devtoken/cmd/internal/passphrase"
	"devtoken/config"
	"devtoken/crypto"
)

const (
	envGatewayURL = "DEVTOKEN_URL"
	envToken      = "DEVTOKEN_TOKEN"
	envKeystore   = "DEVTOKEN_KEYSTORE"
)

// globals carries the options shared by every command.
type globals struct {
	url      string
	token    string
	keystore string
	pass     func() (string, error)
}

func (g *globals) client() (*client, error) {
	caller := ""
	if g.token == "" && g.keystore != "" {
		addr, err := g.keystoreAddress()
		if err != nil {
			return nil, err
		}
		caller = addr.String()
	}
	return newClient(g.url, g.token, caller), nil
}

func (g *globals) keystoreAddress() (crypto.Address, error) {
	secret, err := g.pass()
	if err != nil {
		return crypto.Address{}, err
	}
	key, err := crypto.LoadFromKeystore(g.keystore, secret)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("open keystore %s: %w", g.keystore, err)
	}
	return key.PubKey().Address(), nil
}

func defaultURL() string {
	if v := strings.TrimSpace(os.Getenv(envGatewayURL)); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}

func main() {
	source := passphrase.NewSource(config.EnvKeystorePassphrase)
	os.Exit(run(os.Args[1:], source.Get, os.Stdout, os.Stderr))
}

func run(args []string, pass func() (string, error), stdout, stderr io.Writer) int {
	g := &globals{pass: pass}
	fs := flag.NewFlagSet("devtoken-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.url, "url", defaultURL(), "Gateway base URL (env "+envGatewayURL+")")
	fs.StringVar(&g.token, "token", os.Getenv(envToken), "Bearer token sent to the gateway (env "+envToken+")")
	fs.StringVar(&g.keystore, "keystore", os.Getenv(envKeystore), "Keystore identifying the caller when no token is set (env "+envKeystore+")")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "keygen":
		return runKeygenCommand(g, cmdArgs, stdout, stderr)
	case "address":
		return runAddressCommand(g, cmdArgs, stdout, stderr)
	case "jwt":
		return runJWTCommand(cmdArgs, stdout, stderr)
	case "token":
		return runTokenCommand(g, cmdArgs, stdout, stderr)
	case "balance":
		return runBalanceCommand(g, cmdArgs, stdout, stderr)
	case "stakes":
		return runStakesCommand(g, cmdArgs, stdout, stderr)
	case "stake":
		return runStakeCommand(g, cmdArgs, stdout, stderr)
	case "withdraw":
		return runWithdrawCommand(g, cmdArgs, stdout, stderr)
	case "transfer":
		return runTransferCommand(g, cmdArgs, stdout, stderr)
	case "mint":
		return runMintCommand(g, cmdArgs, stdout, stderr)
	case "history":
		return runHistoryCommand(g, cmdArgs, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", command)
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: devtoken-cli [--url URL] [--token JWT | --keystore FILE] <command> [args]

Keys:
  keygen --out FILE                 Create an encrypted operator keystore
  address [--keystore FILE]         Print the address held by a keystore
  jwt --sub ADDR [--scope S]        Sign a gateway bearer token (HMAC secret from DEVTOKEN_JWT_SECRET)

Queries:
  token                             Show token metadata and supply
  balance <address>                 Show an account balance
  stakes <address>                  List an account's stake slots
  history <address> [--limit N]     Show indexed events, newest first

Transactions (caller from --token or --keystore):
  stake <amount>                    Lock amount into a new stake slot
  withdraw <slot> <amount>          Withdraw principal plus accrued reward (amount 0 claims reward only)
  transfer <to> <amount>            Transfer tokens
  mint <to> <amount>                Mint tokens (owner only)

Amounts are integers in base units.`)
}
