package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"devtoken/crypto"
	"devtoken/native/token"
)

// InitialSupplyTokens is the whole-token supply minted to the owner by the
// default genesis.
const InitialSupplyTokens = 50_000

type TokenSpec struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

// Spec is the YAML genesis document. Alloc maps bech32 or 0x addresses to
// base-unit amounts written as decimal strings.
type Spec struct {
	Token TokenSpec         `yaml:"token"`
	Owner string            `yaml:"owner"`
	Alloc map[string]string `yaml:"alloc"`
}

type Allocation struct {
	Address [20]byte
	Amount  *big.Int
}

// Plan is a validated genesis ready to be applied.
type Plan struct {
	Metadata    token.Metadata
	Owner       [20]byte
	Allocations []Allocation
}

// Default returns the stock DevToken genesis with the full initial supply
// allocated to owner.
func Default(owner crypto.Address) *Spec {
	meta := token.DefaultMetadata()
	supply := new(big.Int).Mul(big.NewInt(InitialSupplyTokens), meta.Unit())
	return &Spec{
		Token: TokenSpec{Name: meta.Name, Symbol: meta.Symbol, Decimals: meta.Decimals},
		Owner: owner.String(),
		Alloc: map[string]string{owner.String(): supply.String()},
	}
}

// Load reads and validates a genesis document.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %q: %w", path, err)
	}
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis %q: %w", path, err)
	}
	if _, err := spec.Resolve(); err != nil {
		return nil, fmt.Errorf("invalid genesis %q: %w", path, err)
	}
	return &spec, nil
}

// Write stores spec at path, creating parent directories.
func Write(path string, spec *Spec) error {
	if spec == nil {
		return errors.New("genesis spec must not be nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := yaml.Marshal(spec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Resolve validates the document and converts it into a Plan. Allocations are
// sorted by address so every node applies them in the same order.
func (s *Spec) Resolve() (*Plan, error) {
	if s == nil {
		return nil, errors.New("genesis spec must not be nil")
	}
	// Compatibility forms fold so visually identical names store identically.
	meta := token.Metadata{
		Name:     norm.NFKC.String(strings.TrimSpace(s.Token.Name)),
		Symbol:   strings.ToUpper(norm.NFKC.String(strings.TrimSpace(s.Token.Symbol))),
		Decimals: s.Token.Decimals,
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	owner, err := crypto.ParseAddress(s.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if owner.IsZero() {
		return nil, errors.New("owner must not be the zero address")
	}

	plan := &Plan{Metadata: meta, Owner: owner.Array()}
	seen := make(map[[20]byte]struct{}, len(s.Alloc))
	for raw, amountStr := range s.Alloc {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", raw, err)
		}
		if addr.IsZero() {
			return nil, fmt.Errorf("alloc %q: zero address", raw)
		}
		key := addr.Array()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("alloc %q: duplicate address", raw)
		}
		seen[key] = struct{}{}
		amount, err := parseAmount(amountStr)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", raw, err)
		}
		plan.Allocations = append(plan.Allocations, Allocation{Address: key, Amount: amount})
	}
	sort.Slice(plan.Allocations, func(i, j int) bool {
		return bytes.Compare(plan.Allocations[i].Address[:], plan.Allocations[j].Address[:]) < 0
	})
	return plan, nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return nil, errors.New("amount must not be empty")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount %q must be positive", value)
	}
	return amount, nil
}

// Total returns the sum of all allocations.
func (p *Plan) Total() *big.Int {
	total := big.NewInt(0)
	for _, alloc := range p.Allocations {
		total.Add(total, alloc.Amount)
	}
	return total
}
