// Package config holds the market description the deployer builds from.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// SchemaConstraint is the range of config schema versions this build reads.
const SchemaConstraint = "^1.0.0"

const CurrentVersion = "1.0.0"

var ErrUnknownFormat = errors.New("unknown config file format")

type OracleMode string

const (
	// OracleFallback installs the settable PriceOracle in the directory.
	OracleFallback OracleMode = "fallback"
	// OracleComposite installs the aggregator backed WevestOracle.
	OracleComposite OracleMode = "composite"
)

func (m OracleMode) Valid() bool {
	return m == OracleFallback || m == OracleComposite
}

// BigInt is an integer that is written as a decimal string.
type BigInt struct {
	*big.Int
}

func NewBigInt(v *big.Int) *BigInt {
	return &BigInt{new(big.Int).Set(v)}
}

func MustBigInt(s string) *BigInt {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Sprintf("invalid integer %q", s))
	}
	return &BigInt{v}
}

func (b BigInt) MarshalText() ([]byte, error) {
	if b.Int == nil {
		return []byte("0"), nil
	}
	return []byte(b.Int.String()), nil
}

func (b *BigInt) UnmarshalText(text []byte) error {
	v, ok := new(big.Int).SetString(strings.ReplaceAll(string(text), "_", ""), 0)
	if !ok {
		return fmt.Errorf("invalid integer %q", text)
	}
	b.Int = v
	return nil
}

// Market describes one lending market deployment.
type Market struct {
	Version    string `toml:"version" yaml:"version"`
	MarketID   string `toml:"market_id" yaml:"market_id"`
	ProviderID uint64 `toml:"provider_id" yaml:"provider_id"`

	Treasury    common.Address `toml:"treasury" yaml:"treasury"`
	EthUsdPrice *BigInt        `toml:"eth_usd_price" yaml:"eth_usd_price"`
	Oracle      OracleMode     `toml:"oracle" yaml:"oracle"`

	// SwapLiquidity is the whole-token amount of every mock asset seeded into the swap.
	SwapLiquidity uint64 `toml:"swap_liquidity" yaml:"swap_liquidity"`

	// Whale funds test users with existing (non mock) assets by impersonation.
	Whale common.Address `toml:"whale,omitempty" yaml:"whale,omitempty"`

	Reserves []Reserve `toml:"reserves" yaml:"reserves"`
}

// Reserve is one asset of the market. A zero Address deploys a mock token,
// a zero Vault deploys a mock vault.
type Reserve struct {
	Symbol     string         `toml:"symbol" yaml:"symbol"`
	Address    common.Address `toml:"address,omitempty" yaml:"address,omitempty"`
	Name       string         `toml:"name,omitempty" yaml:"name,omitempty"`
	Decimals   uint8          `toml:"decimals,omitempty" yaml:"decimals,omitempty"`
	Vault      common.Address `toml:"vault,omitempty" yaml:"vault,omitempty"`
	Price      *BigInt        `toml:"price" yaml:"price"`
	Borrowable bool           `toml:"borrowable" yaml:"borrowable"`
}

func (r Reserve) Mock() bool {
	return r.Address == (common.Address{})
}

func (r Reserve) MockVault() bool {
	return r.Vault == (common.Address{})
}

// Reserve looks up the reserve with the given symbol.
func (m *Market) Reserve(symbol string) (Reserve, bool) {
	for _, r := range m.Reserves {
		if r.Symbol == symbol {
			return r, true
		}
	}
	return Reserve{}, false
}

// Symbols lists the reserve symbols in config order.
func (m *Market) Symbols() []string {
	out := make([]string, len(m.Reserves))
	for i, r := range m.Reserves {
		out[i] = r.Symbol
	}
	return out
}

// Check validates the market and reports every problem found.
func (m *Market) Check() error {
	var result *multierror.Error
	if err := checkVersion(m.Version); err != nil {
		result = multierror.Append(result, err)
	}
	if m.MarketID == "" {
		result = multierror.Append(result, errors.New("market_id must be set"))
	}
	if m.ProviderID == 0 {
		result = multierror.Append(result, errors.New("provider_id must be non-zero"))
	}
	if m.Treasury == (common.Address{}) {
		result = multierror.Append(result, errors.New("treasury must be set"))
	}
	if m.EthUsdPrice == nil || m.EthUsdPrice.Int == nil || m.EthUsdPrice.Sign() <= 0 {
		result = multierror.Append(result, errors.New("eth_usd_price must be positive"))
	}
	if !m.Oracle.Valid() {
		result = multierror.Append(result, fmt.Errorf("oracle must be %q or %q, got %q", OracleFallback, OracleComposite, m.Oracle))
	}
	if len(m.Reserves) == 0 {
		result = multierror.Append(result, errors.New("at least one reserve is required"))
	}
	seen := make(map[string]bool)
	for i, r := range m.Reserves {
		name := r.Symbol
		if name == "" {
			name = fmt.Sprintf("#%d", i)
			result = multierror.Append(result, fmt.Errorf("reserve %s: symbol must be set", name))
		} else if seen[name] {
			result = multierror.Append(result, fmt.Errorf("reserve %s: duplicate symbol", name))
		}
		seen[name] = true
		if r.Mock() {
			if r.Name == "" {
				result = multierror.Append(result, fmt.Errorf("reserve %s: mock token needs a name", name))
			}
			if r.Decimals == 0 {
				result = multierror.Append(result, fmt.Errorf("reserve %s: mock token needs decimals", name))
			}
		}
		if r.Price == nil || r.Price.Int == nil || r.Price.Sign() <= 0 {
			result = multierror.Append(result, fmt.Errorf("reserve %s: price must be positive", name))
		}
	}
	return result.ErrorOrNil()
}

func checkVersion(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(SchemaConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("config version %s does not satisfy %s", version, SchemaConstraint)
	}
	return nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads and validates a market from a .toml or .yaml file.
func Load(fs afero.Fs, path string) (*Market, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var m Market
	switch format {
	case "toml":
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config keys: %v", undecoded)
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if err := m.Check(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &m, nil
}

// Write stores the market in the format given by the file extension.
func Write(fs afero.Fs, path string, m *Market) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch format {
	case "toml":
		err = toml.NewEncoder(&buf).Encode(m)
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		err = enc.Encode(m)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return afero.WriteFile(fs, path, buf.Bytes(), 0o644)
}

// DefaultSimMarket is the two reserve USDC/AAVE market with mock tokens and vaults.
func DefaultSimMarket() *Market {
	return &Market{
		Version:       CurrentVersion,
		MarketID:      "Main Market",
		ProviderID:    1,
		Treasury:      common.HexToAddress("0x488177c42bD58104618cA771A674Ba7e4D5A2FBB"),
		EthUsdPrice:   MustBigInt("5848466240000000"),
		Oracle:        OracleFallback,
		SwapLiquidity: 1_000_000,
		Reserves: []Reserve{
			{
				Symbol:     "USDC",
				Name:       "USD Coin",
				Decimals:   6,
				Price:      MustBigInt("3690684128600000"),
				Borrowable: true,
			},
			{
				Symbol:     "AAVE",
				Name:       "Aave Token",
				Decimals:   18,
				Price:      MustBigInt("3620948469000000"),
				Borrowable: true,
			},
		},
	}
}
