// Package bindings provides typed handles for the lending protocol contracts.
package bindings

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract names, as used by artifacts and ABIs.
const (
	LendingPoolAddressesProvider         = "LendingPoolAddressesProvider"
	LendingPoolAddressesProviderRegistry = "LendingPoolAddressesProviderRegistry"
	ReserveLogic                         = "ReserveLogic"
	GenericLogic                         = "GenericLogic"
	ValidationLogic                      = "ValidationLogic"
	LendingPool                          = "LendingPool"
	LendingPoolConfigurator              = "LendingPoolConfigurator"
	WvToken                              = "WvToken"
	DebtToken                            = "DebtToken"
	DefaultReserveInterestRateStrategy   = "DefaultReserveInterestRateStrategy"
	WevestProtocolDataProvider           = "WevestProtocolDataProvider"
	PriceOracle                          = "PriceOracle"
	MockAggregator                       = "MockAggregator"
	WETH9Mocked                          = "WETH9Mocked"
	WevestOracle                         = "WevestOracle"
	MintableERC20                        = "MintableERC20"
	MockVault                            = "MockVault"
	YieldFarmingPool                     = "YieldFarmingPool"
	TokenSwap                            = "TokenSwap"
	IERC20Detailed                       = "IERC20Detailed"
)

//go:embed abi/*.json
var abiFS embed.FS

var (
	abisOnce sync.Once
	abis     map[string]*abi.ABI
	abisErr  error
)

func loadABIs() {
	entries, err := abiFS.ReadDir("abi")
	if err != nil {
		abisErr = err
		return
	}
	abis = make(map[string]*abi.ABI, len(entries))
	for _, entry := range entries {
		data, err := abiFS.ReadFile(path.Join("abi", entry.Name()))
		if err != nil {
			abisErr = err
			return
		}
		parsed, err := abi.JSON(strings.NewReader(string(data)))
		if err != nil {
			abisErr = fmt.Errorf("failed to parse ABI %s: %w", entry.Name(), err)
			return
		}
		abis[strings.TrimSuffix(entry.Name(), ".json")] = &parsed
	}
}

// ABI returns the parsed ABI of the named contract.
func ABI(name string) (*abi.ABI, error) {
	abisOnce.Do(loadABIs)
	if abisErr != nil {
		return nil, abisErr
	}
	out, ok := abis[name]
	if !ok {
		return nil, fmt.Errorf("unknown contract ABI %q", name)
	}
	return out, nil
}

func MustABI(name string) *abi.ABI {
	out, err := ABI(name)
	if err != nil {
		panic(err)
	}
	return out
}

// RawABI returns the embedded JSON ABI of the named contract.
func RawABI(name string) ([]byte, error) {
	return abiFS.ReadFile(path.Join("abi", name+".json"))
}

// Names lists all contracts with an embedded ABI, sorted.
func Names() []string {
	abisOnce.Do(loadABIs)
	out := make([]string, 0, len(abis))
	for name := range abis {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
