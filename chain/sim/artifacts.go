package sim

import (
	"encoding/hex"
	"strings"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/deployer/artifacts"
)

var sourceNames = map[string]string{
	bindings.LendingPoolAddressesProvider:         "contracts/protocol/configuration/LendingPoolAddressesProvider.sol",
	bindings.LendingPoolAddressesProviderRegistry: "contracts/protocol/configuration/LendingPoolAddressesProviderRegistry.sol",
	bindings.ReserveLogic:                         "contracts/protocol/libraries/logic/ReserveLogic.sol",
	bindings.GenericLogic:                         "contracts/protocol/libraries/logic/GenericLogic.sol",
	bindings.ValidationLogic:                      "contracts/protocol/libraries/logic/ValidationLogic.sol",
	bindings.LendingPool:                          "contracts/protocol/lendingpool/LendingPool.sol",
	bindings.LendingPoolConfigurator:              "contracts/protocol/lendingpool/LendingPoolConfigurator.sol",
	bindings.WvToken:                              "contracts/protocol/tokenization/WvToken.sol",
	bindings.DebtToken:                            "contracts/protocol/tokenization/DebtToken.sol",
	bindings.DefaultReserveInterestRateStrategy:   "contracts/protocol/lendingpool/DefaultReserveInterestRateStrategy.sol",
	bindings.WevestProtocolDataProvider:           "contracts/misc/WevestProtocolDataProvider.sol",
	bindings.PriceOracle:                          "contracts/mocks/oracle/PriceOracle.sol",
	bindings.MockAggregator:                       "contracts/mocks/oracle/CLAggregators/MockAggregator.sol",
	bindings.WETH9Mocked:                          "contracts/mocks/dependencies/weth/WETH9Mocked.sol",
	bindings.WevestOracle:                         "contracts/misc/WevestOracle.sol",
	bindings.MintableERC20:                        "contracts/mocks/tokens/MintableERC20.sol",
	bindings.MockVault:                            "contracts/mocks/yearn/MockVault.sol",
	bindings.YieldFarmingPool:                     "contracts/protocol/yieldfarming/YieldFarmingPool.sol",
	bindings.TokenSwap:                            "contracts/protocol/swap/TokenSwap.sol",
}

// Artifacts returns hardhat style artifacts of every contract the simulator
// runs. Their bytecode carries real link placeholders, so library linking and
// constructor encoding go through the same path as compiled artifacts.
func Artifacts() artifacts.MemSource {
	src := make(artifacts.MemSource)
	for _, k := range defaultKinds() {
		src[k.name] = artifactOf(k)
	}
	return src
}

func artifactOf(k *kind) *artifacts.Artifact {
	header := append(append([]byte{}, codeMagic...), byte(len(k.name)))
	header = append(header, k.name...)

	var code strings.Builder
	code.WriteString("0x")
	code.WriteString(hex.EncodeToString(header))
	refs := make(artifacts.LinkReferences)
	for i, lib := range k.links {
		source := sourceNames[lib]
		code.WriteString(artifacts.Placeholder(source, lib))
		if refs[source] == nil {
			refs[source] = make(map[string][]artifacts.LinkOffset)
		}
		refs[source][lib] = append(refs[source][lib], artifacts.LinkOffset{
			Start:  len(header) + i*20,
			Length: 20,
		})
	}
	raw, err := bindings.RawABI(k.name)
	if err != nil {
		panic(err)
	}
	return &artifacts.Artifact{
		Format:           artifacts.HardhatFormat,
		ContractName:     k.name,
		SourceName:       sourceNames[k.name],
		ABI:              raw,
		Bytecode:         code.String(),
		DeployedBytecode: code.String(),
		LinkReferences:   refs,
	}
}
