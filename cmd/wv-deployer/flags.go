package main

import (
	"github.com/urfave/cli/v2"

	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/devstack/devkeys"
)

const EnvVarPrefix = "WV_DEPLOYER"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Market config (.toml or .yaml). The default USDC/AAVE market when empty.",
		EnvVars: prefixEnvVars("CONFIG"),
	}
	OutFlag = &cli.StringFlag{
		Name:    "out",
		Usage:   "Path of the deployment record (.json or .yaml)",
		Value:   "deployment.json",
		EnvVars: prefixEnvVars("OUT"),
	}
	MnemonicFlag = &cli.StringFlag{
		Name:    "mnemonic",
		Usage:   "Mnemonic of the deployer and emergency admin accounts",
		Value:   devkeys.TestMnemonic,
		EnvVars: prefixEnvVars("MNEMONIC"),
	}
	EmergencyAdminFlag = &cli.StringFlag{
		Name:    "emergency-admin",
		Usage:   "Emergency admin address. Defaults to the second account of the mnemonic.",
		EnvVars: prefixEnvVars("EMERGENCY_ADMIN"),
	}
	MetricsFileFlag = &cli.StringFlag{
		Name:    "metrics.textfile",
		Usage:   "Write deployment metrics to this file in the textfile collector format",
		EnvVars: prefixEnvVars("METRICS_TEXTFILE"),
	}
	RPCURLFlag = &cli.StringFlag{
		Name:     "rpc-url",
		Usage:    "JSON-RPC endpoint of the target chain",
		EnvVars:  prefixEnvVars("RPC_URL"),
		Required: true,
	}
	RPCRateFlag = &cli.Float64Flag{
		Name:    "rpc.rate",
		Usage:   "Maximum RPC requests per second, 0 for unlimited",
		EnvVars: prefixEnvVars("RPC_RATE"),
	}
	ArtifactsFlag = &cli.StringFlag{
		Name:     "artifacts",
		Usage:    "Directory of compiled hardhat artifacts",
		EnvVars:  prefixEnvVars("ARTIFACTS"),
		Required: true,
	}
	PrivateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Hex private key of the deployer. Overrides the mnemonic.",
		EnvVars: prefixEnvVars("PRIVATE_KEY"),
	}
	ChainIDFlag = &cli.Uint64Flag{
		Name:    "chain-id",
		Usage:   "Chain ID of the in-memory chain",
		Value:   sim.DefaultChainID,
		EnvVars: prefixEnvVars("CHAIN_ID"),
	}
	QueryFlag = &cli.StringFlag{
		Name:  "query",
		Usage: "JSONPath query over the record, e.g. $.addresses.lendingPool",
	}
	NoColorFlag = &cli.BoolFlag{
		Name:    "no-color",
		Usage:   "Disable colored output",
		EnvVars: []string{"NO_COLOR"},
	}
)

func deployFlags() []cli.Flag {
	return []cli.Flag{ConfigFlag, OutFlag, MnemonicFlag, EmergencyAdminFlag, MetricsFileFlag}
}
