package sysgo

import (
	"github.com/wevest/wevest-devstack/devstack/devkeys"
	"github.com/wevest/wevest-devstack/devstack/shim"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

// WithUser adds the account at index i of the orchestrator keys as a user of the network.
func WithUser(id stack.UserID, i devkeys.Index) stack.Option {
	return func(setup *stack.Setup) {
		orch := getOrchestrator(setup)
		kr := &keyring{keys: orch.keys, require: setup.Require}
		net := setup.System.Network(setup.System.NetworkID(id.ChainID)).(stack.ExtensibleNetwork)
		net.AddUser(shim.NewUser(shim.UserConfig{
			CommonConfig: shim.CommonConfigFromSetup(setup),
			ID:           id,
			Account:      kr.Account(i),
		}))
	}
}
