package sysgo

import (
	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/devstack/shim"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

// WithNetwork starts an in-memory chain and adds it to the system.
func WithNetwork(id stack.NetworkID) stack.Option {
	return func(setup *stack.Setup) {
		orch := getOrchestrator(setup)
		backend := sim.NewBackend(setup.Log.New("chain", id.ChainID), sim.WithChainID(id.ChainID))
		setup.Require.True(orch.backends.SetIfMissing(id, backend), "network %s must not already exist", id)
		setup.T.Cleanup(func() {
			backend.Close()
			orch.backends.Delete(id)
		})
		setup.System.AddNetwork(shim.NewNetwork(shim.NetworkConfig{
			CommonConfig: shim.CommonConfigFromSetup(setup),
			ID:           id,
			Backend:      backend,
		}))
	}
}
