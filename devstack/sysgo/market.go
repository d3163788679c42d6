package sysgo

import (
	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/pipeline"
	"github.com/wevest/wevest-devstack/devstack/shim"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

// WithMarket deploys the lending market described by cfg. The deployer must
// be a user of the network, and is also the pool admin.
func WithMarket(id stack.MarketID, deployer, emergencyAdmin stack.UserID, cfg *config.Market) stack.Option {
	return func(setup *stack.Setup) {
		net := setup.System.Network(setup.System.NetworkID(id.ChainID)).(stack.ExtensibleNetwork)
		lgr := setup.Log.New("market", id)
		env := &pipeline.Env{
			Backend:        net.Backend(),
			Deployer:       net.User(deployer).Account(),
			EmergencyAdmin: net.User(emergencyAdmin).Address(),
			Artifacts:      sim.Artifacts(),
			Market:         cfg,
			Logger:         lgr,
		}
		st, err := pipeline.Deploy(setup.Ctx, env)
		setup.Require.NoError(err, "failed to deploy market %s", id)
		lgr.Info("market deployed", "provider", st.Addresses.AddressesProvider, "pool", st.Addresses.LendingPool)

		net.AddMarket(shim.NewMarket(shim.MarketConfig{
			CommonConfig: shim.CommonConfigFromSetup(setup),
			ID:           id,
			Config:       cfg,
			Deployment:   st,
		}))
	}
}
