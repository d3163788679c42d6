package sysrpc

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/pipeline"
	"github.com/wevest/wevest-devstack/deployer/state"
	"github.com/wevest/wevest-devstack/devstack/devkeys"
	"github.com/wevest/wevest-devstack/devstack/shim"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

// DefaultUsers is how many test actors a default system has.
const DefaultUsers = 3

type DefaultSystemExtIDs struct {
	Network stack.NetworkID
	Market  stack.MarketID

	Deployer       stack.UserID
	EmergencyAdmin stack.UserID
	Users          []stack.UserID
}

// DefaultSystemExt maps the node of the orchestrator and the market of cfg
// into the system. The chain ID is only known once connected, so the IDs are
// filled in by the returned option.
func DefaultSystemExt(cfg *config.Market) (*DefaultSystemExtIDs, stack.Option) {
	ids := &DefaultSystemExtIDs{}

	opt := stack.Option(func(setup *stack.Setup) {
		setup.Log.Info("Mapping RPC node")
		orch := getOrchestrator(setup)
		backend, err := orch.Backend(setup.Ctx)
		setup.Require.NoError(err, "failed to connect to %s", orch.rpcURL)
		chainID, err := backend.ChainID(setup.Ctx)
		setup.Require.NoError(err)

		id := chainID.Uint64()
		ids.Network = stack.NetworkID{Key: "rpc", ChainID: id}
		ids.Market = stack.MarketID{Key: "main", ChainID: id}
		ids.Deployer = stack.UserID{Key: devkeys.Deployer.String(), ChainID: id}
		ids.EmergencyAdmin = stack.UserID{Key: devkeys.EmergencyAdmin.String(), ChainID: id}
		ids.Users = nil
		for n := 0; n < DefaultUsers; n++ {
			ids.Users = append(ids.Users, stack.UserID{Key: devkeys.User(n).String(), ChainID: id})
		}

		if orch.keys == nil {
			orch.keys, err = devkeys.NewMnemonicDevKeys(orch.mnemonic)
			setup.Require.NoError(err)
		}
		setup.System.AddNetwork(shim.NewNetwork(shim.NetworkConfig{
			CommonConfig: shim.CommonConfigFromSetup(setup),
			ID:           ids.Network,
			Backend:      backend,
		}))
	})

	opt.Add(func(setup *stack.Setup) {
		WithUser(ids.Deployer, devkeys.Deployer)(setup)
		WithUser(ids.EmergencyAdmin, devkeys.EmergencyAdmin)(setup)
		for n, id := range ids.Users {
			WithUser(id, devkeys.User(n))(setup)
		}
		WithMarket(ids.Market, ids.Deployer, ids.EmergencyAdmin, cfg)(setup)
	})

	return ids, opt
}

func WithUser(id stack.UserID, i devkeys.Index) stack.Option {
	return func(setup *stack.Setup) {
		orch := getOrchestrator(setup)
		setup.Require.NotNil(orch.keys, "keys must be set up before users")
		acct, err := orch.keys.Account(i)
		setup.Require.NoError(err)
		net := setup.System.Network(setup.System.NetworkID(id.ChainID)).(stack.ExtensibleNetwork)
		net.AddUser(shim.NewUser(shim.UserConfig{
			CommonConfig: shim.CommonConfigFromSetup(setup),
			ID:           id,
			Account:      acct,
		}))
	}
}

// WithMarket hydrates the market from the record of the orchestrator, or
// deploys it on first use. Later setups get their own copy of the same deployment.
func WithMarket(id stack.MarketID, deployer, emergencyAdmin stack.UserID, cfg *config.Market) stack.Option {
	return func(setup *stack.Setup) {
		orch := getOrchestrator(setup)
		net := setup.System.Network(setup.System.NetworkID(id.ChainID)).(stack.ExtensibleNetwork)

		orch.deployLock.Lock()
		defer orch.deployLock.Unlock()
		st, ok := orch.deployments.Get(id)
		if !ok {
			var err error
			if orch.recordURL != "" {
				st, err = orch.hydrate(setup, net, cfg, orch.recordURL)
			} else {
				st, err = orch.deploy(setup, net, deployer, emergencyAdmin, cfg)
			}
			setup.Require.NoError(err, "failed to set up market %s", id)
			orch.deployments.Set(id, st)
		}

		net.AddMarket(shim.NewMarket(shim.MarketConfig{
			CommonConfig: shim.CommonConfigFromSetup(setup),
			ID:           id,
			Config:       cfg,
			Deployment:   st.Copy(),
		}))
	}
}

func (o *Orchestrator) deploy(setup *stack.Setup, net stack.Network, deployer, emergencyAdmin stack.UserID, cfg *config.Market) (*state.Deployment, error) {
	if o.artifacts == nil {
		return nil, fmt.Errorf("no artifacts to deploy from, set %s or %s", EnvArtifacts, EnvRecord)
	}
	env := &pipeline.Env{
		Backend:        net.Backend(),
		Deployer:       net.User(deployer).Account(),
		EmergencyAdmin: net.User(emergencyAdmin).Address(),
		Artifacts:      o.artifacts,
		Market:         cfg,
		Logger:         o.log.New("market", cfg.MarketID),
	}
	return pipeline.Deploy(setup.Ctx, env)
}

// hydrate loads a completed deployment and checks it against cfg and the chain.
func (o *Orchestrator) hydrate(setup *stack.Setup, net stack.Network, cfg *config.Market, recordURL string) (*state.Deployment, error) {
	st, err := o.loader.Load(setup.Ctx, recordURL)
	if err != nil {
		return nil, err
	}
	if !st.Ready() {
		return nil, fmt.Errorf("deployment %s is not ready: %s", st.RunID, st.Phase)
	}
	if st.ChainID != net.ChainID() {
		return nil, fmt.Errorf("%w: record is for chain %d, node is chain %d", pipeline.ErrWrongChain, st.ChainID, net.ChainID())
	}
	if err := pipeline.MatchMarket(st, cfg); err != nil {
		return nil, err
	}
	for name, addr := range map[string]common.Address{
		bindings.LendingPoolAddressesProvider: st.Addresses.AddressesProvider,
		bindings.LendingPool:                  st.Addresses.LendingPool,
		bindings.LendingPoolConfigurator:      st.Addresses.Configurator,
		bindings.WevestProtocolDataProvider:   st.Addresses.DataProvider,
	} {
		if err := chain.EnsureCode(setup.Ctx, net.Backend(), addr); err != nil {
			return nil, fmt.Errorf("%s at %s: %w", name, addr, err)
		}
	}
	o.log.Info("Hydrated market", "run", st.RunID, "record", recordURL, "block", st.StartBlock)
	return st, nil
}
