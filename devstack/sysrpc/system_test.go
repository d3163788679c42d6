package sysrpc

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/pipeline"
	"github.com/wevest/wevest-devstack/deployer/state"
	"github.com/wevest/wevest-devstack/devstack/devkeys"
	"github.com/wevest/wevest-devstack/devstack/shim"
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/service/testlog"
)

type testIDs struct {
	net      stack.NetworkID
	market   stack.MarketID
	deployer stack.UserID
	admin    stack.UserID
}

// newSetup maps backend into a fresh system, the way DefaultSystemExt does for a dialed node.
func newSetup(t *testing.T, orch *Orchestrator, backend *sim.Backend) (*stack.Setup, testIDs) {
	logger := testlog.Logger(t, log.LevelInfo)
	setup := &stack.Setup{
		Ctx:          context.Background(),
		Log:          logger,
		T:            t,
		Require:      require.New(t),
		Orchestrator: orch,
	}
	setup.System = shim.NewSystem(shim.SystemConfig{CommonConfig: shim.CommonConfigFromSetup(setup)})
	ids := testIDs{
		net:      stack.NetworkID{Key: "rpc", ChainID: sim.DefaultChainID},
		market:   stack.MarketID{Key: "main", ChainID: sim.DefaultChainID},
		deployer: stack.UserID{Key: "deployer", ChainID: sim.DefaultChainID},
		admin:    stack.UserID{Key: "emergency-admin", ChainID: sim.DefaultChainID},
	}
	setup.System.AddNetwork(shim.NewNetwork(shim.NetworkConfig{
		CommonConfig: shim.CommonConfigFromSetup(setup),
		ID:           ids.net,
		Backend:      backend,
	}))
	if orch.keys == nil {
		keys, err := devkeys.NewMnemonicDevKeys(orch.mnemonic)
		require.NoError(t, err)
		orch.keys = keys
	}
	WithUser(ids.deployer, devkeys.Deployer)(setup)
	WithUser(ids.admin, devkeys.EmergencyAdmin)(setup)
	return setup, ids
}

func TestMarketIsDeployedOnce(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	orch := NewOrchestrator(t, logger, WithArtifacts(sim.Artifacts()), WithRecord(""))
	backend := sim.NewBackend(logger)
	cfg := config.DefaultSimMarket()

	first, ids := newSetup(t, orch, backend)
	WithMarket(ids.market, ids.deployer, ids.admin, cfg)(first)
	st := first.System.Network(ids.net).Market(ids.market).Deployment()
	require.True(t, st.Ready())

	head, err := backend.BlockNumber(context.Background())
	require.NoError(t, err)

	second, _ := newSetup(t, orch, backend)
	WithMarket(ids.market, ids.deployer, ids.admin, cfg)(second)
	shared := second.System.Network(ids.net).Market(ids.market).Deployment()
	require.NotSame(t, st, shared)
	require.Equal(t, st, shared)

	// a test changing its record leaves the other setups alone
	st.Reserves[0].Symbol = "XYZ"
	st.Libraries["ReserveLogic"] = common.Address{}
	require.Equal(t, "USDC", shared.Reserves[0].Symbol)
	require.NotZero(t, shared.Libraries["ReserveLogic"])

	again, err := backend.BlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, head, again, "second setup must not send transactions")
}

func TestHydrateFromRecord(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	fs := afero.NewMemMapFs()
	backend := sim.NewBackend(logger)
	cfg := config.DefaultSimMarket()

	deployer := NewOrchestrator(t, logger, WithArtifacts(sim.Artifacts()), WithRecord(""))
	setup, ids := newSetup(t, deployer, backend)
	WithMarket(ids.market, ids.deployer, ids.admin, cfg)(setup)
	st := setup.System.Network(ids.net).Market(ids.market).Deployment()
	require.NoError(t, state.Write(fs, "/records/main.json", st))

	orch := NewOrchestrator(t, logger, WithFs(fs), WithRecord("file:///records/main.json"))
	setup, ids = newSetup(t, orch, backend)
	WithMarket(ids.market, ids.deployer, ids.admin, cfg)(setup)
	hydrated := setup.System.Network(ids.net).Market(ids.market).Deployment()
	require.Equal(t, st.RunID, hydrated.RunID)
	require.Equal(t, st.Addresses, hydrated.Addresses)

	net := setup.System.Network(ids.net)
	_, err := orch.hydrate(setup, net, cfg, "file:///records/missing.json")
	require.Error(t, err)

	failed := *st
	failed.Fail(state.ErrOutOfOrder)
	require.NoError(t, state.Write(fs, "/records/failed.yaml", &failed))
	_, err = orch.hydrate(setup, net, cfg, "/records/failed.yaml")
	require.ErrorContains(t, err, "not ready")

	other := *st
	other.ChainID = 1
	require.NoError(t, state.Write(fs, "/records/other.json", &other))
	_, err = orch.hydrate(setup, net, cfg, "/records/other.json")
	require.ErrorContains(t, err, "another chain")

	// the record must describe the configured market
	_, err = orch.hydrate(setup, net, cfg, "/records/main.json")
	require.NoError(t, err)
	renamed := config.DefaultSimMarket()
	renamed.Reserves[1].Symbol = "DAI"
	_, err = orch.hydrate(setup, net, renamed, "/records/main.json")
	require.ErrorIs(t, err, pipeline.ErrMarketMismatch)
	shorter := config.DefaultSimMarket()
	shorter.Reserves = shorter.Reserves[:1]
	_, err = orch.hydrate(setup, net, shorter, "/records/main.json")
	require.ErrorIs(t, err, pipeline.ErrMarketMismatch)

	// a record of a chain that was reset has no code behind it
	_, err = orch.hydrate(setup, func() stack.Network {
		fresh, _ := newSetup(t, orch, sim.NewBackend(logger))
		return fresh.System.Network(ids.net)
	}(), cfg, "/records/main.json")
	require.ErrorContains(t, err, "no contract code")
}

func TestDeployNeedsArtifacts(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	orch := NewOrchestrator(t, logger, WithArtifacts(nil), WithRecord(""))
	setup, ids := newSetup(t, orch, sim.NewBackend(logger))
	_, err := orch.deploy(setup, setup.System.Network(ids.net), ids.deployer, ids.admin, config.DefaultSimMarket())
	require.ErrorContains(t, err, EnvArtifacts)
}

func TestBackendRedialsAfterError(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	orch := NewOrchestrator(t, logger, WithRPCURL("bogus://node"))
	ctx := context.Background()

	_, err := orch.Backend(ctx)
	require.Error(t, err)

	// http clients connect lazily, so the dial itself succeeds
	orch.rpcURL = "http://127.0.0.1:1"
	backend, err := orch.Backend(ctx)
	require.NoError(t, err)
	require.NotNil(t, backend)

	again, err := orch.Backend(ctx)
	require.NoError(t, err)
	require.Same(t, backend, again)
}
