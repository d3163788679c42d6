package sysgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/devstack/shim"
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/service/testlog"
)

func TestSystem(t *testing.T) {
	ids, opt := DefaultSystem(config.DefaultSimMarket())
	logger := testlog.Logger(t, log.LevelInfo)
	orch := NewOrchestrator(t, logger)
	setup := &stack.Setup{
		Ctx:          context.Background(),
		Log:          logger,
		T:            t,
		Require:      require.New(t),
		System:       nil,
		Orchestrator: orch,
	}
	setup.System = shim.NewSystem(shim.SystemConfig{
		CommonConfig: shim.CommonConfigFromSetup(setup),
	})
	opt(setup)

	net := setup.System.Network(ids.Network)
	require.Len(t, net.Users(), 2+DefaultUsers)
	deployer := net.User(ids.Deployer)
	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", deployer.Address().Hex())

	market := net.Market(ids.Market)
	st := market.Deployment()
	require.True(t, st.Ready())
	require.Equal(t, deployer.Address(), st.Deployer)
	require.Equal(t, net.User(ids.EmergencyAdmin).Address(), st.EmergencyAdmin)

	provider, err := bindings.BindAddressesProvider(setup.Ctx, st.Addresses.AddressesProvider, net.Backend())
	require.NoError(t, err)
	pool, err := provider.Get(setup.Ctx, bindings.RoleLendingPool)
	require.NoError(t, err)
	require.Equal(t, st.Addresses.LendingPool, pool)

	_, ok := orch.backends.Get(ids.Network)
	require.True(t, ok)
}
