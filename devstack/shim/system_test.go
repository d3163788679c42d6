package shim

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/state"
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/service/testlog"
)

// TestSystemTypes is a quick test for type-checking, ensuring the system shims can all be composed, without deploying anything.
func TestSystemTypes(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)

	setup := &stack.Setup{
		Ctx:     context.Background(),
		Log:     logger,
		T:       t,
		Require: require.New(t),
		System: NewSystem(SystemConfig{
			CommonConfig: CommonConfig{
				Log: logger,
				T:   t,
			},
		}),
		Orchestrator: nil,
	}

	netID := stack.NetworkID{Key: "sim", ChainID: sim.DefaultChainID}
	net := NewNetwork(NetworkConfig{
		CommonConfig: CommonConfigFromSetup(setup),
		ID:           netID,
		Backend:      sim.NewBackend(logger),
	})
	setup.System.AddNetwork(net)
	require.Equal(t, netID, setup.System.NetworkID(sim.DefaultChainID))
	require.Equal(t, []stack.NetworkID{netID}, setup.System.Networks())

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	userID := stack.UserID{Key: "alice", ChainID: netID.ChainID}
	net.AddUser(NewUser(UserConfig{
		CommonConfig: CommonConfigFromSetup(setup),
		ID:           userID,
		Account:      chain.NewAccount(key),
	}))
	user := setup.System.Network(netID).User(userID)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), user.Address())
	require.Equal(t, netID.ChainID, user.ChainID())

	record := state.New(netID.ChainID, "Main Market", user.Address())
	record.Phase = state.Ready
	marketID := stack.MarketID{Key: "main", ChainID: netID.ChainID}
	net.AddMarket(NewMarket(MarketConfig{
		CommonConfig: CommonConfigFromSetup(setup),
		ID:           marketID,
		Config:       config.DefaultSimMarket(),
		Deployment:   record,
	}))
	market := net.Market(marketID)
	require.Same(t, record, market.Deployment())
	require.Equal(t, "Main Market", market.Config().MarketID)
	require.Equal(t, []stack.MarketID{marketID}, net.Markets())
	require.Equal(t, []stack.UserID{userID}, net.Users())
}
