package sysgo

import (
	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/devstack/devkeys"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

// DefaultUsers is how many test actors a default system has.
const DefaultUsers = 3

// struct of the components, so we can access them later and do not have to guess their IDs.
type DefaultSystemIDs struct {
	Network stack.NetworkID
	Market  stack.MarketID

	Deployer       stack.UserID
	EmergencyAdmin stack.UserID
	Users          []stack.UserID
}

func NewDefaultSystemIDs(chainID uint64) DefaultSystemIDs {
	ids := DefaultSystemIDs{
		Network:        stack.NetworkID{Key: "sim", ChainID: chainID},
		Market:         stack.MarketID{Key: "main", ChainID: chainID},
		Deployer:       stack.UserID{Key: devkeys.Deployer.String(), ChainID: chainID},
		EmergencyAdmin: stack.UserID{Key: devkeys.EmergencyAdmin.String(), ChainID: chainID},
	}
	for n := 0; n < DefaultUsers; n++ {
		ids.Users = append(ids.Users, stack.UserID{Key: devkeys.User(n).String(), ChainID: chainID})
	}
	return ids
}

// DefaultSystem is one in-memory chain with the market of cfg deployed on it,
// and the accounts of the test mnemonic as users.
func DefaultSystem(cfg *config.Market) (DefaultSystemIDs, stack.Option) {
	ids := NewDefaultSystemIDs(sim.DefaultChainID)

	opt := stack.Option(func(setup *stack.Setup) {
		setup.Log.Info("Setting up", "market", cfg.MarketID)
	})

	opt.Add(WithMnemonicKeys(devkeys.TestMnemonic))
	opt.Add(WithNetwork(ids.Network))

	opt.Add(WithUser(ids.Deployer, devkeys.Deployer))
	opt.Add(WithUser(ids.EmergencyAdmin, devkeys.EmergencyAdmin))
	for n, id := range ids.Users {
		opt.Add(WithUser(id, devkeys.User(n)))
	}

	opt.Add(WithMarket(ids.Market, ids.Deployer, ids.EmergencyAdmin, cfg))

	return ids, opt
}
