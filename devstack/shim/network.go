package shim

import (
	"context"

	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/service/locks"
)

type NetworkConfig struct {
	CommonConfig
	ID      stack.NetworkID
	Backend chain.Backend
}

type presetNetwork struct {
	component
	id      stack.NetworkID
	backend chain.Backend

	markets locks.RWMap[stack.MarketID, stack.Market]
	users   locks.RWMap[stack.UserID, stack.User]
}

var _ stack.ExtensibleNetwork = (*presetNetwork)(nil)

func NewNetwork(cfg NetworkConfig) stack.ExtensibleNetwork {
	// sanity-check the backend serves the expected chain
	chainID, err := cfg.Backend.ChainID(context.Background())
	req := check(cfg.CommonConfig)
	req.NoError(err, "must read chain id of network %s", cfg.ID)
	req.Equal(cfg.ID.ChainID, chainID.Uint64(), "backend must serve the expected chain")
	return &presetNetwork{
		component: newComponent(cfg.CommonConfig, stack.NetworkKind, "id", cfg.ID),
		id:        cfg.ID,
		backend:   cfg.Backend,
	}
}

func (p *presetNetwork) ID() stack.NetworkID {
	return p.id
}

func (p *presetNetwork) ChainID() uint64 {
	return p.id.ChainID
}

func (p *presetNetwork) Backend() chain.Backend {
	return p.backend
}

func (p *presetNetwork) Market(id stack.MarketID) stack.Market {
	v, ok := p.markets.Get(id)
	p.require().True(ok, "market %s must exist", id)
	return v
}

func (p *presetNetwork) AddMarket(v stack.Market) {
	id := v.ID()
	p.require().Equal(p.id.ChainID, id.ChainID, "market %s must be on chain %d", id, p.id.ChainID)
	p.require().True(p.markets.SetIfMissing(id, v), "market %s must not already exist", id)
}

func (p *presetNetwork) User(id stack.UserID) stack.User {
	v, ok := p.users.Get(id)
	p.require().True(ok, "user %s must exist", id)
	return v
}

func (p *presetNetwork) AddUser(v stack.User) {
	id := v.ID()
	p.require().Equal(p.id.ChainID, id.ChainID, "user %s must be on chain %d", id, p.id.ChainID)
	p.require().True(p.users.SetIfMissing(id, v), "user %s must not already exist", id)
}

func (p *presetNetwork) Markets() []stack.MarketID {
	return stack.SortMarketIDs(p.markets.Keys())
}

func (p *presetNetwork) Users() []stack.UserID {
	return stack.SortUserIDs(p.users.Keys())
}
