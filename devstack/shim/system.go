package shim

import (
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/service/locks"
)

// SystemConfig sets up a System.
// It is intentionally very minimal, the system is expected to be extended after creation, using Option functions
type SystemConfig struct {
	CommonConfig
}

type presetSystem struct {
	component

	// tracks networks by name
	networks locks.RWMap[stack.NetworkID, stack.ExtensibleNetwork]
	// tracks IDs of networks by chain ID, and ensures there are no networks with the same chain ID
	chainIDs locks.RWMap[uint64, stack.NetworkID]
}

var _ stack.ExtensibleSystem = (*presetSystem)(nil)

// NewSystem creates a new empty System
func NewSystem(cfg SystemConfig) stack.ExtensibleSystem {
	return &presetSystem{
		component: newComponent(cfg.CommonConfig, stack.SystemKind),
	}
}

func (p *presetSystem) Network(id stack.NetworkID) stack.Network {
	v, ok := p.networks.Get(id)
	p.require().True(ok, "network %s must exist", id)
	return v
}

func (p *presetSystem) AddNetwork(v stack.ExtensibleNetwork) {
	id := v.ID()
	p.require().True(p.chainIDs.SetIfMissing(id.ChainID, id), "chain with id %d must not already exist", id.ChainID)
	p.require().True(p.networks.SetIfMissing(id, v), "network %s must not already exist", id)
}

func (p *presetSystem) NetworkID(chainID uint64) stack.NetworkID {
	v, ok := p.chainIDs.Get(chainID)
	p.require().True(ok, "chain id %d mapping must exist", chainID)
	return v
}

func (p *presetSystem) Networks() []stack.NetworkID {
	return stack.SortNetworkIDs(p.networks.Keys())
}
