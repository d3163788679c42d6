package stack

import (
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/state"
)

// MarketID identifies a lending Market by name and chainID, is type-safe, and can be value-copied and used as map key.
type MarketID idWithChain

const MarketKind Kind = "Market"

func (id MarketID) String() string {
	return idWithChain(id).string(MarketKind)
}

func (id MarketID) MarshalText() ([]byte, error) {
	return idWithChain(id).marshalText(MarketKind)
}

func (id *MarketID) UnmarshalText(data []byte) error {
	return (*idWithChain)(id).unmarshalText(MarketKind, data)
}

func SortMarketIDs(ids []MarketID) []MarketID {
	return copyAndSort(ids, func(a, b MarketID) bool {
		return lessIDWithChain(idWithChain(a), idWithChain(b))
	})
}

// Market is a deployed lending market.
type Market interface {
	Common
	ID() MarketID

	// Config is the market config the deployment was made from.
	Config() *config.Market
	// Deployment is the record of a completed deployment.
	Deployment() *state.Deployment
}
