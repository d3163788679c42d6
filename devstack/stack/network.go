package stack

import (
	"github.com/wevest/wevest-devstack/chain"
)

// NetworkID identifies a Network by name and chainID, is type-safe, and can be value-copied and used as map key.
type NetworkID idWithChain

const NetworkKind Kind = "Network"

func (id NetworkID) String() string {
	return idWithChain(id).string(NetworkKind)
}

func (id NetworkID) MarshalText() ([]byte, error) {
	return idWithChain(id).marshalText(NetworkKind)
}

func (id *NetworkID) UnmarshalText(data []byte) error {
	return (*idWithChain)(id).unmarshalText(NetworkKind, data)
}

func SortNetworkIDs(ids []NetworkID) []NetworkID {
	return copyAndSort(ids, func(a, b NetworkID) bool {
		return lessIDWithChain(idWithChain(a), idWithChain(b))
	})
}

// Network is a chain the markets live on, with the users that act on it.
type Network interface {
	Common
	ID() NetworkID
	ChainID() uint64

	// Backend is the contract-call interface of the chain.
	Backend() chain.Backend

	Market(id MarketID) Market
	User(id UserID) User

	Markets() []MarketID
	Users() []UserID
}

type ExtensibleNetwork interface {
	Network
	AddMarket(v Market)
	AddUser(v User)
}
