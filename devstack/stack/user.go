package stack

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/wevest/wevest-devstack/chain"
)

// UserID identifies a User by name and chainID, is type-safe, and can be value-copied and used as map key.
type UserID idWithChain

const UserKind Kind = "User"

func (id UserID) String() string {
	return idWithChain(id).string(UserKind)
}

func (id UserID) MarshalText() ([]byte, error) {
	return idWithChain(id).marshalText(UserKind)
}

func (id *UserID) UnmarshalText(data []byte) error {
	return (*idWithChain)(id).unmarshalText(UserKind, data)
}

func SortUserIDs(ids []UserID) []UserID {
	return copyAndSort(ids, func(a, b UserID) bool {
		return lessIDWithChain(idWithChain(a), idWithChain(b))
	})
}

// User represents a single signing key, specific to a single chain.
type User interface {
	Common

	ID() UserID

	Account() chain.Account
	Address() common.Address

	ChainID() uint64
}
