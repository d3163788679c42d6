// Package chain defines the contract-call interface the harness drives.
// Implementations talk to a live node (chain/rpc) or to an in-memory
// stand-in (chain/sim).
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrNoCode        = errors.New("no contract code at address")
	ErrNoReceipt     = errors.New("no receipt")
	ErrMissingSigner = errors.New("account has no signing key")
)

// Account is a signing identity.
type Account struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// NewAccount derives the account of a private key.
func NewAccount(key *ecdsa.PrivateKey) Account {
	return Account{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (a Account) String() string {
	return a.Address.Hex()
}

// Backend is the minimal chain surface used to deploy and drive contracts.
// Every transaction is awaited: a nil error means the transaction is included and succeeded.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)

	// Deploy creates a contract from already-linked creation code with the constructor input appended.
	Deploy(ctx context.Context, from Account, code []byte) (common.Address, *types.Receipt, error)
	// Transact sends a call transaction and waits for the receipt.
	Transact(ctx context.Context, from Account, to common.Address, data []byte) (*types.Receipt, error)
	// Call executes a read-only call against the latest state.
	Call(ctx context.Context, from common.Address, to common.Address, data []byte) ([]byte, error)
	// CodeAt returns the code at the address, empty if there is none.
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)

	Close()
}

// Impersonator is implemented by backends that can send transactions as an
// arbitrary address without its key, like hardhat or anvil nodes.
type Impersonator interface {
	Impersonate(ctx context.Context, addr common.Address) error
	TransactAs(ctx context.Context, from common.Address, to common.Address, data []byte) (*types.Receipt, error)
}

// EnsureCode returns ErrNoCode if nothing is deployed at addr.
func EnsureCode(ctx context.Context, b Backend, addr common.Address) error {
	code, err := b.CodeAt(ctx, addr)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return ErrNoCode
	}
	return nil
}
