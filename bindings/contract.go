package bindings

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/wevest/wevest-devstack/chain"
)

var ErrZeroAddress = errors.New("zero address")

// Contract is an ABI-aware handle to a deployed contract.
type Contract struct {
	name    string
	address common.Address
	abi     *abi.ABI
	backend chain.Backend
}

// NewContract creates a handle without checking the address.
func NewContract(name string, addr common.Address, backend chain.Backend) (*Contract, error) {
	parsed, err := ABI(name)
	if err != nil {
		return nil, err
	}
	return &Contract{name: name, address: addr, abi: parsed, backend: backend}, nil
}

// Bind creates a handle to a contract that must be deployed at addr.
// Zero addresses and addresses without code are rejected.
func Bind(ctx context.Context, name string, addr common.Address, backend chain.Backend) (*Contract, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("failed to bind %s: %w", name, ErrZeroAddress)
	}
	if err := chain.EnsureCode(ctx, backend, addr); err != nil {
		return nil, fmt.Errorf("failed to bind %s at %s: %w", name, addr, err)
	}
	return NewContract(name, addr, backend)
}

func (c *Contract) Name() string {
	return c.name
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) ABI() *abi.ABI {
	return c.abi
}

func (c *Contract) Backend() chain.Backend {
	return c.backend
}

func (c *Contract) Pack(method string, args ...any) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s: %w", c.name, method, err)
	}
	return data, nil
}

// Call executes a read-only method and returns the unpacked outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	return c.CallFrom(ctx, common.Address{}, method, args...)
}

func (c *Contract) CallFrom(ctx context.Context, from common.Address, method string, args ...any) ([]any, error) {
	data, err := c.call(ctx, from, method, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s.%s: %w", c.name, method, err)
	}
	return out, nil
}

// CallInto executes a read-only method and copies the outputs into out.
// Multiple outputs are copied into a struct by field name.
func (c *Contract) CallInto(ctx context.Context, out any, method string, args ...any) error {
	data, err := c.call(ctx, common.Address{}, method, args...)
	if err != nil {
		return err
	}
	if err := c.abi.UnpackIntoInterface(out, method, data); err != nil {
		return fmt.Errorf("failed to unpack %s.%s: %w", c.name, method, err)
	}
	return nil
}

func (c *Contract) call(ctx context.Context, from common.Address, method string, args ...any) ([]byte, error) {
	input, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	data, err := c.backend.Call(ctx, from, c.address, input)
	if err != nil {
		return nil, fmt.Errorf("%s.%s call failed: %w", c.name, method, err)
	}
	return data, nil
}

// Transact sends a transaction calling method and waits for it to succeed.
func (c *Contract) Transact(ctx context.Context, from chain.Account, method string, args ...any) (*types.Receipt, error) {
	input, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	receipt, err := c.backend.Transact(ctx, from, c.address, input)
	if err != nil {
		return receipt, fmt.Errorf("%s.%s failed: %w", c.name, method, err)
	}
	return receipt, nil
}

// TransactAs sends a transaction from an impersonated address.
func (c *Contract) TransactAs(ctx context.Context, from common.Address, method string, args ...any) (*types.Receipt, error) {
	imp, ok := c.backend.(chain.Impersonator)
	if !ok {
		return nil, fmt.Errorf("backend %T cannot impersonate %s", c.backend, from)
	}
	input, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	receipt, err := imp.TransactAs(ctx, from, c.address, input)
	if err != nil {
		return receipt, fmt.Errorf("%s.%s as %s failed: %w", c.name, method, from, err)
	}
	return receipt, nil
}

// CallAddress calls a method with a single address output.
func (c *Contract) CallAddress(ctx context.Context, method string, args ...any) (common.Address, error) {
	var out common.Address
	if err := c.CallInto(ctx, &out, method, args...); err != nil {
		return common.Address{}, err
	}
	return out, nil
}

// CallBig calls a method with a single integer output.
func (c *Contract) CallBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	var out *big.Int
	if err := c.CallInto(ctx, &out, method, args...); err != nil {
		return nil, err
	}
	return out, nil
}
