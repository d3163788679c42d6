package bindings

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"

	"github.com/wevest/wevest-devstack/chain"
)

var (
	funcName         = w3.MustNewFunc("name()", "string")
	funcSymbol       = w3.MustNewFunc("symbol()", "string")
	funcDecimals     = w3.MustNewFunc("decimals()", "uint8")
	funcTotalSupply  = w3.MustNewFunc("totalSupply()", "uint256")
	funcBalanceOf    = w3.MustNewFunc("balanceOf(address)", "uint256")
	funcAllowance    = w3.MustNewFunc("allowance(address,address)", "uint256")
	funcApprove      = w3.MustNewFunc("approve(address,uint256)", "bool")
	funcTransfer     = w3.MustNewFunc("transfer(address,uint256)", "bool")
	funcTransferFrom = w3.MustNewFunc("transferFrom(address,address,uint256)", "bool")
	funcMint         = w3.MustNewFunc("mint(uint256)", "bool")
)

// ERC20 is a handle to any token with the detailed ERC20 surface.
type ERC20 struct {
	address common.Address
	backend chain.Backend
}

// BindERC20 binds a token, rejecting zero addresses and addresses without code.
func BindERC20(ctx context.Context, addr common.Address, backend chain.Backend) (*ERC20, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("failed to bind ERC20: %w", ErrZeroAddress)
	}
	if err := chain.EnsureCode(ctx, backend, addr); err != nil {
		return nil, fmt.Errorf("failed to bind ERC20 at %s: %w", addr, err)
	}
	return &ERC20{address: addr, backend: backend}, nil
}

func (t *ERC20) Address() common.Address {
	return t.address
}

func (t *ERC20) call(ctx context.Context, fn *w3.Func, args []any, returns ...any) error {
	input, err := fn.EncodeArgs(args...)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", fn.Signature, err)
	}
	out, err := t.backend.Call(ctx, common.Address{}, t.address, input)
	if err != nil {
		return fmt.Errorf("token %s %s failed: %w", t.address, fn.Signature, err)
	}
	if err := fn.DecodeReturns(out, returns...); err != nil {
		return fmt.Errorf("failed to decode %s: %w", fn.Signature, err)
	}
	return nil
}

func (t *ERC20) transact(ctx context.Context, from chain.Account, fn *w3.Func, args ...any) (*types.Receipt, error) {
	input, err := fn.EncodeArgs(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", fn.Signature, err)
	}
	receipt, err := t.backend.Transact(ctx, from, t.address, input)
	if err != nil {
		return receipt, fmt.Errorf("token %s %s failed: %w", t.address, fn.Signature, err)
	}
	return receipt, nil
}

func (t *ERC20) Name(ctx context.Context) (string, error) {
	var out string
	err := t.call(ctx, funcName, nil, &out)
	return out, err
}

func (t *ERC20) Symbol(ctx context.Context) (string, error) {
	var out string
	err := t.call(ctx, funcSymbol, nil, &out)
	return out, err
}

func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	var out uint8
	err := t.call(ctx, funcDecimals, nil, &out)
	return out, err
}

func (t *ERC20) TotalSupply(ctx context.Context) (*big.Int, error) {
	var out big.Int
	if err := t.call(ctx, funcTotalSupply, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out big.Int
	if err := t.call(ctx, funcBalanceOf, []any{owner}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out big.Int
	if err := t.call(ctx, funcAllowance, []any{owner, spender}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *ERC20) Approve(ctx context.Context, from chain.Account, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.transact(ctx, from, funcApprove, spender, amount)
}

func (t *ERC20) Transfer(ctx context.Context, from chain.Account, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.transact(ctx, from, funcTransfer, to, amount)
}

func (t *ERC20) TransferFrom(ctx context.Context, from chain.Account, owner, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.transact(ctx, from, funcTransferFrom, owner, to, amount)
}

// Mint calls mint(uint256) of the mock tokens, crediting the sender.
func (t *ERC20) Mint(ctx context.Context, from chain.Account, amount *big.Int) (*types.Receipt, error) {
	return t.transact(ctx, from, funcMint, amount)
}

// TransferAs transfers tokens out of an impersonated holder.
func (t *ERC20) TransferAs(ctx context.Context, holder common.Address, to common.Address, amount *big.Int) (*types.Receipt, error) {
	imp, ok := t.backend.(chain.Impersonator)
	if !ok {
		return nil, fmt.Errorf("backend %T cannot impersonate %s", t.backend, holder)
	}
	input, err := funcTransfer.EncodeArgs(to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer: %w", err)
	}
	if err := imp.Impersonate(ctx, holder); err != nil {
		return nil, err
	}
	return imp.TransactAs(ctx, holder, t.address, input)
}

// Metadata is the descriptive part of a token.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

func (t *ERC20) Metadata(ctx context.Context) (Metadata, error) {
	var md Metadata
	var err error
	if md.Name, err = t.Name(ctx); err != nil {
		return md, err
	}
	if md.Symbol, err = t.Symbol(ctx); err != nil {
		return md, err
	}
	if md.Decimals, err = t.Decimals(ctx); err != nil {
		return md, err
	}
	return md, nil
}
