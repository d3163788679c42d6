package bindings

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/wevest/wevest-devstack/chain"
)

// Pool is the lending pool proxy.
type Pool struct {
	*Contract
}

func BindPool(ctx context.Context, addr common.Address, backend chain.Backend) (*Pool, error) {
	c, err := Bind(ctx, LendingPool, addr, backend)
	if err != nil {
		return nil, err
	}
	return &Pool{c}, nil
}

func (p *Pool) Deposit(ctx context.Context, from chain.Account, asset common.Address, amount *big.Int) (*types.Receipt, error) {
	return p.Transact(ctx, from, "deposit", asset, amount)
}

// Withdraw burns wvTokens for the underlying asset. abi.MaxUint256 withdraws the full balance.
func (p *Pool) Withdraw(ctx context.Context, from chain.Account, asset common.Address, amount *big.Int) (*types.Receipt, error) {
	return p.Transact(ctx, from, "withdraw", asset, amount)
}

// Borrow opens a leveraged position: amount of asset is the margin,
// the debt is denominated in asset and the proceeds are held as collateralAsset.
func (p *Pool) Borrow(ctx context.Context, from chain.Account, asset common.Address, amount *big.Int, collateralAsset common.Address, mode LeverageRatioMode) (*types.Receipt, error) {
	return p.Transact(ctx, from, "borrow", asset, amount, collateralAsset, uint8(mode))
}

// Redeem closes a position. A nil amount closes the full position.
func (p *Pool) Redeem(ctx context.Context, from chain.Account, collateralAsset, debtAsset common.Address, amount *big.Int) (*types.Receipt, error) {
	if amount == nil {
		return p.Transact(ctx, from, "redeem", collateralAsset, debtAsset)
	}
	return p.Transact(ctx, from, "redeem0", collateralAsset, debtAsset, amount)
}

func (p *Pool) ReservesList(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	err := p.CallInto(ctx, &out, "getReservesList")
	return out, err
}

func (p *Pool) ReserveData(ctx context.Context, asset common.Address) (ReserveData, error) {
	var out ReserveData
	err := p.CallInto(ctx, &out, "getReserveData", asset)
	return out, err
}

func (p *Pool) Position(ctx context.Context, user, collateralAsset, debtAsset common.Address) (Position, error) {
	var out Position
	err := p.CallInto(ctx, &out, "getPosition", user, collateralAsset, debtAsset)
	return out, err
}

// Configurator is the lending pool configurator proxy.
type Configurator struct {
	*Contract
}

func BindConfigurator(ctx context.Context, addr common.Address, backend chain.Backend) (*Configurator, error) {
	c, err := Bind(ctx, LendingPoolConfigurator, addr, backend)
	if err != nil {
		return nil, err
	}
	return &Configurator{c}, nil
}

func (c *Configurator) BatchInitReserve(ctx context.Context, from chain.Account, input []InitReserveInput) (*types.Receipt, error) {
	return c.Transact(ctx, from, "batchInitReserve", input)
}

func (c *Configurator) EnableBorrowing(ctx context.Context, from chain.Account, asset common.Address) (*types.Receipt, error) {
	return c.Transact(ctx, from, "enableBorrowingOnReserve", asset)
}

func (c *Configurator) DisableBorrowing(ctx context.Context, from chain.Account, asset common.Address) (*types.Receipt, error) {
	return c.Transact(ctx, from, "disableBorrowingOnReserve", asset)
}

// DataProvider is the read-side helper of the protocol.
type DataProvider struct {
	*Contract
}

func BindDataProvider(ctx context.Context, addr common.Address, backend chain.Backend) (*DataProvider, error) {
	c, err := Bind(ctx, WevestProtocolDataProvider, addr, backend)
	if err != nil {
		return nil, err
	}
	return &DataProvider{c}, nil
}

func (d *DataProvider) AllWvTokens(ctx context.Context) ([]TokenData, error) {
	var out []TokenData
	err := d.CallInto(ctx, &out, "getAllWvTokens")
	return out, err
}

func (d *DataProvider) AllReservesTokens(ctx context.Context) ([]TokenData, error) {
	var out []TokenData
	err := d.CallInto(ctx, &out, "getAllReservesTokens")
	return out, err
}

func (d *DataProvider) ReserveTokens(ctx context.Context, asset common.Address) (ReserveTokens, error) {
	var out ReserveTokens
	err := d.CallInto(ctx, &out, "getReserveTokensAddresses", asset)
	return out, err
}

func (d *DataProvider) UserReserveData(ctx context.Context, asset, user common.Address) (UserReserveData, error) {
	var out UserReserveData
	err := d.CallInto(ctx, &out, "getUserReserveData", asset, user)
	return out, err
}
