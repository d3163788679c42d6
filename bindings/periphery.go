package bindings

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/wevest/wevest-devstack/chain"
)

// FallbackOracle is the manually priced PriceOracle.
type FallbackOracle struct {
	*Contract
}

func BindFallbackOracle(ctx context.Context, addr common.Address, backend chain.Backend) (*FallbackOracle, error) {
	c, err := Bind(ctx, PriceOracle, addr, backend)
	if err != nil {
		return nil, err
	}
	return &FallbackOracle{c}, nil
}

func (o *FallbackOracle) SetEthUsdPrice(ctx context.Context, from chain.Account, price *big.Int) (*types.Receipt, error) {
	return o.Transact(ctx, from, "setEthUsdPrice", price)
}

func (o *FallbackOracle) EthUsdPrice(ctx context.Context) (*big.Int, error) {
	return o.CallBig(ctx, "getEthUsdPrice")
}

func (o *FallbackOracle) SetAssetPrice(ctx context.Context, from chain.Account, asset common.Address, price *big.Int) (*types.Receipt, error) {
	return o.Transact(ctx, from, "setAssetPrice", asset, price)
}

func (o *FallbackOracle) AssetPrice(ctx context.Context, asset common.Address) (*big.Int, error) {
	return o.CallBig(ctx, "getAssetPrice", asset)
}

// CompositeOracle is the aggregator-backed WevestOracle.
type CompositeOracle struct {
	*Contract
}

func BindCompositeOracle(ctx context.Context, addr common.Address, backend chain.Backend) (*CompositeOracle, error) {
	c, err := Bind(ctx, WevestOracle, addr, backend)
	if err != nil {
		return nil, err
	}
	return &CompositeOracle{c}, nil
}

func (o *CompositeOracle) AssetPrice(ctx context.Context, asset common.Address) (*big.Int, error) {
	return o.CallBig(ctx, "getAssetPrice", asset)
}

func (o *CompositeOracle) SourceOfAsset(ctx context.Context, asset common.Address) (common.Address, error) {
	return o.CallAddress(ctx, "getSourceOfAsset", asset)
}

func (o *CompositeOracle) FallbackOracle(ctx context.Context) (common.Address, error) {
	return o.CallAddress(ctx, "getFallbackOracle")
}

// YieldFarming is the yield-farming pool proxy.
type YieldFarming struct {
	*Contract
}

func BindYieldFarming(ctx context.Context, addr common.Address, backend chain.Backend) (*YieldFarming, error) {
	c, err := Bind(ctx, YieldFarmingPool, addr, backend)
	if err != nil {
		return nil, err
	}
	return &YieldFarming{c}, nil
}

func (y *YieldFarming) Deposit(ctx context.Context, from chain.Account, vault, asset common.Address, amount *big.Int) (*types.Receipt, error) {
	return y.Transact(ctx, from, "deposit", vault, asset, amount)
}

// CurrentBalance is the underlying value the pool holds in vault.
func (y *YieldFarming) CurrentBalance(ctx context.Context, vault common.Address) (*big.Int, error) {
	return y.CallBig(ctx, "currentBalance", vault)
}

// Swapper is the token-swap proxy.
type Swapper struct {
	*Contract
}

func BindSwapper(ctx context.Context, addr common.Address, backend chain.Backend) (*Swapper, error) {
	c, err := Bind(ctx, TokenSwap, addr, backend)
	if err != nil {
		return nil, err
	}
	return &Swapper{c}, nil
}

func (s *Swapper) Swap(ctx context.Context, from chain.Account, tokenIn, tokenOut common.Address, amountIn, amountOutMin *big.Int, to common.Address) (*types.Receipt, error) {
	return s.Transact(ctx, from, "swap", tokenIn, tokenOut, amountIn, amountOutMin, to)
}

func (s *Swapper) AmountOut(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	return s.CallBig(ctx, "getAmountOut", tokenIn, tokenOut, amountIn)
}

// Vault is a yearn-style vault.
type Vault struct {
	*Contract
}

func BindVault(ctx context.Context, addr common.Address, backend chain.Backend) (*Vault, error) {
	c, err := Bind(ctx, MockVault, addr, backend)
	if err != nil {
		return nil, err
	}
	return &Vault{c}, nil
}

func (v *Vault) Token(ctx context.Context) (common.Address, error) {
	return v.CallAddress(ctx, "token")
}

func (v *Vault) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return v.CallBig(ctx, "balanceOf", owner)
}

func (v *Vault) PricePerShare(ctx context.Context) (*big.Int, error) {
	return v.CallBig(ctx, "pricePerShare")
}
