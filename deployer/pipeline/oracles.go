package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/state"
)

var oneEther = big.NewInt(1e18)

// SeedOracles deploys the fallback oracle and seeds it, deploys one mock
// aggregator per asset behind the composite oracle, and installs the oracle
// selected by the market config in the directory.
func SeedOracles(ctx context.Context, env *Env, st *state.Deployment) error {
	lgr := env.Logger.New("stage", "seed-oracles")
	a := &st.Addresses

	var err error
	if a.FallbackOracle, err = env.deploy(ctx, lgr, st, bindings.PriceOracle); err != nil {
		return err
	}
	fallback, err := bindings.BindFallbackOracle(ctx, a.FallbackOracle, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind fallback oracle: %w", err)
	}
	ethUsd := env.Market.EthUsdPrice.Int
	if err := env.sent("set eth usd price")(fallback.SetEthUsdPrice(ctx, env.Deployer, ethUsd)); err != nil {
		return err
	}
	st.EthUsd = state.Price(ethUsd)

	assets := make([]common.Address, len(st.Reserves))
	sources := make([]common.Address, len(st.Reserves))
	for i := range st.Reserves {
		r := &st.Reserves[i]
		price := (*big.Int)(r.Price)
		if err := env.sentFor("set asset price", r.Symbol)(fallback.SetAssetPrice(ctx, env.Deployer, r.Asset, price)); err != nil {
			return err
		}
		got, err := fallback.AssetPrice(ctx, r.Asset)
		if err != nil {
			return fmt.Errorf("failed to read back price of %s: %w", r.Symbol, err)
		}
		if got.Cmp(price) != 0 {
			return fmt.Errorf("%w: %s set %s, read %s", ErrPriceMismatch, r.Symbol, price, got)
		}
		agg, err := env.deploy(ctx, lgr.New("asset", r.Symbol), st, bindings.MockAggregator, price)
		if err != nil {
			return err
		}
		r.Aggregator = agg
		assets[i], sources[i] = r.Asset, agg
	}

	if a.WETH, err = env.deploy(ctx, lgr, st, bindings.WETH9Mocked); err != nil {
		return err
	}
	if a.WevestOracle, err = env.deploy(ctx, lgr, st, bindings.WevestOracle, assets, sources, a.FallbackOracle, a.WETH, oneEther); err != nil {
		return err
	}
	composite, err := bindings.BindCompositeOracle(ctx, a.WevestOracle, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind wevest oracle: %w", err)
	}
	for i, asset := range assets {
		src, err := composite.SourceOfAsset(ctx, asset)
		if err != nil {
			return fmt.Errorf("failed to read source of %s: %w", st.Reserves[i].Symbol, err)
		}
		if src != sources[i] {
			return fmt.Errorf("%w: source of %s is %s, want %s", ErrAliasedAddress, st.Reserves[i].Symbol, src, sources[i])
		}
	}

	installed := a.FallbackOracle
	if env.Market.Oracle == config.OracleComposite {
		installed = a.WevestOracle
	}
	provider, err := bindings.BindAddressesProvider(ctx, a.AddressesProvider, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind addresses provider: %w", err)
	}
	if err := env.sent("set price oracle")(provider.SetPriceOracle(ctx, env.Deployer, installed)); err != nil {
		return err
	}
	got, err := provider.PriceOracle(ctx)
	if err != nil {
		return fmt.Errorf("failed to read price oracle: %w", err)
	}
	if got != installed {
		return fmt.Errorf("%w: directory price oracle is %s, want %s", ErrAliasedAddress, got, installed)
	}
	a.PriceOracle = installed
	lgr.Info("oracles seeded", "fallback", a.FallbackOracle, "wevest", a.WevestOracle, "installed", env.Market.Oracle)
	return nil
}
