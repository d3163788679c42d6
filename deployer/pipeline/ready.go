package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/deployer/state"
)

// EnableReserves turns on borrowing for the borrowable reserves and seeds
// the swap with liquidity of every mock asset.
func EnableReserves(ctx context.Context, env *Env, st *state.Deployment) error {
	lgr := env.Logger.New("stage", "enable-reserves")
	a := &st.Addresses

	configurator, err := bindings.BindConfigurator(ctx, a.Configurator, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind configurator: %w", err)
	}
	pool, err := bindings.BindPool(ctx, a.LendingPool, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind lending pool: %w", err)
	}
	for _, r := range st.Reserves {
		if !r.Borrowable {
			continue
		}
		if err := env.sentFor("enable borrowing", r.Symbol)(configurator.EnableBorrowing(ctx, env.Deployer, r.Asset)); err != nil {
			return err
		}
		data, err := pool.ReserveData(ctx, r.Asset)
		if err != nil {
			return fmt.Errorf("failed to read reserve data of %s: %w", r.Symbol, err)
		}
		if !data.BorrowingEnabled {
			return fmt.Errorf("borrowing on %s is still disabled", r.Symbol)
		}
	}

	if env.Market.SwapLiquidity == 0 {
		return nil
	}
	for _, r := range st.Reserves {
		if !r.Mock {
			continue
		}
		amount := new(big.Int).Mul(new(big.Int).SetUint64(env.Market.SwapLiquidity), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(r.Decimals)), nil))
		tok, err := bindings.BindERC20(ctx, r.Asset, env.Backend)
		if err != nil {
			return fmt.Errorf("failed to bind %s: %w", r.Symbol, err)
		}
		if err := env.sentFor("mint swap liquidity", r.Symbol)(tok.Mint(ctx, env.Deployer, amount)); err != nil {
			return err
		}
		if err := env.sentFor("fund swap liquidity", r.Symbol)(tok.Transfer(ctx, env.Deployer, a.TokenSwap, amount)); err != nil {
			return err
		}
		lgr.Info("swap liquidity seeded", "asset", r.Symbol, "amount", amount)
	}
	return nil
}
