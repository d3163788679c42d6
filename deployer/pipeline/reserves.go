package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/state"
)

func WvTokenSymbol(assetSymbol string) string {
	return "wv" + assetSymbol
}

func DebtTokenSymbol(assetSymbol string) string {
	return "debt" + assetSymbol
}

// ReserveRecord builds the batchInitReserve record of one reserve.
func ReserveRecord(md bindings.Metadata, asset, vault, wvImpl, debtImpl, strategy, treasury common.Address) bindings.InitReserveInput {
	return bindings.InitReserveInput{
		WvTokenImpl:                 wvImpl,
		DebtTokenImpl:               debtImpl,
		VaultTokenAddress:           vault,
		UnderlyingAsset:             asset,
		UnderlyingAssetName:         md.Name,
		UnderlyingAssetDecimals:     md.Decimals,
		InterestRateStrategyAddress: strategy,
		Treasury:                    treasury,
		WvTokenName:                 "Wevest interest bearing " + md.Symbol,
		WvTokenSymbol:               WvTokenSymbol(md.Symbol),
		DebtTokenName:               "Wevest debt bearing " + md.Symbol,
		DebtTokenSymbol:             DebtTokenSymbol(md.Symbol),
	}
}

// ReadMetadata queries name, symbol and decimals of every asset concurrently.
// Results are in the order of assets.
func ReadMetadata(ctx context.Context, backend chain.Backend, assets []common.Address) ([]bindings.Metadata, error) {
	out := make([]bindings.Metadata, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	for i, asset := range assets {
		g.Go(func() error {
			tok, err := bindings.BindERC20(gctx, asset, backend)
			if err != nil {
				return fmt.Errorf("failed to bind asset %s: %w", asset, err)
			}
			md, err := tok.Metadata(gctx)
			if err != nil {
				return fmt.Errorf("failed to read metadata of %s: %w", asset, err)
			}
			out[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MatchMarket checks that st was deployed for market: same market id, and the
// same reserves in the same order, with the configured asset and vault
// addresses where the config names them.
func MatchMarket(st *state.Deployment, market *config.Market) error {
	if st.MarketID != market.MarketID {
		return fmt.Errorf("%w: deployment is market %q, config is %q", ErrMarketMismatch, st.MarketID, market.MarketID)
	}
	if len(st.Reserves) != len(market.Reserves) {
		return fmt.Errorf("%w: deployment has %d reserves, config has %d", ErrMarketMismatch, len(st.Reserves), len(market.Reserves))
	}
	for i, want := range market.Reserves {
		got := st.Reserves[i]
		if got.Symbol != want.Symbol {
			return fmt.Errorf("%w: reserve %d is %s, config has %s", ErrMarketMismatch, i, got.Symbol, want.Symbol)
		}
		if !want.Mock() && got.Asset != want.Address {
			return fmt.Errorf("%w: %s asset is %s, config has %s", ErrMarketMismatch, want.Symbol, got.Asset, want.Address)
		}
		if !want.MockVault() && got.Vault != want.Vault {
			return fmt.Errorf("%w: %s vault is %s, config has %s", ErrMarketMismatch, want.Symbol, got.Vault, want.Vault)
		}
	}
	return nil
}

// ResolveWvToken finds the wvToken of an asset by symbol in the data provider listing.
func ResolveWvToken(ctx context.Context, dp *bindings.DataProvider, assetSymbol string) (common.Address, error) {
	tokens, err := dp.AllWvTokens(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to list wv tokens: %w", err)
	}
	addr, ok := bindings.FindToken(tokens, WvTokenSymbol(assetSymbol))
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrTokenNotFound, WvTokenSymbol(assetSymbol))
	}
	return addr, nil
}

// InitReserves deploys the market assets and vaults that are mocked, the
// token implementations, the rate strategy and the data provider, then
// initializes every reserve in one batchInitReserve call.
func InitReserves(ctx context.Context, env *Env, st *state.Deployment) error {
	lgr := env.Logger.New("stage", "init-reserves")
	market := env.Market

	st.Reserves = make([]state.Reserve, len(market.Reserves))
	assets := make([]common.Address, len(market.Reserves))
	for i, r := range market.Reserves {
		asset := r.Address
		if r.Mock() {
			var err error
			asset, err = env.deploy(ctx, lgr.New("asset", r.Symbol), st, bindings.MintableERC20, r.Name, r.Symbol, r.Decimals)
			if err != nil {
				return err
			}
		}
		assets[i] = asset
		st.Reserves[i] = state.Reserve{
			Symbol:     r.Symbol,
			Asset:      asset,
			Mock:       r.Mock(),
			Vault:      r.Vault,
			Price:      state.Price(r.Price.Int),
			Borrowable: r.Borrowable,
		}
	}

	metas, err := ReadMetadata(ctx, env.Backend, assets)
	if err != nil {
		return err
	}
	for i, md := range metas {
		if md.Symbol != st.Reserves[i].Symbol {
			return fmt.Errorf("reserve %s: asset %s reports symbol %q", st.Reserves[i].Symbol, assets[i], md.Symbol)
		}
		st.Reserves[i].Decimals = md.Decimals
	}

	for i := range st.Reserves {
		r := &st.Reserves[i]
		if r.Vault != (common.Address{}) {
			continue
		}
		vault, err := env.deploy(ctx, lgr.New("asset", r.Symbol), st, bindings.MockVault, r.Asset, "yearn "+metas[i].Name, "yv"+r.Symbol)
		if err != nil {
			return err
		}
		r.Vault = vault
	}

	a := &st.Addresses
	if a.WvTokenImpl, err = env.deploy(ctx, lgr, st, bindings.WvToken); err != nil {
		return err
	}
	if a.DebtTokenImpl, err = env.deploy(ctx, lgr, st, bindings.DebtToken); err != nil {
		return err
	}
	if err := initTokenImpls(ctx, env, st, metas[0]); err != nil {
		return err
	}
	if a.InterestRateStrategy, err = env.deploy(ctx, lgr, st, bindings.DefaultReserveInterestRateStrategy, a.AddressesProvider); err != nil {
		return err
	}
	if a.DataProvider, err = env.deploy(ctx, lgr, st, bindings.WevestProtocolDataProvider, a.AddressesProvider); err != nil {
		return err
	}

	records := make([]bindings.InitReserveInput, len(st.Reserves))
	for i, r := range st.Reserves {
		records[i] = ReserveRecord(metas[i], r.Asset, r.Vault, a.WvTokenImpl, a.DebtTokenImpl, a.InterestRateStrategy, market.Treasury)
	}
	configurator, err := bindings.BindConfigurator(ctx, a.Configurator, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind configurator: %w", err)
	}
	if err := env.sent("batch init reserves")(configurator.BatchInitReserve(ctx, env.Deployer, records)); err != nil {
		return err
	}

	dp, err := bindings.BindDataProvider(ctx, a.DataProvider, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind data provider: %w", err)
	}
	for i := range st.Reserves {
		r := &st.Reserves[i]
		wv, err := ResolveWvToken(ctx, dp, r.Symbol)
		if err != nil {
			return err
		}
		tokens, err := dp.ReserveTokens(ctx, r.Asset)
		if err != nil {
			return fmt.Errorf("failed to read reserve tokens of %s: %w", r.Symbol, err)
		}
		if tokens.WvTokenAddress != wv {
			return fmt.Errorf("%w: %s lists %s, reserve has %s", ErrAliasedAddress, WvTokenSymbol(r.Symbol), wv, tokens.WvTokenAddress)
		}
		r.WvToken, r.DebtToken = wv, tokens.DebtTokenAddress
		lgr.Info("reserve initialized", "asset", r.Symbol, "decimals", r.Decimals, "wvToken", r.WvToken, "debtToken", r.DebtToken, "vault", r.Vault)
	}
	return nil
}

// initTokenImpls initializes the token implementations so they cannot be
// taken over. The reserves get their own initialized proxies.
func initTokenImpls(ctx context.Context, env *Env, st *state.Deployment, md bindings.Metadata) error {
	a := &st.Addresses
	asset := st.Reserves[0].Asset
	wv, err := bindings.Bind(ctx, bindings.WvToken, a.WvTokenImpl, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind wvToken implementation: %w", err)
	}
	if err := env.sent("initialize wvToken implementation")(wv.Transact(ctx, env.Deployer, "initialize",
		a.LendingPool, env.Market.Treasury, asset, md.Decimals, "WVTOKEN_IMPL", "WVTOKEN_IMPL")); err != nil {
		return err
	}
	debt, err := bindings.Bind(ctx, bindings.DebtToken, a.DebtTokenImpl, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind debtToken implementation: %w", err)
	}
	return env.sent("initialize debtToken implementation")(debt.Transact(ctx, env.Deployer, "initialize",
		a.LendingPool, asset, md.Decimals, "DEBTTOKEN_IMPL", "DEBTTOKEN_IMPL"))
}
