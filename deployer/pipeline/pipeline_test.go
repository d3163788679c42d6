package pipeline

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/artifacts"
	"github.com/wevest/wevest-devstack/deployer/state"
	"github.com/wevest/wevest-devstack/service/testlog"
)

func newTestEnv(t *testing.T) *Env {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	lgr := testlog.Logger(t, log.LevelInfo)
	return &Env{
		Backend:   sim.NewBackend(lgr),
		Deployer:  chain.NewAccount(key),
		Artifacts: sim.Artifacts(),
		Market:    config.DefaultSimMarket(),
		Logger:    lgr,
	}
}

func runAll(t *testing.T, env *Env) *state.Deployment {
	ctx := context.Background()
	st, err := NewDeployment(ctx, env)
	require.NoError(t, err)
	require.NoError(t, Run(ctx, env, st))
	require.True(t, st.Ready())
	return st
}

func TestRunToReady(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var stages []string
	env.OnStage = func(stage Stage, st *state.Deployment) {
		stages = append(stages, stage.Name)
	}
	st := runAll(t, env)
	require.Equal(t, []string{"libraries", "directory", "implementations", "reserves", "oracles", "ready"}, stages)
	require.Equal(t, uint64(sim.DefaultChainID), st.ChainID)
	require.Empty(t, st.Error)

	require.Len(t, st.Libraries, 3)
	for _, lib := range []string{bindings.ReserveLogic, bindings.GenericLogic, bindings.ValidationLogic} {
		require.NotZero(t, st.Libraries[lib], lib)
	}

	a := st.Addresses
	proxies := []common.Address{a.LendingPool, a.Configurator, a.TokenSwap, a.YieldFarmingPool}
	impls := []common.Address{a.LendingPoolImpl, a.ConfiguratorImpl, a.TokenSwapImpl, a.YieldFarmingPoolImpl}
	seen := make(map[common.Address]bool)
	for i, p := range proxies {
		require.NotZero(t, p)
		require.NotEqual(t, impls[i], p)
		require.False(t, seen[p], "proxy %s is shared", p)
		seen[p] = true
		require.NoError(t, chain.EnsureCode(ctx, env.Backend, p))
	}

	provider, err := bindings.BindAddressesProvider(ctx, a.AddressesProvider, env.Backend)
	require.NoError(t, err)
	id, err := provider.MarketID(ctx)
	require.NoError(t, err)
	require.Equal(t, env.Market.MarketID, id)
	admin, err := provider.EmergencyAdmin(ctx)
	require.NoError(t, err)
	require.Equal(t, env.Deployer.Address, admin)

	registry, err := bindings.BindRegistry(ctx, a.Registry, env.Backend)
	require.NoError(t, err)
	providers, err := registry.Providers(ctx)
	require.NoError(t, err)
	require.Equal(t, []common.Address{a.AddressesProvider}, providers)
}

func TestReservesMatchMarket(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	st := runAll(t, env)

	dp, err := bindings.BindDataProvider(ctx, st.Addresses.DataProvider, env.Backend)
	require.NoError(t, err)
	wvTokens, err := dp.AllWvTokens(ctx)
	require.NoError(t, err)
	require.Len(t, wvTokens, 2)

	pool, err := bindings.BindPool(ctx, st.Addresses.LendingPool, env.Backend)
	require.NoError(t, err)
	list, err := pool.ReservesList(ctx)
	require.NoError(t, err)

	require.Len(t, st.Reserves, len(env.Market.Reserves))
	for i, want := range env.Market.Reserves {
		r := st.Reserves[i]
		require.Equal(t, want.Symbol, r.Symbol)
		require.Equal(t, list[i], r.Asset)
		require.Equal(t, want.Decimals, r.Decimals)
		require.True(t, r.Mock)
		require.NotZero(t, r.Vault)

		wv, ok := bindings.FindToken(wvTokens, "wv"+want.Symbol)
		require.True(t, ok)
		require.Equal(t, wv, r.WvToken)
		for range 2 {
			again, err := ResolveWvToken(ctx, dp, want.Symbol)
			require.NoError(t, err)
			require.Equal(t, wv, again)
		}

		for _, addr := range []common.Address{r.Asset, r.WvToken, r.DebtToken} {
			tok, err := bindings.BindERC20(ctx, addr, env.Backend)
			require.NoError(t, err)
			dec, err := tok.Decimals(ctx)
			require.NoError(t, err)
			require.Equal(t, want.Decimals, dec)
		}

		data, err := pool.ReserveData(ctx, r.Asset)
		require.NoError(t, err)
		require.Equal(t, r.WvToken, data.WvTokenAddress)
		require.Equal(t, r.DebtToken, data.DebtTokenAddress)
		require.Equal(t, r.Vault, data.VaultTokenAddress)
		require.Equal(t, want.Borrowable, data.BorrowingEnabled)

		asset, err := bindings.BindERC20(ctx, r.Asset, env.Backend)
		require.NoError(t, err)
		liquidity, err := asset.BalanceOf(ctx, st.Addresses.TokenSwap)
		require.NoError(t, err)
		seeded := new(big.Int).Mul(new(big.Int).SetUint64(env.Market.SwapLiquidity), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(r.Decimals)), nil))
		require.Equal(t, seeded, liquidity)
	}
}

func TestOraclePrices(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	st := runAll(t, env)

	provider, err := bindings.BindAddressesProvider(ctx, st.Addresses.AddressesProvider, env.Backend)
	require.NoError(t, err)
	installed, err := provider.PriceOracle(ctx)
	require.NoError(t, err)
	require.Equal(t, st.Addresses.FallbackOracle, installed)
	require.Equal(t, installed, st.Addresses.PriceOracle)

	fallback, err := bindings.BindFallbackOracle(ctx, st.Addresses.FallbackOracle, env.Backend)
	require.NoError(t, err)
	ethUsd, err := fallback.EthUsdPrice(ctx)
	require.NoError(t, err)
	require.Equal(t, env.Market.EthUsdPrice.Int, ethUsd)

	composite, err := bindings.BindCompositeOracle(ctx, st.Addresses.WevestOracle, env.Backend)
	require.NoError(t, err)
	for i, r := range st.Reserves {
		want := env.Market.Reserves[i].Price.Int
		got, err := fallback.AssetPrice(ctx, r.Asset)
		require.NoError(t, err)
		require.Equal(t, want, got)

		got, err = composite.AssetPrice(ctx, r.Asset)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, want, (*big.Int)(r.Price))
	}
}

func TestCompositeOracleMode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.Market.Oracle = config.OracleComposite
	st := runAll(t, env)

	provider, err := bindings.BindAddressesProvider(ctx, st.Addresses.AddressesProvider, env.Backend)
	require.NoError(t, err)
	installed, err := provider.PriceOracle(ctx)
	require.NoError(t, err)
	require.Equal(t, st.Addresses.WevestOracle, installed)
}

func TestReservesCannotBeInitializedTwice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	st := runAll(t, env)

	metas, err := ReadMetadata(ctx, env.Backend, []common.Address{st.Reserves[0].Asset})
	require.NoError(t, err)
	a := st.Addresses
	r := st.Reserves[0]
	record := ReserveRecord(metas[0], r.Asset, r.Vault, a.WvTokenImpl, a.DebtTokenImpl, a.InterestRateStrategy, env.Market.Treasury)
	require.Equal(t, "wvUSDC", record.WvTokenSymbol)
	require.Equal(t, "Wevest debt bearing USDC", record.DebtTokenName)

	configurator, err := bindings.BindConfigurator(ctx, a.Configurator, env.Backend)
	require.NoError(t, err)
	_, err = configurator.BatchInitReserve(ctx, env.Deployer, []bindings.InitReserveInput{record})
	require.ErrorIs(t, err, chain.ErrReverted)
	reason, ok := chain.RevertReason(err)
	require.True(t, ok)
	require.Equal(t, "RESERVE_ALREADY_INITIALIZED", reason)

	dp, err := bindings.BindDataProvider(ctx, a.DataProvider, env.Backend)
	require.NoError(t, err)
	tokens, err := dp.AllWvTokens(ctx)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	_, err = ResolveWvToken(ctx, dp, "DAI")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStagesRunInOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	st, err := NewDeployment(ctx, env)
	require.NoError(t, err)

	err = RunStage(ctx, env, st, Stages[2])
	require.ErrorIs(t, err, state.ErrOutOfOrder)
	require.Equal(t, state.Unstarted, st.Phase)
	n, err := env.Backend.BlockNumber(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "rejected stage must not send transactions")

	require.NoError(t, RunStage(ctx, env, st, Stages[0]))
	require.Equal(t, state.LibrariesDeployed, st.Phase)
	require.ErrorIs(t, RunStage(ctx, env, st, Stages[0]), state.ErrOutOfOrder)

	// Run resumes after the completed stages.
	require.NoError(t, Run(ctx, env, st))
	require.True(t, st.Ready())
}

func TestFailedDeploymentIsFinal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	cyclic := artifacts.MemSource{}
	for name, art := range sim.Artifacts() {
		cyclic[name] = art
	}
	const validationSource = "contracts/protocol/libraries/logic/ValidationLogic.sol"
	cyclic[bindings.GenericLogic] = &artifacts.Artifact{
		Format:       artifacts.HardhatFormat,
		ContractName: bindings.GenericLogic,
		SourceName:   "contracts/protocol/libraries/logic/GenericLogic.sol",
		ABI:          json.RawMessage(`[]`),
		Bytecode:     "0x6080" + artifacts.Placeholder(validationSource, bindings.ValidationLogic),
		LinkReferences: artifacts.LinkReferences{
			validationSource: {bindings.ValidationLogic: {{Start: 2, Length: 20}}},
		},
	}
	env.Artifacts = cyclic

	st, err := NewDeployment(ctx, env)
	require.NoError(t, err)
	err = Run(ctx, env, st)
	require.ErrorIs(t, err, artifacts.ErrCycle)
	require.Equal(t, state.Failed, st.Phase)
	require.Contains(t, st.Error, "cycle")
	require.Empty(t, st.Libraries)

	env.Artifacts = sim.Artifacts()
	require.ErrorIs(t, RunStage(ctx, env, st, Stages[0]), state.ErrFailed)
	require.ErrorIs(t, Run(ctx, env, st), state.ErrFailed)
}

func TestUpgradeKeepsProxy(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	st := runAll(t, env)

	provider, err := bindings.BindAddressesProvider(ctx, st.Addresses.AddressesProvider, env.Backend)
	require.NoError(t, err)
	impl, err := env.deploy(ctx, env.Logger, st, bindings.TokenSwap)
	require.NoError(t, err)
	proxy, err := ResolveProxy(ctx, env, provider, bindings.RoleTokenSwap, impl)
	require.NoError(t, err)
	require.Equal(t, st.Addresses.TokenSwap, proxy)

	// The configurator implementation cannot back the swap proxy.
	_, err = ResolveProxy(ctx, env, provider, bindings.RoleTokenSwap, st.Addresses.ConfiguratorImpl)
	require.Error(t, err)
}

func TestEnvChecks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.Deployer.Key = nil
	_, err := NewDeployment(ctx, env)
	require.ErrorIs(t, err, chain.ErrMissingSigner)

	env = newTestEnv(t)
	env.Market.Reserves = nil
	_, err = NewDeployment(ctx, env)
	require.Error(t, err)

	env = newTestEnv(t)
	st, err := NewDeployment(ctx, env)
	require.NoError(t, err)
	st.ChainID = 1
	require.ErrorIs(t, Run(ctx, env, st), ErrWrongChain)
	require.Equal(t, state.Failed, st.Phase)
}
