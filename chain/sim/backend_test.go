package sim

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/service/testlog"
)

func newAccount(t *testing.T) chain.Account {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return chain.NewAccount(key)
}

func deploy(t *testing.T, b *Backend, from chain.Account, name string, libs map[string]common.Address, args ...any) common.Address {
	t.Helper()
	art, err := Artifacts().Artifact(name)
	require.NoError(t, err)
	code, err := art.DeployData(libs, args...)
	require.NoError(t, err)
	addr, receipt, err := b.Deploy(context.Background(), from, code)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Equal(t, addr, receipt.ContractAddress)
	return addr
}

func newToken(t *testing.T, b *Backend, from chain.Account, symbol string, decimals uint8) *bindings.ERC20 {
	addr := deploy(t, b, from, bindings.MintableERC20, nil, symbol, symbol, decimals)
	tok, err := bindings.BindERC20(context.Background(), addr, b)
	require.NoError(t, err)
	return tok
}

func TestEveryMethodIsImplemented(t *testing.T) {
	for _, k := range defaultKinds() {
		for name := range k.abi.Methods {
			require.Contains(t, k.methods, name, "%s.%s", k.name, name)
		}
		for name := range k.methods {
			require.Contains(t, k.abi.Methods, name, "%s.%s is not in the ABI", k.name, name)
		}
		if len(k.abi.Constructor.Inputs) > 0 {
			require.NotNil(t, k.ctor, "%s constructor", k.name)
		}
	}
}

func TestDeployAddressesFollowNonce(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	deployer := newAccount(t)

	first := deploy(t, b, deployer, bindings.ReserveLogic, nil)
	second := deploy(t, b, deployer, bindings.GenericLogic, nil)
	require.Equal(t, crypto.CreateAddress(deployer.Address, 0), first)
	require.Equal(t, crypto.CreateAddress(deployer.Address, 1), second)

	require.NoError(t, chain.EnsureCode(ctx, b, first))
	require.ErrorIs(t, chain.EnsureCode(ctx, b, common.HexToAddress("0x1234")), chain.ErrNoCode)

	n, err := b.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
}

func TestDeployRequiresLinkedLibraries(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	deployer := newAccount(t)
	generic := deploy(t, b, deployer, bindings.GenericLogic, nil)

	art, err := Artifacts().Artifact(bindings.ValidationLogic)
	require.NoError(t, err)
	require.Equal(t, []string{bindings.GenericLogic}, art.LinkReferences.Libraries())

	// a library of the wrong kind at the linked address
	code, err := art.DeployData(map[string]common.Address{bindings.GenericLogic: deployer.Address})
	require.NoError(t, err)
	_, receipt, err := b.Deploy(ctx, deployer, code)
	require.ErrorIs(t, err, chain.ErrReverted)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)

	deploy(t, b, deployer, bindings.ValidationLogic, map[string]common.Address{bindings.GenericLogic: generic})
}

func TestDeployRejectsForeignCode(t *testing.T) {
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	_, _, err := b.Deploy(context.Background(), newAccount(t), common.FromHex("0x6080604052"))
	require.ErrorIs(t, err, ErrUnknownCode)
}

func TestTransferAndRevertRollback(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	alice, bob := newAccount(t), newAccount(t)
	tok := newToken(t, b, alice, "USDC", 6)

	_, err := tok.Mint(ctx, alice, big.NewInt(1000))
	require.NoError(t, err)
	_, err = tok.Transfer(ctx, alice, bob.Address, big.NewInt(400))
	require.NoError(t, err)

	receipt, err := tok.Transfer(ctx, bob, alice.Address, big.NewInt(401))
	require.ErrorIs(t, err, chain.ErrReverted)
	reason, ok := chain.RevertReason(err)
	require.True(t, ok)
	require.Equal(t, "ERC20: transfer amount exceeds balance", reason)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)

	bal, err := tok.BalanceOf(ctx, bob.Address)
	require.NoError(t, err)
	require.Equal(t, int64(400), bal.Int64())
	supply, err := tok.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1000), supply.Int64())
}

func TestTransferFromNeedsAllowance(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	alice, bob := newAccount(t), newAccount(t)
	tok := newToken(t, b, alice, "AAVE", 18)
	_, err := tok.Mint(ctx, alice, big.NewInt(10))
	require.NoError(t, err)

	_, err = tok.TransferFrom(ctx, bob, alice.Address, bob.Address, big.NewInt(5))
	require.ErrorIs(t, err, chain.ErrReverted)

	_, err = tok.Approve(ctx, alice, bob.Address, big.NewInt(5))
	require.NoError(t, err)
	_, err = tok.TransferFrom(ctx, bob, alice.Address, bob.Address, big.NewInt(5))
	require.NoError(t, err)
	allowance, err := tok.Allowance(ctx, alice.Address, bob.Address)
	require.NoError(t, err)
	require.Zero(t, allowance.Sign())
}

func TestCallDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	alice := newAccount(t)
	tok := newToken(t, b, alice, "USDC", 6)

	input, err := bindings.MustABI(bindings.MintableERC20).Pack("mint", big.NewInt(50))
	require.NoError(t, err)
	_, err = b.Call(ctx, alice.Address, tok.Address(), input)
	require.NoError(t, err)

	bal, err := tok.BalanceOf(ctx, alice.Address)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())
}

func TestTransactAsNeedsImpersonation(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	whale, alice := newAccount(t), newAccount(t)
	tok := newToken(t, b, whale, "USDC", 6)
	_, err := tok.Mint(ctx, whale, big.NewInt(100))
	require.NoError(t, err)

	input, err := bindings.MustABI(bindings.MintableERC20).Pack("transfer", alice.Address, big.NewInt(1))
	require.NoError(t, err)
	_, err = b.TransactAs(ctx, whale.Address, tok.Address(), input)
	require.ErrorIs(t, err, ErrNotImpersonated)

	_, err = tok.TransferAs(ctx, whale.Address, alice.Address, big.NewInt(60))
	require.NoError(t, err)
	bal, err := tok.BalanceOf(ctx, alice.Address)
	require.NoError(t, err)
	require.Equal(t, int64(60), bal.Int64())
}

func TestTransactRequiresSigner(t *testing.T) {
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	_, err := b.Transact(context.Background(), chain.Account{Address: common.HexToAddress("0x01")}, common.Address{}, nil)
	require.ErrorIs(t, err, chain.ErrMissingSigner)
}

func TestProviderProxies(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	owner, stranger := newAccount(t), newAccount(t)

	providerAddr := deploy(t, b, owner, bindings.LendingPoolAddressesProvider, nil, "Main Market")
	provider, err := bindings.BindAddressesProvider(ctx, providerAddr, b)
	require.NoError(t, err)

	pool, err := provider.Get(ctx, bindings.RoleTokenSwap)
	require.NoError(t, err)
	require.Equal(t, common.Address{}, pool, "unset roles read as zero")

	impl := deploy(t, b, owner, bindings.TokenSwap, nil)
	_, err = provider.SetImpl(ctx, stranger, bindings.RoleTokenSwap, impl)
	reason, _ := chain.RevertReason(err)
	require.Equal(t, errNotOwner, reason)

	_, err = provider.SetImpl(ctx, owner, bindings.RoleTokenSwap, impl)
	require.NoError(t, err)
	proxy, err := provider.Get(ctx, bindings.RoleTokenSwap)
	require.NoError(t, err)
	require.NotEqual(t, impl, proxy)
	require.Equal(t, crypto.CreateAddress(providerAddr, 1), proxy)

	swap, err := bindings.Bind(ctx, bindings.TokenSwap, proxy, b)
	require.NoError(t, err)
	_, err = swap.Transact(ctx, owner, "initialize", providerAddr)
	reason, _ = chain.RevertReason(err)
	require.Equal(t, errAlreadyInitialized, reason)

	// upgrades keep the proxy, a different contract type is refused
	next := deploy(t, b, owner, bindings.TokenSwap, nil)
	_, err = provider.SetImpl(ctx, owner, bindings.RoleTokenSwap, next)
	require.NoError(t, err)
	again, err := provider.Get(ctx, bindings.RoleTokenSwap)
	require.NoError(t, err)
	require.Equal(t, proxy, again)

	other := deploy(t, b, owner, bindings.YieldFarmingPool, nil)
	_, err = provider.SetImpl(ctx, owner, bindings.RoleTokenSwap, other)
	require.ErrorIs(t, err, chain.ErrReverted)

	market, err := provider.MarketID(ctx)
	require.NoError(t, err)
	require.Equal(t, "Main Market", market)
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	owner := newAccount(t)
	provider := deploy(t, b, owner, bindings.LendingPoolAddressesProvider, nil, "Main Market")
	registryAddr := deploy(t, b, owner, bindings.LendingPoolAddressesProviderRegistry, nil)
	registry, err := bindings.BindRegistry(ctx, registryAddr, b)
	require.NoError(t, err)

	_, err = registry.Register(ctx, owner, provider, 0)
	require.ErrorIs(t, err, chain.ErrReverted)

	_, err = registry.Register(ctx, owner, provider, 1)
	require.NoError(t, err)
	list, err := registry.Providers(ctx)
	require.NoError(t, err)
	require.Equal(t, []common.Address{provider}, list)
	id, err := registry.ProviderID(ctx, provider)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
}

func TestSwapAtOraclePrices(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	owner := newAccount(t)
	usdc := newToken(t, b, owner, "USDC", 6)
	aave := newToken(t, b, owner, "AAVE", 18)

	oracleAddr := deploy(t, b, owner, bindings.PriceOracle, nil)
	oracle, err := bindings.BindFallbackOracle(ctx, oracleAddr, b)
	require.NoError(t, err)
	_, err = oracle.SetAssetPrice(ctx, owner, usdc.Address(), big.NewInt(1e15))
	require.NoError(t, err)
	_, err = oracle.SetAssetPrice(ctx, owner, aave.Address(), big.NewInt(1e17))
	require.NoError(t, err)

	providerAddr := deploy(t, b, owner, bindings.LendingPoolAddressesProvider, nil, "Main Market")
	provider, err := bindings.BindAddressesProvider(ctx, providerAddr, b)
	require.NoError(t, err)
	_, err = provider.SetPriceOracle(ctx, owner, oracleAddr)
	require.NoError(t, err)
	_, err = provider.SetImpl(ctx, owner, bindings.RoleTokenSwap, deploy(t, b, owner, bindings.TokenSwap, nil))
	require.NoError(t, err)
	swapAddr, err := provider.Get(ctx, bindings.RoleTokenSwap)
	require.NoError(t, err)
	swap, err := bindings.BindSwapper(ctx, swapAddr, b)
	require.NoError(t, err)

	// 100 USDC at 1e15 is worth 1 AAVE at 1e17
	hundred := big.NewInt(100_000_000)
	out, err := swap.AmountOut(ctx, usdc.Address(), aave.Address(), hundred)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1e18), out)

	_, err = usdc.Mint(ctx, owner, hundred)
	require.NoError(t, err)
	_, err = usdc.Approve(ctx, owner, swapAddr, hundred)
	require.NoError(t, err)
	_, err = swap.Swap(ctx, owner, usdc.Address(), aave.Address(), hundred, common.Big1, owner.Address)
	reason, _ := chain.RevertReason(err)
	require.Equal(t, "INSUFFICIENT_LIQUIDITY", reason)

	_, err = aave.Mint(ctx, owner, big.NewInt(1e18))
	require.NoError(t, err)
	_, err = aave.Transfer(ctx, owner, swapAddr, big.NewInt(1e18))
	require.NoError(t, err)
	_, err = swap.Swap(ctx, owner, usdc.Address(), aave.Address(), hundred, big.NewInt(2e18), owner.Address)
	reason, _ = chain.RevertReason(err)
	require.Equal(t, "INSUFFICIENT_OUTPUT_AMOUNT", reason)

	_, err = swap.Swap(ctx, owner, usdc.Address(), aave.Address(), hundred, common.Big1, owner.Address)
	require.NoError(t, err)
	bal, err := aave.BalanceOf(ctx, owner.Address)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1e18), bal)
}

func TestWevestOracleFallback(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	owner := newAccount(t)
	usdc := newToken(t, b, owner, "USDC", 6)
	aave := newToken(t, b, owner, "AAVE", 18)
	weth := deploy(t, b, owner, bindings.WETH9Mocked, nil)

	fallback := deploy(t, b, owner, bindings.PriceOracle, nil)
	fb, err := bindings.BindFallbackOracle(ctx, fallback, b)
	require.NoError(t, err)
	_, err = fb.SetAssetPrice(ctx, owner, aave.Address(), big.NewInt(42))
	require.NoError(t, err)
	agg := deploy(t, b, owner, bindings.MockAggregator, nil, big.NewInt(7))

	art, err := Artifacts().Artifact(bindings.WevestOracle)
	require.NoError(t, err)
	code, err := art.DeployData(nil, []common.Address{usdc.Address()}, []common.Address{}, fallback, weth, big.NewInt(1e18))
	require.NoError(t, err)
	_, _, err = b.Deploy(ctx, owner, code)
	reason, _ := chain.RevertReason(err)
	require.Equal(t, "INCONSISTENT_PARAMS_LENGTH", reason)

	addr := deploy(t, b, owner, bindings.WevestOracle, nil,
		[]common.Address{usdc.Address()}, []common.Address{agg}, fallback, weth, big.NewInt(1e18))
	oracle, err := bindings.BindCompositeOracle(ctx, addr, b)
	require.NoError(t, err)

	for asset, want := range map[common.Address]int64{
		usdc.Address(): 7,
		aave.Address(): 42,
		weth:           1e18,
	} {
		price, err := oracle.AssetPrice(ctx, asset)
		require.NoError(t, err)
		require.Equal(t, want, price.Int64())
	}
}

func TestVaultShares(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(testlog.Logger(t, log.LevelDebug))
	owner := newAccount(t)
	aave := newToken(t, b, owner, "AAVE", 18)
	vaultAddr := deploy(t, b, owner, bindings.MockVault, nil, aave.Address(), "yearn AAVE", "yvAAVE")
	vault, err := bindings.Bind(ctx, bindings.MockVault, vaultAddr, b)
	require.NoError(t, err)

	_, err = aave.Mint(ctx, owner, big.NewInt(3000))
	require.NoError(t, err)
	_, err = aave.Approve(ctx, owner, vaultAddr, big.NewInt(1000))
	require.NoError(t, err)
	_, err = vault.Transact(ctx, owner, "deposit", big.NewInt(1000))
	require.NoError(t, err)

	// yield doubles the assets behind every share
	_, err = aave.Transfer(ctx, owner, vaultAddr, big.NewInt(1000))
	require.NoError(t, err)
	pps, err := vault.CallBig(ctx, "pricePerShare")
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18)), pps)

	_, err = vault.Transact(ctx, owner, "withdraw", big.NewInt(500))
	require.NoError(t, err)
	bal, err := aave.BalanceOf(ctx, owner.Address)
	require.NoError(t, err)
	require.Equal(t, int64(2000), bal.Int64())
}
