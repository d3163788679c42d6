package dsl

import (
	"errors"
	"math/big"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/state"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

// Market drives a deployed lending market on behalf of users, asserting
// that every action succeeds and has the expected effect.
type Market struct {
	common

	market  stack.Market
	backend chain.Backend

	provider     *bindings.AddressesProvider
	pool         *bindings.Pool
	configurator *bindings.Configurator
	dataProvider *bindings.DataProvider
	yieldFarming *bindings.YieldFarming
	swapper      *bindings.Swapper
}

func newMarket(c common, market stack.Market, backend chain.Backend) *Market {
	st := market.Deployment()
	m := &Market{common: c, market: market, backend: backend}
	ctx, cancel := m.timeout()
	defer cancel()

	var err error
	m.provider, err = bindings.BindAddressesProvider(ctx, st.Addresses.AddressesProvider, backend)
	m.require.NoError(err, "failed to bind addresses provider")
	m.pool, err = bindings.BindPool(ctx, st.Addresses.LendingPool, backend)
	m.require.NoError(err, "failed to bind lending pool")
	m.configurator, err = bindings.BindConfigurator(ctx, st.Addresses.Configurator, backend)
	m.require.NoError(err, "failed to bind configurator")
	m.dataProvider, err = bindings.BindDataProvider(ctx, st.Addresses.DataProvider, backend)
	m.require.NoError(err, "failed to bind data provider")
	m.yieldFarming, err = bindings.BindYieldFarming(ctx, st.Addresses.YieldFarmingPool, backend)
	m.require.NoError(err, "failed to bind yield farming pool")
	m.swapper, err = bindings.BindSwapper(ctx, st.Addresses.TokenSwap, backend)
	m.require.NoError(err, "failed to bind token swap")
	return m
}

func (m *Market) Deployment() *state.Deployment {
	return m.market.Deployment()
}

func (m *Market) Config() *config.Market {
	return m.market.Config()
}

func (m *Market) Provider() *bindings.AddressesProvider {
	return m.provider
}

func (m *Market) Pool() *bindings.Pool {
	return m.pool
}

func (m *Market) Configurator() *bindings.Configurator {
	return m.configurator
}

func (m *Market) DataProvider() *bindings.DataProvider {
	return m.dataProvider
}

func (m *Market) YieldFarming() *bindings.YieldFarming {
	return m.yieldFarming
}

func (m *Market) Swapper() *bindings.Swapper {
	return m.swapper
}

// Reserve is the deployment record of the reserve of symbol.
func (m *Market) Reserve(symbol string) state.Reserve {
	r, ok := m.Deployment().Reserve(symbol)
	m.require.True(ok, "reserve %s must exist", symbol)
	return *r
}

func (m *Market) token(addr gethcommon.Address) *bindings.ERC20 {
	ctx, cancel := m.timeout()
	defer cancel()
	tok, err := bindings.BindERC20(ctx, addr, m.backend)
	m.require.NoError(err, "failed to bind token %s", addr)
	return tok
}

// Asset is the underlying token of the reserve of symbol.
func (m *Market) Asset(symbol string) *bindings.ERC20 {
	return m.token(m.Reserve(symbol).Asset)
}

func (m *Market) WvToken(symbol string) *bindings.ERC20 {
	return m.token(m.Reserve(symbol).WvToken)
}

func (m *Market) DebtToken(symbol string) *bindings.ERC20 {
	return m.token(m.Reserve(symbol).DebtToken)
}

func (m *Market) Vault(symbol string) *bindings.Vault {
	ctx, cancel := m.timeout()
	defer cancel()
	v, err := bindings.BindVault(ctx, m.Reserve(symbol).Vault, m.backend)
	m.require.NoError(err, "failed to bind vault of %s", symbol)
	return v
}

// Units converts a decimal amount into base units of the asset of symbol.
func (m *Market) Units(symbol string, amount string) *big.Int {
	v, err := ParseUnits(amount, m.Reserve(symbol).Decimals)
	m.require.NoError(err)
	return v
}

func (m *Market) balance(tok *bindings.ERC20, holder gethcommon.Address) *big.Int {
	ctx, cancel := m.timeout()
	defer cancel()
	bal, err := tok.BalanceOf(ctx, holder)
	m.require.NoError(err, "failed to read balance of %s", holder)
	return bal
}

func (m *Market) supply(tok *bindings.ERC20) *big.Int {
	ctx, cancel := m.timeout()
	defer cancel()
	supply, err := tok.TotalSupply(ctx)
	m.require.NoError(err, "failed to read total supply of %s", tok.Address())
	return supply
}

// Balance is the asset balance of holder.
func (m *Market) Balance(symbol string, holder gethcommon.Address) *big.Int {
	return m.balance(m.Asset(symbol), holder)
}

// Fund gives user amount of the asset. Mock assets are minted, existing
// assets are sent by the whale of the market config.
func (m *Market) Fund(user *User, symbol string, amount *big.Int) {
	ctx, cancel := m.timeout()
	defer cancel()
	r := m.Reserve(symbol)
	asset := m.Asset(symbol)
	before := m.balance(asset, user.Address())
	if r.Mock {
		_, err := asset.Mint(ctx, user.Account(), amount)
		m.require.NoError(err, "failed to mint %s to %s", symbol, user)
	} else {
		whale := m.Config().Whale
		m.require.NotEqual(gethcommon.Address{}, whale, "market has no whale to fund %s", symbol)
		_, err := asset.TransferAs(ctx, whale, user.Address(), amount)
		m.require.NoError(err, "failed to send %s from whale %s", symbol, whale)
	}
	m.require.Equal(new(big.Int).Add(before, amount), m.balance(asset, user.Address()), "funded balance")
	m.log.Info("Funded user", "user", user, "asset", symbol, "amount", amount)
}

func (m *Market) approve(user *User, tok *bindings.ERC20, spender gethcommon.Address, amount *big.Int) {
	ctx, cancel := m.timeout()
	defer cancel()
	_, err := tok.Approve(ctx, user.Account(), spender, amount)
	m.require.NoError(err, "failed to approve %s", spender)
}

func (m *Market) TryDeposit(user *User, symbol string, amount *big.Int) error {
	ctx, cancel := m.timeout()
	defer cancel()
	m.approve(user, m.Asset(symbol), m.Deployment().Addresses.LendingPool, amount)
	_, err := m.pool.Deposit(ctx, user.Account(), m.Reserve(symbol).Asset, amount)
	return err
}

// Deposit supplies amount of the asset and checks that exactly amount of wvTokens were minted to user.
func (m *Market) Deposit(user *User, symbol string, amount *big.Int) {
	wv := m.WvToken(symbol)
	balance, supply := m.balance(wv, user.Address()), m.supply(wv)
	m.require.NoError(m.TryDeposit(user, symbol, amount), "%s failed to deposit %s %s", user, amount, symbol)
	m.require.Equal(new(big.Int).Add(balance, amount), m.balance(wv, user.Address()), "wvToken balance after deposit")
	m.require.Equal(new(big.Int).Add(supply, amount), m.supply(wv), "wvToken supply after deposit")
	m.log.Info("Deposited", "user", user, "asset", symbol, "amount", amount)
}

func (m *Market) TryWithdraw(user *User, symbol string, amount *big.Int) error {
	ctx, cancel := m.timeout()
	defer cancel()
	_, err := m.pool.Withdraw(ctx, user.Account(), m.Reserve(symbol).Asset, amount)
	return err
}

// Withdraw redeems amount of wvTokens for the asset.
func (m *Market) Withdraw(user *User, symbol string, amount *big.Int) {
	wv, asset := m.WvToken(symbol), m.Asset(symbol)
	balance, held := m.balance(wv, user.Address()), m.balance(asset, user.Address())
	m.require.NoError(m.TryWithdraw(user, symbol, amount), "%s failed to withdraw %s %s", user, amount, symbol)
	m.require.Equal(new(big.Int).Sub(balance, amount), m.balance(wv, user.Address()), "wvToken balance after withdraw")
	m.require.Equal(new(big.Int).Add(held, amount), m.balance(asset, user.Address()), "asset balance after withdraw")
}

// WithdrawAll redeems the full wvToken balance of user.
func (m *Market) WithdrawAll(user *User, symbol string) {
	wv, asset := m.WvToken(symbol), m.Asset(symbol)
	balance, held := m.balance(wv, user.Address()), m.balance(asset, user.Address())
	m.require.NoError(m.TryWithdraw(user, symbol, math.MaxBig256), "%s failed to withdraw all %s", user, symbol)
	m.require.Zero(m.balance(wv, user.Address()).Sign(), "wvToken balance after full withdraw")
	m.require.Equal(new(big.Int).Add(held, balance), m.balance(asset, user.Address()), "asset balance after full withdraw")
}

type BorrowConfig struct {
	// Collateral is the symbol of the asset the borrowed funds are swapped into.
	Collateral string
	Mode       bindings.LeverageRatioMode
}

func WithCollateral(symbol string) func(cfg *BorrowConfig) {
	return func(cfg *BorrowConfig) {
		cfg.Collateral = symbol
	}
}

func WithLeverage(mode bindings.LeverageRatioMode) func(cfg *BorrowConfig) {
	return func(cfg *BorrowConfig) {
		cfg.Mode = mode
	}
}

func (m *Market) TryBorrow(user *User, symbol string, margin *big.Int, opts ...func(cfg *BorrowConfig)) error {
	cfg := applyOpts(BorrowConfig{Mode: bindings.LeverageOne}, opts...)
	if cfg.Collateral == "" {
		return errors.New("borrow needs a collateral asset")
	}
	ctx, cancel := m.timeout()
	defer cancel()
	m.approve(user, m.Asset(symbol), m.Deployment().Addresses.LendingPool, margin)
	_, err := m.pool.Borrow(ctx, user.Account(), m.Reserve(symbol).Asset, margin, m.Reserve(cfg.Collateral).Asset, cfg.Mode)
	return err
}

// Borrow opens a leveraged position: margin of the asset is taken from user,
// margin times the leverage is borrowed, and the sum is swapped into the
// collateral, which the yield farming pool holds.
func (m *Market) Borrow(user *User, symbol string, margin *big.Int, opts ...func(cfg *BorrowConfig)) {
	cfg := applyOpts(BorrowConfig{Mode: bindings.LeverageOne}, opts...)
	m.require.NotEmpty(cfg.Collateral, "borrow needs a collateral asset")
	debtToken, collateral := m.DebtToken(symbol), m.Asset(cfg.Collateral)
	farm := m.Deployment().Addresses.YieldFarmingPool

	debtBefore := m.balance(debtToken, user.Address())
	heldBefore := m.balance(collateral, farm)
	posBefore := m.Position(user, cfg.Collateral, symbol)

	m.require.NoError(m.TryBorrow(user, symbol, margin, opts...), "%s failed to borrow %s %s at %s", user, margin, symbol, cfg.Mode)

	debt, ok := cfg.Mode.Apply(margin)
	m.require.True(ok, "unknown leverage %s", cfg.Mode)
	m.require.Equal(new(big.Int).Add(debtBefore, debt), m.balance(debtToken, user.Address()), "debt after borrow")

	pos := m.Position(user, cfg.Collateral, symbol)
	bought := new(big.Int).Sub(pos.CollateralAmount, posBefore.CollateralAmount)
	m.require.Positive(bought.Sign(), "borrow must buy collateral")
	m.require.Equal(new(big.Int).Add(heldBefore, bought), m.balance(collateral, farm), "collateral held by the yield farming pool")
	m.log.Info("Borrowed", "user", user, "asset", symbol, "margin", margin, "debt", debt, "collateral", cfg.Collateral, "bought", bought)
}

func (m *Market) TryRedeem(user *User, collateral, debt string, amount *big.Int) error {
	ctx, cancel := m.timeout()
	defer cancel()
	_, err := m.pool.Redeem(ctx, user.Account(), m.Reserve(collateral).Asset, m.Reserve(debt).Asset, amount)
	return err
}

// Redeem closes amount of the collateral of a position, all of it when amount is nil,
// and checks that the matching debt was burned.
func (m *Market) Redeem(user *User, collateral, debt string, amount *big.Int) {
	debtToken := m.DebtToken(debt)
	before := m.Position(user, collateral, debt)
	debtBefore := m.balance(debtToken, user.Address())

	m.require.NoError(m.TryRedeem(user, collateral, debt, amount), "%s failed to redeem %s/%s", user, collateral, debt)

	after := m.Position(user, collateral, debt)
	repaid := new(big.Int).Sub(before.DebtAmount, after.DebtAmount)
	m.require.Equal(new(big.Int).Sub(debtBefore, repaid), m.balance(debtToken, user.Address()), "debt burned on redeem")
	if amount == nil {
		m.require.Zero(after.CollateralAmount.Sign(), "full redeem closes the position")
		m.require.Zero(after.DebtAmount.Sign(), "full redeem repays the debt")
	}
	m.log.Info("Redeemed", "user", user, "collateral", collateral, "debt", debt, "repaid", repaid)
}

func (m *Market) Position(user *User, collateral, debt string) bindings.Position {
	ctx, cancel := m.timeout()
	defer cancel()
	pos, err := m.pool.Position(ctx, user.Address(), m.Reserve(collateral).Asset, m.Reserve(debt).Asset)
	m.require.NoError(err, "failed to read position")
	return pos
}

func (m *Market) UserReserveData(user *User, symbol string) bindings.UserReserveData {
	ctx, cancel := m.timeout()
	defer cancel()
	data, err := m.dataProvider.UserReserveData(ctx, m.Reserve(symbol).Asset, user.Address())
	m.require.NoError(err, "failed to read user reserve data")
	return data
}

// FarmDeposit moves amount of the asset held by the yield farming pool into the vault of the reserve.
func (m *Market) FarmDeposit(user *User, symbol string, amount *big.Int) {
	ctx, cancel := m.timeout()
	defer cancel()
	r := m.Reserve(symbol)
	before := m.FarmBalance(symbol)
	_, err := m.yieldFarming.Deposit(ctx, user.Account(), r.Vault, r.Asset, amount)
	m.require.NoError(err, "failed to deposit %s into vault %s", symbol, r.Vault)
	m.require.Equal(new(big.Int).Add(before, amount), m.FarmBalance(symbol), "vault balance of the yield farming pool")
}

// FarmBalance is the value the yield farming pool holds in the vault of the reserve.
func (m *Market) FarmBalance(symbol string) *big.Int {
	ctx, cancel := m.timeout()
	defer cancel()
	bal, err := m.yieldFarming.CurrentBalance(ctx, m.Reserve(symbol).Vault)
	m.require.NoError(err, "failed to read vault balance")
	return bal
}

// Quote is what a swap of amountIn would return.
func (m *Market) Quote(in, out string, amountIn *big.Int) *big.Int {
	ctx, cancel := m.timeout()
	defer cancel()
	q, err := m.swapper.AmountOut(ctx, m.Reserve(in).Asset, m.Reserve(out).Asset, amountIn)
	m.require.NoError(err, "failed to quote %s to %s", in, out)
	return q
}

// Swap trades amountIn of in for out at the quoted price and returns the amount received.
func (m *Market) Swap(user *User, in, out string, amountIn *big.Int) *big.Int {
	quote := m.Quote(in, out, amountIn)
	outToken := m.Asset(out)
	before := m.balance(outToken, user.Address())
	m.approve(user, m.Asset(in), m.Deployment().Addresses.TokenSwap, amountIn)

	ctx, cancel := m.timeout()
	defer cancel()
	_, err := m.swapper.Swap(ctx, user.Account(), m.Reserve(in).Asset, m.Reserve(out).Asset, amountIn, quote, user.Address())
	m.require.NoError(err, "%s failed to swap %s %s to %s", user, amountIn, in, out)
	got := new(big.Int).Sub(m.balance(outToken, user.Address()), before)
	m.require.Equal(quote, got, "swap output")
	return got
}

// Price is the price of the asset in the oracle installed in the directory.
func (m *Market) Price(symbol string) *big.Int {
	ctx, cancel := m.timeout()
	defer cancel()
	installed, err := m.provider.PriceOracle(ctx)
	m.require.NoError(err, "failed to read price oracle")
	asset := m.Reserve(symbol).Asset
	var price *big.Int
	if installed == m.Deployment().Addresses.WevestOracle {
		oracle, err := bindings.BindCompositeOracle(ctx, installed, m.backend)
		m.require.NoError(err)
		price, err = oracle.AssetPrice(ctx, asset)
		m.require.NoError(err)
	} else {
		oracle, err := bindings.BindFallbackOracle(ctx, installed, m.backend)
		m.require.NoError(err)
		price, err = oracle.AssetPrice(ctx, asset)
		m.require.NoError(err)
	}
	return price
}

// RequireReverted asserts that err is a revert with the given reason.
func (m *Market) RequireReverted(err error, reason string) {
	m.require.ErrorIs(err, chain.ErrReverted)
	got, ok := chain.RevertReason(err)
	m.require.True(ok, "revert without a reason: %v", err)
	m.require.Equal(reason, got)
}
