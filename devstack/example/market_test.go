package example

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/devstack/dsl"
	"github.com/wevest/wevest-devstack/devstack/presets"
)

func TestDepositAndWithdraw(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	m, alice := sys.Market, sys.Users[0]

	amount := m.Units("USDC", "100")
	require.Equal(t, big.NewInt(100_000_000), amount)
	m.Fund(alice, "USDC", amount)
	m.Deposit(alice, "USDC", amount)

	data := m.UserReserveData(alice, "USDC")
	require.Equal(t, amount, data.CurrentWvTokenBalance)
	require.True(t, data.UsageAsCollateralEnabled)

	m.WithdrawAll(alice, "USDC")
	require.Equal(t, amount, m.Balance("USDC", alice.Address()))
	require.False(t, m.UserReserveData(alice, "USDC").UsageAsCollateralEnabled)
}

func TestWithdrawMoreThanDeposited(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	m, alice := sys.Market, sys.Users[0]

	m.Fund(alice, "USDC", m.Units("USDC", "10"))
	m.Deposit(alice, "USDC", m.Units("USDC", "10"))
	m.RequireReverted(m.TryWithdraw(alice, "USDC", m.Units("USDC", "11")), "NOT_ENOUGH_AVAILABLE_USER_BALANCE")
}

func TestLeveragedBorrow(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	m, alice, lp := sys.Market, sys.Users[0], sys.Users[1]

	m.Fund(lp, "USDC", m.Units("USDC", "1000"))
	m.Deposit(lp, "USDC", m.Units("USDC", "1000"))

	margin := m.Units("USDC", "100")
	m.Fund(alice, "USDC", margin)
	m.Borrow(alice, "USDC", margin, dsl.WithCollateral("AAVE"), dsl.WithLeverage(bindings.LeverageThree))

	pos := m.Position(alice, "AAVE", "USDC")
	require.Equal(t, m.Units("USDC", "300"), pos.DebtAmount)
	require.Equal(t, margin, pos.MarginAmount)
	require.Equal(t, m.Quote("USDC", "AAVE", m.Units("USDC", "400")), pos.CollateralAmount)
	require.Equal(t, pos.CollateralAmount, m.Balance("AAVE", m.Deployment().Addresses.YieldFarmingPool))
	require.Zero(t, m.Balance("USDC", alice.Address()).Sign(), "margin is taken")
}

func TestBorrowNeedsLiquidity(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	m, alice := sys.Market, sys.Users[0]

	margin := m.Units("USDC", "100")
	m.Fund(alice, "USDC", margin)
	err := m.TryBorrow(alice, "USDC", margin, dsl.WithCollateral("AAVE"), dsl.WithLeverage(bindings.LeverageTwo))
	m.RequireReverted(err, "NOT_ENOUGH_LIQUIDITY")
}

func TestRedeemRepaysDebt(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	m, alice, lp := sys.Market, sys.Users[0], sys.Users[1]

	m.Fund(lp, "USDC", m.Units("USDC", "1000"))
	m.Deposit(lp, "USDC", m.Units("USDC", "1000"))
	m.Fund(alice, "USDC", m.Units("USDC", "50"))
	m.Borrow(alice, "USDC", m.Units("USDC", "50"), dsl.WithCollateral("AAVE"), dsl.WithLeverage(bindings.LeverageTwo))

	wv := m.Reserve("USDC").WvToken
	before := m.Balance("USDC", wv)
	pos := m.Position(alice, "AAVE", "USDC")

	half := new(big.Int).Rsh(pos.CollateralAmount, 1)
	m.Redeem(alice, "AAVE", "USDC", half)
	m.Redeem(alice, "AAVE", "USDC", nil)

	require.Equal(t, new(big.Int).Add(before, pos.DebtAmount), m.Balance("USDC", wv), "debt returns to the reserve")
	require.Positive(t, m.Balance("USDC", alice.Address()).Sign(), "rest is paid out")
	m.RequireReverted(m.TryRedeem(alice, "AAVE", "USDC", nil), "NO_OPEN_POSITION")
}

func TestYieldFarmingDeposit(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	m, alice, lp := sys.Market, sys.Users[0], sys.Users[1]

	m.Fund(lp, "USDC", m.Units("USDC", "1000"))
	m.Deposit(lp, "USDC", m.Units("USDC", "1000"))
	m.Fund(alice, "USDC", m.Units("USDC", "100"))
	m.Borrow(alice, "USDC", m.Units("USDC", "100"), dsl.WithCollateral("AAVE"))

	held := m.Position(alice, "AAVE", "USDC").CollateralAmount
	require.Zero(t, m.FarmBalance("AAVE").Sign())
	m.FarmDeposit(alice, "AAVE", held)
	require.Equal(t, held, m.FarmBalance("AAVE"))

	// the position can still be closed from the vault
	m.Redeem(alice, "AAVE", "USDC", nil)
}

func TestSwapAtOraclePrices(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	m, alice := sys.Market, sys.Users[0]
	cfg := m.Config()

	usdc, ok := cfg.Reserve("USDC")
	require.True(t, ok)
	aave, ok := cfg.Reserve("AAVE")
	require.True(t, ok)

	in := m.Units("USDC", "10")
	want := new(big.Int).Mul(in, usdc.Price.Int)
	want.Div(want, big.NewInt(1e6))
	want.Mul(want, big.NewInt(1e18))
	want.Div(want, aave.Price.Int)

	m.Fund(alice, "USDC", in)
	require.Equal(t, want, m.Swap(alice, "USDC", "AAVE", in))
	require.Zero(t, m.Balance("USDC", alice.Address()).Sign())
}

func TestOraclePrices(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	for _, r := range sys.Market.Config().Reserves {
		require.Equal(t, r.Price.Int, sys.Market.Price(r.Symbol), r.Symbol)
	}
}

func TestCompositeOracleMarket(t *testing.T) {
	cfg := config.DefaultSimMarket()
	cfg.Oracle = config.OracleComposite
	sys := presets.NewLendingMarketWithConfig(t, cfg)
	require.Equal(t, sys.Market.Deployment().Addresses.WevestOracle, sys.Market.Deployment().Addresses.PriceOracle)
	for _, r := range cfg.Reserves {
		require.Equal(t, r.Price.Int, sys.Market.Price(r.Symbol), r.Symbol)
	}
}

func TestFixture(t *testing.T) {
	sys := presets.NewLendingMarket(t)
	st := sys.Market.Deployment()
	require.True(t, st.Ready())
	require.Equal(t, sys.Deployer.Address(), st.Deployer)
	require.Equal(t, sys.EmergencyAdmin.Address(), st.EmergencyAdmin)
	require.Len(t, sys.Users, 3)

	proxies := map[string]bool{}
	for _, addr := range []string{
		st.Addresses.LendingPool.Hex(),
		st.Addresses.Configurator.Hex(),
		st.Addresses.TokenSwap.Hex(),
		st.Addresses.YieldFarmingPool.Hex(),
	} {
		require.False(t, proxies[addr], "proxy %s is shared", addr)
		proxies[addr] = true
	}

	for _, symbol := range []string{"USDC", "AAVE"} {
		wv := sys.Market.WvToken(symbol)
		got, err := wv.Symbol(context.Background())
		require.NoError(t, err)
		require.Equal(t, "wv"+symbol, got)
		require.Equal(t, wv.Address(), sys.Market.WvToken(symbol).Address(), "lookup is stable")
	}
}

type marketSuite struct {
	suite.Suite
	sys *presets.LendingMarket
}

func (s *marketSuite) SetupTest() {
	s.sys = presets.NewLendingMarket(s.T())
}

func (s *marketSuite) TestFreshMarketIsEmpty() {
	m := s.sys.Market
	for _, symbol := range []string{"USDC", "AAVE"} {
		s.Zero(m.FarmBalance(symbol).Sign())
		for _, u := range s.sys.Users {
			s.Zero(m.UserReserveData(u, symbol).CurrentWvTokenBalance.Sign())
		}
	}
}

func (s *marketSuite) TestDepositsAccumulate() {
	m := s.sys.Market
	total := new(big.Int)
	for _, u := range s.sys.Users {
		amt := m.Units("AAVE", "1.5")
		m.Fund(u, "AAVE", amt)
		m.Deposit(u, "AAVE", amt)
		total.Add(total, amt)
	}
	s.Equal(total, m.Balance("AAVE", m.Reserve("AAVE").WvToken))
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(marketSuite))
}
