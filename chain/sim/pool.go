package sim

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/wevest/wevest-devstack/bindings"
)

const errAlreadyInitialized = "Contract instance has already been initialized"

type reserve struct {
	wvToken          common.Address
	debtToken        common.Address
	vault            common.Address
	strategy         common.Address
	decimals         uint8
	borrowingEnabled bool
	id               uint8
}

type userAsset struct {
	user, asset common.Address
}

type positionKey struct {
	user, collateral, debt common.Address
}

type position struct {
	collateral uint256.Int
	margin     uint256.Int
	debt       uint256.Int
}

type lendingPool struct {
	provider    common.Address
	initialized bool

	reserves   map[common.Address]reserve
	list       []common.Address
	collateral map[userAsset]bool
	positions  map[positionKey]position
}

func (p *lendingPool) reserve(asset common.Address) (reserve, error) {
	r, ok := p.reserves[asset]
	if !ok {
		return reserve{}, revert("RESERVE_NOT_INITIALIZED")
	}
	return r, nil
}

func (p *lendingPool) onlyConfigurator(e *Env) error {
	configurator, err := providerOf(e, p.provider, "getLendingPoolConfigurator")
	if err != nil {
		return err
	}
	if e.sender != configurator {
		return revert("CALLER_NOT_LENDING_POOL_CONFIGURATOR")
	}
	return nil
}

func initializer[S any](initialized func(*S) *bool, provider func(*S) *common.Address) method[S] {
	return func(e *Env, st *S, args []any) ([]any, error) {
		if *initialized(st) {
			return nil, revert(errAlreadyInitialized)
		}
		setField(e, initialized(st), true)
		setField(e, provider(st), argAddress(args, 0))
		return nil, nil
	}
}

func lendingPoolKind() *kind {
	return define[lendingPool](bindings.LendingPool, []string{bindings.ReserveLogic, bindings.ValidationLogic},
		func() *lendingPool {
			return &lendingPool{
				reserves:   make(map[common.Address]reserve),
				collateral: make(map[userAsset]bool),
				positions:  make(map[positionKey]position),
			}
		},
		nil,
		map[string]method[lendingPool]{
			"initialize": initializer(
				func(p *lendingPool) *bool { return &p.initialized },
				func(p *lendingPool) *common.Address { return &p.provider },
			),
			"getAddressesProvider": func(e *Env, st *lendingPool, args []any) ([]any, error) {
				return ret(st.provider)
			},
			"initReserve":         poolInitReserve,
			"setBorrowingEnabled": poolSetBorrowingEnabled,
			"deposit":             poolDeposit,
			"withdraw":            poolWithdraw,
			"borrow":              poolBorrow,
			"redeem": func(e *Env, st *lendingPool, args []any) ([]any, error) {
				return poolRedeem(e, st, argAddress(args, 0), argAddress(args, 1), new(uint256.Int))
			},
			"redeem0": func(e *Env, st *lendingPool, args []any) ([]any, error) {
				return poolRedeem(e, st, argAddress(args, 0), argAddress(args, 1), argU256(args, 2))
			},
			"getReservesList": func(e *Env, st *lendingPool, args []any) ([]any, error) {
				out := make([]common.Address, len(st.list))
				copy(out, st.list)
				return ret(out)
			},
			"getReserveData": func(e *Env, st *lendingPool, args []any) ([]any, error) {
				r := st.reserves[argAddress(args, 0)]
				return ret(r.wvToken, r.debtToken, r.vault, r.strategy, r.decimals, r.borrowingEnabled, r.id)
			},
			"isUsingAsCollateral": func(e *Env, st *lendingPool, args []any) ([]any, error) {
				return ret(st.collateral[userAsset{argAddress(args, 0), argAddress(args, 1)}])
			},
			"getPosition": func(e *Env, st *lendingPool, args []any) ([]any, error) {
				p := st.positions[positionKey{argAddress(args, 0), argAddress(args, 1), argAddress(args, 2)}]
				return ret(p.collateral.ToBig(), p.margin.ToBig(), p.debt.ToBig())
			},
		},
	)
}

func poolInitReserve(e *Env, st *lendingPool, args []any) ([]any, error) {
	if err := st.onlyConfigurator(e); err != nil {
		return nil, err
	}
	asset := argAddress(args, 0)
	if _, ok := st.reserves[asset]; ok {
		return nil, revert("RESERVE_ALREADY_INITIALIZED")
	}
	if len(st.list) >= 128 {
		return nil, revert("NO_MORE_RESERVES_ALLOWED")
	}
	setKey(e, st.reserves, asset, reserve{
		wvToken:   argAddress(args, 1),
		debtToken: argAddress(args, 2),
		vault:     argAddress(args, 3),
		strategy:  argAddress(args, 4),
		decimals:  argUint8(args, 5),
		id:        uint8(len(st.list)),
	})
	appendField(e, &st.list, asset)
	return nil, nil
}

func poolSetBorrowingEnabled(e *Env, st *lendingPool, args []any) ([]any, error) {
	if err := st.onlyConfigurator(e); err != nil {
		return nil, err
	}
	asset := argAddress(args, 0)
	r, err := st.reserve(asset)
	if err != nil {
		return nil, err
	}
	r.borrowingEnabled = argBool(args, 1)
	setKey(e, st.reserves, asset, r)
	return nil, nil
}

func poolDeposit(e *Env, st *lendingPool, args []any) ([]any, error) {
	asset, amount := argAddress(args, 0), argU256(args, 1)
	r, err := st.reserve(asset)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, revert("INVALID_AMOUNT")
	}
	if _, err := e.Call(asset, "transferFrom", e.sender, r.wvToken, amount.ToBig()); err != nil {
		return nil, err
	}
	out, err := e.Call(r.wvToken, "mint", e.sender, amount.ToBig())
	if err != nil {
		return nil, err
	}
	if first := out[0].(bool); first {
		setKey(e, st.collateral, userAsset{e.sender, asset}, true)
	}
	return nil, nil
}

func poolWithdraw(e *Env, st *lendingPool, args []any) ([]any, error) {
	asset, amount := argAddress(args, 0), argU256(args, 1)
	r, err := st.reserve(asset)
	if err != nil {
		return nil, err
	}
	balance, err := e.callU256(r.wvToken, "balanceOf", e.sender)
	if err != nil {
		return nil, err
	}
	if amount.Eq(maxUint256) {
		amount = balance
	}
	if amount.IsZero() {
		return nil, revert("INVALID_AMOUNT")
	}
	if amount.Gt(balance) {
		return nil, revert("NOT_ENOUGH_AVAILABLE_USER_BALANCE")
	}
	if _, err := e.Call(r.wvToken, "burn", e.sender, e.sender, amount.ToBig()); err != nil {
		return nil, err
	}
	if amount.Eq(balance) {
		setKey(e, st.collateral, userAsset{e.sender, asset}, false)
	}
	return ret(amount.ToBig())
}

// poolBorrow takes the margin of the caller, borrows margin times the leverage
// ratio from the reserve and swaps both into the collateral asset, which is
// held by the yield farming pool.
func poolBorrow(e *Env, st *lendingPool, args []any) ([]any, error) {
	asset, amount, collateralAsset := argAddress(args, 0), argU256(args, 1), argAddress(args, 2)
	mode := bindings.LeverageRatioMode(argUint8(args, 3))

	r, err := st.reserve(asset)
	if err != nil {
		return nil, err
	}
	if _, err := st.reserve(collateralAsset); err != nil {
		return nil, err
	}
	if asset == collateralAsset {
		return nil, revert("INVALID_COLLATERAL_ASSET")
	}
	if !r.borrowingEnabled {
		return nil, revert("BORROWING_NOT_ENABLED")
	}
	if amount.IsZero() {
		return nil, revert("INVALID_AMOUNT")
	}
	debtBig, ok := mode.Apply(amount.ToBig())
	if !ok {
		return nil, revert("INVALID_LEVERAGE_RATIO_MODE")
	}
	debt, _ := uint256.FromBig(debtBig)

	if _, err := e.Call(asset, "transferFrom", e.sender, r.wvToken, amount.ToBig()); err != nil {
		return nil, err
	}
	total := new(uint256.Int).Add(amount, debt)
	available, err := e.callU256(asset, "balanceOf", r.wvToken)
	if err != nil {
		return nil, err
	}
	if total.Gt(available) {
		return nil, revert("NOT_ENOUGH_LIQUIDITY")
	}
	if !debt.IsZero() {
		if _, err := e.Call(r.debtToken, "mint", e.sender, debt.ToBig()); err != nil {
			return nil, err
		}
	}
	if _, err := e.Call(r.wvToken, "transferUnderlyingTo", e.self, total.ToBig()); err != nil {
		return nil, err
	}

	swap, err := providerOf(e, st.provider, "getTokenSwap")
	if err != nil {
		return nil, err
	}
	farm, err := providerOf(e, st.provider, "getYieldFarmingPool")
	if err != nil {
		return nil, err
	}
	if swap == (common.Address{}) || farm == (common.Address{}) {
		return nil, revert("TOKEN_SWAP_OR_YIELD_FARMING_POOL_NOT_SET")
	}
	if _, err := e.Call(asset, "approve", swap, total.ToBig()); err != nil {
		return nil, err
	}
	bought, err := e.callU256(swap, "swap", asset, collateralAsset, total.ToBig(), common.Big1, farm)
	if err != nil {
		return nil, err
	}

	key := positionKey{e.sender, collateralAsset, asset}
	p := st.positions[key]
	p.collateral.Add(&p.collateral, bought)
	p.margin.Add(&p.margin, amount)
	p.debt.Add(&p.debt, debt)
	setKey(e, st.positions, key, p)
	return nil, nil
}

// poolRedeem closes amount of the collateral of a position, or all of it when
// amount is zero. The collateral is swapped back, the matching share of the
// debt is repaid and the rest goes to the caller.
func poolRedeem(e *Env, st *lendingPool, collateralAsset, debtAsset common.Address, amount *uint256.Int) ([]any, error) {
	key := positionKey{e.sender, collateralAsset, debtAsset}
	p, ok := st.positions[key]
	if !ok || p.collateral.IsZero() {
		return nil, revert("NO_OPEN_POSITION")
	}
	r, err := st.reserve(debtAsset)
	if err != nil {
		return nil, err
	}
	portion := new(uint256.Int).Set(&p.collateral)
	if !amount.IsZero() && amount.Lt(portion) {
		portion.Set(amount)
	}
	repay, err := mulDiv(&p.debt, portion, &p.collateral)
	if err != nil {
		return nil, err
	}
	margin, err := mulDiv(&p.margin, portion, &p.collateral)
	if err != nil {
		return nil, err
	}

	swap, err := providerOf(e, st.provider, "getTokenSwap")
	if err != nil {
		return nil, err
	}
	farm, err := providerOf(e, st.provider, "getYieldFarmingPool")
	if err != nil {
		return nil, err
	}
	if _, err := e.Call(farm, "release", collateralAsset, portion.ToBig(), e.self); err != nil {
		return nil, err
	}
	if _, err := e.Call(collateralAsset, "approve", swap, portion.ToBig()); err != nil {
		return nil, err
	}
	proceeds, err := e.callU256(swap, "swap", collateralAsset, debtAsset, portion.ToBig(), common.Big1, e.self)
	if err != nil {
		return nil, err
	}
	if proceeds.Lt(repay) {
		return nil, revert("INSUFFICIENT_COLLATERAL_TO_REPAY")
	}
	if !repay.IsZero() {
		if _, err := e.Call(debtAsset, "transfer", r.wvToken, repay.ToBig()); err != nil {
			return nil, err
		}
		if _, err := e.Call(r.debtToken, "burn", e.sender, repay.ToBig()); err != nil {
			return nil, err
		}
	}
	payout := new(uint256.Int).Sub(proceeds, repay)
	if !payout.IsZero() {
		if _, err := e.Call(debtAsset, "transfer", e.sender, payout.ToBig()); err != nil {
			return nil, err
		}
	}

	p.collateral.Sub(&p.collateral, portion)
	p.debt.Sub(&p.debt, repay)
	p.margin.Sub(&p.margin, margin)
	if p.collateral.IsZero() {
		p = position{}
	}
	setKey(e, st.positions, key, p)
	return ret(payout.ToBig())
}

type configurator struct {
	provider    common.Address
	initialized bool
}

func (c *configurator) onlyPoolAdmin(e *Env) error {
	admin, err := providerOf(e, c.provider, "getPoolAdmin")
	if err != nil {
		return err
	}
	if e.sender != admin {
		return revert("CALLER_NOT_POOL_ADMIN")
	}
	return nil
}

func (c *configurator) pool(e *Env) (common.Address, error) {
	pool, err := providerOf(e, c.provider, "getLendingPool")
	if err != nil {
		return common.Address{}, err
	}
	if pool == (common.Address{}) {
		return common.Address{}, revert("LENDING_POOL_NOT_SET")
	}
	return pool, nil
}

func configuratorKind() *kind {
	borrowing := func(enabled bool) method[configurator] {
		return func(e *Env, st *configurator, args []any) ([]any, error) {
			if err := st.onlyPoolAdmin(e); err != nil {
				return nil, err
			}
			pool, err := st.pool(e)
			if err != nil {
				return nil, err
			}
			_, err = e.Call(pool, "setBorrowingEnabled", argAddress(args, 0), enabled)
			return nil, err
		}
	}
	return define[configurator](bindings.LendingPoolConfigurator, nil,
		func() *configurator { return &configurator{} },
		nil,
		map[string]method[configurator]{
			"initialize": initializer(
				func(c *configurator) *bool { return &c.initialized },
				func(c *configurator) *common.Address { return &c.provider },
			),
			"batchInitReserve":          configuratorBatchInitReserve,
			"enableBorrowingOnReserve":  borrowing(true),
			"disableBorrowingOnReserve": borrowing(false),
		},
	)
}

func configuratorBatchInitReserve(e *Env, st *configurator, args []any) ([]any, error) {
	if err := st.onlyPoolAdmin(e); err != nil {
		return nil, err
	}
	pool, err := st.pool(e)
	if err != nil {
		return nil, err
	}
	inputs := *abi.ConvertType(args[0], new([]bindings.InitReserveInput)).(*[]bindings.InitReserveInput)
	for _, in := range inputs {
		decimals, err := e.callUint8(in.UnderlyingAsset, "decimals")
		if err != nil {
			return nil, err
		}
		if decimals != in.UnderlyingAssetDecimals {
			return nil, revert("INVALID_DECIMALS")
		}
		wvToken, err := e.CreateProxy(in.WvTokenImpl, "initialize",
			pool, in.Treasury, in.UnderlyingAsset, in.UnderlyingAssetDecimals, in.WvTokenName, in.WvTokenSymbol)
		if err != nil {
			return nil, err
		}
		debtToken, err := e.CreateProxy(in.DebtTokenImpl, "initialize",
			pool, in.UnderlyingAsset, in.UnderlyingAssetDecimals, in.DebtTokenName, in.DebtTokenSymbol)
		if err != nil {
			return nil, err
		}
		if _, err := e.Call(pool, "initReserve", in.UnderlyingAsset, wvToken, debtToken,
			in.VaultTokenAddress, in.InterestRateStrategyAddress, in.UnderlyingAssetDecimals); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
