package sim

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/wevest/wevest-devstack/bindings"
)

var ray = new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)

func percentRay(pct int64) *big.Int {
	v := new(big.Int).Mul(ray, big.NewInt(pct))
	return v.Quo(v, big.NewInt(100))
}

// rateStrategy is a two slope utilization model in ray units.
type rateStrategy struct {
	provider common.Address
	optimal  *big.Int
	base     *big.Int
	slope1   *big.Int
	slope2   *big.Int
}

func (s *rateStrategy) rates(available, debt *big.Int) (liquidity, borrow *big.Int) {
	total := new(big.Int).Add(available, debt)
	if total.Sign() == 0 {
		return new(big.Int), new(big.Int).Set(s.base)
	}
	utilization := new(big.Int).Mul(debt, ray)
	utilization.Quo(utilization, total)

	borrow = new(big.Int).Set(s.base)
	if utilization.Cmp(s.optimal) <= 0 {
		step := new(big.Int).Mul(s.slope1, utilization)
		borrow.Add(borrow, step.Quo(step, s.optimal))
	} else {
		excess := new(big.Int).Sub(utilization, s.optimal)
		step := new(big.Int).Mul(s.slope2, excess)
		step.Quo(step, new(big.Int).Sub(ray, s.optimal))
		borrow.Add(borrow, s.slope1).Add(borrow, step)
	}
	liquidity = new(big.Int).Mul(borrow, utilization)
	liquidity.Quo(liquidity, ray)
	return liquidity, borrow
}

func strategyKind() *kind {
	constant := func(get func(*rateStrategy) *big.Int) method[rateStrategy] {
		return func(e *Env, st *rateStrategy, args []any) ([]any, error) {
			return ret(new(big.Int).Set(get(st)))
		}
	}
	return define[rateStrategy](bindings.DefaultReserveInterestRateStrategy, nil,
		func() *rateStrategy {
			return &rateStrategy{
				optimal: percentRay(80),
				base:    new(big.Int),
				slope1:  percentRay(4),
				slope2:  percentRay(75),
			}
		},
		func(e *Env, st *rateStrategy, args []any) ([]any, error) {
			st.provider = argAddress(args, 0)
			return nil, nil
		},
		map[string]method[rateStrategy]{
			"OPTIMAL_UTILIZATION_RATE": constant(func(s *rateStrategy) *big.Int { return s.optimal }),
			"baseVariableBorrowRate":   constant(func(s *rateStrategy) *big.Int { return s.base }),
			"variableRateSlope1":       constant(func(s *rateStrategy) *big.Int { return s.slope1 }),
			"variableRateSlope2":       constant(func(s *rateStrategy) *big.Int { return s.slope2 }),
			"calculateInterestRates": func(e *Env, st *rateStrategy, args []any) ([]any, error) {
				liquidity, borrow := st.rates(argBig(args, 0), argBig(args, 1))
				return ret(liquidity, borrow)
			},
		},
	)
}

type dataProvider struct {
	provider common.Address
}

func (d *dataProvider) pool(e *Env) (common.Address, error) {
	return providerOf(e, d.provider, "getLendingPool")
}

func (d *dataProvider) reserveData(e *Env, asset common.Address) (bindings.ReserveData, error) {
	pool, err := d.pool(e)
	if err != nil {
		return bindings.ReserveData{}, err
	}
	out, err := e.Call(pool, "getReserveData", asset)
	if err != nil {
		return bindings.ReserveData{}, err
	}
	return bindings.ReserveData{
		WvTokenAddress:              out[0].(common.Address),
		DebtTokenAddress:            out[1].(common.Address),
		VaultTokenAddress:           out[2].(common.Address),
		InterestRateStrategyAddress: out[3].(common.Address),
		Decimals:                    out[4].(uint8),
		BorrowingEnabled:            out[5].(bool),
		Id:                          out[6].(uint8),
	}, nil
}

func (d *dataProvider) reserves(e *Env) ([]common.Address, error) {
	pool, err := d.pool(e)
	if err != nil {
		return nil, err
	}
	out, err := e.Call(pool, "getReservesList")
	if err != nil {
		return nil, err
	}
	return out[0].([]common.Address), nil
}

func dataProviderKind() *kind {
	return define[dataProvider](bindings.WevestProtocolDataProvider, nil,
		func() *dataProvider { return &dataProvider{} },
		func(e *Env, st *dataProvider, args []any) ([]any, error) {
			st.provider = argAddress(args, 0)
			return nil, nil
		},
		map[string]method[dataProvider]{
			"ADDRESSES_PROVIDER": func(e *Env, st *dataProvider, args []any) ([]any, error) {
				return ret(st.provider)
			},
			"getAllReservesTokens": func(e *Env, st *dataProvider, args []any) ([]any, error) {
				assets, err := st.reserves(e)
				if err != nil {
					return nil, err
				}
				tokens := make([]bindings.TokenData, 0, len(assets))
				for _, asset := range assets {
					symbol, err := e.callString(asset, "symbol")
					if err != nil {
						return nil, err
					}
					tokens = append(tokens, bindings.TokenData{Symbol: symbol, TokenAddress: asset})
				}
				return ret(tokens)
			},
			"getAllWvTokens": func(e *Env, st *dataProvider, args []any) ([]any, error) {
				assets, err := st.reserves(e)
				if err != nil {
					return nil, err
				}
				tokens := make([]bindings.TokenData, 0, len(assets))
				for _, asset := range assets {
					data, err := st.reserveData(e, asset)
					if err != nil {
						return nil, err
					}
					symbol, err := e.callString(data.WvTokenAddress, "symbol")
					if err != nil {
						return nil, err
					}
					tokens = append(tokens, bindings.TokenData{Symbol: symbol, TokenAddress: data.WvTokenAddress})
				}
				return ret(tokens)
			},
			"getReserveTokensAddresses": func(e *Env, st *dataProvider, args []any) ([]any, error) {
				data, err := st.reserveData(e, argAddress(args, 0))
				if err != nil {
					return nil, err
				}
				return ret(data.WvTokenAddress, data.DebtTokenAddress)
			},
			"getReserveConfigurationData": func(e *Env, st *dataProvider, args []any) ([]any, error) {
				data, err := st.reserveData(e, argAddress(args, 0))
				if err != nil {
					return nil, err
				}
				active := data.WvTokenAddress != (common.Address{})
				return ret(big.NewInt(int64(data.Decimals)), data.BorrowingEnabled, active)
			},
			"getUserReserveData": func(e *Env, st *dataProvider, args []any) ([]any, error) {
				asset, user := argAddress(args, 0), argAddress(args, 1)
				data, err := st.reserveData(e, asset)
				if err != nil {
					return nil, err
				}
				if data.WvTokenAddress == (common.Address{}) {
					return ret(new(big.Int), new(big.Int), new(big.Int), new(big.Int), false)
				}
				balance, err := e.callBig(data.WvTokenAddress, "balanceOf", user)
				if err != nil {
					return nil, err
				}
				debt, err := e.callBig(data.DebtTokenAddress, "balanceOf", user)
				if err != nil {
					return nil, err
				}
				principal, err := e.callBig(data.DebtTokenAddress, "principalBalanceOf", user)
				if err != nil {
					return nil, err
				}
				liquidityRate := new(big.Int)
				if data.InterestRateStrategyAddress != (common.Address{}) {
					available, err := e.callBig(asset, "balanceOf", data.WvTokenAddress)
					if err != nil {
						return nil, err
					}
					totalDebt, err := e.callBig(data.DebtTokenAddress, "totalSupply")
					if err != nil {
						return nil, err
					}
					rates, err := e.Call(data.InterestRateStrategyAddress, "calculateInterestRates", available, totalDebt)
					if err != nil {
						return nil, err
					}
					liquidityRate = rates[0].(*big.Int)
				}
				pool, err := st.pool(e)
				if err != nil {
					return nil, err
				}
				out, err := e.Call(pool, "isUsingAsCollateral", user, asset)
				if err != nil {
					return nil, err
				}
				return ret(balance, debt, principal, liquidityRate, out[0].(bool))
			},
		},
	)
}

// mockVault is a yearn style vault over a single token. Shares start at one
// per token and track the token balance of the vault after that.
type mockVault struct {
	ledger
	token common.Address
}

func (v *mockVault) tokenLedger() *ledger { return &v.ledger }

func (v *mockVault) totalAssets(e *Env) (*uint256.Int, error) {
	return e.callU256(v.token, "balanceOf", e.self)
}

func mockVaultKind() *kind {
	return define[mockVault](bindings.MockVault, nil,
		func() *mockVault { return &mockVault{} },
		func(e *Env, st *mockVault, args []any) ([]any, error) {
			st.token = argAddress(args, 0)
			decimals, err := e.callUint8(st.token, "decimals")
			if err != nil {
				return nil, err
			}
			st.ledger = newLedger(argString(args, 1), argString(args, 2), decimals)
			return nil, nil
		},
		merge(erc20Methods((*mockVault).tokenLedger), map[string]method[mockVault]{
			"token": func(e *Env, st *mockVault, args []any) ([]any, error) {
				return ret(st.token)
			},
			"deposit": func(e *Env, st *mockVault, args []any) ([]any, error) {
				amount := argU256(args, 0)
				if amount.IsZero() {
					return nil, revert("INVALID_AMOUNT")
				}
				assets, err := st.totalAssets(e)
				if err != nil {
					return nil, err
				}
				shares := new(uint256.Int).Set(amount)
				if !st.supply.IsZero() && !assets.IsZero() {
					if shares, err = mulDiv(amount, &st.supply, assets); err != nil {
						return nil, err
					}
				}
				if _, err := e.Call(st.token, "transferFrom", e.sender, e.self, amount.ToBig()); err != nil {
					return nil, err
				}
				if err := st.mint(e, e.sender, shares); err != nil {
					return nil, err
				}
				return ret(shares.ToBig())
			},
			"withdraw": func(e *Env, st *mockVault, args []any) ([]any, error) {
				shares := argU256(args, 0)
				if balance := st.balanceOf(e.sender); balance.Lt(shares) {
					shares = balance
				}
				if shares.IsZero() {
					return nil, revert("INVALID_AMOUNT")
				}
				assets, err := st.totalAssets(e)
				if err != nil {
					return nil, err
				}
				value, err := mulDiv(shares, assets, &st.supply)
				if err != nil {
					return nil, err
				}
				if err := st.burn(e, e.sender, shares); err != nil {
					return nil, err
				}
				if _, err := e.Call(st.token, "transfer", e.sender, value.ToBig()); err != nil {
					return nil, err
				}
				return ret(value.ToBig())
			},
			"pricePerShare": func(e *Env, st *mockVault, args []any) ([]any, error) {
				unit := pow10(st.decimals)
				if st.supply.IsZero() {
					return ret(unit.ToBig())
				}
				assets, err := st.totalAssets(e)
				if err != nil {
					return nil, err
				}
				price, err := mulDiv(assets, unit, &st.supply)
				if err != nil {
					return nil, err
				}
				return ret(price.ToBig())
			},
			"totalAssets": func(e *Env, st *mockVault, args []any) ([]any, error) {
				assets, err := st.totalAssets(e)
				if err != nil {
					return nil, err
				}
				return ret(assets.ToBig())
			},
		}),
	)
}

// yieldFarmingPool holds the collateral bought by leveraged borrows and
// parks it in vaults.
type yieldFarmingPool struct {
	provider    common.Address
	initialized bool
	vaults      map[common.Address]common.Address
}

func yieldFarmingPoolKind() *kind {
	return define[yieldFarmingPool](bindings.YieldFarmingPool, nil,
		func() *yieldFarmingPool {
			return &yieldFarmingPool{vaults: make(map[common.Address]common.Address)}
		},
		nil,
		map[string]method[yieldFarmingPool]{
			"initialize": initializer(
				func(y *yieldFarmingPool) *bool { return &y.initialized },
				func(y *yieldFarmingPool) *common.Address { return &y.provider },
			),
			"deposit": func(e *Env, st *yieldFarmingPool, args []any) ([]any, error) {
				vault, asset, amount := argAddress(args, 0), argAddress(args, 1), argU256(args, 2)
				token, err := e.callAddress(vault, "token")
				if err != nil {
					return nil, err
				}
				if token != asset {
					return nil, revert("VAULT_ASSET_MISMATCH")
				}
				if amount.IsZero() {
					return nil, revert("INVALID_AMOUNT")
				}
				balance, err := e.callU256(asset, "balanceOf", e.self)
				if err != nil {
					return nil, err
				}
				if balance.Lt(amount) {
					return nil, revert("INSUFFICIENT_BALANCE")
				}
				if _, err := e.Call(asset, "approve", vault, amount.ToBig()); err != nil {
					return nil, err
				}
				if _, err := e.Call(vault, "deposit", amount.ToBig()); err != nil {
					return nil, err
				}
				setKey(e, st.vaults, asset, vault)
				return nil, nil
			},
			"currentBalance": func(e *Env, st *yieldFarmingPool, args []any) ([]any, error) {
				vault := argAddress(args, 0)
				shares, err := e.callU256(vault, "balanceOf", e.self)
				if err != nil {
					return nil, err
				}
				price, err := e.callU256(vault, "pricePerShare")
				if err != nil {
					return nil, err
				}
				decimals, err := e.callUint8(vault, "decimals")
				if err != nil {
					return nil, err
				}
				value, err := mulDiv(shares, price, pow10(decimals))
				if err != nil {
					return nil, err
				}
				return ret(value.ToBig())
			},
			"vaultOf": func(e *Env, st *yieldFarmingPool, args []any) ([]any, error) {
				return ret(st.vaults[argAddress(args, 0)])
			},
			"release": yieldFarmingRelease,
		},
	)
}

// yieldFarmingRelease sends amount of asset to the given receiver, pulling
// from the vault of the asset what the pool does not hold itself.
func yieldFarmingRelease(e *Env, st *yieldFarmingPool, args []any) ([]any, error) {
	pool, err := providerOf(e, st.provider, "getLendingPool")
	if err != nil {
		return nil, err
	}
	if e.sender != pool {
		return nil, revert(errCallerNotPool)
	}
	asset, amount, to := argAddress(args, 0), argU256(args, 1), argAddress(args, 2)
	balance, err := e.callU256(asset, "balanceOf", e.self)
	if err != nil {
		return nil, err
	}
	if balance.Lt(amount) {
		vault := st.vaults[asset]
		if vault == (common.Address{}) {
			return nil, revert("INSUFFICIENT_BALANCE")
		}
		if err := withdrawFromVault(e, vault, new(uint256.Int).Sub(amount, balance)); err != nil {
			return nil, err
		}
		if balance, err = e.callU256(asset, "balanceOf", e.self); err != nil {
			return nil, err
		}
		if balance.Lt(amount) {
			return nil, revert("INSUFFICIENT_BALANCE")
		}
	}
	if _, err := e.Call(asset, "transfer", to, amount.ToBig()); err != nil {
		return nil, err
	}
	return ret(amount.ToBig())
}

// withdrawFromVault redeems enough shares to receive at least need tokens.
func withdrawFromVault(e *Env, vault common.Address, need *uint256.Int) error {
	supply, err := e.callU256(vault, "totalSupply")
	if err != nil {
		return err
	}
	assets, err := e.callU256(vault, "totalAssets")
	if err != nil {
		return err
	}
	if supply.IsZero() || assets.IsZero() {
		return revert("INSUFFICIENT_BALANCE")
	}
	// shares = ceil(need * supply / assets)
	num, overflow := new(uint256.Int).MulOverflow(need, supply)
	if overflow {
		return revert("MATH_OVERFLOW")
	}
	num.Add(num, assets).SubUint64(num, 1)
	shares := num.Div(num, assets)
	_, err = e.Call(vault, "withdraw", shares.ToBig())
	return err
}

// tokenSwap swaps at oracle prices from its own inventory.
type tokenSwap struct {
	provider    common.Address
	initialized bool
}

func (s *tokenSwap) amountOut(e *Env, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if tokenIn == tokenOut {
		return nil, revert("IDENTICAL_ADDRESSES")
	}
	oracle, err := providerOf(e, s.provider, "getPriceOracle")
	if err != nil {
		return nil, err
	}
	if oracle == (common.Address{}) {
		return nil, revert("PRICE_ORACLE_NOT_SET")
	}
	priceIn, err := e.callU256(oracle, "getAssetPrice", tokenIn)
	if err != nil {
		return nil, err
	}
	priceOut, err := e.callU256(oracle, "getAssetPrice", tokenOut)
	if err != nil {
		return nil, err
	}
	if priceIn.IsZero() || priceOut.IsZero() {
		return nil, revert("ASSET_PRICE_UNAVAILABLE")
	}
	decimalsIn, err := e.callUint8(tokenIn, "decimals")
	if err != nil {
		return nil, err
	}
	decimalsOut, err := e.callUint8(tokenOut, "decimals")
	if err != nil {
		return nil, err
	}
	// value in base currency, then into units of tokenOut
	value, err := mulDiv(amountIn, priceIn, pow10(decimalsIn))
	if err != nil {
		return nil, err
	}
	return mulDiv(value, pow10(decimalsOut), priceOut)
}

func tokenSwapKind() *kind {
	return define[tokenSwap](bindings.TokenSwap, nil,
		func() *tokenSwap { return &tokenSwap{} },
		nil,
		map[string]method[tokenSwap]{
			"initialize": initializer(
				func(s *tokenSwap) *bool { return &s.initialized },
				func(s *tokenSwap) *common.Address { return &s.provider },
			),
			"getAmountOut": func(e *Env, st *tokenSwap, args []any) ([]any, error) {
				out, err := st.amountOut(e, argAddress(args, 0), argAddress(args, 1), argU256(args, 2))
				if err != nil {
					return nil, err
				}
				return ret(out.ToBig())
			},
			"swap": func(e *Env, st *tokenSwap, args []any) ([]any, error) {
				tokenIn, tokenOut, amountIn := argAddress(args, 0), argAddress(args, 1), argU256(args, 2)
				minOut, to := argU256(args, 3), argAddress(args, 4)
				out, err := st.amountOut(e, tokenIn, tokenOut, amountIn)
				if err != nil {
					return nil, err
				}
				if out.Lt(minOut) {
					return nil, revert("INSUFFICIENT_OUTPUT_AMOUNT")
				}
				inventory, err := e.callU256(tokenOut, "balanceOf", e.self)
				if err != nil {
					return nil, err
				}
				if inventory.Lt(out) {
					return nil, revert("INSUFFICIENT_LIQUIDITY")
				}
				if _, err := e.Call(tokenIn, "transferFrom", e.sender, e.self, amountIn.ToBig()); err != nil {
					return nil, err
				}
				if _, err := e.Call(tokenOut, "transfer", to, out.ToBig()); err != nil {
					return nil, err
				}
				return ret(out.ToBig())
			},
		},
	)
}
