package sim

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/wevest/wevest-devstack/bindings"
)

// priceOracle is the settable fallback oracle.
type priceOracle struct {
	ethUsd uint256.Int
	prices map[common.Address]uint256.Int
}

func priceOracleKind() *kind {
	return define[priceOracle](bindings.PriceOracle, nil,
		func() *priceOracle { return &priceOracle{prices: make(map[common.Address]uint256.Int)} },
		nil,
		map[string]method[priceOracle]{
			"setEthUsdPrice": func(e *Env, st *priceOracle, args []any) ([]any, error) {
				setField(e, &st.ethUsd, *argU256(args, 0))
				return nil, nil
			},
			"getEthUsdPrice": func(e *Env, st *priceOracle, args []any) ([]any, error) {
				return ret(st.ethUsd.ToBig())
			},
			"setAssetPrice": func(e *Env, st *priceOracle, args []any) ([]any, error) {
				setKey(e, st.prices, argAddress(args, 0), *argU256(args, 1))
				return nil, nil
			},
			"getAssetPrice": func(e *Env, st *priceOracle, args []any) ([]any, error) {
				price := st.prices[argAddress(args, 0)]
				return ret(price.ToBig())
			},
		},
	)
}

type mockAggregator struct {
	answer *big.Int
}

func mockAggregatorKind() *kind {
	return define[mockAggregator](bindings.MockAggregator, nil,
		func() *mockAggregator { return &mockAggregator{answer: new(big.Int)} },
		func(e *Env, st *mockAggregator, args []any) ([]any, error) {
			st.answer = new(big.Int).Set(argBig(args, 0))
			return nil, nil
		},
		map[string]method[mockAggregator]{
			"latestAnswer": func(e *Env, st *mockAggregator, args []any) ([]any, error) {
				return ret(new(big.Int).Set(st.answer))
			},
		},
	)
}

// wevestOracle reads prices from per-asset aggregators and falls back to the
// fallback oracle when an asset has no source or the source has no answer.
type wevestOracle struct {
	owner        common.Address
	sources      map[common.Address]common.Address
	fallback     common.Address
	baseCurrency common.Address
	baseUnit     *big.Int
}

func (o *wevestOracle) setSources(e *Env, assets, sources []common.Address) error {
	if len(assets) != len(sources) {
		return revert("INCONSISTENT_PARAMS_LENGTH")
	}
	for i, asset := range assets {
		setKey(e, o.sources, asset, sources[i])
	}
	return nil
}

func (o *wevestOracle) price(e *Env, asset common.Address) (*big.Int, error) {
	if asset == o.baseCurrency {
		return new(big.Int).Set(o.baseUnit), nil
	}
	if source := o.sources[asset]; source != (common.Address{}) {
		out, err := e.Call(source, "latestAnswer")
		if err != nil {
			return nil, err
		}
		if answer := out[0].(*big.Int); answer.Sign() > 0 {
			return answer, nil
		}
	}
	if o.fallback == (common.Address{}) {
		return new(big.Int), nil
	}
	return e.callBig(o.fallback, "getAssetPrice", asset)
}

func wevestOracleKind() *kind {
	onlyOwner := func(e *Env, st *wevestOracle) error {
		if e.sender != st.owner {
			return revert(errNotOwner)
		}
		return nil
	}
	return define[wevestOracle](bindings.WevestOracle, nil,
		func() *wevestOracle {
			return &wevestOracle{sources: make(map[common.Address]common.Address), baseUnit: new(big.Int)}
		},
		func(e *Env, st *wevestOracle, args []any) ([]any, error) {
			st.owner = e.sender
			if err := st.setSources(e, argAddresses(args, 0), argAddresses(args, 1)); err != nil {
				return nil, err
			}
			st.fallback = argAddress(args, 2)
			st.baseCurrency = argAddress(args, 3)
			st.baseUnit = new(big.Int).Set(argBig(args, 4))
			return nil, nil
		},
		map[string]method[wevestOracle]{
			"owner": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				return ret(st.owner)
			},
			"getAssetPrice": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				price, err := st.price(e, argAddress(args, 0))
				if err != nil {
					return nil, err
				}
				return ret(price)
			},
			"getAssetsPrices": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				assets := argAddresses(args, 0)
				prices := make([]*big.Int, len(assets))
				for i, asset := range assets {
					price, err := st.price(e, asset)
					if err != nil {
						return nil, err
					}
					prices[i] = price
				}
				return ret(prices)
			},
			"getSourceOfAsset": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				return ret(st.sources[argAddress(args, 0)])
			},
			"getFallbackOracle": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				return ret(st.fallback)
			},
			"setAssetSources": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				if err := onlyOwner(e, st); err != nil {
					return nil, err
				}
				return nil, st.setSources(e, argAddresses(args, 0), argAddresses(args, 1))
			},
			"setFallbackOracle": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				if err := onlyOwner(e, st); err != nil {
					return nil, err
				}
				setField(e, &st.fallback, argAddress(args, 0))
				return nil, nil
			},
			"BASE_CURRENCY": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				return ret(st.baseCurrency)
			},
			"BASE_CURRENCY_UNIT": func(e *Env, st *wevestOracle, args []any) ([]any, error) {
				return ret(new(big.Int).Set(st.baseUnit))
			},
		},
	)
}
