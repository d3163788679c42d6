package sim

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/wevest/wevest-devstack/bindings"
)

const errCallerNotPool = "CALLER_MUST_BE_LENDING_POOL"

// wvToken is the interest bearing receipt of a reserve deposit. It holds the
// underlying liquidity of the reserve.
type wvToken struct {
	ledger
	initialized bool
	pool        common.Address
	treasury    common.Address
	underlying  common.Address
}

func (t *wvToken) tokenLedger() *ledger { return &t.ledger }

func (t *wvToken) onlyPool(e *Env) error {
	if e.sender != t.pool {
		return revert(errCallerNotPool)
	}
	return nil
}

func wvTokenKind() *kind {
	return define[wvToken](bindings.WvToken, nil,
		func() *wvToken { return &wvToken{ledger: newLedger("", "", 0)} },
		nil,
		merge(erc20Methods((*wvToken).tokenLedger), map[string]method[wvToken]{
			"initialize": func(e *Env, st *wvToken, args []any) ([]any, error) {
				if st.initialized {
					return nil, revert(errAlreadyInitialized)
				}
				setField(e, &st.initialized, true)
				setField(e, &st.pool, argAddress(args, 0))
				setField(e, &st.treasury, argAddress(args, 1))
				setField(e, &st.underlying, argAddress(args, 2))
				setField(e, &st.decimals, argUint8(args, 3))
				setField(e, &st.name, argString(args, 4))
				setField(e, &st.symbol, argString(args, 5))
				return nil, nil
			},
			"mint": func(e *Env, st *wvToken, args []any) ([]any, error) {
				if err := st.onlyPool(e); err != nil {
					return nil, err
				}
				user := argAddress(args, 0)
				first := st.balanceOf(user).IsZero()
				if err := st.mint(e, user, argU256(args, 1)); err != nil {
					return nil, err
				}
				return ret(first)
			},
			"burn": func(e *Env, st *wvToken, args []any) ([]any, error) {
				if err := st.onlyPool(e); err != nil {
					return nil, err
				}
				amount := argU256(args, 2)
				if err := st.burn(e, argAddress(args, 0), amount); err != nil {
					return nil, err
				}
				_, err := e.Call(st.underlying, "transfer", argAddress(args, 1), amount.ToBig())
				return nil, err
			},
			"transferUnderlyingTo": func(e *Env, st *wvToken, args []any) ([]any, error) {
				if err := st.onlyPool(e); err != nil {
					return nil, err
				}
				amount := argBig(args, 1)
				if _, err := e.Call(st.underlying, "transfer", argAddress(args, 0), amount); err != nil {
					return nil, err
				}
				return ret(amount)
			},
			"UNDERLYING_ASSET_ADDRESS": func(e *Env, st *wvToken, args []any) ([]any, error) {
				return ret(st.underlying)
			},
			"RESERVE_TREASURY_ADDRESS": func(e *Env, st *wvToken, args []any) ([]any, error) {
				return ret(st.treasury)
			},
			"POOL": func(e *Env, st *wvToken, args []any) ([]any, error) {
				return ret(st.pool)
			},
		}),
	)
}

// debtToken tracks the borrowed principal of each user. It is not transferable.
type debtToken struct {
	ledger
	initialized bool
	pool        common.Address
	underlying  common.Address
}

func (t *debtToken) tokenLedger() *ledger { return &t.ledger }

func debtTokenKind() *kind {
	unsupported := func(reason string) method[debtToken] {
		return func(e *Env, st *debtToken, args []any) ([]any, error) {
			return nil, revert(reason)
		}
	}
	onlyPool := func(e *Env, st *debtToken) error {
		if e.sender != st.pool {
			return revert(errCallerNotPool)
		}
		return nil
	}
	return define[debtToken](bindings.DebtToken, nil,
		func() *debtToken { return &debtToken{ledger: newLedger("", "", 0)} },
		nil,
		merge(erc20Methods((*debtToken).tokenLedger), map[string]method[debtToken]{
			"approve":      unsupported("APPROVAL_NOT_SUPPORTED"),
			"allowance":    unsupported("ALLOWANCE_NOT_SUPPORTED"),
			"transfer":     unsupported("TRANSFER_NOT_SUPPORTED"),
			"transferFrom": unsupported("TRANSFER_NOT_SUPPORTED"),
			"initialize": func(e *Env, st *debtToken, args []any) ([]any, error) {
				if st.initialized {
					return nil, revert(errAlreadyInitialized)
				}
				setField(e, &st.initialized, true)
				setField(e, &st.pool, argAddress(args, 0))
				setField(e, &st.underlying, argAddress(args, 1))
				setField(e, &st.decimals, argUint8(args, 2))
				setField(e, &st.name, argString(args, 3))
				setField(e, &st.symbol, argString(args, 4))
				return nil, nil
			},
			"mint": func(e *Env, st *debtToken, args []any) ([]any, error) {
				if err := onlyPool(e, st); err != nil {
					return nil, err
				}
				user := argAddress(args, 0)
				first := st.balanceOf(user).IsZero()
				if err := st.mint(e, user, argU256(args, 1)); err != nil {
					return nil, err
				}
				return ret(first)
			},
			"burn": func(e *Env, st *debtToken, args []any) ([]any, error) {
				if err := onlyPool(e, st); err != nil {
					return nil, err
				}
				return nil, st.burn(e, argAddress(args, 0), argU256(args, 1))
			},
			"principalBalanceOf": func(e *Env, st *debtToken, args []any) ([]any, error) {
				return ret(st.balanceOf(argAddress(args, 0)).ToBig())
			},
			"UNDERLYING_ASSET_ADDRESS": func(e *Env, st *debtToken, args []any) ([]any, error) {
				return ret(st.underlying)
			},
			"POOL": func(e *Env, st *debtToken, args []any) ([]any, error) {
				return ret(st.pool)
			},
		}),
	)
}
