package sim

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/wevest/wevest-devstack/bindings"
)

type allowanceKey struct {
	owner, spender common.Address
}

// ledger is the ERC20 bookkeeping shared by every token stand-in.
type ledger struct {
	name     string
	symbol   string
	decimals uint8

	supply     uint256.Int
	balances   map[common.Address]uint256.Int
	allowances map[allowanceKey]uint256.Int
}

func newLedger(name, symbol string, decimals uint8) ledger {
	return ledger{
		name:       name,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[common.Address]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
	}
}

func (l *ledger) balanceOf(a common.Address) *uint256.Int {
	v := l.balances[a]
	return &v
}

func (l *ledger) mint(e *Env, to common.Address, amount *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(&l.supply, amount)
	if overflow {
		return revert("ERC20: total supply overflow")
	}
	setField(e, &l.supply, *supply)
	setKey(e, l.balances, to, *new(uint256.Int).Add(l.balanceOf(to), amount))
	return nil
}

func (l *ledger) burn(e *Env, from common.Address, amount *uint256.Int) error {
	bal := l.balanceOf(from)
	if bal.Lt(amount) {
		return revert("ERC20: burn amount exceeds balance")
	}
	setKey(e, l.balances, from, *new(uint256.Int).Sub(bal, amount))
	setField(e, &l.supply, *new(uint256.Int).Sub(&l.supply, amount))
	return nil
}

func (l *ledger) move(e *Env, from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return revert("ERC20: transfer to the zero address")
	}
	bal := l.balanceOf(from)
	if bal.Lt(amount) {
		return revert("ERC20: transfer amount exceeds balance")
	}
	setKey(e, l.balances, from, *new(uint256.Int).Sub(bal, amount))
	setKey(e, l.balances, to, *new(uint256.Int).Add(l.balanceOf(to), amount))
	return nil
}

func (l *ledger) spend(e *Env, owner, spender common.Address, amount *uint256.Int) error {
	key := allowanceKey{owner, spender}
	allowed := l.allowances[key]
	if allowed.Eq(maxUint256) {
		return nil
	}
	if allowed.Lt(amount) {
		return revert("ERC20: transfer amount exceeds allowance")
	}
	setKey(e, l.allowances, key, *new(uint256.Int).Sub(&allowed, amount))
	return nil
}

var maxUint256 = new(uint256.Int).SetAllOne()

// erc20Methods implements the ERC20 surface over the ledger of S.
func erc20Methods[S any](get func(*S) *ledger) map[string]method[S] {
	return map[string]method[S]{
		"name": func(e *Env, st *S, args []any) ([]any, error) {
			return ret(get(st).name)
		},
		"symbol": func(e *Env, st *S, args []any) ([]any, error) {
			return ret(get(st).symbol)
		},
		"decimals": func(e *Env, st *S, args []any) ([]any, error) {
			return ret(get(st).decimals)
		},
		"totalSupply": func(e *Env, st *S, args []any) ([]any, error) {
			return ret(get(st).supply.ToBig())
		},
		"balanceOf": func(e *Env, st *S, args []any) ([]any, error) {
			return ret(get(st).balanceOf(argAddress(args, 0)).ToBig())
		},
		"allowance": func(e *Env, st *S, args []any) ([]any, error) {
			v := get(st).allowances[allowanceKey{argAddress(args, 0), argAddress(args, 1)}]
			return ret(v.ToBig())
		},
		"approve": func(e *Env, st *S, args []any) ([]any, error) {
			setKey(e, get(st).allowances, allowanceKey{e.sender, argAddress(args, 0)}, *argU256(args, 1))
			return ret(true)
		},
		"transfer": func(e *Env, st *S, args []any) ([]any, error) {
			if err := get(st).move(e, e.sender, argAddress(args, 0), argU256(args, 1)); err != nil {
				return nil, err
			}
			return ret(true)
		},
		"transferFrom": func(e *Env, st *S, args []any) ([]any, error) {
			from, amount := argAddress(args, 0), argU256(args, 2)
			if err := get(st).spend(e, from, e.sender, amount); err != nil {
				return nil, err
			}
			if err := get(st).move(e, from, argAddress(args, 1), amount); err != nil {
				return nil, err
			}
			return ret(true)
		},
	}
}

// faucetMethods lets anyone mint to themselves.
func faucetMethods[S any](get func(*S) *ledger) map[string]method[S] {
	return map[string]method[S]{
		"mint": func(e *Env, st *S, args []any) ([]any, error) {
			if err := get(st).mint(e, e.sender, argU256(args, 0)); err != nil {
				return nil, err
			}
			return ret(true)
		},
	}
}

type mintableERC20 struct {
	ledger
}

func (t *mintableERC20) tokenLedger() *ledger { return &t.ledger }

func mintableERC20Kind() *kind {
	get := (*mintableERC20).tokenLedger
	return define[mintableERC20](bindings.MintableERC20, nil,
		func() *mintableERC20 { return &mintableERC20{} },
		func(e *Env, st *mintableERC20, args []any) ([]any, error) {
			st.ledger = newLedger(argString(args, 0), argString(args, 1), argUint8(args, 2))
			return nil, nil
		},
		merge(erc20Methods(get), faucetMethods(get)),
	)
}

type weth9 struct {
	ledger
}

func (t *weth9) tokenLedger() *ledger { return &t.ledger }

func weth9Kind() *kind {
	get := (*weth9).tokenLedger
	return define[weth9](bindings.WETH9Mocked, nil,
		func() *weth9 { return &weth9{ledger: newLedger("Wrapped Ether", "WETH", 18)} },
		nil,
		merge(erc20Methods(get), faucetMethods(get)),
	)
}
