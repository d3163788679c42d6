package sim

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/wevest/wevest-devstack/chain"
)

// Env is the execution context of a contract call.
type Env struct {
	b      *Backend
	self   common.Address
	sender common.Address
}

func (e *Env) Self() common.Address {
	return e.self
}

func (e *Env) Sender() common.Address {
	return e.sender
}

func (e *Env) onRevert(undo func()) {
	e.b.journal = append(e.b.journal, undo)
}

// Call calls another contract, with this contract as the sender.
func (e *Env) Call(to common.Address, method string, args ...any) ([]any, error) {
	acct, ok := e.b.accounts[to]
	if !ok {
		return nil, revertf("call to non-contract %s", to)
	}
	k := acct.kind
	input, err := k.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("sim: failed to pack %s.%s: %w", k.name, method, err)
	}
	out, err := e.b.exec(e.self, to, input)
	if err != nil {
		return nil, err
	}
	res, err := k.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("sim: failed to unpack %s.%s: %w", k.name, method, err)
	}
	return res, nil
}

func (e *Env) callAddress(to common.Address, method string, args ...any) (common.Address, error) {
	out, err := e.Call(to, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (e *Env) callU256(to common.Address, method string, args ...any) (*uint256.Int, error) {
	out, err := e.Call(to, method, args...)
	if err != nil {
		return nil, err
	}
	v, _ := uint256.FromBig(out[0].(*big.Int))
	return v, nil
}

func (e *Env) callBig(to common.Address, method string, args ...any) (*big.Int, error) {
	out, err := e.Call(to, method, args...)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (e *Env) callUint8(to common.Address, method string, args ...any) (uint8, error) {
	out, err := e.Call(to, method, args...)
	if err != nil {
		return 0, err
	}
	return out[0].(uint8), nil
}

func (e *Env) callString(to common.Address, method string, args ...any) (string, error) {
	out, err := e.Call(to, method, args...)
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// CreateProxy creates a proxy in front of impl, owned by this contract,
// and calls initMethod on it when not empty.
func (e *Env) CreateProxy(impl common.Address, initMethod string, args ...any) (common.Address, error) {
	implAcct, ok := e.b.accounts[impl]
	if !ok || implAcct.proxy {
		return common.Address{}, revertf("proxy implementation %s is not a contract", impl)
	}
	addr := e.b.nextAddress(e.self)
	e.onRevert(func() { e.b.nonces[e.self]-- })
	acct := &account{
		kind:  implAcct.kind,
		state: implAcct.kind.newState(),
		proxy: true,
		impl:  impl,
		nonce: 1,
	}
	if err := e.b.putAccount(addr, acct); err != nil {
		return common.Address{}, err
	}
	if initMethod != "" {
		if _, err := e.Call(addr, initMethod, args...); err != nil {
			return common.Address{}, err
		}
	}
	return addr, nil
}

// UpgradeProxy points a proxy at a new implementation of the same contract type.
// The proxy state is kept.
func (e *Env) UpgradeProxy(proxy, impl common.Address) error {
	acct, ok := e.b.accounts[proxy]
	if !ok || !acct.proxy {
		return revertf("%s is not a proxy", proxy)
	}
	implAcct, ok := e.b.accounts[impl]
	if !ok || implAcct.proxy {
		return revertf("proxy implementation %s is not a contract", impl)
	}
	if implAcct.kind != acct.kind {
		return revertf("cannot upgrade %s proxy to %s", acct.kind.name, implAcct.kind.name)
	}
	setField(e, &acct.impl, impl)
	return nil
}

// setField assigns v to *p, restoring the old value on revert.
func setField[T any](e *Env, p *T, v T) {
	old := *p
	*p = v
	e.onRevert(func() { *p = old })
}

// setKey assigns m[k] = v, restoring the old entry on revert.
func setKey[K comparable, V any](e *Env, m map[K]V, k K, v V) {
	old, existed := m[k]
	m[k] = v
	e.onRevert(func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// appendField appends to the slice at p without aliasing the old backing array.
func appendField[T any](e *Env, p *[]T, v ...T) {
	setField(e, p, append(slices.Clone(*p), v...))
}

func revertf(format string, args ...any) error {
	return chain.Revert(fmt.Sprintf(format, args...))
}

func revert(reason string) error {
	return chain.Revert(reason)
}

func argAddress(args []any, i int) common.Address {
	return args[i].(common.Address)
}

func argAddresses(args []any, i int) []common.Address {
	return args[i].([]common.Address)
}

func argBig(args []any, i int) *big.Int {
	return args[i].(*big.Int)
}

func argU256(args []any, i int) *uint256.Int {
	v, _ := uint256.FromBig(args[i].(*big.Int))
	return v
}

func argUint8(args []any, i int) uint8 {
	return args[i].(uint8)
}

func argString(args []any, i int) string {
	return args[i].(string)
}

func argBool(args []any, i int) bool {
	return args[i].(bool)
}

func ret(values ...any) ([]any, error) {
	return values, nil
}

func pow10(decimals uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}

// mulDiv computes x*y/d, reverting on overflow or division by zero.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, revert("DIVISION_BY_ZERO")
	}
	out, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, revert("MATH_OVERFLOW")
	}
	return out, nil
}
