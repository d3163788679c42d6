// Package sim is an in-memory chain that runs Go stand-ins of the lending
// protocol contracts behind their real ABIs.
//
// Creation code understood by the backend is produced by Artifacts: a magic
// header, the contract name and one 20 byte slot per linked library, followed
// by the ABI encoded constructor input. Library slots are hardhat link
// placeholders until linked, so the usual link and deploy flow applies.
package sim

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/wevest/wevest-devstack/chain"
)

const DefaultChainID = 31337

var (
	codeMagic  = []byte{0xfe, 'w', 'v', 's', 'i', 'm'}
	proxyMagic = []byte{0xfe, 'w', 'v', 'p', 'x', 'y'}

	ErrUnknownCode     = errors.New("creation code is not understood by the simulator")
	ErrNotImpersonated = errors.New("account is not impersonated")
)

var (
	_ chain.Backend      = (*Backend)(nil)
	_ chain.Impersonator = (*Backend)(nil)
)

type account struct {
	kind  *kind
	state any
	code  []byte
	proxy bool
	impl  common.Address
	nonce uint64
}

// Backend is an in-memory chain. Every transaction is mined into its own block.
type Backend struct {
	mu sync.Mutex

	log     log.Logger
	chainID *big.Int
	block   uint64

	kinds        map[string]*kind
	accounts     map[common.Address]*account
	nonces       map[common.Address]uint64
	impersonated map[common.Address]bool

	journal []func()
}

type Option func(b *Backend)

func WithChainID(id uint64) Option {
	return func(b *Backend) {
		b.chainID = new(big.Int).SetUint64(id)
	}
}

// WithStartBlock makes the chain start at the given height.
func WithStartBlock(n uint64) Option {
	return func(b *Backend) {
		b.block = n
	}
}

func NewBackend(logger log.Logger, opts ...Option) *Backend {
	b := &Backend{
		log:          logger,
		chainID:      big.NewInt(DefaultChainID),
		kinds:        make(map[string]*kind),
		accounts:     make(map[common.Address]*account),
		nonces:       make(map[common.Address]uint64),
		impersonated: make(map[common.Address]bool),
	}
	for _, k := range defaultKinds() {
		b.kinds[k.name] = k
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block, nil
}

func (b *Backend) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acct, ok := b.accounts[addr]; ok {
		return bytes.Clone(acct.code), nil
	}
	return nil, nil
}

func (b *Backend) Close() {}

func (b *Backend) Deploy(ctx context.Context, from chain.Account, code []byte) (common.Address, *types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, nil, err
	}
	if from.Key == nil {
		return common.Address{}, nil, chain.ErrMissingSigner
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	nonce := b.nonces[from.Address]
	addr := b.nextAddress(from.Address)
	receipt := b.mine(from.Address, nonce)
	err := b.atomic(func() error {
		return b.create(from.Address, addr, code)
	})
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		return common.Address{}, receipt, fmt.Errorf("failed to create contract: %w", err)
	}
	receipt.ContractAddress = addr
	b.log.Debug("Contract created", "address", addr, "kind", b.accounts[addr].kind.name, "block", receipt.BlockNumber)
	return addr, receipt, nil
}

func (b *Backend) Transact(ctx context.Context, from chain.Account, to common.Address, data []byte) (*types.Receipt, error) {
	if from.Key == nil {
		return nil, chain.ErrMissingSigner
	}
	return b.transact(ctx, from.Address, to, data)
}

// Impersonate allows TransactAs to send transactions from addr.
func (b *Backend) Impersonate(ctx context.Context, addr common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.impersonated[addr] = true
	return nil
}

func (b *Backend) TransactAs(ctx context.Context, from common.Address, to common.Address, data []byte) (*types.Receipt, error) {
	b.mu.Lock()
	ok := b.impersonated[from]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotImpersonated, from)
	}
	return b.transact(ctx, from, to, data)
}

func (b *Backend) transact(ctx context.Context, from, to common.Address, data []byte) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	nonce := b.nonces[from]
	b.nonces[from] = nonce + 1
	receipt := b.mine(from, nonce)
	err := b.atomic(func() error {
		_, err := b.exec(from, to, data)
		return err
	})
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, err
	}
	return receipt, nil
}

// Call executes data against the current state and discards every change.
func (b *Backend) Call(ctx context.Context, from common.Address, to common.Address, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.journal = nil
	defer b.rollback()
	return b.exec(from, to, data)
}

func (b *Backend) atomic(fn func() error) error {
	b.journal = nil
	if err := fn(); err != nil {
		b.rollback()
		return err
	}
	b.journal = nil
	return nil
}

func (b *Backend) rollback() {
	for i := len(b.journal) - 1; i >= 0; i-- {
		b.journal[i]()
	}
	b.journal = nil
}

func (b *Backend) mine(from common.Address, nonce uint64) *types.Receipt {
	b.block++
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return &types.Receipt{
		Type:        types.DynamicFeeTxType,
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      crypto.Keccak256Hash(from.Bytes(), n[:]),
		BlockNumber: new(big.Int).SetUint64(b.block),
		GasUsed:     21_000,
	}
}

// nextAddress returns the next CREATE address of creator and bumps its nonce.
func (b *Backend) nextAddress(creator common.Address) common.Address {
	nonce := b.nonces[creator]
	b.nonces[creator] = nonce + 1
	return crypto.CreateAddress(creator, nonce)
}

func (b *Backend) putAccount(addr common.Address, acct *account) error {
	if _, ok := b.accounts[addr]; ok {
		return fmt.Errorf("sim: contract address collision at %s", addr)
	}
	if acct.proxy {
		acct.code = append(bytes.Clone(proxyMagic), acct.impl.Bytes()...)
	}
	b.accounts[addr] = acct
	b.journal = append(b.journal, func() { delete(b.accounts, addr) })
	return nil
}

func (b *Backend) create(creator, addr common.Address, code []byte) error {
	if !bytes.HasPrefix(code, codeMagic) || len(code) < len(codeMagic)+1 {
		return ErrUnknownCode
	}
	rest := code[len(codeMagic):]
	nameLen := int(rest[0])
	rest = rest[1:]
	if len(rest) < nameLen {
		return ErrUnknownCode
	}
	name := string(rest[:nameLen])
	rest = rest[nameLen:]
	k, ok := b.kinds[name]
	if !ok {
		return fmt.Errorf("%w: unknown contract %q", ErrUnknownCode, name)
	}
	if len(rest) < len(k.links)*common.AddressLength {
		return fmt.Errorf("%w: truncated library section of %s", ErrUnknownCode, name)
	}
	for _, lib := range k.links {
		libAddr := common.BytesToAddress(rest[:common.AddressLength])
		rest = rest[common.AddressLength:]
		libAcct, ok := b.accounts[libAddr]
		if !ok || libAcct.kind.name != lib {
			return revertf("%s: library %s is not deployed at %s", name, lib, libAddr)
		}
	}
	args, err := k.abi.Constructor.Inputs.Unpack(rest)
	if err != nil {
		return fmt.Errorf("sim: failed to decode %s constructor input: %w", name, err)
	}
	acct := &account{
		kind:  k,
		state: k.newState(),
		code:  bytes.Clone(code[:len(code)-len(rest)]),
		nonce: 1,
	}
	if err := b.putAccount(addr, acct); err != nil {
		return err
	}
	b.nonces[addr] = 1
	b.journal = append(b.journal, func() { delete(b.nonces, addr) })
	if k.ctor == nil {
		return nil
	}
	_, err = k.ctor(&Env{b: b, self: addr, sender: creator}, acct.state, args)
	return err
}

func (b *Backend) exec(from, to common.Address, input []byte) (out []byte, err error) {
	acct, ok := b.accounts[to]
	if !ok {
		return nil, nil
	}
	k := acct.kind
	if len(input) < 4 {
		return nil, revert("function selector was not recognized and there's no fallback function")
	}
	m, err := k.abi.MethodById(input[:4])
	if err != nil {
		return nil, revert("function selector was not recognized and there's no fallback function")
	}
	h, ok := k.methods[m.Name]
	if !ok {
		return nil, revert("function selector was not recognized and there's no fallback function")
	}
	args, err := m.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, revertf("invalid calldata for %s", m.Sig)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sim: %s.%s panicked: %v", k.name, m.Name, r)
		}
	}()
	rets, err := h(&Env{b: b, self: to, sender: from}, acct.state, args)
	if err != nil {
		return nil, err
	}
	out, err = m.Outputs.Pack(rets...)
	if err != nil {
		return nil, fmt.Errorf("sim: %s.%s returned invalid outputs: %w", k.name, m.Name, err)
	}
	return out, nil
}
