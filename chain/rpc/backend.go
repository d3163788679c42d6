// Package rpc implements chain.Backend against a JSON-RPC node.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"github.com/wevest/wevest-devstack/chain"
)

const (
	defaultReceiptTimeout = time.Minute
	defaultPollInterval   = 500 * time.Millisecond
	fallbackGasLimit      = 8_000_000
)

type Config struct {
	// ReceiptTimeout bounds the wait for each transaction receipt.
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
	// GasMultiplier scales the gas estimate, in percent. 0 means 120.
	GasMultiplier uint64
	// RequestsPerSecond throttles transactions and calls. 0 is unlimited.
	RequestsPerSecond float64
}

type Backend struct {
	log    log.Logger
	rpc    *gethrpc.Client
	client *ethclient.Client
	cfg    Config
	limit  *rate.Limiter

	// chainID is cached once a query succeeds
	chainIDLock sync.Mutex
	chainID     *big.Int

	// serializes nonce assignment per sender
	sendLock sync.Mutex
}

var (
	_ chain.Backend      = (*Backend)(nil)
	_ chain.Impersonator = (*Backend)(nil)
)

// Dial connects to the node at rpcURL.
func Dial(ctx context.Context, rpcURL string, logger log.Logger, cfg Config) (*Backend, error) {
	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return NewBackend(rpcClient, logger, cfg), nil
}

func NewBackend(rpcClient *gethrpc.Client, logger log.Logger, cfg Config) *Backend {
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = defaultReceiptTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.GasMultiplier == 0 {
		cfg.GasMultiplier = 120
	}
	limit := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limit = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Backend{
		log:    logger,
		rpc:    rpcClient,
		client: ethclient.NewClient(rpcClient),
		cfg:    cfg,
		limit:  limit,
	}
}

func (b *Backend) Client() *ethclient.Client {
	return b.client
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	b.chainIDLock.Lock()
	defer b.chainIDLock.Unlock()
	if b.chainID == nil {
		id, err := b.client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
		b.chainID = id
	}
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	return b.client.BlockNumber(ctx)
}

func (b *Backend) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return b.client.CodeAt(ctx, addr, nil)
}

func (b *Backend) Call(ctx context.Context, from common.Address, to common.Address, data []byte) ([]byte, error) {
	if err := b.limit.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := b.client.CallContract(ctx, ethereum.CallMsg{From: from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, asRevert(err)
	}
	return out, nil
}

func (b *Backend) Deploy(ctx context.Context, from chain.Account, code []byte) (common.Address, *types.Receipt, error) {
	receipt, err := b.send(ctx, from, nil, code)
	if err != nil {
		return common.Address{}, receipt, err
	}
	if receipt.ContractAddress == (common.Address{}) {
		return common.Address{}, receipt, fmt.Errorf("receipt of tx %s has no contract address", receipt.TxHash)
	}
	return receipt.ContractAddress, receipt, nil
}

func (b *Backend) Transact(ctx context.Context, from chain.Account, to common.Address, data []byte) (*types.Receipt, error) {
	return b.send(ctx, from, &to, data)
}

func (b *Backend) send(ctx context.Context, from chain.Account, to *common.Address, data []byte) (*types.Receipt, error) {
	if from.Key == nil {
		return nil, chain.ErrMissingSigner
	}
	if err := b.limit.Wait(ctx); err != nil {
		return nil, err
	}
	chainID, err := b.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	b.sendLock.Lock()
	nonce, err := b.client.PendingNonceAt(ctx, from.Address)
	if err != nil {
		b.sendLock.Unlock()
		return nil, fmt.Errorf("failed to get pending nonce: %w", err)
	}
	gasLimit, gasTipCap, gasFeeCap, err := b.gasParams(ctx, from.Address, to, data)
	if err != nil {
		b.sendLock.Unlock()
		return nil, err
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        to,
		Data:      data,
	})
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), from.Key)
	if err != nil {
		b.sendLock.Unlock()
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	err = b.client.SendTransaction(ctx, signedTx)
	b.sendLock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", asRevert(err))
	}
	b.log.Debug("Sent transaction", "hash", signedTx.Hash(), "from", from.Address, "nonce", nonce)
	return b.awaitSuccess(ctx, signedTx.Hash())
}

// gasParams estimates the gas limit and picks EIP-1559 fee caps of 2*baseFee+tip.
// An estimation failure is returned as a revert when the node reports one.
func (b *Backend) gasParams(ctx context.Context, from common.Address, to *common.Address, data []byte) (uint64, *big.Int, *big.Int, error) {
	header, err := b.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to get header: %w", err)
	}
	gasTipCap, err := b.client.SuggestGasTipCap(ctx)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to get suggested gas tip: %w", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	gasFeeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), gasTipCap)

	estimated, err := b.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: to, Data: data})
	if err != nil {
		if rev := asRevert(err); errors.Is(rev, chain.ErrReverted) {
			return 0, nil, nil, rev
		}
		b.log.Warn("Gas estimation failed, using fallback limit", "err", err)
		return fallbackGasLimit, gasTipCap, gasFeeCap, nil
	}
	return estimated * b.cfg.GasMultiplier / 100, gasTipCap, gasFeeCap, nil
}

func (b *Backend) awaitSuccess(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.ReceiptTimeout)
	defer cancel()
	receipt, err := waitForTransaction(ctx, b.client, hash, b.cfg.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction: %w", err)
	}
	if receipt == nil {
		return nil, chain.ErrNoReceipt
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("tx %s failed with status %d: %w", hash, receipt.Status, chain.ErrReverted)
	}
	return receipt, nil
}

// Impersonate unlocks addr on a hardhat or anvil node.
func (b *Backend) Impersonate(ctx context.Context, addr common.Address) error {
	if err := b.rpc.CallContext(ctx, nil, "hardhat_impersonateAccount", addr); err != nil {
		return fmt.Errorf("failed to impersonate %s: %w", addr, err)
	}
	return nil
}

// TransactAs sends an unsigned transaction from an impersonated address.
func (b *Backend) TransactAs(ctx context.Context, from common.Address, to common.Address, data []byte) (*types.Receipt, error) {
	args := map[string]any{
		"from": from,
		"to":   to,
		"data": hexutil.Bytes(data),
	}
	var hash common.Hash
	if err := b.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return nil, fmt.Errorf("failed to send impersonated transaction: %w", asRevert(err))
	}
	return b.awaitSuccess(ctx, hash)
}

func (b *Backend) Close() {
	b.rpc.Close()
}

// asRevert converts a JSON-RPC error with revert data into a chain.RevertError.
func asRevert(err error) error {
	var dataErr gethrpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}
	var data []byte
	switch v := dataErr.ErrorData().(type) {
	case string:
		decoded, decErr := hexutil.Decode(v)
		if decErr != nil {
			return err
		}
		data = decoded
	default:
		return err
	}
	return chain.NewRevertError(data)
}
