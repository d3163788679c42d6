package rpc

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/service/testlog"
)

type revertErr struct {
	data string
}

func (e *revertErr) Error() string          { return "execution reverted" }
func (e *revertErr) ErrorCode() int         { return 3 }
func (e *revertErr) ErrorData() interface{} { return e.data }

var pool = common.HexToAddress("0x1111111111111111111111111111111111111111")

type fakeEth struct{}

func (f *fakeEth) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(31337))
}

func (f *fakeEth) BlockNumber() hexutil.Uint64 {
	return 7
}

func (f *fakeEth) GetCode(addr common.Address, block string) hexutil.Bytes {
	if addr == pool {
		return hexutil.Bytes{0x60, 0x80}
	}
	return hexutil.Bytes{}
}

func (f *fakeEth) Call(args map[string]interface{}, block string) (hexutil.Bytes, error) {
	return nil, &revertErr{data: hexutil.Encode(chain.EncodeRevert("CALLER_NOT_POOL_ADMIN"))}
}

// flakyEth fails its first chain id queries.
type flakyEth struct {
	fakeEth
	failures int
	queries  int
}

func (f *flakyEth) ChainId() (*hexutil.Big, error) {
	f.queries++
	if f.queries <= f.failures {
		return nil, errors.New("node is starting")
	}
	return f.fakeEth.ChainId(), nil
}

type fakeHardhat struct {
	impersonated []common.Address
}

func (f *fakeHardhat) ImpersonateAccount(addr common.Address) error {
	f.impersonated = append(f.impersonated, addr)
	return nil
}

func newTestBackend(t *testing.T) (*Backend, *fakeHardhat) {
	srv := gethrpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", new(fakeEth)))
	hh := new(fakeHardhat)
	require.NoError(t, srv.RegisterName("hardhat", hh))
	t.Cleanup(srv.Stop)
	b := NewBackend(gethrpc.DialInProc(srv), testlog.Logger(t, log.LevelInfo), Config{})
	t.Cleanup(b.Close)
	return b, hh
}

func TestBackendReads(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	id, err := b.ChainID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(31337), id.Int64())

	n, err := b.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(7), n)

	require.NoError(t, chain.EnsureCode(ctx, b, pool))
	require.ErrorIs(t, chain.EnsureCode(ctx, b, common.Address{0x2}), chain.ErrNoCode)
}

func TestBackendCallRevert(t *testing.T) {
	b, _ := newTestBackend(t)
	_, err := b.Call(context.Background(), common.Address{}, pool, []byte{0x01, 0x02, 0x03, 0x04})
	require.ErrorIs(t, err, chain.ErrReverted)
	reason, ok := chain.RevertReason(err)
	require.True(t, ok)
	require.Equal(t, "CALLER_NOT_POOL_ADMIN", reason)
}

func TestBackendImpersonate(t *testing.T) {
	b, hh := newTestBackend(t)
	whale := common.HexToAddress("0xb55167e8c781816508988A75cB15B66173C69509")
	require.NoError(t, b.Impersonate(context.Background(), whale))
	require.Equal(t, []common.Address{whale}, hh.impersonated)
}

func TestSendRequiresKey(t *testing.T) {
	b, _ := newTestBackend(t)
	_, err := b.Transact(context.Background(), chain.Account{Address: pool}, pool, nil)
	require.ErrorIs(t, err, chain.ErrMissingSigner)
}

func TestBackendThrottles(t *testing.T) {
	srv := gethrpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", new(fakeEth)))
	t.Cleanup(srv.Stop)
	b := NewBackend(gethrpc.DialInProc(srv), testlog.Logger(t, log.LevelInfo), Config{RequestsPerSecond: 0.01})
	t.Cleanup(b.Close)

	_, err := b.Call(context.Background(), common.Address{}, pool, nil)
	require.ErrorIs(t, err, chain.ErrReverted)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = b.Call(ctx, common.Address{}, pool, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, chain.ErrReverted, "throttled before reaching the node")
}

func TestChainIDRetriesAfterError(t *testing.T) {
	srv := gethrpc.NewServer()
	eth := &flakyEth{failures: 1}
	require.NoError(t, srv.RegisterName("eth", eth))
	t.Cleanup(srv.Stop)
	b := NewBackend(gethrpc.DialInProc(srv), testlog.Logger(t, log.LevelInfo), Config{})
	t.Cleanup(b.Close)
	ctx := context.Background()

	_, err := b.ChainID(ctx)
	require.ErrorContains(t, err, "node is starting")

	id, err := b.ChainID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(31337), id.Int64())

	id.SetInt64(1)
	again, err := b.ChainID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(31337), again.Int64())
	require.Equal(t, 2, eth.queries, "a known chain id is not queried again")
}
