package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/deployer/state"
)

func testRecord() *state.Deployment {
	st := state.New(31337, "Main Market", common.HexToAddress("0x01"))
	st.Libraries["ValidationLogic"] = common.HexToAddress("0x10")
	st.Addresses.LendingPool = common.HexToAddress("0x20")
	st.Reserves = []state.Reserve{{
		Symbol:   "USDC",
		Asset:    common.HexToAddress("0x30"),
		Decimals: 6,
		WvToken:  common.HexToAddress("0x31"),
	}}
	return st
}

func TestAddressRowsSkipZero(t *testing.T) {
	rows := addressRows(testRecord().Addresses)
	require.Equal(t, [][]string{{"lendingPool", common.HexToAddress("0x20").Hex()}}, rows)
}

func TestPrintSummary(t *testing.T) {
	st := testRecord()
	st.Fail(errors.New("boom"))
	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, st, false))
	out := buf.String()
	require.Contains(t, out, "phase: failed")
	require.Contains(t, out, "error: boom")
	require.Contains(t, out, "ValidationLogic")
	require.Contains(t, out, "USDC")
	require.NotContains(t, out, "\x1b[", "colors are disabled")
}

func TestQueryRecord(t *testing.T) {
	st := testRecord()
	v, err := queryRecord(st, "$.reserves[0].decimals")
	require.NoError(t, err)
	require.EqualValues(t, 6, v)

	v, err = queryRecord(st, "$.marketId")
	require.NoError(t, err)
	require.Equal(t, "Main Market", v)

	_, err = queryRecord(st, "$.nope")
	require.Error(t, err)
}
