package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRevertRoundTrip(t *testing.T) {
	data := EncodeRevert("RESERVE_ALREADY_INITIALIZED")
	rev := NewRevertError(data)
	require.Equal(t, "RESERVE_ALREADY_INITIALIZED", rev.Reason)
	require.ErrorIs(t, rev, ErrReverted)
	require.Equal(t, "execution reverted: RESERVE_ALREADY_INITIALIZED", rev.Error())
}

func TestRevertReasonWrapped(t *testing.T) {
	err := fmt.Errorf("failed to init reserves: %w", Revert("INVALID_DECIMALS"))
	reason, ok := RevertReason(err)
	require.True(t, ok)
	require.Equal(t, "INVALID_DECIMALS", reason)

	_, ok = RevertReason(errors.New("boom"))
	require.False(t, ok)
}

func TestRevertWithoutReason(t *testing.T) {
	rev := NewRevertError([]byte{0xde, 0xad})
	require.Equal(t, "", rev.Reason)
	require.Equal(t, "execution reverted: 0xdead", rev.Error())
}
