package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrReverted = errors.New("execution reverted")

// RevertError is a failed call or transaction, with the decoded reason if there was one.
type RevertError struct {
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		if len(e.Data) > 0 {
			return fmt.Sprintf("%s: %s", ErrReverted, hexutil.Encode(e.Data))
		}
		return ErrReverted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrReverted, e.Reason)
}

func (e *RevertError) Is(target error) bool {
	return target == ErrReverted
}

// NewRevertError decodes Error(string) revert data.
func NewRevertError(data []byte) *RevertError {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return &RevertError{Data: data}
	}
	return &RevertError{Reason: reason, Data: data}
}

// Revert builds a RevertError with the reason encoded like solidity's require.
func Revert(reason string) *RevertError {
	return &RevertError{Reason: reason, Data: EncodeRevert(reason)}
}

var revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

var stringArgs = abi.Arguments{{Type: mustType("string")}}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// EncodeRevert encodes reason as Error(string) revert data.
func EncodeRevert(reason string) []byte {
	enc, err := stringArgs.Pack(reason)
	if err != nil {
		panic(err)
	}
	return append(append([]byte{}, revertSelector...), enc...)
}

// RevertReason extracts the revert reason of err, if it is a revert.
func RevertReason(err error) (string, bool) {
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev.Reason, true
	}
	return "", false
}
