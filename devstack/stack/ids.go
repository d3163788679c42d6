package stack

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind names the type of component an ID refers to.
type Kind string

// idWithChain is the shared shape of the component IDs: a name, scoped to a chain.
type idWithChain struct {
	Key     string
	ChainID uint64
}

func (id idWithChain) string(kind Kind) string {
	return fmt.Sprintf("%s-%s-%d", kind, id.Key, id.ChainID)
}

func (id idWithChain) marshalText(kind Kind) ([]byte, error) {
	if id.Key == "" {
		return nil, fmt.Errorf("%s must have a key", kind)
	}
	return []byte(id.string(kind)), nil
}

func (id *idWithChain) unmarshalText(kind Kind, data []byte) error {
	rest, ok := strings.CutPrefix(string(data), string(kind)+"-")
	if !ok {
		return fmt.Errorf("expected %s id, got %q", kind, data)
	}
	i := strings.LastIndexByte(rest, '-')
	if i <= 0 {
		return fmt.Errorf("%s id %q has no chain id", kind, data)
	}
	chainID, err := strconv.ParseUint(rest[i+1:], 10, 64)
	if err != nil {
		return fmt.Errorf("%s id %q has invalid chain id: %w", kind, data, err)
	}
	id.Key = rest[:i]
	id.ChainID = chainID
	return nil
}

func lessIDWithChain(a, b idWithChain) bool {
	if a.ChainID != b.ChainID {
		return a.ChainID < b.ChainID
	}
	return a.Key < b.Key
}

// copyAndSort returns a sorted copy, leaving the input untouched.
func copyAndSort[V any](vs []V, less func(a, b V) bool) []V {
	out := slices.Clone(vs)
	slices.SortFunc(out, func(a, b V) int {
		if less(a, b) {
			return -1
		}
		if less(b, a) {
			return 1
		}
		return 0
	})
	return out
}
