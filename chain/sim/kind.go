package sim

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/wevest/wevest-devstack/bindings"
)

type handler func(e *Env, st any, args []any) ([]any, error)

// method is a contract function over the typed contract state S.
type method[S any] func(e *Env, st *S, args []any) ([]any, error)

// kind is a contract type the in-memory chain can instantiate.
type kind struct {
	name     string
	abi      *abi.ABI
	links    []string
	newState func() any
	ctor     handler
	methods  map[string]handler
}

func define[S any](name string, links []string, newState func() *S, ctor method[S], methods map[string]method[S]) *kind {
	k := &kind{
		name:     name,
		abi:      bindings.MustABI(name),
		links:    links,
		newState: func() any { return newState() },
		methods:  make(map[string]handler, len(methods)),
	}
	if ctor != nil {
		k.ctor = func(e *Env, st any, args []any) ([]any, error) {
			return ctor(e, st.(*S), args)
		}
	}
	for name, m := range methods {
		k.methods[name] = func(e *Env, st any, args []any) ([]any, error) {
			return m(e, st.(*S), args)
		}
	}
	return k
}

func merge[S any](sets ...map[string]method[S]) map[string]method[S] {
	out := make(map[string]method[S])
	for _, set := range sets {
		for name, m := range set {
			out[name] = m
		}
	}
	return out
}

// defaultKinds is the contract set of a new backend.
func defaultKinds() []*kind {
	return []*kind{
		addressesProviderKind(),
		providerRegistryKind(),
		libraryKind(bindings.ReserveLogic),
		libraryKind(bindings.GenericLogic),
		libraryKind(bindings.ValidationLogic, bindings.GenericLogic),
		lendingPoolKind(),
		configuratorKind(),
		wvTokenKind(),
		debtTokenKind(),
		strategyKind(),
		dataProviderKind(),
		priceOracleKind(),
		mockAggregatorKind(),
		weth9Kind(),
		wevestOracleKind(),
		mintableERC20Kind(),
		mockVaultKind(),
		yieldFarmingPoolKind(),
		tokenSwapKind(),
	}
}

type library struct{}

func libraryKind(name string, links ...string) *kind {
	return define[library](name, links, func() *library { return &library{} }, nil, nil)
}
