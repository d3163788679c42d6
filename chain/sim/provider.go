package sim

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/wevest/wevest-devstack/bindings"
)

const errNotOwner = "Ownable: caller is not the owner"

type addressID [32]byte

func idOf(name string) addressID {
	var id addressID
	copy(id[:], name)
	return id
}

var (
	idLendingPool             = idOf("LENDING_POOL")
	idLendingPoolConfigurator = idOf("LENDING_POOL_CONFIGURATOR")
	idTokenSwap               = idOf("TOKEN_SWAP")
	idYieldFarmingPool        = idOf("YIELD_FARMING_POOL")
	idPoolAdmin               = idOf("POOL_ADMIN")
	idEmergencyAdmin          = idOf("EMERGENCY_ADMIN")
	idPriceOracle             = idOf("PRICE_ORACLE")
)

type addressesProvider struct {
	owner     common.Address
	marketID  string
	addresses map[addressID]common.Address
}

func (p *addressesProvider) onlyOwner(e *Env) error {
	if e.sender != p.owner {
		return revert(errNotOwner)
	}
	return nil
}

// proxied installs impl behind the proxy of id, creating the proxy on first use.
func proxySetter(id addressID) method[addressesProvider] {
	return func(e *Env, st *addressesProvider, args []any) ([]any, error) {
		if err := st.onlyOwner(e); err != nil {
			return nil, err
		}
		impl := argAddress(args, 0)
		if proxy, ok := st.addresses[id]; ok {
			return nil, e.UpgradeProxy(proxy, impl)
		}
		proxy, err := e.CreateProxy(impl, "initialize", e.self)
		if err != nil {
			return nil, err
		}
		setKey(e, st.addresses, id, proxy)
		return nil, nil
	}
}

func addressSetter(id addressID) method[addressesProvider] {
	return func(e *Env, st *addressesProvider, args []any) ([]any, error) {
		if err := st.onlyOwner(e); err != nil {
			return nil, err
		}
		setKey(e, st.addresses, id, argAddress(args, 0))
		return nil, nil
	}
}

func addressGetter(id addressID) method[addressesProvider] {
	return func(e *Env, st *addressesProvider, args []any) ([]any, error) {
		return ret(st.addresses[id])
	}
}

func addressesProviderKind() *kind {
	return define[addressesProvider](bindings.LendingPoolAddressesProvider, nil,
		func() *addressesProvider {
			return &addressesProvider{addresses: make(map[addressID]common.Address)}
		},
		func(e *Env, st *addressesProvider, args []any) ([]any, error) {
			st.owner = e.sender
			st.marketID = argString(args, 0)
			return nil, nil
		},
		map[string]method[addressesProvider]{
			"owner": func(e *Env, st *addressesProvider, args []any) ([]any, error) {
				return ret(st.owner)
			},
			"transferOwnership": func(e *Env, st *addressesProvider, args []any) ([]any, error) {
				if err := st.onlyOwner(e); err != nil {
					return nil, err
				}
				next := argAddress(args, 0)
				if next == (common.Address{}) {
					return nil, revert("Ownable: new owner is the zero address")
				}
				setField(e, &st.owner, next)
				return nil, nil
			},
			"getMarketId": func(e *Env, st *addressesProvider, args []any) ([]any, error) {
				return ret(st.marketID)
			},
			"setMarketId": func(e *Env, st *addressesProvider, args []any) ([]any, error) {
				if err := st.onlyOwner(e); err != nil {
					return nil, err
				}
				setField(e, &st.marketID, argString(args, 0))
				return nil, nil
			},
			"setAddress": func(e *Env, st *addressesProvider, args []any) ([]any, error) {
				if err := st.onlyOwner(e); err != nil {
					return nil, err
				}
				setKey(e, st.addresses, addressID(args[0].([32]byte)), argAddress(args, 1))
				return nil, nil
			},
			"getAddress": func(e *Env, st *addressesProvider, args []any) ([]any, error) {
				return ret(st.addresses[addressID(args[0].([32]byte))])
			},
			"setLendingPoolImpl":             proxySetter(idLendingPool),
			"getLendingPool":                 addressGetter(idLendingPool),
			"setLendingPoolConfiguratorImpl": proxySetter(idLendingPoolConfigurator),
			"getLendingPoolConfigurator":     addressGetter(idLendingPoolConfigurator),
			"setTokenSwapImpl":               proxySetter(idTokenSwap),
			"getTokenSwap":                   addressGetter(idTokenSwap),
			"setYieldFarmingPoolImpl":        proxySetter(idYieldFarmingPool),
			"getYieldFarmingPool":            addressGetter(idYieldFarmingPool),
			"setPoolAdmin":                   addressSetter(idPoolAdmin),
			"getPoolAdmin":                   addressGetter(idPoolAdmin),
			"setEmergencyAdmin":              addressSetter(idEmergencyAdmin),
			"getEmergencyAdmin":              addressGetter(idEmergencyAdmin),
			"setPriceOracle":                 addressSetter(idPriceOracle),
			"getPriceOracle":                 addressGetter(idPriceOracle),
		},
	)
}

// providerOf reads a role address from the addresses provider at provider.
func providerOf(e *Env, provider common.Address, getter string) (common.Address, error) {
	if provider == (common.Address{}) {
		return common.Address{}, revert("ADDRESSES_PROVIDER_NOT_SET")
	}
	return e.callAddress(provider, getter)
}

type providerRegistry struct {
	owner     common.Address
	ids       map[common.Address]uint256.Int
	providers []common.Address
}

func providerRegistryKind() *kind {
	return define[providerRegistry](bindings.LendingPoolAddressesProviderRegistry, nil,
		func() *providerRegistry {
			return &providerRegistry{ids: make(map[common.Address]uint256.Int)}
		},
		func(e *Env, st *providerRegistry, args []any) ([]any, error) {
			st.owner = e.sender
			return nil, nil
		},
		map[string]method[providerRegistry]{
			"owner": func(e *Env, st *providerRegistry, args []any) ([]any, error) {
				return ret(st.owner)
			},
			"registerAddressesProvider": func(e *Env, st *providerRegistry, args []any) ([]any, error) {
				if e.sender != st.owner {
					return nil, revert(errNotOwner)
				}
				provider, id := argAddress(args, 0), argU256(args, 1)
				if id.IsZero() {
					return nil, revert("INVALID_ADDRESSES_PROVIDER_ID")
				}
				if _, known := st.ids[provider]; !known {
					appendField(e, &st.providers, provider)
				}
				setKey(e, st.ids, provider, *id)
				return nil, nil
			},
			"unregisterAddressesProvider": func(e *Env, st *providerRegistry, args []any) ([]any, error) {
				if e.sender != st.owner {
					return nil, revert(errNotOwner)
				}
				provider := argAddress(args, 0)
				id := st.ids[provider]
				if id.IsZero() {
					return nil, revert("PROVIDER_NOT_REGISTERED")
				}
				setKey(e, st.ids, provider, uint256.Int{})
				return nil, nil
			},
			"getAddressesProvidersList": func(e *Env, st *providerRegistry, args []any) ([]any, error) {
				out := make([]common.Address, len(st.providers))
				for i, provider := range st.providers {
					id := st.ids[provider]
					if !id.IsZero() {
						out[i] = provider
					}
				}
				return ret(out)
			},
			"getAddressesProviderIdByAddress": func(e *Env, st *providerRegistry, args []any) ([]any, error) {
				id := st.ids[argAddress(args, 0)]
				return ret(id.ToBig())
			},
		},
	)
}
