package bindings

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/wevest/wevest-devstack/chain"
)

// Role is a proxy-backed entry of the addresses provider.
type Role string

const (
	RoleLendingPool             Role = "LendingPool"
	RoleLendingPoolConfigurator Role = "LendingPoolConfigurator"
	RoleTokenSwap               Role = "TokenSwap"
	RoleYieldFarmingPool        Role = "YieldFarmingPool"
)

// ProxyRoles lists the proxy-backed roles, in registration order.
var ProxyRoles = []Role{RoleLendingPool, RoleLendingPoolConfigurator, RoleTokenSwap, RoleYieldFarmingPool}

func (r Role) setter() string {
	return "set" + string(r) + "Impl"
}

func (r Role) getter() string {
	return "get" + string(r)
}

// AddressesProvider is the directory of the protocol roles.
type AddressesProvider struct {
	*Contract
}

func BindAddressesProvider(ctx context.Context, addr common.Address, backend chain.Backend) (*AddressesProvider, error) {
	c, err := Bind(ctx, LendingPoolAddressesProvider, addr, backend)
	if err != nil {
		return nil, err
	}
	return &AddressesProvider{c}, nil
}

// SetImpl installs the implementation of a proxy-backed role.
func (p *AddressesProvider) SetImpl(ctx context.Context, from chain.Account, role Role, impl common.Address) (*types.Receipt, error) {
	return p.Transact(ctx, from, role.setter(), impl)
}

// Get reads the address of a role. It is zero until the role is set.
func (p *AddressesProvider) Get(ctx context.Context, role Role) (common.Address, error) {
	return p.CallAddress(ctx, role.getter())
}

func (p *AddressesProvider) SetPoolAdmin(ctx context.Context, from chain.Account, admin common.Address) (*types.Receipt, error) {
	return p.Transact(ctx, from, "setPoolAdmin", admin)
}

func (p *AddressesProvider) PoolAdmin(ctx context.Context) (common.Address, error) {
	return p.CallAddress(ctx, "getPoolAdmin")
}

func (p *AddressesProvider) SetEmergencyAdmin(ctx context.Context, from chain.Account, admin common.Address) (*types.Receipt, error) {
	return p.Transact(ctx, from, "setEmergencyAdmin", admin)
}

func (p *AddressesProvider) EmergencyAdmin(ctx context.Context) (common.Address, error) {
	return p.CallAddress(ctx, "getEmergencyAdmin")
}

func (p *AddressesProvider) SetPriceOracle(ctx context.Context, from chain.Account, oracle common.Address) (*types.Receipt, error) {
	return p.Transact(ctx, from, "setPriceOracle", oracle)
}

func (p *AddressesProvider) PriceOracle(ctx context.Context) (common.Address, error) {
	return p.CallAddress(ctx, "getPriceOracle")
}

func (p *AddressesProvider) MarketID(ctx context.Context) (string, error) {
	var out string
	err := p.CallInto(ctx, &out, "getMarketId")
	return out, err
}

func (p *AddressesProvider) Owner(ctx context.Context) (common.Address, error) {
	return p.CallAddress(ctx, "owner")
}

// Registry tracks addresses providers by id.
type Registry struct {
	*Contract
}

func BindRegistry(ctx context.Context, addr common.Address, backend chain.Backend) (*Registry, error) {
	c, err := Bind(ctx, LendingPoolAddressesProviderRegistry, addr, backend)
	if err != nil {
		return nil, err
	}
	return &Registry{c}, nil
}

func (r *Registry) Register(ctx context.Context, from chain.Account, provider common.Address, id uint64) (*types.Receipt, error) {
	return r.Transact(ctx, from, "registerAddressesProvider", provider, new(big.Int).SetUint64(id))
}

func (r *Registry) Providers(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	err := r.CallInto(ctx, &out, "getAddressesProvidersList")
	return out, err
}

func (r *Registry) ProviderID(ctx context.Context, provider common.Address) (uint64, error) {
	id, err := r.CallBig(ctx, "getAddressesProviderIdByAddress", provider)
	if err != nil {
		return 0, err
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("provider id %s out of range", id)
	}
	return id.Uint64(), nil
}
