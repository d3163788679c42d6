package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/deployer/state"
)

// roleSlots maps a proxy role to its implementation and proxy fields in the record.
func roleSlots(st *state.Deployment, role bindings.Role) (impl, proxy *common.Address) {
	a := &st.Addresses
	switch role {
	case bindings.RoleLendingPool:
		return &a.LendingPoolImpl, &a.LendingPool
	case bindings.RoleLendingPoolConfigurator:
		return &a.ConfiguratorImpl, &a.Configurator
	case bindings.RoleTokenSwap:
		return &a.TokenSwapImpl, &a.TokenSwap
	case bindings.RoleYieldFarmingPool:
		return &a.YieldFarmingPoolImpl, &a.YieldFarmingPool
	}
	panic(fmt.Sprintf("unknown role %s", role))
}

// DeployImplementations deploys the implementation of every proxy role,
// installs it in the directory and resolves the proxy the directory created.
func DeployImplementations(ctx context.Context, env *Env, st *state.Deployment) error {
	lgr := env.Logger.New("stage", "deploy-implementations")

	provider, err := bindings.BindAddressesProvider(ctx, st.Addresses.AddressesProvider, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind addresses provider: %w", err)
	}
	seen := make(map[common.Address]bindings.Role)
	for _, role := range bindings.ProxyRoles {
		implSlot, proxySlot := roleSlots(st, role)
		impl, err := env.deploy(ctx, lgr, st, string(role))
		if err != nil {
			return err
		}
		*implSlot = impl

		proxy, err := ResolveProxy(ctx, env, provider, role, impl)
		if err != nil {
			return err
		}
		if other, dup := seen[proxy]; dup {
			return fmt.Errorf("%w: %s and %s resolve to %s", ErrAliasedAddress, other, role, proxy)
		}
		seen[proxy] = role
		*proxySlot = proxy
		lgr.Info("proxy resolved", "role", role, "impl", impl, "proxy", proxy)
	}
	return nil
}

// ResolveProxy installs impl for role and reads back the proxy address.
// The proxy must be a new contract distinct from the implementation.
func ResolveProxy(ctx context.Context, env *Env, provider *bindings.AddressesProvider, role bindings.Role, impl common.Address) (common.Address, error) {
	if err := env.sentFor("set implementation", string(role))(provider.SetImpl(ctx, env.Deployer, role, impl)); err != nil {
		return common.Address{}, err
	}
	proxy, err := provider.Get(ctx, role)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read %s proxy: %w", role, err)
	}
	if proxy == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s proxy: %w", role, ErrZeroAddress)
	}
	if proxy == impl {
		return common.Address{}, fmt.Errorf("%w: %s proxy equals its implementation %s", ErrAliasedAddress, role, impl)
	}
	if _, err := bindings.Bind(ctx, string(role), proxy, env.Backend); err != nil {
		return common.Address{}, fmt.Errorf("failed to bind %s proxy: %w", role, err)
	}
	return proxy, nil
}
