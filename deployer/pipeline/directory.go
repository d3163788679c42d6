package pipeline

import (
	"context"
	"fmt"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/deployer/state"
)

// DeployDirectory deploys the addresses provider, installs the admins and
// registers the provider in a new registry.
func DeployDirectory(ctx context.Context, env *Env, st *state.Deployment) error {
	lgr := env.Logger.New("stage", "deploy-directory")

	providerAddr, err := env.deploy(ctx, lgr, st, bindings.LendingPoolAddressesProvider, env.Market.MarketID)
	if err != nil {
		return err
	}
	st.Addresses.AddressesProvider = providerAddr
	provider, err := bindings.BindAddressesProvider(ctx, providerAddr, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind addresses provider: %w", err)
	}
	if err := env.sent("set pool admin")(provider.SetPoolAdmin(ctx, env.Deployer, env.Deployer.Address)); err != nil {
		return err
	}
	if err := env.sent("set emergency admin")(provider.SetEmergencyAdmin(ctx, env.Deployer, env.EmergencyAdmin)); err != nil {
		return err
	}

	registryAddr, err := env.deploy(ctx, lgr, st, bindings.LendingPoolAddressesProviderRegistry)
	if err != nil {
		return err
	}
	st.Addresses.Registry = registryAddr
	registry, err := bindings.BindRegistry(ctx, registryAddr, env.Backend)
	if err != nil {
		return fmt.Errorf("failed to bind registry: %w", err)
	}
	if err := env.sent("register addresses provider")(registry.Register(ctx, env.Deployer, providerAddr, env.Market.ProviderID)); err != nil {
		return err
	}
	lgr.Info("directory ready", "provider", providerAddr, "registry", registryAddr, "id", env.Market.ProviderID)
	return nil
}
