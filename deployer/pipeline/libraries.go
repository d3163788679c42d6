package pipeline

import (
	"context"
	"fmt"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/deployer/artifacts"
	"github.com/wevest/wevest-devstack/deployer/state"
)

// DeployLibraries deploys every library the lending pool links against,
// dependencies first.
func DeployLibraries(ctx context.Context, env *Env, st *state.Deployment) error {
	lgr := env.Logger.New("stage", "deploy-libraries")

	graph, err := artifacts.BuildGraph(env.Artifacts, bindings.LendingPool)
	if err != nil {
		return fmt.Errorf("failed to build library graph: %w", err)
	}
	order, err := graph.Order()
	if err != nil {
		return fmt.Errorf("failed to order libraries: %w", err)
	}
	for _, name := range order {
		if name == bindings.LendingPool {
			continue
		}
		addr, err := env.deploy(ctx, lgr, st, name)
		if err != nil {
			return err
		}
		st.Libraries[name] = addr
	}
	lgr.Info("libraries deployed", "order", order)
	return nil
}
