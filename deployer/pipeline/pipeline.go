package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/deployer/state"
)

type StageFn func(ctx context.Context, env *Env, st *state.Deployment) error

// Stage moves a deployment from one phase to the next.
type Stage struct {
	Name  string
	From  state.Phase
	Apply StageFn
}

// Stages lists the bootstrap stages in order.
var Stages = []Stage{
	{Name: "libraries", From: state.Unstarted, Apply: DeployLibraries},
	{Name: "directory", From: state.LibrariesDeployed, Apply: DeployDirectory},
	{Name: "implementations", From: state.DirectoryReady, Apply: DeployImplementations},
	{Name: "reserves", From: state.ImplementationsRegistered, Apply: InitReserves},
	{Name: "oracles", From: state.ReservesInitialized, Apply: SeedOracles},
	{Name: "ready", From: state.OraclesSeeded, Apply: EnableReserves},
}

// NewDeployment starts a deployment record for the chain behind env.
func NewDeployment(ctx context.Context, env *Env) (*state.Deployment, error) {
	if err := env.check(); err != nil {
		return nil, err
	}
	chainID, err := env.Backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	st := state.New(chainID.Uint64(), env.Market.MarketID, env.Deployer.Address)
	st.EmergencyAdmin = env.EmergencyAdmin
	return st, nil
}

// RunStage applies one stage. A failing stage marks the deployment failed.
// Failed deployments and stages out of order are rejected before anything is sent.
func RunStage(ctx context.Context, env *Env, st *state.Deployment, stage Stage) error {
	if st.Phase == state.Failed {
		return fmt.Errorf("cannot run stage %s: %w: %s", stage.Name, state.ErrFailed, st.Error)
	}
	if st.Phase != stage.From {
		return fmt.Errorf("cannot run stage %s: %w: deployment is %s, stage expects %s",
			stage.Name, state.ErrOutOfOrder, st.Phase, stage.From)
	}
	if err := env.check(); err != nil {
		return err
	}
	lgr := env.Logger.New("stage", stage.Name, "run", st.RunID)
	lgr.Info("running stage", "phase", st.Phase)

	start := time.Now()
	err := stage.Apply(ctx, env, st)
	env.Metrics.RecordStage(stage.Name, time.Since(start))
	if err != nil {
		if errors.Is(err, chain.ErrReverted) {
			env.Metrics.RecordRevert(stage.Name)
		}
		st.Fail(err)
		env.Metrics.RecordPhase(st.Phase.Index())
		lgr.Error("stage failed", "err", err)
		return fmt.Errorf("stage %s failed: %w", stage.Name, err)
	}
	if err := st.Advance(stage.From); err != nil {
		return err
	}
	env.Metrics.RecordPhase(st.Phase.Index())
	lgr.Info("stage complete", "phase", st.Phase, "duration", time.Since(start))
	if env.OnStage != nil {
		env.OnStage(stage, st)
	}
	return nil
}

// Run applies every stage the deployment has not completed yet.
func Run(ctx context.Context, env *Env, st *state.Deployment) error {
	if st.Phase == state.Failed {
		return fmt.Errorf("%w: %s", state.ErrFailed, st.Error)
	}
	if err := env.check(); err != nil {
		return err
	}
	if st.Phase == state.Unstarted {
		if err := SetStartBlock(ctx, env, st); err != nil {
			st.Fail(err)
			return err
		}
	}
	for _, stage := range Stages {
		if stage.From.Index() < st.Phase.Index() {
			continue
		}
		if err := RunStage(ctx, env, st, stage); err != nil {
			return err
		}
	}
	return nil
}

// Deploy starts a new deployment record and runs every stage on it.
// The record is returned even when a stage fails.
func Deploy(ctx context.Context, env *Env) (*state.Deployment, error) {
	st, err := NewDeployment(ctx, env)
	if err != nil {
		return nil, err
	}
	return st, Run(ctx, env, st)
}
