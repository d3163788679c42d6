// Package pipeline deploys and wires a lending market in ordered stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/wevest/wevest-devstack/bindings"
	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/artifacts"
	"github.com/wevest/wevest-devstack/deployer/metrics"
	"github.com/wevest/wevest-devstack/deployer/state"
)

var (
	// ErrZeroAddress is shared with bindings, so failed binds and zero
	// getters match the same sentinel.
	ErrZeroAddress    = bindings.ErrZeroAddress
	ErrAliasedAddress = errors.New("aliased address")
	ErrTokenNotFound  = errors.New("token not found")
	ErrPriceMismatch  = errors.New("oracle price does not match the submitted price")
	ErrWrongChain     = errors.New("deployment belongs to another chain")
	ErrMarketMismatch = errors.New("deployment does not match the market config")
)

// Env is what the stages deploy with. All transactions are sent by Deployer,
// which is also the pool admin.
type Env struct {
	Backend        chain.Backend
	Deployer       chain.Account
	EmergencyAdmin common.Address
	Artifacts      artifacts.Source
	Market         *config.Market
	Logger         log.Logger
	Metrics        metrics.Metricer

	// OnStage is called after every completed stage.
	OnStage func(stage Stage, st *state.Deployment)
}

func (env *Env) check() error {
	if env.Backend == nil {
		return errors.New("env has no backend")
	}
	if env.Deployer.Key == nil {
		return fmt.Errorf("deployer %s: %w", env.Deployer.Address, chain.ErrMissingSigner)
	}
	if env.Artifacts == nil {
		return errors.New("env has no artifact source")
	}
	if env.Market == nil {
		return errors.New("env has no market config")
	}
	if err := env.Market.Check(); err != nil {
		return fmt.Errorf("invalid market config: %w", err)
	}
	if env.Logger == nil {
		env.Logger = log.Root()
	}
	if env.Metrics == nil {
		env.Metrics = metrics.NoopMetrics
	}
	if env.EmergencyAdmin == (common.Address{}) {
		env.EmergencyAdmin = env.Deployer.Address
	}
	return nil
}

// deploy links the named artifact against the deployed libraries and deploys it.
func (env *Env) deploy(ctx context.Context, lgr log.Logger, st *state.Deployment, name string, args ...any) (common.Address, error) {
	art, err := env.Artifacts.Artifact(name)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s: %w", name, err)
	}
	code, err := art.DeployData(st.Libraries, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s: %w", name, err)
	}
	addr, receipt, err := env.Backend.Deploy(ctx, env.Deployer, code)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s: %w", name, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("failed to deploy %s: %w", name, ErrZeroAddress)
	}
	env.Metrics.RecordDeployment(name)
	lgr.Info("deployed contract", "name", name, "address", addr, "block", receipt.BlockNumber)
	return addr, nil
}

// sent records a transaction result, wrapping a failure with what was attempted.
// method is the metric label and stays the same across markets.
func (env *Env) sent(method string) func(*types.Receipt, error) error {
	return env.sentFor(method, "")
}

// sentFor is sent for a transaction about one subject, like a reserve symbol.
// The subject goes to the log and the error, never to the metric label.
func (env *Env) sentFor(method, subject string) func(*types.Receipt, error) error {
	return func(receipt *types.Receipt, err error) error {
		if err != nil {
			if subject != "" {
				return fmt.Errorf("failed to %s for %s: %w", method, subject, err)
			}
			return fmt.Errorf("failed to %s: %w", method, err)
		}
		env.Metrics.RecordTransaction(method)
		if receipt != nil {
			env.Logger.Debug("transaction included", "method", method, "subject", subject, "block", receipt.BlockNumber)
		}
		return nil
	}
}
