package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/chain/rpc"
	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/artifacts"
	"github.com/wevest/wevest-devstack/deployer/metrics"
	"github.com/wevest/wevest-devstack/deployer/pipeline"
	"github.com/wevest/wevest-devstack/deployer/state"
	"github.com/wevest/wevest-devstack/devstack/devkeys"
)

func loadMarket(fs afero.Fs, ctx *cli.Context) (*config.Market, error) {
	path := ctx.String(ConfigFlag.Name)
	if path == "" {
		return config.DefaultSimMarket(), nil
	}
	return config.Load(fs, path)
}

// accounts resolves the deployer and the emergency admin.
func accounts(ctx *cli.Context) (chain.Account, common.Address, error) {
	keys, err := devkeys.NewMnemonicDevKeys(ctx.String(MnemonicFlag.Name))
	if err != nil {
		return chain.Account{}, common.Address{}, err
	}
	var deployer chain.Account
	if hexKey := ctx.String(PrivateKeyFlag.Name); hexKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			return chain.Account{}, common.Address{}, fmt.Errorf("invalid %s: %w", PrivateKeyFlag.Name, err)
		}
		deployer = chain.NewAccount(key)
	} else if deployer, err = keys.Account(devkeys.Deployer); err != nil {
		return chain.Account{}, common.Address{}, err
	}

	if v := ctx.String(EmergencyAdminFlag.Name); v != "" {
		if !common.IsHexAddress(v) {
			return chain.Account{}, common.Address{}, fmt.Errorf("invalid %s: %q", EmergencyAdminFlag.Name, v)
		}
		return deployer, common.HexToAddress(v), nil
	}
	admin, err := keys.Address(devkeys.EmergencyAdmin)
	if err != nil {
		return chain.Account{}, common.Address{}, err
	}
	return deployer, admin, nil
}

func newProgress(w io.Writer) *progressbar.ProgressBar {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	return progressbar.NewOptions(len(pipeline.Stages),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("deploying"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// runDeployment deploys the market to backend and writes the record, also when a stage fails.
func runDeployment(ctx *cli.Context, fs afero.Fs, backend chain.Backend, src artifacts.Source) (*state.Deployment, error) {
	lgr := log.Root()
	market, err := loadMarket(fs, ctx)
	if err != nil {
		return nil, err
	}
	deployer, admin, err := accounts(ctx)
	if err != nil {
		return nil, err
	}
	m := metrics.NewMetrics(ctx.Command.Name)
	bar := newProgress(ctx.App.ErrWriter)
	env := &pipeline.Env{
		Backend:        backend,
		Deployer:       deployer,
		EmergencyAdmin: admin,
		Artifacts:      src,
		Market:         market,
		Logger:         lgr,
		Metrics:        m,
		OnStage: func(stage pipeline.Stage, st *state.Deployment) {
			if bar != nil {
				bar.Describe(stage.Name)
				_ = bar.Add(1)
			}
		},
	}

	st, deployErr := pipeline.Deploy(ctx.Context, env)
	if bar != nil {
		_ = bar.Finish()
	}
	if st == nil {
		return nil, deployErr
	}
	out := ctx.String(OutFlag.Name)
	if err := state.Write(fs, out, st); err != nil {
		return st, errors.Join(deployErr, err)
	}
	lgr.Info("Wrote deployment record", "path", out, "phase", st.Phase)
	if path := ctx.String(MetricsFileFlag.Name); path != "" {
		if err := m.WriteTextfile(path); err != nil {
			return st, errors.Join(deployErr, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	return st, deployErr
}

func deployAction(ctx *cli.Context) error {
	fs := afero.NewOsFs()
	src, err := artifacts.NewDirSource(fs, ctx.String(ArtifactsFlag.Name))
	if err != nil {
		return err
	}
	backend, err := rpc.Dial(ctx.Context, ctx.String(RPCURLFlag.Name), log.Root(), rpc.Config{
		RequestsPerSecond: ctx.Float64(RPCRateFlag.Name),
	})
	if err != nil {
		return err
	}
	defer backend.Close()
	st, err := runDeployment(ctx, fs, backend, src)
	if err != nil {
		return err
	}
	return printSummary(ctx.App.Writer, st, useColor(ctx.App.Writer, false))
}

func simulateAction(ctx *cli.Context) error {
	fs := afero.NewOsFs()
	backend := sim.NewBackend(log.Root(), sim.WithChainID(ctx.Uint64(ChainIDFlag.Name)))
	defer backend.Close()
	st, err := runDeployment(ctx, fs, backend, sim.Artifacts())
	if err != nil {
		return err
	}
	return printSummary(ctx.App.Writer, st, useColor(ctx.App.Writer, false))
}
