package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	wvlog "github.com/wevest/wevest-devstack/service/log"
)

var (
	Version   = "v0.0.0"
	GitCommit = ""
)

func main() {
	app := newApp()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "wv-deployer"
	app.Usage = "Deploys and inspects Wevest lending markets"
	app.Version = Version
	if GitCommit != "" {
		app.Version += "-" + GitCommit
	}
	app.Flags = wvlog.CLIFlags(EnvVarPrefix)
	app.Before = func(ctx *cli.Context) error {
		cfg, err := wvlog.ReadCLIConfig(ctx)
		if err != nil {
			return err
		}
		wvlog.SetGlobalLogHandler(wvlog.NewLogHandler(ctx.App.ErrWriter, cfg))
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:   "deploy",
			Usage:  "Deploys a market to an RPC node and writes the deployment record",
			Flags:  append(deployFlags(), RPCURLFlag, RPCRateFlag, ArtifactsFlag, PrivateKeyFlag),
			Action: deployAction,
		},
		{
			Name:   "simulate",
			Usage:  "Deploys a market to an in-memory chain",
			Flags:  append(deployFlags(), ChainIDFlag),
			Action: simulateAction,
		},
		{
			Name:      "inspect",
			Usage:     "Prints a deployment record",
			ArgsUsage: "<record path or URL>",
			Flags:     []cli.Flag{QueryFlag, NoColorFlag},
			Action:    inspectAction,
		},
		{
			Name:      "init-config",
			Usage:     "Writes the default market config",
			ArgsUsage: "<path.toml|path.yaml>",
			Action:    initConfigAction,
		},
	}
	return app
}
