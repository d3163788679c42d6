package main

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/wevest/wevest-devstack/config"
)

func initConfigAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one output path")
	}
	path := ctx.Args().First()
	fs := afero.NewOsFs()
	if ok, err := afero.Exists(fs, path); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Write(fs, path, config.DefaultSimMarket()); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "wrote %s\n", path)
	return nil
}
