package sysgo

import (
	"github.com/wevest/wevest-devstack/devstack/devkeys"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

func WithMnemonicKeys(mnemonic string) stack.Option {
	return func(setup *stack.Setup) {
		orch := getOrchestrator(setup)
		hd, err := devkeys.NewMnemonicDevKeys(mnemonic)
		setup.Require.NoError(err)
		orch.keys = hd
	}
}
