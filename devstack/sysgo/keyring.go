package sysgo

import (
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/devstack/devkeys"
)

type keyring struct {
	keys    *devkeys.MnemonicDevKeys
	require *require.Assertions
}

func (k *keyring) Account(i devkeys.Index) chain.Account {
	k.require.NotNil(k.keys, "keys must be set up before accounts are derived")
	acct, err := k.keys.Account(i)
	k.require.NoError(err)
	return acct
}
