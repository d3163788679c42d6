package shim

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

type UserConfig struct {
	CommonConfig
	ID      stack.UserID
	Account chain.Account
}

type presetUser struct {
	component
	id      stack.UserID
	account chain.Account
}

var _ stack.User = (*presetUser)(nil)

func NewUser(cfg UserConfig) stack.User {
	check(cfg.CommonConfig).NotNil(cfg.Account.Key, "user %s needs a key", cfg.ID)
	return &presetUser{
		component: newComponent(cfg.CommonConfig, stack.UserKind, "id", cfg.ID, "address", cfg.Account.Address),
		id:        cfg.ID,
		account:   cfg.Account,
	}
}

func (p *presetUser) ID() stack.UserID {
	return p.id
}

func (p *presetUser) Account() chain.Account {
	return p.account
}

func (p *presetUser) Address() common.Address {
	return p.account.Address
}

func (p *presetUser) ChainID() uint64 {
	return p.id.ChainID
}
