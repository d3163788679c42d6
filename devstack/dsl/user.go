package dsl

import (
	gethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

// User is a test actor with its own key.
type User struct {
	common

	user stack.User
}

func newUser(c common, user stack.User) *User {
	return &User{
		common: c,
		user:   user,
	}
}

func (u *User) ID() stack.UserID {
	return u.user.ID()
}

func (u *User) Address() gethcommon.Address {
	return u.user.Address()
}

func (u *User) Account() chain.Account {
	return u.user.Account()
}

func (u *User) String() string {
	return u.user.ID().String()
}
