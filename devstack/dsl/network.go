package dsl

import (
	"github.com/wevest/wevest-devstack/chain"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

type Network struct {
	common

	net stack.Network
}

func newNetwork(c common, net stack.Network) *Network {
	return &Network{
		common: c,
		net:    net,
	}
}

func (n *Network) ChainID() uint64 {
	return n.net.ChainID()
}

func (n *Network) Backend() chain.Backend {
	return n.net.Backend()
}

func (n *Network) User(id stack.UserID) *User {
	return newUser(commonWithLog(n.common, n.log.New("user", id)), n.net.User(id))
}

func (n *Network) Market(id stack.MarketID) *Market {
	return newMarket(commonWithLog(n.common, n.log.New("market", id)), n.net.Market(id), n.net.Backend())
}

// BlockNumber is the head of the chain.
func (n *Network) BlockNumber() uint64 {
	ctx, cancel := n.timeout()
	defer cancel()
	head, err := n.net.Backend().BlockNumber(ctx)
	n.require.NoError(err, "failed to read block number")
	return head
}
