// Package sysgo runs systems on in-memory chains.
package sysgo

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/wevest/wevest-devstack/chain/sim"
	"github.com/wevest/wevest-devstack/devstack/devkeys"
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/service/locks"
)

type Orchestrator struct {
	t   stack.T
	log log.Logger

	keys *devkeys.MnemonicDevKeys

	backends locks.RWMap[stack.NetworkID, *sim.Backend]
}

var _ stack.Orchestrator = (*Orchestrator)(nil)

func NewOrchestrator(t stack.T, log log.Logger) *Orchestrator {
	return &Orchestrator{t: t, log: log}
}

func (o *Orchestrator) T() stack.T {
	return o.t
}

func (o *Orchestrator) Log() log.Logger {
	return o.log
}

func getOrchestrator(setup *stack.Setup) *Orchestrator {
	o, ok := setup.Orchestrator.(*Orchestrator)
	setup.Require.True(ok, "orchestrator is not a sysgo Orchestrator")
	return o
}
