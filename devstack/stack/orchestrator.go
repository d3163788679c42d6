// Package stack defines the components of a system under test and the
// options that assemble them.
package stack

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

// Orchestrator owns the chains behind a system: in-memory chains for sysgo,
// an existing node for sysrpc. It outlives the setups that use it.
type Orchestrator interface {
	// T is the handle the orchestrator was created under, usually a ToolingT
	// owned by TestMain.
	T() T
	// Log is for output about the chains rather than about one test.
	Log() log.Logger
}

// Setup is what options build a system with. It is only valid while the
// options run.
type Setup struct {
	// Ctx is canceled when the test that created the setup ends.
	Ctx context.Context
	// Log is inherited by the components the options create.
	Log     log.Logger
	T       T
	Require *require.Assertions
	// System is where options register the components tests can use.
	System ExtensibleSystem
	// Orchestrator provides the chains.
	Orchestrator Orchestrator
}

// Option builds part of a system.
type Option func(setup *Setup)

// Add makes fn apply the other options after itself.
func (fn *Option) Add(other ...Option) {
	inner := *fn
	*fn = func(setup *Setup) {
		inner(setup)
		for _, opt := range other {
			opt(setup)
		}
	}
}
