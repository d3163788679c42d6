// Package shim holds the in-memory registry that presents orchestrated
// components to tests.
package shim

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/devstack/stack"
)

// CommonConfig is what every component is built from.
type CommonConfig struct {
	Log log.Logger
	T   stack.T
}

func CommonConfigFromSetup(setup *stack.Setup) CommonConfig {
	return CommonConfig{
		Log: setup.Log,
		T:   setup.T,
	}
}

// component is embedded by every shim. Its logger carries the kind of the
// component and the given context.
type component struct {
	log log.Logger
	t   stack.T
	req *require.Assertions
}

var _ stack.Common = (*component)(nil)

func newComponent(cfg CommonConfig, kind stack.Kind, ctx ...any) component {
	return component{
		log: cfg.Log.New(append([]any{"kind", kind}, ctx...)...),
		t:   cfg.T,
		req: require.New(cfg.T),
	}
}

// check asserts against cfg before a component is built from it.
func check(cfg CommonConfig) *require.Assertions {
	return require.New(cfg.T)
}

func (c *component) Logger() log.Logger {
	return c.log
}

func (c *component) T() stack.T {
	return c.t
}

func (c *component) require() *require.Assertions {
	return c.req
}
