package dsl

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/devstack/stack"
)

const defaultTimeout = 30 * time.Second

// common is embedded by every DSL type and exposes nothing.
type common struct {
	ctx     context.Context
	log     log.Logger
	t       stack.T
	require *require.Assertions
}

// commonWithLog copies c with another logger. It is a function so that it
// is not promoted into the DSL types.
func commonWithLog(c common, log log.Logger) common {
	return common{
		ctx:     c.ctx,
		log:     log,
		t:       c.t,
		require: c.require,
	}
}

// timeout bounds a single chain interaction.
func (c *common) timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, defaultTimeout)
}

type System struct {
	common
	log log.Logger
	sys stack.System
}

func (s *System) Network(id stack.NetworkID) *Network {
	net := s.sys.Network(id)
	return newNetwork(commonWithLog(s.common, s.log.New("id", id)), net)
}

func Hydrate(setup *stack.Setup) *System {
	return &System{
		common: common{
			ctx:     setup.Ctx,
			log:     setup.Log,
			t:       setup.T,
			require: setup.Require,
		},
		log: setup.Log,
		sys: setup.System,
	}
}

func applyOpts[Config any](defaultConfig Config, opts ...func(config *Config)) Config {
	for _, opt := range opts {
		opt(&defaultConfig)
	}
	return defaultConfig
}
