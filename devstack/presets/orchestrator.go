package presets

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/wevest/wevest-devstack/devstack/shim"
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/devstack/sysgo"
	"github.com/wevest/wevest-devstack/devstack/sysrpc"
	"github.com/wevest/wevest-devstack/service/locks"
	wvlog "github.com/wevest/wevest-devstack/service/log"
	"github.com/wevest/wevest-devstack/service/testlog"
)

// EnvOrchestrator selects the global orchestrator: "sysgo" (default) or "sysrpc".
const EnvOrchestrator = "DEVSTACK_ORCHESTRATOR"

// lockedOrchestrator is shared by every preset of the test binary,
// unless a setup picks another one with WithOrchestrator.
var lockedOrchestrator locks.RWValue[stack.Orchestrator]

// DoMain creates the global orchestrator, runs the tests of m and then
// the cleanups of the orchestrator. It exits the process.
func DoMain(m *testing.M) {
	defer func() {
		if x := recover(); x != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic during test Main: %v\n", x)
			os.Exit(1)
		}
	}()

	logger := wvlog.NewLogger(os.Stdout, wvlog.CLIConfig{
		Level:  log.LevelInfo,
		Color:  true,
		Format: wvlog.FormatTerminal,
		Pid:    false,
	})

	t := stack.NewToolingT("Main", logger)

	initOrchestrator(t, t.Logger())
	code := m.Run()
	if err := t.RunCleanup(); err != nil && code == 0 {
		code = 1
	}
	os.Exit(code)
}

func initOrchestrator(t stack.T, logger log.Logger) {
	lockedOrchestrator.Lock()
	defer lockedOrchestrator.Unlock()
	if lockedOrchestrator.Value != nil {
		return
	}
	kind, ok := os.LookupEnv(EnvOrchestrator)
	if !ok {
		logger.Warn("Selecting sysgo as default devstack orchestrator")
		kind = "sysgo"
	}
	switch kind {
	case "sysgo":
		lockedOrchestrator.Value = sysgo.NewOrchestrator(t, logger)
	case "sysrpc":
		lockedOrchestrator.Value = sysrpc.NewOrchestrator(t, logger)
	default:
		logger.Crit("Unknown devstack backend", "kind", kind)
	}
}

// Orchestrator is the orchestrator created by DoMain.
func Orchestrator() stack.Orchestrator {
	out := lockedOrchestrator.Get()
	if out == nil {
		panic("no global orchestrator: call presets.DoMain(m) from TestMain")
	}
	return out
}

// WithOrchestrator attaches the given orchestrator instead of the global one.
func WithOrchestrator(orch stack.Orchestrator) stack.Option {
	return func(setup *stack.Setup) {
		setup.Require.Nil(setup.Orchestrator, "cannot change existing orchestrator of setup")
		setup.Orchestrator = orch
	}
}

// WithGlobalOrchestrator uses Orchestrator().
func WithGlobalOrchestrator() stack.Option {
	return func(setup *stack.Setup) {
		setup.Require.Nil(setup.Orchestrator, "cannot change existing orchestrator of setup")
		setup.Orchestrator = Orchestrator()
	}
}

// WithTestLogger logs through the test handle of the setup.
func WithTestLogger() stack.Option {
	return func(setup *stack.Setup) {
		setup.Require.Nil(setup.Log, "must not already have a logger")
		setup.Log = testlog.Logger(setup.T, log.LevelInfo)
	}
}

// WithEmptySystem starts the setup with a system without networks.
func WithEmptySystem() stack.Option {
	return func(setup *stack.Setup) {
		setup.Require.Nil(setup.System, "must not already have a system")
		setup.Require.NotNil(setup.Log, "need logger")
		setup.System = shim.NewSystem(shim.SystemConfig{
			CommonConfig: shim.CommonConfig{
				Log: setup.Log,
				T:   setup.T,
			},
		})
	}
}

// NewSetup builds a setup for t and applies opts to it. The context of the
// setup is canceled when t is cleaned up.
func NewSetup(t stack.T, opts ...stack.Option) *stack.Setup {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	setup := &stack.Setup{
		Ctx:          ctx,
		Log:          nil,
		T:            t,
		Require:      require.New(t),
		System:       nil,
		Orchestrator: nil,
	}
	for _, opt := range opts {
		opt(setup)
	}
	return setup
}
