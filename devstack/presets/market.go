package presets

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/devstack/dsl"
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/devstack/sysgo"
	"github.com/wevest/wevest-devstack/devstack/sysrpc"
)

// LendingMarket is a deployed market with a funded cast of users.
type LendingMarket struct {
	Log     log.Logger
	Network *dsl.Network
	Market  *dsl.Market

	Deployer       *dsl.User
	EmergencyAdmin *dsl.User
	Users          []*dsl.User
}

// NewLendingMarket deploys the default two reserve market.
func NewLendingMarket(t stack.T, opts ...stack.Option) *LendingMarket {
	return NewLendingMarketWithConfig(t, config.DefaultSimMarket(), opts...)
}

func NewLendingMarketWithConfig(t stack.T, cfg *config.Market, opts ...stack.Option) *LendingMarket {
	setup := NewSetup(t,
		WithTestLogger(),
		WithEmptySystem(),
		WithGlobalOrchestrator())

	for _, opt := range opts {
		opt(setup)
	}

	var (
		netID           stack.NetworkID
		market          stack.MarketID
		deployer, admin stack.UserID
		users           []stack.UserID
	)
	switch setup.Orchestrator.(type) {
	case *sysgo.Orchestrator:
		ids, opt := sysgo.DefaultSystem(cfg)
		opt(setup)
		netID, market, deployer, admin, users = ids.Network, ids.Market, ids.Deployer, ids.EmergencyAdmin, ids.Users
	case *sysrpc.Orchestrator:
		ids, opt := sysrpc.DefaultSystemExt(cfg)
		opt(setup)
		netID, market, deployer, admin, users = ids.Network, ids.Market, ids.Deployer, ids.EmergencyAdmin, ids.Users
	default:
		setup.Require.FailNow("unsupported orchestrator", "%T", setup.Orchestrator)
	}

	sys := dsl.Hydrate(setup)
	net := sys.Network(netID)
	out := &LendingMarket{
		Log:            setup.Log,
		Network:        net,
		Market:         net.Market(market),
		Deployer:       net.User(deployer),
		EmergencyAdmin: net.User(admin),
	}
	for _, id := range users {
		out.Users = append(out.Users, net.User(id))
	}
	return out
}
