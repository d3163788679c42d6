package shim

import (
	"github.com/wevest/wevest-devstack/config"
	"github.com/wevest/wevest-devstack/deployer/state"
	"github.com/wevest/wevest-devstack/devstack/stack"
)

type MarketConfig struct {
	CommonConfig
	ID         stack.MarketID
	Config     *config.Market
	Deployment *state.Deployment
}

type presetMarket struct {
	component
	id         stack.MarketID
	cfg        *config.Market
	deployment *state.Deployment
}

var _ stack.Market = (*presetMarket)(nil)

func NewMarket(cfg MarketConfig) stack.Market {
	req := check(cfg.CommonConfig)
	req.NotNil(cfg.Deployment, "market %s needs a deployment", cfg.ID)
	req.True(cfg.Deployment.Ready(), "market %s deployment must be ready, is %s", cfg.ID, cfg.Deployment.Phase)
	req.Equal(cfg.ID.ChainID, cfg.Deployment.ChainID, "deployment must be on the market chain")
	return &presetMarket{
		component:  newComponent(cfg.CommonConfig, stack.MarketKind, "id", cfg.ID),
		id:         cfg.ID,
		cfg:        cfg.Config,
		deployment: cfg.Deployment,
	}
}

func (p *presetMarket) ID() stack.MarketID {
	return p.id
}

func (p *presetMarket) Config() *config.Market {
	p.require().NotNil(p.cfg, "market %s must have a config", p.id)
	return p.cfg
}

func (p *presetMarket) Deployment() *state.Deployment {
	return p.deployment
}
