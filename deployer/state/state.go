// Package state is the persisted record of a market deployment.
package state

import (
	"errors"
	"fmt"
	"maps"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/google/uuid"
)

var (
	ErrFailed     = errors.New("deployment has failed")
	ErrOutOfOrder = errors.New("deployment phase out of order")
)

// Phase is the progress of a deployment. Phases only move forward, and
// Failed is final.
type Phase string

const (
	Unstarted                 Phase = "unstarted"
	LibrariesDeployed         Phase = "libraries-deployed"
	DirectoryReady            Phase = "directory-ready"
	ImplementationsRegistered Phase = "implementations-registered"
	ReservesInitialized       Phase = "reserves-initialized"
	OraclesSeeded             Phase = "oracles-seeded"
	Ready                     Phase = "ready"
	Failed                    Phase = "failed"
)

// Phases lists the regular phases in order.
var Phases = []Phase{
	Unstarted,
	LibrariesDeployed,
	DirectoryReady,
	ImplementationsRegistered,
	ReservesInitialized,
	OraclesSeeded,
	Ready,
}

// Index is the position of p in Phases, -1 for Failed or unknown phases.
func (p Phase) Index() int {
	for i, phase := range Phases {
		if phase == p {
			return i
		}
	}
	return -1
}

// Next is the phase following p.
func (p Phase) Next() (Phase, bool) {
	i := p.Index()
	if i < 0 || i+1 >= len(Phases) {
		return "", false
	}
	return Phases[i+1], true
}

// Addresses are the protocol level contracts of a deployment.
type Addresses struct {
	AddressesProvider common.Address `json:"addressesProvider" yaml:"addressesProvider"`
	Registry          common.Address `json:"registry" yaml:"registry"`

	LendingPoolImpl      common.Address `json:"lendingPoolImpl" yaml:"lendingPoolImpl"`
	LendingPool          common.Address `json:"lendingPool" yaml:"lendingPool"`
	ConfiguratorImpl     common.Address `json:"configuratorImpl" yaml:"configuratorImpl"`
	Configurator         common.Address `json:"configurator" yaml:"configurator"`
	TokenSwapImpl        common.Address `json:"tokenSwapImpl" yaml:"tokenSwapImpl"`
	TokenSwap            common.Address `json:"tokenSwap" yaml:"tokenSwap"`
	YieldFarmingPoolImpl common.Address `json:"yieldFarmingPoolImpl" yaml:"yieldFarmingPoolImpl"`
	YieldFarmingPool     common.Address `json:"yieldFarmingPool" yaml:"yieldFarmingPool"`

	WvTokenImpl          common.Address `json:"wvTokenImpl" yaml:"wvTokenImpl"`
	DebtTokenImpl        common.Address `json:"debtTokenImpl" yaml:"debtTokenImpl"`
	InterestRateStrategy common.Address `json:"interestRateStrategy" yaml:"interestRateStrategy"`
	DataProvider         common.Address `json:"dataProvider" yaml:"dataProvider"`

	FallbackOracle common.Address `json:"fallbackOracle" yaml:"fallbackOracle"`
	WevestOracle   common.Address `json:"wevestOracle" yaml:"wevestOracle"`
	WETH           common.Address `json:"weth" yaml:"weth"`
	PriceOracle    common.Address `json:"priceOracle" yaml:"priceOracle"`
}

// Reserve is the deployed state of one market asset.
type Reserve struct {
	Symbol     string                `json:"symbol" yaml:"symbol"`
	Asset      common.Address        `json:"asset" yaml:"asset"`
	Decimals   uint8                 `json:"decimals" yaml:"decimals"`
	Mock       bool                  `json:"mock" yaml:"mock"`
	Vault      common.Address        `json:"vault" yaml:"vault"`
	WvToken    common.Address        `json:"wvToken,omitempty" yaml:"wvToken,omitempty"`
	DebtToken  common.Address        `json:"debtToken,omitempty" yaml:"debtToken,omitempty"`
	Aggregator common.Address        `json:"aggregator,omitempty" yaml:"aggregator,omitempty"`
	Price      *math.HexOrDecimal256 `json:"price,omitempty" yaml:"price,omitempty"`
	Borrowable bool                  `json:"borrowable" yaml:"borrowable"`
}

// Deployment records the progress and results of one pipeline run.
type Deployment struct {
	RunID      uuid.UUID `json:"runId" yaml:"runId"`
	ChainID    uint64    `json:"chainId" yaml:"chainId"`
	MarketID   string    `json:"marketId" yaml:"marketId"`
	StartBlock uint64    `json:"startBlock" yaml:"startBlock"`
	Created    time.Time `json:"created" yaml:"created"`

	Phase Phase  `json:"phase" yaml:"phase"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	Deployer       common.Address `json:"deployer" yaml:"deployer"`
	EmergencyAdmin common.Address `json:"emergencyAdmin" yaml:"emergencyAdmin"`

	Libraries map[string]common.Address `json:"libraries" yaml:"libraries"`
	Addresses Addresses                 `json:"addresses" yaml:"addresses"`
	Reserves  []Reserve                 `json:"reserves" yaml:"reserves"`
	EthUsd    *math.HexOrDecimal256     `json:"ethUsdPrice,omitempty" yaml:"ethUsdPrice,omitempty"`
}

func New(chainID uint64, marketID string, deployer common.Address) *Deployment {
	return &Deployment{
		RunID:     uuid.New(),
		ChainID:   chainID,
		MarketID:  marketID,
		Created:   time.Now().UTC().Truncate(time.Second),
		Phase:     Unstarted,
		Deployer:  deployer,
		Libraries: make(map[string]common.Address),
	}
}

// Copy returns a deep copy of d.
func (d *Deployment) Copy() *Deployment {
	out := *d
	out.Libraries = maps.Clone(d.Libraries)
	out.Reserves = make([]Reserve, len(d.Reserves))
	for i, r := range d.Reserves {
		r.Price = copyPrice(r.Price)
		out.Reserves[i] = r
	}
	out.EthUsd = copyPrice(d.EthUsd)
	return &out
}

func copyPrice(p *math.HexOrDecimal256) *math.HexOrDecimal256 {
	if p == nil {
		return nil
	}
	return Price((*big.Int)(p))
}

// Advance moves the deployment to the phase following from.
func (d *Deployment) Advance(from Phase) error {
	if d.Phase == Failed {
		return fmt.Errorf("%w: %s", ErrFailed, d.Error)
	}
	if d.Phase != from {
		return fmt.Errorf("%w: deployment is %s, stage expects %s", ErrOutOfOrder, d.Phase, from)
	}
	next, ok := from.Next()
	if !ok {
		return fmt.Errorf("%w: no phase after %s", ErrOutOfOrder, from)
	}
	d.Phase = next
	return nil
}

// Fail marks the deployment as failed with err as the cause.
func (d *Deployment) Fail(err error) {
	d.Phase = Failed
	d.Error = err.Error()
}

func (d *Deployment) Ready() bool {
	return d.Phase == Ready
}

// Reserve looks up a reserve by asset symbol.
func (d *Deployment) Reserve(symbol string) (*Reserve, bool) {
	for i := range d.Reserves {
		if d.Reserves[i].Symbol == symbol {
			return &d.Reserves[i], true
		}
	}
	return nil, false
}

// ReserveByAsset looks up a reserve by asset address.
func (d *Deployment) ReserveByAsset(asset common.Address) (*Reserve, bool) {
	for i := range d.Reserves {
		if d.Reserves[i].Asset == asset {
			return &d.Reserves[i], true
		}
	}
	return nil, false
}

func Price(v *big.Int) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(new(big.Int).Set(v))
}
