// Package sysrpc runs systems against an existing JSON-RPC node, such as a
// hardhat or anvil mainnet fork. Markets are deployed once per orchestrator,
// or hydrated from a deployment record.
package sysrpc

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/wevest/wevest-devstack/chain/rpc"
	"github.com/wevest/wevest-devstack/deployer/artifacts"
	"github.com/wevest/wevest-devstack/deployer/state"
	"github.com/wevest/wevest-devstack/devstack/devkeys"
	"github.com/wevest/wevest-devstack/devstack/stack"
	"github.com/wevest/wevest-devstack/service/locks"
)

const (
	EnvRPCURL    = "WV_DEVSTACK_RPC_URL"
	EnvRecord    = "WV_DEVSTACK_RECORD"
	EnvArtifacts = "WV_DEVSTACK_ARTIFACTS"
	EnvMnemonic  = "WV_DEVSTACK_MNEMONIC"

	DefaultRPCURL = "http://127.0.0.1:8545"
)

type OrchestratorOption func(*Orchestrator)

type Orchestrator struct {
	t   stack.T
	log log.Logger

	rpcURL    string
	recordURL string
	fs        afero.Fs
	artifacts artifacts.Source
	mnemonic  string
	loader    *state.Loader

	dialLock sync.Mutex
	backend  *rpc.Backend

	keys *devkeys.MnemonicDevKeys

	// markets are deployed once and shared by every setup of the orchestrator
	deployLock  sync.Mutex
	deployments locks.RWMap[stack.MarketID, *state.Deployment]
}

var _ stack.Orchestrator = (*Orchestrator)(nil)

// NewOrchestrator reads its defaults from the WV_DEVSTACK_* environment.
func NewOrchestrator(t stack.T, log log.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		t:        t,
		log:      log,
		rpcURL:   DefaultRPCURL,
		fs:       afero.NewOsFs(),
		mnemonic: devkeys.TestMnemonic,
	}
	if v, ok := os.LookupEnv(EnvRPCURL); ok {
		o.rpcURL = v
	}
	o.recordURL = os.Getenv(EnvRecord)
	if v, ok := os.LookupEnv(EnvMnemonic); ok {
		o.mnemonic = v
	}
	if dir, ok := os.LookupEnv(EnvArtifacts); ok {
		src, err := artifacts.NewDirSource(o.fs, dir)
		if err != nil {
			log.Error("Failed to open artifacts", "dir", dir, "err", err)
		} else {
			o.artifacts = src
		}
	}
	for _, opt := range opts {
		opt(o)
	}
	o.loader = state.NewLoader(o.fs, http.DefaultClient)
	return o
}

func (o *Orchestrator) T() stack.T {
	return o.t
}

func (o *Orchestrator) Log() log.Logger {
	return o.log
}

// Backend dials the node on first use and keeps the first connection that
// succeeds. It lives as long as the orchestrator.
func (o *Orchestrator) Backend(ctx context.Context) (*rpc.Backend, error) {
	o.dialLock.Lock()
	defer o.dialLock.Unlock()
	if o.backend != nil {
		return o.backend, nil
	}
	backend, err := rpc.Dial(ctx, o.rpcURL, o.log.New("rpc", o.rpcURL), rpc.Config{})
	if err != nil {
		return nil, err
	}
	o.t.Cleanup(backend.Close)
	o.backend = backend
	return backend, nil
}

func WithRPCURL(url string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.rpcURL = url
	}
}

// WithRecord hydrates markets from the deployment record at url instead of deploying them.
func WithRecord(url string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.recordURL = url
	}
}

func WithArtifacts(src artifacts.Source) OrchestratorOption {
	return func(o *Orchestrator) {
		o.artifacts = src
	}
}

func WithFs(fs afero.Fs) OrchestratorOption {
	return func(o *Orchestrator) {
		o.fs = fs
	}
}

func getOrchestrator(setup *stack.Setup) *Orchestrator {
	o, ok := setup.Orchestrator.(*Orchestrator)
	setup.Require.True(ok, "orchestrator is not a sysrpc Orchestrator")
	return o
}
