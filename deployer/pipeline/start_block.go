package pipeline

import (
	"context"
	"fmt"

	"github.com/wevest/wevest-devstack/deployer/state"
)

// SetStartBlock records the chain head before anything is deployed, so
// consumers of the deployment know where to start scanning from.
func SetStartBlock(ctx context.Context, env *Env, st *state.Deployment) error {
	lgr := env.Logger.New("stage", "set-start-block")

	chainID, err := env.Backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id: %w", err)
	}
	if st.ChainID != 0 && st.ChainID != chainID.Uint64() {
		return fmt.Errorf("%w: record is for chain %d, backend is chain %d", ErrWrongChain, st.ChainID, chainID.Uint64())
	}
	st.ChainID = chainID.Uint64()

	head, err := env.Backend.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get block number: %w", err)
	}
	st.StartBlock = head
	lgr.Info("setting start block", "chain", st.ChainID, "block", head)
	return nil
}
