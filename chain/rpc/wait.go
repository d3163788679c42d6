package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// waitForTransaction polls for a transaction receipt until it is available or the context is canceled.
func waitForTransaction(ctx context.Context, client *ethclient.Client, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	startBlockNum, err := client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get starting block number: %w", err)
	}

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if receipt != nil && err == nil {
			return receipt, nil
		} else if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			// the original context is done, query progress with a fresh one
			queryCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			currentBlockNum, blockErr := client.BlockNumber(queryCtx)
			cancel()
			if blockErr != nil {
				return nil, fmt.Errorf("context error: %w (could not determine block progress: %w)", ctx.Err(), blockErr)
			}
			blockProgress := int64(currentBlockNum) - int64(startBlockNum)
			return nil, fmt.Errorf("transaction %s not found after %d blocks: %w", hash.Hex(), blockProgress, ctx.Err())
		case <-ticker.C:
		}
	}
}
