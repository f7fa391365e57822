package monitor

import (
	"math"

	"github.com/ethereum/go-ethereum/core/types"
)

type BlocksRange struct {
	From uint
	To   uint
}

type LogsBatch struct {
	BlockNumber uint
	Logs        []*types.Log
}

func SplitBlockRange(fromBlock uint, toBlock uint, maxSize uint) []*BlocksRange {
	batches := make([]*BlocksRange, 0, 10)
	for fromBlock <= toBlock {
		batchToBlock := fromBlock + maxSize - 1
		if batchToBlock > toBlock {
			batchToBlock = toBlock
		}
		batches = append(batches, &BlocksRange{
			From: fromBlock,
			To:   batchToBlock,
		})
		fromBlock += maxSize
	}
	return batches
}

// SplitLogsInBatches groups logs sorted by block number into one batch per block.
func SplitLogsInBatches(logs []*types.Log) []*LogsBatch {
	batches := make([]*LogsBatch, 0, 10)
	// fake log to simplify loop, it will be skipped
	logs = append(logs, &types.Log{BlockNumber: math.MaxUint64})
	batchStartIndex := 0
	for i, log := range logs {
		if log.BlockNumber > logs[batchStartIndex].BlockNumber {
			batches = append(batches, &LogsBatch{
				BlockNumber: uint(logs[batchStartIndex].BlockNumber),
				Logs:        logs[batchStartIndex:i],
			})
			batchStartIndex = i
		}
	}
	return batches
}
