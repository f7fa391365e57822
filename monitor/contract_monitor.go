package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/ethclient"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/utils"
)

const (
	defaultBlockRangesChanCap  = 10
	defaultLogsChanCap         = 200
	defaultEventHandlersMapCap = 4
	defaultRetryInterval       = 10 * time.Second
)

type EventHandler func(ctx context.Context, ev *contract.Event) error

// ContractMonitor polls one contract for confirmed logs and delivers them to
// the registered handlers in chain order from a single goroutine.
type ContractMonitor struct {
	cfg                  *config.NetworkConfig
	logger               logging.Logger
	client               ethclient.Client
	contract             *contract.Contract
	blocksRangeChan      chan *BlocksRange
	logsChan             chan *LogsBatch
	eventHandlers        map[string]EventHandler
	retryInterval        time.Duration
	headBlock            uint
	fetchedBlock         uint
	processedBlock       atomic.Uint64
	started              atomic.Bool
	headBlockMetric      prometheus.Gauge
	fetchedBlockMetric   prometheus.Gauge
	processedBlockMetric prometheus.Gauge
}

func NewContractMonitor(logger logging.Logger, client ethclient.Client, c *contract.Contract, cfg *config.NetworkConfig) *ContractMonitor {
	commonLabels := prometheus.Labels{
		"network": cfg.Name,
		"address": c.Address().String(),
	}
	return &ContractMonitor{
		cfg:                  cfg,
		logger:               logger.WithField("address", c.Address()),
		client:               client,
		contract:             c,
		blocksRangeChan:      make(chan *BlocksRange, defaultBlockRangesChanCap),
		logsChan:             make(chan *LogsBatch, defaultLogsChanCap),
		eventHandlers:        make(map[string]EventHandler, defaultEventHandlersMapCap),
		retryInterval:        defaultRetryInterval,
		headBlockMetric:      LatestHeadBlock.With(commonLabels),
		fetchedBlockMetric:   LatestFetchedBlock.With(commonLabels),
		processedBlockMetric: LatestProcessedBlock.With(commonLabels),
	}
}

// RegisterEventHandler must be called before Start.
func (m *ContractMonitor) RegisterEventHandler(event string, handler EventHandler) {
	m.eventHandlers[event] = handler
}

func (m *ContractMonitor) VerifyEventHandlersABI() error {
	for e := range m.eventHandlers {
		if _, ok := m.contract.ABI().Events[e]; !ok {
			return fmt.Errorf("contract does not have %s event in its ABI", e)
		}
	}
	return nil
}

// ProcessedBlock reports the last block whose logs were handled. The second
// result is false until the monitor is started.
func (m *ContractMonitor) ProcessedBlock() (uint, bool) {
	if !m.started.Load() {
		return 0, false
	}
	return uint(m.processedBlock.Load()), true
}

func (m *ContractMonitor) Start(ctx context.Context, fromBlock uint) {
	if fromBlock > 0 {
		m.fetchedBlock = fromBlock - 1
		m.processedBlock.Store(uint64(fromBlock - 1))
	}
	m.started.Store(true)
	go m.StartBlockFetcher(ctx, fromBlock)
	go m.StartLogsFetcher(ctx)
	go m.StartLogsProcessor(ctx)
}

func (m *ContractMonitor) StartBlockFetcher(ctx context.Context, start uint) {
	m.logger.WithField("from_block", start).Info("starting new blocks tracker")

	for {
		head, err := m.client.BlockNumber(ctx)
		if err != nil {
			m.logger.WithError(err).Error("can't fetch latest block number")
		} else if head >= m.cfg.BlockConfirmations {
			head -= m.cfg.BlockConfirmations
			m.recordHeadBlockNumber(head)

			for _, blocksRange := range SplitBlockRange(start, head, m.cfg.MaxBlockRangeSize) {
				m.logger.WithFields(logrus.Fields{
					"from_block": blocksRange.From,
					"to_block":   blocksRange.To,
				}).Debug("scheduling new block range logs search")
				select {
				case m.blocksRangeChan <- blocksRange:
				case <-ctx.Done():
					return
				}
				start = blocksRange.To + 1
			}
		}

		if utils.ContextSleep(ctx, m.cfg.BlockIndexInterval) == nil {
			return
		}
	}
}

func (m *ContractMonitor) StartLogsFetcher(ctx context.Context) {
	m.logger.Info("starting logs fetcher")
	for {
		select {
		case <-ctx.Done():
			return
		case blocksRange := <-m.blocksRangeChan:
			for {
				err := m.tryToFetchLogs(ctx, blocksRange)
				if err != nil {
					m.logger.WithError(err).WithFields(logrus.Fields{
						"from_block": blocksRange.From,
						"to_block":   blocksRange.To,
					}).Error("failed logs fetching, retrying")
					if utils.ContextSleep(ctx, m.retryInterval) == nil {
						return
					}
					continue
				}
				break
			}
		}
	}
}

func (m *ContractMonitor) buildFilterQuery(blocksRange *BlocksRange) ethereum.FilterQuery {
	topics := make([]common.Hash, 0, len(m.eventHandlers))
	for name := range m.eventHandlers {
		topics = append(topics, m.contract.ABI().Events[name].ID)
	}
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(uint64(blocksRange.From)),
		ToBlock:   new(big.Int).SetUint64(uint64(blocksRange.To)),
		Addresses: []common.Address{m.contract.Address()},
		Topics:    [][]common.Hash{topics},
	}
}

func (m *ContractMonitor) tryToFetchLogs(ctx context.Context, blocksRange *BlocksRange) error {
	logs, err := FetchLogs(ctx, m.client, m.buildFilterQuery(blocksRange), m.cfg.SafeLogsRequest)
	if err != nil {
		return err
	}
	m.logger.WithFields(logrus.Fields{
		"count":      len(logs),
		"from_block": blocksRange.From,
		"to_block":   blocksRange.To,
	}).Debug("fetched logs in range")
	m.recordFetchedBlockNumber(blocksRange.To)
	return m.submitLogs(ctx, logs, blocksRange.To)
}

// FetchLogs runs a filter query and returns the logs ordered by block number and log index.
func FetchLogs(ctx context.Context, client ethclient.Client, q ethereum.FilterQuery, safe bool) ([]*types.Log, error) {
	var logsBatch []types.Log
	var err error
	if safe {
		logsBatch, err = client.FilterLogsSafe(ctx, q)
	} else {
		logsBatch, err = client.FilterLogs(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	logs := make([]*types.Log, 0, len(logsBatch))
	for i := range logsBatch {
		if logsBatch[i].Removed {
			continue
		}
		logs = append(logs, &logsBatch[i])
	}
	sort.Slice(logs, func(i, j int) bool {
		a, b := logs[i], logs[j]
		return a.BlockNumber < b.BlockNumber || (a.BlockNumber == b.BlockNumber && a.Index < b.Index)
	})
	return logs, nil
}

func (m *ContractMonitor) submitLogs(ctx context.Context, logs []*types.Log, endBlock uint) error {
	batches := SplitLogsInBatches(logs)
	if len(batches) == 0 || batches[len(batches)-1].BlockNumber < endBlock {
		batches = append(batches, &LogsBatch{BlockNumber: endBlock})
	}
	for _, batch := range batches {
		select {
		case m.logsChan <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *ContractMonitor) StartLogsProcessor(ctx context.Context) {
	m.logger.Info("starting logs processor")
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-m.logsChan:
			for _, log := range batch.Logs {
				for {
					err := m.handleLog(ctx, log)
					if err == nil {
						break
					}
					m.logger.WithError(err).WithFields(logrus.Fields{
						"block_number": log.BlockNumber,
						"log_index":    log.Index,
					}).Error("failed to handle log, retrying")
					if utils.ContextSleep(ctx, m.retryInterval) == nil {
						return
					}
				}
			}
			m.recordProcessedBlockNumber(batch.BlockNumber)
		}
	}
}

// handleLog skips logs that can't be decoded and handlers that panic. An
// error returned by a handler is passed back, so the block holding the log
// is not marked as processed until the handler succeeds.
func (m *ContractMonitor) handleLog(ctx context.Context, log *types.Log) (err error) {
	logger := m.logger.WithFields(logrus.Fields{
		"block_number": log.BlockNumber,
		"tx_hash":      log.TxHash,
		"log_index":    log.Index,
	})
	ev, err := m.contract.ParseLog(log)
	if err != nil {
		logger.WithError(err).Error("can't parse log, skipping")
		HandlerFailures.WithLabelValues(m.cfg.Name, "unknown").Inc()
		return nil
	}
	if ev == nil {
		logger.WithField("topic0", log.Topics[0]).Warn("received unknown event")
		return nil
	}
	handle, ok := m.eventHandlers[ev.Name]
	if !ok {
		logger.WithField("event", ev.Name).Warn("no handler registered for event")
		return nil
	}
	logger = logger.WithField("event", ev.Name)

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("event handler panicked, skipping")
			HandlerFailures.WithLabelValues(m.cfg.Name, ev.Name).Inc()
			err = nil
		}
	}()
	if err = handle(ctx, ev); err != nil {
		HandlerFailures.WithLabelValues(m.cfg.Name, ev.Name).Inc()
		return err
	}
	return nil
}

func (m *ContractMonitor) recordHeadBlockNumber(blockNumber uint) {
	if blockNumber < m.headBlock {
		return
	}

	m.headBlock = blockNumber
	m.headBlockMetric.Set(float64(blockNumber))
}

func (m *ContractMonitor) recordFetchedBlockNumber(blockNumber uint) {
	if blockNumber < m.fetchedBlock {
		return
	}

	m.fetchedBlock = blockNumber
	m.fetchedBlockMetric.Set(float64(blockNumber))
}

func (m *ContractMonitor) recordProcessedBlockNumber(blockNumber uint) {
	if uint64(blockNumber) < m.processedBlock.Load() {
		return
	}

	m.processedBlock.Store(uint64(blockNumber))
	m.processedBlockMetric.Set(float64(blockNumber))
}
