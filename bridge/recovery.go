package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/monitor"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/repository"
	"github.com/exposure-labs/subnet-relay/utils"
)

// Recovery rebuilds the pending request set from chain history and the
// persisted queue, then drives every pending request to completion.
type Recovery struct {
	logger   logging.Logger
	repo     *repository.Repo
	relay    *Relay
	interval time.Duration
}

func NewRecovery(logger logging.Logger, repo *repository.Repo, relay *Relay, interval time.Duration) *Recovery {
	return &Recovery{
		logger:   logger.WithField("service", "recovery"),
		repo:     repo,
		relay:    relay,
		interval: interval,
	}
}

// Checkpoint returns the first block the next scan of n starts from.
func (r *Recovery) Checkpoint(ctx context.Context, n network.Network) (uint, error) {
	checkpoint, err := r.repo.Checkpoints.GetByNetwork(ctx, n.Name())
	if err != nil {
		if db.IsNotFound(err) {
			return n.Config().StartBlock, nil
		}
		return 0, err
	}
	return checkpoint.LastScannedBlock, nil
}

type scanResult struct {
	network   string
	requests  []*entity.BridgeRequest
	lastBlock uint
	scanned   bool
}

// scan queries the bridge event of n in windows up to its confirmed head,
// stopping at the first window that can't be read.
func (r *Recovery) scan(ctx context.Context, n network.Network, from, to uint) *scanResult {
	res := &scanResult{network: n.Name()}
	logger := r.logger.WithField("network", n.Name())
	for _, window := range monitor.SplitBlockRange(from, to, n.Config().MaxBlockRangeSize) {
		events, ok := n.QueryLogs(ctx, n.BridgeEvent(), window.From, window.To)
		if !ok {
			logger.WithFields(logrus.Fields{
				"from_block": window.From,
				"to_block":   window.To,
			}).Warn("can't scan window, stopping at the last successful one")
			break
		}
		for _, ev := range events {
			req, err := r.relay.Decode(n.Name(), ev)
			if err != nil {
				logger.WithError(err).WithField("block_number", ev.Log.BlockNumber).Error("can't decode bridge event, skipping")
				continue
			}
			res.requests = append(res.requests, req)
		}
		res.lastBlock = window.To
		res.scanned = true
	}
	return res
}

// Run performs a single recovery pass over every network.
func (r *Recovery) Run(ctx context.Context) error {
	start := time.Now()

	scans := make([]*scanResult, 0, len(r.relay.mainnets)+1)
	for _, n := range r.relay.Networks() {
		from, err := r.Checkpoint(ctx, n)
		if err != nil {
			r.logger.WithError(err).WithField("network", n.Name()).Error("can't read checkpoint, skipping network")
			continue
		}
		head, ok := n.BlockHeight(ctx)
		if !ok {
			continue
		}
		scans = append(scans, r.scan(ctx, n, from, head))
	}

	queued, err := r.repo.BridgeRequests.FindPending(ctx)
	if err != nil {
		return fmt.Errorf("can't read recovery queue: %w", err)
	}
	known := make(map[string]bool, len(queued))
	for _, req := range queued {
		known[req.Key()] = true
	}

	pending := make([]*entity.BridgeRequest, 0)
	for _, scan := range scans {
		for _, req := range scan.requests {
			if known[req.Key()] {
				continue
			}
			known[req.Key()] = true
			if complete, ok := r.relay.IsComplete(ctx, req); ok && complete {
				continue
			}
			if req.Direction == entity.DirectionToSubnet {
				r.relay.RegisterToken(ctx, req)
			}
			pending = append(pending, req)
		}
	}
	if err = r.repo.BridgeRequests.Ensure(ctx, pending...); err != nil {
		return fmt.Errorf("can't persist recovered requests: %w", err)
	}

	for _, scan := range scans {
		if !scan.scanned {
			continue
		}
		err = r.repo.Checkpoints.Ensure(ctx, &entity.Checkpoint{
			NetworkName:      scan.network,
			LastScannedBlock: scan.lastBlock,
		})
		if err != nil {
			r.logger.WithError(err).WithField("network", scan.network).Error("can't advance checkpoint")
			continue
		}
		CheckpointHeight.WithLabelValues(scan.network).Set(float64(scan.lastBlock))
	}

	remaining, err := r.Drain(ctx)
	if err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{
		"recovered": len(pending),
		"remaining": remaining,
		"duration":  time.Since(start),
	}).Info("finished recovery pass")
	RecoveryDuration.Observe(time.Since(start).Seconds())
	return nil
}

// Drain walks the queue in insertion order. An entry is removed only after
// its destination reports completion.
func (r *Recovery) Drain(ctx context.Context) (int, error) {
	queued, err := r.repo.BridgeRequests.FindPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("can't read recovery queue: %w", err)
	}
	remaining := 0
	for _, req := range queued {
		if ctx.Err() != nil {
			return remaining, ctx.Err()
		}
		res := r.relay.Fulfill(ctx, req)
		complete := res == ResultAlreadyComplete
		if res == ResultSubmitted {
			complete, _ = r.relay.IsComplete(ctx, req)
		}
		if !complete {
			remaining++
			continue
		}
		if err = r.repo.BridgeRequests.Delete(ctx, req); err != nil {
			r.logger.WithError(err).WithField("request_id", req.RequestID).Error("can't remove completed request from queue")
			remaining++
		}
	}
	QueueSize.Set(float64(remaining))
	return remaining, nil
}

// ProcessBlockRange rescans [fromBlock, toBlock] of one network and handles
// every bridge event found there. Checkpoints are left untouched.
func (r *Recovery) ProcessBlockRange(ctx context.Context, name string, fromBlock, toBlock uint) error {
	n, ok := r.relay.network(name)
	if !ok {
		return fmt.Errorf("network %s: %w", name, config.ErrUnknownNetwork)
	}
	for _, window := range monitor.SplitBlockRange(fromBlock, toBlock, n.Config().MaxBlockRangeSize) {
		events, ok := n.QueryLogs(ctx, n.BridgeEvent(), window.From, window.To)
		if !ok {
			return fmt.Errorf("can't query logs in blocks %d-%d", window.From, window.To)
		}
		for _, ev := range events {
			req, err := r.relay.Decode(n.Name(), ev)
			if err != nil {
				r.logger.WithError(err).Error("can't decode bridge event, skipping")
				continue
			}
			if err = r.relay.Process(ctx, req); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Recovery) Start(ctx context.Context) {
	utils.Every(ctx, r.interval, func(ctx context.Context) {
		if err := r.Run(ctx); err != nil {
			r.logger.WithError(err).Error("recovery pass failed")
		}
	})
}
