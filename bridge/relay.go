package bridge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/repository"
)

type Result int

const (
	ResultSubmitted Result = iota
	ResultAlreadyComplete
	ResultInFlight
	ResultFailed
	ResultUnknownDestination
)

func (r Result) String() string {
	switch r {
	case ResultSubmitted:
		return "submitted"
	case ResultAlreadyComplete:
		return "already_complete"
	case ResultInFlight:
		return "in_flight"
	case ResultFailed:
		return "failed"
	case ResultUnknownDestination:
		return "unknown_destination"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Discoverer is notified about tokens seen on a network for the first time.
type Discoverer interface {
	Enqueue(symbol, network string)
}

type Relay struct {
	logger     logging.Logger
	repo       *repository.Repo
	subnet     network.Network
	mainnets   map[string]network.Network
	configured []string
	chainIDs   map[string]string
	discoverer Discoverer

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

// NewRelay routes withdrawals by the chain ids of every configured mainnet,
// including the ones whose client could not be created. Requests to those
// stay queued until a later run reaches them.
func NewRelay(logger logging.Logger, repo *repository.Repo, subnet network.Network, mainnets map[string]network.Network, configured map[string]*config.NetworkConfig, discoverer Discoverer) *Relay {
	names := make([]string, 0, len(configured))
	chainIDs := make(map[string]string, len(configured))
	for name, cfg := range configured {
		names = append(names, name)
		if cfg.ChainID != "" {
			chainIDs[cfg.ChainID] = name
		}
	}
	sort.Strings(names)
	return &Relay{
		logger:     logger.WithField("service", "relay"),
		repo:       repo,
		subnet:     subnet,
		mainnets:   mainnets,
		configured: names,
		chainIDs:   chainIDs,
		discoverer: discoverer,
		inFlight:   make(map[string]struct{}),
	}
}

func (r *Relay) network(name string) (network.Network, bool) {
	if r.subnet.Name() == name {
		return r.subnet, true
	}
	n, ok := r.mainnets[name]
	return n, ok
}

// Networks returns the subnet followed by the mainnets.
func (r *Relay) Networks() []network.Network {
	res := make([]network.Network, 0, len(r.mainnets)+1)
	res = append(res, r.subnet)
	names := make([]string, 0, len(r.mainnets))
	for name := range r.mainnets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		res = append(res, r.mainnets[name])
	}
	return res
}

// destination returns the client of req's destination. Requests queued
// before their chain id could be routed are resolved again here.
func (r *Relay) destination(req *entity.BridgeRequest) (network.Network, error) {
	name := req.DestinationNetwork
	if name == "" {
		var err error
		if name, err = r.destinationFor(req.DestinationChainID); err != nil {
			return nil, err
		}
	}
	n, ok := r.network(name)
	if !ok {
		return nil, fmt.Errorf("network %s has no client: %w", name, ErrUnknownDestination)
	}
	return n, nil
}

func (r *Relay) acquire(key string) bool {
	r.inFlightMu.Lock()
	defer r.inFlightMu.Unlock()
	if _, ok := r.inFlight[key]; ok {
		return false
	}
	r.inFlight[key] = struct{}{}
	return true
}

func (r *Relay) release(key string) {
	r.inFlightMu.Lock()
	defer r.inFlightMu.Unlock()
	delete(r.inFlight, key)
}

// Fulfill submits req on its destination unless the destination already
// reports it complete or another attempt for the same request is running.
func (r *Relay) Fulfill(ctx context.Context, req *entity.BridgeRequest) Result {
	res := r.fulfill(ctx, req)
	RelayResults.WithLabelValues(string(req.Direction), req.DestinationNetwork, res.String()).Inc()
	return res
}

func (r *Relay) fulfill(ctx context.Context, req *entity.BridgeRequest) Result {
	logger := r.logger.WithFields(logrus.Fields{
		"request_id":  req.RequestID,
		"direction":   req.Direction,
		"source":      req.SourceNetwork,
		"destination": req.DestinationNetwork,
	})
	dst, err := r.destination(req)
	if err != nil {
		logger.WithError(err).Warn("destination network is unavailable")
		return ResultUnknownDestination
	}
	if !r.acquire(req.Key()) {
		logger.Debug("request is already being fulfilled")
		return ResultInFlight
	}
	defer r.release(req.Key())

	complete, ok := dst.BridgeRequestIsComplete(ctx, req.RequestIDInt())
	if !ok {
		return ResultFailed
	}
	if complete {
		logger.Debug("request is already complete on destination")
		return ResultAlreadyComplete
	}
	if !dst.Fulfill(ctx, req) {
		logger.Warn("failed to fulfill bridge request")
		return ResultFailed
	}
	logger.WithFields(logrus.Fields{
		"symbol": req.AssetSymbol,
		"amount": formatAmount(req.Amount),
		"user":   req.User,
	}).Info("fulfilled bridge request")
	return ResultSubmitted
}

// IsComplete re-reads the destination completion flag; the second result is
// false when it could not be read.
func (r *Relay) IsComplete(ctx context.Context, req *entity.BridgeRequest) (bool, bool) {
	dst, err := r.destination(req)
	if err != nil {
		return false, false
	}
	return dst.BridgeRequestIsComplete(ctx, req.RequestIDInt())
}

// Process fulfils req and queues it for recovery unless the destination
// confirms completion.
func (r *Relay) Process(ctx context.Context, req *entity.BridgeRequest) error {
	if req.Direction == entity.DirectionToSubnet {
		r.RegisterToken(ctx, req)
	}
	switch r.Fulfill(ctx, req) {
	case ResultAlreadyComplete:
		return nil
	case ResultSubmitted:
		if complete, ok := r.IsComplete(ctx, req); ok && complete {
			return nil
		}
	}
	if err := r.repo.BridgeRequests.Ensure(ctx, req); err != nil {
		return fmt.Errorf("can't queue bridge request %s: %w", req.Key(), err)
	}
	r.logger.WithField("request_id", req.RequestID).Info("queued bridge request for recovery")
	return nil
}

// RegisterToken records the bridged asset for its source network. The
// first registration triggers pair discovery.
func (r *Relay) RegisterToken(ctx context.Context, req *entity.BridgeRequest) {
	created, err := r.repo.Tokens.Insert(ctx, &entity.Token{
		NetworkName:     req.SourceNetwork,
		TokenName:       req.AssetSymbol,
		ContractAddress: req.Asset,
	})
	if err != nil {
		r.logger.WithError(err).WithField("symbol", req.AssetSymbol).Error("can't register token")
		return
	}
	if created {
		r.logger.WithFields(logrus.Fields{
			"symbol":  req.AssetSymbol,
			"network": req.SourceNetwork,
			"address": req.Asset,
		}).Info("registered new token")
		if r.discoverer != nil {
			r.discoverer.Enqueue(req.AssetSymbol, req.SourceNetwork)
		}
	}
}

// Handler returns the live subscription handler for events emitted by source.
// Malformed events are skipped. A failure to queue a request is returned, so
// the subscription retries the event instead of moving past its block.
func (r *Relay) Handler(source network.Network) network.EventHandler {
	return func(ctx context.Context, ev *contract.Event) error {
		req, err := r.Decode(source.Name(), ev)
		if err != nil {
			r.logger.WithError(err).WithField("network", source.Name()).Error("can't decode bridge event, skipping")
			return nil
		}
		return r.Process(ctx, req)
	}
}
