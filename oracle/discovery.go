package oracle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/repository"
	"github.com/exposure-labs/subnet-relay/utils"
)

const (
	discoveryQueueSize     = 256
	defaultBacklogInterval = time.Minute
)

type discoveryRequest struct {
	symbol  string
	network string
}

// Discoverer finds dex pairs between newly bridged tokens and the liquidity
// tokens of their network. Requests that overflow the queue or fail are kept
// in a backlog and retried until discovery succeeds.
type Discoverer struct {
	logger          logging.Logger
	repo            *repository.Repo
	lock            *Lock
	networks        map[string]network.Network
	queue           chan discoveryRequest
	backlogInterval time.Duration

	backlogMu sync.Mutex
	backlog   map[discoveryRequest]struct{}
}

func NewDiscoverer(logger logging.Logger, repo *repository.Repo, lock *Lock, networks map[string]network.Network) *Discoverer {
	return &Discoverer{
		logger:          logger.WithField("service", "pair_discovery"),
		repo:            repo,
		lock:            lock,
		networks:        networks,
		queue:           make(chan discoveryRequest, discoveryQueueSize),
		backlogInterval: defaultBacklogInterval,
		backlog:         make(map[discoveryRequest]struct{}),
	}
}

// Enqueue schedules discovery for symbol on network without blocking the
// caller. While the queue is full the request goes to the backlog.
func (d *Discoverer) Enqueue(symbol, network string) {
	req := discoveryRequest{symbol: symbol, network: network}
	select {
	case d.queue <- req:
	default:
		d.logger.WithFields(logrus.Fields{
			"symbol":  symbol,
			"network": network,
		}).Warn("discovery queue is full, deferring request")
		d.postpone(req)
	}
}

func (d *Discoverer) postpone(req discoveryRequest) {
	d.backlogMu.Lock()
	defer d.backlogMu.Unlock()
	d.backlog[req] = struct{}{}
	DiscoveryBacklog.Set(float64(len(d.backlog)))
}

func (d *Discoverer) takeBacklog() []discoveryRequest {
	d.backlogMu.Lock()
	defer d.backlogMu.Unlock()
	reqs := make([]discoveryRequest, 0, len(d.backlog))
	for req := range d.backlog {
		reqs = append(reqs, req)
	}
	d.backlog = make(map[discoveryRequest]struct{})
	DiscoveryBacklog.Set(0)
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].network != reqs[j].network {
			return reqs[i].network < reqs[j].network
		}
		return reqs[i].symbol < reqs[j].symbol
	})
	return reqs
}

// Start resumes discovery for registered tokens that have no pairs, then
// serves the queue until ctx is done.
func (d *Discoverer) Start(ctx context.Context) {
	d.resume(ctx)
	go utils.Every(ctx, d.backlogInterval, d.retryBacklog)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.queue:
			d.handle(ctx, req)
		}
	}
}

func (d *Discoverer) handle(ctx context.Context, req discoveryRequest) {
	err := d.DiscoverPairs(ctx, req.symbol, req.network)
	if err == nil {
		return
	}
	logger := d.logger.WithError(err).WithFields(logrus.Fields{
		"symbol":  req.symbol,
		"network": req.network,
	})
	if errors.Is(err, config.ErrUnknownNetwork) {
		logger.Error("pair discovery failed")
		return
	}
	logger.Error("pair discovery failed, will retry")
	d.postpone(req)
}

func (d *Discoverer) retryBacklog(ctx context.Context) {
	for _, req := range d.takeBacklog() {
		if ctx.Err() != nil {
			d.postpone(req)
			continue
		}
		d.handle(ctx, req)
	}
}

// resume puts every registered token of a known network without a single
// stored pair into the backlog.
func (d *Discoverer) resume(ctx context.Context) {
	tokens, err := d.repo.Tokens.FindAll(ctx)
	if err != nil {
		d.logger.WithError(err).Error("can't find registered tokens")
		return
	}
	pairs, err := d.repo.Pairs.FindAll(ctx)
	if err != nil {
		d.logger.WithError(err).Error("can't find stored pairs")
		return
	}
	paired := make(map[discoveryRequest]bool, len(pairs))
	for _, pair := range pairs {
		paired[discoveryRequest{symbol: pair.TokenName, network: pair.NetworkName}] = true
	}
	for _, token := range tokens {
		if _, ok := d.networks[token.NetworkName]; !ok {
			continue
		}
		req := discoveryRequest{symbol: token.TokenName, network: token.NetworkName}
		if !paired[req] {
			d.postpone(req)
		}
	}
}

// DiscoverPairs queries every router of the network for pairs between the
// token and each liquidity token, storing the ones that exist.
func (d *Discoverer) DiscoverPairs(ctx context.Context, symbol, name string) error {
	n, ok := d.networks[name]
	if !ok {
		return fmt.Errorf("network %s: %w", name, config.ErrUnknownNetwork)
	}
	return d.lock.Do(ctx, func(ctx context.Context) error {
		return d.discoverPairs(ctx, n, symbol)
	})
}

func (d *Discoverer) discoverPairs(ctx context.Context, n network.Network, symbol string) error {
	logger := d.logger.WithFields(logrus.Fields{
		"symbol":  symbol,
		"network": n.Name(),
	})
	token, err := d.repo.Tokens.GetByNetworkAndName(ctx, n.Name(), symbol)
	if err != nil {
		return fmt.Errorf("can't find token: %w", err)
	}
	routers, err := d.repo.Routers.FindByNetwork(ctx, n.Name())
	if err != nil {
		return fmt.Errorf("can't find routers: %w", err)
	}
	quotes, err := d.repo.LiquidityTokens.FindByNetwork(ctx, n.Name())
	if err != nil {
		return fmt.Errorf("can't find liquidity tokens: %w", err)
	}

	found := 0
	for _, router := range routers {
		for _, quote := range quotes {
			if quote.TokenName == symbol || quote.ContractAddress == token.ContractAddress {
				continue
			}
			pairAddress, ok := n.PairAddress(ctx, router.ContractAddress, token.ContractAddress, quote.ContractAddress)
			if !ok {
				continue
			}
			err = d.repo.Pairs.Ensure(ctx, &entity.Pair{
				NetworkName:  n.Name(),
				TokenName:    symbol,
				QuoteName:    quote.TokenName,
				DexName:      router.DexName,
				PairName:     symbol + "/" + quote.TokenName,
				PairAddress:  pairAddress,
				TokenAddress: token.ContractAddress,
				QuoteAddress: quote.ContractAddress,
			})
			if err != nil {
				return fmt.Errorf("can't store pair %s/%s: %w", symbol, quote.TokenName, err)
			}
			DiscoveredPairs.WithLabelValues(n.Name(), router.DexName).Inc()
			found++
		}
	}
	logger.WithField("pairs", found).Info("finished pair discovery")
	return nil
}
