package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/repository"
	"github.com/exposure-labs/subnet-relay/utils"
)

// Engine periodically refreshes pair prices on the mainnet oracles, derives
// per-symbol dollar values and publishes them to the subnet oracle.
type Engine struct {
	logger   logging.Logger
	repo     *repository.Repo
	lock     *Lock
	cfg      *config.OracleConfig
	subnet   network.Subnet
	mainnets map[string]network.Mainnet
}

func NewEngine(logger logging.Logger, repo *repository.Repo, lock *Lock, cfg *config.OracleConfig, subnet network.Subnet, mainnets map[string]network.Mainnet) *Engine {
	return &Engine{
		logger:   logger.WithField("service", "oracle"),
		repo:     repo,
		lock:     lock,
		cfg:      cfg,
		subnet:   subnet,
		mainnets: mainnets,
	}
}

// RunCycle performs one full price update while holding the registry lock.
func (e *Engine) RunCycle(ctx context.Context) error {
	logger := e.logger.WithField("cycle_id", uuid.NewString())
	start := time.Now()
	err := e.lock.Do(ctx, func(ctx context.Context) error {
		logger.Info("starting price update cycle")
		if err := e.updateMainnetPrices(ctx, logger); err != nil {
			return err
		}
		if err := e.computePrices(ctx, logger); err != nil {
			return err
		}
		return e.updateSubnetPrices(ctx, logger)
	})
	if err != nil {
		return err
	}
	CycleDuration.Observe(time.Since(start).Seconds())
	logger.WithField("duration", time.Since(start)).Info("finished price update cycle")
	return nil
}

func (e *Engine) Start(ctx context.Context) {
	utils.Every(ctx, e.cfg.Interval, func(ctx context.Context) {
		if err := e.RunCycle(ctx); err != nil {
			e.logger.WithError(err).Error("price update cycle failed")
		}
	})
}

// updateMainnetPrices asks every mainnet oracle to refresh its stored pair
// prices, in batches.
func (e *Engine) updateMainnetPrices(ctx context.Context, logger logging.Logger) error {
	pairs, err := e.repo.Pairs.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("can't read pairs: %w", err)
	}
	byNetwork := make(map[string][]*entity.Pair)
	for _, p := range pairs {
		byNetwork[p.NetworkName] = append(byNetwork[p.NetworkName], p)
	}
	names := make([]string, 0, len(byNetwork))
	for name := range byNetwork {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n, ok := e.mainnets[name]
		if !ok {
			logger.WithField("network", name).Warn("pairs reference a network that is not configured")
			continue
		}
		for i, batch := range splitInBatches(byNetwork[name], e.cfg.BatchSize) {
			pairAddrs := make([]common.Address, len(batch))
			tokens := make([]common.Address, len(batch))
			quotes := make([]common.Address, len(batch))
			for j, p := range batch {
				pairAddrs[j] = p.PairAddress
				tokens[j] = p.TokenAddress
				quotes[j] = p.QuoteAddress
			}
			ok := n.UpdatePrices(ctx, pairAddrs, tokens, quotes)
			BatchResults.WithLabelValues(name, "pair_prices", batchStatus(ok)).Inc()
			if !ok {
				logger.WithFields(logrus.Fields{
					"network": name,
					"batch":   i,
				}).Error("failed to update mainnet pair prices")
			}
		}
	}
	return nil
}

type subnetUpdate struct {
	token common.Address
	price *big.Int
	mcap  *big.Int
}

// updateSubnetPrices publishes every symbol with both a price and a market
// cap for each token address registered under it.
func (e *Engine) updateSubnetPrices(ctx context.Context, logger logging.Logger) error {
	prices, err := e.repo.Prices.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("can't read prices: %w", err)
	}
	mcaps, err := e.repo.MarketCaps.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("can't read market caps: %w", err)
	}
	mcapBySymbol := make(map[string]*big.Int, len(mcaps))
	for _, m := range mcaps {
		if v, ok := new(big.Int).SetString(m.MarketCap, 10); ok {
			mcapBySymbol[m.TokenName] = v
		}
	}

	var updates []subnetUpdate
	for _, p := range prices {
		price, ok := new(big.Int).SetString(p.Price, 10)
		if !ok {
			logger.WithField("symbol", p.TokenName).Warn("stored price is not an integer, skipping")
			continue
		}
		mcap, ok := mcapBySymbol[p.TokenName]
		if !ok {
			continue
		}
		tokens, err := e.repo.Tokens.FindByName(ctx, p.TokenName)
		if err != nil {
			return fmt.Errorf("can't read tokens of %s: %w", p.TokenName, err)
		}
		for _, t := range tokens {
			updates = append(updates, subnetUpdate{token: t.ContractAddress, price: price, mcap: mcap})
		}
	}

	name := e.subnet.Name()
	for i, batch := range splitInBatches(updates, e.cfg.BatchSize) {
		tokens := make([]common.Address, len(batch))
		batchPrices := make([]*big.Int, len(batch))
		batchMcaps := make([]*big.Int, len(batch))
		for j, u := range batch {
			tokens[j] = u.token
			batchPrices[j] = u.price
			batchMcaps[j] = u.mcap
		}
		logger := logger.WithFields(logrus.Fields{
			"network": name,
			"batch":   i,
		})
		ok := e.subnet.UpdatePrices(ctx, tokens, batchPrices)
		BatchResults.WithLabelValues(name, "prices", batchStatus(ok)).Inc()
		if !ok {
			logger.Error("failed to update subnet prices")
			continue
		}
		ok = e.subnet.UpdateMarketCaps(ctx, tokens, batchMcaps)
		BatchResults.WithLabelValues(name, "market_caps", batchStatus(ok)).Inc()
		if !ok {
			logger.Error("failed to update subnet market caps")
		}
	}
	logger.WithField("tokens", len(updates)).Info("finished updating subnet prices")
	return nil
}
