package oracle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
)

var oneEther = uint256.NewInt(1_000_000_000_000_000_000)

// normalize converts a value quoted in some asset into dollars given the
// dollar price of that asset. Both prices carry 18 decimals.
func normalize(value, quotePrice *uint256.Int) (*uint256.Int, bool) {
	if quotePrice.IsZero() {
		return nil, false
	}
	res, overflow := new(uint256.Int).MulDivOverflow(value, oneEther, quotePrice)
	if overflow {
		return nil, false
	}
	return res, true
}

// average returns sum/count of values. It reports false when there is
// nothing to average or the sum is zero.
func average(values []*uint256.Int) (*uint256.Int, bool) {
	if len(values) == 0 {
		return nil, false
	}
	sum := new(uint256.Int)
	for _, v := range values {
		if _, overflow := sum.AddOverflow(sum, v); overflow {
			return nil, false
		}
	}
	if sum.IsZero() {
		return nil, false
	}
	return sum.Div(sum, uint256.NewInt(uint64(len(values)))), true
}

func toUint256(v *big.Int) (*uint256.Int, bool) {
	if v == nil || v.Sign() < 0 {
		return nil, false
	}
	u, overflow := uint256.FromBig(v)
	return u, !overflow
}

// samples collects per-symbol readings of a single cycle.
type samples map[string][]*uint256.Int

func (s samples) add(symbol string, v *uint256.Int) {
	s[symbol] = append(s[symbol], v)
}

// priceCycle holds the state of one computePrices run.
type priceCycle struct {
	logger      logging.Logger
	engine      *Engine
	quotePrices map[string]*uint256.Int
	dollarCoins map[string]map[string]*entity.Token
	prices      samples
	mcaps       samples
}

func (e *Engine) newPriceCycle(logger logging.Logger) *priceCycle {
	return &priceCycle{
		logger:      logger,
		engine:      e,
		quotePrices: make(map[string]*uint256.Int),
		dollarCoins: make(map[string]map[string]*entity.Token),
		prices:      make(samples),
		mcaps:       make(samples),
	}
}

func (c *priceCycle) dollarCoinsOf(ctx context.Context, name string) (map[string]*entity.Token, error) {
	if coins, ok := c.dollarCoins[name]; ok {
		return coins, nil
	}
	tokens, err := c.engine.repo.DollarCoins.FindByNetwork(ctx, name)
	if err != nil {
		return nil, err
	}
	coins := make(map[string]*entity.Token, len(tokens))
	for _, t := range tokens {
		coins[t.TokenName] = t
	}
	c.dollarCoins[name] = coins
	return coins, nil
}

// quotePrice returns the dollar price of the pair's quote asset. A pair
// from the registry is preferred; otherwise one is looked up through the
// dex router and its price is pushed on chain before being read.
func (c *priceCycle) quotePrice(ctx context.Context, n network.Mainnet, pair *entity.Pair, usd *entity.Token) (*uint256.Int, bool) {
	key := pair.NetworkName + "/" + pair.QuoteAddress.Hex()
	if price, ok := c.quotePrices[key]; ok {
		return price, true
	}
	logger := c.logger.WithFields(logrus.Fields{
		"network": pair.NetworkName,
		"quote":   pair.QuoteName,
		"dex":     pair.DexName,
	})

	var quotePair common.Address
	known, err := c.engine.repo.Pairs.FindByTokenAndQuote(ctx, pair.NetworkName, pair.QuoteName, usd.TokenName)
	if err != nil {
		logger.WithError(err).Error("can't read quote pairs")
		return nil, false
	}
	for _, p := range known {
		if p.DexName == pair.DexName {
			quotePair = p.PairAddress
			break
		}
	}
	if quotePair == (common.Address{}) && len(known) > 0 {
		quotePair = known[0].PairAddress
	}

	if quotePair == (common.Address{}) {
		router, err := c.engine.router(ctx, pair.NetworkName, pair.DexName)
		if err != nil {
			logger.WithError(err).Warn("can't find router for quote pair lookup")
			return nil, false
		}
		var ok bool
		quotePair, ok = n.PairAddress(ctx, router, pair.QuoteAddress, usd.ContractAddress)
		if !ok {
			logger.Warn("quote has no dollar pair, skipping")
			return nil, false
		}
		if !n.UpdatePrices(ctx, []common.Address{quotePair}, []common.Address{pair.QuoteAddress}, []common.Address{usd.ContractAddress}) {
			logger.Warn("can't push quote pair price")
			return nil, false
		}
	}

	raw, ok := n.Price(ctx, quotePair)
	if !ok {
		return nil, false
	}
	price, ok := toUint256(raw)
	if !ok || price.IsZero() {
		logger.WithField("pair", quotePair).Warn("quote pair has no usable price")
		return nil, false
	}
	c.quotePrices[key] = price
	return price, true
}

// collect reads the price and market cap of one pair and records them in
// dollars.
func (c *priceCycle) collect(ctx context.Context, pair *entity.Pair) {
	logger := c.logger.WithFields(logrus.Fields{
		"network": pair.NetworkName,
		"pair":    pair.PairName,
		"dex":     pair.DexName,
	})
	n, ok := c.engine.mainnets[pair.NetworkName]
	if !ok {
		logger.Warn("pair network is not configured, skipping")
		return
	}
	coins, err := c.dollarCoinsOf(ctx, pair.NetworkName)
	if err != nil {
		logger.WithError(err).Error("can't read dollar coins")
		return
	}

	var quotePrice *uint256.Int
	if _, isDollar := coins[pair.QuoteName]; !isDollar {
		usd, ok := coins[c.engine.cfg.USDSymbol]
		if !ok {
			logger.WithField("usd_symbol", c.engine.cfg.USDSymbol).Warn("network has no dollar coin to normalize against, skipping")
			return
		}
		if quotePrice, ok = c.quotePrice(ctx, n, pair, usd); !ok {
			return
		}
	}

	read := func(v *big.Int, ok bool) (*uint256.Int, bool) {
		if !ok {
			return nil, false
		}
		u, ok := toUint256(v)
		if !ok {
			return nil, false
		}
		if quotePrice == nil {
			return u, true
		}
		return normalize(u, quotePrice)
	}
	if price, ok := read(n.Price(ctx, pair.PairAddress)); ok {
		c.prices.add(pair.TokenName, price)
	}
	if mcap, ok := read(n.MarketCap(ctx, pair.PairAddress)); ok {
		c.mcaps.add(pair.TokenName, mcap)
	}
}

func (e *Engine) router(ctx context.Context, name, dex string) (common.Address, error) {
	routers, err := e.repo.Routers.FindByNetwork(ctx, name)
	if err != nil {
		return common.Address{}, err
	}
	for _, r := range routers {
		if r.DexName == dex {
			return r.ContractAddress, nil
		}
	}
	return common.Address{}, fmt.Errorf("router %s on %s: %w", dex, name, db.ErrNotFound)
}

// computePrices averages the dollar price and market cap of every tracked
// symbol over all of its pairs and stores the results.
func (e *Engine) computePrices(ctx context.Context, logger logging.Logger) error {
	pairs, err := e.repo.Pairs.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("can't read pairs: %w", err)
	}
	cycle := e.newPriceCycle(logger)
	for _, pair := range pairs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cycle.collect(ctx, pair)
	}

	updated := 0
	for symbol, values := range cycle.prices {
		avg, ok := average(values)
		if !ok {
			continue
		}
		if err = e.repo.Prices.Ensure(ctx, &entity.Price{TokenName: symbol, Price: avg.Dec()}); err != nil {
			return fmt.Errorf("can't store price of %s: %w", symbol, err)
		}
		updated++
	}
	TrackedSymbols.WithLabelValues("price").Set(float64(updated))

	updated = 0
	for symbol, values := range cycle.mcaps {
		avg, ok := average(values)
		if !ok {
			continue
		}
		if err = e.repo.MarketCaps.Ensure(ctx, &entity.MarketCap{TokenName: symbol, MarketCap: avg.Dec()}); err != nil {
			return fmt.Errorf("can't store market cap of %s: %w", symbol, err)
		}
		updated++
	}
	TrackedSymbols.WithLabelValues("market_cap").Set(float64(updated))

	logger.WithFields(logrus.Fields{
		"pairs":         len(pairs),
		"quote_prices":  len(cycle.quotePrices),
		"price_symbols": len(cycle.prices),
	}).Info("computed prices")
	return nil
}
