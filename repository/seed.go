package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/entity"
)

func sortedKeys(m map[string]common.Address) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SeedNetwork upserts the routers, liquidity tokens and dollar coins listed
// in the network config.
func (r *Repo) SeedNetwork(ctx context.Context, cfg *config.NetworkConfig) error {
	for _, dex := range sortedKeys(cfg.Routers) {
		err := r.Routers.Ensure(ctx, &entity.Router{
			NetworkName:     cfg.Name,
			DexName:         dex,
			ContractAddress: cfg.Routers[dex],
		})
		if err != nil {
			return fmt.Errorf("can't seed router %s: %w", dex, err)
		}
	}
	for _, symbol := range sortedKeys(cfg.LiquidityTokens) {
		err := r.LiquidityTokens.Ensure(ctx, &entity.Token{
			NetworkName:     cfg.Name,
			TokenName:       symbol,
			ContractAddress: cfg.LiquidityTokens[symbol],
		})
		if err != nil {
			return fmt.Errorf("can't seed liquidity token %s: %w", symbol, err)
		}
	}
	for _, symbol := range sortedKeys(cfg.DollarCoins) {
		err := r.DollarCoins.Ensure(ctx, &entity.Token{
			NetworkName:     cfg.Name,
			TokenName:       symbol,
			ContractAddress: cfg.DollarCoins[symbol],
		})
		if err != nil {
			return fmt.Errorf("can't seed dollar coin %s: %w", symbol, err)
		}
	}
	return nil
}
