package repository

import (
	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/repository/postgres"
)

type Repo struct {
	Routers         entity.RoutersRepo
	Tokens          entity.TokensRepo
	LiquidityTokens entity.TokensRepo
	DollarCoins     entity.TokensRepo
	Pairs           entity.PairsRepo
	Prices          entity.PricesRepo
	MarketCaps      entity.MarketCapsRepo
	Accounts        entity.AccountsRepo
	Checkpoints     entity.CheckpointsRepo
	BridgeRequests  entity.BridgeRequestsRepo
}

func NewRepo(db *db.DB) *Repo {
	return &Repo{
		Routers:         postgres.NewRoutersRepo("routers", db),
		Tokens:          postgres.NewTokensRepo("tokens", db),
		LiquidityTokens: postgres.NewTokensRepo("liquidity_tokens", db),
		DollarCoins:     postgres.NewTokensRepo("dollar_coins", db),
		Pairs:           postgres.NewPairsRepo("pairs", db),
		Prices:          postgres.NewPricesRepo("prices", db),
		MarketCaps:      postgres.NewMarketCapsRepo("mcaps", db),
		Accounts:        postgres.NewAccountsRepo("accounts", db),
		Checkpoints:     postgres.NewCheckpointsRepo("sync_checkpoints", db),
		BridgeRequests:  postgres.NewBridgeRequestsRepo("bridge_requests", db),
	}
}
