package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Pair struct {
	NetworkName  string         `db:"network_name"`
	TokenName    string         `db:"token_name"`
	QuoteName    string         `db:"quote_name"`
	DexName      string         `db:"dex_name"`
	PairName     string         `db:"pair_name"`
	PairAddress  common.Address `db:"pair_address"`
	TokenAddress common.Address `db:"token_address"`
	QuoteAddress common.Address `db:"quote_address"`
	CreatedAt    *time.Time     `db:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at"`
}

type PairsRepo interface {
	Ensure(ctx context.Context, pair *Pair) error
	FindAll(ctx context.Context) ([]*Pair, error)
	FindByTokenAndQuote(ctx context.Context, network, token, quote string) ([]*Pair, error)
}
