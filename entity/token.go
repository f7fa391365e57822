package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token is a (network, symbol) -> address registry row. The same shape backs
// bridged tokens, liquidity tokens and dollar coins.
type Token struct {
	NetworkName     string         `db:"network_name"`
	TokenName       string         `db:"token_name"`
	ContractAddress common.Address `db:"contract_address"`
	CreatedAt       *time.Time     `db:"created_at"`
	UpdatedAt       *time.Time     `db:"updated_at"`
}

type TokensRepo interface {
	Ensure(ctx context.Context, token *Token) error
	// Insert creates the row if it is absent and reports whether it did.
	Insert(ctx context.Context, token *Token) (bool, error)
	GetByNetworkAndName(ctx context.Context, network, name string) (*Token, error)
	FindByNetwork(ctx context.Context, network string) ([]*Token, error)
	FindByName(ctx context.Context, name string) ([]*Token, error)
	FindAll(ctx context.Context) ([]*Token, error)
}
