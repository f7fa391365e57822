package entity

import (
	"context"
	"time"
)

// Price and MarketCap values are 18-decimal fixed point integers kept as
// decimal strings.
type Price struct {
	TokenName string     `db:"token_name"`
	Price     string     `db:"price"`
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

type PricesRepo interface {
	Ensure(ctx context.Context, price *Price) error
	GetByTokenName(ctx context.Context, name string) (*Price, error)
	FindAll(ctx context.Context) ([]*Price, error)
}

type MarketCap struct {
	TokenName string     `db:"token_name"`
	MarketCap string     `db:"mcap"`
	CreatedAt *time.Time `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

type MarketCapsRepo interface {
	Ensure(ctx context.Context, mcap *MarketCap) error
	GetByTokenName(ctx context.Context, name string) (*MarketCap, error)
	FindAll(ctx context.Context) ([]*MarketCap, error)
}
