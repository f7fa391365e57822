package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Router struct {
	NetworkName     string         `db:"network_name"`
	DexName         string         `db:"dex_name"`
	ContractAddress common.Address `db:"contract_address"`
	CreatedAt       *time.Time     `db:"created_at"`
	UpdatedAt       *time.Time     `db:"updated_at"`
}

type RoutersRepo interface {
	Ensure(ctx context.Context, router *Router) error
	FindByNetwork(ctx context.Context, network string) ([]*Router, error)
}
