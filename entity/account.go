package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Account struct {
	Email     string         `db:"email"`
	Address   common.Address `db:"address"`
	CreatedAt *time.Time     `db:"created_at"`
	UpdatedAt *time.Time     `db:"updated_at"`
}

type AccountsRepo interface {
	Ensure(ctx context.Context, account *Account) error
}
