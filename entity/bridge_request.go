package entity

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Direction string

const (
	DirectionToSubnet  Direction = "to_subnet"
	DirectionToMainnet Direction = "to_mainnet"
)

// BridgeRequest is a queued transfer that has been observed on its source
// network but not yet confirmed complete on its destination. An empty
// DestinationNetwork means the destination could not be resolved yet.
type BridgeRequest struct {
	ID                 uint           `db:"id"`
	Direction          Direction      `db:"direction"`
	SourceNetwork      string         `db:"source_network"`
	DestinationNetwork string         `db:"destination_network"`
	DestinationChainID string         `db:"destination_chain_id"`
	RequestID          string         `db:"request_id"`
	Asset              common.Address `db:"asset"`
	User               common.Address `db:"user_address"`
	Amount             string         `db:"amount"`
	AssetName          string         `db:"asset_name"`
	AssetSymbol        string         `db:"asset_symbol"`
	BlockNumber        uint           `db:"block_number"`
	LogIndex           uint           `db:"log_index"`
	CreatedAt          *time.Time     `db:"created_at"`
	UpdatedAt          *time.Time     `db:"updated_at"`
}

func (r *BridgeRequest) RequestIDInt() *big.Int {
	id, _ := new(big.Int).SetString(r.RequestID, 10)
	return id
}

func (r *BridgeRequest) AmountInt() *big.Int {
	amount, _ := new(big.Int).SetString(r.Amount, 10)
	return amount
}

// Key identifies a request across the queue and the in-flight guard.
func (r *BridgeRequest) Key() string {
	return string(r.Direction) + "/" + r.SourceNetwork + "/" + r.RequestID
}

type BridgeRequestsRepo interface {
	Ensure(ctx context.Context, reqs ...*BridgeRequest) error
	FindPending(ctx context.Context) ([]*BridgeRequest, error)
	Delete(ctx context.Context, req *BridgeRequest) error
	Count(ctx context.Context) (uint, error)
}
