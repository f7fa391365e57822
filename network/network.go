package network

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/monitor"
)

type EventHandler = monitor.EventHandler

// Network is the relay's view of one chain. Reads report a missing value
// through the second result; the underlying error is logged by the
// implementation and never returned.
type Network interface {
	Name() string
	Config() *config.NetworkConfig
	// BridgeEvent is the name of the event emitted by this network's bridge
	// when a user requests a transfer away from it.
	BridgeEvent() string

	// BlockHeight returns the latest block considered final, i.e. the head
	// minus the configured number of confirmations.
	BlockHeight(ctx context.Context) (uint, bool)
	// SyncedHeight returns the last block handled by the live subscription,
	// or BlockHeight when nothing is subscribed.
	SyncedHeight(ctx context.Context) (uint, bool)
	Balance(ctx context.Context, token, holder common.Address) (*big.Int, bool)
	Price(ctx context.Context, target common.Address) (*big.Int, bool)
	MarketCap(ctx context.Context, target common.Address) (*big.Int, bool)
	// PairAddress reports false both on failure and when the factory has no pair.
	PairAddress(ctx context.Context, router, tokenA, tokenB common.Address) (common.Address, bool)
	QueryLogs(ctx context.Context, event string, fromBlock, toBlock uint) ([]*contract.Event, bool)
	SendAndConfirm(ctx context.Context, call *contract.Call) bool
	Subscribe(ctx context.Context, event string, fromBlock uint, handler EventHandler) error

	BridgeRequestIsComplete(ctx context.Context, requestID *big.Int) (complete bool, ok bool)
	// Fulfill submits the destination side of req on this network and waits
	// for confirmation.
	Fulfill(ctx context.Context, req *entity.BridgeRequest) bool
}

type Mainnet interface {
	Network
	UpdatePrices(ctx context.Context, pairs, tokens, quotes []common.Address) bool
}

type Subnet interface {
	Network
	UpdatePrices(ctx context.Context, tokens []common.Address, prices []*big.Int) bool
	UpdateMarketCaps(ctx context.Context, tokens []common.Address, mcaps []*big.Int) bool
}
