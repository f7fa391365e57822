package presenter

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/entity"
)

type NetworkStatus struct {
	Name       string
	ChainID    string `json:",omitempty"`
	Checkpoint *uint  `json:",omitempty"`
	Head       *uint  `json:",omitempty"`
}

type StatusResult struct {
	Networks  []*NetworkStatus
	QueueSize uint
}

type BridgeRequestInfo struct {
	Direction   entity.Direction
	Source      string
	Destination string
	RequestID   string
	User        common.Address
	Asset       common.Address
	Symbol      string
	Amount      string
	BlockNumber uint
}

type PriceInfo struct {
	Symbol    string
	Price     string
	MarketCap string `json:",omitempty"`
}

type PairInfo struct {
	Network     string
	Dex         string
	Pair        string
	PairAddress common.Address
	Token       common.Address
	Quote       common.Address
}

type BalanceResult struct {
	Network string
	Token   common.Address
	Holder  common.Address
	Balance string
	Raw     string
}

type VerifyRequest struct {
	HashedMessage string `json:"hashedMessage"`
	Account       string `json:"account"`
	Message       string `json:"message"`
	R             string `json:"r"`
	S             string `json:"s"`
	V             string `json:"v"`
}

type VerifyResult struct {
	Status bool `json:"status"`
}
