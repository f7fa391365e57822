package network

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/contract/abi"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/ethclient"
	"github.com/exposure-labs/subnet-relay/logging"
)

type MainnetClient struct {
	*client
}

func NewMainnetClient(logger logging.Logger, cfg *config.NetworkConfig, relayCfg *config.RelayConfig, key *ecdsa.PrivateKey) (*MainnetClient, error) {
	eth, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return newMainnetClient(logger, eth, cfg, relayCfg, key)
}

func newMainnetClient(logger logging.Logger, eth ethclient.Client, cfg *config.NetworkConfig, relayCfg *config.RelayConfig, key *ecdsa.PrivateKey) (*MainnetClient, error) {
	c, err := newClient(logger, eth, cfg, relayCfg, key, abi.MainnetBridge, abi.MainnetOracle, contract.BridgeToSubnet)
	if err != nil {
		return nil, err
	}
	return &MainnetClient{c}, nil
}

func (c *MainnetClient) Fulfill(ctx context.Context, req *entity.BridgeRequest) bool {
	call, err := c.bridge.BridgeToMainnetCall(req.Asset, req.User, req.AmountInt(), req.RequestIDInt(), req.AssetSymbol)
	return c.send(ctx, call, err)
}

func (c *MainnetClient) UpdatePrices(ctx context.Context, pairs, tokens, quotes []common.Address) bool {
	call, err := c.oracle.UpdatePairsCall(pairs, tokens, quotes)
	return c.send(ctx, call, err)
}
