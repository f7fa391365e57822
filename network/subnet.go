package network

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/contract/abi"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/ethclient"
	"github.com/exposure-labs/subnet-relay/logging"
)

type SubnetClient struct {
	*client
}

func NewSubnetClient(logger logging.Logger, cfg *config.NetworkConfig, relayCfg *config.RelayConfig, key *ecdsa.PrivateKey) (*SubnetClient, error) {
	eth, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return newSubnetClient(logger, eth, cfg, relayCfg, key)
}

func newSubnetClient(logger logging.Logger, eth ethclient.Client, cfg *config.NetworkConfig, relayCfg *config.RelayConfig, key *ecdsa.PrivateKey) (*SubnetClient, error) {
	c, err := newClient(logger, eth, cfg, relayCfg, key, abi.SubnetBridge, abi.SubnetOracle, contract.BridgeToMainnet)
	if err != nil {
		return nil, err
	}
	return &SubnetClient{c}, nil
}

func (c *SubnetClient) Fulfill(ctx context.Context, req *entity.BridgeRequest) bool {
	call, err := c.bridge.BridgeToSubnetCall(req.Asset, req.User, req.AmountInt(), req.RequestIDInt(), req.AssetName, req.AssetSymbol)
	return c.send(ctx, call, err)
}

func (c *SubnetClient) UpdatePrices(ctx context.Context, tokens []common.Address, prices []*big.Int) bool {
	call, err := c.oracle.UpdatePricesCall(tokens, prices)
	return c.send(ctx, call, err)
}

func (c *SubnetClient) UpdateMarketCaps(ctx context.Context, tokens []common.Address, mcaps []*big.Int) bool {
	call, err := c.oracle.UpdateMarketCapsCall(tokens, mcaps)
	return c.send(ctx, call, err)
}
