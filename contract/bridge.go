package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/contract/abi"
	"github.com/exposure-labs/subnet-relay/ethclient"
)

const (
	BridgeToSubnet  = "BridgeToSubnet"
	BridgeToMainnet = "BridgeToMainnet"
)

type BridgeContract struct {
	*Contract
}

func NewBridgeContract(client ethclient.Client, addr common.Address, contractABI *abi.ABI) *BridgeContract {
	return &BridgeContract{NewContract(client, addr, contractABI)}
}

func (c *BridgeContract) BridgeRequestIsComplete(ctx context.Context, requestID *big.Int) (bool, error) {
	values, err := c.Call(ctx, "bridgeRequestIsComplete", requestID)
	if err != nil {
		return false, err
	}
	if len(values) != 1 {
		return false, fmt.Errorf("bridgeRequestIsComplete returned %d values: %w", len(values), abi.ErrInvalidSignature)
	}
	complete, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("bridgeRequestIsComplete returned %T: %w", values[0], abi.ErrInvalidSignature)
	}
	return complete, nil
}

func (c *BridgeContract) BridgeToSubnetCall(asset, user common.Address, amount, requestID *big.Int, name, symbol string) (*Call, error) {
	return c.NewCall("bridgeToSubnet", asset, user, amount, requestID, name, symbol)
}

func (c *BridgeContract) BridgeToMainnetCall(asset, user common.Address, amount, requestID *big.Int, symbol string) (*Call, error) {
	return c.NewCall("bridgeToMainnet", asset, user, amount, requestID, symbol)
}
