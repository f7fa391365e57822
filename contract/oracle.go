package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/contract/abi"
	"github.com/exposure-labs/subnet-relay/ethclient"
)

type OracleContract struct {
	*Contract
}

func NewOracleContract(client ethclient.Client, addr common.Address, contractABI *abi.ABI) *OracleContract {
	return &OracleContract{NewContract(client, addr, contractABI)}
}

// Price is keyed by pair address on mainnets and by token address on the subnet.
func (c *OracleContract) Price(ctx context.Context, target common.Address) (*big.Int, error) {
	return c.callBigInt(ctx, "price", target)
}

func (c *OracleContract) MarketCap(ctx context.Context, target common.Address) (*big.Int, error) {
	return c.callBigInt(ctx, "marketCap", target)
}

func (c *OracleContract) UpdatePairsCall(pairs, tokens, quotes []common.Address) (*Call, error) {
	return c.NewCall("updateMultiple", pairs, tokens, quotes)
}

func (c *OracleContract) UpdatePricesCall(tokens []common.Address, prices []*big.Int) (*Call, error) {
	return c.NewCall("updateMultiple", tokens, prices)
}

func (c *OracleContract) UpdateMarketCapsCall(tokens []common.Address, mcaps []*big.Int) (*Call, error) {
	return c.NewCall("updateMultipleMarketCap", tokens, mcaps)
}
