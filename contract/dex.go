package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/contract/abi"
	"github.com/exposure-labs/subnet-relay/ethclient"
)

var (
	routerABI  = abi.MustParseSignatures(abi.DexRouter...)
	factoryABI = abi.MustParseSignatures(abi.DexFactory...)
	erc20ABI   = abi.MustParseSignatures(abi.ERC20...)
)

type RouterContract struct {
	*Contract
}

func NewRouterContract(client ethclient.Client, addr common.Address) *RouterContract {
	return &RouterContract{NewContract(client, addr, routerABI)}
}

func (c *RouterContract) Factory(ctx context.Context) (common.Address, error) {
	return c.callAddress(ctx, "factory")
}

type FactoryContract struct {
	*Contract
}

func NewFactoryContract(client ethclient.Client, addr common.Address) *FactoryContract {
	return &FactoryContract{NewContract(client, addr, factoryABI)}
}

// GetPair returns the zero address when no pair exists.
func (c *FactoryContract) GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	return c.callAddress(ctx, "getPair", tokenA, tokenB)
}

type ERC20Contract struct {
	*Contract
}

func NewERC20Contract(client ethclient.Client, addr common.Address) *ERC20Contract {
	return &ERC20Contract{NewContract(client, addr, erc20ABI)}
}

func (c *ERC20Contract) BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error) {
	return c.callBigInt(ctx, "balanceOf", holder)
}
