package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/exposure-labs/subnet-relay/contract/abi"
	"github.com/exposure-labs/subnet-relay/ethclient"
)

// Event is a log decoded against a contract ABI.
type Event struct {
	Name string
	Log  *types.Log
	Data map[string]interface{}
}

// Call is a prepared state-changing invocation.
type Call struct {
	To     common.Address
	Method string
	Data   []byte
}

type Contract struct {
	address common.Address
	client  ethclient.Client
	abi     *abi.ABI
}

func NewContract(client ethclient.Client, addr common.Address, contractABI *abi.ABI) *Contract {
	return &Contract{addr, client, contractABI}
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) ABI() *abi.ABI {
	return c.abi
}

func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot encode abi calldata: %w", err)
	}
	res, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot call %s(...): %w", method, err)
	}
	values, err := c.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s(...) result: %w", method, err)
	}
	return values, nil
}

func (c *Contract) NewCall(method string, args ...interface{}) (*Call, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot encode abi calldata for %s: %w", method, err)
	}
	return &Call{To: c.address, Method: method, Data: data}, nil
}

func (c *Contract) callBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s(...) returned %d values: %w", method, len(values), abi.ErrInvalidSignature)
	}
	res, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s(...) returned %T: %w", method, values[0], abi.ErrInvalidSignature)
	}
	return res, nil
}

func (c *Contract) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	values, err := c.Call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("%s(...) returned %d values: %w", method, len(values), abi.ErrInvalidSignature)
	}
	res, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s(...) returned %T: %w", method, values[0], abi.ErrInvalidSignature)
	}
	return res, nil
}

// EventQuery builds a log filter for the named event of this contract.
func (c *Contract) EventQuery(event string, fromBlock, toBlock uint) (ethereum.FilterQuery, error) {
	e, ok := c.abi.Events[event]
	if !ok {
		return ethereum.FilterQuery{}, fmt.Errorf("event %s is not declared: %w", event, abi.ErrInvalidEvent)
	}
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(uint64(fromBlock)),
		ToBlock:   new(big.Int).SetUint64(uint64(toBlock)),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{e.ID}},
	}, nil
}

// ParseLog returns nil for logs of events this contract does not declare.
func (c *Contract) ParseLog(log *types.Log) (*Event, error) {
	event, values, err := c.abi.DecodeLog(log)
	if err != nil || event == nil {
		return nil, err
	}
	return &Event{Name: event.RawName, Log: log, Data: values}, nil
}
