package bridge

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/entity"
)

var (
	ErrMalformedEvent      = errors.New("malformed bridge event")
	ErrUnknownDestination  = errors.New("can't resolve destination network")
	ErrUnsupportedBridgeEv = errors.New("unsupported bridge event")
)

func eventAddress(ev *contract.Event, key string) (common.Address, error) {
	v, ok := ev.Data[key].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("field %s is missing or not an address: %w", key, ErrMalformedEvent)
	}
	return v, nil
}

func eventString(ev *contract.Event, key string) (string, error) {
	v, ok := ev.Data[key].(string)
	if !ok {
		return "", fmt.Errorf("field %s is missing or not a string: %w", key, ErrMalformedEvent)
	}
	return v, nil
}

// eventUint256 returns the decimal form of an unsigned 256-bit field.
func eventUint256(ev *contract.Event, key string) (string, error) {
	v, ok := ev.Data[key].(*big.Int)
	if !ok || v == nil {
		return "", fmt.Errorf("field %s is missing or not an integer: %w", key, ErrMalformedEvent)
	}
	if v.Sign() < 0 {
		return "", fmt.Errorf("field %s is negative: %w", key, ErrMalformedEvent)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return "", fmt.Errorf("field %s overflows uint256: %w", key, ErrMalformedEvent)
	}
	return u.Dec(), nil
}

type eventFields struct {
	user      common.Address
	asset     common.Address
	amount    string
	requestID string
	name      string
	symbol    string
}

func decodeCommon(ev *contract.Event, assetKey string) (*eventFields, error) {
	var f eventFields
	var err error
	if f.user, err = eventAddress(ev, "user"); err != nil {
		return nil, err
	}
	if f.asset, err = eventAddress(ev, assetKey); err != nil {
		return nil, err
	}
	if f.amount, err = eventUint256(ev, "amount"); err != nil {
		return nil, err
	}
	if f.requestID, err = eventUint256(ev, "_bridgeRequestID"); err != nil {
		return nil, err
	}
	if f.name, err = eventString(ev, "name_"); err != nil {
		return nil, err
	}
	if f.symbol, err = eventString(ev, "symbol_"); err != nil {
		return nil, err
	}
	return &f, nil
}

func newRequest(direction entity.Direction, source, destination string, f *eventFields, ev *contract.Event) *entity.BridgeRequest {
	req := &entity.BridgeRequest{
		Direction:          direction,
		SourceNetwork:      source,
		DestinationNetwork: destination,
		RequestID:          f.requestID,
		Asset:              f.asset,
		User:               f.user,
		Amount:             f.amount,
		AssetName:          f.name,
		AssetSymbol:        f.symbol,
	}
	if ev.Log != nil {
		req.BlockNumber = uint(ev.Log.BlockNumber)
		req.LogIndex = ev.Log.Index
	}
	return req
}

// Decode turns a bridge event observed on source into a request addressed
// to its destination network.
func (r *Relay) Decode(source string, ev *contract.Event) (*entity.BridgeRequest, error) {
	switch ev.Name {
	case contract.BridgeToSubnet:
		f, err := decodeCommon(ev, "asset")
		if err != nil {
			return nil, err
		}
		return newRequest(entity.DirectionToSubnet, source, r.subnet.Name(), f, ev), nil
	case contract.BridgeToMainnet:
		f, err := decodeCommon(ev, "assetMainnet")
		if err != nil {
			return nil, err
		}
		var chainID string
		if id, ok := ev.Data["chainId"].(*big.Int); ok && id != nil {
			chainID = id.String()
		}
		// unresolved destinations are queued and resolved again on fulfilment
		destination, _ := r.destinationFor(chainID)
		req := newRequest(entity.DirectionToMainnet, source, destination, f, ev)
		req.DestinationChainID = chainID
		return req, nil
	default:
		return nil, fmt.Errorf("%s: %w", ev.Name, ErrUnsupportedBridgeEv)
	}
}

// destinationFor routes a subnet withdrawal by its chain id. Withdrawals
// without one are accepted only while a single mainnet is configured.
func (r *Relay) destinationFor(chainID string) (string, error) {
	if chainID != "" {
		if name, ok := r.chainIDs[chainID]; ok {
			return name, nil
		}
		return "", fmt.Errorf("chain id %s: %w", chainID, ErrUnknownDestination)
	}
	if len(r.configured) == 1 {
		return r.configured[0], nil
	}
	return "", fmt.Errorf("event has no chain id and %d mainnets are configured: %w", len(r.configured), ErrUnknownDestination)
}
