package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/ethclient"
	"github.com/exposure-labs/subnet-relay/utils"
)

var (
	ErrTxReverted          = errors.New("transaction reverted")
	ErrConfirmationTimeout = errors.New("transaction was not confirmed in time")
)

const defaultPollInterval = 2 * time.Second

// Transactor signs and submits calls with the relay key on one chain.
// Nonce assignment and submission are serialized.
type Transactor struct {
	client        ethclient.Client
	opts          *bind.TransactOpts
	gasLimit      uint64
	confirmations uint
	timeout       time.Duration
	pollInterval  time.Duration

	mu sync.Mutex
}

func NewTransactor(client ethclient.Client, key *ecdsa.PrivateKey, cfg *config.RelayConfig) (*Transactor, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, client.ChainID())
	if err != nil {
		return nil, fmt.Errorf("can't create transactor: %w", err)
	}
	return &Transactor{
		client:        client,
		opts:          opts,
		gasLimit:      cfg.TxGasLimit,
		confirmations: cfg.TxConfirmations,
		timeout:       cfg.TxTimeout,
		pollInterval:  defaultPollInterval,
	}, nil
}

func (t *Transactor) From() common.Address {
	return t.opts.From
}

func (t *Transactor) Send(ctx context.Context, call *Call) (*types.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nonce, err := t.client.PendingNonceAt(ctx, t.opts.From)
	if err != nil {
		return nil, fmt.Errorf("can't get nonce: %w", err)
	}
	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get gas price: %w", err)
	}
	gas := t.gasLimit
	if gas == 0 {
		to := call.To
		gas, err = t.client.EstimateGas(ctx, ethereum.CallMsg{
			From:     t.opts.From,
			To:       &to,
			GasPrice: gasPrice,
			Data:     call.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("can't estimate gas for %s: %w", call.Method, err)
		}
		gas += gas / 5
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &call.To,
		Value:    new(big.Int),
		Data:     call.Data,
	})
	signed, err := t.opts.Signer(t.opts.From, tx)
	if err != nil {
		return nil, fmt.Errorf("can't sign transaction: %w", err)
	}
	if err = t.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("can't send %s transaction: %w", call.Method, err)
	}
	return signed, nil
}

// WaitConfirmed polls until the transaction has the configured number of
// confirmations, counting its own block as the first one.
func (t *Transactor) WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	for {
		receipt, err := t.client.TransactionReceiptByHash(ctx, tx.Hash())
		if err == nil && receipt != nil && receipt.BlockNumber != nil {
			head, err2 := t.client.BlockNumber(ctx)
			if err2 == nil && uint64(head)+1 >= receipt.BlockNumber.Uint64()+uint64(t.confirmations) {
				if receipt.Status != types.ReceiptStatusSuccessful {
					return receipt, fmt.Errorf("tx %s: %w", tx.Hash(), ErrTxReverted)
				}
				return receipt, nil
			}
		}
		if utils.ContextSleep(ctx, t.pollInterval) == nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("tx %s: %w", tx.Hash(), ErrConfirmationTimeout)
			}
			return nil, ctx.Err()
		}
	}
}

func (t *Transactor) SendAndConfirm(ctx context.Context, call *Call) (*types.Receipt, error) {
	tx, err := t.Send(ctx, call)
	if err != nil {
		return nil, err
	}
	return t.WaitConfirmed(ctx, tx)
}
