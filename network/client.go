package network

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/contract/abi"
	"github.com/exposure-labs/subnet-relay/ethclient"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/monitor"
)

var ErrAlreadySubscribed = errors.New("network already has a live subscription")

type client struct {
	cfg        *config.NetworkConfig
	logger     logging.Logger
	eth        ethclient.Client
	bridge     *contract.BridgeContract
	oracle     *contract.OracleContract
	transactor *contract.Transactor
	bridgeABI  *abi.ABI
	bridgeEv   string

	// router address -> factory address; factories never change
	factories *cache.Cache

	mu      sync.Mutex
	monitor *monitor.ContractMonitor
}

func contractABI(custom []string, defaults []string) (*abi.ABI, error) {
	if len(custom) > 0 {
		return abi.ParseSignatures(custom...)
	}
	return abi.ParseSignatures(defaults...)
}

func newClient(logger logging.Logger, eth ethclient.Client, cfg *config.NetworkConfig, relayCfg *config.RelayConfig, key *ecdsa.PrivateKey, bridgeDefaults, oracleDefaults []string, bridgeEvent string) (*client, error) {
	bridgeABI, err := contractABI(cfg.ABI, bridgeDefaults)
	if err != nil {
		return nil, fmt.Errorf("can't parse bridge abi: %w", err)
	}
	oracleABI, err := contractABI(cfg.ABI, oracleDefaults)
	if err != nil {
		return nil, fmt.Errorf("can't parse oracle abi: %w", err)
	}
	transactor, err := contract.NewTransactor(eth, key, relayCfg)
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("network", cfg.Name)
	logger.WithField("relayer", transactor.From()).Info("initialized network client")
	return &client{
		cfg:        cfg,
		logger:     logger,
		eth:        eth,
		bridge:     contract.NewBridgeContract(eth, cfg.BridgeAddress, bridgeABI),
		oracle:     contract.NewOracleContract(eth, cfg.OracleAddress, oracleABI),
		transactor: transactor,
		bridgeABI:  bridgeABI,
		bridgeEv:   bridgeEvent,
		factories:  cache.New(cache.NoExpiration, 0),
	}, nil
}

func dial(cfg *config.NetworkConfig) (ethclient.Client, error) {
	eth, err := ethclient.NewClient(cfg.Name, cfg.RPC.Host, cfg.RPC.Timeout, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("can't dial %s: %w", cfg.Name, err)
	}
	return eth, nil
}

func (c *client) Name() string {
	return c.cfg.Name
}

func (c *client) Config() *config.NetworkConfig {
	return c.cfg
}

func (c *client) BridgeEvent() string {
	return c.bridgeEv
}

func (c *client) BlockHeight(ctx context.Context) (uint, bool) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		c.logger.WithError(err).Error("can't get block height")
		return 0, false
	}
	if head < c.cfg.BlockConfirmations {
		return 0, true
	}
	return head - c.cfg.BlockConfirmations, true
}

func (c *client) SyncedHeight(ctx context.Context) (uint, bool) {
	c.mu.Lock()
	m := c.monitor
	c.mu.Unlock()
	if m != nil {
		if block, ok := m.ProcessedBlock(); ok {
			return block, true
		}
	}
	return c.BlockHeight(ctx)
}

func (c *client) Balance(ctx context.Context, token, holder common.Address) (*big.Int, bool) {
	balance, err := contract.NewERC20Contract(c.eth, token).BalanceOf(ctx, holder)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"token":  token,
			"holder": holder,
		}).Error("can't get balance")
		return nil, false
	}
	return balance, true
}

func (c *client) Price(ctx context.Context, target common.Address) (*big.Int, bool) {
	price, err := c.oracle.Price(ctx, target)
	if err != nil {
		c.logger.WithError(err).WithField("target", target).Error("can't get price")
		return nil, false
	}
	return price, true
}

func (c *client) MarketCap(ctx context.Context, target common.Address) (*big.Int, bool) {
	mcap, err := c.oracle.MarketCap(ctx, target)
	if err != nil {
		c.logger.WithError(err).WithField("target", target).Error("can't get market cap")
		return nil, false
	}
	return mcap, true
}

func (c *client) factory(ctx context.Context, router common.Address) (common.Address, error) {
	if factory, ok := c.factories.Get(router.Hex()); ok {
		return factory.(common.Address), nil
	}
	factory, err := contract.NewRouterContract(c.eth, router).Factory(ctx)
	if err != nil {
		return common.Address{}, err
	}
	c.factories.Set(router.Hex(), factory, cache.NoExpiration)
	return factory, nil
}

func (c *client) PairAddress(ctx context.Context, router, tokenA, tokenB common.Address) (common.Address, bool) {
	logger := c.logger.WithFields(logrus.Fields{
		"router":  router,
		"token_a": tokenA,
		"token_b": tokenB,
	})
	factory, err := c.factory(ctx, router)
	if err != nil {
		logger.WithError(err).Error("can't resolve dex factory")
		return common.Address{}, false
	}
	pair, err := contract.NewFactoryContract(c.eth, factory).GetPair(ctx, tokenA, tokenB)
	if err != nil {
		logger.WithError(err).Error("can't get pair address")
		return common.Address{}, false
	}
	if pair == (common.Address{}) {
		return common.Address{}, false
	}
	return pair, true
}

func (c *client) QueryLogs(ctx context.Context, event string, fromBlock, toBlock uint) ([]*contract.Event, bool) {
	logger := c.logger.WithFields(logrus.Fields{
		"event":      event,
		"from_block": fromBlock,
		"to_block":   toBlock,
	})
	q, err := c.bridge.EventQuery(event, fromBlock, toBlock)
	if err != nil {
		logger.WithError(err).Error("can't build logs query")
		return nil, false
	}
	logs, err := monitor.FetchLogs(ctx, c.eth, q, c.cfg.SafeLogsRequest)
	if err != nil {
		logger.WithError(err).Error("can't query logs")
		return nil, false
	}
	events := make([]*contract.Event, 0, len(logs))
	for _, log := range logs {
		ev, err2 := c.bridge.ParseLog(log)
		if err2 != nil || ev == nil {
			logger.WithError(err2).WithFields(logrus.Fields{
				"block_number": log.BlockNumber,
				"log_index":    log.Index,
			}).Warn("can't decode log, skipping")
			continue
		}
		events = append(events, ev)
	}
	return events, true
}

func (c *client) SendAndConfirm(ctx context.Context, call *contract.Call) bool {
	logger := c.logger.WithFields(logrus.Fields{
		"method": call.Method,
		"to":     call.To,
	})
	receipt, err := c.transactor.SendAndConfirm(ctx, call)
	if err != nil {
		logger.WithError(err).Error("transaction failed")
		status := "error"
		switch {
		case errors.Is(err, contract.ErrTxReverted):
			status = "reverted"
		case errors.Is(err, contract.ErrConfirmationTimeout):
			status = "timeout"
		}
		TransactionResults.WithLabelValues(c.cfg.Name, call.Method, status).Inc()
		return false
	}
	TransactionResults.WithLabelValues(c.cfg.Name, call.Method, "ok").Inc()
	logger.WithFields(logrus.Fields{
		"tx_hash":      receipt.TxHash,
		"block_number": receipt.BlockNumber,
	}).Info("transaction confirmed")
	return true
}

func (c *client) Subscribe(ctx context.Context, event string, fromBlock uint, handler EventHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.monitor != nil {
		return ErrAlreadySubscribed
	}
	m := monitor.NewContractMonitor(c.logger, c.eth, c.bridge.Contract, c.cfg)
	m.RegisterEventHandler(event, handler)
	if err := m.VerifyEventHandlersABI(); err != nil {
		return err
	}
	m.Start(ctx, fromBlock)
	c.monitor = m
	return nil
}

func (c *client) BridgeRequestIsComplete(ctx context.Context, requestID *big.Int) (bool, bool) {
	complete, err := c.bridge.BridgeRequestIsComplete(ctx, requestID)
	if err != nil {
		c.logger.WithError(err).WithField("request_id", requestID).Error("can't check bridge request completion")
		return false, false
	}
	return complete, true
}

func (c *client) send(ctx context.Context, call *contract.Call, err error) bool {
	if err != nil {
		c.logger.WithError(err).Error("can't prepare transaction")
		return false
	}
	return c.SendAndConfirm(ctx, call)
}
