package network

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/contract/abi"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
)

var errRPC = errors.New("rpc is down")

type fakeClient struct {
	mu      sync.Mutex
	head    uint
	headErr error
	logs    []types.Log
	calls   map[string]int
	results map[string][]byte
	sent    []*types.Transaction
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		head:    100,
		calls:   make(map[string]int),
		results: make(map[string][]byte),
	}
}

func (c *fakeClient) Network() string   { return "test" }
func (c *fakeClient) ChainID() *big.Int { return big.NewInt(1) }
func (c *fakeClient) BlockNumber(context.Context) (uint, error) {
	return c.head, c.headErr
}

func (c *fakeClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var res []types.Log
	for _, log := range c.logs {
		if log.BlockNumber >= q.FromBlock.Uint64() && log.BlockNumber <= q.ToBlock.Uint64() {
			res = append(res, log)
		}
	}
	return res, nil
}

func (c *fakeClient) FilterLogsSafe(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.FilterLogs(ctx, q)
}

func (c *fakeClient) TransactionReceiptByHash(context.Context, common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(90)}, nil
}

func (c *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := msg.To.Hex() + "/" + common.Bytes2Hex(msg.Data[:4])
	c.calls[key]++
	res, ok := c.results[key]
	if !ok {
		return nil, errRPC
	}
	return res, nil
}

func (c *fakeClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(c.sent)), nil
}

func (c *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (c *fakeClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 50000, nil
}

func (c *fakeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.sent = append(c.sent, tx)
	return nil
}

func (c *fakeClient) setResult(t *testing.T, to common.Address, contractABI *abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m := contractABI.Methods[method]
	res, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	c.results[to.Hex()+"/"+common.Bytes2Hex(m.ID)] = res
}

func (c *fakeClient) callCount(to common.Address, contractABI *abi.ABI, method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[to.Hex()+"/"+common.Bytes2Hex(contractABI.Methods[method].ID)]
}

var (
	bridgeAddr  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	oracleAddr  = common.HexToAddress("0x1000000000000000000000000000000000000002")
	routerAddr  = common.HexToAddress("0x1000000000000000000000000000000000000003")
	factoryAddr = common.HexToAddress("0x1000000000000000000000000000000000000004")
	pairAddr    = common.HexToAddress("0x1000000000000000000000000000000000000005")
	tokenAddr   = common.HexToAddress("0x2000000000000000000000000000000000000001")
	quoteAddr   = common.HexToAddress("0x2000000000000000000000000000000000000002")
	userAddr    = common.HexToAddress("0x3000000000000000000000000000000000000001")
)

func testNetworkConfig(name string) *config.NetworkConfig {
	return &config.NetworkConfig{
		Name:               name,
		BridgeAddress:      bridgeAddr,
		OracleAddress:      oracleAddr,
		BlockConfirmations: 3,
		MaxBlockRangeSize:  50,
		BlockIndexInterval: 10 * time.Millisecond,
	}
}

func testRelayConfig() *config.RelayConfig {
	return &config.RelayConfig{TxConfirmations: 2, TxTimeout: time.Second}
}

func newTestMainnet(t *testing.T, eth *fakeClient) *MainnetClient {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	c, err := newMainnetClient(logging.New(), eth, testNetworkConfig("ethereum"), testRelayConfig(), key)
	require.NoError(t, err)
	return c
}

func newTestSubnet(t *testing.T, eth *fakeClient) *SubnetClient {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	c, err := newSubnetClient(logging.New(), eth, testNetworkConfig("subnet"), testRelayConfig(), key)
	require.NoError(t, err)
	return c
}

func TestClient_BlockHeight(t *testing.T) {
	t.Parallel()

	eth := newFakeClient()
	c := newTestMainnet(t, eth)

	height, ok := c.BlockHeight(context.Background())
	require.True(t, ok)
	require.Equal(t, uint(97), height)

	synced, ok := c.SyncedHeight(context.Background())
	require.True(t, ok)
	require.Equal(t, uint(97), synced)

	eth.headErr = errRPC
	_, ok = c.BlockHeight(context.Background())
	require.False(t, ok)
}

func TestClient_PairAddressCachesFactory(t *testing.T) {
	t.Parallel()

	eth := newFakeClient()
	routerABI := abi.MustParseSignatures(abi.DexRouter...)
	factoryABI := abi.MustParseSignatures(abi.DexFactory...)
	eth.setResult(t, routerAddr, routerABI, "factory", factoryAddr)
	eth.setResult(t, factoryAddr, factoryABI, "getPair", pairAddr)
	c := newTestMainnet(t, eth)

	for i := 0; i < 3; i++ {
		pair, ok := c.PairAddress(context.Background(), routerAddr, tokenAddr, quoteAddr)
		require.True(t, ok)
		require.Equal(t, pairAddr, pair)
	}
	require.Equal(t, 1, eth.callCount(routerAddr, routerABI, "factory"))
	require.Equal(t, 3, eth.callCount(factoryAddr, factoryABI, "getPair"))

	eth.setResult(t, factoryAddr, factoryABI, "getPair", common.Address{})
	_, ok := c.PairAddress(context.Background(), routerAddr, tokenAddr, quoteAddr)
	require.False(t, ok)
}

func TestClient_Reads(t *testing.T) {
	t.Parallel()

	eth := newFakeClient()
	c := newTestSubnet(t, eth)
	oracleABI := abi.MustParseSignatures(abi.SubnetOracle...)
	bridgeABI := abi.MustParseSignatures(abi.SubnetBridge...)

	_, ok := c.Price(context.Background(), tokenAddr)
	require.False(t, ok)
	_, ok = c.BridgeRequestIsComplete(context.Background(), big.NewInt(42))
	require.False(t, ok)

	eth.setResult(t, oracleAddr, oracleABI, "price", big.NewInt(500))
	eth.setResult(t, oracleAddr, oracleABI, "marketCap", big.NewInt(7000))
	eth.setResult(t, bridgeAddr, bridgeABI, "bridgeRequestIsComplete", true)

	price, ok := c.Price(context.Background(), tokenAddr)
	require.True(t, ok)
	require.Equal(t, big.NewInt(500), price)
	mcap, ok := c.MarketCap(context.Background(), tokenAddr)
	require.True(t, ok)
	require.Equal(t, big.NewInt(7000), mcap)
	complete, ok := c.BridgeRequestIsComplete(context.Background(), big.NewInt(42))
	require.True(t, ok)
	require.True(t, complete)
}

func TestClient_Fulfill(t *testing.T) {
	t.Parallel()

	req := &entity.BridgeRequest{
		RequestID:   "42",
		Asset:       tokenAddr,
		User:        userAddr,
		Amount:      "1000000000000000000",
		AssetName:   "Token",
		AssetSymbol: "TKN",
	}

	t.Run("mainnet", func(t *testing.T) {
		t.Parallel()
		eth := newFakeClient()
		c := newTestMainnet(t, eth)
		require.True(t, c.Fulfill(context.Background(), req))
		require.Len(t, eth.sent, 1)

		bridgeABI := abi.MustParseSignatures(abi.MainnetBridge...)
		expected, err := bridgeABI.Pack("bridgeToMainnet", tokenAddr, userAddr, req.AmountInt(), big.NewInt(42), "TKN")
		require.NoError(t, err)
		require.Equal(t, expected, eth.sent[0].Data())
		require.Equal(t, bridgeAddr, *eth.sent[0].To())
	})

	t.Run("subnet", func(t *testing.T) {
		t.Parallel()
		eth := newFakeClient()
		c := newTestSubnet(t, eth)
		require.True(t, c.Fulfill(context.Background(), req))
		require.Len(t, eth.sent, 1)

		bridgeABI := abi.MustParseSignatures(abi.SubnetBridge...)
		expected, err := bridgeABI.Pack("bridgeToSubnet", tokenAddr, userAddr, req.AmountInt(), big.NewInt(42), "Token", "TKN")
		require.NoError(t, err)
		require.Equal(t, expected, eth.sent[0].Data())
	})
}

func TestClient_UpdatePrices(t *testing.T) {
	t.Parallel()

	eth := newFakeClient()
	c := newTestSubnet(t, eth)
	require.True(t, c.UpdatePrices(context.Background(), []common.Address{tokenAddr}, []*big.Int{big.NewInt(1)}))
	require.True(t, c.UpdateMarketCaps(context.Background(), []common.Address{tokenAddr}, []*big.Int{big.NewInt(2)}))
	require.Len(t, eth.sent, 2)
	require.Equal(t, oracleAddr, *eth.sent[0].To())
	require.Equal(t, uint64(1), eth.sent[1].Nonce())
}

func TestClient_QueryLogs(t *testing.T) {
	t.Parallel()

	eth := newFakeClient()
	c := newTestMainnet(t, eth)
	bridgeABI := abi.MustParseSignatures(abi.MainnetBridge...)
	event := bridgeABI.Events[c.BridgeEvent()]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(42), "Token", "TKN")
	require.NoError(t, err)
	eth.logs = []types.Log{
		{Address: bridgeAddr, Topics: []common.Hash{event.ID, common.BytesToHash(userAddr.Bytes()), common.BytesToHash(tokenAddr.Bytes()), common.BigToHash(big.NewInt(9))}, Data: data, BlockNumber: 20},
		{Address: bridgeAddr, Topics: []common.Hash{event.ID}, BlockNumber: 21},
		{Address: bridgeAddr, Topics: []common.Hash{event.ID, common.BytesToHash(userAddr.Bytes()), common.BytesToHash(tokenAddr.Bytes()), common.BigToHash(big.NewInt(9))}, Data: data, BlockNumber: 80},
	}

	events, ok := c.QueryLogs(context.Background(), c.BridgeEvent(), 10, 30)
	require.True(t, ok)
	require.Len(t, events, 1)
	require.Equal(t, big.NewInt(42), events[0].Data["_bridgeRequestID"])

	_, ok = c.QueryLogs(context.Background(), "Unknown", 10, 30)
	require.False(t, ok)
}

func TestClient_Subscribe(t *testing.T) {
	t.Parallel()

	eth := newFakeClient()
	c := newTestMainnet(t, eth)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(context.Context, *contract.Event) error { return nil }
	require.NoError(t, c.Subscribe(ctx, c.BridgeEvent(), 50, handler))
	require.ErrorIs(t, c.Subscribe(ctx, c.BridgeEvent(), 50, handler), ErrAlreadySubscribed)

	require.Eventually(t, func() bool {
		block, ok := c.SyncedHeight(ctx)
		return ok && block == 97
	}, time.Second, 5*time.Millisecond)
}
