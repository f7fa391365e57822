package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/monitor"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/repository"
)

type fakeNetwork struct {
	mu                sync.Mutex
	cfg               *config.NetworkConfig
	event             string
	head              uint
	headDown          bool
	synced            uint
	events            []*contract.Event
	failWindows       map[uint]bool
	queried           []monitor.BlocksRange
	complete          map[string]bool
	completeDown      bool
	fulfillDown       bool
	failIDs           map[string]bool
	completeOnFulfill bool
	fulfillDelay      time.Duration
	fulfilled         []string
}

func newFakeNetwork(name, event string) *fakeNetwork {
	return &fakeNetwork{
		cfg: &config.NetworkConfig{
			Name:              name,
			MaxBlockRangeSize: 5000,
		},
		event:             event,
		failWindows:       make(map[uint]bool),
		complete:          make(map[string]bool),
		failIDs:           make(map[string]bool),
		completeOnFulfill: true,
	}
}

var _ network.Network = (*fakeNetwork)(nil)

func (n *fakeNetwork) Name() string                  { return n.cfg.Name }
func (n *fakeNetwork) Config() *config.NetworkConfig { return n.cfg }
func (n *fakeNetwork) BridgeEvent() string           { return n.event }

func (n *fakeNetwork) BlockHeight(context.Context) (uint, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head, !n.headDown
}

func (n *fakeNetwork) SyncedHeight(context.Context) (uint, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.synced, !n.headDown
}

func (n *fakeNetwork) Balance(context.Context, common.Address, common.Address) (*big.Int, bool) {
	return nil, false
}

func (n *fakeNetwork) Price(context.Context, common.Address) (*big.Int, bool) {
	return nil, false
}

func (n *fakeNetwork) MarketCap(context.Context, common.Address) (*big.Int, bool) {
	return nil, false
}

func (n *fakeNetwork) PairAddress(context.Context, common.Address, common.Address, common.Address) (common.Address, bool) {
	return common.Address{}, false
}

func (n *fakeNetwork) QueryLogs(_ context.Context, event string, fromBlock, toBlock uint) ([]*contract.Event, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queried = append(n.queried, monitor.BlocksRange{From: fromBlock, To: toBlock})
	if n.failWindows[fromBlock] || event != n.event {
		return nil, false
	}
	var res []*contract.Event
	for _, ev := range n.events {
		block := uint(ev.Log.BlockNumber)
		if block >= fromBlock && block <= toBlock {
			res = append(res, ev)
		}
	}
	return res, true
}

func (n *fakeNetwork) SendAndConfirm(context.Context, *contract.Call) bool {
	return false
}

func (n *fakeNetwork) Subscribe(context.Context, string, uint, network.EventHandler) error {
	return nil
}

func (n *fakeNetwork) BridgeRequestIsComplete(_ context.Context, requestID *big.Int) (bool, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.completeDown {
		return false, false
	}
	return n.complete[requestID.String()], true
}

func (n *fakeNetwork) Fulfill(_ context.Context, req *entity.BridgeRequest) bool {
	time.Sleep(n.fulfillDelay)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fulfilled = append(n.fulfilled, req.RequestID)
	if n.fulfillDown || n.failIDs[req.RequestID] {
		return false
	}
	if n.completeOnFulfill {
		n.complete[req.RequestID] = true
	}
	return true
}

func (n *fakeNetwork) fulfilledIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.fulfilled...)
}

type fakeBridgeRequestsRepo struct {
	mu     sync.Mutex
	lastID uint
	rows   map[string]*entity.BridgeRequest
	down   bool
}

func (r *fakeBridgeRequestsRepo) Ensure(_ context.Context, reqs ...*entity.BridgeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errors.New("database is unavailable")
	}
	for _, req := range reqs {
		if _, ok := r.rows[req.Key()]; ok {
			continue
		}
		r.lastID++
		row := *req
		row.ID = r.lastID
		r.rows[req.Key()] = &row
	}
	return nil
}

func (r *fakeBridgeRequestsRepo) FindPending(context.Context) ([]*entity.BridgeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*entity.BridgeRequest, 0, len(r.rows))
	for _, row := range r.rows {
		res = append(res, row)
	}
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.SourceNetwork != b.SourceNetwork {
			return a.SourceNetwork < b.SourceNetwork
		}
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})
	return res, nil
}

func (r *fakeBridgeRequestsRepo) Delete(_ context.Context, req *entity.BridgeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, req.Key())
	return nil
}

func (r *fakeBridgeRequestsRepo) Count(context.Context) (uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint(len(r.rows)), nil
}

func (r *fakeBridgeRequestsRepo) ids() []string {
	reqs, _ := r.FindPending(context.Background())
	res := make([]string, 0, len(reqs))
	for _, req := range reqs {
		res = append(res, req.RequestID)
	}
	return res
}

type fakeTokensRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.Token
}

func (r *fakeTokensRepo) Ensure(_ context.Context, token *entity.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[token.NetworkName+"/"+token.TokenName] = token
	return nil
}

func (r *fakeTokensRepo) Insert(_ context.Context, token *entity.Token) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := token.NetworkName + "/" + token.TokenName
	if _, ok := r.rows[key]; ok {
		return false, nil
	}
	r.rows[key] = token
	return true, nil
}

func (r *fakeTokensRepo) GetByNetworkAndName(_ context.Context, network, name string) (*entity.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.rows[network+"/"+name]
	if !ok {
		return nil, db.ErrNotFound
	}
	return token, nil
}

func (r *fakeTokensRepo) FindByNetwork(context.Context, string) ([]*entity.Token, error) {
	return nil, nil
}

func (r *fakeTokensRepo) FindByName(context.Context, string) ([]*entity.Token, error) {
	return nil, nil
}

func (r *fakeTokensRepo) FindAll(context.Context) ([]*entity.Token, error) {
	return nil, nil
}

type fakeCheckpointsRepo struct {
	mu   sync.Mutex
	rows map[string]uint
}

func (r *fakeCheckpointsRepo) Ensure(_ context.Context, checkpoint *entity.Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rows[checkpoint.NetworkName]; !ok || checkpoint.LastScannedBlock > cur {
		r.rows[checkpoint.NetworkName] = checkpoint.LastScannedBlock
	}
	return nil
}

func (r *fakeCheckpointsRepo) GetByNetwork(_ context.Context, network string) (*entity.Checkpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	block, ok := r.rows[network]
	if !ok {
		return nil, fmt.Errorf("can't get sync checkpoint: %w", db.ErrNotFound)
	}
	return &entity.Checkpoint{NetworkName: network, LastScannedBlock: block}, nil
}

type fakeDiscoverer struct {
	mu       sync.Mutex
	requests []string
}

func (d *fakeDiscoverer) Enqueue(symbol, network string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, network+"/"+symbol)
}

type testEnv struct {
	subnet      *fakeNetwork
	mainnet     *fakeNetwork
	requests    *fakeBridgeRequestsRepo
	tokens      *fakeTokensRepo
	checkpoints *fakeCheckpointsRepo
	discoverer  *fakeDiscoverer
	repo        *repository.Repo
	relay       *Relay
}

func newTestEnv() *testEnv {
	env := &testEnv{
		subnet:      newFakeNetwork("subnet", contract.BridgeToMainnet),
		mainnet:     newFakeNetwork("ethereum", contract.BridgeToSubnet),
		requests:    &fakeBridgeRequestsRepo{rows: make(map[string]*entity.BridgeRequest)},
		tokens:      &fakeTokensRepo{rows: make(map[string]*entity.Token)},
		checkpoints: &fakeCheckpointsRepo{rows: make(map[string]uint)},
		discoverer:  &fakeDiscoverer{},
	}
	env.mainnet.cfg.ChainID = "1"
	env.repo = &repository.Repo{
		BridgeRequests: env.requests,
		Tokens:         env.tokens,
		Checkpoints:    env.checkpoints,
	}
	env.relay = NewRelay(logging.New(), env.repo, env.subnet, map[string]network.Network{"ethereum": env.mainnet}, networkConfigs(env.mainnet), env.discoverer)
	return env
}

func networkConfigs(nets ...*fakeNetwork) map[string]*config.NetworkConfig {
	res := make(map[string]*config.NetworkConfig, len(nets))
	for _, n := range nets {
		res[n.cfg.Name] = n.cfg
	}
	return res
}

var (
	userAddr         = common.HexToAddress("0x3000000000000000000000000000000000000001")
	mainnetAssetAddr = common.HexToAddress("0x2000000000000000000000000000000000000001")
	subnetAssetAddr  = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func toSubnetEvent(block uint64, requestID int64, symbol string) *contract.Event {
	return &contract.Event{
		Name: contract.BridgeToSubnet,
		Log:  &types.Log{BlockNumber: block},
		Data: map[string]interface{}{
			"user":             userAddr,
			"asset":            mainnetAssetAddr,
			"amount":           big.NewInt(1e18),
			"_bridgeRequestID": big.NewInt(requestID),
			"name_":            symbol + " Token",
			"symbol_":          symbol,
		},
	}
}

func toMainnetEvent(block uint64, requestID int64, chainID *big.Int) *contract.Event {
	data := map[string]interface{}{
		"user":             userAddr,
		"assetMainnet":     mainnetAssetAddr,
		"assetSubnet":      subnetAssetAddr,
		"amount":           big.NewInt(5),
		"_bridgeRequestID": big.NewInt(requestID),
		"name_":            "Token",
		"symbol_":          "TKN",
	}
	if chainID != nil {
		data["chainId"] = chainID
	}
	return &contract.Event{
		Name: contract.BridgeToMainnet,
		Log:  &types.Log{BlockNumber: block},
		Data: data,
	}
}
