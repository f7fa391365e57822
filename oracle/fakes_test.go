package oracle

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/contract"
	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/repository"
)

type pairKey struct {
	router, a, b common.Address
}

type fakeChain struct {
	mu     sync.Mutex
	cfg    *config.NetworkConfig
	prices map[common.Address]*big.Int
	mcaps  map[common.Address]*big.Int
	pairs  map[pairKey]common.Address
	// pushed maps a pair to the price it gets once refreshed on chain
	pushed map[common.Address]*big.Int
}

func newFakeChain(name string) *fakeChain {
	return &fakeChain{
		cfg:    &config.NetworkConfig{Name: name},
		prices: make(map[common.Address]*big.Int),
		mcaps:  make(map[common.Address]*big.Int),
		pairs:  make(map[pairKey]common.Address),
		pushed: make(map[common.Address]*big.Int),
	}
}

func (c *fakeChain) Name() string                  { return c.cfg.Name }
func (c *fakeChain) Config() *config.NetworkConfig { return c.cfg }
func (c *fakeChain) BridgeEvent() string           { return "" }

func (c *fakeChain) BlockHeight(context.Context) (uint, bool)  { return 0, false }
func (c *fakeChain) SyncedHeight(context.Context) (uint, bool) { return 0, false }

func (c *fakeChain) Balance(context.Context, common.Address, common.Address) (*big.Int, bool) {
	return nil, false
}

func (c *fakeChain) Price(_ context.Context, target common.Address) (*big.Int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.prices[target]
	return v, ok
}

func (c *fakeChain) MarketCap(_ context.Context, target common.Address) (*big.Int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.mcaps[target]
	return v, ok
}

func (c *fakeChain) PairAddress(_ context.Context, router, a, b common.Address) (common.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pairs[pairKey{router, a, b}]
	return p, ok
}

func (c *fakeChain) QueryLogs(context.Context, string, uint, uint) ([]*contract.Event, bool) {
	return nil, false
}

func (c *fakeChain) SendAndConfirm(context.Context, *contract.Call) bool { return false }

func (c *fakeChain) Subscribe(context.Context, string, uint, network.EventHandler) error {
	return nil
}

func (c *fakeChain) BridgeRequestIsComplete(context.Context, *big.Int) (bool, bool) {
	return false, false
}

func (c *fakeChain) Fulfill(context.Context, *entity.BridgeRequest) bool { return false }

type fakeMainnet struct {
	*fakeChain
	fail    bool
	updates [][]common.Address
}

var _ network.Mainnet = (*fakeMainnet)(nil)

func (m *fakeMainnet) UpdatePrices(_ context.Context, pairs, _, _ []common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, pairs)
	if m.fail {
		return false
	}
	for _, p := range pairs {
		if v, ok := m.pushed[p]; ok {
			m.prices[p] = v
		}
	}
	return true
}

type fakeSubnet struct {
	*fakeChain
	failPrices bool
	prices     map[common.Address]*big.Int
	mcaps      map[common.Address]*big.Int
	priceCalls int
	mcapCalls  int
}

var _ network.Subnet = (*fakeSubnet)(nil)

func newFakeSubnet() *fakeSubnet {
	return &fakeSubnet{
		fakeChain: newFakeChain("subnet"),
		prices:    make(map[common.Address]*big.Int),
		mcaps:     make(map[common.Address]*big.Int),
	}
}

func (s *fakeSubnet) UpdatePrices(_ context.Context, tokens []common.Address, prices []*big.Int) bool {
	s.priceCalls++
	if s.failPrices {
		return false
	}
	for i, t := range tokens {
		s.prices[t] = prices[i]
	}
	return true
}

func (s *fakeSubnet) UpdateMarketCaps(_ context.Context, tokens []common.Address, mcaps []*big.Int) bool {
	s.mcapCalls++
	for i, t := range tokens {
		s.mcaps[t] = mcaps[i]
	}
	return true
}

type fakeTokensRepo struct {
	rows []*entity.Token
}

func (r *fakeTokensRepo) Ensure(_ context.Context, token *entity.Token) error {
	r.rows = append(r.rows, token)
	return nil
}

func (r *fakeTokensRepo) Insert(ctx context.Context, token *entity.Token) (bool, error) {
	if _, err := r.GetByNetworkAndName(ctx, token.NetworkName, token.TokenName); err == nil {
		return false, nil
	}
	r.rows = append(r.rows, token)
	return true, nil
}

func (r *fakeTokensRepo) GetByNetworkAndName(_ context.Context, network, name string) (*entity.Token, error) {
	for _, t := range r.rows {
		if t.NetworkName == network && t.TokenName == name {
			return t, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeTokensRepo) FindByNetwork(_ context.Context, network string) ([]*entity.Token, error) {
	var res []*entity.Token
	for _, t := range r.rows {
		if t.NetworkName == network {
			res = append(res, t)
		}
	}
	return res, nil
}

func (r *fakeTokensRepo) FindByName(_ context.Context, name string) ([]*entity.Token, error) {
	var res []*entity.Token
	for _, t := range r.rows {
		if t.TokenName == name {
			res = append(res, t)
		}
	}
	return res, nil
}

func (r *fakeTokensRepo) FindAll(context.Context) ([]*entity.Token, error) {
	return r.rows, nil
}

type fakeRoutersRepo struct {
	rows []*entity.Router
}

func (r *fakeRoutersRepo) Ensure(_ context.Context, router *entity.Router) error {
	r.rows = append(r.rows, router)
	return nil
}

func (r *fakeRoutersRepo) FindByNetwork(_ context.Context, network string) ([]*entity.Router, error) {
	var res []*entity.Router
	for _, router := range r.rows {
		if router.NetworkName == network {
			res = append(res, router)
		}
	}
	return res, nil
}

type fakePairsRepo struct {
	rows []*entity.Pair
}

func (r *fakePairsRepo) Ensure(_ context.Context, pair *entity.Pair) error {
	for i, p := range r.rows {
		if p.NetworkName == pair.NetworkName && p.TokenName == pair.TokenName &&
			p.QuoteName == pair.QuoteName && p.DexName == pair.DexName {
			r.rows[i] = pair
			return nil
		}
	}
	r.rows = append(r.rows, pair)
	return nil
}

func (r *fakePairsRepo) FindAll(context.Context) ([]*entity.Pair, error) {
	return r.rows, nil
}

func (r *fakePairsRepo) FindByTokenAndQuote(_ context.Context, network, token, quote string) ([]*entity.Pair, error) {
	var res []*entity.Pair
	for _, p := range r.rows {
		if p.NetworkName == network && p.TokenName == token && p.QuoteName == quote {
			res = append(res, p)
		}
	}
	return res, nil
}

type fakePricesRepo struct {
	rows map[string]string
}

func (r *fakePricesRepo) Ensure(_ context.Context, price *entity.Price) error {
	r.rows[price.TokenName] = price.Price
	return nil
}

func (r *fakePricesRepo) GetByTokenName(_ context.Context, name string) (*entity.Price, error) {
	v, ok := r.rows[name]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &entity.Price{TokenName: name, Price: v}, nil
}

func (r *fakePricesRepo) FindAll(context.Context) ([]*entity.Price, error) {
	res := make([]*entity.Price, 0, len(r.rows))
	for name, v := range r.rows {
		res = append(res, &entity.Price{TokenName: name, Price: v})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].TokenName < res[j].TokenName })
	return res, nil
}

type fakeMarketCapsRepo struct {
	rows map[string]string
}

func (r *fakeMarketCapsRepo) Ensure(_ context.Context, mcap *entity.MarketCap) error {
	r.rows[mcap.TokenName] = mcap.MarketCap
	return nil
}

func (r *fakeMarketCapsRepo) GetByTokenName(_ context.Context, name string) (*entity.MarketCap, error) {
	v, ok := r.rows[name]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &entity.MarketCap{TokenName: name, MarketCap: v}, nil
}

func (r *fakeMarketCapsRepo) FindAll(context.Context) ([]*entity.MarketCap, error) {
	res := make([]*entity.MarketCap, 0, len(r.rows))
	for name, v := range r.rows {
		res = append(res, &entity.MarketCap{TokenName: name, MarketCap: v})
	}
	return res, nil
}

type testEnv struct {
	mainnet     *fakeMainnet
	subnet      *fakeSubnet
	tokens      *fakeTokensRepo
	liquidity   *fakeTokensRepo
	dollarCoins *fakeTokensRepo
	routers     *fakeRoutersRepo
	pairs       *fakePairsRepo
	prices      *fakePricesRepo
	mcaps       *fakeMarketCapsRepo
	repo        *repository.Repo
	lock        *Lock
	engine      *Engine
}

func newTestEnv() *testEnv {
	env := &testEnv{
		mainnet:     &fakeMainnet{fakeChain: newFakeChain("ethereum")},
		subnet:      newFakeSubnet(),
		tokens:      &fakeTokensRepo{},
		liquidity:   &fakeTokensRepo{},
		dollarCoins: &fakeTokensRepo{},
		routers:     &fakeRoutersRepo{},
		pairs:       &fakePairsRepo{},
		prices:      &fakePricesRepo{rows: make(map[string]string)},
		mcaps:       &fakeMarketCapsRepo{rows: make(map[string]string)},
		lock:        NewLock(),
	}
	env.repo = &repository.Repo{
		Routers:         env.routers,
		Tokens:          env.tokens,
		LiquidityTokens: env.liquidity,
		DollarCoins:     env.dollarCoins,
		Pairs:           env.pairs,
		Prices:          env.prices,
		MarketCaps:      env.mcaps,
	}
	cfg := &config.OracleConfig{BatchSize: 20, USDSymbol: "USDC"}
	env.engine = NewEngine(logging.New(), env.repo, env.lock, cfg, env.subnet, map[string]network.Mainnet{"ethereum": env.mainnet})
	return env
}

func addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}
