package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
)

func newTestDiscoverer(env *testEnv) *Discoverer {
	return NewDiscoverer(logging.New(), env.repo, env.lock, map[string]network.Network{"ethereum": env.mainnet})
}

func seedDiscovery(env *testEnv) {
	env.tokens.rows = append(env.tokens.rows, &entity.Token{NetworkName: "ethereum", TokenName: "X", ContractAddress: xAddr})
	env.routers.rows = append(env.routers.rows,
		&entity.Router{NetworkName: "ethereum", DexName: "uniswap", ContractAddress: routerAddr},
		&entity.Router{NetworkName: "ethereum", DexName: "sushiswap", ContractAddress: addr(10)},
	)
	env.liquidity.rows = append(env.liquidity.rows,
		&entity.Token{NetworkName: "ethereum", TokenName: "WETH", ContractAddress: wethAddr},
		&entity.Token{NetworkName: "ethereum", TokenName: "USDC", ContractAddress: usdcAddr},
		&entity.Token{NetworkName: "ethereum", TokenName: "X", ContractAddress: xAddr},
	)
	env.mainnet.pairs[pairKey{routerAddr, xAddr, wethAddr}] = addr(100)
	env.mainnet.pairs[pairKey{routerAddr, xAddr, usdcAddr}] = addr(101)
	env.mainnet.pairs[pairKey{addr(10), xAddr, wethAddr}] = addr(102)
}

func TestDiscoverer_DiscoverPairs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	seedDiscovery(env)
	d := newTestDiscoverer(env)

	require.NoError(t, d.DiscoverPairs(ctx, "X", "ethereum"))
	require.Len(t, env.pairs.rows, 3)
	require.Equal(t, &entity.Pair{
		NetworkName:  "ethereum",
		TokenName:    "X",
		QuoteName:    "WETH",
		DexName:      "sushiswap",
		PairName:     "X/WETH",
		PairAddress:  addr(102),
		TokenAddress: xAddr,
		QuoteAddress: wethAddr,
	}, env.pairs.rows[2])

	// rerunning refreshes addresses without duplicating rows
	env.mainnet.pairs[pairKey{routerAddr, xAddr, wethAddr}] = addr(110)
	require.NoError(t, d.DiscoverPairs(ctx, "X", "ethereum"))
	require.Len(t, env.pairs.rows, 3)
	require.Equal(t, addr(110), env.pairs.rows[0].PairAddress)
}

func TestDiscoverer_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	seedDiscovery(env)
	d := newTestDiscoverer(env)

	require.ErrorIs(t, d.DiscoverPairs(ctx, "X", "polygon"), config.ErrUnknownNetwork)
	require.Error(t, d.DiscoverPairs(ctx, "UNKNOWN", "ethereum"))
	require.Empty(t, env.pairs.rows)
}

func TestDiscoverer_Worker(t *testing.T) {
	t.Parallel()

	env := newTestEnv()
	seedDiscovery(env)
	d := newTestDiscoverer(env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// hold the lock so the queued request waits for it
	release := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		_ = env.lock.Do(ctx, func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()
	d.Enqueue("X", "ethereum")

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, env.pairs.rows)

	close(release)
	require.Eventually(t, func() bool {
		return env.lock.sem.TryAcquire(1) && func() bool {
			defer env.lock.sem.Release(1)
			return len(env.pairs.rows) == 3
		}()
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestDiscoverer_QueueOverflowIsRetried(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	seedDiscovery(env)
	d := newTestDiscoverer(env)

	for i := 0; i < discoveryQueueSize; i++ {
		d.Enqueue("FILL", "ethereum")
	}
	d.Enqueue("X", "ethereum")
	require.Len(t, d.queue, discoveryQueueSize)
	require.Equal(t, map[discoveryRequest]struct{}{{symbol: "X", network: "ethereum"}: {}}, d.backlog)

	d.retryBacklog(ctx)
	require.Len(t, env.pairs.rows, 3)
	require.Empty(t, d.backlog)
}

func TestDiscoverer_FailedDiscoveryIsRetried(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	seedDiscovery(env)
	d := newTestDiscoverer(env)

	d.handle(ctx, discoveryRequest{symbol: "Y", network: "ethereum"})
	d.handle(ctx, discoveryRequest{symbol: "X", network: "polygon"})
	require.Equal(t, map[discoveryRequest]struct{}{{symbol: "Y", network: "ethereum"}: {}}, d.backlog)

	env.tokens.rows = append(env.tokens.rows, &entity.Token{NetworkName: "ethereum", TokenName: "Y", ContractAddress: addr(50)})
	env.mainnet.pairs[pairKey{routerAddr, addr(50), wethAddr}] = addr(120)
	d.retryBacklog(ctx)
	require.Empty(t, d.backlog)
	require.Len(t, env.pairs.rows, 1)
}

func TestDiscoverer_ResumesTokensWithoutPairs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv()
	seedDiscovery(env)
	env.tokens.rows = append(env.tokens.rows,
		&entity.Token{NetworkName: "ethereum", TokenName: "PAIRED", ContractAddress: addr(51)},
		&entity.Token{NetworkName: "polygon", TokenName: "Z", ContractAddress: addr(52)},
	)
	env.pairs.rows = append(env.pairs.rows, &entity.Pair{NetworkName: "ethereum", TokenName: "PAIRED", QuoteName: "WETH", DexName: "uniswap"})
	d := newTestDiscoverer(env)

	d.resume(ctx)
	require.Equal(t, map[discoveryRequest]struct{}{{symbol: "X", network: "ethereum"}: {}}, d.backlog)
}
