package presenter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/presenter/http/middleware"
	"github.com/exposure-labs/subnet-relay/presenter/http/render"
	"github.com/exposure-labs/subnet-relay/repository"
)

const (
	requestsPerMinute = 120
	maxBodySize       = 1 << 16
)

type Presenter struct {
	logger   logging.Logger
	repo     *repository.Repo
	networks map[string]network.Network
	root     chi.Router
}

func NewPresenter(logger logging.Logger, repo *repository.Repo, networks map[string]network.Network) *Presenter {
	p := &Presenter{
		logger:   logger.WithField("service", "presenter"),
		repo:     repo,
		networks: networks,
		root:     chi.NewMux(),
	}
	p.routes()
	return p
}

func (p *Presenter) routes() {
	p.root.Use(chimiddleware.RequestID)
	p.root.Use(middleware.NewLoggerMiddleware(p.logger))
	p.root.Use(middleware.Recoverer)
	p.root.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))

	p.root.Get("/status", p.GetStatus)
	p.root.Get("/queue", p.GetQueue)
	p.root.Get("/prices", p.GetPrices)
	p.root.Get("/prices/{symbol}", p.GetPrice)
	p.root.Get("/pairs", p.GetPairs)
	p.root.With(
		middleware.GetNetworkMiddleware(p.networks),
		middleware.GetAddressesMiddleware("token", "holder"),
	).Get("/balance/{network}/{token}/{holder}", p.GetBalance)
	p.root.Post("/verify", p.Verify)
}

func (p *Presenter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.root.ServeHTTP(w, r)
}

func (p *Presenter) Serve(addr string) error {
	p.logger.WithField("addr", addr).Info("starting presenter service")
	return http.ListenAndServe(addr, p.root)
}

func (p *Presenter) sortedNetworks() []network.Network {
	names := make([]string, 0, len(p.networks))
	for name := range p.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	res := make([]network.Network, len(names))
	for i, name := range names {
		res[i] = p.networks[name]
	}
	return res
}

func (p *Presenter) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res := &StatusResult{}
	for _, n := range p.sortedNetworks() {
		status := &NetworkStatus{
			Name:    n.Name(),
			ChainID: n.Config().ChainID,
		}
		checkpoint, err := p.repo.Checkpoints.GetByNetwork(ctx, n.Name())
		if err != nil && !db.IsNotFound(err) {
			render.Error(w, r, fmt.Errorf("can't get checkpoint: %w", err))
			return
		}
		if checkpoint != nil {
			status.Checkpoint = &checkpoint.LastScannedBlock
		}
		if head, ok := n.BlockHeight(ctx); ok {
			status.Head = &head
		}
		res.Networks = append(res.Networks, status)
	}

	size, err := p.repo.BridgeRequests.Count(ctx)
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't count queued requests: %w", err))
		return
	}
	res.QueueSize = size

	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) GetQueue(w http.ResponseWriter, r *http.Request) {
	reqs, err := p.repo.BridgeRequests.FindPending(r.Context())
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't find queued requests: %w", err))
		return
	}

	res := make([]*BridgeRequestInfo, len(reqs))
	for i, req := range reqs {
		res[i] = bridgeRequestToInfo(req)
	}
	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) GetPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prices, err := p.repo.Prices.FindAll(ctx)
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't find prices: %w", err))
		return
	}
	mcaps, err := p.repo.MarketCaps.FindAll(ctx)
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't find market caps: %w", err))
		return
	}
	mcapBySymbol := make(map[string]string, len(mcaps))
	for _, m := range mcaps {
		mcapBySymbol[m.TokenName] = m.MarketCap
	}

	res := make([]*PriceInfo, len(prices))
	for i, price := range prices {
		res[i] = &PriceInfo{
			Symbol: price.TokenName,
			Price:  formatUnits(price.Price),
		}
		if mcap, ok := mcapBySymbol[price.TokenName]; ok {
			res[i].MarketCap = formatUnits(mcap)
		}
	}
	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) GetPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := chi.URLParam(r, "symbol")

	price, err := p.repo.Prices.GetByTokenName(ctx, symbol)
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't get price of %s: %w", symbol, err))
		return
	}
	res := &PriceInfo{
		Symbol: price.TokenName,
		Price:  formatUnits(price.Price),
	}
	mcap, err := p.repo.MarketCaps.GetByTokenName(ctx, symbol)
	if db.IgnoreErrNotFound(err) != nil {
		render.Error(w, r, fmt.Errorf("can't get market cap of %s: %w", symbol, err))
		return
	}
	if mcap != nil {
		res.MarketCap = formatUnits(mcap.MarketCap)
	}
	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) GetPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := p.repo.Pairs.FindAll(r.Context())
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't find pairs: %w", err))
		return
	}

	res := make([]*PairInfo, len(pairs))
	for i, pair := range pairs {
		res[i] = pairToInfo(pair)
	}
	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n := middleware.Network(ctx)
	token := middleware.Address(ctx, "token")
	holder := middleware.Address(ctx, "holder")

	balance, ok := n.Balance(ctx, token, holder)
	if !ok {
		render.JSON(w, r, http.StatusBadGateway, fmt.Sprintf("can't read balance on %s", n.Name()))
		return
	}
	render.JSON(w, r, http.StatusOK, balanceResult(n.Name(), token, holder, balance))
}

// Verify links an email to the account that signed it.
func (p *Presenter) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		render.Error(w, r, fmt.Errorf("can't decode body: %s: %w", err, render.ErrBadRequest))
		return
	}

	signer, err := recoverAccount(&req)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	logger := logging.LoggerFromContext(r.Context()).WithField("account", req.Account)
	if signer != common.HexToAddress(req.Account) {
		logger.WithField("signer", signer).Warn("signature does not match account")
		render.JSON(w, r, http.StatusOK, &VerifyResult{Status: false})
		return
	}

	err = p.repo.Accounts.Ensure(r.Context(), &entity.Account{
		Email:   req.Message,
		Address: signer,
	})
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't store account: %w", err))
		return
	}
	logger.Info("verified account")
	render.JSON(w, r, http.StatusOK, &VerifyResult{Status: true})
}
