package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/bridge"
	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/monitor/alerts"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/oracle"
	"github.com/exposure-labs/subnet-relay/presenter"
	"github.com/exposure-labs/subnet-relay/repository"
)

func main() {
	logger := logging.New()

	cfg, err := config.ReadConfigFromFile("config.yml")
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)

	key, err := cfg.SigningKey()
	if err != nil {
		logger.WithError(err).Fatal("can't load signing key")
	}

	dbConn, err := db.ConnectToDBAndMigrate(cfg.DBConfig)
	if err != nil {
		logger.WithError(err).Fatal("can't connect to database and apply migrations")
	}
	defer dbConn.Close()

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.ListenAndServe(":2112", nil)
		if err != nil {
			logger.WithError(err).Fatal("can't start listener for prometheus metrics")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.NewRepo(dbConn)

	subnet, err := network.NewSubnetClient(logger, cfg.Subnet, cfg.Relay, key)
	if err != nil {
		logger.WithError(err).WithField("network", cfg.Subnet.Name).Fatal("can't initialize subnet client")
	}
	networks := map[string]network.Network{subnet.Name(): subnet}
	mainnets := make(map[string]network.Network, len(cfg.Mainnets))
	oracleMainnets := make(map[string]network.Mainnet, len(cfg.Mainnets))
	for _, name := range cfg.MainnetNames() {
		netCfg := cfg.Mainnets[name]
		n, err2 := network.NewMainnetClient(logger, netCfg, cfg.Relay, key)
		if err2 != nil {
			logger.WithError(err2).WithField("network", name).Error("can't initialize mainnet client, skipping network")
			continue
		}
		if err2 = repo.SeedNetwork(ctx, netCfg); err2 != nil {
			logger.WithError(err2).WithField("network", name).Fatal("can't seed reference data")
		}
		networks[name] = n
		mainnets[name] = n
		oracleMainnets[name] = n
	}

	registryLock := oracle.NewLock()
	discoverer := oracle.NewDiscoverer(logger, repo, registryLock, mainnets)
	relay := bridge.NewRelay(logger, repo, subnet, mainnets, cfg.Mainnets, discoverer)
	recovery := bridge.NewRecovery(logger, repo, relay, cfg.Recovery.Interval)

	if cfg.Presenter != nil {
		pr := presenter.NewPresenter(logger, repo, networks)
		go func() {
			err := pr.Serve(cfg.Presenter.Host)
			if err != nil {
				logger.WithError(err).Fatal("can't serve presenter")
			}
		}()
	}

	go discoverer.Start(ctx)

	if err = recovery.Run(ctx); err != nil {
		logger.WithError(err).Fatal("initial recovery pass failed")
	}

	for _, n := range relay.Networks() {
		checkpoint, err2 := recovery.Checkpoint(ctx, n)
		if err2 != nil {
			logger.WithError(err2).WithField("network", n.Name()).Fatal("can't read checkpoint")
		}
		if err2 = n.Subscribe(ctx, n.BridgeEvent(), checkpoint+1, relay.Handler(n)); err2 != nil {
			logger.WithError(err2).WithField("network", n.Name()).Fatal("can't subscribe to bridge events")
		}
		logger.WithFields(logrus.Fields{
			"network":    n.Name(),
			"from_block": checkpoint + 1,
		}).Info("subscribed to bridge events")
	}

	alertManager, err := alerts.NewAlertManager(logger, dbConn, cfg.Alerts)
	if err != nil {
		logger.WithError(err).Fatal("can't initialize alert manager")
	}
	go alertManager.Start(ctx)

	checkpointer := bridge.NewCheckpointer(logger, repo, relay.Networks(), cfg.Recovery.CheckpointInterval)
	go checkpointer.Start(ctx)
	go recovery.Start(ctx)

	if cfg.Oracle.Disabled {
		logger.Warn("price oracle is disabled")
	} else {
		engine := oracle.NewEngine(logger, repo, registryLock, cfg.Oracle, subnet, oracleMainnets)
		go engine.Start(ctx)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	for range c {
		cancel()
		logger.Warn("caught CTRL-C, gracefully terminating")
		return
	}
}
