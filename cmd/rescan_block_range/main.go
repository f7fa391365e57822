package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/exposure-labs/subnet-relay/bridge"
	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/repository"
)

var (
	networkName = flag.String("network", "", "network to rescan bridge events on")
	fromBlock   = flag.Uint("fromBlock", 0, "starting block")
	toBlock     = flag.Uint("toBlock", 0, "ending block")
)

func main() {
	flag.Parse()

	logger := logging.New()

	cfg, err := config.ReadConfigFromFile("config.yml")
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)

	if *networkName == "" {
		logger.Fatal("network is not specified")
	}
	netCfg, err := cfg.Network(*networkName)
	if err != nil {
		logger.WithError(err).Fatal("can't find network config")
	}
	if *fromBlock < netCfg.StartBlock {
		fromBlock = &netCfg.StartBlock
	}
	if *toBlock == 0 {
		logger.Fatal("toBlock is not specified")
	}
	if *toBlock < *fromBlock {
		logger.WithFields(logrus.Fields{
			"from_block": *fromBlock,
			"to_block":   *toBlock,
		}).Fatal("toBlock < fromBlock")
	}

	key, err := cfg.SigningKey()
	if err != nil {
		logger.WithError(err).Fatal("can't load signing key")
	}

	dbConn, err := db.NewDB(cfg.DBConfig)
	if err != nil {
		logger.WithError(err).Fatal("can't connect to database")
	}
	defer dbConn.Close()

	if err = dbConn.Migrate(); err != nil {
		logger.WithError(err).Fatal("can't run database migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := repository.NewRepo(dbConn)

	subnet, err := network.NewSubnetClient(logger, cfg.Subnet, cfg.Relay, key)
	if err != nil {
		logger.WithError(err).Fatal("can't initialize subnet client")
	}
	mainnets := make(map[string]network.Network, len(cfg.Mainnets))
	for _, name := range cfg.MainnetNames() {
		n, err2 := network.NewMainnetClient(logger, cfg.Mainnets[name], cfg.Relay, key)
		if err2 != nil {
			logger.WithError(err2).WithField("network", name).Error("can't initialize mainnet client, skipping network")
			continue
		}
		mainnets[name] = n
	}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		for range c {
			cancel()
			logger.Warn("caught CTRL-C, gracefully terminating")
			return
		}
	}()

	relay := bridge.NewRelay(logger, repo, subnet, mainnets, cfg.Mainnets, nil)
	recovery := bridge.NewRecovery(logger, repo, relay, cfg.Recovery.Interval)
	if err = recovery.ProcessBlockRange(ctx, *networkName, *fromBlock, *toBlock); err != nil {
		logger.WithError(err).Fatal("can't manually process block range")
	}
}
