package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/exposure-labs/subnet-relay/config"
	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/logging"
)

const defaultStaleThreshold = 30 * time.Minute

type AlertManager struct {
	logger logging.Logger
	jobs   map[string]*Job
}

func NewAlertManager(logger logging.Logger, db *db.DB, cfg map[string]*config.AlertConfig) (*AlertManager, error) {
	return newAlertManager(logger, NewDBAlertsProvider(db), cfg)
}

type alertsProvider interface {
	FindStaleBridgeRequests(ctx context.Context, params *AlertJobParams) (interface{}, error)
	FindUnresolvedDestinations(ctx context.Context, params *AlertJobParams) (interface{}, error)
}

func newAlertManager(logger logging.Logger, provider alertsProvider, cfg map[string]*config.AlertConfig) (*AlertManager, error) {
	jobs := make(map[string]*Job, len(cfg))

	for name, alertCfg := range cfg {
		switch name {
		case "stale_bridge_request":
			jobs[name] = &Job{
				Interval: time.Minute * 5,
				Timeout:  time.Second * 20,
				Func:     provider.FindStaleBridgeRequests,
				Metric:   AlertStaleBridgeRequest,
			}
		case "unresolved_destination":
			jobs[name] = &Job{
				Interval: time.Minute,
				Timeout:  time.Second * 10,
				Func:     provider.FindUnresolvedDestinations,
				Metric:   AlertUnresolvedDestination,
			}
		default:
			return nil, fmt.Errorf("unknown alert type %q", name)
		}
		jobs[name].Params = &AlertJobParams{Threshold: defaultStaleThreshold}
		if alertCfg != nil && alertCfg.Threshold > 0 {
			jobs[name].Params.Threshold = alertCfg.Threshold
		}
		jobs[name].logger = logger.WithField("alert_job", name)
	}

	return &AlertManager{
		logger: logger,
		jobs:   jobs,
	}, nil
}

func (m *AlertManager) Start(ctx context.Context) {
	m.logger.WithField("jobs", len(m.jobs)).Info("starting alert manager jobs")
	for _, job := range m.jobs {
		go job.Start(ctx)
	}
}
