package bridge

import (
	"context"
	"time"

	"github.com/exposure-labs/subnet-relay/entity"
	"github.com/exposure-labs/subnet-relay/logging"
	"github.com/exposure-labs/subnet-relay/network"
	"github.com/exposure-labs/subnet-relay/repository"
	"github.com/exposure-labs/subnet-relay/utils"
)

// Checkpointer periodically stores how far each network has been handled,
// so the next boot scan starts there.
type Checkpointer struct {
	logger   logging.Logger
	repo     *repository.Repo
	networks []network.Network
	interval time.Duration
}

func NewCheckpointer(logger logging.Logger, repo *repository.Repo, networks []network.Network, interval time.Duration) *Checkpointer {
	return &Checkpointer{
		logger:   logger.WithField("service", "checkpointer"),
		repo:     repo,
		networks: networks,
		interval: interval,
	}
}

func (c *Checkpointer) Refresh(ctx context.Context) {
	for _, n := range c.networks {
		height, ok := n.SyncedHeight(ctx)
		if !ok {
			continue
		}
		err := c.repo.Checkpoints.Ensure(ctx, &entity.Checkpoint{
			NetworkName:      n.Name(),
			LastScannedBlock: height,
		})
		if err != nil {
			c.logger.WithError(err).WithField("network", n.Name()).Error("can't refresh checkpoint")
			continue
		}
		CheckpointHeight.WithLabelValues(n.Name()).Set(float64(height))
	}
}

func (c *Checkpointer) Start(ctx context.Context) {
	utils.Every(ctx, c.interval, c.Refresh)
}
