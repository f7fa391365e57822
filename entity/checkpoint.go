package entity

import (
	"context"
	"time"
)

type Checkpoint struct {
	NetworkName      string     `db:"network_name"`
	LastScannedBlock uint       `db:"last_scanned_block"`
	CreatedAt        *time.Time `db:"created_at"`
	UpdatedAt        *time.Time `db:"updated_at"`
}

type CheckpointsRepo interface {
	// Ensure never moves a checkpoint backwards.
	Ensure(ctx context.Context, checkpoint *Checkpoint) error
	GetByNetwork(ctx context.Context, network string) (*Checkpoint, error)
}
