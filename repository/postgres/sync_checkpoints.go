package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
)

type checkpointsRepo basePostgresRepo

func NewCheckpointsRepo(table string, db *db.DB) entity.CheckpointsRepo {
	return (*checkpointsRepo)(newBasePostgresRepo(table, db))
}

func (r *checkpointsRepo) Ensure(ctx context.Context, checkpoint *entity.Checkpoint) error {
	q, args, err := sq.Insert(r.table).
		Columns("network_name", "last_scanned_block").
		Values(checkpoint.NetworkName, checkpoint.LastScannedBlock).
		Suffix(fmt.Sprintf("ON CONFLICT (network_name) DO UPDATE SET updated_at = NOW(), last_scanned_block = GREATEST(%s.last_scanned_block, EXCLUDED.last_scanned_block)", r.table)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert sync checkpoint: %w", err)
	}
	return nil
}

func (r *checkpointsRepo) GetByNetwork(ctx context.Context, network string) (*entity.Checkpoint, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"network_name": network}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	checkpoint := new(entity.Checkpoint)
	err = r.db.GetContext(ctx, checkpoint, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get sync checkpoint: %w", err)
	}
	return checkpoint, nil
}
