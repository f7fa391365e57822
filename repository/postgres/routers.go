package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
)

type routersRepo basePostgresRepo

func NewRoutersRepo(table string, db *db.DB) entity.RoutersRepo {
	return (*routersRepo)(newBasePostgresRepo(table, db))
}

func (r *routersRepo) Ensure(ctx context.Context, router *entity.Router) error {
	q, args, err := sq.Insert(r.table).
		Columns("network_name", "dex_name", "contract_address").
		Values(router.NetworkName, router.DexName, router.ContractAddress).
		Suffix("ON CONFLICT (network_name, dex_name) DO UPDATE SET updated_at = NOW(), contract_address = EXCLUDED.contract_address").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert router: %w", err)
	}
	return nil
}

func (r *routersRepo) FindByNetwork(ctx context.Context, network string) ([]*entity.Router, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"network_name": network}).
		OrderBy("dex_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	routers := make([]*entity.Router, 0, 4)
	err = r.db.SelectContext(ctx, &routers, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get routers: %w", err)
	}
	return routers, nil
}
