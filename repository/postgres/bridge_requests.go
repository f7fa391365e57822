package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
)

// 12 columns per row, 6000 bind parameters per statement.
const ensureBatchSize = 500

type bridgeRequestsRepo basePostgresRepo

func NewBridgeRequestsRepo(table string, db *db.DB) entity.BridgeRequestsRepo {
	return (*bridgeRequestsRepo)(newBasePostgresRepo(table, db))
}

type query struct {
	sql  string
	args []interface{}
}

// Ensure upserts reqs in chunks of ensureBatchSize rows, keeping every
// statement below the postgres bind parameter limit.
func (r *bridgeRequestsRepo) Ensure(ctx context.Context, reqs ...*entity.BridgeRequest) error {
	queries, err := ensureBridgeRequestsQueries(r.table, reqs)
	if err != nil {
		return err
	}
	for _, q := range queries {
		if _, err = r.db.ExecContext(ctx, q.sql, q.args...); err != nil {
			return fmt.Errorf("can't insert bridge requests: %w", err)
		}
	}
	return nil
}

func ensureBridgeRequestsQueries(table string, reqs []*entity.BridgeRequest) ([]query, error) {
	queries := make([]query, 0, (len(reqs)+ensureBatchSize-1)/ensureBatchSize)
	for start := 0; start < len(reqs); start += ensureBatchSize {
		end := start + ensureBatchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		builder := sq.Insert(table).
			Columns("direction", "source_network", "destination_network", "destination_chain_id", "request_id", "asset", "user_address", "amount", "asset_name", "asset_symbol", "block_number", "log_index")
		for _, req := range reqs[start:end] {
			builder = builder.Values(req.Direction, req.SourceNetwork, req.DestinationNetwork, req.DestinationChainID, req.RequestID, req.Asset, req.User, req.Amount, req.AssetName, req.AssetSymbol, req.BlockNumber, req.LogIndex)
		}
		q, args, err := builder.
			Suffix(fmt.Sprintf("ON CONFLICT (direction, source_network, request_id) DO UPDATE SET "+
				"destination_network = COALESCE(NULLIF(EXCLUDED.destination_network, ''), %s.destination_network), "+
				"updated_at = NOW()", table)).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("can't build query: %w", err)
		}
		queries = append(queries, query{sql: q, args: args})
	}
	return queries, nil
}

func findPendingBridgeRequestsQuery(table string) (string, []interface{}, error) {
	return sq.Select("*").
		From(table).
		OrderBy("source_network", "block_number", "log_index").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// FindPending returns the queue in chain order of each source network.
func (r *bridgeRequestsRepo) FindPending(ctx context.Context) ([]*entity.BridgeRequest, error) {
	q, args, err := findPendingBridgeRequestsQuery(r.table)
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	reqs := make([]*entity.BridgeRequest, 0, 10)
	err = r.db.SelectContext(ctx, &reqs, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get pending bridge requests: %w", err)
	}
	return reqs, nil
}

func (r *bridgeRequestsRepo) Delete(ctx context.Context, req *entity.BridgeRequest) error {
	q, args, err := sq.Delete(r.table).
		Where(sq.Eq{
			"direction":      req.Direction,
			"source_network": req.SourceNetwork,
			"request_id":     req.RequestID,
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't delete bridge request: %w", err)
	}
	return nil
}

func (r *bridgeRequestsRepo) Count(ctx context.Context) (uint, error) {
	q, args, err := sq.Select("COUNT(*)").
		From(r.table).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("can't build query: %w", err)
	}
	var count uint
	err = r.db.GetContext(ctx, &count, q, args...)
	if err != nil {
		return 0, fmt.Errorf("can't count bridge requests: %w", err)
	}
	return count, nil
}
