package alerts

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/exposure-labs/subnet-relay/db"
)

const bridgeRequestsTable = "bridge_requests"

type DBAlertsProvider struct {
	db *db.DB
}

func NewDBAlertsProvider(db *db.DB) *DBAlertsProvider {
	return &DBAlertsProvider{
		db: db,
	}
}

type StaleBridgeRequest struct {
	Direction          string `db:"direction" json:"direction"`
	SourceNetwork      string `db:"source_network" json:"source_network"`
	DestinationNetwork string `db:"destination_network" json:"destination_network"`
	RequestID          string `db:"request_id" json:"request_id"`
	BlockNumber        uint64 `db:"block_number" json:"block_number,string"`
	Age                int64  `db:"age" json:"_value,string"`
}

func staleBridgeRequestsQuery(params *AlertJobParams) (string, []interface{}, error) {
	return sq.Select("direction", "source_network", "destination_network", "request_id", "block_number", "EXTRACT(EPOCH FROM now() - created_at)::int as age").
		From(bridgeRequestsTable).
		Where(sq.NotEq{"destination_network": ""}).
		Where(sq.Expr("created_at <= now() - make_interval(secs => ?)", params.Threshold.Seconds())).
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (p *DBAlertsProvider) FindStaleBridgeRequests(ctx context.Context, params *AlertJobParams) (interface{}, error) {
	q, args, err := staleBridgeRequestsQuery(params)
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]StaleBridgeRequest, 0, 5)
	err = p.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select alerts: %w", err)
	}
	return res, nil
}

type UnresolvedDestination struct {
	SourceNetwork string `db:"source_network" json:"source_network"`
	RequestID     string `db:"request_id" json:"request_id"`
	ChainID       string `db:"destination_chain_id" json:"chain_id"`
	BlockNumber   uint64 `db:"block_number" json:"block_number,string"`
	Age           int64  `db:"age" json:"_value,string"`
}

func unresolvedDestinationsQuery() (string, []interface{}, error) {
	return sq.Select("source_network", "request_id", "destination_chain_id", "block_number", "EXTRACT(EPOCH FROM now() - created_at)::int as age").
		From(bridgeRequestsTable).
		Where(sq.Eq{"destination_network": ""}).
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (p *DBAlertsProvider) FindUnresolvedDestinations(ctx context.Context, _ *AlertJobParams) (interface{}, error) {
	q, args, err := unresolvedDestinationsQuery()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	res := make([]UnresolvedDestination, 0, 5)
	err = p.db.SelectContext(ctx, &res, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't select alerts: %w", err)
	}
	return res, nil
}
