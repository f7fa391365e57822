package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
)

type pairsRepo basePostgresRepo

func NewPairsRepo(table string, db *db.DB) entity.PairsRepo {
	return (*pairsRepo)(newBasePostgresRepo(table, db))
}

func (r *pairsRepo) Ensure(ctx context.Context, pair *entity.Pair) error {
	q, args, err := sq.Insert(r.table).
		Columns("network_name", "token_name", "quote_name", "dex_name", "pair_name", "pair_address", "token_address", "quote_address").
		Values(pair.NetworkName, pair.TokenName, pair.QuoteName, pair.DexName, pair.PairName, pair.PairAddress, pair.TokenAddress, pair.QuoteAddress).
		Suffix("ON CONFLICT (network_name, token_name, quote_name, dex_name) DO UPDATE SET updated_at = NOW(), pair_name = EXCLUDED.pair_name, pair_address = EXCLUDED.pair_address, token_address = EXCLUDED.token_address, quote_address = EXCLUDED.quote_address").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert pair: %w", err)
	}
	return nil
}

func (r *pairsRepo) FindAll(ctx context.Context) ([]*entity.Pair, error) {
	return r.find(ctx, sq.Eq{})
}

func (r *pairsRepo) FindByTokenAndQuote(ctx context.Context, network, token, quote string) ([]*entity.Pair, error) {
	return r.find(ctx, sq.Eq{
		"network_name": network,
		"token_name":   token,
		"quote_name":   quote,
	})
}

func (r *pairsRepo) find(ctx context.Context, cond sq.Eq) ([]*entity.Pair, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(cond).
		OrderBy("network_name", "token_name", "quote_name", "dex_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	pairs := make([]*entity.Pair, 0, 10)
	err = r.db.SelectContext(ctx, &pairs, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get pairs: %w", err)
	}
	return pairs, nil
}
