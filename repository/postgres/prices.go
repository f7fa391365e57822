package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
)

type pricesRepo basePostgresRepo

func NewPricesRepo(table string, db *db.DB) entity.PricesRepo {
	return (*pricesRepo)(newBasePostgresRepo(table, db))
}

func (r *pricesRepo) Ensure(ctx context.Context, price *entity.Price) error {
	q, args, err := sq.Insert(r.table).
		Columns("token_name", "price").
		Values(price.TokenName, price.Price).
		Suffix("ON CONFLICT (token_name) DO UPDATE SET updated_at = NOW(), price = EXCLUDED.price").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert price: %w", err)
	}
	return nil
}

func (r *pricesRepo) GetByTokenName(ctx context.Context, name string) (*entity.Price, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"token_name": name}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	price := new(entity.Price)
	err = r.db.GetContext(ctx, price, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get price: %w", err)
	}
	return price, nil
}

func (r *pricesRepo) FindAll(ctx context.Context) ([]*entity.Price, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		OrderBy("token_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	prices := make([]*entity.Price, 0, 10)
	err = r.db.SelectContext(ctx, &prices, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get prices: %w", err)
	}
	return prices, nil
}

type marketCapsRepo basePostgresRepo

func NewMarketCapsRepo(table string, db *db.DB) entity.MarketCapsRepo {
	return (*marketCapsRepo)(newBasePostgresRepo(table, db))
}

func (r *marketCapsRepo) Ensure(ctx context.Context, mcap *entity.MarketCap) error {
	q, args, err := sq.Insert(r.table).
		Columns("token_name", "mcap").
		Values(mcap.TokenName, mcap.MarketCap).
		Suffix("ON CONFLICT (token_name) DO UPDATE SET updated_at = NOW(), mcap = EXCLUDED.mcap").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert market cap: %w", err)
	}
	return nil
}

func (r *marketCapsRepo) GetByTokenName(ctx context.Context, name string) (*entity.MarketCap, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"token_name": name}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	mcap := new(entity.MarketCap)
	err = r.db.GetContext(ctx, mcap, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get market cap: %w", err)
	}
	return mcap, nil
}

func (r *marketCapsRepo) FindAll(ctx context.Context) ([]*entity.MarketCap, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		OrderBy("token_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	mcaps := make([]*entity.MarketCap, 0, 10)
	err = r.db.SelectContext(ctx, &mcaps, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get market caps: %w", err)
	}
	return mcaps, nil
}
