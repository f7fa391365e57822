package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
)

type tokensRepo basePostgresRepo

// NewTokensRepo serves any of the (network, token) -> address tables:
// tokens, liquidity_tokens and dollar_coins.
func NewTokensRepo(table string, db *db.DB) entity.TokensRepo {
	return (*tokensRepo)(newBasePostgresRepo(table, db))
}

func (r *tokensRepo) Ensure(ctx context.Context, token *entity.Token) error {
	q, args, err := sq.Insert(r.table).
		Columns("network_name", "token_name", "contract_address").
		Values(token.NetworkName, token.TokenName, token.ContractAddress).
		Suffix("ON CONFLICT (network_name, token_name) DO UPDATE SET updated_at = NOW(), contract_address = EXCLUDED.contract_address").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert %s row: %w", r.table, err)
	}
	return nil
}

func (r *tokensRepo) Insert(ctx context.Context, token *entity.Token) (bool, error) {
	q, args, err := sq.Insert(r.table).
		Columns("network_name", "token_name", "contract_address").
		Values(token.NetworkName, token.TokenName, token.ContractAddress).
		Suffix("ON CONFLICT (network_name, token_name) DO NOTHING").
		Suffix("RETURNING token_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("can't build query: %w", err)
	}
	names := make([]string, 0, 1)
	err = r.db.SelectContext(ctx, &names, q, args...)
	if err != nil {
		return false, fmt.Errorf("can't insert %s row: %w", r.table, err)
	}
	return len(names) > 0, nil
}

func (r *tokensRepo) GetByNetworkAndName(ctx context.Context, network, name string) (*entity.Token, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"network_name": network, "token_name": name}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	token := new(entity.Token)
	err = r.db.GetContext(ctx, token, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get %s row: %w", r.table, err)
	}
	return token, nil
}

func (r *tokensRepo) FindByNetwork(ctx context.Context, network string) ([]*entity.Token, error) {
	return r.find(ctx, sq.Eq{"network_name": network})
}

func (r *tokensRepo) FindByName(ctx context.Context, name string) ([]*entity.Token, error) {
	return r.find(ctx, sq.Eq{"token_name": name})
}

func (r *tokensRepo) FindAll(ctx context.Context) ([]*entity.Token, error) {
	return r.find(ctx, sq.Eq{})
}

func (r *tokensRepo) find(ctx context.Context, cond sq.Eq) ([]*entity.Token, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(cond).
		OrderBy("network_name", "token_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	tokens := make([]*entity.Token, 0, 10)
	err = r.db.SelectContext(ctx, &tokens, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't get %s rows: %w", r.table, err)
	}
	return tokens, nil
}
