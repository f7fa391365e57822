package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/exposure-labs/subnet-relay/db"
	"github.com/exposure-labs/subnet-relay/entity"
)

type accountsRepo basePostgresRepo

func NewAccountsRepo(table string, db *db.DB) entity.AccountsRepo {
	return (*accountsRepo)(newBasePostgresRepo(table, db))
}

func (r *accountsRepo) Ensure(ctx context.Context, account *entity.Account) error {
	q, args, err := sq.Insert(r.table).
		Columns("email", "address").
		Values(account.Email, account.Address).
		Suffix("ON CONFLICT (email, address) DO UPDATE SET updated_at = NOW()").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert account: %w", err)
	}
	return nil
}
