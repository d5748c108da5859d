package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/habilitation-registry/internal/platform/auth"
	pgdb "github.com/ogurasousui/habilitation-registry/internal/platform/db/postgres"
)

const accountUniqueViolationCode = "23505"

// AccountRepository は PostgreSQL を利用したアカウント永続化の実装です。
type AccountRepository struct {
	pool pgdb.Queryer
}

// NewAccountRepository は AccountRepository を生成します。
func NewAccountRepository(pool pgdb.Queryer) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create はアカウントを新規作成します。
func (r *AccountRepository) Create(ctx context.Context, a *auth.Account) (*auth.Account, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO accounts (id, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, email, password_hash, created_at
    `, uuid.NewString(), a.Email, a.PasswordHash, a.CreatedAt)

	created, err := scanAccount(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return created, nil
}

// FindByID は ID でアカウントを取得します。
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at
          FROM accounts
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanAccount(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return found, nil
}

// FindByEmail はメールアドレスでアカウントを取得します。
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at
          FROM accounts
         WHERE email = $1
         LIMIT 1
    `, email)

	found, err := scanAccount(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return found, nil
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var account auth.Account
	if err := row.Scan(&account.ID, &account.Email, &account.PasswordHash, &account.CreatedAt); err != nil {
		return nil, err
	}
	return &account, nil
}

func translateAccountPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.ErrAccountNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == accountUniqueViolationCode {
			return auth.ErrEmailAlreadyExists
		}
	}

	return err
}
