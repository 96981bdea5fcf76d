package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `
id, email, first_name, last_name, password_hash, is_admin,
is_premium, renew_date, subscription_expired, expired_date,
payment_completed, transaction_id, payment_date, joined_at`

func (r *AccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (
  id, email, first_name, last_name, password_hash, is_admin,
  is_premium, renew_date, subscription_expired, expired_date,
  payment_completed, transaction_id, payment_date, joined_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  email=$2, first_name=$3, last_name=$4, password_hash=$5, is_admin=$6,
  is_premium=$7, renew_date=$8, subscription_expired=$9, expired_date=$10,
  payment_completed=$11, transaction_id=$12, payment_date=$13;
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		a.ID, a.Email, a.FirstName, a.LastName, a.PasswordHash, a.IsAdmin,
		a.IsPremium, a.RenewDate, a.SubscriptionExpired, a.ExpiredDate,
		a.PaymentCompleted, a.TransactionID, a.PaymentDate, a.JoinedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *AccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	return r.findOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1;`, id)
}

func (r *AccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	return r.findOne(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE email=$1;`, email)
}

func (r *AccountRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Account, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var a model.Account
	err = scanAccount(ex.QueryRow(ctx, q, arg), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanAccount(row pgx.Row, a *model.Account) error {
	return row.Scan(
		&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.PasswordHash, &a.IsAdmin,
		&a.IsPremium, &a.RenewDate, &a.SubscriptionExpired, &a.ExpiredDate,
		&a.PaymentCompleted, &a.TransactionID, &a.PaymentDate, &a.JoinedAt,
	)
}

func (r *AccountRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts ORDER BY joined_at DESC OFFSET $1 LIMIT $2;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		var a model.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	return r.countWhere(ctx, tx, `SELECT COUNT(*) FROM accounts;`)
}

func (r *AccountRepo) CountPremium(ctx context.Context, tx repository.Tx) (int, error) {
	return r.countWhere(ctx, tx, `SELECT COUNT(*) FROM accounts WHERE is_premium;`)
}

func (r *AccountRepo) CountPaymentCompleted(ctx context.Context, tx repository.Tx) (int, error) {
	return r.countWhere(ctx, tx, `SELECT COUNT(*) FROM accounts WHERE payment_completed;`)
}

func (r *AccountRepo) countWhere(ctx context.Context, tx repository.Tx, q string) (int, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *AccountRepo) FindLapsedPremium(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Account, error) {
	const q = `
SELECT ` + accountColumns + `
  FROM accounts
 WHERE is_premium AND renew_date IS NOT NULL AND renew_date <= $1
 ORDER BY renew_date
 LIMIT $2;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		var a model.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
