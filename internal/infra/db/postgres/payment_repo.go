package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `
id, account_id, cart_id, tran_ref, status, raw_status, message, amount, promo_id, created_at, updated_at`

func (r *PaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction) error {
	const q = `
INSERT INTO payment_transactions (
  id, account_id, cart_id, tran_ref, status, raw_status, message, amount, promo_id, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  tran_ref=$4, status=$5, raw_status=$6, message=$7, updated_at=NOW();
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		p.ID, p.AccountID, p.CartID, p.TranRef, string(p.Status), p.RawStatus, p.Message,
		int64(p.Amount), p.PromoID, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *PaymentRepo) FindByCartID(ctx context.Context, tx repository.Tx, cartID string) (*model.PaymentTransaction, error) {
	return r.findOne(ctx, tx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE cart_id=$1;`, cartID)
}

func (r *PaymentRepo) FindByTranRef(ctx context.Context, tx repository.Tx, tranRef string) (*model.PaymentTransaction, error) {
	return r.findOne(ctx, tx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE tran_ref=$1;`, tranRef)
}

func (r *PaymentRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.PaymentTransaction, error) {
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var p model.PaymentTransaction
	var status string
	var amount int64
	err = ex.QueryRow(ctx, q, arg).Scan(
		&p.ID, &p.AccountID, &p.CartID, &p.TranRef, &status, &p.RawStatus, &p.Message,
		&amount, &p.PromoID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	p.Amount = model.Money(amount)
	return &p, nil
}

// MarkApproved relies on the tran_ref unique index: a replayed reference
// surfaces domain.ErrAlreadyExists instead of a second approval row.
func (r *PaymentRepo) MarkApproved(ctx context.Context, tx repository.Tx, id, tranRef string) error {
	const q = `
UPDATE payment_transactions
   SET tran_ref=$2, status=$3, raw_status=$4, updated_at=NOW()
 WHERE id=$1;
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, id, tranRef, string(model.PaymentStatusApproved), model.GatewayStatusApproved)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PaymentRepo) MarkDeclined(ctx context.Context, tx repository.Tx, id, rawStatus, message string) error {
	const q = `
UPDATE payment_transactions
   SET status=$2, raw_status=$3, message=$4, updated_at=NOW()
 WHERE id=$1;
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, id, string(model.PaymentStatusDeclined), rawStatus, message)
	return err
}
