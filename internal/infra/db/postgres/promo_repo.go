package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
)

var _ repository.PromoCodeRepository = (*PromoCodeRepo)(nil)

type PromoCodeRepo struct {
	pool *pgxpool.Pool
}

func NewPromoCodeRepo(pool *pgxpool.Pool) *PromoCodeRepo {
	return &PromoCodeRepo{pool: pool}
}

// The percentage column is text: the store keys discounts as strings
// ("50"), normalized to int at this boundary.
func (r *PromoCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.PromoCode) error {
	const q = `
INSERT INTO promo_codes (id, title, percentage, is_active, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET is_active = EXCLUDED.is_active;
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, code.ID, code.Title, model.PercentageKey(code.Percentage), code.IsActive, code.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// FindActiveByTitle matches exactly on title and activity. A consumed code
// is indistinguishable from a missing one.
func (r *PromoCodeRepo) FindActiveByTitle(ctx context.Context, tx repository.Tx, title string) (*model.PromoCode, error) {
	const q = `
SELECT id, title, percentage, is_active, created_at
  FROM promo_codes
 WHERE title = $1 AND is_active;
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	code, err := scanPromo(ex.QueryRow(ctx, q, title))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}
	return code, nil
}

// Consume is the atomic conditional update guarding against double
// redemption: only a row still active flips, and a zero-row result means
// someone else got there first.
func (r *PromoCodeRepo) Consume(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE promo_codes SET is_active = FALSE WHERE id = $1 AND is_active;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeNotFound
	}
	return nil
}

func (r *PromoCodeRepo) List(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	const q = `SELECT id, title, percentage, is_active, created_at FROM promo_codes ORDER BY created_at DESC;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PromoCode
	for rows.Next() {
		code, err := scanPromo(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

func scanPromo(row pgx.Row) (*model.PromoCode, error) {
	var c model.PromoCode
	var pct string
	if err := row.Scan(&c.ID, &c.Title, &pct, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	p, err := strconv.Atoi(pct)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	c.Percentage = p
	return &c, nil
}

// --- pricing links ---

var _ repository.PricingLinkRepository = (*PricingLinkRepo)(nil)

type PricingLinkRepo struct {
	pool *pgxpool.Pool
}

func NewPricingLinkRepo(pool *pgxpool.Pool) *PricingLinkRepo {
	return &PricingLinkRepo{pool: pool}
}

func (r *PricingLinkRepo) Save(ctx context.Context, tx repository.Tx, link *model.PricingLink) error {
	const q = `
INSERT INTO pricing_links (percentage, url, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (percentage) DO UPDATE SET url = EXCLUDED.url, updated_at = NOW();
`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, link.Percentage, link.URL)
	return err
}

func (r *PricingLinkRepo) FindByPercentage(ctx context.Context, tx repository.Tx, percentage string) (*model.PricingLink, error) {
	const q = `SELECT percentage, url, updated_at FROM pricing_links WHERE percentage = $1;`
	ex, err := pick(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var l model.PricingLink
	if err := ex.QueryRow(ctx, q, percentage).Scan(&l.Percentage, &l.URL, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}
