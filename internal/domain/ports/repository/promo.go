package repository

import (
	"context"

	"course-access-platform/internal/domain/model"
)

// PromoCodeRepository is the port for managing promo codes.
type PromoCodeRepository interface {
	Save(ctx context.Context, tx Tx, code *model.PromoCode) error
	// FindActiveByTitle finds a still-active code by exact title match.
	// A missing title and a consumed code both yield domain.ErrCodeNotFound.
	FindActiveByTitle(ctx context.Context, tx Tx, title string) (*model.PromoCode, error)
	// Consume atomically flips is_active true -> false. It returns
	// domain.ErrCodeNotFound when the code was already consumed, which is
	// the sole gate against double-spending under concurrent checkouts.
	Consume(ctx context.Context, tx Tx, id string) error
	List(ctx context.Context, tx Tx) ([]*model.PromoCode, error)
}

// PricingLinkRepository resolves discount percentages to external checkout
// URLs. Percentage keys are strings, "0" for the full-price link.
type PricingLinkRepository interface {
	Save(ctx context.Context, tx Tx, link *model.PricingLink) error
	FindByPercentage(ctx context.Context, tx Tx, percentage string) (*model.PricingLink, error)
}
