package repository

import (
	"context"
	"time"

	"course-access-platform/internal/domain/model"
)

// AccountRepository is the port for the account store. Every read must be
// treated as possibly stale: another session may have corrected or upgraded
// the same record since the snapshot was taken.
type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Account, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.Account, error)
	Count(ctx context.Context, tx Tx) (int, error)
	CountPremium(ctx context.Context, tx Tx) (int, error)
	CountPaymentCompleted(ctx context.Context, tx Tx) (int, error)
	// FindLapsedPremium returns accounts still marked premium whose renew
	// date is at or before the cutoff. Used by the expiry sweep.
	FindLapsedPremium(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Account, error)
}
