package usecase

import (
	"context"

	"course-access-platform/internal/domain/ports/repository"
)

// Stats are the admin dashboard totals.
type Stats struct {
	TotalUsers        int `json:"total_users"`
	PremiumUsers      int `json:"premium_users"`
	FreeUsers         int `json:"free_users"`
	CompletedPayments int `json:"completed_payments"`
}

type StatsUseCase struct {
	accounts repository.AccountRepository
}

func NewStatsUseCase(accounts repository.AccountRepository) *StatsUseCase {
	return &StatsUseCase{accounts: accounts}
}

func (uc *StatsUseCase) Totals(ctx context.Context) (*Stats, error) {
	total, err := uc.accounts.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	premium, err := uc.accounts.CountPremium(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	paid, err := uc.accounts.CountPaymentCompleted(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalUsers:        total,
		PremiumUsers:      premium,
		FreeUsers:         total - premium,
		CompletedPayments: paid,
	}, nil
}
