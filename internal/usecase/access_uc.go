package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
	"course-access-platform/internal/infra/metrics"
)

// AccessUseCase is the subscription state evaluator. It owns the
// interpretation of an account's premium flag and renew date and is the
// only place that decides whether content is servable.
type AccessUseCase struct {
	accounts           repository.AccountRepository
	clearRenewOnRevoke bool
	log                *zerolog.Logger
}

func NewAccessUseCase(accounts repository.AccountRepository, clearRenewOnRevoke bool, logger *zerolog.Logger) *AccessUseCase {
	l := logger.With().Str("component", "AccessUC").Logger()
	return &AccessUseCase{accounts: accounts, clearRenewOnRevoke: clearRenewOnRevoke, log: &l}
}

// Evaluate classifies the snapshot at now and, when the stored record still
// claims premium past its renew date, writes the idempotent correction back.
// The write is best-effort: a failure is logged and returned, but the tier
// decision stands so page rendering never blocks on store availability.
// Every entry point (signin, session refresh, worker sweep) goes through
// here because the store is not guaranteed to reflect a correction made
// elsewhere yet.
func (uc *AccessUseCase) Evaluate(ctx context.Context, account *model.Account, now time.Time) (model.AccessTier, error) {
	tier := model.EvaluateTier(account, now)
	metrics.IncTierEvaluation(tier)

	if account != nil && account.NeedsExpiryCorrection(now) {
		account.ApplyExpiryCorrection(now)
		if err := uc.accounts.Save(ctx, repository.NoTX, account); err != nil {
			metrics.IncCorrectionWriteFailure()
			uc.log.Error().Err(err).Str("account_id", account.ID).Msg("expiry correction write failed")
			return tier, fmt.Errorf("expiry correction: %w", err)
		}
		metrics.IncExpiryCorrections(1)
		uc.log.Info().Str("account_id", account.ID).Msg("premium lapsed, correction written")
	}
	return tier, nil
}

// EvaluateByID loads a fresh snapshot and evaluates it. An unknown id is a
// plain FREE/NO_ACCOUNT distinction: missing account means unauthenticated.
func (uc *AccessUseCase) EvaluateByID(ctx context.Context, accountID string, now time.Time) (*model.Account, model.AccessTier, error) {
	account, err := uc.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, model.TierNoAccount, nil
		}
		return nil, model.TierNoAccount, err
	}
	tier, err := uc.Evaluate(ctx, account, now)
	return account, tier, err
}

// GrantPremium upgrades an account after an approved payment: three
// calendar months from now with day clamping, plus the payment trail.
func (uc *AccessUseCase) GrantPremium(ctx context.Context, tx repository.Tx, accountID, tranRef string, now time.Time) (*model.Account, error) {
	account, err := uc.accounts.FindByID(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	account.ApplyPremiumGrant(now, tranRef)
	if err := uc.accounts.Save(ctx, tx, account); err != nil {
		return nil, fmt.Errorf("persist premium grant: %w", err)
	}
	metrics.IncPremiumGrant()
	uc.log.Info().
		Str("account_id", account.ID).
		Time("renew_date", *account.RenewDate).
		Msg("premium granted")
	return account, nil
}

// RevokePremium removes premium administratively. Whether the stale renew
// date is cleared follows the configured policy.
func (uc *AccessUseCase) RevokePremium(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := uc.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	account.ApplyPremiumRevoke(uc.clearRenewOnRevoke)
	if err := uc.accounts.Save(ctx, repository.NoTX, account); err != nil {
		return nil, fmt.Errorf("persist premium revoke: %w", err)
	}
	metrics.IncPremiumRevoke()
	uc.log.Info().Str("account_id", account.ID).Msg("premium revoked")
	return account, nil
}

// SweepExpired applies the correction store-side for accounts that lapsed
// without ever signing in again. Returns the number corrected.
func (uc *AccessUseCase) SweepExpired(ctx context.Context, now time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	lapsed, err := uc.accounts.FindLapsedPremium(ctx, repository.NoTX, now, batch)
	if err != nil {
		return 0, err
	}
	corrected := 0
	for _, account := range lapsed {
		account.ApplyExpiryCorrection(now)
		if err := uc.accounts.Save(ctx, repository.NoTX, account); err != nil {
			metrics.IncCorrectionWriteFailure()
			uc.log.Error().Err(err).Str("account_id", account.ID).Msg("sweep correction write failed")
			continue
		}
		corrected++
	}
	metrics.IncExpiryCorrections(corrected)
	return corrected, nil
}
