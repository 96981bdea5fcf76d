package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
)

// AccountUseCase handles signup and signin. Sign-in is one of the mandatory
// subscription evaluation points, so it returns the tier alongside the
// account.
type AccountUseCase struct {
	accounts repository.AccountRepository
	access   *AccessUseCase
	log      *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, access *AccessUseCase, logger *zerolog.Logger) *AccountUseCase {
	l := logger.With().Str("component", "AccountUC").Logger()
	return &AccountUseCase{accounts: accounts, access: access, log: &l}
}

func (uc *AccountUseCase) Signup(ctx context.Context, email, password, fullName string) (*model.Account, error) {
	if len(password) < 6 {
		return nil, domain.ErrInvalidArgument
	}
	email = model.NormalizeEmail(email)
	if _, err := uc.accounts.FindByEmail(ctx, repository.NoTX, email); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("email lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account, err := model.NewAccount("", email, string(hash), fullName)
	if err != nil {
		return nil, err
	}
	if err := uc.accounts.Save(ctx, repository.NoTX, account); err != nil {
		return nil, fmt.Errorf("persist account: %w", err)
	}
	uc.log.Info().Str("account_id", account.ID).Msg("account created")
	return account, nil
}

// Signin verifies credentials and then evaluates subscription state, which
// may write back an expiry correction. A correction write failure does not
// fail the sign-in; the caller gets the corrected tier regardless.
func (uc *AccountUseCase) Signin(ctx context.Context, email, password string) (*model.Account, model.AccessTier, error) {
	account, err := uc.accounts.FindByEmail(ctx, repository.NoTX, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, model.TierNoAccount, domain.ErrInvalidCredentials
		}
		return nil, model.TierNoAccount, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, model.TierNoAccount, domain.ErrInvalidCredentials
	}

	tier, evalErr := uc.access.Evaluate(ctx, account, time.Now())
	if evalErr != nil {
		uc.log.Warn().Err(evalErr).Str("account_id", account.ID).Msg("signin evaluation correction failed")
	}
	return account, tier, nil
}

func (uc *AccountUseCase) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return uc.accounts.FindByID(ctx, repository.NoTX, id)
}

func (uc *AccountUseCase) List(ctx context.Context, offset, limit int) ([]*model.Account, error) {
	return uc.accounts.List(ctx, repository.NoTX, offset, limit)
}

func (uc *AccountUseCase) Count(ctx context.Context) (int, error) {
	return uc.accounts.Count(ctx, repository.NoTX)
}
