package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
	"course-access-platform/internal/infra/metrics"
)

// ReasonInvalidOrUsed is the single rejection reason for promo validation.
// A code that never existed and a code that was already consumed produce
// the same answer so callers cannot probe for code existence.
const ReasonInvalidOrUsed = "invalid_or_used"

// Validation is the outcome of checking a user-supplied code string.
type Validation struct {
	Valid  bool
	Reason string // set when !Valid
	Quote  model.PricingQuote
	Code   *model.PromoCode // set when Valid; carries the ref for Consume
}

// PromoUseCase validates and consumes promo codes and resolves the external
// checkout link for a computed discount.
type PromoUseCase struct {
	codes repository.PromoCodeRepository
	links repository.PricingLinkRepository
	log   *zerolog.Logger
}

func NewPromoUseCase(codes repository.PromoCodeRepository, links repository.PricingLinkRepository, logger *zerolog.Logger) *PromoUseCase {
	l := logger.With().Str("component", "PromoUC").Logger()
	return &PromoUseCase{codes: codes, links: links, log: &l}
}

// Validate looks up an exact-match, still-active code and computes the
// discounted quote. No state is mutated here; the snapshot may be stale by
// the time the caller commits, which Consume accounts for.
func (uc *PromoUseCase) Validate(ctx context.Context, title string, fullPrice model.Money) (*Validation, error) {
	if title == "" {
		metrics.IncPromoValidation(false)
		return &Validation{Valid: false, Reason: ReasonInvalidOrUsed}, nil
	}
	code, err := uc.codes.FindActiveByTitle(ctx, repository.NoTX, title)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) || errors.Is(err, domain.ErrNotFound) {
			metrics.IncPromoValidation(false)
			return &Validation{Valid: false, Reason: ReasonInvalidOrUsed}, nil
		}
		return nil, fmt.Errorf("promo lookup: %w", err)
	}
	metrics.IncPromoValidation(true)
	return &Validation{
		Valid: true,
		Quote: model.NewPricingQuote(fullPrice, code.Percentage),
		Code:  code,
	}, nil
}

// Consume marks the code used. The repository performs an atomic
// conditional update, so of two checkouts racing on the same code exactly
// one succeeds; the loser sees domain.ErrCodeNotFound and should tell the
// user the code is no longer valid.
func (uc *PromoUseCase) Consume(ctx context.Context, tx repository.Tx, codeID string) error {
	if err := uc.codes.Consume(ctx, tx, codeID); err != nil {
		return err
	}
	metrics.IncPromoRedemption()
	uc.log.Info().Str("code_id", codeID).Msg("promo code consumed")
	return nil
}

// ResolveCheckoutLink maps a discount percentage to the external payment
// URL. A missing percentage record falls back to the full-price "0" link;
// a missing fallback is a configuration error, fatal to the checkout flow,
// never an undefined charge.
func (uc *PromoUseCase) ResolveCheckoutLink(ctx context.Context, percentage int) (string, error) {
	link, err := uc.links.FindByPercentage(ctx, repository.NoTX, model.PercentageKey(percentage))
	if err == nil {
		return link.URL, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("pricing link lookup: %w", err)
	}
	if percentage != 0 {
		uc.log.Warn().Int("percentage", percentage).Msg("no pricing link for discount, falling back to full price")
		link, err = uc.links.FindByPercentage(ctx, repository.NoTX, model.PercentageKey(0))
		if err == nil {
			return link.URL, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("pricing link fallback lookup: %w", err)
		}
	}
	uc.log.Error().Int("percentage", percentage).Msg("pricing links misconfigured, no full-price record")
	return "", domain.ErrPricingNotConfigured
}

// --- admin management ---

func (uc *PromoUseCase) Create(ctx context.Context, title string, percentage int) (*model.PromoCode, error) {
	code, err := model.NewPromoCode(title, percentage)
	if err != nil {
		return nil, err
	}
	if err := uc.codes.Save(ctx, repository.NoTX, code); err != nil {
		return nil, fmt.Errorf("persist promo code: %w", err)
	}
	return code, nil
}

func (uc *PromoUseCase) List(ctx context.Context) ([]*model.PromoCode, error) {
	return uc.codes.List(ctx, repository.NoTX)
}

// Deactivate is the admin delete: it reuses the redemption write, so a code
// removed by an admin and a code consumed at checkout end in the same state.
func (uc *PromoUseCase) Deactivate(ctx context.Context, codeID string) error {
	return uc.codes.Consume(ctx, repository.NoTX, codeID)
}
