package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
	"course-access-platform/internal/infra/metrics"
)

// Locker serializes callback processing per gateway reference. Satisfied by
// the redis locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// maxCallbackParam caps attacker-controllable callback fields before they
// touch storage or logs.
const maxCallbackParam = 128

// CallbackInput is the raw, untrusted payload of a gateway callback.
type CallbackInput struct {
	RespStatus  string
	TranRef     string
	CartID      string
	RespMessage string
}

// CallbackResult is everything the redirect to the status page may carry.
// Raw gateway payload never travels further than this struct.
type CallbackResult struct {
	Success bool
	TranRef string
	CartID  string
	Message string
	Replay  bool // approved callback for an already-processed tranRef
}

// Checkout is the outcome of starting a payment: where to send the user and
// what they will be charged.
type Checkout struct {
	URL    string
	Quote  model.PricingQuote
	CartID string
	// PromoRejected is set when a supplied code did not validate; the
	// checkout is not started in that case.
	PromoRejected bool
	PromoReason   string
}

// PaymentUseCase owns checkout initiation and the payment completion
// handler that consumes asynchronous gateway callbacks.
type PaymentUseCase struct {
	payments  repository.PaymentRepository
	promo     *PromoUseCase
	access    *AccessUseCase
	tm        repository.TransactionManager
	locker    Locker
	fullPrice model.Money
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	promo *PromoUseCase,
	access *AccessUseCase,
	tm repository.TransactionManager,
	locker Locker,
	fullPrice model.Money,
	logger *zerolog.Logger,
) *PaymentUseCase {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &PaymentUseCase{
		payments:  payments,
		promo:     promo,
		access:    access,
		tm:        tm,
		locker:    locker,
		fullPrice: fullPrice,
		log:       &l,
	}
}

// BeginCheckout validates an optional promo code, resolves the checkout
// link for the resulting percentage, consumes the code, and opens a pending
// transaction. Code consumption and the pending insert share a transaction
// so a failed insert does not strand a consumed code.
func (uc *PaymentUseCase) BeginCheckout(ctx context.Context, accountID, promoTitle string) (*Checkout, error) {
	if accountID == "" {
		return nil, domain.ErrInvalidArgument
	}

	quote := model.NewPricingQuote(uc.fullPrice, 0)
	var code *model.PromoCode
	if promoTitle != "" {
		v, err := uc.promo.Validate(ctx, promoTitle, uc.fullPrice)
		if err != nil {
			return nil, err
		}
		if !v.Valid {
			return &Checkout{PromoRejected: true, PromoReason: v.Reason}, nil
		}
		quote = v.Quote
		code = v.Code
	}

	url, err := uc.promo.ResolveCheckoutLink(ctx, quote.DiscountPercentage)
	if err != nil {
		return nil, err
	}

	var promoID *string
	if code != nil {
		promoID = &code.ID
	}
	pending := model.NewPendingTransaction(accountID, quote.FinalPrice, promoID)

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if code != nil {
			if err := uc.promo.Consume(ctx, tx, code.ID); err != nil {
				return err
			}
		}
		return uc.payments.Save(ctx, tx, pending)
	})
	if errors.Is(err, domain.ErrCodeNotFound) {
		// Lost the redemption race between Validate and Consume.
		return &Checkout{PromoRejected: true, PromoReason: ReasonInvalidOrUsed}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open checkout: %w", err)
	}

	uc.log.Info().
		Str("account_id", accountID).
		Str("cart_id", pending.CartID).
		Str("final_price", quote.FinalPrice.String()).
		Msg("checkout opened")
	return &Checkout{URL: url, Quote: quote, CartID: pending.CartID}, nil
}

// HandleCallback consumes a gateway callback. On the recognized approved
// status it grants premium exactly once per tranRef; on anything else it
// mutates no account state and reports failure. The result carries only
// sanctioned fields for the redirect, never the raw payload.
func (uc *PaymentUseCase) HandleCallback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	in = clampCallbackInput(in)

	if in.RespStatus != model.GatewayStatusApproved {
		return uc.handleDeclined(ctx, in), nil
	}
	if in.TranRef == "" || in.CartID == "" {
		metrics.IncPayment("malformed")
		return &CallbackResult{Success: false, Message: "invalid payment callback"}, nil
	}

	// Serialize concurrent replays of the same reference.
	lockKey := "payment:tranref:" + in.TranRef
	token, err := uc.locker.TryLock(ctx, lockKey, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("payment lock: %w", err)
	}
	defer func() { _ = uc.locker.Unlock(ctx, lockKey, token) }()

	// Replay guard: a known tranRef means premium was already granted.
	if existing, err := uc.payments.FindByTranRef(ctx, repository.NoTX, in.TranRef); err == nil {
		metrics.IncPaymentReplay()
		uc.log.Warn().Str("tran_ref", in.TranRef).Msg("approved callback replayed, no second grant")
		return &CallbackResult{Success: true, TranRef: in.TranRef, CartID: existing.CartID, Replay: true}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("replay lookup: %w", err)
	}

	pending, err := uc.payments.FindByCartID(ctx, repository.NoTX, in.CartID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncPayment("malformed")
			return &CallbackResult{Success: false, Message: "unknown order"}, nil
		}
		return nil, fmt.Errorf("cart lookup: %w", err)
	}

	now := time.Now()
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.payments.MarkApproved(ctx, tx, pending.ID, in.TranRef); err != nil {
			return err
		}
		_, err := uc.access.GrantPremium(ctx, tx, pending.AccountID, in.TranRef, now)
		return err
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// The unique tran_ref constraint caught a replay that slipped past
		// the lookup (e.g. lock expired mid-flight).
		metrics.IncPaymentReplay()
		return &CallbackResult{Success: true, TranRef: in.TranRef, CartID: in.CartID, Replay: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete payment: %w", err)
	}

	metrics.IncPayment(string(model.PaymentStatusApproved))
	uc.log.Info().
		Str("account_id", pending.AccountID).
		Str("tran_ref", in.TranRef).
		Msg("payment approved, premium granted")
	return &CallbackResult{Success: true, TranRef: in.TranRef, CartID: in.CartID}, nil
}

func (uc *PaymentUseCase) handleDeclined(ctx context.Context, in CallbackInput) *CallbackResult {
	metrics.IncPayment(string(model.PaymentStatusDeclined))

	// Record the decline on the pending row for support lookups; this is
	// best-effort and touches no account fields.
	if in.CartID != "" {
		if pending, err := uc.payments.FindByCartID(ctx, repository.NoTX, in.CartID); err == nil {
			if err := uc.payments.MarkDeclined(ctx, repository.NoTX, pending.ID, in.RespStatus, in.RespMessage); err != nil {
				uc.log.Error().Err(err).Str("cart_id", in.CartID).Msg("decline record write failed")
			}
		}
	}

	msg := in.RespMessage
	if msg == "" {
		msg = "payment was not successful"
	}
	uc.log.Info().Str("cart_id", in.CartID).Str("status", in.RespStatus).Msg("payment declined")
	return &CallbackResult{Success: false, CartID: in.CartID, Message: msg}
}

func clampCallbackInput(in CallbackInput) CallbackInput {
	clamp := func(s string) string {
		if len(s) > maxCallbackParam {
			return s[:maxCallbackParam]
		}
		return s
	}
	in.RespStatus = clamp(in.RespStatus)
	in.TranRef = clamp(in.TranRef)
	in.CartID = clamp(in.CartID)
	in.RespMessage = clamp(in.RespMessage)
	return in
}
