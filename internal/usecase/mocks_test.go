//go:build !integration

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

var (
	_ repository.AccountRepository     = (*mockAccountRepo)(nil)
	_ repository.PromoCodeRepository   = (*mockPromoRepo)(nil)
	_ repository.PricingLinkRepository = (*mockLinkRepo)(nil)
	_ repository.PaymentRepository     = (*mockPaymentRepo)(nil)
	_ repository.TransactionManager    = (*mockTxManager)(nil)
	_ Locker                           = (*mockLocker)(nil)
)

// mockAccountRepo is an in-memory account store. Any Func field overrides the
// default behavior for that call.
type mockAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account

	SaveFunc        func(ctx context.Context, tx repository.Tx, a *model.Account) error
	FindByIDFunc    func(ctx context.Context, tx repository.Tx, id string) (*model.Account, error)
	FindByEmailFunc func(ctx context.Context, tx repository.Tx, email string) (*model.Account, error)
}

func newMockAccountRepo(seed ...*model.Account) *mockAccountRepo {
	r := &mockAccountRepo{accounts: make(map[string]*model.Account)}
	for _, a := range seed {
		cp := *a
		r.accounts[a.ID] = &cp
	}
	return r
}

func (r *mockAccountRepo) get(id string) *model.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[id]
}

func (r *mockAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *mockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *mockAccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	if r.FindByEmailFunc != nil {
		return r.FindByEmailFunc(ctx, tx, email)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *mockAccountRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *mockAccountRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts), nil
}

func (r *mockAccountRepo) CountPremium(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.accounts {
		if a.IsPremium {
			n++
		}
	}
	return n, nil
}

func (r *mockAccountRepo) CountPaymentCompleted(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.accounts {
		if a.PaymentCompleted {
			n++
		}
	}
	return n, nil
}

func (r *mockAccountRepo) FindLapsedPremium(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Account, 0)
	for _, a := range r.accounts {
		if a.IsPremium && a.RenewDate != nil && !a.RenewDate.After(cutoff) {
			cp := *a
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// mockPromoRepo performs the same atomic conditional consume the real store
// does, guarded by the mutex, so redemption races are observable in tests.
type mockPromoRepo struct {
	mu    sync.Mutex
	codes map[string]*model.PromoCode

	ConsumeFunc func(ctx context.Context, tx repository.Tx, id string) error
}

func newMockPromoRepo(seed ...*model.PromoCode) *mockPromoRepo {
	r := &mockPromoRepo{codes: make(map[string]*model.PromoCode)}
	for _, c := range seed {
		cp := *c
		r.codes[c.ID] = &cp
	}
	return r
}

func (r *mockPromoRepo) Save(ctx context.Context, tx repository.Tx, code *model.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Title == code.Title && c.ID != code.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	r.codes[code.ID] = &cp
	return nil
}

func (r *mockPromoRepo) FindActiveByTitle(ctx context.Context, tx repository.Tx, title string) (*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.Title == title && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCodeNotFound
}

func (r *mockPromoRepo) Consume(ctx context.Context, tx repository.Tx, id string) error {
	if r.ConsumeFunc != nil {
		return r.ConsumeFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok || !c.IsActive {
		return domain.ErrCodeNotFound
	}
	c.IsActive = false
	return nil
}

func (r *mockPromoRepo) List(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.PromoCode, 0, len(r.codes))
	for _, c := range r.codes {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type mockLinkRepo struct {
	mu    sync.Mutex
	links map[string]*model.PricingLink
}

func newMockLinkRepo(links ...*model.PricingLink) *mockLinkRepo {
	r := &mockLinkRepo{links: make(map[string]*model.PricingLink)}
	for _, l := range links {
		cp := *l
		r.links[l.Percentage] = &cp
	}
	return r
}

func (r *mockLinkRepo) Save(ctx context.Context, tx repository.Tx, link *model.PricingLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *link
	r.links[link.Percentage] = &cp
	return nil
}

func (r *mockLinkRepo) FindByPercentage(ctx context.Context, tx repository.Tx, percentage string) (*model.PricingLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[percentage]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

type mockPaymentRepo struct {
	mu   sync.Mutex
	rows map[string]*model.PaymentTransaction // keyed by ID

	MarkApprovedFunc func(ctx context.Context, tx repository.Tx, id, tranRef string) error
}

func newMockPaymentRepo(seed ...*model.PaymentTransaction) *mockPaymentRepo {
	r := &mockPaymentRepo{rows: make(map[string]*model.PaymentTransaction)}
	for _, p := range seed {
		cp := *p
		r.rows[p.ID] = &cp
	}
	return r
}

func (r *mockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *mockPaymentRepo) FindByCartID(ctx context.Context, tx repository.Tx, cartID string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.CartID == cartID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *mockPaymentRepo) FindByTranRef(ctx context.Context, tx repository.Tx, tranRef string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.TranRef != nil && *p.TranRef == tranRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *mockPaymentRepo) MarkApproved(ctx context.Context, tx repository.Tx, id, tranRef string) error {
	if r.MarkApprovedFunc != nil {
		return r.MarkApprovedFunc(ctx, tx, id, tranRef)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.TranRef != nil && *p.TranRef == tranRef {
			return domain.ErrAlreadyExists
		}
	}
	p, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	ref := tranRef
	p.TranRef = &ref
	p.Status = model.PaymentStatusApproved
	p.UpdatedAt = time.Now()
	return nil
}

func (r *mockPaymentRepo) MarkDeclined(ctx context.Context, tx repository.Tx, id, rawStatus, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = model.PaymentStatusDeclined
	p.RawStatus = rawStatus
	p.Message = message
	p.UpdatedAt = time.Now()
	return nil
}

// mockTxManager runs the function directly; the mocks enforce their own
// atomicity, so there is nothing to begin or commit.
type mockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// mockLocker always grants the lock. Callback idempotence must hold without
// it; the lock only narrows the race window.
type mockLocker struct {
	mu     sync.Mutex
	locked map[string]int
}

func newMockLocker() *mockLocker {
	return &mockLocker{locked: make(map[string]int)}
}

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked[key]++
	return "token", nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error {
	return nil
}
