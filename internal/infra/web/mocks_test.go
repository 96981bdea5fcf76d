//go:build !integration

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"course-access-platform/internal/config"
	"course-access-platform/internal/domain"
	"course-access-platform/internal/domain/model"
	"course-access-platform/internal/domain/ports/repository"
	"course-access-platform/internal/usecase"
)

// In-memory repositories backing the handler tests. The handlers exercise
// real use-case wiring; only the stores and the limiter are replaced.

var (
	_ repository.AccountRepository     = (*memAccounts)(nil)
	_ repository.PromoCodeRepository   = (*memPromos)(nil)
	_ repository.PricingLinkRepository = (*memLinks)(nil)
	_ repository.PaymentRepository     = (*memPayments)(nil)
	_ repository.TransactionManager    = passthroughTx{}
	_ usecase.Locker                   = noopLocker{}
	_ Limiter                          = (*allowLimiter)(nil)
)

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*model.Account
}

func newMemAccounts() *memAccounts { return &memAccounts{byID: make(map[string]*model.Account)} }

func (r *memAccounts) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAccounts) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAccounts) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAccounts) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Account, 0, len(r.byID))
	for _, a := range r.byID {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memAccounts) Count(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

func (r *memAccounts) CountPremium(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.byID {
		if a.IsPremium {
			n++
		}
	}
	return n, nil
}

func (r *memAccounts) CountPaymentCompleted(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.byID {
		if a.PaymentCompleted {
			n++
		}
	}
	return n, nil
}

func (r *memAccounts) FindLapsedPremium(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Account, 0)
	for _, a := range r.byID {
		if a.IsPremium && a.RenewDate != nil && !a.RenewDate.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memPromos struct {
	mu   sync.Mutex
	byID map[string]*model.PromoCode
}

func newMemPromos() *memPromos { return &memPromos{byID: make(map[string]*model.PromoCode)} }

func (r *memPromos) Save(ctx context.Context, tx repository.Tx, code *model.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Title == code.Title && c.ID != code.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	r.byID[code.ID] = &cp
	return nil
}

func (r *memPromos) FindActiveByTitle(ctx context.Context, tx repository.Tx, title string) (*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Title == title && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCodeNotFound
}

func (r *memPromos) Consume(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || !c.IsActive {
		return domain.ErrCodeNotFound
	}
	c.IsActive = false
	return nil
}

func (r *memPromos) List(ctx context.Context, tx repository.Tx) ([]*model.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.PromoCode, 0, len(r.byID))
	for _, c := range r.byID {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type memLinks struct {
	mu    sync.Mutex
	byPct map[string]*model.PricingLink
}

func newMemLinks(links ...*model.PricingLink) *memLinks {
	r := &memLinks{byPct: make(map[string]*model.PricingLink)}
	for _, l := range links {
		cp := *l
		r.byPct[l.Percentage] = &cp
	}
	return r
}

func (r *memLinks) Save(ctx context.Context, tx repository.Tx, link *model.PricingLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *link
	r.byPct[link.Percentage] = &cp
	return nil
}

func (r *memLinks) FindByPercentage(ctx context.Context, tx repository.Tx, percentage string) (*model.PricingLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byPct[percentage]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

type memPayments struct {
	mu   sync.Mutex
	byID map[string]*model.PaymentTransaction
}

func newMemPayments() *memPayments {
	return &memPayments{byID: make(map[string]*model.PaymentTransaction)}
}

func (r *memPayments) Save(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memPayments) FindByCartID(ctx context.Context, tx repository.Tx, cartID string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.CartID == cartID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPayments) FindByTranRef(ctx context.Context, tx repository.Tx, tranRef string) (*model.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.TranRef != nil && *p.TranRef == tranRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPayments) MarkApproved(ctx context.Context, tx repository.Tx, id, tranRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.TranRef != nil && *p.TranRef == tranRef {
			return domain.ErrAlreadyExists
		}
	}
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	ref := tranRef
	p.TranRef = &ref
	p.Status = model.PaymentStatusApproved
	return nil
}

func (r *memPayments) MarkDeclined(ctx context.Context, tx repository.Tx, id, rawStatus, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = model.PaymentStatusDeclined
	p.RawStatus = rawStatus
	p.Message = message
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

type noopLocker struct{}

func (noopLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "token", nil
}
func (noopLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// allowLimiter lets everything through unless tripped.
type allowLimiter struct{ denied bool }

func (l *allowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return !l.denied, nil
}

type serverFixture struct {
	server   *Server
	ts       *httptest.Server
	accounts *memAccounts
	promos   *memPromos
	links    *memLinks
	payments *memPayments
	limiter  *allowLimiter
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	log := zerolog.Nop()
	f := &serverFixture{
		accounts: newMemAccounts(),
		promos:   newMemPromos(),
		links: newMemLinks(
			&model.PricingLink{Percentage: "0", URL: "https://pay.example/full"},
			&model.PricingLink{Percentage: "50", URL: "https://pay.example/half"},
		),
		payments: newMemPayments(),
		limiter:  &allowLimiter{},
	}

	accessUC := usecase.NewAccessUseCase(f.accounts, false, &log)
	accountUC := usecase.NewAccountUseCase(f.accounts, accessUC, &log)
	promoUC := usecase.NewPromoUseCase(f.promos, f.links, &log)
	paymentUC := usecase.NewPaymentUseCase(
		f.payments, promoUC, accessUC, passthroughTx{}, noopLocker{}, model.Money(64900), &log)
	statsUC := usecase.NewStatsUseCase(f.accounts)

	cfg := &config.WebConfig{
		Port:       0,
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
	}
	f.server = NewServer(cfg, accountUC, accessUC, promoUC, paymentUC, statsUC, f.limiter, &log)
	f.ts = httptest.NewServer(f.server.Routes())
	t.Cleanup(f.ts.Close)
	return f
}

// seedAccount stores an account with a bcrypt hash of pass and returns it.
func (f *serverFixture) seedAccount(t *testing.T, email, pass string, admin bool) *model.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	account, err := model.NewAccount("", email, string(hash), "Test User")
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	account.IsAdmin = admin
	if err := f.accounts.Save(context.Background(), repository.NoTX, account); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	return account
}

// bearerFor mints a session token for the account, bypassing the handlers.
func (f *serverFixture) bearerFor(t *testing.T, account *model.Account) string {
	t.Helper()
	rec := httptest.NewRecorder()
	token, err := f.server.auth.Mint(rec, account.ID, account.IsAdmin)
	if err != nil {
		t.Fatalf("mint session: %v", err)
	}
	return "Bearer " + token
}

func (f *serverFixture) do(t *testing.T, method, path, auth, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
