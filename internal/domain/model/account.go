package model

import (
	"strings"
	"time"

	"course-access-platform/internal/domain"

	"github.com/google/uuid"
)

// AccessTier is the effective access level of a visitor as of one evaluation.
type AccessTier string

const (
	TierNoAccount      AccessTier = "no_account"
	TierFree           AccessTier = "free"
	TierPremiumActive  AccessTier = "premium_active"
	TierPremiumExpired AccessTier = "premium_expired"
)

// PremiumDurationMonths is the fixed paid-access window granted per payment.
const PremiumDurationMonths = 3

// Account is a registered learner's profile and access-state record.
type Account struct {
	ID           string
	Email        string // stored lower-cased
	FirstName    string
	LastName     string
	PasswordHash string
	IsAdmin      bool

	IsPremium           bool
	RenewDate           *time.Time // moment premium access lapses; nil while free
	SubscriptionExpired bool
	ExpiredDate         *time.Time
	PaymentCompleted    bool
	TransactionID       *string
	PaymentDate         *time.Time

	JoinedAt time.Time
}

// NewAccount validates and constructs a free-tier account.
// fullName is split the way the signup form collects it: first word becomes
// the first name, the remainder the last name.
func NewAccount(id, email, passwordHash, fullName string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	if passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	first, last := SplitFullName(fullName)
	if first == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Account{
		ID:           id,
		Email:        email,
		FirstName:    first,
		LastName:     last,
		PasswordHash: passwordHash,
		JoinedAt:     time.Now(),
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// NormalizeEmail lower-cases and trims an address. Uniqueness is enforced on
// the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitFullName divides a display name into first/last parts.
func SplitFullName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// EvaluateTier classifies an account snapshot at the given instant.
// A nil account means the visitor is not authenticated. An account that
// claims premium without a future renew date is expired; the caller is
// responsible for writing back the matching correction.
func EvaluateTier(a *Account, now time.Time) AccessTier {
	if a.IsZero() {
		return TierNoAccount
	}
	if !a.IsPremium {
		return TierFree
	}
	if a.RenewDate != nil && a.RenewDate.After(now) {
		return TierPremiumActive
	}
	return TierPremiumExpired
}

// NeedsExpiryCorrection reports whether the stored record still claims
// premium past its renew date.
func (a *Account) NeedsExpiryCorrection(now time.Time) bool {
	return !a.IsZero() && EvaluateTier(a, now) == TierPremiumExpired
}

// ApplyExpiryCorrection flips the record to the lapsed state. Applying it
// twice leaves the same state, so it is safe from any entry point.
func (a *Account) ApplyExpiryCorrection(now time.Time) {
	a.IsPremium = false
	a.SubscriptionExpired = true
	if a.ExpiredDate == nil {
		t := now
		a.ExpiredDate = &t
	}
}

// ApplyPremiumGrant upgrades the account for the fixed premium window
// starting at now and records the payment trail.
func (a *Account) ApplyPremiumGrant(now time.Time, tranRef string) {
	renew := AddCalendarMonths(now, PremiumDurationMonths)
	paid := now
	a.IsPremium = true
	a.RenewDate = &renew
	a.SubscriptionExpired = false
	a.ExpiredDate = nil
	a.PaymentCompleted = true
	a.PaymentDate = &paid
	if tranRef == "" {
		tranRef = "completed"
	}
	a.TransactionID = &tranRef
}

// ApplyPremiumRevoke removes premium administratively. Clearing the renew
// date is a policy choice surfaced by the caller; leaving it preserves the
// historical lapse moment.
func (a *Account) ApplyPremiumRevoke(clearRenewDate bool) {
	a.IsPremium = false
	if clearRenewDate {
		a.RenewDate = nil
	}
}

// AddCalendarMonths advances t by whole calendar months, rolling the year
// over and clamping the day to the target month's length (Jan 31 plus one
// month lands on the last day of February). time.AddDate is not usable here
// because it normalizes Apr 31 into May 1.
func AddCalendarMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) - 1 + months
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	target := time.Month(m + 1)
	if last := daysInMonth(target, year); day > last {
		day = last
	}
	hour, min, sec := t.Clock()
	return time.Date(year, target, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(m time.Month, year int) int {
	// Day zero of the following month.
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
