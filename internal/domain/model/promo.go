package model

import (
	"strconv"
	"time"

	"course-access-platform/internal/domain"

	"github.com/oklog/ulid/v2"
)

// AllowedDiscountPercentages is the enumerated set an admin may choose from.
var AllowedDiscountPercentages = []int{50, 60, 70}

// PromoCode is a named, single-use discount grant. Redemption is exactly the
// act of flipping IsActive to false; there is no usage counter, so a code is
// usable at most once, system-wide.
type PromoCode struct {
	ID         string
	Title      string // case-sensitive token chosen by an admin
	Percentage int
	IsActive   bool
	CreatedAt  time.Time
}

// NewPromoCode validates and constructs an active code.
func NewPromoCode(title string, percentage int) (*PromoCode, error) {
	if title == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !ValidDiscountPercentage(percentage) {
		return nil, domain.ErrInvalidArgument
	}
	return &PromoCode{
		ID:         ulid.Make().String(),
		Title:      title,
		Percentage: percentage,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}, nil
}

func ValidDiscountPercentage(p int) bool {
	for _, v := range AllowedDiscountPercentages {
		if v == p {
			return true
		}
	}
	return false
}

// ParseDiscountPercentage normalizes the store's string-typed percentage
// ("50") into the numeric form used for arithmetic.
func ParseDiscountPercentage(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || !ValidDiscountPercentage(p) {
		return 0, domain.ErrInvalidArgument
	}
	return p, nil
}

// PercentageKey is the stable string key used by the pricing-link store.
// "0" addresses the full-price link.
func PercentageKey(p int) string { return strconv.Itoa(p) }

// PricingQuote is an ephemeral, never-persisted price computation.
type PricingQuote struct {
	FullPrice          Money
	DiscountPercentage int
	FinalPrice         Money
}

// NewPricingQuote computes fullPrice * (1 - pct/100) rounded half-up to the
// minor unit. The product fullPrice*(100-pct) is in hundredths of a minor
// unit, so adding 50 before the division implements standard rounding
// without floating point.
func NewPricingQuote(fullPrice Money, percentage int) PricingQuote {
	final := (int64(fullPrice)*int64(100-percentage) + 50) / 100
	return PricingQuote{
		FullPrice:          fullPrice,
		DiscountPercentage: percentage,
		FinalPrice:         Money(final),
	}
}

// PricingLink maps a discount percentage to the external checkout URL that
// charges the matching amount.
type PricingLink struct {
	Percentage string // store key, "0" for full price
	URL        string
	UpdatedAt  time.Time
}
