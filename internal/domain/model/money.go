package model

import (
	"fmt"
	"strconv"
	"strings"

	"course-access-platform/internal/domain"
)

// Money is an amount in the currency's minor unit (halalas for SAR),
// stored as an integer to avoid float rounding drift.
type Money int64

// ParseMoney accepts "649" or "649.00" style decimal strings.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, domain.ErrInvalidArgument
	}
	whole, frac, _ := strings.Cut(s, ".")
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || major < 0 {
		return 0, domain.ErrInvalidArgument
	}
	minor := int64(0)
	if frac != "" {
		if len(frac) > 2 {
			return 0, domain.ErrInvalidArgument
		}
		for len(frac) < 2 {
			frac += "0"
		}
		minor, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || minor < 0 {
			return 0, domain.ErrInvalidArgument
		}
	}
	return Money(major*100 + minor), nil
}

// String renders the amount with two decimal places, e.g. "649.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
