package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentsTotal,
		paymentReplaysTotal,
		promoValidationsTotal,
		promoRedemptionsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment callbacks by outcome (approved/declined/malformed).",
		},
		[]string{"status"},
	)

	paymentReplaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_replays_total",
			Help: "Approved callbacks replayed with an already-known tranRef.",
		},
	)

	promoValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_validations_total",
			Help: "Promo code validations by result (valid/invalid).",
		},
		[]string{"result"},
	)

	promoRedemptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promo_redemptions_total",
			Help: "Promo codes consumed at checkout.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func IncPaymentReplay() { paymentReplaysTotal.Inc() }

func IncPromoValidation(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	promoValidationsTotal.WithLabelValues(result).Inc()
}

func IncPromoRedemption() { promoRedemptionsTotal.Inc() }
