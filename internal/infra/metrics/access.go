package metrics

import (
	"course-access-platform/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		tierEvaluationsTotal,
		expiryCorrectionsTotal,
		correctionWriteFailures,
		premiumGrantsTotal,
		premiumRevokesTotal,
	)
}

var (
	tierEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_tier_evaluations_total",
			Help: "Access tier decisions by resulting tier.",
		},
		[]string{"tier"},
	)

	expiryCorrectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_expiry_corrections_total",
			Help: "Expiry corrections written back to the account store.",
		},
	)

	correctionWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_correction_write_failures_total",
			Help: "Best-effort correction writes that failed.",
		},
	)

	premiumGrantsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_premium_grants_total",
			Help: "Premium grants applied after approved payments.",
		},
	)

	premiumRevokesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_premium_revokes_total",
			Help: "Administrative premium revocations.",
		},
	)
)

func IncTierEvaluation(tier model.AccessTier) {
	tierEvaluationsTotal.WithLabelValues(string(tier)).Inc()
}

func IncExpiryCorrections(count int) {
	expiryCorrectionsTotal.Add(float64(count))
}

func IncCorrectionWriteFailure() { correctionWriteFailures.Inc() }

func IncPremiumGrant() { premiumGrantsTotal.Inc() }

func IncPremiumRevoke() { premiumRevokesTotal.Inc() }
