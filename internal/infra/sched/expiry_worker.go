package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-access-platform/internal/usecase"
)

// ExpiryWorker periodically corrects lapsed premium accounts store-side,
// covering users who never sign in again after their window ends.
type ExpiryWorker struct {
	interval time.Duration
	access   *usecase.AccessUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, access *usecase.AccessUseCase, logger *zerolog.Logger) *ExpiryWorker {
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		access:   access,
		log:      &l,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.access.SweepExpired(ctx, time.Now(), 500)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("lapsed accounts corrected")
			}
		}
	}
}
