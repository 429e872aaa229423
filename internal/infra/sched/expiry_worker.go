package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"membership-payments/internal/infra/metrics"
	"membership-payments/internal/usecase"
)

// ExpiryWorker periodically switches lapsed memberships to inactive.
type ExpiryWorker struct {
	interval   time.Duration
	membership usecase.MembershipUseCase
	log        *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, membership usecase.MembershipUseCase, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval:   interval,
		membership: membership,
		log:        &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one expiry pass.
func (w *ExpiryWorker) Tick(ctx context.Context) int {
	n, err := w.membership.ExpireMemberships(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
		return 0
	}
	if n > 0 {
		metrics.AddMembershipsExpired(n)
	}
	return n
}
