package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"membership-payments/internal/config"
	"membership-payments/internal/domain"
	"membership-payments/internal/domain/ports/adapter"
	"membership-payments/internal/infra/metrics"
	"membership-payments/internal/usecase"
)

const repairLockKey = "lock:membership-repair"

// MembershipRepair periodically re-applies approved payments whose membership
// extension never landed: the process died between the ledger write and the
// extension, or the payer profile did not exist yet. Extension is idempotent
// per payment id, so a sweep racing a webhook is harmless.
type MembershipRepair struct {
	membership usecase.MembershipUseCase
	locker     adapter.Locker
	notifier   adapter.Notifier
	interval   time.Duration
	staleAfter time.Duration
	lookback   time.Duration
	batch      int
	now        func() time.Time
	log        *zerolog.Logger
}

// NewMembershipRepair: locker keeps concurrent replicas from sweeping at once and may be nil.
func NewMembershipRepair(
	membership usecase.MembershipUseCase,
	locker adapter.Locker,
	notifier adapter.Notifier,
	cfg config.RepairConfig,
	logger *zerolog.Logger,
) *MembershipRepair {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 7 * 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	l := logger.With().Str("component", "MembershipRepair").Logger()
	return &MembershipRepair{
		membership: membership,
		locker:     locker,
		notifier:   notifier,
		interval:   cfg.Interval,
		staleAfter: cfg.StaleAfter,
		lookback:   cfg.Lookback,
		batch:      cfg.BatchSize,
		now:        time.Now,
		log:        &l,
	}
}

func (w *MembershipRepair) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("membership repair started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one repair pass and returns how many gaps were closed.
func (w *MembershipRepair) Sweep(ctx context.Context) int {
	if w.locker != nil {
		unlock, err := w.locker.Lock(ctx, repairLockKey, w.interval)
		if err != nil {
			if !errors.Is(err, domain.ErrLockNotAcquired) {
				w.log.Warn().Err(err).Msg("repair lock failed")
			}
			return 0
		}
		defer unlock()
	}

	now := w.now()
	gaps, err := w.membership.ListGaps(ctx, now.Add(-w.lookback), now.Add(-w.staleAfter), w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("list gaps failed")
		return 0
	}

	repaired := 0
	for _, rec := range gaps {
		if ctx.Err() != nil {
			break
		}
		ext, err := w.membership.ExtendMembership(ctx, rec.PayerID, rec.GatewayPaymentID)
		if err != nil {
			metrics.IncRepair("failed")
			metrics.IncReconciliationGap("repair")
			w.log.Error().Err(err).
				Str("payment_id", rec.GatewayPaymentID).
				Str("payer_id", rec.PayerID).
				Msg("repair failed, gap remains")
			if w.notifier != nil {
				w.notifier.Notify(ctx, adapter.Notice{
					Kind:      adapter.NoticeReconciliationGap,
					PayerID:   rec.PayerID,
					PaymentID: rec.GatewayPaymentID,
					Text:      "repair failed: " + err.Error(),
				})
			}
			continue
		}
		repaired++
		metrics.IncRepair("repaired")
		metrics.IncMembershipExtension()
		w.log.Info().
			Str("payment_id", rec.GatewayPaymentID).
			Str("payer_id", rec.PayerID).
			Time("expires_at", ext.NewExpiresAt).
			Msg("membership repaired")
	}
	if len(gaps) > 0 {
		w.log.Info().Int("gaps", len(gaps)).Int("repaired", repaired).Msg("repair sweep finished")
	}
	return repaired
}
