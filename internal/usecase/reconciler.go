package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/adapter"
	"membership-payments/internal/domain/ports/repository"
	"membership-payments/internal/infra/logging"
)

var _ ReconcileUseCase = (*Reconciler)(nil)

type ReconcileUseCase interface {
	// Reconcile fetches the authoritative payment state and brings the ledger and
	// the payer's membership in line with it. Safe to call any number of times.
	Reconcile(ctx context.Context, gatewayPaymentID string) (*ReconcileResult, error)
}

type Outcome string

const (
	OutcomeRecorded         Outcome = "recorded"
	OutcomeApplied          Outcome = "applied"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeUnhandledStatus  Outcome = "unhandled_status"
	// OutcomeApplyFailed: the payment is recorded as approved but the membership
	// write failed. It is a gap for operators, not a reason for the gateway to retry.
	OutcomeApplyFailed Outcome = "apply_failed"
)

type ReconcileResult struct {
	PaymentID string
	PayerID   string
	Status    model.PaymentStatus // status stored after this call
	Previous  model.PaymentStatus // empty when the record was created by this call
	Outcome   Outcome
	Amount    decimal.Decimal
	Currency  string
	Extension *model.MembershipExtension
}

// Action is what reconciliation does with a fetched payment.
type Action int

const (
	ActionSkip Action = iota
	ActionRecord
	ActionRecordAndApply
)

// Decide maps the gateway status onto a ledger action. It performs no I/O.
func Decide(status model.PaymentStatus) Action {
	switch status {
	case model.PaymentStatusApproved:
		return ActionRecordAndApply
	case model.PaymentStatusPending, model.PaymentStatusRejected:
		return ActionRecord
	default:
		return ActionSkip
	}
}

// ValidateDetail checks a fetched payment before anything is written.
func ValidateDetail(requestedID string, d *model.PaymentDetail) error {
	fail := func(reason string) error {
		return &domain.ReconciliationError{PaymentID: requestedID, Reason: reason}
	}
	switch {
	case d == nil:
		return fail("empty payment detail")
	case strings.TrimSpace(d.ID) == "":
		return fail("payment detail has no id")
	case d.ID != requestedID:
		return fail(fmt.Sprintf("payment detail id %q does not match notification", d.ID))
	case strings.TrimSpace(d.ExternalReference) == "":
		return fail("payment has no external reference")
	case !d.Amount.IsPositive():
		return fail("payment amount is not positive")
	}
	return nil
}

type ReconcilerOptions struct {
	// Locker coalesces concurrent deliveries of one payment id. Optional.
	Locker  adapter.Locker
	LockTTL time.Duration
	// WriteTimeout bounds ledger and membership writes, which outlive the request context.
	WriteTimeout time.Duration
	Notifier     adapter.Notifier
}

// Reconciler is the webhook-side half of the payment flow.
type Reconciler struct {
	gateway  adapter.PaymentGateway
	ledger   repository.PaymentRecordRepository
	applier  MembershipApplier
	locker   adapter.Locker
	notifier adapter.Notifier
	lockTTL  time.Duration
	writeTO  time.Duration
	now      func() time.Time
	log      *zerolog.Logger
}

func NewReconciler(
	gateway adapter.PaymentGateway,
	ledger repository.PaymentRecordRepository,
	applier MembershipApplier,
	opts ReconcilerOptions,
	logger *zerolog.Logger,
) *Reconciler {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "Reconciler").Logger()
	return &Reconciler{
		gateway:  gateway,
		ledger:   ledger,
		applier:  applier,
		locker:   opts.Locker,
		notifier: opts.Notifier,
		lockTTL:  opts.LockTTL,
		writeTO:  opts.WriteTimeout,
		now:      time.Now,
		log:      &l,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, gatewayPaymentID string) (*ReconcileResult, error) {
	id := strings.TrimSpace(gatewayPaymentID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty payment id", domain.ErrMalformedNotification)
	}
	log := logging.With(ctx, r.log).With().Str("payment_id", id).Logger()

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, reconcileLockKey(id), r.lockTTL)
		if err != nil {
			// correctness does not depend on the lock; it only saves duplicate gateway reads
			log.Warn().Err(err).Msg("reconcile lock not acquired, continuing unlocked")
		} else {
			defer unlock()
		}
	}

	detail, err := r.gateway.FetchPayment(ctx, id)
	if err == nil {
		err = ValidateDetail(id, detail)
	}
	if err != nil {
		var recErr *domain.ReconciliationError
		if !errors.As(err, &recErr) {
			log.Error().Err(err).Msg("fetch payment failed")
			return nil, err
		}
		log.Error().Err(err).Msg("payment detail rejected")
		r.notify(ctx, adapter.Notice{
			Kind:      adapter.NoticeCorruptPayment,
			PaymentID: id,
			Text:      err.Error(),
		})
		return nil, err
	}

	res := &ReconcileResult{
		PaymentID: id,
		PayerID:   detail.ExternalReference,
		Amount:    detail.Amount,
		Currency:  detail.Currency,
	}
	action := Decide(detail.Status)
	if action == ActionSkip {
		log.Warn().Str("status", string(detail.Status)).Msg("unhandled payment status, nothing recorded")
		res.Status = detail.Status
		res.Outcome = OutcomeUnhandledStatus
		return res, nil
	}

	// Writes are detached from the request: a client hanging up mid-write
	// must not leave an approval half-recorded.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTO)
	defer cancel()

	now := r.now()
	up, err := r.ledger.Upsert(wctx, repository.NoTX, model.NewPaymentRecord(detail, detail.Status, now))
	if err != nil {
		log.Error().Err(err).Msg("ledger upsert failed")
		return nil, fmt.Errorf("ledger upsert %s: %w", id, err)
	}
	res.Previous = up.Previous
	res.Status = up.Stored.Status

	if up.Stored.Status != detail.Status {
		// The stored status is terminal and differs; the gateway is never allowed to move it.
		log.Warn().
			Str("stored_status", string(up.Stored.Status)).
			Str("gateway_status", string(detail.Status)).
			Msg("terminal status kept, notification ignored")
		res.Outcome = OutcomeAlreadyProcessed
		return res, nil
	}

	if action == ActionRecord {
		res.Outcome = OutcomeRecorded
		if !up.Created() && !up.Changed() {
			res.Outcome = OutcomeAlreadyProcessed
		}
		log.Info().
			Str("payer_id", res.PayerID).
			Str("status", string(res.Status)).
			Str("previous", string(up.Previous)).
			Str("outcome", string(res.Outcome)).
			Msg("payment recorded")
		return res, nil
	}

	won, err := r.ledger.MarkFirstApproved(wctx, repository.NoTX, id, now)
	if err != nil {
		log.Error().Err(err).Msg("mark first approval failed")
		return nil, fmt.Errorf("mark first approval %s: %w", id, err)
	}
	if !won {
		log.Info().Str("payer_id", res.PayerID).Msg("approval already processed")
		res.Outcome = OutcomeAlreadyProcessed
		return res, nil
	}

	ext, err := r.applier.ExtendMembership(wctx, res.PayerID, id)
	if err != nil {
		var applyErr *domain.ApplyError
		if !errors.As(err, &applyErr) {
			err = &domain.ApplyError{PayerID: res.PayerID, PaymentID: id, Err: err}
		}
		log.Error().Err(err).
			Str("payer_id", res.PayerID).
			Str("amount", detail.Amount.String()).
			Msg("reconciliation gap: payment approved but membership not extended")
		r.notify(ctx, adapter.Notice{
			Kind:      adapter.NoticeReconciliationGap,
			PayerID:   res.PayerID,
			PaymentID: id,
			Text:      err.Error(),
		})
		res.Outcome = OutcomeApplyFailed
		return res, nil
	}

	res.Extension = ext
	res.Outcome = OutcomeApplied
	log.Info().
		Str("payer_id", res.PayerID).
		Str("amount", detail.Amount.String()).
		Time("expires_at", ext.NewExpiresAt).
		Msg("payment approved, membership extended")
	r.notify(ctx, adapter.Notice{
		Kind:      adapter.NoticeMembershipActivated,
		PayerID:   res.PayerID,
		PaymentID: id,
		Text:      fmt.Sprintf("membership active until %s", ext.NewExpiresAt.UTC().Format(time.RFC3339)),
	})
	return res, nil
}

func (r *Reconciler) notify(ctx context.Context, n adapter.Notice) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(context.WithoutCancel(ctx), n)
}

func reconcileLockKey(paymentID string) string {
	return "lock:reconcile:" + paymentID
}
