package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
	"membership-payments/internal/infra/logging"
)

var _ MembershipUseCase = (*membershipUC)(nil)

// MembershipApplier applies the business consequence of an approved payment.
type MembershipApplier interface {
	// ExtendMembership pushes the payer's expiry to max(now, expiry) + period.
	// Calling it again with the same payment id returns the first extension unchanged;
	// distinct payment ids extend cumulatively.
	ExtendMembership(ctx context.Context, payerID, fromPaymentID string) (*model.MembershipExtension, error)
}

type MembershipUseCase interface {
	MembershipApplier
	// ListGaps returns approved payments, first approved in [since, before), that have
	// no membership extension.
	ListGaps(ctx context.Context, since, before time.Time, limit int) ([]*model.PaymentRecord, error)
	// ExpireMemberships marks lapsed memberships inactive and reports how many changed.
	ExpireMemberships(ctx context.Context) (int, error)
}

type membershipUC struct {
	profiles repository.ProfileRepository
	ledger   repository.PaymentRecordRepository
	tm       repository.TransactionManager
	period   time.Duration
	now      func() time.Time
	log      *zerolog.Logger
}

func NewMembershipUseCase(
	profiles repository.ProfileRepository,
	ledger repository.PaymentRecordRepository,
	tm repository.TransactionManager,
	period time.Duration,
	logger *zerolog.Logger,
) *membershipUC {
	if period <= 0 {
		period = model.DefaultMembershipPeriod
	}
	l := logger.With().Str("component", "MembershipUC").Logger()
	return &membershipUC{
		profiles: profiles,
		ledger:   ledger,
		tm:       tm,
		period:   period,
		now:      time.Now,
		log:      &l,
	}
}

func (uc *membershipUC) ExtendMembership(ctx context.Context, payerID, fromPaymentID string) (*model.MembershipExtension, error) {
	defer logging.TraceDuration(uc.log, "MembershipUC.ExtendMembership")()
	if payerID == "" || fromPaymentID == "" {
		return nil, &domain.ApplyError{PayerID: payerID, PaymentID: fromPaymentID, Err: domain.ErrInvalidArgument}
	}

	var ext *model.MembershipExtension
	var reused bool
	err := uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		// The profile row lock serializes every extension of this payer,
		// so the extension lookup below cannot race another applier.
		p, err := uc.profiles.FindByID(ctx, tx, payerID)
		if err != nil {
			return err
		}
		existing, err := uc.profiles.FindExtension(ctx, tx, fromPaymentID)
		switch {
		case err == nil:
			ext, reused = existing, true
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		ext = p.ApplyExtension(fromPaymentID, uc.now(), uc.period)
		if err := uc.profiles.Save(ctx, tx, p); err != nil {
			return err
		}
		return uc.profiles.SaveExtension(ctx, tx, ext)
	})
	if err != nil {
		return nil, &domain.ApplyError{PayerID: payerID, PaymentID: fromPaymentID, Err: err}
	}

	evt := uc.log.Info()
	if reused {
		evt = uc.log.Debug()
	}
	evt.Str("payer_id", payerID).
		Str("payment_id", fromPaymentID).
		Time("expires_at", ext.NewExpiresAt).
		Bool("reused", reused).
		Msg("membership extended")
	return ext, nil
}

func (uc *membershipUC) ListGaps(ctx context.Context, since, before time.Time, limit int) ([]*model.PaymentRecord, error) {
	approved, err := uc.ledger.ListApprovedBefore(ctx, repository.NoTX, since, before, limit)
	if err != nil {
		return nil, err
	}
	var gaps []*model.PaymentRecord
	for _, rec := range approved {
		_, err := uc.profiles.FindExtension(ctx, repository.NoTX, rec.GatewayPaymentID)
		switch {
		case err == nil:
			continue
		case errors.Is(err, domain.ErrNotFound):
			gaps = append(gaps, rec)
		default:
			return nil, err
		}
	}
	return gaps, nil
}

func (uc *membershipUC) ExpireMemberships(ctx context.Context) (int, error) {
	n, err := uc.profiles.DeactivateExpired(ctx, repository.NoTX, uc.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		uc.log.Info().Int("count", n).Msg("memberships expired")
	}
	return n, nil
}
