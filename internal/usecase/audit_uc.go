package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ AuditUseCase = (*auditUC)(nil)

// AuditUseCase backs the support tooling: the webhook delivery log and ledger lookups.
type AuditUseCase interface {
	RecordDelivery(ctx context.Context, d *model.WebhookDelivery) error
	GetPayment(ctx context.Context, gatewayPaymentID string) (*PaymentView, error)
	// ListGaps returns approved payments older than olderThan with no membership extension.
	ListGaps(ctx context.Context, olderThan time.Duration, limit int) ([]*model.PaymentRecord, error)
}

// PaymentView is a ledger record with its most recent webhook deliveries.
type PaymentView struct {
	Record     *model.PaymentRecord
	Deliveries []*model.WebhookDelivery
}

type auditUC struct {
	ledger     repository.PaymentRecordRepository
	deliveries repository.DeliveryLogRepository
	membership MembershipUseCase
	lookback   time.Duration
	now        func() time.Time
	log        *zerolog.Logger
}

// NewAuditUseCase: lookback bounds how far back gap listing scans.
func NewAuditUseCase(
	ledger repository.PaymentRecordRepository,
	deliveries repository.DeliveryLogRepository,
	membership MembershipUseCase,
	lookback time.Duration,
	logger *zerolog.Logger,
) AuditUseCase {
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	l := logger.With().Str("component", "AuditUC").Logger()
	return &auditUC{
		ledger:     ledger,
		deliveries: deliveries,
		membership: membership,
		lookback:   lookback,
		now:        time.Now,
		log:        &l,
	}
}

func (uc *auditUC) RecordDelivery(ctx context.Context, d *model.WebhookDelivery) error {
	if d == nil {
		return domain.ErrInvalidArgument
	}
	if d.ID == "" {
		d.ID = ulid.Make().String()
	}
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = uc.now()
	}
	if err := uc.deliveries.Append(ctx, repository.NoTX, d); err != nil {
		uc.log.Warn().Err(err).Str("delivery_id", d.ID).Str("payment_id", d.PaymentID).Msg("webhook delivery not recorded")
		return err
	}
	return nil
}

func (uc *auditUC) GetPayment(ctx context.Context, gatewayPaymentID string) (*PaymentView, error) {
	if gatewayPaymentID == "" {
		return nil, missing("id")
	}
	rec, err := uc.ledger.FindByID(ctx, repository.NoTX, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	deliveries, err := uc.deliveries.ListByPayment(ctx, repository.NoTX, gatewayPaymentID, 20)
	if err != nil {
		// the record is the answer; deliveries are context
		uc.log.Warn().Err(err).Str("payment_id", gatewayPaymentID).Msg("list deliveries failed")
	}
	return &PaymentView{Record: rec, Deliveries: deliveries}, nil
}

func (uc *auditUC) ListGaps(ctx context.Context, olderThan time.Duration, limit int) ([]*model.PaymentRecord, error) {
	if olderThan < 0 {
		return nil, &domain.ValidationError{Kind: domain.InvalidParameter, Field: "older_than", Message: "older_than must not be negative"}
	}
	now := uc.now()
	return uc.membership.ListGaps(ctx, now.Add(-uc.lookback), now.Add(-olderThan), limit)
}
