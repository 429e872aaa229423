package memory

import (
	"context"
	"sync"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
)

var _ repository.DeliveryLogRepository = (*DeliveryLog)(nil)

type DeliveryLog struct {
	mu   sync.Mutex
	rows []*model.WebhookDelivery
}

func NewDeliveryLog() *DeliveryLog { return &DeliveryLog{} }

func (l *DeliveryLog) Append(ctx context.Context, tx repository.Tx, d *model.WebhookDelivery) error {
	if d == nil || d.ID == "" {
		return domain.ErrInvalidArgument
	}
	cp := *d
	l.mu.Lock()
	l.rows = append(l.rows, &cp)
	l.mu.Unlock()
	return nil
}

// ListByPayment returns the newest deliveries first.
func (l *DeliveryLog) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string, limit int) ([]*model.WebhookDelivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*model.WebhookDelivery
	for i := len(l.rows) - 1; i >= 0; i-- {
		if l.rows[i].PaymentID != paymentID {
			continue
		}
		cp := *l.rows[i]
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
