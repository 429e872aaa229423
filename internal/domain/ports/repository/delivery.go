package repository

import (
	"context"

	"membership-payments/internal/domain/model"
)

type DeliveryLogRepository interface {
	Append(ctx context.Context, tx Tx, d *model.WebhookDelivery) error
	ListByPayment(ctx context.Context, tx Tx, paymentID string, limit int) ([]*model.WebhookDelivery, error)
}
