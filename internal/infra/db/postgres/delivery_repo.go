package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
)

var _ repository.DeliveryLogRepository = (*deliveryRepo)(nil)

type deliveryRepo struct{ pool *pgxpool.Pool }

func NewDeliveryRepo(pool *pgxpool.Pool) *deliveryRepo {
	return &deliveryRepo{pool: pool}
}

func (r *deliveryRepo) Append(ctx context.Context, tx repository.Tx, d *model.WebhookDelivery) error {
	if d == nil || d.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO webhook_deliveries (id, type, payment_id, request_id, body, outcome, http_status, error, received_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q, d.ID, d.Type, d.PaymentID, d.RequestID, string(d.Body), d.Outcome, d.HTTPStatus, d.Error, d.ReceivedAt)
	if err != nil {
		return opErr(err)
	}
	return nil
}

// ListByPayment returns the newest deliveries first; ULID ids sort by time.
func (r *deliveryRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string, limit int) ([]*model.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, type, payment_id, request_id, body, outcome, http_status, error, received_at
  FROM webhook_deliveries WHERE payment_id=$1 ORDER BY id DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, paymentID, limit)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()

	var out []*model.WebhookDelivery
	for rows.Next() {
		var (
			d    model.WebhookDelivery
			body string
		)
		if err := rows.Scan(&d.ID, &d.Type, &d.PaymentID, &d.RequestID, &body, &d.Outcome, &d.HTTPStatus, &d.Error, &d.ReceivedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		d.Body = []byte(body)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(err)
	}
	return out, nil
}
