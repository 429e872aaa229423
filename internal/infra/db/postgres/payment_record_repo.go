package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
	"membership-payments/internal/infra/metrics"
)

var _ repository.PaymentRecordRepository = (*paymentRecordRepo)(nil)

type paymentRecordRepo struct{ pool *pgxpool.Pool }

func NewPaymentRecordRepo(pool *pgxpool.Pool) *paymentRecordRepo {
	return &paymentRecordRepo{pool: pool}
}

const recordCols = `gateway_payment_id, payer_id, amount::text, currency, status, payment_method, status_detail, metadata, first_approved_at, created_at, updated_at`

// Upsert runs insert-or-update in one transaction. A row that is already
// terminal is only rewritten by a notification carrying the same status.
func (r *paymentRecordRepo) Upsert(ctx context.Context, tx repository.Tx, rec *model.PaymentRecord) (repository.UpsertResult, error) {
	if rec == nil || rec.GatewayPaymentID == "" {
		return repository.UpsertResult{}, domain.ErrInvalidArgument
	}
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return repository.UpsertResult{}, fmt.Errorf("%w: metadata: %v", domain.ErrInvalidArgument, err)
	}

	var res repository.UpsertResult
	run := func(q executor) error {
		var err error
		res, err = upsertRecord(ctx, q, rec, meta)
		return err
	}
	if live, ok := tx.(pgx.Tx); ok {
		err = run(live)
	} else if tx == nil {
		err = withTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(t pgx.Tx) error { return run(t) })
	} else {
		err = domain.ErrInvalidExecContext
	}
	if err != nil {
		metrics.IncLedgerWrite("upsert", "error")
		return repository.UpsertResult{}, opErr(err)
	}
	result := "noop"
	switch {
	case res.Created():
		result = "created"
	case res.Changed():
		result = "changed"
	}
	metrics.IncLedgerWrite("upsert", result)
	return res, nil
}

func upsertRecord(ctx context.Context, q executor, rec *model.PaymentRecord, meta []byte) (repository.UpsertResult, error) {
	const insert = `
INSERT INTO payment_records (
  gateway_payment_id, payer_id, amount, currency, status, payment_method, status_detail, metadata, created_at, updated_at
) VALUES (
  $1,$2,$3::numeric,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (gateway_payment_id) DO NOTHING
RETURNING ` + recordCols

	stored, err := scanRecord(q.QueryRow(ctx, insert,
		rec.GatewayPaymentID, rec.PayerID, rec.Amount.String(), rec.Currency, string(rec.Status),
		rec.PaymentMethod, rec.StatusDetail, meta, rec.CreatedAt, rec.UpdatedAt))
	if err == nil {
		return repository.UpsertResult{Stored: stored}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return repository.UpsertResult{}, err
	}

	// Conflict: the row exists. Lock it and read the status we are replacing.
	var prev string
	if err := q.QueryRow(ctx, `SELECT status FROM payment_records WHERE gateway_payment_id=$1 FOR UPDATE`, rec.GatewayPaymentID).Scan(&prev); err != nil {
		return repository.UpsertResult{}, err
	}

	const update = `
UPDATE payment_records SET
  payer_id=$2, amount=$3::numeric, currency=$4, status=$5, payment_method=$6, status_detail=$7, metadata=$8, updated_at=$9
WHERE gateway_payment_id=$1
  AND (status='pending' OR status=$5)
RETURNING ` + recordCols

	stored, err = scanRecord(q.QueryRow(ctx, update,
		rec.GatewayPaymentID, rec.PayerID, rec.Amount.String(), rec.Currency, string(rec.Status),
		rec.PaymentMethod, rec.StatusDetail, meta, rec.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		// terminal and different: keep the stored row
		stored, err = scanRecord(q.QueryRow(ctx, `SELECT `+recordCols+` FROM payment_records WHERE gateway_payment_id=$1`, rec.GatewayPaymentID))
	}
	if err != nil {
		return repository.UpsertResult{}, err
	}
	return repository.UpsertResult{Previous: model.PaymentStatus(prev), Stored: stored}, nil
}

func (r *paymentRecordRepo) MarkFirstApproved(ctx context.Context, tx repository.Tx, gatewayPaymentID string, at time.Time) (bool, error) {
	const q = `
UPDATE payment_records
   SET first_approved_at = $2,
       updated_at = $2
 WHERE gateway_payment_id = $1
   AND status = 'approved'
   AND first_approved_at IS NULL`

	cmd, err := execSQL(ctx, r.pool, tx, q, gatewayPaymentID, at)
	if err != nil {
		metrics.IncLedgerWrite("mark_first_approved", "error")
		return false, opErr(err)
	}
	won := cmd.RowsAffected() == 1
	if won {
		metrics.IncLedgerWrite("mark_first_approved", "won")
	} else {
		metrics.IncLedgerWrite("mark_first_approved", "lost")
	}
	return won, nil
}

func (r *paymentRecordRepo) FindByID(ctx context.Context, tx repository.Tx, gatewayPaymentID string) (*model.PaymentRecord, error) {
	q := `SELECT ` + recordCols + ` FROM payment_records WHERE gateway_payment_id=$1`
	if isLive(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPaymentNotFound, gatewayPaymentID)
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return rec, nil
}

func (r *paymentRecordRepo) ListApprovedBefore(ctx context.Context, tx repository.Tx, since, before time.Time, limit int) ([]*model.PaymentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + recordCols + ` FROM payment_records
 WHERE status='approved' AND first_approved_at >= $1 AND first_approved_at < $2
 ORDER BY first_approved_at ASC LIMIT $3`
	rows, err := queryRows(ctx, r.pool, tx, q, since, before, limit)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()

	var out []*model.PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*model.PaymentRecord, error) {
	var (
		rec    model.PaymentRecord
		amount string
		status string
		meta   []byte
	)
	if err := row.Scan(&rec.GatewayPaymentID, &rec.PayerID, &amount, &rec.Currency, &status,
		&rec.PaymentMethod, &rec.StatusDetail, &meta, &rec.FirstApprovedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amount, err)
	}
	rec.Amount = d
	rec.Status = model.PaymentStatus(status)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
	}
	return &rec, nil
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
