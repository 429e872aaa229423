package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if p == nil || p.ID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO profiles (id, email, membership_status, membership_expires_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
  email=$2, membership_status=$3, membership_expires_at=$4, updated_at=$5;`

	if _, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Email, string(p.MembershipStatus), p.MembershipExpiresAt, p.UpdatedAt); err != nil {
		return opErr(err)
	}
	return nil
}

func (r *profileRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Profile, error) {
	q := `SELECT id, email, membership_status, membership_expires_at, updated_at FROM profiles WHERE id=$1`
	if isLive(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var (
		p      model.Profile
		status string
	)
	if err := row.Scan(&p.ID, &p.Email, &status, &p.MembershipExpiresAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.MembershipStatus = model.MembershipStatus(status)
	return &p, nil
}

func (r *profileRepo) FindExtension(ctx context.Context, tx repository.Tx, paymentID string) (*model.MembershipExtension, error) {
	const q = `
SELECT payment_id, payer_id, previous_expires_at, new_expires_at, applied_at
  FROM membership_extensions WHERE payment_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}

	var ext model.MembershipExtension
	if err := row.Scan(&ext.PaymentID, &ext.PayerID, &ext.PreviousExpiresAt, &ext.NewExpiresAt, &ext.AppliedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &ext, nil
}

// SaveExtension relies on the primary key on payment_id: a second insert for
// the same payment fails instead of extending twice.
func (r *profileRepo) SaveExtension(ctx context.Context, tx repository.Tx, ext *model.MembershipExtension) error {
	if ext == nil || ext.PaymentID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO membership_extensions (payment_id, payer_id, previous_expires_at, new_expires_at, applied_at)
VALUES ($1,$2,$3,$4,$5);`

	if _, err := execSQL(ctx, r.pool, tx, q, ext.PaymentID, ext.PayerID, ext.PreviousExpiresAt, ext.NewExpiresAt, ext.AppliedAt); err != nil {
		return opErr(err)
	}
	return nil
}

func (r *profileRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE profiles SET membership_status='inactive', updated_at=$1
 WHERE membership_status='active' AND membership_expires_at <= $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, opErr(err)
	}
	return int(tag.RowsAffected()), nil
}
