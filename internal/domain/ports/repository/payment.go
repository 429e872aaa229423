package repository

import (
	"context"
	"time"

	"membership-payments/internal/domain/model"
)

// -----------------------------
// Ledger (payment records)
// -----------------------------

// UpsertResult describes what an upsert did to the stored record.
type UpsertResult struct {
	Previous model.PaymentStatus // empty when the record was created by this call
	Stored   *model.PaymentRecord
}

// Created reports whether the upsert inserted a new record.
func (r UpsertResult) Created() bool { return r.Previous == "" }

// Changed reports whether the stored status differs from the one before the call.
func (r UpsertResult) Changed() bool { return r.Previous != r.Stored.Status }

type PaymentRecordRepository interface {
	// Upsert inserts or updates the record atomically. A stored approved/rejected
	// status is never replaced by a different one; the stored row is returned.
	Upsert(ctx context.Context, tx Tx, rec *model.PaymentRecord) (UpsertResult, error)
	// MarkFirstApproved sets first_approved_at when it is still NULL and the record is
	// approved. It returns true only for the single caller that performed the write.
	MarkFirstApproved(ctx context.Context, tx Tx, gatewayPaymentID string, at time.Time) (bool, error)
	FindByID(ctx context.Context, tx Tx, gatewayPaymentID string) (*model.PaymentRecord, error)
	// ListApprovedBefore returns approved records first approved in [since, before).
	ListApprovedBefore(ctx context.Context, tx Tx, since, before time.Time, limit int) ([]*model.PaymentRecord, error)
}
