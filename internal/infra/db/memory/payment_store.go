// Package memory holds process-local stores used when no database is configured
// and by tests. They honour the same atomicity rules as the Postgres repositories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
)

var _ repository.PaymentRecordRepository = (*PaymentRecordStore)(nil)

type PaymentRecordStore struct {
	mu   sync.Mutex
	data map[string]*model.PaymentRecord
}

func NewPaymentRecordStore() *PaymentRecordStore {
	return &PaymentRecordStore{data: map[string]*model.PaymentRecord{}}
}

func (s *PaymentRecordStore) Upsert(ctx context.Context, tx repository.Tx, rec *model.PaymentRecord) (repository.UpsertResult, error) {
	if rec == nil || rec.GatewayPaymentID == "" {
		return repository.UpsertResult{}, domain.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return repository.UpsertResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[rec.GatewayPaymentID]
	if !ok {
		stored := cloneRecord(rec)
		stored.FirstApprovedAt = nil
		s.data[rec.GatewayPaymentID] = stored
		return repository.UpsertResult{Stored: cloneRecord(stored)}, nil
	}

	prev := cur.Status
	// terminal statuses are sticky; a differing notification leaves the row untouched
	if cur.Status == model.PaymentStatusPending || cur.Status == rec.Status {
		next := cloneRecord(rec)
		next.CreatedAt = cur.CreatedAt
		next.FirstApprovedAt = cur.FirstApprovedAt
		s.data[rec.GatewayPaymentID] = next
		cur = next
	}
	return repository.UpsertResult{Previous: prev, Stored: cloneRecord(cur)}, nil
}

func (s *PaymentRecordStore) MarkFirstApproved(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[id]
	if !ok || cur.Status != model.PaymentStatusApproved || cur.FirstApprovedAt != nil {
		return false, nil
	}
	t := at
	cur.FirstApprovedAt = &t
	return true, nil
}

func (s *PaymentRecordStore) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentNotFound, id)
	}
	return cloneRecord(cur), nil
}

func (s *PaymentRecordStore) ListApprovedBefore(ctx context.Context, tx repository.Tx, since, before time.Time, limit int) ([]*model.PaymentRecord, error) {
	s.mu.Lock()
	var out []*model.PaymentRecord
	for _, r := range s.data {
		if r.Status != model.PaymentStatusApproved || r.FirstApprovedAt == nil {
			continue
		}
		at := *r.FirstApprovedAt
		if at.Before(since) || !at.Before(before) {
			continue
		}
		out = append(out, cloneRecord(r))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FirstApprovedAt.Before(*out[j].FirstApprovedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRecord(r *model.PaymentRecord) *model.PaymentRecord {
	cp := *r
	if r.Metadata != nil {
		cp.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	if r.FirstApprovedAt != nil {
		t := *r.FirstApprovedAt
		cp.FirstApprovedAt = &t
	}
	return &cp
}
