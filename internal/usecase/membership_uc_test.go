//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
	"membership-payments/internal/infra/db/memory"
	"membership-payments/internal/usecase"
)

func TestMembershipUseCase_ExtendMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("same payment twice extends once", func(t *testing.T) {
		profiles := NewMockProfileRepo()
		seedProfile(profiles, "u1", nil)
		uc := usecase.NewMembershipUseCase(profiles, NewMockLedger(), memory.NewTxManager(), 0, newTestLogger())

		first, err := uc.ExtendMembership(ctx, "u1", "pay-1")
		if err != nil {
			t.Fatalf("first: %v", err)
		}
		second, err := uc.ExtendMembership(ctx, "u1", "pay-1")
		if err != nil {
			t.Fatalf("second: %v", err)
		}
		if !first.NewExpiresAt.Equal(second.NewExpiresAt) {
			t.Fatalf("second call moved expiry: %s -> %s", first.NewExpiresAt, second.NewExpiresAt)
		}
		if profiles.Extensions() != 1 {
			t.Fatalf("expected one extension, got %d", profiles.Extensions())
		}
	})

	t.Run("distinct payments extend cumulatively", func(t *testing.T) {
		profiles := NewMockProfileRepo()
		seedProfile(profiles, "u1", nil)
		uc := usecase.NewMembershipUseCase(profiles, NewMockLedger(), memory.NewTxManager(), 0, newTestLogger())

		a, err := uc.ExtendMembership(ctx, "u1", "pay-1")
		if err != nil {
			t.Fatalf("first: %v", err)
		}
		b, err := uc.ExtendMembership(ctx, "u1", "pay-2")
		if err != nil {
			t.Fatalf("second: %v", err)
		}
		if got := b.NewExpiresAt.Sub(a.NewExpiresAt); got != model.DefaultMembershipPeriod {
			t.Fatalf("expected a further %s, got %s", model.DefaultMembershipPeriod, got)
		}
		if b.PreviousExpiresAt == nil || !b.PreviousExpiresAt.Equal(a.NewExpiresAt) {
			t.Fatalf("previous expiry not recorded: %+v", b)
		}
	})

	t.Run("expired membership restarts from now", func(t *testing.T) {
		profiles := NewMockProfileRepo()
		past := time.Now().Add(-90 * 24 * time.Hour)
		seedProfile(profiles, "u1", &past)
		uc := usecase.NewMembershipUseCase(profiles, NewMockLedger(), memory.NewTxManager(), 7*24*time.Hour, newTestLogger())

		ext, err := uc.ExtendMembership(ctx, "u1", "pay-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertNear(t, ext.NewExpiresAt, time.Now().Add(7*24*time.Hour))
	})

	t.Run("unknown payer is an apply error", func(t *testing.T) {
		uc := usecase.NewMembershipUseCase(NewMockProfileRepo(), NewMockLedger(), memory.NewTxManager(), 0, newTestLogger())
		_, err := uc.ExtendMembership(ctx, "nobody", "pay-1")
		var ae *domain.ApplyError
		if !errors.As(err, &ae) || !errors.Is(err, domain.ErrProfileNotFound) {
			t.Fatalf("expected ApplyError wrapping ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("write failure is an apply error", func(t *testing.T) {
		profiles := NewMockProfileRepo()
		seedProfile(profiles, "u1", nil)
		profiles.SaveFunc = func(ctx context.Context, tx repository.Tx, p *model.Profile) error {
			return domain.ErrOperationFailed
		}
		uc := usecase.NewMembershipUseCase(profiles, NewMockLedger(), memory.NewTxManager(), 0, newTestLogger())

		_, err := uc.ExtendMembership(ctx, "u1", "pay-1")
		var ae *domain.ApplyError
		if !errors.As(err, &ae) || ae.PaymentID != "pay-1" {
			t.Fatalf("expected ApplyError, got %v", err)
		}
		if profiles.Extensions() != 0 {
			t.Fatal("extension recorded despite failed profile write")
		}
	})
}

func TestMembershipUseCase_ListGaps(t *testing.T) {
	ctx := context.Background()
	profiles := NewMockProfileRepo()
	ledger := NewMockLedger()
	seedProfile(profiles, "u1", nil)
	uc := usecase.NewMembershipUseCase(profiles, ledger, memory.NewTxManager(), 0, newTestLogger())

	approvedAt := time.Now().Add(-time.Hour)
	for _, id := range []string{"applied", "gap"} {
		det := approvedDetail(id, "u1", 100)
		_, _ = ledger.Upsert(ctx, nil, model.NewPaymentRecord(det, det.Status, approvedAt))
		_, _ = ledger.MarkFirstApproved(ctx, nil, id, approvedAt)
	}
	if _, err := uc.ExtendMembership(ctx, "u1", "applied"); err != nil {
		t.Fatalf("ExtendMembership: %v", err)
	}

	gaps, err := uc.ListGaps(ctx, time.Time{}, time.Now(), 100)
	if err != nil {
		t.Fatalf("ListGaps: %v", err)
	}
	if len(gaps) != 1 || gaps[0].GatewayPaymentID != "gap" {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}

	gaps, _ = uc.ListGaps(ctx, time.Time{}, approvedAt.Add(-time.Minute), 100)
	if len(gaps) != 0 {
		t.Fatalf("records approved after the cutoff must be excluded: %+v", gaps)
	}
}
