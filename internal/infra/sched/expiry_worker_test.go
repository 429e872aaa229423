//go:build !integration

package sched_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"membership-payments/internal/domain/model"
	"membership-payments/internal/infra/db/memory"
	"membership-payments/internal/infra/sched"
	"membership-payments/internal/usecase"
)

func TestExpiryWorker_Tick(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	profiles := memory.NewProfileStore()

	seed := func(id string, expires time.Time) {
		p, _ := model.NewProfile(id, id+"@example.com")
		p.MembershipStatus = model.MembershipStatusActive
		p.MembershipExpiresAt = &expires
		_ = profiles.Save(ctx, nil, p)
	}
	seed("lapsed", time.Now().Add(-time.Hour))
	seed("current", time.Now().Add(time.Hour))

	membership := usecase.NewMembershipUseCase(profiles, memory.NewPaymentRecordStore(), memory.NewTxManager(), 0, &logger)
	w := sched.NewExpiryWorker(time.Minute, membership, &logger)

	if n := w.Tick(ctx); n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	if p, _ := profiles.FindByID(ctx, nil, "lapsed"); p.MembershipStatus != model.MembershipStatusInactive {
		t.Fatalf("lapsed status = %s", p.MembershipStatus)
	}
	if p, _ := profiles.FindByID(ctx, nil, "current"); p.MembershipStatus != model.MembershipStatusActive {
		t.Fatalf("current status = %s", p.MembershipStatus)
	}
	if n := w.Tick(ctx); n != 0 {
		t.Fatalf("second tick expired %d", n)
	}
}
