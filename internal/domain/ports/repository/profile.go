package repository

import (
	"context"
	"time"

	"membership-payments/internal/domain/model"
)

// -----------------------------
// Profiles (external collaborator)
// -----------------------------

type ProfileRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Profile) error
	// FindByID locks the row for update when tx is a live transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Profile, error)
	FindExtension(ctx context.Context, tx Tx, paymentID string) (*model.MembershipExtension, error)
	SaveExtension(ctx context.Context, tx Tx, ext *model.MembershipExtension) error
	// DeactivateExpired flips active memberships whose expiry is at or before now.
	DeactivateExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
}
