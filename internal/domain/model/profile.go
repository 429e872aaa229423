package model

import (
	"time"

	"membership-payments/internal/domain"
)

type MembershipStatus string

const (
	MembershipStatusActive   MembershipStatus = "active"
	MembershipStatusInactive MembershipStatus = "inactive"
)

// DefaultMembershipPeriod is how far one approved payment pushes the expiry.
const DefaultMembershipPeriod = 30 * 24 * time.Hour

// Profile is the part of the user profile this service reads and mutates.
type Profile struct {
	ID                  string
	Email               string
	MembershipStatus    MembershipStatus
	MembershipExpiresAt *time.Time
	UpdatedAt           time.Time
}

func NewProfile(id, email string) (*Profile, error) {
	if id == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Profile{
		ID:               id,
		Email:            email,
		MembershipStatus: MembershipStatusInactive,
		UpdatedAt:        time.Now(),
	}, nil
}

// MembershipExtension is one applied extension, unique per gateway payment id.
type MembershipExtension struct {
	PaymentID         string
	PayerID           string
	PreviousExpiresAt *time.Time
	NewExpiresAt      time.Time
	AppliedAt         time.Time
}

// Extend returns the new expiry: max(now, current expiry) + period.
func (p *Profile) Extend(now time.Time, period time.Duration) time.Time {
	base := now
	if p.MembershipExpiresAt != nil && p.MembershipExpiresAt.After(now) {
		base = *p.MembershipExpiresAt
	}
	return base.Add(period)
}

// ApplyExtension mutates the profile and returns the extension row to persist.
func (p *Profile) ApplyExtension(paymentID string, now time.Time, period time.Duration) *MembershipExtension {
	var prev *time.Time
	if p.MembershipExpiresAt != nil {
		t := *p.MembershipExpiresAt
		prev = &t
	}
	next := p.Extend(now, period)
	p.MembershipExpiresAt = &next
	p.MembershipStatus = MembershipStatusActive
	p.UpdatedAt = now
	return &MembershipExtension{
		PaymentID:         paymentID,
		PayerID:           p.ID,
		PreviousExpiresAt: prev,
		NewExpiresAt:      next,
		AppliedAt:         now,
	}
}
