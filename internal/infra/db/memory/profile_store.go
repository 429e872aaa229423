package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*ProfileStore)(nil)

type ProfileStore struct {
	mu         sync.RWMutex
	profiles   map[string]*model.Profile
	extensions map[string]*model.MembershipExtension // by payment id
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles:   map[string]*model.Profile{},
		extensions: map[string]*model.MembershipExtension{},
	}
}

func (s *ProfileStore) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if p == nil || p.ID == "" {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = cloneProfile(p)
	return nil
}

// FindByID does not lock; TxManager serializes transactions instead.
func (s *ProfileStore) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, id)
	}
	return cloneProfile(p), nil
}

func (s *ProfileStore) FindExtension(ctx context.Context, tx repository.Tx, paymentID string) (*model.MembershipExtension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ext, ok := s.extensions[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ext
	return &cp, nil
}

func (s *ProfileStore) SaveExtension(ctx context.Context, tx repository.Tx, ext *model.MembershipExtension) error {
	if ext == nil || ext.PaymentID == "" {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.extensions[ext.PaymentID]; dup {
		return fmt.Errorf("%w: extension for payment %s exists", domain.ErrOperationFailed, ext.PaymentID)
	}
	cp := *ext
	s.extensions[ext.PaymentID] = &cp
	return nil
}

func (s *ProfileStore) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.profiles {
		if p.MembershipStatus != model.MembershipStatusActive || p.MembershipExpiresAt == nil || p.MembershipExpiresAt.After(now) {
			continue
		}
		p.MembershipStatus = model.MembershipStatusInactive
		p.UpdatedAt = now
		n++
	}
	return n, nil
}

// Extensions returns the number of applied extensions; used by tests and the dev seed.
func (s *ProfileStore) Extensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.extensions)
}

func cloneProfile(p *model.Profile) *model.Profile {
	cp := *p
	if p.MembershipExpiresAt != nil {
		t := *p.MembershipExpiresAt
		cp.MembershipExpiresAt = &t
	}
	return &cp
}
