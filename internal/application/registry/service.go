// Package registry arbitrates subdomain availability and performs atomic assignment.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xlink-api/internal/domain"
	subdomainrules "github.com/xlink-api/internal/pkg/subdomain"
)

// SubdomainRepository is the storage contract the registry needs. The
// implementation must guarantee name uniqueness at the storage layer and
// report a lost claim race as domain.ErrConflict.
type SubdomainRepository interface {
	FindByName(ctx context.Context, name string) (*domain.SubdomainAssignment, error)
	FindByOwner(ctx context.Context, ownerID string) (*domain.SubdomainAssignment, error)
	Claim(ctx context.Context, a *domain.SubdomainAssignment, previousName string) error
	Deactivate(ctx context.Context, name, ownerID string) error
}

type Service interface {
	// CheckAvailability classifies a candidate name. requestingOwner may be
	// empty (anonymous check); when set, the owner's own current name counts
	// as available. Expected outcomes live in the returned value; the error
	// is non-nil only for storage failures.
	CheckAvailability(ctx context.Context, name, requestingOwner string) (domain.SubdomainCheck, error)

	// Assign claims the name for the owner, replacing any previous binding.
	// A failed check is returned as-is without mutating anything.
	Assign(ctx context.Context, ownerID, name string) (domain.SubdomainCheck, error)

	// Resolve returns the active binding for a tenant label.
	Resolve(ctx context.Context, label string) (*domain.SubdomainAssignment, error)

	// CurrentForOwner returns the owner's binding, if any.
	CurrentForOwner(ctx context.Context, ownerID string) (*domain.SubdomainAssignment, error)

	// Deactivate flips the owner's binding inactive without releasing the name.
	Deactivate(ctx context.Context, ownerID string) error
}

type ServiceDeps struct {
	SubdomainRepo SubdomainRepository
	Now           func() time.Time
}

type service struct {
	repo SubdomainRepository
	now  func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.SubdomainRepo, now: now}
}

func (s *service) CheckAvailability(ctx context.Context, name, requestingOwner string) (domain.SubdomainCheck, error) {
	normalized := subdomainrules.Normalize(name)

	if !subdomainrules.IsWellFormed(normalized) {
		return domain.SubdomainCheck{Available: false, Reason: domain.ReasonInvalidFormat, Name: normalized}, nil
	}
	if subdomainrules.IsReserved(normalized) {
		return domain.SubdomainCheck{Available: false, Reason: domain.ReasonReserved, Name: normalized}, nil
	}

	existing, err := s.repo.FindByName(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SubdomainCheck{Available: true, Reason: domain.ReasonOK, Name: normalized}, nil
		}
		return domain.SubdomainCheck{}, fmt.Errorf("look up subdomain %q: %w", normalized, err)
	}

	// Re-checking your own current name is an idempotent self-check.
	if requestingOwner != "" && existing.OwnerID == requestingOwner {
		return domain.SubdomainCheck{Available: true, Reason: domain.ReasonOK, Name: normalized}, nil
	}
	return domain.SubdomainCheck{Available: false, Reason: domain.ReasonTaken, Name: normalized}, nil
}

func (s *service) Assign(ctx context.Context, ownerID, name string) (domain.SubdomainCheck, error) {
	check, err := s.CheckAvailability(ctx, name, ownerID)
	if err != nil {
		return domain.SubdomainCheck{}, err
	}
	if !check.Available {
		return check, nil
	}

	previousName := ""
	if current, err := s.repo.FindByOwner(ctx, ownerID); err == nil {
		previousName = current.Name
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.SubdomainCheck{}, fmt.Errorf("look up current binding for owner %q: %w", ownerID, err)
	}

	assignment := &domain.SubdomainAssignment{
		Name:      check.Name,
		OwnerID:   ownerID,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Claim(ctx, assignment, previousName); err != nil {
		// A concurrent assignment won the race between check and write.
		// The storage-layer uniqueness constraint is the tie-breaker; report
		// taken instead of surfacing the conflict.
		if errors.Is(err, domain.ErrConflict) {
			return domain.SubdomainCheck{Available: false, Reason: domain.ReasonTaken, Name: check.Name}, nil
		}
		return domain.SubdomainCheck{}, fmt.Errorf("claim subdomain %q: %w", check.Name, err)
	}
	return domain.SubdomainCheck{Available: true, Reason: domain.ReasonOK, Name: check.Name}, nil
}

func (s *service) Resolve(ctx context.Context, label string) (*domain.SubdomainAssignment, error) {
	a, err := s.repo.FindByName(ctx, subdomainrules.Normalize(label))
	if err != nil {
		return nil, err
	}
	if !a.Active {
		return nil, fmt.Errorf("subdomain inactive: %w", domain.ErrNotFound)
	}
	return a, nil
}

func (s *service) CurrentForOwner(ctx context.Context, ownerID string) (*domain.SubdomainAssignment, error) {
	return s.repo.FindByOwner(ctx, ownerID)
}

func (s *service) Deactivate(ctx context.Context, ownerID string) error {
	current, err := s.repo.FindByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	return s.repo.Deactivate(ctx, current.Name, ownerID)
}
