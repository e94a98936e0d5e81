package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/repository"
)

// AssignmentService maintains the exclusivity invariant: at most one bus
// bound per driver, availability always in lockstep with the binding. The
// atomicity itself lives in the repository's conditional update; this layer
// adds role checks, error mapping and change notification.
type AssignmentService interface {
	AssignBus(ctx context.Context, driverID, busID string) (*models.Bus, error)
	ReleaseBus(ctx context.Context, busID string) error
	ReleaseAll(ctx context.Context) (int64, error)
	BusForDriver(ctx context.Context, driverID string) (*models.Bus, error)
}

type assignmentService struct {
	busRepo     repository.BusRepository
	profileRepo repository.ProfileRepository
	notifier    Notifier
}

func NewAssignmentService(busRepo repository.BusRepository, profileRepo repository.ProfileRepository, notifier Notifier) AssignmentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &assignmentService{
		busRepo:     busRepo,
		profileRepo: profileRepo,
		notifier:    notifier,
	}
}

func (s *assignmentService) AssignBus(ctx context.Context, driverID, busID string) (*models.Bus, error) {
	if driverID == "" {
		return nil, errors.New("driver ID cannot be empty")
	}
	if busID == "" {
		return nil, ErrInvalidID
	}

	profile, err := s.profileRepo.FindByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to look up driver profile: %w", err)
	}

	if profile.Role != models.RoleDriver {
		return nil, ErrNotAuthorized
	}

	// Single atomic claim-and-release at the store. There is deliberately
	// no read-then-write path here: a caller-side check would race.
	released, err := s.busRepo.AssignToDriver(ctx, busID, driverID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBusNotFound):
			return nil, ErrBusNotFound
		case errors.Is(err, repository.ErrBusTaken):
			return nil, ErrBusTaken
		case errors.Is(err, repository.ErrInvalidID):
			return nil, ErrInvalidID
		default:
			return nil, fmt.Errorf("failed to assign bus: %w", err)
		}
	}

	// The implicitly released bus changed too; clients keyed on bus_id
	// need both transitions.
	for _, releasedID := range released {
		s.notifier.PublishBusChanged(releasedID)
	}
	s.notifier.PublishBusChanged(busID)

	bus, err := s.busRepo.FindByID(ctx, busID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assigned bus: %w", err)
	}

	return bus, nil
}

func (s *assignmentService) ReleaseBus(ctx context.Context, busID string) error {
	if busID == "" {
		return ErrInvalidID
	}

	// Idempotent: releasing an already-unbound bus succeeds. Only a
	// missing bus is an error.
	if err := s.busRepo.Release(ctx, busID); err != nil {
		switch {
		case errors.Is(err, repository.ErrBusNotFound):
			return ErrBusNotFound
		case errors.Is(err, repository.ErrInvalidID):
			return ErrInvalidID
		default:
			return fmt.Errorf("failed to release bus: %w", err)
		}
	}

	s.notifier.PublishBusChanged(busID)
	return nil
}

func (s *assignmentService) ReleaseAll(ctx context.Context) (int64, error) {
	released, err := s.busRepo.ReleaseAll(ctx)
	if released > 0 {
		s.notifier.PublishBusChanged("")
	}
	if err != nil {
		var partial *repository.PartialReleaseError
		if errors.As(err, &partial) {
			return released, fmt.Errorf("%w: released %d, %d still assigned: %v",
				ErrPartialRelease, partial.Released, partial.Remaining, partial.Cause)
		}
		return released, fmt.Errorf("failed to release all buses: %w", err)
	}
	return released, nil
}

func (s *assignmentService) BusForDriver(ctx context.Context, driverID string) (*models.Bus, error) {
	if driverID == "" {
		return nil, errors.New("driver ID cannot be empty")
	}

	bus, err := s.busRepo.FindByDriver(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return nil, ErrBusNotFound
		}
		return nil, fmt.Errorf("failed to find bus for driver: %w", err)
	}

	return bus, nil
}
