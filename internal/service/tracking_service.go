package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rutabus/fleet-service/internal/liveness"
	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/repository"
)

// TrackingService ingests position reports and builds the joined
// bus-plus-last-position views the map and dashboard consume. All activity
// classification goes through liveness.Classify so the on-demand path and
// the monitor's timer path share one rule.
type TrackingService interface {
	ReportLocation(ctx context.Context, busID string, req *models.ReportLocationRequest) (*models.BusLocation, error)
	Path(ctx context.Context, busID string, since time.Time) ([]models.BusLocation, error)
	LastKnown(ctx context.Context, busID string, now time.Time) (*models.BusStatus, error)
	Snapshot(ctx context.Context, now time.Time) (*models.SnapshotResponse, error)
	ActiveBusIDs(ctx context.Context, now time.Time) ([]string, error)
}

type trackingService struct {
	busRepo      repository.BusRepository
	locationRepo repository.LocationRepository
	notifier     Notifier

	recencyWindow time.Duration
}

func NewTrackingService(busRepo repository.BusRepository, locationRepo repository.LocationRepository, notifier Notifier, recencyWindow time.Duration) TrackingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &trackingService{
		busRepo:       busRepo,
		locationRepo:  locationRepo,
		notifier:      notifier,
		recencyWindow: recencyWindow,
	}
}

func (s *trackingService) ReportLocation(ctx context.Context, busID string, req *models.ReportLocationRequest) (*models.BusLocation, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	bus, err := s.busRepo.FindByID(ctx, busID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return nil, ErrBusNotFound
		}
		if errors.Is(err, repository.ErrInvalidID) {
			return nil, ErrInvalidID
		}
		return nil, fmt.Errorf("failed to find bus: %w", err)
	}

	location := &models.BusLocation{
		ID:    primitive.NewObjectID(),
		BusID: bus.ID,
		Lat:   req.Lat,
		Lng:   req.Lng,
		// RecordedAt is server-assigned on insert.
	}

	if _, err := s.locationRepo.Append(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to record location: %w", err)
	}

	s.notifier.PublishLocationCreated(busID)
	return location, nil
}

func (s *trackingService) Path(ctx context.Context, busID string, since time.Time) ([]models.BusLocation, error) {
	if _, err := s.busRepo.FindByID(ctx, busID); err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return nil, ErrBusNotFound
		}
		if errors.Is(err, repository.ErrInvalidID) {
			return nil, ErrInvalidID
		}
		return nil, fmt.Errorf("failed to find bus: %w", err)
	}

	locations, err := s.locationRepo.FindSince(ctx, busID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load path: %w", err)
	}

	return locations, nil
}

// LastKnown builds the single-bus view: last position plus activity.
func (s *trackingService) LastKnown(ctx context.Context, busID string, now time.Time) (*models.BusStatus, error) {
	bus, err := s.busRepo.FindByID(ctx, busID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return nil, ErrBusNotFound
		}
		if errors.Is(err, repository.ErrInvalidID) {
			return nil, ErrInvalidID
		}
		return nil, fmt.Errorf("failed to find bus: %w", err)
	}

	status := &models.BusStatus{
		Bus: models.NewBusResponse(bus),
	}

	last, err := s.locationRepo.FindLast(ctx, busID)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			// Never reported: unbound from any position history.
			return status, nil
		}
		return nil, fmt.Errorf("failed to find last location: %w", err)
	}

	status.LastLocation = models.NewLocationResponse(last)
	status.IsActive = liveness.Classify(bus.Assigned(), last.RecordedAt, true, now, s.recencyWindow)

	return status, nil
}

func (s *trackingService) Snapshot(ctx context.Context, now time.Time) (*models.SnapshotResponse, error) {
	buses, err := s.busRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}

	latest, err := s.locationRepo.FindLastPerBus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load last locations: %w", err)
	}

	snapshot := &models.SnapshotResponse{
		Buses:     make([]models.BusStatus, 0, len(buses)),
		Total:     len(buses),
		Timestamp: now.Format(time.RFC3339),
	}

	for i := range buses {
		bus := &buses[i]

		last, hasReport := latest[bus.ID.Hex()]
		isActive := liveness.Classify(bus.Assigned(), last.RecordedAt, hasReport, now, s.recencyWindow)

		status := models.BusStatus{
			Bus:      models.NewBusResponse(bus),
			IsActive: isActive,
		}
		if hasReport {
			status.LastLocation = models.NewLocationResponse(&last)
		}

		snapshot.Buses = append(snapshot.Buses, status)

		if bus.Assigned() {
			snapshot.Assigned++
		} else {
			snapshot.Available++
		}
		if isActive {
			snapshot.Active++
		}
	}

	return snapshot, nil
}

// ActiveBusIDs feeds the liveness monitor.
func (s *trackingService) ActiveBusIDs(ctx context.Context, now time.Time) ([]string, error) {
	snapshot, err := s.Snapshot(ctx, now)
	if err != nil {
		return nil, err
	}

	var active []string
	for _, status := range snapshot.Buses {
		if status.IsActive {
			active = append(active, status.Bus.ID)
		}
	}

	return active, nil
}
