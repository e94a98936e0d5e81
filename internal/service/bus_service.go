package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/repository"
)

type BusService interface {
	CreateBus(ctx context.Context, req *models.CreateBusRequest) (string, error)
	UpdateBus(ctx context.Context, id string, req *models.UpdateBusRequest) error
	GetBusByID(ctx context.Context, id string) (*models.Bus, error)
	ListBuses(ctx context.Context, page, pageSize int) (*PaginatedResponse, error)
	ListAvailableBuses(ctx context.Context) ([]models.Bus, error)
	DeleteBus(ctx context.Context, id string) error
}

type PaginatedResponse struct {
	Data       []models.Bus `json:"data"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalCount int64        `json:"total_count"`
	TotalPages int          `json:"total_pages"`
}

type busService struct {
	busRepo  repository.BusRepository
	notifier Notifier
}

func NewBusService(busRepo repository.BusRepository, notifier Notifier) BusService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &busService{
		busRepo:  busRepo,
		notifier: notifier,
	}
}

func (s *busService) CreateBus(ctx context.Context, req *models.CreateBusRequest) (string, error) {
	if req == nil {
		return "", errors.New("request cannot be nil")
	}

	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	bus := req.ToBus()

	busID, err := s.busRepo.Create(ctx, bus)
	if err != nil {
		if errors.Is(err, repository.ErrUnitNumberTaken) {
			return "", ErrUnitNumberTaken
		}
		return "", fmt.Errorf("failed to create bus: %w", err)
	}

	s.notifier.PublishBusChanged(busID)
	return busID, nil
}

func (s *busService) UpdateBus(ctx context.Context, id string, req *models.UpdateBusRequest) error {
	if id == "" {
		return ErrInvalidID
	}
	if req == nil {
		return errors.New("request cannot be nil")
	}

	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	existing, err := s.busRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return ErrBusNotFound
		}
		return fmt.Errorf("failed to find bus: %w", err)
	}

	if req.UnitNumber != nil {
		existing.UnitNumber = *req.UnitNumber
	}
	if req.Route != nil {
		existing.Route = *req.Route
	}
	if req.Capacity != nil {
		existing.Capacity = *req.Capacity
	}
	if req.Schedule != nil {
		existing.Schedule = *req.Schedule
	}

	if err := s.busRepo.Update(ctx, id, existing); err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return ErrBusNotFound
		}
		if errors.Is(err, repository.ErrUnitNumberTaken) {
			return ErrUnitNumberTaken
		}
		return fmt.Errorf("failed to update bus: %w", err)
	}

	s.notifier.PublishBusChanged(id)
	return nil
}

func (s *busService) GetBusByID(ctx context.Context, id string) (*models.Bus, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	bus, err := s.busRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return nil, ErrBusNotFound
		}
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}

	return bus, nil
}

func (s *busService) ListBuses(ctx context.Context, page, pageSize int) (*PaginatedResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	buses, totalCount, err := s.busRepo.FindAll(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(pageSize)))

	return &PaginatedResponse{
		Data:       buses,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}, nil
}

func (s *busService) ListAvailableBuses(ctx context.Context) ([]models.Bus, error) {
	buses, err := s.busRepo.FindAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list available buses: %w", err)
	}
	return buses, nil
}

func (s *busService) DeleteBus(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	if err := s.busRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBusNotFound) {
			return ErrBusNotFound
		}
		return fmt.Errorf("failed to delete bus: %w", err)
	}

	s.notifier.PublishBusChanged(id)
	return nil
}
