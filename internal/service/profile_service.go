package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/repository"
)

type ProfileService interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	EnsureProfile(ctx context.Context, id, role string) error
	SetRole(ctx context.Context, id, role string) error
}

type profileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{
		profileRepo: profileRepo,
	}
}

func (s *profileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if id == "" {
		return nil, errors.New("profile ID cannot be empty")
	}

	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

func (s *profileService) EnsureProfile(ctx context.Context, id, role string) error {
	if id == "" {
		return errors.New("profile ID cannot be empty")
	}
	if !models.IsValidRole(role) {
		return fmt.Errorf("%w: invalid role %q", ErrValidationFailed, role)
	}

	profile := &models.Profile{
		ID:   id,
		Role: role,
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}

	return nil
}

func (s *profileService) SetRole(ctx context.Context, id, role string) error {
	if id == "" {
		return errors.New("profile ID cannot be empty")
	}
	if !models.IsValidRole(role) {
		return fmt.Errorf("%w: invalid role %q", ErrValidationFailed, role)
	}

	if err := s.profileRepo.SetRole(ctx, id, role); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("failed to set role: %w", err)
	}

	return nil
}
