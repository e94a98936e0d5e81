package service

import (
	"errors"
)

var (
	ErrBusNotFound      = errors.New("bus not found")
	ErrBusTaken         = errors.New("bus is assigned to another driver")
	ErrUnitNumberTaken  = errors.New("unit number already in use")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrNotAuthorized    = errors.New("caller role is not sufficient")
	ErrInvalidID        = errors.New("invalid bus ID")
	ErrValidationFailed = errors.New("validation failed")
	ErrPartialRelease   = errors.New("bulk release partially applied")
)
