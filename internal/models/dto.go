package models

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var unitNumberPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z-]{0,19}$`)

func UnitNumberValidator(fl validator.FieldLevel) bool {
	return unitNumberPattern.MatchString(fl.Field().String())
}

type CreateBusRequest struct {
	UnitNumber string `json:"unit_number" validate:"required,unit_number"`
	Route      string `json:"route" validate:"omitempty,max=100"`
	Capacity   int    `json:"capacity" validate:"required,min=1,max=150"`
	Schedule   string `json:"schedule" validate:"omitempty,max=200"`
}

// ToBus builds a freshly registered bus: unbound and available.
func (r *CreateBusRequest) ToBus() *Bus {
	return &Bus{
		ID:          primitive.NewObjectID(),
		UnitNumber:  r.UnitNumber,
		Route:       r.Route,
		Capacity:    r.Capacity,
		Schedule:    r.Schedule,
		IsAvailable: true,
		DriverID:    nil,
	}
}

func (r *CreateBusRequest) Validate() error {
	validate := validator.New()
	validate.RegisterValidation("unit_number", UnitNumberValidator)
	return validate.Struct(r)
}

// UpdateBusRequest edits descriptive fields only. Assignment state never
// changes through an edit; that goes through the assignment endpoints.
type UpdateBusRequest struct {
	UnitNumber *string `json:"unit_number,omitempty" validate:"omitempty,unit_number"`
	Route      *string `json:"route,omitempty" validate:"omitempty,max=100"`
	Capacity   *int    `json:"capacity,omitempty" validate:"omitempty,min=1,max=150"`
	Schedule   *string `json:"schedule,omitempty" validate:"omitempty,max=200"`
}

func (r *UpdateBusRequest) Validate() error {
	validate := validator.New()
	validate.RegisterValidation("unit_number", UnitNumberValidator)
	return validate.Struct(r)
}

type ReportLocationRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

func (r *ReportLocationRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin driver"`
}

func (r *SetRoleRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

type BusResponse struct {
	ID          string  `json:"id"`
	UnitNumber  string  `json:"unit_number"`
	Route       string  `json:"route,omitempty"`
	Capacity    int     `json:"capacity"`
	Schedule    string  `json:"schedule,omitempty"`
	IsAvailable bool    `json:"is_available"`
	DriverID    *string `json:"driver_id"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func NewBusResponse(bus *Bus) *BusResponse {
	return &BusResponse{
		ID:          bus.ID.Hex(),
		UnitNumber:  bus.UnitNumber,
		Route:       bus.Route,
		Capacity:    bus.Capacity,
		Schedule:    bus.Schedule,
		IsAvailable: bus.IsAvailable,
		DriverID:    bus.DriverID,
		CreatedAt:   bus.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   bus.UpdatedAt.Format(time.RFC3339),
	}
}

type LocationResponse struct {
	ID         string  `json:"id"`
	BusID      string  `json:"bus_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RecordedAt string  `json:"recorded_at"`
}

func NewLocationResponse(loc *BusLocation) *LocationResponse {
	return &LocationResponse{
		ID:         loc.ID.Hex(),
		BusID:      loc.BusID.Hex(),
		Lat:        loc.Lat,
		Lng:        loc.Lng,
		RecordedAt: loc.RecordedAt.Format(time.RFC3339),
	}
}

// BusStatus joins a bus with its last known position and the activity
// classification for map and dashboard views.
type BusStatus struct {
	Bus          *BusResponse      `json:"bus"`
	LastLocation *LocationResponse `json:"last_location,omitempty"`
	IsActive     bool              `json:"is_active"`
}

type SnapshotResponse struct {
	Buses     []BusStatus `json:"buses"`
	Total     int         `json:"total"`
	Assigned  int         `json:"assigned"`
	Available int         `json:"available"`
	Active    int         `json:"active"`
	Timestamp string      `json:"timestamp"`
}

type ProfileResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func NewProfileResponse(profile *Profile) *ProfileResponse {
	return &ProfileResponse{
		ID:        profile.ID,
		Role:      profile.Role,
		CreatedAt: profile.CreatedAt.Format(time.RFC3339),
		UpdatedAt: profile.UpdatedAt.Format(time.RFC3339),
	}
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	Code    int      `json:"code,omitempty"`
}

type ListBusesResponse struct {
	Data       []BusResponse `json:"data"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}
