package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bus is one trackable unit. DriverID is nil while the bus is unassigned;
// IsAvailable must always equal (DriverID == nil), every write keeps the
// two fields in lockstep.
type Bus struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	UnitNumber  string             `json:"unit_number" bson:"unit_number"`
	Route       string             `json:"route,omitempty" bson:"route,omitempty"`
	Capacity    int                `json:"capacity" bson:"capacity"`
	Schedule    string             `json:"schedule,omitempty" bson:"schedule,omitempty"`
	IsAvailable bool               `json:"is_available" bson:"is_available"`
	DriverID    *string            `json:"driver_id" bson:"driver_id"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Assigned reports whether the bus is bound to a driver.
func (b *Bus) Assigned() bool {
	return b.DriverID != nil
}

// Profile ties an auth identity to a role. The ID is the opaque subject
// from the auth provider, not a store-generated id.
type Profile struct {
	ID        string    `json:"id" bson:"_id"`
	Role      string    `json:"role" bson:"role"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

const (
	RoleAdmin  = "admin"
	RoleDriver = "driver"
)

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDriver:
		return true
	default:
		return false
	}
}

// BusLocation is one append-only position report. Reports are never updated
// or deleted; history accumulates per bus.
type BusLocation struct {
	ID         primitive.ObjectID `json:"id" bson:"_id"`
	BusID      primitive.ObjectID `json:"bus_id" bson:"bus_id"`
	Lat        float64            `json:"lat" bson:"lat"`
	Lng        float64            `json:"lng" bson:"lng"`
	RecordedAt time.Time          `json:"recorded_at" bson:"recorded_at"`
}
