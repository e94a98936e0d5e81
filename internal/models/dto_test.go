package models

import (
	"testing"
)

func TestCreateBusRequestValidate(t *testing.T) {
	valid := CreateBusRequest{
		UnitNumber: "A-101",
		Route:      "Downtown Loop",
		Capacity:   40,
		Schedule:   "06:00 - 22:00",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	cases := []struct {
		name string
		req  CreateBusRequest
	}{
		{"missing unit number", CreateBusRequest{Capacity: 40}},
		{"unit number with spaces", CreateBusRequest{UnitNumber: "A 101", Capacity: 40}},
		{"unit number too long", CreateBusRequest{UnitNumber: "123456789012345678901", Capacity: 40}},
		{"zero capacity", CreateBusRequest{UnitNumber: "A-101"}},
		{"capacity too large", CreateBusRequest{UnitNumber: "A-101", Capacity: 151}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestCreateBusRequestToBus(t *testing.T) {
	req := CreateBusRequest{
		UnitNumber: "A-101",
		Capacity:   40,
	}

	bus := req.ToBus()
	if bus.DriverID != nil {
		t.Fatalf("new bus must be unbound")
	}
	if !bus.IsAvailable {
		t.Fatalf("new bus must be available")
	}
	if bus.ID.IsZero() {
		t.Fatalf("new bus must get an id")
	}
}

func TestUpdateBusRequestValidate(t *testing.T) {
	route := "Route 5"
	if err := (&UpdateBusRequest{Route: &route}).Validate(); err != nil {
		t.Fatalf("expected valid partial update, got %v", err)
	}

	bad := "A 101"
	if err := (&UpdateBusRequest{UnitNumber: &bad}).Validate(); err == nil {
		t.Fatalf("expected validation error for unit number with spaces")
	}

	capacity := 0
	if err := (&UpdateBusRequest{Capacity: &capacity}).Validate(); err == nil {
		t.Fatalf("expected validation error for zero capacity")
	}
}

func TestReportLocationRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     ReportLocationRequest
		wantErr bool
	}{
		{"valid", ReportLocationRequest{Lat: -15.8402, Lng: -70.0219}, false},
		{"origin is valid", ReportLocationRequest{Lat: 0, Lng: 0}, false},
		{"lat too high", ReportLocationRequest{Lat: 90.1, Lng: 0}, true},
		{"lat too low", ReportLocationRequest{Lat: -90.1, Lng: 0}, true},
		{"lng too high", ReportLocationRequest{Lat: 0, Lng: 180.1}, true},
		{"lng too low", ReportLocationRequest{Lat: 0, Lng: -180.1}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected valid request, got %v", err)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	if !IsValidRole(RoleAdmin) || !IsValidRole(RoleDriver) {
		t.Fatalf("expected admin and driver to be valid roles")
	}
	if IsValidRole("operator") || IsValidRole("") {
		t.Fatalf("expected unknown roles to be invalid")
	}
}

func TestBusAssignedMatchesAvailability(t *testing.T) {
	driverID := "driver-1"

	bound := Bus{DriverID: &driverID, IsAvailable: false}
	if !bound.Assigned() {
		t.Fatalf("bus with driver must be assigned")
	}

	free := Bus{DriverID: nil, IsAvailable: true}
	if free.Assigned() {
		t.Fatalf("bus without driver must not be assigned")
	}
}
