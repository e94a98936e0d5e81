package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rutabus/fleet-service/internal/models"
	"github.com/rutabus/fleet-service/internal/repository"
)

// fakeBusRepo mirrors the store contract: the assignment is one atomic
// claim-and-release under a single lock, exactly as the Mongo transaction
// behaves, so interleavings seen by tests are interleavings the real store
// could produce.
type fakeBusRepo struct {
	mu    sync.Mutex
	buses map[string]*models.Bus

	releaseAllErr error
}

func newFakeBusRepo() *fakeBusRepo {
	return &fakeBusRepo{
		buses: make(map[string]*models.Bus),
	}
}

func (r *fakeBusRepo) addBus(unitNumber string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	bus := &models.Bus{
		ID:          primitive.NewObjectID(),
		UnitNumber:  unitNumber,
		Capacity:    40,
		IsAvailable: true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	r.buses[bus.ID.Hex()] = bus
	return bus.ID.Hex()
}

func (r *fakeBusRepo) snapshot(id string) models.Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.buses[id]
}

func (r *fakeBusRepo) Create(ctx context.Context, bus *models.Bus) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.buses {
		if existing.UnitNumber == bus.UnitNumber {
			return "", fmt.Errorf("%w: %s", repository.ErrUnitNumberTaken, bus.UnitNumber)
		}
	}
	if bus.ID.IsZero() {
		bus.ID = primitive.NewObjectID()
	}
	bus.DriverID = nil
	bus.IsAvailable = true
	copied := *bus
	r.buses[bus.ID.Hex()] = &copied
	return bus.ID.Hex(), nil
}

func (r *fakeBusRepo) Update(ctx context.Context, id string, bus *models.Bus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.buses[id]
	if !ok {
		return repository.ErrBusNotFound
	}
	for otherID, other := range r.buses {
		if otherID != id && other.UnitNumber == bus.UnitNumber {
			return fmt.Errorf("%w: %s", repository.ErrUnitNumberTaken, bus.UnitNumber)
		}
	}
	existing.UnitNumber = bus.UnitNumber
	existing.Route = bus.Route
	existing.Capacity = bus.Capacity
	existing.Schedule = bus.Schedule
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBusRepo) FindByID(ctx context.Context, id string) (*models.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bus, ok := r.buses[id]
	if !ok {
		return nil, repository.ErrBusNotFound
	}
	copied := *bus
	return &copied, nil
}

// FindAll mirrors the Mongo implementation's clamp and skip/limit so tests
// see the same page boundaries production does.
func (r *fakeBusRepo) FindAll(ctx context.Context, page, pageSize int) ([]models.Bus, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buses := r.sortedLocked()
	total := int64(len(buses))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	skip := (page - 1) * pageSize
	if skip >= len(buses) {
		return nil, total, nil
	}
	end := skip + pageSize
	if end > len(buses) {
		end = len(buses)
	}
	return buses[skip:end], total, nil
}

func (r *fakeBusRepo) ListAll(ctx context.Context) ([]models.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked(), nil
}

func (r *fakeBusRepo) sortedLocked() []models.Bus {
	buses := make([]models.Bus, 0, len(r.buses))
	for _, bus := range r.buses {
		buses = append(buses, *bus)
	}
	sort.Slice(buses, func(i, j int) bool {
		return buses[i].UnitNumber < buses[j].UnitNumber
	})
	return buses
}

func (r *fakeBusRepo) FindAvailable(ctx context.Context) ([]models.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var buses []models.Bus
	for _, bus := range r.buses {
		if bus.DriverID == nil && bus.IsAvailable {
			buses = append(buses, *bus)
		}
	}
	return buses, nil
}

func (r *fakeBusRepo) FindByDriver(ctx context.Context, driverID string) (*models.Bus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bus := range r.buses {
		if bus.DriverID != nil && *bus.DriverID == driverID {
			copied := *bus
			return &copied, nil
		}
	}
	return nil, repository.ErrBusNotFound
}

func (r *fakeBusRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buses[id]; !ok {
		return repository.ErrBusNotFound
	}
	delete(r.buses, id)
	return nil
}

func (r *fakeBusRepo) AssignToDriver(ctx context.Context, busID, driverID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.buses[busID]
	if !ok {
		return nil, repository.ErrBusNotFound
	}

	// Conditional claim: only unassigned or already ours.
	if target.DriverID != nil && *target.DriverID != driverID {
		return nil, repository.ErrBusTaken
	}

	// Release anything else the driver holds, then claim, as one atomic unit.
	var released []string
	for id, bus := range r.buses {
		if id != busID && bus.DriverID != nil && *bus.DriverID == driverID {
			bus.DriverID = nil
			bus.IsAvailable = true
			released = append(released, id)
		}
	}
	target.DriverID = &driverID
	target.IsAvailable = false
	return released, nil
}

func (r *fakeBusRepo) Release(ctx context.Context, busID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bus, ok := r.buses[busID]
	if !ok {
		return repository.ErrBusNotFound
	}
	bus.DriverID = nil
	bus.IsAvailable = true
	return nil
}

func (r *fakeBusRepo) ReleaseAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.releaseAllErr != nil {
		return 0, &repository.PartialReleaseError{
			Released:  0,
			Remaining: r.countAssignedLocked(),
			Cause:     r.releaseAllErr,
		}
	}

	var released int64
	for _, bus := range r.buses {
		if bus.DriverID != nil {
			bus.DriverID = nil
			bus.IsAvailable = true
			released++
		}
	}
	return released, nil
}

func (r *fakeBusRepo) countAssignedLocked() int64 {
	var count int64
	for _, bus := range r.buses {
		if bus.DriverID != nil {
			count++
		}
	}
	return count
}

type recordingNotifier struct {
	mu         sync.Mutex
	busChanged []string
}

func (n *recordingNotifier) PublishBusChanged(busID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.busChanged = append(n.busChanged, busID)
}

func (n *recordingNotifier) PublishLocationCreated(string) {}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.busChanged...)
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		profiles: make(map[string]*models.Profile),
	}
}

func (r *fakeProfileRepo) addProfile(id, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[id] = &models.Profile{ID: id, Role: role}
}

func (r *fakeProfileRepo) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (r *fakeProfileRepo) Upsert(ctx context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *profile
	r.profiles[profile.ID] = &copied
	return nil
}

func (r *fakeProfileRepo) SetRole(ctx context.Context, id, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[id]
	if !ok {
		return repository.ErrProfileNotFound
	}
	profile.Role = role
	return nil
}

type fakeLocationRepo struct {
	mu        sync.Mutex
	locations []models.BusLocation
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{}
}

func (r *fakeLocationRepo) Append(ctx context.Context, location *models.BusLocation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if location.ID.IsZero() {
		location.ID = primitive.NewObjectID()
	}
	if location.RecordedAt.IsZero() {
		location.RecordedAt = time.Now()
	}
	r.locations = append(r.locations, *location)
	return location.ID.Hex(), nil
}

func (r *fakeLocationRepo) FindLast(ctx context.Context, busID string) (*models.BusLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *models.BusLocation
	for i := range r.locations {
		loc := &r.locations[i]
		if loc.BusID.Hex() != busID {
			continue
		}
		if last == nil || loc.RecordedAt.After(last.RecordedAt) {
			last = loc
		}
	}
	if last == nil {
		return nil, repository.ErrBusNotFound
	}
	copied := *last
	return &copied, nil
}

func (r *fakeLocationRepo) FindSince(ctx context.Context, busID string, since time.Time) ([]models.BusLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.BusLocation
	for _, loc := range r.locations {
		if loc.BusID.Hex() == busID && !loc.RecordedAt.Before(since) {
			result = append(result, loc)
		}
	}
	return result, nil
}

func (r *fakeLocationRepo) FindLastPerBus(ctx context.Context) (map[string]models.BusLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[string]models.BusLocation)
	for _, loc := range r.locations {
		key := loc.BusID.Hex()
		if existing, ok := latest[key]; !ok || loc.RecordedAt.After(existing.RecordedAt) {
			latest[key] = loc
		}
	}
	return latest, nil
}
