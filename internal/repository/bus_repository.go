package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rutabus/fleet-service/internal/config"
	"github.com/rutabus/fleet-service/internal/models"
)

type BusRepository interface {
	Create(ctx context.Context, bus *models.Bus) (string, error)
	Update(ctx context.Context, id string, bus *models.Bus) error
	FindByID(ctx context.Context, id string) (*models.Bus, error)
	FindAll(ctx context.Context, page, pageSize int) ([]models.Bus, int64, error)

	// ListAll returns the entire fleet, sorted by unit number. The snapshot
	// and liveness paths need every bus; pagination would truncate them.
	ListAll(ctx context.Context) ([]models.Bus, error)

	FindAvailable(ctx context.Context) ([]models.Bus, error)
	FindByDriver(ctx context.Context, driverID string) (*models.Bus, error)
	Delete(ctx context.Context, id string) error

	// AssignToDriver atomically claims the bus for the driver and releases
	// any other bus the driver holds, returning the ids of the buses
	// released that way. The claim is a conditional update that only
	// matches an unassigned bus or one already held by this driver; both
	// steps run in a single transaction so no intermediate state is
	// durably observable.
	AssignToDriver(ctx context.Context, busID, driverID string) ([]string, error)

	// Release clears the binding and marks the bus available. Releasing an
	// already-unbound bus is a no-op success.
	Release(ctx context.Context, busID string) error

	// ReleaseAll releases every assigned bus, returning how many were
	// released. A partial application surfaces as *PartialReleaseError.
	ReleaseAll(ctx context.Context) (int64, error)
}

type MongoBusRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoBusRepository(db *config.MongoDB) *MongoBusRepository {
	return &MongoBusRepository{
		client:     db.Client,
		collection: db.GetCollection("buses"),
	}
}

func (r *MongoBusRepository) Create(ctx context.Context, bus *models.Bus) (string, error) {
	if bus == nil {
		return "", errors.New("bus cannot be nil")
	}

	now := time.Now()
	bus.CreatedAt = now
	bus.UpdatedAt = now
	// A freshly registered bus is always unbound and available.
	bus.DriverID = nil
	bus.IsAvailable = true

	if bus.ID.IsZero() {
		bus.ID = primitive.NewObjectID()
	}

	result, err := r.collection.InsertOne(ctx, bus)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s", ErrUnitNumberTaken, bus.UnitNumber)
		}
		return "", fmt.Errorf("failed to create bus: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}

	return bus.ID.Hex(), nil
}

func (r *MongoBusRepository) Update(ctx context.Context, id string, bus *models.Bus) error {
	if bus == nil {
		return errors.New("bus cannot be nil")
	}

	objectID, err := parseObjectID(id)
	if err != nil {
		return err
	}

	bus.UpdatedAt = time.Now()

	// Only descriptive fields; driver_id and is_available are owned by the
	// assignment operations.
	update := bson.M{
		"$set": bson.M{
			"unit_number": bus.UnitNumber,
			"route":       bus.Route,
			"capacity":    bus.Capacity,
			"schedule":    bus.Schedule,
			"updated_at":  bus.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrUnitNumberTaken, bus.UnitNumber)
		}
		return fmt.Errorf("failed to update bus: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrBusNotFound
	}

	return nil
}

func (r *MongoBusRepository) FindByID(ctx context.Context, id string) (*models.Bus, error) {
	objectID, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var bus models.Bus
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&bus)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrBusNotFound
		}
		return nil, fmt.Errorf("failed to find bus: %w", err)
	}

	return &bus, nil
}

func (r *MongoBusRepository) FindAll(ctx context.Context, page, pageSize int) ([]models.Bus, int64, error) {
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

	totalCount, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count buses: %w", err)
	}

	findOptions := mongoFindOptions(int64(skip), int64(pageSize), bson.D{{Key: "unit_number", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find buses: %w", err)
	}
	defer cursor.Close(ctx)

	var buses []models.Bus
	if err = cursor.All(ctx, &buses); err != nil {
		return nil, 0, fmt.Errorf("failed to decode buses: %w", err)
	}

	return buses, totalCount, nil
}

func (r *MongoBusRepository) ListAll(ctx context.Context) ([]models.Bus, error) {
	findOptions := mongoFindOptions(0, 0, bson.D{{Key: "unit_number", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}
	defer cursor.Close(ctx)

	var buses []models.Bus
	if err = cursor.All(ctx, &buses); err != nil {
		return nil, fmt.Errorf("failed to decode buses: %w", err)
	}

	return buses, nil
}

func (r *MongoBusRepository) FindAvailable(ctx context.Context) ([]models.Bus, error) {
	filter := bson.M{
		"is_available": true,
		"driver_id":    nil,
	}

	findOptions := mongoFindOptions(0, 0, bson.D{{Key: "unit_number", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find available buses: %w", err)
	}
	defer cursor.Close(ctx)

	var buses []models.Bus
	if err = cursor.All(ctx, &buses); err != nil {
		return nil, fmt.Errorf("failed to decode available buses: %w", err)
	}

	return buses, nil
}

func (r *MongoBusRepository) FindByDriver(ctx context.Context, driverID string) (*models.Bus, error) {
	if driverID == "" {
		return nil, errors.New("driver ID cannot be empty")
	}

	var bus models.Bus
	err := r.collection.FindOne(ctx, bson.M{"driver_id": driverID}).Decode(&bus)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrBusNotFound
		}
		return nil, fmt.Errorf("failed to find bus by driver: %w", err)
	}

	return &bus, nil
}

func (r *MongoBusRepository) Delete(ctx context.Context, id string) error {
	objectID, err := parseObjectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete bus: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrBusNotFound
	}

	return nil
}

func (r *MongoBusRepository) AssignToDriver(ctx context.Context, busID, driverID string) ([]string, error) {
	if driverID == "" {
		return nil, errors.New("driver ID cannot be empty")
	}

	objectID, err := parseObjectID(busID)
	if err != nil {
		return nil, err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now()

		// Conditional claim: matches only when the bus is unassigned or
		// already ours. A bus held by someone else does not match, so two
		// racing claims resolve to one success and one conflict at the
		// store, never a lost update.
		claimFilter := bson.M{
			"_id": objectID,
			"$or": []bson.M{
				{"driver_id": nil},
				{"driver_id": driverID},
			},
		}
		claimUpdate := bson.M{
			"$set": bson.M{
				"driver_id":    driverID,
				"is_available": false,
				"updated_at":   now,
			},
		}

		res := r.collection.FindOneAndUpdate(sc, claimFilter, claimUpdate)
		if err := res.Err(); err != nil {
			if err != mongo.ErrNoDocuments {
				return nil, fmt.Errorf("failed to claim bus: %w", err)
			}
			// Distinguish a missing bus from a contested one.
			count, countErr := r.collection.CountDocuments(sc, bson.M{"_id": objectID})
			if countErr != nil {
				return nil, fmt.Errorf("failed to check bus existence: %w", countErr)
			}
			if count == 0 {
				return nil, ErrBusNotFound
			}
			return nil, ErrBusTaken
		}

		// Release whatever else the driver was holding. Inside the same
		// transaction, so readers never see the driver with two buses or
		// with none.
		releaseFilter := bson.M{
			"driver_id": driverID,
			"_id":       bson.M{"$ne": objectID},
		}

		cursor, err := r.collection.Find(sc, releaseFilter, options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return nil, fmt.Errorf("failed to find previous bus: %w", err)
		}
		var held []struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.All(sc, &held); err != nil {
			return nil, fmt.Errorf("failed to decode previous bus: %w", err)
		}
		if len(held) == 0 {
			return nil, nil
		}

		releaseUpdate := bson.M{
			"$set": bson.M{
				"driver_id":    nil,
				"is_available": true,
				"updated_at":   now,
			},
		}

		if _, err := r.collection.UpdateMany(sc, releaseFilter, releaseUpdate); err != nil {
			return nil, fmt.Errorf("failed to release previous bus: %w", err)
		}

		released := make([]string, len(held))
		for i, bus := range held {
			released[i] = bus.ID.Hex()
		}
		return released, nil
	})
	if err != nil {
		return nil, err
	}

	released, _ := result.([]string)
	return released, nil
}

func (r *MongoBusRepository) Release(ctx context.Context, busID string) error {
	objectID, err := parseObjectID(busID)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"driver_id":    nil,
			"is_available": true,
			"updated_at":   time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to release bus: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrBusNotFound
	}

	return nil
}

func (r *MongoBusRepository) ReleaseAll(ctx context.Context) (int64, error) {
	assignedFilter := bson.M{"driver_id": bson.M{"$ne": nil}}

	update := bson.M{
		"$set": bson.M{
			"driver_id":    nil,
			"is_available": true,
			"updated_at":   time.Now(),
		},
	}

	result, err := r.collection.UpdateMany(ctx, assignedFilter, update)
	if err != nil {
		// The bulk update may have stopped partway. Report what is left so
		// the caller can retry instead of assuming success or total failure.
		remaining, countErr := r.collection.CountDocuments(ctx, assignedFilter)
		if countErr != nil {
			remaining = -1
		}
		var released int64
		if result != nil {
			released = result.ModifiedCount
		}
		return released, &PartialReleaseError{
			Released:  released,
			Remaining: remaining,
			Cause:     err,
		}
	}

	return result.ModifiedCount, nil
}

func mongoFindOptions(skip, limit int64, sort bson.D) *options.FindOptions {
	findOptions := options.Find().SetSort(sort)
	if skip > 0 {
		findOptions.SetSkip(skip)
	}
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	return findOptions
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, ErrInvalidID
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return objectID, nil
}
