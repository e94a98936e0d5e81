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

type LocationRepository interface {
	// Append records one position report. The history is append-only;
	// reports are never updated or deleted.
	Append(ctx context.Context, location *models.BusLocation) (string, error)

	// FindLast returns the most recent report for a bus, or ErrBusNotFound
	// when the bus has never reported.
	FindLast(ctx context.Context, busID string) (*models.BusLocation, error)

	// FindSince returns a bus's reports at or after the given time, in
	// chronological order.
	FindSince(ctx context.Context, busID string, since time.Time) ([]models.BusLocation, error)

	// FindLastPerBus returns the latest report for every bus that has one,
	// keyed by bus id hex.
	FindLastPerBus(ctx context.Context) (map[string]models.BusLocation, error)
}

type MongoLocationRepository struct {
	collection *mongo.Collection
}

func NewMongoLocationRepository(db *config.MongoDB) *MongoLocationRepository {
	return &MongoLocationRepository{
		collection: db.GetCollection("bus_locations"),
	}
}

func (r *MongoLocationRepository) Append(ctx context.Context, location *models.BusLocation) (string, error) {
	if location == nil {
		return "", errors.New("location cannot be nil")
	}
	if location.BusID.IsZero() {
		return "", errors.New("location bus ID cannot be empty")
	}

	if location.ID.IsZero() {
		location.ID = primitive.NewObjectID()
	}
	if location.RecordedAt.IsZero() {
		location.RecordedAt = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, location)
	if err != nil {
		return "", fmt.Errorf("failed to append location: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}

	return location.ID.Hex(), nil
}

func (r *MongoLocationRepository) FindLast(ctx context.Context, busID string) (*models.BusLocation, error) {
	objectID, err := parseObjectID(busID)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "recorded_at", Value: -1}})

	var location models.BusLocation
	err = r.collection.FindOne(ctx, bson.M{"bus_id": objectID}, opts).Decode(&location)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrBusNotFound
		}
		return nil, fmt.Errorf("failed to find last location: %w", err)
	}

	return &location, nil
}

func (r *MongoLocationRepository) FindSince(ctx context.Context, busID string, since time.Time) ([]models.BusLocation, error) {
	objectID, err := parseObjectID(busID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"bus_id":      objectID,
		"recorded_at": bson.M{"$gte": since},
	}

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find locations: %w", err)
	}
	defer cursor.Close(ctx)

	var locations []models.BusLocation
	if err = cursor.All(ctx, &locations); err != nil {
		return nil, fmt.Errorf("failed to decode locations: %w", err)
	}

	return locations, nil
}

func (r *MongoLocationRepository) FindLastPerBus(ctx context.Context) (map[string]models.BusLocation, error) {
	// Group by bus, keeping the newest report of each. Sort first so $first
	// picks the maximum recorded_at.
	pipeline := []bson.M{
		{"$sort": bson.M{"bus_id": 1, "recorded_at": -1}},
		{"$group": bson.M{
			"_id": "$bus_id",
			"doc": bson.M{"$first": "$$ROOT"},
		}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate last locations: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Doc models.BusLocation `bson:"doc"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode last locations: %w", err)
	}

	latest := make(map[string]models.BusLocation, len(results))
	for _, result := range results {
		latest[result.Doc.BusID.Hex()] = result.Doc
	}

	return latest, nil
}
