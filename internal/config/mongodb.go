package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func ConnectMongoDB(uri, database string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetMaxPoolSize(10)
	clientOptions.SetMinPoolSize(5)
	clientOptions.SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)

	if err := db.RunCommand(ctx, map[string]interface{}{"ping": 1}).Err(); err != nil {
		return nil, fmt.Errorf("failed to access database: %w", err)
	}

	log.Printf("Successfully connected to MongoDB at %s", uri)
	log.Printf("Using database: %s", database)

	return &MongoDB{
		Client:   client,
		Database: db,
	}, nil
}

func (m *MongoDB) Disconnect() error {
	if m.Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	log.Println("Successfully disconnected from MongoDB")
	return nil
}

func (m *MongoDB) GetCollection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

func (m *MongoDB) PingWithContext(ctx context.Context) error {
	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("MongoDB ping failed: %w", err)
	}

	return nil
}

// EnsureIndexes creates the indexes the service relies on. Unit numbers get
// a unique index (best effort at the store, not re-validated per request),
// assignment lookups go through driver_id, and last-position queries sort
// bus_locations by recorded_at descending.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	busIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "unit_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}},
		},
	}
	if _, err := m.GetCollection("buses").Indexes().CreateMany(ctx, busIndexes); err != nil {
		return fmt.Errorf("failed to create bus indexes: %w", err)
	}

	locationIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "bus_id", Value: 1}, {Key: "recorded_at", Value: -1}},
	}
	if _, err := m.GetCollection("bus_locations").Indexes().CreateOne(ctx, locationIndex); err != nil {
		return fmt.Errorf("failed to create location index: %w", err)
	}

	return nil
}
