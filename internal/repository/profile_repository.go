package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rutabus/fleet-service/internal/config"
	"github.com/rutabus/fleet-service/internal/models"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
	SetRole(ctx context.Context, id, role string) error
}

type MongoProfileRepository struct {
	collection *mongo.Collection
}

func NewMongoProfileRepository(db *config.MongoDB) *MongoProfileRepository {
	return &MongoProfileRepository{
		collection: db.GetCollection("profiles"),
	}
}

func (r *MongoProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if id == "" {
		return nil, errors.New("profile ID cannot be empty")
	}

	var profile models.Profile
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return &profile, nil
}

func (r *MongoProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	if profile == nil {
		return errors.New("profile cannot be nil")
	}
	if profile.ID == "" {
		return errors.New("profile ID cannot be empty")
	}
	if !models.IsValidRole(profile.Role) {
		return fmt.Errorf("invalid role: %s", profile.Role)
	}

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"role":       profile.Role,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": profile.ID}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

func (r *MongoProfileRepository) SetRole(ctx context.Context, id, role string) error {
	if id == "" {
		return errors.New("profile ID cannot be empty")
	}
	if !models.IsValidRole(role) {
		return fmt.Errorf("invalid role: %s", role)
	}

	update := bson.M{
		"$set": bson.M{
			"role":       role,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrProfileNotFound
	}

	return nil
}
