package config

import (
	"context"
	"fmt"
	"log"
	"time"
)

type DatabaseManager struct {
	mongoDB *MongoDB
	config  *Config
}

func NewDatabaseManager(config *Config) *DatabaseManager {
	return &DatabaseManager{
		config: config,
	}
}

func (dm *DatabaseManager) Initialize() error {
	mongoDB, err := ConnectMongoDB(dm.config.MongoDBURI, dm.config.MongoDBDatabase)
	if err != nil {
		return err
	}

	dm.mongoDB = mongoDB

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mongoDB.EnsureIndexes(ctx); err != nil {
		// Index creation can fail on restricted deployments; the service
		// still works, just slower and without the unique unit_number guard.
		log.Printf("Warning: failed to ensure indexes: %v", err)
	}

	return nil
}

func (dm *DatabaseManager) GetMongoDB() *MongoDB {
	return dm.mongoDB
}

func (dm *DatabaseManager) Close() error {
	if dm.mongoDB != nil {
		return dm.mongoDB.Disconnect()
	}
	return nil
}

func (dm *DatabaseManager) HealthCheck() error {
	if dm.mongoDB == nil {
		return ErrDatabaseNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := dm.mongoDB.PingWithContext(ctx); err != nil {
		return err
	}

	return nil
}

var (
	ErrDatabaseNotConnected = fmt.Errorf("database not connected")
)
